package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/qiniu/x/xlog"

	"github.com/solutions/interview-gate/internal/common/utils"
	"github.com/solutions/interview-gate/internal/protodef/model"
)

// Authenticator 校验应用签发的登录凭证。
type Authenticator interface {
	Authenticate(credential string) (*utils.SessionClaims, error)
}

// BearerToken 返回 Authorization: Bearer <token> 中的 token。
func BearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
}

// Authenticate 校验请求者的身份，成功后将凭证信息放入 context。
func Authenticate(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		xl := c.MustGet(model.XLogKey).(*xlog.Logger)
		requestID := xl.ReqId

		token := BearerToken(c)
		if token == "" {
			xl.Debugf("%s %s: request unauthorized, wrong auth header format", c.Request.Method, c.Request.URL.Path)
			model.NewFailResponse(*model.NewResponseErrorNotLoggedIn()).WithRequestID(requestID).Send(c)
			c.Abort()
			return
		}
		claims, err := auth.Authenticate(token)
		if err != nil {
			xl.Debugf("%s %s: request unauthorized, error %v", c.Request.Method, c.Request.URL.Path, err)
			model.NewFailResponse(*model.NewResponseErrorBadToken()).WithRequestID(requestID).Send(c)
			c.Abort()
			return
		}
		c.Set(model.ClaimsContextKey, claims)
	}
}

// RequireRole 只允许指定角色访问，需在 Authenticate 之后使用。
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims != nil {
			for _, role := range roles {
				if claims.Role == string(role) {
					return
				}
			}
		}
		xl := c.MustGet(model.XLogKey).(*xlog.Logger)
		model.NewFailResponse(*model.NewResponseErrorForbidden("permission denied")).WithRequestID(xl.ReqId).Send(c)
		c.Abort()
	}
}

// Claims 返回当前请求的登录凭证信息，未登录时为 nil。
func Claims(c *gin.Context) *utils.SessionClaims {
	val, ok := c.Get(model.ClaimsContextKey)
	if !ok {
		return nil
	}
	claims, _ := val.(*utils.SessionClaims)
	return claims
}
