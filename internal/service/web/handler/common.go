package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/qiniu/x/xlog"

	"github.com/solutions/interview-gate/internal/protodef/form"
	"github.com/solutions/interview-gate/internal/protodef/model"
	"github.com/solutions/interview-gate/internal/service/web/middleware"
)

type normalizer interface {
	Normalize()
}

func requestLogger(c *gin.Context) *xlog.Logger {
	return c.MustGet(model.XLogKey).(*xlog.Logger)
}

// sendError 服务端错误转换为对应的返回，5xx 记录错误日志。
func sendError(c *gin.Context, xl *xlog.Logger, err error) {
	responseErr := model.NewResponseErrorFromServerError(err)
	if responseErr.HTTPStatus() >= http.StatusInternalServerError {
		xl.Errorf("%s %s: error %v", c.Request.Method, c.Request.URL.Path, err)
	} else {
		xl.Infof("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	model.NewFailResponse(*responseErr).WithRequestID(xl.ReqId).Send(c)
}

// bindForm 解析并校验请求体，失败时已写入返回。
func bindForm(c *gin.Context, xl *xlog.Logger, args form.Validator) bool {
	if err := c.ShouldBind(args); err != nil {
		xl.Infof("invalid args in body, error %v", err)
		model.NewFailResponse(*model.NewResponseErrorBadRequest()).WithRequestID(xl.ReqId).Send(c)
		return false
	}
	if n, ok := args.(normalizer); ok {
		n.Normalize()
	}
	if err := form.Check(args); err != nil {
		sendError(c, xl, err)
		return false
	}
	return true
}

// currentAccountID 当前登录账号ID，需在 Authenticate 之后使用。
func currentAccountID(c *gin.Context) string {
	if claims := middleware.Claims(c); claims != nil {
		return claims.AccountID
	}
	return ""
}

// requireSelf 路径中的面试官ID必须是当前登录账号。
func requireSelf(c *gin.Context, xl *xlog.Logger, interviewerID string) bool {
	if interviewerID == currentAccountID(c) {
		return true
	}
	xl.Infof("account %s is not allowed to access data of %s", currentAccountID(c), interviewerID)
	model.NewFailResponse(*model.NewResponseErrorForbidden("permission denied")).WithRequestID(xl.ReqId).Send(c)
	return false
}
