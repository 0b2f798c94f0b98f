package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/qiniu/x/xlog"

	"github.com/solutions/interview-gate/internal/protodef/form"
	"github.com/solutions/interview-gate/internal/protodef/model"
	"github.com/solutions/interview-gate/internal/service/identity"
	"github.com/solutions/interview-gate/internal/service/web/middleware"
)

// ForgotPasswordMessage 重置密码请求无论邮箱是否存在都返回相同信息。
const ForgotPasswordMessage = "if the email is registered, a verification code has been sent"

type AccountGateway interface {
	Register(ctx context.Context, xl *xlog.Logger, args identity.RegisterArgs) (*model.AccountDo, error)
	VerifyOtp(ctx context.Context, xl *xlog.Logger, email string, code string, isPasswordReset bool, newPassword string) (*identity.Session, error)
	InitiatePasswordReset(ctx context.Context, xl *xlog.Logger, email string, newPassword string) error
	LoginWithIdentityToken(ctx context.Context, xl *xlog.Logger, idToken string) (*identity.Session, error)
	LoginWithPassword(ctx context.Context, xl *xlog.Logger, email string, password string) (*identity.Session, error)
	GetProfile(xl *xlog.Logger, accountID string) (*model.AccountDo, error)
	UpdateProfile(xl *xlog.Logger, accountID string, username string) (*model.AccountDo, error)
}

type AccountApiHandler struct {
	Gateway AccountGateway
}

func NewAccountApiHandler(gateway AccountGateway) *AccountApiHandler {
	return &AccountApiHandler{Gateway: gateway}
}

func newSignInResponse(session *identity.Session) model.SignInResponse {
	return model.SignInResponse{
		UserInfoResponse: model.NewUserInfoResponse(session.Account),
		Token:            session.Token,
	}
}

func (h *AccountApiHandler) Register(c *gin.Context) {
	xl := requestLogger(c)
	args := &form.RegisterForm{}
	if !bindForm(c, xl, args) {
		return
	}
	account, err := h.Gateway.Register(c.Request.Context(), xl, identity.RegisterArgs{
		UID:      args.UID,
		Username: args.Username,
		Email:    args.Email,
		Role:     args.Role,
		Password: args.Password,
	})
	if err != nil {
		sendError(c, xl, err)
		return
	}
	resp := model.RegisterResponse{UserInfoResponse: model.NewUserInfoResponse(account)}
	if account.OtpExpires != nil {
		resp.OtpExpires = *account.OtpExpires
	}
	model.NewCreatedResponse(resp).WithRequestID(xl.ReqId).Send(c)
}

// Login 带 Authorization: Bearer <ID token> 时使用身份服务凭证登录，否则使用邮箱密码。
func (h *AccountApiHandler) Login(c *gin.Context) {
	xl := requestLogger(c)
	var session *identity.Session
	var err error
	if idToken := middleware.BearerToken(c); idToken != "" {
		session, err = h.Gateway.LoginWithIdentityToken(c.Request.Context(), xl, idToken)
	} else {
		args := &form.LoginForm{}
		if !bindForm(c, xl, args) {
			return
		}
		session, err = h.Gateway.LoginWithPassword(c.Request.Context(), xl, args.Email, args.Password)
	}
	if err != nil {
		sendError(c, xl, err)
		return
	}
	xl.Infof("account %s logged in", session.Account.ID)
	model.NewSuccessResponse(newSignInResponse(session)).WithRequestID(xl.ReqId).Send(c)
}

func (h *AccountApiHandler) VerifyOtp(c *gin.Context) {
	xl := requestLogger(c)
	args := &form.VerifyOtpForm{}
	if !bindForm(c, xl, args) {
		return
	}
	session, err := h.Gateway.VerifyOtp(c.Request.Context(), xl, args.Email, args.Otp, args.IsPasswordReset, args.NewPassword)
	if err != nil {
		sendError(c, xl, err)
		return
	}
	model.NewSuccessResponse(newSignInResponse(session)).WithRequestID(xl.ReqId).Send(c)
}

func (h *AccountApiHandler) ForgotPassword(c *gin.Context) {
	xl := requestLogger(c)
	args := &form.ForgotPasswordForm{}
	if !bindForm(c, xl, args) {
		return
	}
	if err := h.Gateway.InitiatePasswordReset(c.Request.Context(), xl, args.Email, args.NewPassword); err != nil {
		sendError(c, xl, err)
		return
	}
	model.NewSuccessResponse(model.MessageResponse{Message: ForgotPasswordMessage}).WithRequestID(xl.ReqId).Send(c)
}

func (h *AccountApiHandler) GetProfile(c *gin.Context) {
	xl := requestLogger(c)
	account, err := h.Gateway.GetProfile(xl, currentAccountID(c))
	if err != nil {
		sendError(c, xl, err)
		return
	}
	model.NewSuccessResponse(model.NewUserInfoResponse(account)).WithRequestID(xl.ReqId).Send(c)
}

func (h *AccountApiHandler) UpdateProfile(c *gin.Context) {
	xl := requestLogger(c)
	args := &form.UpdateProfileForm{}
	if !bindForm(c, xl, args) {
		return
	}
	account, err := h.Gateway.UpdateProfile(xl, currentAccountID(c), args.Username)
	if err != nil {
		sendError(c, xl, err)
		return
	}
	model.NewSuccessResponse(model.NewUserInfoResponse(account)).WithRequestID(xl.ReqId).Send(c)
}
