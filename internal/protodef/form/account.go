package form

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/qiniu/x/xlog"

	"github.com/solutions/interview-gate/internal/common/utils"
	"github.com/solutions/interview-gate/internal/protodef/errors"
	"github.com/solutions/interview-gate/internal/protodef/model"
)

var (
	defaultLogger = xlog.New("Form Validate")
)

const (
	ErrRoleMsg     = "role must be candidate or admin"
	ErrPasswordMsg = "password must be 6 to 128 characters"
	ErrOtpMsg      = "otp must be 6 digits"
)

// Validator 所有表单都实现该接口。
type Validator interface {
	Validate() error
}

// Check 校验表单，失败时返回 ValidationError。
func Check(v Validator) error {
	if err := v.Validate(); err != nil {
		defaultLogger.Debugf("validate form %T failed: %v", v, err)
		return errors.Validation(err.Error())
	}
	return nil
}

// RegisterForm 注册。UID 为空时必须提供 Password，由服务端创建身份服务账号。
type RegisterForm struct {
	UID      string `json:"uid" form:"uid"`
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
	Role     string `json:"role" form:"role"`
	Password string `json:"password" form:"password"`
}

func (f *RegisterForm) Normalize() {
	f.Email = utils.NormalizeEmail(f.Email)
}

func (f *RegisterForm) Validate() error {
	return validation.ValidateStruct(f,
		validation.Field(&f.UID, validation.When(f.Password == "", validation.Required.Error("uid or password is required"))),
		validation.Field(&f.Username, validation.Required, validation.Length(1, 64)),
		validation.Field(&f.Email, validation.Required, is.EmailFormat),
		validation.Field(&f.Role, validation.By(func(interface{}) error {
			if _, ok := model.ParseRole(f.Role); !ok {
				return validation.NewError("validation_role", ErrRoleMsg)
			}
			return nil
		})),
		validation.Field(&f.Password, validation.When(f.Password != "", validation.Length(6, 128).Error(ErrPasswordMsg))),
	)
}

// LoginForm 邮箱密码登录。使用身份服务 ID token 登录时不需要该表单。
type LoginForm struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func (f *LoginForm) Validate() error {
	return validation.ValidateStruct(f,
		validation.Field(&f.Email, validation.Required, is.EmailFormat),
		validation.Field(&f.Password, validation.Required),
	)
}

// VerifyOtpForm 重置密码时需再次提交新密码，与发起重置时的一致才生效。
type VerifyOtpForm struct {
	Email           string `json:"email" form:"email"`
	Otp             string `json:"otp" form:"otp"`
	IsPasswordReset bool   `json:"isPasswordReset" form:"isPasswordReset"`
	NewPassword     string `json:"newPassword" form:"newPassword"`
}

func (f *VerifyOtpForm) Validate() error {
	return validation.ValidateStruct(f,
		validation.Field(&f.Email, validation.Required, is.EmailFormat),
		validation.Field(&f.Otp, validation.Required, validation.Length(6, 6).Error(ErrOtpMsg), is.Digit.Error(ErrOtpMsg)),
		validation.Field(&f.NewPassword, validation.When(f.IsPasswordReset,
			validation.Required.Error("new password is required for password reset"),
			validation.Length(6, 128).Error(ErrPasswordMsg))),
	)
}

type ForgotPasswordForm struct {
	Email       string `json:"email" form:"email"`
	NewPassword string `json:"newPassword" form:"newPassword"`
}

func (f *ForgotPasswordForm) Validate() error {
	return validation.ValidateStruct(f,
		validation.Field(&f.Email, validation.Required, is.EmailFormat),
		validation.Field(&f.NewPassword, validation.Required, validation.Length(6, 128).Error(ErrPasswordMsg)),
	)
}

type UpdateProfileForm struct {
	Username string `json:"username" form:"username"`
}

func (f *UpdateProfileForm) Validate() error {
	return validation.ValidateStruct(f,
		validation.Field(&f.Username, validation.Required, validation.Length(1, 64)),
	)
}
