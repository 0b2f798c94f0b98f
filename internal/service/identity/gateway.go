package identity

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/qiniu/x/xlog"
	"golang.org/x/crypto/bcrypt"

	"github.com/solutions/interview-gate/internal/common/utils"
	"github.com/solutions/interview-gate/internal/protodef/errors"
	"github.com/solutions/interview-gate/internal/protodef/model"
	"github.com/solutions/interview-gate/internal/service/cloud"
)

var (
	// OtpDefaultValidateTimeout 验证码的有效时间。
	OtpDefaultValidateTimeout = 10 * time.Minute
	// OtpDefaultResendTimeout 重置密码验证码的重发间隔。
	OtpDefaultResendTimeout = time.Minute
	// OtpDefaultMaxAttempts 验证码有效期内同一邮箱允许的失败次数。
	OtpDefaultMaxAttempts = 5
)

const (
	otpMin = 100000
	otpMax = 999999
)

type AccountStore interface {
	UpsertByUID(xl *xlog.Logger, account *model.AccountDo) (*model.AccountDo, error)
	GetAccountByID(xl *xlog.Logger, id string) (*model.AccountDo, error)
	GetAccountByUID(xl *xlog.Logger, uid string) (*model.AccountDo, error)
	GetAccountByEmail(xl *xlog.Logger, email string) (*model.AccountDo, error)
	SetPendingOtp(xl *xlog.Logger, email string, otp string, expires time.Time, pendingPasswordHash string) error
	ConsumeOtp(xl *xlog.Logger, email string, otp string, now time.Time, pendingPasswordHash string) (*model.AccountDo, error)
	UpdateUsername(xl *xlog.Logger, id string, username string) (*model.AccountDo, error)
}

// Config 身份网关配置。
type Config struct {
	JwtKey             string
	TokenTTL           time.Duration
	OtpValidateTimeout time.Duration
	OtpResendTimeout   time.Duration
	OtpMaxAttempts     int
	// FixedCodes 固定的邮箱->验证码组合，供测试用。
	FixedCodes map[string]string
}

// NewConfig 从全局配置生成身份网关配置。
func NewConfig(conf *utils.Config) Config {
	c := Config{
		JwtKey:     conf.JwtKey,
		TokenTTL:   conf.SessionTokenTTL(),
		FixedCodes: conf.Otp.FixedCodes,
	}
	if conf.Otp.ValidateTimeoutSecond > 0 {
		c.OtpValidateTimeout = time.Duration(conf.Otp.ValidateTimeoutSecond) * time.Second
	}
	if conf.Otp.ResendTimeoutSecond > 0 {
		c.OtpResendTimeout = time.Duration(conf.Otp.ResendTimeoutSecond) * time.Second
	}
	c.OtpMaxAttempts = conf.Otp.MaxAttempts
	return c
}

// Gateway 注册、验证码、登录与凭证校验。
type Gateway struct {
	accounts AccountStore
	provider cloud.IdentityProvider
	mail     cloud.MailSender
	throttle cloud.Throttle
	conf     Config
	now      func() time.Time
	xl       *xlog.Logger
}

func NewGateway(accounts AccountStore, provider cloud.IdentityProvider, mail cloud.MailSender, throttle cloud.Throttle, conf Config, xl *xlog.Logger) *Gateway {
	if xl == nil {
		xl = xlog.New("interview-gate-identity-gateway")
	}
	if conf.TokenTTL <= 0 {
		conf.TokenTTL = 7 * 24 * time.Hour
	}
	if conf.OtpValidateTimeout <= 0 {
		conf.OtpValidateTimeout = OtpDefaultValidateTimeout
	}
	if conf.OtpResendTimeout <= 0 {
		conf.OtpResendTimeout = OtpDefaultResendTimeout
	}
	if conf.OtpMaxAttempts <= 0 {
		conf.OtpMaxAttempts = OtpDefaultMaxAttempts
	}
	return &Gateway{
		accounts: accounts,
		provider: provider,
		mail:     mail,
		throttle: throttle,
		conf:     conf,
		now:      time.Now,
		xl:       xl,
	}
}

// Session 登录成功后返回的应用凭证。
type Session struct {
	Token   string
	Account *model.AccountDo
}

type RegisterArgs struct {
	UID      string
	Username string
	Email    string
	Role     string
	// Password 不为空且 UID 为空时，先在身份服务创建账号；
	// 邮箱已存在时，未验证的账号或密码正确的账号沿用原身份服务ID。
	Password string
}

// Register 以身份服务ID为键创建或更新账号，生成新的验证码并发送邮件。
func (g *Gateway) Register(ctx context.Context, xl *xlog.Logger, args RegisterArgs) (*model.AccountDo, error) {
	if xl == nil {
		xl = g.xl
	}
	email := utils.NormalizeEmail(args.Email)
	if args.Username == "" || email == "" {
		return nil, errors.Validation("username and email are required")
	}
	if args.UID == "" && args.Password == "" {
		return nil, errors.Validation("uid or password is required")
	}
	role, ok := model.ParseRole(args.Role)
	if !ok {
		return nil, errors.Validation("role must be candidate or admin")
	}

	var passwordHash string
	if args.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(args.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, errors.Internal(err)
		}
		passwordHash = string(hash)
	}

	uid := args.UID
	createdUID := ""
	if uid == "" {
		var err error
		uid, err = g.provider.CreateAccount(ctx, email, args.Password)
		switch {
		case errors.Is(err, errors.ServerErrorConflict):
			uid, err = g.existingIdentity(ctx, xl, email, args.Password)
			if err != nil {
				return nil, err
			}
		case err != nil:
			xl.Infof("Register: failed to create identity account for %s, error %v", email, err)
			return nil, err
		default:
			createdUID = uid
		}
	}

	otp, err := g.newOtp(email)
	if err != nil {
		g.compensate(ctx, xl, createdUID)
		return nil, err
	}
	expires := g.now().Add(g.conf.OtpValidateTimeout)
	account, err := g.accounts.UpsertByUID(xl, &model.AccountDo{
		UID:          uid,
		Username:     args.Username,
		Email:        email,
		Role:         role,
		Otp:          otp,
		OtpExpires:   &expires,
		PasswordHash: passwordHash,
	})
	if err != nil {
		xl.Infof("Register: failed to save account %s, error %v", email, err)
		g.compensate(ctx, xl, createdUID)
		return nil, err
	}

	if err := g.sendOtp(xl, email, otp); err != nil {
		return nil, errors.Upstream("failed to send verification email", err)
	}
	xl.Infof("Register: account %s (%s) waiting for otp verification", account.ID, email)
	return account, nil
}

// existingIdentity 身份服务中邮箱已存在时，判断本次注册能否沿用该账号。
func (g *Gateway) existingIdentity(ctx context.Context, xl *xlog.Logger, email string, password string) (string, error) {
	account, err := g.accounts.GetAccountByEmail(xl, email)
	if err == nil && account.Unverified() {
		// 未验证前以最后一次注册提交的密码为准
		if err := g.provider.SetPassword(ctx, account.UID, password); err != nil {
			return "", err
		}
		xl.Infof("Register: %s is still pending, reuse identity %s", email, account.UID)
		return account.UID, nil
	}
	if err != nil && !errors.Is(err, errors.ServerErrorNotFound) {
		return "", err
	}
	uid, _, err := g.provider.AuthenticateAccount(ctx, email, password)
	if errors.Is(err, errors.ServerErrorUnauthorized) {
		return "", errors.Conflict("email already registered")
	}
	if err != nil {
		return "", err
	}
	xl.Infof("Register: password of %s matches, reuse identity %s", email, uid)
	return uid, nil
}

// compensate 删除本次注册在身份服务中创建的账号。
func (g *Gateway) compensate(ctx context.Context, xl *xlog.Logger, createdUID string) {
	if createdUID == "" {
		return
	}
	if err := g.provider.DeleteAccount(ctx, createdUID); err != nil {
		xl.Errorf("failed to delete orphaned identity account %s, error %v", createdUID, err)
		return
	}
	xl.Infof("deleted orphaned identity account %s", createdUID)
}

// VerifyOtp 校验并清除验证码，重置密码时使待生效的密码生效，成功后签发登录凭证。
// newPassword 仅在重置密码时使用，必须与发起重置时提交的密码一致。
func (g *Gateway) VerifyOtp(ctx context.Context, xl *xlog.Logger, email string, code string, isPasswordReset bool, newPassword string) (*Session, error) {
	if xl == nil {
		xl = g.xl
	}
	email = utils.NormalizeEmail(email)
	attemptKey := "verify:" + email
	if n, err := g.throttle.Count(xl, attemptKey); err != nil {
		xl.Errorf("VerifyOtp: failed to count attempts of %s, error %v", email, err)
	} else if n >= int64(g.conf.OtpMaxAttempts) {
		xl.Infof("VerifyOtp: %s has failed %d times, reject", email, n)
		return nil, errors.TooManyAttempts()
	}

	account, err := g.accounts.GetAccountByEmail(xl, email)
	if err != nil {
		return nil, err
	}
	now := g.now()
	if account.Otp == "" || account.Otp != code || account.OtpExpires == nil || now.After(*account.OtpExpires) {
		xl.Infof("VerifyOtp: invalid or expired otp for %s", email)
		g.recordFailure(xl, attemptKey)
		return nil, errors.InvalidOtp()
	}

	pendingHash := ""
	if isPasswordReset {
		if account.PendingPasswordHash == "" {
			return nil, errors.Validation("no password reset pending")
		}
		if bcrypt.CompareHashAndPassword([]byte(account.PendingPasswordHash), []byte(newPassword)) != nil {
			g.recordFailure(xl, attemptKey)
			return nil, errors.Validation("new password does not match the reset request")
		}
		pendingHash = account.PendingPasswordHash
		if err := g.provider.SetPassword(ctx, account.UID, newPassword); err != nil {
			return nil, err
		}
	}

	verified, err := g.accounts.ConsumeOtp(xl, email, code, now, pendingHash)
	if err != nil {
		if errors.Is(err, errors.ServerErrorInvalidOtp) {
			g.recordFailure(xl, attemptKey)
		}
		return nil, err
	}
	if err := g.throttle.Reset(xl, attemptKey); err != nil {
		xl.Errorf("VerifyOtp: failed to reset attempts of %s, error %v", email, err)
	}
	return g.issue(verified)
}

func (g *Gateway) recordFailure(xl *xlog.Logger, key string) {
	if _, err := g.throttle.Incr(xl, key, g.conf.OtpValidateTimeout); err != nil {
		xl.Errorf("failed to record otp failure of %s, error %v", key, err)
	}
}

// InitiatePasswordReset 总是成功返回，邮箱不存在或发送失败只记录日志。
func (g *Gateway) InitiatePasswordReset(ctx context.Context, xl *xlog.Logger, email string, newPassword string) error {
	if xl == nil {
		xl = g.xl
	}
	email = utils.NormalizeEmail(email)
	if email == "" || newPassword == "" {
		return errors.Validation("email and new password are required")
	}
	account, err := g.accounts.GetAccountByEmail(xl, email)
	if err != nil {
		xl.Infof("InitiatePasswordReset: no account for %s, error %v", email, err)
		return nil
	}
	allowed, err := g.throttle.Allow(xl, "reset:"+email, g.conf.OtpResendTimeout)
	if err != nil {
		xl.Errorf("InitiatePasswordReset: throttle check failed, error %v", err)
	} else if !allowed {
		xl.Infof("InitiatePasswordReset: otp has been sent to %s recently, skip", email)
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		xl.Errorf("InitiatePasswordReset: failed to hash password, error %v", err)
		return nil
	}
	otp, err := g.newOtp(email)
	if err != nil {
		xl.Errorf("InitiatePasswordReset: failed to generate otp, error %v", err)
		return nil
	}
	if err := g.accounts.SetPendingOtp(xl, account.Email, otp, g.now().Add(g.conf.OtpValidateTimeout), string(hash)); err != nil {
		xl.Errorf("InitiatePasswordReset: failed to save otp of %s, error %v", email, err)
		return nil
	}
	if err := g.sendOtp(xl, account.Email, otp); err != nil {
		xl.Errorf("InitiatePasswordReset: failed to send otp to %s, error %v", email, err)
	}
	return nil
}

// Login 身份服务ID对应的账号已验证时签发登录凭证。
func (g *Gateway) Login(ctx context.Context, xl *xlog.Logger, uid string) (*Session, error) {
	if xl == nil {
		xl = g.xl
	}
	if uid == "" {
		return nil, errors.Unauthorized("missing identity")
	}
	account, err := g.accounts.GetAccountByUID(xl, uid)
	if err != nil {
		return nil, err
	}
	if account.Unverified() {
		xl.Infof("Login: account %s has pending otp", account.ID)
		return nil, errors.NotVerified()
	}
	return g.issue(account)
}

// LoginWithIdentityToken 使用身份服务签发的 ID token 登录。
func (g *Gateway) LoginWithIdentityToken(ctx context.Context, xl *xlog.Logger, idToken string) (*Session, error) {
	if idToken == "" {
		return nil, errors.Unauthorized("missing identity token")
	}
	uid, err := g.provider.VerifyCredential(ctx, idToken)
	if err != nil {
		return nil, err
	}
	return g.Login(ctx, xl, uid)
}

// LoginWithPassword 通过身份服务的邮箱密码登录。
func (g *Gateway) LoginWithPassword(ctx context.Context, xl *xlog.Logger, email string, password string) (*Session, error) {
	uid, _, err := g.provider.AuthenticateAccount(ctx, utils.NormalizeEmail(email), password)
	if err != nil {
		return nil, err
	}
	return g.Login(ctx, xl, uid)
}

// Authenticate 校验应用自身的登录凭证。
func (g *Gateway) Authenticate(credential string) (*utils.SessionClaims, error) {
	if credential == "" {
		return nil, errors.Unauthorized("missing credential")
	}
	claims, err := utils.JwtParseAt(g.conf.JwtKey, credential, g.now())
	if err != nil {
		return nil, errors.Wrap(errors.ServerErrorUnauthorized, "invalid or expired credential", err)
	}
	return claims, nil
}

func (g *Gateway) GetProfile(xl *xlog.Logger, accountID string) (*model.AccountDo, error) {
	if xl == nil {
		xl = g.xl
	}
	return g.accounts.GetAccountByID(xl, accountID)
}

func (g *Gateway) UpdateProfile(xl *xlog.Logger, accountID string, username string) (*model.AccountDo, error) {
	if xl == nil {
		xl = g.xl
	}
	if username == "" {
		return nil, errors.Validation("username is required")
	}
	return g.accounts.UpdateUsername(xl, accountID, username)
}

func (g *Gateway) issue(account *model.AccountDo) (*Session, error) {
	token, err := utils.JwtSign(g.conf.JwtKey, utils.SessionClaims{
		AccountID:  account.ID,
		IdentityID: account.UID,
		Role:       string(account.Role),
	}, g.now(), g.conf.TokenTTL)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return &Session{Token: token, Account: account}, nil
}

// newOtp 生成 [100000, 999999] 内均匀分布的验证码。
func (g *Gateway) newOtp(email string) (string, error) {
	if code, ok := g.conf.FixedCodes[email]; ok {
		return code, nil
	}
	n, err := rand.Int(rand.Reader, big.NewInt(otpMax-otpMin+1))
	if err != nil {
		return "", errors.Internal(err)
	}
	return fmt.Sprintf("%06d", n.Int64()+otpMin), nil
}

func (g *Gateway) sendOtp(xl *xlog.Logger, email string, otp string) error {
	body := fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", otp, int(g.conf.OtpValidateTimeout/time.Minute))
	return g.mail.SendMail(xl, email, "Your verification code", body)
}
