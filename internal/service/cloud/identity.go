package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/google/uuid"
	"github.com/qiniu/x/xlog"
	"github.com/tidwall/gjson"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/api/option"

	"github.com/solutions/interview-gate/internal/common/utils"
	"github.com/solutions/interview-gate/internal/protodef/errors"
)

// IdentityProvider 外部身份服务。
type IdentityProvider interface {
	// VerifyCredential 校验身份服务签发的 ID token，返回用户ID。
	VerifyCredential(ctx context.Context, token string) (string, error)
	CreateAccount(ctx context.Context, email string, password string) (string, error)
	// AuthenticateAccount 邮箱密码登录，返回用户ID与 ID token。
	AuthenticateAccount(ctx context.Context, email string, password string) (string, string, error)
	// SetPassword 只修改密码，用户的其他资料保持不变。
	SetPassword(ctx context.Context, uid string, password string) error
	DeleteAccount(ctx context.Context, uid string) error
}

// NewIdentityProvider 根据配置创建身份服务客户端，由进程入口持有。
func NewIdentityProvider(ctx context.Context, conf utils.FirebaseConfig, xl *xlog.Logger) (IdentityProvider, error) {
	if xl == nil {
		xl = xlog.New("interview-gate-identity")
	}
	switch conf.Provider {
	case "test":
		return NewMemoryIdentity(), nil
	case "firebase":
		return NewFirebaseIdentity(ctx, conf, xl)
	default:
		xl.Errorf("unsupported identity provider %s", conf.Provider)
		return nil, fmt.Errorf("unsupported identity provider")
	}
}

const firebaseSignInURL = "https://identitytoolkit.googleapis.com/v1/accounts:signInWithPassword"

type FirebaseIdentity struct {
	client    *auth.Client
	webAPIKey string
	signInURL string
	http      *http.Client
	xl        *xlog.Logger
}

func NewFirebaseIdentity(ctx context.Context, conf utils.FirebaseConfig, xl *xlog.Logger) (*FirebaseIdentity, error) {
	var opts []option.ClientOption
	if conf.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(conf.CredentialsFile))
	}
	var appConf *firebase.Config
	if conf.ProjectID != "" {
		appConf = &firebase.Config{ProjectID: conf.ProjectID}
	}
	app, err := firebase.NewApp(ctx, appConf, opts...)
	if err != nil {
		xl.Errorf("failed to create firebase app, error %v", err)
		return nil, err
	}
	client, err := app.Auth(ctx)
	if err != nil {
		xl.Errorf("failed to create firebase auth client, error %v", err)
		return nil, err
	}
	return &FirebaseIdentity{
		client:    client,
		webAPIKey: conf.WebAPIKey,
		signInURL: firebaseSignInURL,
		http:      &http.Client{Timeout: 10 * time.Second},
		xl:        xl,
	}, nil
}

func (f *FirebaseIdentity) VerifyCredential(ctx context.Context, token string) (string, error) {
	verified, err := f.client.VerifyIDToken(ctx, token)
	if err != nil {
		f.xl.Infof("failed to verify id token, error %v", err)
		return "", errors.Wrap(errors.ServerErrorUnauthorized, "invalid identity token", err)
	}
	return verified.UID, nil
}

func (f *FirebaseIdentity) CreateAccount(ctx context.Context, email string, password string) (string, error) {
	user, err := f.client.CreateUser(ctx, (&auth.UserToCreate{}).Email(email).Password(password))
	if err != nil {
		if auth.IsEmailAlreadyExists(err) {
			return "", errors.Wrap(errors.ServerErrorConflict, "email already registered", err)
		}
		f.xl.Errorf("failed to create firebase user %s, error %v", email, err)
		return "", errors.Upstream("identity provider failed", err)
	}
	return user.UID, nil
}

func (f *FirebaseIdentity) AuthenticateAccount(ctx context.Context, email string, password string) (string, string, error) {
	if f.webAPIKey == "" {
		return "", "", errors.Upstream("password sign-in is not configured", nil)
	}
	body, _ := json.Marshal(map[string]interface{}{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.signInURL+"?key="+f.webAPIKey, bytes.NewReader(body))
	if err != nil {
		return "", "", errors.Upstream("identity provider failed", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := f.http.Do(req)
	if err != nil {
		f.xl.Errorf("call sign in api error %v", err)
		return "", "", errors.Upstream("identity provider failed", NewCallError("signInWithPassword", err))
	}
	defer resp.Body.Close()
	res, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", errors.Upstream("identity provider failed", err)
	}
	result := gjson.ParseBytes(res)
	if resp.StatusCode != http.StatusOK {
		message := result.Get("error.message").String()
		if resp.StatusCode == http.StatusBadRequest {
			f.xl.Infof("sign in rejected for %s: %s", email, message)
			return "", "", errors.Unauthorized("invalid email or password")
		}
		f.xl.Errorf("sign in api status %d: %s", resp.StatusCode, message)
		return "", "", errors.Upstream("identity provider failed", NewStatusCodeError(resp.StatusCode, message))
	}
	return result.Get("localId").String(), result.Get("idToken").String(), nil
}

func (f *FirebaseIdentity) SetPassword(ctx context.Context, uid string, password string) error {
	if _, err := f.client.UpdateUser(ctx, uid, (&auth.UserToUpdate{}).Password(password)); err != nil {
		if auth.IsUserNotFound(err) {
			return errors.NotFound("identity account not found")
		}
		f.xl.Errorf("failed to update password of %s, error %v", uid, err)
		return errors.Upstream("identity provider failed", err)
	}
	return nil
}

func (f *FirebaseIdentity) DeleteAccount(ctx context.Context, uid string) error {
	if err := f.client.DeleteUser(ctx, uid); err != nil {
		if auth.IsUserNotFound(err) {
			return nil
		}
		f.xl.Errorf("failed to delete firebase user %s, error %v", uid, err)
		return errors.Upstream("identity provider failed", err)
	}
	return nil
}

// MemoryIdentity 进程内的身份服务，ID token 即为 "test:" 加用户ID，仅供测试使用。
type MemoryIdentity struct {
	mutex sync.Mutex
	users map[string]*memoryUser
}

type memoryUser struct {
	uid          string
	email        string
	passwordHash []byte
}

func NewMemoryIdentity() *MemoryIdentity {
	return &MemoryIdentity{users: map[string]*memoryUser{}}
}

// TokenFor 返回该用户的 ID token。
func (m *MemoryIdentity) TokenFor(uid string) string {
	return "test:" + uid
}

func (m *MemoryIdentity) VerifyCredential(ctx context.Context, token string) (string, error) {
	uid := strings.TrimPrefix(token, "test:")
	if uid == token || uid == "" {
		return "", errors.Unauthorized("invalid identity token")
	}
	return uid, nil
}

func (m *MemoryIdentity) CreateAccount(ctx context.Context, email string, password string) (string, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for _, user := range m.users {
		if user.email == email {
			return "", errors.Conflict("email already registered")
		}
	}
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return "", errors.Upstream("identity provider failed", err)
	}
	uid := uuid.NewString()
	m.users[uid] = &memoryUser{uid: uid, email: email, passwordHash: passwordHash}
	return uid, nil
}

func (m *MemoryIdentity) AuthenticateAccount(ctx context.Context, email string, password string) (string, string, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for _, user := range m.users {
		if user.email == email && bcrypt.CompareHashAndPassword(user.passwordHash, []byte(password)) == nil {
			return user.uid, m.TokenFor(user.uid), nil
		}
	}
	return "", "", errors.Unauthorized("invalid email or password")
}

func (m *MemoryIdentity) SetPassword(ctx context.Context, uid string, password string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	user, ok := m.users[uid]
	if !ok {
		return errors.NotFound("identity account not found")
	}
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return errors.Upstream("identity provider failed", err)
	}
	user.passwordHash = passwordHash
	return nil
}

func (m *MemoryIdentity) DeleteAccount(ctx context.Context, uid string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.users, uid)
	return nil
}

// Has 用户是否存在。
func (m *MemoryIdentity) Has(uid string) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	_, ok := m.users[uid]
	return ok
}
