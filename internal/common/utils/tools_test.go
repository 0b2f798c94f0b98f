package utils

import (
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJwtSignAndParse(t *testing.T) {
	now := time.Now()
	token, err := JwtSign("secret", SessionClaims{AccountID: "a1", IdentityID: "uid-1", Role: "admin"}, now, time.Hour)
	require.NoError(t, err)

	claims, err := JwtParse("secret", token)
	require.NoError(t, err)
	assert.Equal(t, "a1", claims.AccountID)
	assert.Equal(t, "uid-1", claims.IdentityID)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, now.Add(time.Hour).Unix(), claims.ExpiresAt)
}

func TestJwtParseRejectsWrongKey(t *testing.T) {
	token, err := JwtSign("secret", SessionClaims{AccountID: "a1"}, time.Now(), time.Hour)
	require.NoError(t, err)

	_, err = JwtParse("other", token)
	assert.Error(t, err)
}

func TestJwtParseRejectsExpired(t *testing.T) {
	token, err := JwtSign("secret", SessionClaims{AccountID: "a1"}, time.Now().Add(-2*time.Hour), time.Hour)
	require.NoError(t, err)

	_, err = JwtParse("secret", token)
	assert.EqualError(t, err, "token is expired")
}

func TestJwtParseAtUsesGivenClock(t *testing.T) {
	issued := time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC)
	token, err := JwtSign("secret", SessionClaims{AccountID: "a1"}, issued, time.Hour)
	require.NoError(t, err)

	claims, err := JwtParseAt("secret", token, issued.Add(59*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "a1", claims.AccountID)

	_, err = JwtParseAt("secret", token, issued.Add(time.Hour+time.Second))
	assert.EqualError(t, err, "token is expired")

	// 墙上时钟早已超过签发时间加一小时
	_, err = JwtParse("secret", token)
	assert.Error(t, err)
}

func TestJwtParseAtRequiresExpiry(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{AccountID: "a1"}).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = JwtParseAt("secret", token, time.Now())
	assert.EqualError(t, err, "token is expired")
}

func TestJwtParseRejectsGarbage(t *testing.T) {
	_, err := JwtParse("secret", "not-a-token")
	assert.Error(t, err)
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "b@x.com", NormalizeEmail("  B@X.COM "))
	assert.Equal(t, "", NormalizeEmail("   "))
}

func TestNewReqIDUnique(t *testing.T) {
	a := NewReqID()
	time.Sleep(time.Microsecond)
	b := NewReqID()
	assert.NotEqual(t, a, b)
}

func TestConfigDefaults(t *testing.T) {
	conf := NewSample()
	assert.Equal(t, 7*24*time.Hour, conf.SessionTokenTTL())
	assert.Equal(t, time.Local, conf.Location())

	conf.TimeZone = "UTC"
	assert.Equal(t, time.UTC, conf.Location())

	conf.TimeZone = "Nowhere/Atlantis"
	assert.Equal(t, time.Local, conf.Location())

	conf.SessionTokenHours = 1
	assert.Equal(t, time.Hour, conf.SessionTokenTTL())
}

func TestConfigApplyEnv(t *testing.T) {
	t.Setenv("JWT_KEY", "from-env")
	t.Setenv("MONGO_URI", "mongodb://db:27017")
	t.Setenv("DEBUG_LEVEL", "1")
	conf := Config{}
	conf.ApplyEnv()
	assert.Equal(t, "from-env", conf.JwtKey)
	require.NotNil(t, conf.Mongo)
	assert.Equal(t, "mongodb://db:27017", conf.Mongo.URI)
	assert.Equal(t, 1, conf.DebugLevel)
}
