package utils

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
)

var pid = uint32(time.Now().UnixNano() % 4294967291)

// NewReqID for generate req id
func NewReqID() string {
	var b [12]byte
	binary.LittleEndian.PutUint32(b[:], pid)
	binary.LittleEndian.PutUint64(b[4:], uint64(time.Now().UnixNano()))
	return base64.URLEncoding.EncodeToString(b[:])
}

// NormalizeEmail 去除首尾空白并转为小写。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SessionClaims 应用自身登录凭证中携带的信息。
type SessionClaims struct {
	AccountID  string `json:"id"`
	IdentityID string `json:"uid"`
	Role       string `json:"role"`
	jwt.StandardClaims
}

// JwtSign signs claims with HS256, valid from now for ttl.
func JwtSign(key string, claims SessionClaims, now time.Time, ttl time.Duration) (string, error) {
	claims.IssuedAt = now.Unix()
	claims.ExpiresAt = now.Add(ttl).Unix()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(key))
}

// JwtParse validates signature and expiry against the wall clock, returning the claims.
func JwtParse(key string, tokenString string) (*SessionClaims, error) {
	return JwtParseAt(key, tokenString, time.Now())
}

// JwtParseAt validates signature, and expiry as of now.
func JwtParseAt(key string, tokenString string, now time.Time) (*SessionClaims, error) {
	claims := &SessionClaims{}
	parser := &jwt.Parser{SkipClaimsValidation: true}
	token, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(key), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	// exp 必须存在且晚于 now
	if !claims.VerifyExpiresAt(now.Unix(), true) {
		return nil, fmt.Errorf("token is expired")
	}
	if claims.AccountID == "" {
		return nil, fmt.Errorf("no account id in token")
	}
	return claims, nil
}
