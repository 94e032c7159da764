package util

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Claims struct {
	VisitorID string `json:"vid"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateToken 签发游客 token（HS256）
func GenerateToken(secret, visitorID string, ttl time.Duration, now time.Time) (string, error) {
	claims := &Claims{
		VisitorID: visitorID,
		Role:      "guest",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)), // Token过期时间
			IssuedAt:  jwt.NewNumericDate(now),          // Token签发时间
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken 验证 Token 的签名并提取自定义声明
func ParseToken(secret, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.VisitorID == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// ExtractToken 从 Authorization 头中取出 Bearer token
func ExtractToken(authHeader string) string {
	parts := strings.SplitN(strings.TrimSpace(authHeader), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}
