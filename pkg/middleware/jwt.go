package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// tokenIssuer は送信者トークンの発行者名。
const tokenIssuer = "pushhub"

// contextKeySender は検証済みの送信者名をGinコンテキストに格納するキー。
const contextKeySender = "sender"

// SenderClaims は通知送信を許可するトークンのクレーム。
type SenderClaims struct {
	jwt.RegisteredClaims
}

// GenerateJWT は送信者名を subject とするHS256トークンを生成する。
// ttlが0以下の場合は24時間有効とする。
func GenerateJWT(secret, sender string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	now := time.Now()
	claims := SenderClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sender,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("JWTトークンの署名に失敗: %w", err)
	}
	return signed, nil
}

// JWTAuth は送信者トークンを検証するGinミドルウェアを返す。
// 検証に成功した場合、コンテキストに "sender" を設定する。
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorizationヘッダーが必要です",
			})
			return
		}

		tokenString, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Bearer トークン形式が不正です",
			})
			return
		}

		claims := &SenderClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(tokenIssuer))
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "トークンが無効です",
			})
			return
		}

		c.Set(contextKeySender, claims.Subject)
		c.Next()
	}
}

// GetSender はGinコンテキストから送信者名を取得する。
// JWTAuthミドルウェアが適用されていない場合は空文字列を返す。
func GetSender(c *gin.Context) string {
	sender, _ := c.Get(contextKeySender)
	if s, ok := sender.(string); ok {
		return s
	}
	return ""
}
