package api

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Capabilities every API token needs.
const (
	CapManageOptions = "manage_options"
	CapUploadFiles   = "upload_files"
)

const claimsKey = "muc.claims"

// Claims is the JWT payload.
type Claims struct {
	Capabilities []string `json:"caps"`
	jwt.RegisteredClaims
}

func (c *Claims) Can(capability string) bool {
	return slices.Contains(c.Capabilities, capability)
}

// IssueToken signs a token for subject. A zero ttl produces a token
// without expiry.
func IssueToken(secret, subject string, capabilities []string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("api secret is not configured")
	}

	now := time.Now()
	claims := Claims{
		Capabilities: capabilities,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  subject,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func parseToken(c *gin.Context, secret []byte) (*Claims, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return nil, errors.New("missing bearer token")
	}

	tokenString, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || tokenString == "" {
		return nil, errors.New("malformed authorization header")
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// Authorize rejects requests without a valid token (401) and tokens missing
// one of the capabilities (403).
func Authorize(secret string, capabilities ...string) gin.HandlerFunc {
	key := []byte(secret)

	return func(c *gin.Context) {
		claims, err := parseToken(c, key)
		if err != nil {
			failure(c, NewAPIError(CodeUnauthorized, err.Error(), WithStatus(http.StatusUnauthorized)))
			return
		}

		for _, capability := range capabilities {
			if !claims.Can(capability) {
				failure(c, NewAPIError(CodeForbidden, "missing capability "+capability, WithStatus(http.StatusForbidden)))
				return
			}
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

func actor(c *gin.Context) string {
	if v, ok := c.Get(claimsKey); ok {
		if claims, ok := v.(*Claims); ok && claims.Subject != "" {
			return "api:" + claims.Subject
		}
	}
	return "api"
}
