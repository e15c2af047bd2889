package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingToken = errors.New("missing authorization token")
	ErrMissingClaim = errors.New("token has no tenant_id claim")
)

const issuer = "go-pos-terminal"

// Claims identifies the tenant and terminal a POS session acts for
type Claims struct {
	TenantID   string `json:"tenant_id"`
	TerminalID string `json:"terminal_id"`
	Operator   string `json:"operator,omitempty"`
	jwt.RegisteredClaims
}

// GenerateToken signs a terminal token valid for ttl
func GenerateToken(secret []byte, tenantID, terminalID, operator string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		TenantID:   tenantID,
		TerminalID: terminalID,
		Operator:   operator,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ValidateToken parses and validates a terminal token
func ValidateToken(secret []byte, tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TenantID == "" {
		return nil, ErrMissingClaim
	}
	return claims, nil
}
