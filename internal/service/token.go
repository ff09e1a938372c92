package service

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dailog/backend/internal/model"
)

const (
	CategoryAccess  = "access"
	CategoryRefresh = "refresh"

	AccessTokenTTL  = 10 * time.Minute
	RefreshTokenTTL = 24 * time.Hour

	minSecretLength = 32
)

var (
	ErrTokenExpired      = errors.New("token expired")
	ErrTokenMalformed    = errors.New("token malformed")
	ErrTokenBadSignature = errors.New("token signature invalid")
	ErrTokenUnsupported  = errors.New("token unsupported")
)

// Claims - access/refresh 공용 클레임. category 로 용도를 구분
type Claims struct {
	Category    string  `json:"category"`
	Username    string  `json:"username"`
	Role        string  `json:"role"`
	OAuth2Login bool    `json:"oAuth2Login"`
	Provider    *string `json:"provider"`
	jwt.RegisteredClaims
}

func (c *Claims) ProviderName() string {
	if c.Provider == nil {
		return ""
	}
	return *c.Provider
}

// TokenCodec signs and verifies both token categories with one HMAC key.
// Callers must check Category themselves.
type TokenCodec struct {
	secret []byte
	now    func() time.Time
}

func NewTokenCodec(encodedSecret string) (*TokenCodec, error) {
	encodedSecret = strings.TrimSpace(encodedSecret)
	if encodedSecret == "" {
		return nil, fmt.Errorf("%w: JWT_SECRET is required", ErrMisconfigured)
	}

	secret, err := base64.StdEncoding.DecodeString(encodedSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: JWT_SECRET must be base64", ErrMisconfigured)
	}
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("%w: JWT_SECRET must decode to at least %d bytes", ErrMisconfigured, minSecretLength)
	}

	return &TokenCodec{secret: secret, now: time.Now}, nil
}

// Issue stamps every token with a random jti, so two tokens minted for the
// same claims within one second still differ.
func (c *TokenCodec) Issue(category, username string, role model.Role, ttl time.Duration, federated bool, provider string) (string, error) {
	now := c.now()
	claims := Claims{
		Category:    category,
		Username:    username,
		Role:        string(role),
		OAuth2Login: federated,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if provider != "" {
		claims.Provider = &provider
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// Verify checks the signature first and the expiry second, so a tampered
// token is never reported as expired.
func (c *TokenCodec) Verify(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenUnsupported
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(c.now))
	if err != nil {
		return nil, classifyTokenError(err)
	}
	return claims, nil
}

// IsExpired reports true for a well-signed token past its expiry. Any other
// decode failure is returned as an error.
func (c *TokenCodec) IsExpired(tokenStr string) (bool, error) {
	_, err := c.Verify(tokenStr)
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, ErrTokenExpired):
		return true, nil
	default:
		return false, err
	}
}

func (c *TokenCodec) Username(tokenStr string) (string, error) {
	claims, err := c.Verify(tokenStr)
	if err != nil {
		return "", err
	}
	return claims.Username, nil
}

func (c *TokenCodec) Role(tokenStr string) (string, error) {
	claims, err := c.Verify(tokenStr)
	if err != nil {
		return "", err
	}
	return claims.Role, nil
}

func (c *TokenCodec) Category(tokenStr string) (string, error) {
	claims, err := c.Verify(tokenStr)
	if err != nil {
		return "", err
	}
	return claims.Category, nil
}

func (c *TokenCodec) Federated(tokenStr string) (bool, error) {
	claims, err := c.Verify(tokenStr)
	if err != nil {
		return false, err
	}
	return claims.OAuth2Login, nil
}

func (c *TokenCodec) Provider(tokenStr string) (string, error) {
	claims, err := c.Verify(tokenStr)
	if err != nil {
		return "", err
	}
	return claims.ProviderName(), nil
}

func classifyTokenError(err error) error {
	switch {
	case errors.Is(err, ErrTokenUnsupported):
		return ErrTokenUnsupported
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrTokenBadSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	default:
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
}
