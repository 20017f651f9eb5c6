package service

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/siscuentas/radicados-api/internal/models"
	"github.com/siscuentas/radicados-api/pkg/config"
	appErrors "github.com/siscuentas/radicados-api/pkg/errors"
)

// TokenService validates bearer tokens issued by the identity provider.
// The API never issues credentials; it only verifies the HS256 signature
// and extracts the caller's identity and role.
type TokenService struct {
	secret   []byte
	issuer   string
	audience []string
}

type tokenClaims struct {
	FullName string `json:"name"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// NewTokenService constructs the validator from the JWT configuration.
func NewTokenService(cfg config.JWTConfig) *TokenService {
	return &TokenService{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
	}
}

// Validate parses and verifies a bearer token, returning the caller claims.
func (s *TokenService) Validate(tokenString string) (*models.JWTClaims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, appErrors.ErrUnauthorized
	}

	parsed := &tokenClaims{}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	for _, aud := range s.audience {
		opts = append(opts, jwt.WithAudience(aud))
	}

	_, err := jwt.ParseWithClaims(tokenString, parsed, func(token *jwt.Token) (interface{}, error) {
		if len(s.secret) == 0 {
			return nil, fmt.Errorf("jwt secret not configured")
		}
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	if parsed.Subject == "" || parsed.Role == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token is missing identity claims")
	}

	return &models.JWTClaims{
		UserID:   parsed.Subject,
		FullName: parsed.FullName,
		Role:     models.UserRole(parsed.Role),
	}, nil
}
