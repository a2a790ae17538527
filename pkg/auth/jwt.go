package auth

import (
	"errors"
	"fmt"
	"time"

	"locallibrary/pkg/access"
	"locallibrary/pkg/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrMissingUser  = errors.New("missing username in claims")
)

// Claims is the payload of a catalog bearer token.
type Claims struct {
	jwt.RegisteredClaims
	Username    string   `json:"username"`
	Permissions []string `json:"permissions,omitempty"`
}

// Identity converts the claims into the caller identity used for access checks.
func (c *Claims) Identity() access.Identity {
	caps := make([]access.Capability, len(c.Permissions))
	for i, p := range c.Permissions {
		caps[i] = access.Capability(p)
	}
	return access.Identity{Username: c.Username, Capabilities: caps}
}

// Service signs and verifies HS256 tokens.
type Service struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewService(cfg config.JWTConfig) *Service {
	return &Service{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    cfg.TTL,
		now:    time.Now,
	}
}

// Issue signs a token for who, valid for the configured TTL.
func (s *Service) Issue(who access.Identity) (string, time.Time, error) {
	if !who.Authenticated() {
		return "", time.Time{}, ErrMissingUser
	}
	now := s.now()
	expiresAt := now.Add(s.ttl)
	perms := make([]string, len(who.Capabilities))
	for i, c := range who.Capabilities {
		perms[i] = string(c)
	}
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   who.Username,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Username:    who.Username,
		Permissions: perms,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse verifies the signature, issuer and lifetime of tokenString.
func (s *Service) Parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Username == "" {
		return nil, ErrMissingUser
	}
	return claims, nil
}
