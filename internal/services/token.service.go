package services

import (
	"errors"
	"fmt"
	"time"

	"avroviewer/config"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/golang-jwt/jwt/v5"
)

const TOKEN_ISSUER = "avroviewer"

var ErrInvalidToken = errors.New("invalid token")

// TokenService validates HS256 bearer tokens signed with JWT_SECRET. With no
// secret configured every check passes and the API is open.
type TokenService struct {
	secret []byte
	log    logger.Logger
}

func NewTokenService(config config.Config) *TokenService {
	return &TokenService{
		secret: []byte(config.JWTSecret),
		log:    logger.New("tokenService"),
	}
}

func (s *TokenService) Enabled() bool {
	return len(s.secret) > 0
}

// Validate parses the token and returns its subject claim.
func (s *TokenService) Validate(tokenString string) (string, error) {
	log := s.log.Function("Validate")

	if !s.Enabled() {
		return "", nil
	}

	token, err := jwt.ParseWithClaims(
		tokenString,
		&jwt.RegisteredClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithIssuer(TOKEN_ISSUER),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		log.Debug("token rejected", "error", err)
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return claims.Subject, nil
}

// Issue signs a token for subject valid for ttl.
func (s *TokenService) Issue(subject string, ttl time.Duration) (string, error) {
	log := s.log.Function("Issue")

	if !s.Enabled() {
		return "", log.ErrMsg("cannot issue tokens without a secret")
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    TOKEN_ISSUER,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", log.Err("failed to sign token", err, "subject", subject)
	}

	return signed, nil
}
