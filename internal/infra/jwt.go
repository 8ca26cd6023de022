// README: HS256 JWT token verifier used when no Firebase project is configured (local and staff tooling).
package infra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type jwtVerifier struct {
	secret []byte
}

// NewJWTVerifier returns a TokenVerifier accepting HS256 tokens with `sub` and optional `role` claims.
func NewJWTVerifier(secret string) TokenVerifier {
	return &jwtVerifier{secret: []byte(secret)}
}

func (v *jwtVerifier) VerifyIDToken(_ context.Context, idToken string) (*VerifiedToken, error) {
	tok, err := jwt.Parse(idToken, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid claims")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, errors.New("missing subject")
	}
	out := make(map[string]interface{}, len(claims))
	for k, val := range claims {
		out[k] = val
	}
	return &VerifiedToken{UID: sub, Claims: out}, nil
}

// IssueJWT signs a token for uid with the given role; used by the CLI and tests.
func IssueJWT(secret, uid, role string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub": uid,
		"exp": time.Now().Add(ttl).Unix(),
	}
	if role != "" {
		claims["role"] = role
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return s, nil
}
