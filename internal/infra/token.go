// README: Verified bearer-token data shared by the Firebase and JWT verifiers.
package infra

import "context"

// VerifiedToken holds the identity extracted from a bearer token.
type VerifiedToken struct {
	UID    string
	Claims map[string]interface{}
}

// Role returns the `role` custom claim, or "" when absent.
func (t *VerifiedToken) Role() string {
	if t == nil || t.Claims == nil {
		return ""
	}
	role, _ := t.Claims["role"].(string)
	return role
}

// TokenVerifier verifies a raw bearer token string and returns its identity.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*VerifiedToken, error)
}
