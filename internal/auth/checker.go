package auth

import "context"

// TokenChecker is what the auth middleware needs from the auth service.
type TokenChecker interface {
	VerifyToken(ctx context.Context, token string) (*Claims, error)
}
