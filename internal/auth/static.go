package auth

import (
	"context"
	"crypto/subtle"
	"log/slog"

	"gridwatch/internal/types"
)

// StaticVerifier accepts exactly one configured token and maps it to a fixed
// demo actor. Intended for local development and demos only; the config
// loader rejects static mode when APP_ENV=prod.
type StaticVerifier struct {
	token  types.SecretString
	role   types.UserRole
	logger *slog.Logger
}

// NewStaticVerifier creates a StaticVerifier for the given token and role.
// An empty or unknown role falls back to operator.
func NewStaticVerifier(token types.SecretString, role types.UserRole, logger *slog.Logger) *StaticVerifier {
	if role != types.RoleAdmin && role != types.RoleOperator {
		role = types.RoleOperator
	}
	return &StaticVerifier{
		token:  token,
		role:   role,
		logger: logger,
	}
}

// VerifyToken compares the presented token against the configured one in
// constant time and returns the demo actor on match.
func (v *StaticVerifier) VerifyToken(ctx context.Context, token string) (*types.Actor, error) {
	configured := v.token.Unmask()
	if configured == "" {
		return nil, types.NewAppError(types.ErrCodeAuthTokenInvalid, "static token is not configured", nil)
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(configured)) != 1 {
		return nil, types.NewAppError(types.ErrCodeAuthTokenInvalid, "invalid token", nil)
	}

	return &types.Actor{
		ID:   "usr_static",
		Name: "demo",
		Type: types.ActorTypeUser,
		Role: v.role,
	}, nil
}
