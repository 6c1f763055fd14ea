// Package auth verifies bearer tokens for the GridWatch API. Two verifier
// implementations exist: IntrospectionVerifier posts tokens to an external
// identity provider behind a circuit breaker and caches verdicts in-process,
// and StaticVerifier accepts a single configured token for local and demo
// use. The config loader refuses static mode for APP_ENV=prod, so the demo
// path can never reach production.
package auth

import (
	"log/slog"

	"gridwatch/internal/config"
	"gridwatch/internal/core"
	"gridwatch/internal/types"
)

// NewVerifier builds the Authenticator selected by the auth config.
func NewVerifier(cfg config.AuthConfig, logger *slog.Logger) core.Authenticator {
	if cfg.Mode == config.AuthModeStatic {
		return NewStaticVerifier(cfg.StaticToken, types.UserRole(cfg.StaticRole), logger)
	}
	return NewIntrospectionVerifier(cfg, logger)
}
