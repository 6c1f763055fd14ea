package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridwatch/internal/config"
	"gridwatch/internal/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStaticVerifier_Match(t *testing.T) {
	v := NewStaticVerifier(types.SecretString("demo-token"), types.RoleAdmin, discardLogger())

	actor, err := v.VerifyToken(context.Background(), "demo-token")

	require.NoError(t, err)
	assert.Equal(t, "usr_static", actor.ID)
	assert.Equal(t, "demo", actor.Name)
	assert.Equal(t, types.ActorTypeUser, actor.Type)
	assert.Equal(t, types.RoleAdmin, actor.Role)
}

func TestStaticVerifier_Mismatch(t *testing.T) {
	v := NewStaticVerifier(types.SecretString("demo-token"), types.RoleAdmin, discardLogger())

	_, err := v.VerifyToken(context.Background(), "wrong-token")

	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeAuthTokenInvalid, appErr.Code)
}

func TestStaticVerifier_EmptyConfiguredToken(t *testing.T) {
	v := NewStaticVerifier(types.SecretString(""), types.RoleAdmin, discardLogger())

	_, err := v.VerifyToken(context.Background(), "")

	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeAuthTokenInvalid, appErr.Code)
}

func TestStaticVerifier_UnknownRoleFallsBackToOperator(t *testing.T) {
	v := NewStaticVerifier(types.SecretString("demo-token"), types.UserRole("superuser"), discardLogger())

	actor, err := v.VerifyToken(context.Background(), "demo-token")

	require.NoError(t, err)
	assert.Equal(t, types.RoleOperator, actor.Role)
}

func TestNewVerifier_SelectsByMode(t *testing.T) {
	static := NewVerifier(config.AuthConfig{
		Mode:        config.AuthModeStatic,
		StaticToken: types.SecretString("demo-token"),
		StaticRole:  "admin",
	}, discardLogger())
	_, ok := static.(*StaticVerifier)
	assert.True(t, ok)

	introspect := NewVerifier(config.AuthConfig{
		Mode:          config.AuthModeIntrospect,
		IntrospectURL: "http://localhost:9999/introspect",
	}, discardLogger())
	_, ok = introspect.(*IntrospectionVerifier)
	assert.True(t, ok)
}
