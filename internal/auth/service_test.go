package auth

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/daftar-erp/daftar/internal/store"
)

func newService(t *testing.T) *Service {
	t.Helper()
	st := store.New(filepath.Join(t.TempDir(), "data.json"), time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc := NewService(st, NewRepository(), nil)
	require.NoError(t, svc.EnsureCredential("changeme123"))
	return svc
}

func TestAuthenticate(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	require.NoError(t, svc.Authenticate(ctx, "admin", "changeme123"))
	require.ErrorIs(t, svc.Authenticate(ctx, "admin", "wrong"), ErrInvalidCredentials)
	require.ErrorIs(t, svc.Authenticate(ctx, "root", "changeme123"), ErrInvalidCredentials)
}

func TestEnsureCredentialIdempotent(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	// a second run must not replace the existing hash
	require.NoError(t, svc.EnsureCredential("other-password"))
	require.NoError(t, svc.Authenticate(ctx, "admin", "changeme123"))
	require.ErrorIs(t, svc.Authenticate(ctx, "admin", "other-password"), ErrInvalidCredentials)
}

func TestChangePassword(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	require.ErrorIs(t, svc.ChangePassword(ctx, "changeme123", "short"), ErrWeakPassword)
	require.ErrorIs(t, svc.ChangePassword(ctx, "wrong", "longenough123"), ErrInvalidCredentials)

	require.NoError(t, svc.ChangePassword(ctx, "changeme123", "longenough123"))
	require.NoError(t, svc.Authenticate(ctx, "admin", "longenough123"))
	require.ErrorIs(t, svc.Authenticate(ctx, "admin", "changeme123"), ErrInvalidCredentials)
}
