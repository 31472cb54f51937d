package auth

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/fieldsync/internal/client/storage"
	"github.com/iudanet/fieldsync/internal/client/storage/boltdb"
)

func setupService(t *testing.T) (Service, *boltdb.Storage) {
	t.Helper()

	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "session.db")

	store, err := boltdb.New(ctx, dbPath)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})

	return NewService(store), store
}

func validParams() ConfigureParams {
	return ConfigureParams{
		ServerURL: "https://sync.example.com",
		SiteID:    "site-42",
		Token:     "device-token-abc",
	}
}

func TestService_Configure(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	session, err := svc.Configure(ctx, validParams())
	require.NoError(t, err)

	assert.Equal(t, "https://sync.example.com", session.ServerURL)
	assert.Equal(t, "site-42", session.SiteID)
	assert.Equal(t, "device-token-abc", session.Token)
	assert.Equal(t, int64(0), session.ExpiresAt)

	// идентификатор устройства генерируется автоматически
	_, err = uuid.Parse(session.DeviceID)
	require.NoError(t, err)

	configured, err := svc.IsConfigured(ctx)
	require.NoError(t, err)
	assert.True(t, configured)

	stored, err := svc.Session(ctx)
	require.NoError(t, err)
	assert.Equal(t, session, stored)
}

func TestService_Configure_TrimsTrailingSlash(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	params := validParams()
	params.ServerURL = "http://localhost:8080/"

	session, err := svc.Configure(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", session.ServerURL)
}

func TestService_Configure_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ConfigureParams)
		wantErr string
	}{
		{
			name:    "empty server URL",
			mutate:  func(p *ConfigureParams) { p.ServerURL = "" },
			wantErr: "server URL cannot be empty",
		},
		{
			name:    "unsupported scheme",
			mutate:  func(p *ConfigureParams) { p.ServerURL = "ftp://example.com" },
			wantErr: "http or https",
		},
		{
			name:    "missing host",
			mutate:  func(p *ConfigureParams) { p.ServerURL = "http://" },
			wantErr: "must include a host",
		},
		{
			name:    "empty site ID",
			mutate:  func(p *ConfigureParams) { p.SiteID = "" },
			wantErr: "site ID cannot be empty",
		},
		{
			name:    "empty token",
			mutate:  func(p *ConfigureParams) { p.Token = "" },
			wantErr: "token cannot be empty",
		},
		{
			name:    "negative expiry",
			mutate:  func(p *ConfigureParams) { p.ExpiresAt = -1 },
			wantErr: "cannot be negative",
		},
		{
			name:    "expiry in the past",
			mutate:  func(p *ConfigureParams) { p.ExpiresAt = time.Now().Add(-time.Hour).Unix() },
			wantErr: "already expired",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			svc, _ := setupService(t)

			params := validParams()
			tt.mutate(&params)

			_, err := svc.Configure(ctx, params)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)

			configured, err := svc.IsConfigured(ctx)
			require.NoError(t, err)
			assert.False(t, configured)
		})
	}
}

func TestService_Configure_PreservesDeviceID(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	first, err := svc.Configure(ctx, validParams())
	require.NoError(t, err)

	// перенастройка с новым токеном сохраняет идентичность устройства
	params := validParams()
	params.Token = "rotated-token"

	second, err := svc.Configure(ctx, params)
	require.NoError(t, err)

	assert.Equal(t, first.DeviceID, second.DeviceID)
	assert.Equal(t, "rotated-token", second.Token)
}

func TestService_Token(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	_, err := svc.Configure(ctx, validParams())
	require.NoError(t, err)

	token, err := svc.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "device-token-abc", token)
}

func TestService_Token_NotConfigured(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	_, err := svc.Token(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrSessionNotFound)
	assert.Contains(t, err.Error(), "not configured")
}

func TestService_Token_Expired(t *testing.T) {
	ctx := context.Background()
	svc, store := setupService(t)

	// просроченную сессию пишем напрямую, Configure такую не пропустит
	err := store.SaveSession(ctx, &storage.SessionData{
		ServerURL: "https://sync.example.com",
		SiteID:    "site-42",
		DeviceID:  uuid.New().String(),
		Token:     "stale-token",
		ExpiresAt: time.Now().Add(-time.Minute).Unix(),
	})
	require.NoError(t, err)

	_, err = svc.Token(ctx)
	assert.ErrorIs(t, err, ErrTokenExpired)

	configured, err := svc.IsConfigured(ctx)
	require.NoError(t, err)
	assert.False(t, configured)
}

func TestService_Reset(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	_, err := svc.Configure(ctx, validParams())
	require.NoError(t, err)

	require.NoError(t, svc.Reset(ctx))

	configured, err := svc.IsConfigured(ctx)
	require.NoError(t, err)
	assert.False(t, configured)

	_, err = svc.Session(ctx)
	assert.ErrorIs(t, err, storage.ErrSessionNotFound)

	// повторный сброс не ошибка
	require.NoError(t, svc.Reset(ctx))
}
