package boltdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"github.com/iudanet/fieldsync/internal/client/storage"
)

// создаём тестовое BoltDB хранилище с session bucket
func createTestSessionStorage(t *testing.T) (*Storage, func()) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "session_test.db")

	ctx := context.Background()
	store, err := New(ctx, dbPath)
	require.NoError(t, err)
	require.NotNil(t, store)

	cleanup := func() {
		// Закрываем БД
		require.NoError(t, store.Close())
		require.NoError(t, os.RemoveAll(tmpDir))
	}

	return store, cleanup
}

func TestStorage_SaveGetDeleteSession(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestSessionStorage(t)
	defer cleanup()

	session := &storage.SessionData{
		ServerURL: "https://sync.example.org",
		SiteID:    "site-north",
		DeviceID:  "device-7",
		Token:     "bearer-token-value",
		ExpiresAt: time.Now().Add(time.Hour).Unix(),
	}

	// Проверяем что GetSession до сохранения выдаст ErrSessionNotFound
	_, err := store.GetSession(ctx)
	assert.ErrorIs(t, err, storage.ErrSessionNotFound)

	// Сохраняем session
	err = store.SaveSession(ctx, session)
	require.NoError(t, err)

	// Получаем session и сравниваем
	got, err := store.GetSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, session.ServerURL, got.ServerURL)
	assert.Equal(t, session.SiteID, got.SiteID)
	assert.Equal(t, session.DeviceID, got.DeviceID)
	assert.Equal(t, session.Token, got.Token)
	assert.Equal(t, session.ExpiresAt, got.ExpiresAt)

	// IsConfigured должна вернуть true (токен не просрочен)
	ok, err := store.IsConfigured(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	// Обновляем session с истекшим токеном
	session.ExpiresAt = time.Now().Add(-time.Hour).Unix()
	err = store.SaveSession(ctx, session)
	require.NoError(t, err)

	ok, err = store.IsConfigured(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// Бессрочный токен: ExpiresAt = 0
	session.ExpiresAt = 0
	err = store.SaveSession(ctx, session)
	require.NoError(t, err)

	ok, err = store.IsConfigured(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	// Удаляем session
	err = store.DeleteSession(ctx)
	require.NoError(t, err)

	// После удаления GetSession должен вернуть ErrSessionNotFound
	_, err = store.GetSession(ctx)
	assert.ErrorIs(t, err, storage.ErrSessionNotFound)

	// Удаление уже отсутствующей session возвращает ошибку
	err = store.DeleteSession(ctx)
	assert.ErrorIs(t, err, storage.ErrSessionNotFound)
}

func TestStorage_IsConfigured_NoSession(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestSessionStorage(t)
	defer cleanup()

	// Если session не существует, IsConfigured должна вернуть false, nil (не ошибку)
	ok, err := store.IsConfigured(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStorage_Session_BucketMissing(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestSessionStorage(t)
	defer cleanup()

	// Для теста удалим bucket session напрямую
	err := store.db.Update(func(tx *bbolt.Tx) error {
		return tx.DeleteBucket([]byte("session"))
	})
	assert.NoError(t, err)

	_, err = store.GetSession(ctx)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "session bucket not found")

	err = store.SaveSession(ctx, &storage.SessionData{ServerURL: "https://x"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "session bucket not found")

	err = store.DeleteSession(ctx)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "session bucket not found")
}

func TestStorage_Session_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "session_test.db")

	store, err := New(ctx, dbPath)
	require.NoError(t, err)

	session := &storage.SessionData{
		ServerURL: "https://sync.example.org",
		SiteID:    "site-north",
		DeviceID:  "device-7",
		Token:     "bearer-token-value",
	}
	require.NoError(t, store.SaveSession(ctx, session))
	require.NoError(t, store.Close())

	// Открываем заново и проверяем что session на месте
	store, err = New(ctx, dbPath)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	got, err := store.GetSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.Token, got.Token)
	assert.Equal(t, session.SiteID, got.SiteID)
}
