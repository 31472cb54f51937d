package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-with-enough-entropy"

func TestGenerateAndValidate(t *testing.T) {
	svc := NewService(testSecret, time.Hour)

	token, expiresAt, err := svc.Generate("site-1", "device-1")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "site-1", claims.SiteID)
	assert.Equal(t, "device-1", claims.DeviceID)
	assert.Equal(t, "fieldsync", claims.Issuer)
}

func TestGenerate_EmptySite(t *testing.T) {
	svc := NewService(testSecret, time.Hour)

	_, _, err := svc.Generate("", "device-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "site ID cannot be empty")
}

func TestGenerate_NoDevice(t *testing.T) {
	svc := NewService(testSecret, time.Hour)

	token, _, err := svc.Generate("site-1", "")
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "site-1", claims.SiteID)
	assert.Empty(t, claims.DeviceID)
}

func TestValidate_Expired(t *testing.T) {
	// Отрицательный TTL дает уже истекший токен
	svc := NewService(testSecret, -time.Hour)

	token, _, err := svc.Generate("site-1", "device-1")
	require.NoError(t, err)

	_, err = svc.Validate(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse token")
}

func TestValidate_WrongSecret(t *testing.T) {
	svc := NewService(testSecret, time.Hour)
	other := NewService("completely-different-secret-value", time.Hour)

	token, _, err := svc.Generate("site-1", "device-1")
	require.NoError(t, err)

	_, err = other.Validate(token)
	require.Error(t, err)
}

func TestValidate_Garbage(t *testing.T) {
	svc := NewService(testSecret, time.Hour)

	_, err := svc.Validate("not.a.token")
	require.Error(t, err)
}

func TestValidate_Tampered(t *testing.T) {
	svc := NewService(testSecret, time.Hour)

	token, _, err := svc.Generate("site-1", "device-1")
	require.NoError(t, err)

	// Порча последнего символа подписи инвалидирует токен
	tampered := token[:len(token)-2] + "xx"
	_, err = svc.Validate(tampered)
	require.Error(t, err)
}
