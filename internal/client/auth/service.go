package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/fieldsync/internal/client/storage"
)

//go:generate moq -out service_mock.go . Service

// ErrTokenExpired возвращается, когда срок действия настроенного токена
// истёк. Синхронизация останавливается до перенастройки устройства.
var ErrTokenExpired = errors.New("device token expired")

// ConfigureParams описывает данные подключения устройства к серверу
type ConfigureParams struct {
	ServerURL string // базовый адрес сервера синхронизации
	SiteID    string // площадка, к которой привязан токен
	Token     string // выданный сервером bearer токен
	ExpiresAt int64  // unix seconds, 0 означает бессрочный токен
}

// Service manages the provisioned device session: the server address,
// the site scope and the bearer token attached to every sync call.
type Service interface {
	// Configure validates and stores the device session.
	// The device ID is generated on first configure and survives reconfiguration.
	Configure(ctx context.Context, params ConfigureParams) (*storage.SessionData, error)

	// Session returns the stored device session.
	// Returns storage.ErrSessionNotFound if the device was never configured.
	Session(ctx context.Context) (*storage.SessionData, error)

	// Token returns the bearer token for sync calls.
	// Returns ErrTokenExpired when the stored token is past its expiry.
	Token(ctx context.Context) (string, error)

	// Reset removes the stored device session. Resetting an
	// unconfigured device is not an error.
	Reset(ctx context.Context) error

	// IsConfigured reports whether a non-expired session exists.
	IsConfigured(ctx context.Context) (bool, error)
}

type service struct {
	sessions storage.SessionStorage
}

// NewService создает сервис управления сессией устройства
func NewService(sessions storage.SessionStorage) Service {
	return &service{sessions: sessions}
}

// Configure проверяет и сохраняет параметры подключения
func (s *service) Configure(ctx context.Context, params ConfigureParams) (*storage.SessionData, error) {
	serverURL, err := normalizeServerURL(params.ServerURL)
	if err != nil {
		return nil, err
	}
	if params.SiteID == "" {
		return nil, fmt.Errorf("site ID cannot be empty")
	}
	if params.Token == "" {
		return nil, fmt.Errorf("token cannot be empty")
	}
	if params.ExpiresAt < 0 {
		return nil, fmt.Errorf("token expiry cannot be negative")
	}
	if params.ExpiresAt > 0 && params.ExpiresAt <= time.Now().Unix() {
		return nil, fmt.Errorf("token is already expired")
	}

	// Идентификатор устройства переживает перенастройку: локальные данные
	// и очередь изменений остаются привязаны к этому устройству
	deviceID, err := s.deviceID(ctx)
	if err != nil {
		return nil, err
	}

	session := &storage.SessionData{
		ServerURL: serverURL,
		SiteID:    params.SiteID,
		DeviceID:  deviceID,
		Token:     params.Token,
		ExpiresAt: params.ExpiresAt,
	}

	if err := s.sessions.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// Session возвращает сохраненную сессию
func (s *service) Session(ctx context.Context) (*storage.SessionData, error) {
	return s.sessions.GetSession(ctx)
}

// Token возвращает токен для вызовов синхронизации
func (s *service) Token(ctx context.Context) (string, error) {
	session, err := s.sessions.GetSession(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			return "", fmt.Errorf("device is not configured: %w", err)
		}
		return "", fmt.Errorf("failed to load session: %w", err)
	}

	if session.ExpiresAt > 0 && time.Now().Unix() >= session.ExpiresAt {
		return "", ErrTokenExpired
	}

	return session.Token, nil
}

// Reset удаляет сохраненную сессию
func (s *service) Reset(ctx context.Context) error {
	err := s.sessions.DeleteSession(ctx)
	if err != nil && !errors.Is(err, storage.ErrSessionNotFound) {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// IsConfigured проверяет наличие действующей сессии
func (s *service) IsConfigured(ctx context.Context) (bool, error) {
	return s.sessions.IsConfigured(ctx)
}

// deviceID возвращает идентификатор из текущей сессии или генерирует новый
func (s *service) deviceID(ctx context.Context) (string, error) {
	session, err := s.sessions.GetSession(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			return uuid.New().String(), nil
		}
		return "", fmt.Errorf("failed to load session: %w", err)
	}
	if session.DeviceID == "" {
		return uuid.New().String(), nil
	}
	return session.DeviceID, nil
}

// normalizeServerURL проверяет адрес сервера и убирает хвостовой слеш,
// пути запросов приклеиваются к адресу как есть
func normalizeServerURL(raw string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("server URL cannot be empty")
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("server URL must use http or https scheme")
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("server URL must include a host")
	}

	return strings.TrimRight(raw, "/"), nil
}
