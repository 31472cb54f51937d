package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/iudanet/fieldsync/pkg/api"
)

//go:generate moq -out client_mock.go . APIClient

// APIClient определяет интерфейс вызовов к серверу синхронизации
type APIClient interface {
	// PushChanges отправляет пакет изменений. Ошибка означает, что ни один
	// результат не получен, судьба записей решается по записям из Results.
	PushChanges(ctx context.Context, token string, req api.PushRequest) (*api.PushResponse, error)

	// PullChanges запрашивает серверные сущности типа entityType с
	// updated_at строго больше since
	PullChanges(ctx context.Context, token, entityType string, since int64) (*api.PullResponse, error)

	// Health проверяет доступность сервера
	Health(ctx context.Context) error
}

const (
	clientTimeout = 30 * time.Second

	// Параметры повторов pull-запросов: pull безопасен для повторения,
	// push повторяется только через очередь
	pullRetryBase = 500 * time.Millisecond
	pullRetryMax  = 2
)

// StatusError описывает ответ сервера с не-2xx кодом
type StatusError struct {
	Reason string // текст из ErrorResponse либо сырое тело
	Status int    // HTTP код ответа
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.Status, e.Reason)
}

// IsUnauthorized reports whether err is a 401/403 response: the credential
// is rejected and the whole sync cycle must be aborted.
func IsUnauthorized(err error) bool {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		return false
	}
	return statusErr.Status == http.StatusUnauthorized || statusErr.Status == http.StatusForbidden
}

// IsRetryable reports whether err is worth retrying: network failures and
// 5xx/429 responses.
func IsRetryable(err error) bool {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		// Ошибка транспорта без ответа сервера
		return true
	}
	return statusErr.Status >= http.StatusInternalServerError || statusErr.Status == http.StatusTooManyRequests
}

// Client представляет HTTP клиент для взаимодействия с сервером
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient создает новый API клиент
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: clientTimeout,
			// Настройка обработки редиректов
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Ограничиваем количество редиректов
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// Копируем заголовки Authorization при редиректе
				if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
					req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
				}
				return nil
			},
		},
	}
}

// PushChanges отправляет пакет изменений на сервер
func (c *Client) PushChanges(ctx context.Context, token string, req api.PushRequest) (*api.PushResponse, error) {
	var resp api.PushResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/changes:push", token, req, &resp); err != nil {
		return nil, fmt.Errorf("push request failed: %w", err)
	}
	return &resp, nil
}

// PullChanges запрашивает изменения с сервера. Временные сбои повторяются
// внутри вызова: pull идемпотентен по построению.
func (c *Client) PullChanges(ctx context.Context, token, entityType string, since int64) (*api.PullResponse, error) {
	var resp api.PullResponse
	path := fmt.Sprintf("/api/v1/changes:pull?entity_type=%s&since=%d", url.QueryEscape(entityType), since)

	backoff := retry.WithMaxRetries(pullRetryMax, retry.NewExponential(pullRetryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := c.doRequest(ctx, http.MethodGet, path, token, nil, &resp); err != nil {
			if IsRetryable(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("pull request failed: %w", err)
	}

	return &resp, nil
}

// Health проверяет доступность сервера
func (c *Client) Health(ctx context.Context) error {
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/health", "", nil, nil); err != nil {
		return fmt.Errorf("health request failed: %w", err)
	}
	return nil
}

// doRequest выполняет HTTP запрос
func (c *Client) doRequest(ctx context.Context, method, path, token string, body, result interface{}) error {
	url := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// Читаем тело ответа
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	// Проверяем статус код
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		reason := string(respBody)
		var errResp api.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != "" {
			reason = errResp.Error
			if errResp.Message != "" {
				reason += ": " + errResp.Message
			}
		}
		return &StatusError{Status: resp.StatusCode, Reason: reason}
	}

	// Декодируем успешный ответ
	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
