package connectivity

import (
	"context"
	"log/slog"
	"time"
)

//go:generate moq -out probe_mock.go . Probe

// probeTimeout ограничивает один опрос: недоступность должна
// обнаруживаться быстро, не дожидаясь таймаута транспорта
const probeTimeout = 3 * time.Second

// Probe определяет интерфейс проверки доступности сервера
type Probe interface {
	// Reachable сообщает, доступен ли сервер прямо сейчас
	Reachable(ctx context.Context) bool
}

// HealthChecker - часть API клиента, нужная пробе
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthProbe опрашивает healthcheck сервера с коротким таймаутом.
// Оркестратор использует переход недоступен -> доступен как триггер
// внеочередного цикла синхронизации.
type HealthProbe struct {
	client HealthChecker
	logger *slog.Logger
}

// NewHealthProbe создает пробу доступности поверх API клиента
func NewHealthProbe(client HealthChecker, logger *slog.Logger) *HealthProbe {
	return &HealthProbe{
		client: client,
		logger: logger,
	}
}

// Reachable сообщает, отвечает ли сервер на healthcheck
func (p *HealthProbe) Reachable(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	if err := p.client.Health(probeCtx); err != nil {
		p.logger.Debug("Server is unreachable", "error", err)
		return false
	}
	return true
}
