package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/iudanet/fieldsync/internal/client/connectivity"
	"github.com/iudanet/fieldsync/internal/client/sync"
)

// Интервалы по умолчанию для фонового режима
const (
	defaultSyncInterval  = time.Minute
	defaultProbeInterval = 15 * time.Second
)

// TokenSource выдаёт действующий токен устройства для цикла синхронизации
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Config настраивает расписание оркестратора
type Config struct {
	SyncInterval  time.Duration // период фоновых циклов
	ProbeInterval time.Duration // период опроса доступности сервера
}

// CycleStatus - итог последнего цикла для инспекции
type CycleStatus struct {
	Result     *sync.CycleResult // счётчики цикла, nil если цикл не дошёл до движка
	Err        error             // ошибка цикла, nil при успехе
	StartedAt  time.Time
	FinishedAt time.Time
}

// Orchestrator владеет единственной фоновой горутиной, которая запускает
// циклы синхронизации по таймеру, по восстановлению связи и по ручному
// запросу. Ошибки цикла не покидают горутину: каждый цикл сворачивается
// в CycleStatus, доступный через Last.
type Orchestrator struct {
	syncer sync.Service
	probe  connectivity.Probe
	tokens TokenSource
	logger *slog.Logger

	syncInterval  time.Duration
	probeInterval time.Duration

	trigger chan struct{} // буфер на один запрос: лишние коалесцируются
	stop    chan struct{}
	done    chan struct{}

	started atomic.Bool
	stopped atomic.Bool
	last    atomic.Pointer[CycleStatus]
}

// New создает оркестратор. Нулевые интервалы заменяются значениями
// по умолчанию.
func New(syncer sync.Service, probe connectivity.Probe, tokens TokenSource, cfg Config, logger *slog.Logger) *Orchestrator {
	if cfg.SyncInterval <= 0 {
		cfg.SyncInterval = defaultSyncInterval
	}
	if cfg.ProbeInterval <= 0 {
		cfg.ProbeInterval = defaultProbeInterval
	}

	return &Orchestrator{
		syncer:        syncer,
		probe:         probe,
		tokens:        tokens,
		logger:        logger,
		syncInterval:  cfg.SyncInterval,
		probeInterval: cfg.ProbeInterval,
		trigger:       make(chan struct{}, 1),
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Start запускает фоновую горутину. Повторный вызов ничего не делает.
func (o *Orchestrator) Start(ctx context.Context) {
	if !o.started.CompareAndSwap(false, true) {
		return
	}
	go o.run(ctx)
}

// Stop останавливает оркестратор и дожидается завершения горутины.
// Текущий цикл прерывается на ближайшей контрольной точке, уже
// отправленный батч доезжает до конца.
func (o *Orchestrator) Stop() {
	if !o.started.Load() {
		return
	}
	if o.stopped.CompareAndSwap(false, true) {
		close(o.stop)
	}
	<-o.done
}

// TriggerSync запрашивает внеочередной цикл. Запрос во время работающего
// цикла не теряется: новый цикл стартует сразу после текущего. Повторные
// запросы коалесцируются в один.
func (o *Orchestrator) TriggerSync() {
	select {
	case o.trigger <- struct{}{}:
	default:
		// цикл уже запрошен
	}
}

// Last возвращает итог последнего завершённого цикла, nil если циклов не было
func (o *Orchestrator) Last() *CycleStatus {
	return o.last.Load()
}

func (o *Orchestrator) run(ctx context.Context) {
	defer close(o.done)

	// Stop транслируется в отмену контекста цикла
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-o.stop:
			cancel()
		case <-runCtx.Done():
		}
	}()

	syncTicker := time.NewTicker(o.syncInterval)
	defer syncTicker.Stop()
	probeTicker := time.NewTicker(o.probeInterval)
	defer probeTicker.Stop()

	// Стартовый цикл, если сервер уже доступен
	wasReachable := o.probe.Reachable(runCtx)
	if wasReachable {
		o.runCycle(runCtx)
	}

	for {
		select {
		case <-runCtx.Done():
			return
		case <-o.trigger:
			o.runCycle(runCtx)
		case <-syncTicker.C:
			o.runCycle(runCtx)
		case <-probeTicker.C:
			reachable := o.probe.Reachable(runCtx)
			if reachable && !wasReachable {
				// связь восстановилась, не ждём таймера
				o.logger.Info("Connectivity regained, starting sync cycle")
				o.runCycle(runCtx)
			}
			wasReachable = reachable
		}
	}
}

// runCycle выполняет один цикл и сохраняет его итог
func (o *Orchestrator) runCycle(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	status := &CycleStatus{StartedAt: time.Now()}

	token, err := o.tokens.Token(ctx)
	if err != nil {
		status.Err = fmt.Errorf("failed to load device token: %w", err)
	} else {
		status.Result, status.Err = o.syncer.Sync(ctx, token)
	}

	status.FinishedAt = time.Now()
	o.last.Store(status)

	if status.Err != nil {
		o.logger.Warn("Sync cycle finished with error", "error", status.Err)
	}
}
