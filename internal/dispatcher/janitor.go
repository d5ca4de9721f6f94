package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/Courier/internal/domain"
	"github.com/shaiso/Courier/internal/lock"
	"github.com/shaiso/Courier/internal/telemetry"
)

// JanitorLockName — имя lease-блокировки janitor-потока.
const JanitorLockName = "courier.janitor"

// Counter — подсчёт сообщений по статусам. Реализуется repo.MessageRepo.
type Counter interface {
	CountByStatus(ctx context.Context) (map[domain.MessageStatus]int, error)
}

// Janitor — вспомогательный цикл того же семейства, что и диспетчер,
// но на своей, более редкой каденции (обычно раз в 30 минут).
// Обновляет gauge-метрики глубины очереди и подсвечивает накопившиеся
// финальные ошибки.
type Janitor struct {
	counter  Counter
	locker   lock.Locker
	logger   *slog.Logger
	lockWait time.Duration
}

// NewJanitor создаёт новый Janitor.
func NewJanitor(counter Counter, locker lock.Locker, logger *slog.Logger) *Janitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Janitor{
		counter:  counter,
		locker:   locker,
		logger:   logger,
		lockWait: defaultLockWait,
	}
}

// Tick выполняет один janitor-цикл.
func (j *Janitor) Tick(ctx context.Context) error {
	acquired, err := j.locker.TryAcquire(ctx, JanitorLockName, j.lockWait)
	if err != nil {
		return fmt.Errorf("acquire lease: %w", err)
	}
	if !acquired {
		j.logger.Debug("lease busy, skipping cycle", "lock", JanitorLockName)
		return nil
	}
	defer func() {
		if err := j.locker.Release(ctx, JanitorLockName); err != nil {
			j.logger.Warn("failed to release lease", "lock", JanitorLockName, "error", err)
		}
	}()

	counts, err := j.counter.CountByStatus(ctx)
	if err != nil {
		return fmt.Errorf("count messages: %w", err)
	}

	// Отсутствующий статус — это ноль, gauge надо сбросить явно.
	statuses := []domain.MessageStatus{
		domain.StatusPending,
		domain.StatusProcessing,
		domain.StatusSent,
		domain.StatusError,
	}
	for _, s := range statuses {
		telemetry.QueueDepth.WithLabelValues(string(s)).Set(float64(counts[s]))
	}

	if errCount := counts[domain.StatusError]; errCount > 0 {
		j.logger.Warn("messages in terminal error state", "count", errCount)
	}

	j.logger.Debug("janitor cycle completed",
		"pending", counts[domain.StatusPending],
		"processing", counts[domain.StatusProcessing],
		"sent", counts[domain.StatusSent],
		"error", counts[domain.StatusError],
	)

	return nil
}
