package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/shaiso/Courier/internal/domain"
	"github.com/shaiso/Courier/internal/gateway"
	"github.com/shaiso/Courier/internal/lock"
	"github.com/shaiso/Courier/internal/mq"
	"github.com/shaiso/Courier/internal/repo"
	"github.com/shaiso/Courier/internal/telemetry"
)

// Default configuration values.
const (
	defaultBatchSize    = 100
	defaultSendTimeout  = 45 * time.Second
	defaultSendInterval = 5 * time.Second
	defaultStaleAfter   = 10 * time.Minute
	defaultLockWait     = time.Second

	// LockName — имя lease-блокировки потока диспетчеризации.
	// Другие планировщики системы используют свои имена и не мешают.
	LockName = "courier.dispatch"
)

// Store — переходы состояний, нужные диспетчеру.
// Реализуется repo.MessageRepo; в тестах — in-memory фейком.
type Store interface {
	ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Message, error)
	Claim(ctx context.Context, id uuid.UUID, now time.Time) error
	MarkSent(ctx context.Context, id uuid.UUID, externalID string, now time.Time) (bool, error)
	MarkFailed(ctx context.Context, id uuid.UUID, f domain.Failure, now time.Time) (domain.MessageStatus, error)
	RecoverStale(ctx context.Context, olderThan time.Time, note domain.Failure, now time.Time) ([]uuid.UUID, error)
}

// Events — публикация исходов доставки. Реализуется mq.Publisher.
type Events interface {
	PublishMessageSent(ctx context.Context, payload mq.MessageSentPayload) error
	PublishMessageFailed(ctx context.Context, payload mq.MessageFailedPayload) error
}

// Dispatcher — движок доставки отложенных сообщений.
type Dispatcher struct {
	store   Store
	gateway gateway.Gateway
	locker  lock.Locker
	events  Events
	logger  *slog.Logger

	batchSize   int
	sendTimeout time.Duration
	staleAfter  time.Duration
	lockWait    time.Duration

	// limiter живёт между тиками: pacing действует на поток отправок
	// в шлюз целиком, а не на отдельный цикл.
	limiter *rate.Limiter
}

// Config — конфигурация Dispatcher.
type Config struct {
	Store   Store
	Gateway gateway.Gateway
	Locker  lock.Locker
	Events  Events // опционально; nil — события не публикуются
	Logger  *slog.Logger

	BatchSize    int           // сообщений за цикл (default: 100)
	SendTimeout  time.Duration // таймаут одной отправки (default: 45s)
	SendInterval time.Duration // pacing между отправками (default: 5s)
	StaleAfter   time.Duration // порог recovery для PROCESSING (default: 10m)
	LockWait     time.Duration // бюджет ожидания lease (default: 1s)
}

// New создаёт новый Dispatcher.
func New(cfg Config) *Dispatcher {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	sendTimeout := cfg.SendTimeout
	if sendTimeout <= 0 {
		sendTimeout = defaultSendTimeout
	}

	sendInterval := cfg.SendInterval
	if sendInterval <= 0 {
		sendInterval = defaultSendInterval
	}

	staleAfter := cfg.StaleAfter
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}

	lockWait := cfg.LockWait
	if lockWait <= 0 {
		lockWait = defaultLockWait
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{
		store:       cfg.Store,
		gateway:     cfg.Gateway,
		locker:      cfg.Locker,
		events:      cfg.Events,
		logger:      logger,
		batchSize:   batchSize,
		sendTimeout: sendTimeout,
		staleAfter:  staleAfter,
		lockWait:    lockWait,
		limiter:     rate.NewLimiter(rate.Every(sendInterval), 1),
	}
}

// Tick выполняет один цикл диспетчеризации.
func (d *Dispatcher) Tick(ctx context.Context) error {
	acquired, err := d.locker.TryAcquire(ctx, LockName, d.lockWait)
	if err != nil {
		return fmt.Errorf("acquire lease: %w", err)
	}
	if !acquired {
		// Цикл уже выполняет другой экземпляр.
		d.logger.Debug("lease busy, skipping cycle", "lock", LockName)
		return nil
	}
	defer func() {
		if err := d.locker.Release(ctx, LockName); err != nil {
			d.logger.Warn("failed to release lease", "lock", LockName, "error", err)
		}
	}()

	start := time.Now()
	defer func() {
		telemetry.TickDuration.Observe(time.Since(start).Seconds())
	}()

	if err := d.recoverStale(ctx); err != nil {
		return err
	}

	msgs, err := d.store.ListDue(ctx, time.Now(), d.batchSize)
	if err != nil {
		return fmt.Errorf("list due messages: %w", err)
	}

	if len(msgs) == 0 {
		return nil
	}

	d.logger.Debug("found due messages", "count", len(msgs))

	var sent, retried, failed, skipped int
	for i := range msgs {
		if err := ctx.Err(); err != nil {
			return err
		}

		outcome, err := d.dispatchOne(ctx, &msgs[i])
		if err != nil {
			// Ошибки хранилища прерывают цикл: следующий тик повторит.
			return err
		}

		switch outcome {
		case outcomeSent:
			sent++
		case outcomeRetryable:
			retried++
		case outcomeTerminal:
			failed++
		case outcomeSkipped:
			skipped++
		}
	}

	d.logger.Info("dispatch cycle completed",
		"due", len(msgs),
		"sent", sent,
		"retryable", retried,
		"terminal", failed,
		"skipped", skipped,
		"duration", time.Since(start),
	)

	return nil
}

// Исходы обработки одного сообщения внутри цикла.
type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeSent
	outcomeRetryable
	outcomeTerminal
)

// dispatchOne захватывает и отправляет одно сообщение.
// Возвращает ошибку только при отказе хранилища.
func (d *Dispatcher) dispatchOne(ctx context.Context, msg *domain.Message) (outcome, error) {
	logger := telemetry.WithMessageID(d.logger, msg.ID.String())

	err := d.store.Claim(ctx, msg.ID, time.Now())
	if errors.Is(err, repo.ErrClaimConflict) {
		// Гонку выиграл другой процесс либо сообщение стало
		// неподходящим. Ожидаемо при нескольких экземплярах.
		telemetry.ClaimConflicts.Inc()
		logger.Debug("claim lost", "reason", err)
		return outcomeSkipped, nil
	}
	if err != nil {
		return outcomeSkipped, fmt.Errorf("claim message: %w", err)
	}
	attempt := msg.Attempts + 1

	// Pacing: первый токен доступен сразу, дальше — по интервалу.
	if err := d.limiter.Wait(ctx); err != nil {
		return outcomeSkipped, err
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	externalID, sendErr := d.gateway.Send(sendCtx, &gateway.SendRequest{
		Recipient:      msg.Recipient,
		SenderID:       msg.SenderID,
		TemplateName:   msg.TemplateName,
		LanguageCode:   msg.LanguageCode,
		BodyParameters: msg.BodyParameters,
		Header:         msg.Header,
	})
	cancel()

	if sendErr == nil {
		return d.recordSuccess(ctx, msg, externalID, attempt, logger)
	}
	return d.recordFailure(ctx, msg, sendErr, attempt, logger)
}

// recordSuccess фиксирует доставку: PROCESSING → SENT.
func (d *Dispatcher) recordSuccess(ctx context.Context, msg *domain.Message, externalID string, attempt int, logger *slog.Logger) (outcome, error) {
	updated, err := d.store.MarkSent(ctx, msg.ID, externalID, time.Now())
	if err != nil {
		return outcomeSkipped, fmt.Errorf("mark sent: %w", err)
	}
	if !updated {
		// Кто-то уже довёл сообщение до финала — ничего не трогаем.
		logger.Debug("mark sent was a no-op")
		return outcomeSkipped, nil
	}

	telemetry.DispatchTotal.WithLabelValues("sent").Inc()
	logger.Info("message sent",
		"external_message_id", externalID,
		"attempt", attempt,
	)

	if d.events != nil {
		err := d.events.PublishMessageSent(ctx, mq.MessageSentPayload{
			MessageID:         msg.ID,
			BatchID:           msg.BatchID,
			ExternalMessageID: externalID,
			Attempts:          attempt,
		})
		if err != nil {
			// Состояние уже в БД — событие не критично.
			logger.Warn("failed to publish message.sent", "error", err)
		}
	}

	return outcomeSent, nil
}

// recordFailure классифицирует ошибку отправки и фиксирует исход:
// PROCESSING → PENDING (retryable) либо ERROR (бюджет исчерпан).
func (d *Dispatcher) recordFailure(ctx context.Context, msg *domain.Message, sendErr error, attempt int, logger *slog.Logger) (outcome, error) {
	failure := classifyFailure(sendErr, attempt)

	status, err := d.store.MarkFailed(ctx, msg.ID, failure, time.Now())
	if err != nil {
		return outcomeSkipped, fmt.Errorf("mark failed: %w", err)
	}
	if status == "" {
		logger.Debug("mark failed was a no-op")
		return outcomeSkipped, nil
	}

	if d.events != nil {
		err := d.events.PublishMessageFailed(ctx, mq.MessageFailedPayload{
			MessageID: msg.ID,
			BatchID:   msg.BatchID,
			Status:    status,
			Failure:   failure,
			Attempts:  attempt,
		})
		if err != nil {
			logger.Warn("failed to publish message.failed", "error", err)
		}
	}

	if status == domain.StatusError {
		telemetry.DispatchTotal.WithLabelValues("terminal").Inc()
		logger.Error("message failed permanently",
			"attempt", attempt,
			"kind", failure.Kind,
			"error", sendErr,
		)
		return outcomeTerminal, nil
	}

	telemetry.DispatchTotal.WithLabelValues("retryable").Inc()
	logger.Warn("message dispatch failed, will retry",
		"attempt", attempt,
		"kind", failure.Kind,
		"error", sendErr,
	)
	return outcomeRetryable, nil
}

// recoverStale возвращает брошенные PROCESSING-сообщения в PENDING.
func (d *Dispatcher) recoverStale(ctx context.Context) error {
	now := time.Now()
	note := domain.Failure{
		Kind:       domain.FailureRecovery,
		Message:    "recovered from stale processing state",
		OccurredAt: now,
	}

	ids, err := d.store.RecoverStale(ctx, now.Add(-d.staleAfter), note, now)
	if err != nil {
		return fmt.Errorf("recover stale messages: %w", err)
	}

	if len(ids) > 0 {
		telemetry.RecoveredTotal.Add(float64(len(ids)))
		d.logger.Warn("recovered stale messages",
			"count", len(ids),
			"stale_after", d.staleAfter,
		)
	}

	return nil
}

// classifyFailure переводит ошибку отправки в структурированную запись.
func classifyFailure(sendErr error, attempt int) domain.Failure {
	f := domain.Failure{
		Kind:       domain.FailureTransient,
		Message:    sendErr.Error(),
		Attempt:    attempt,
		OccurredAt: time.Now(),
	}

	var gwErr *gateway.GatewayError
	if errors.As(sendErr, &gwErr) {
		f.HTTPStatus = gwErr.HTTPStatus
		f.ProviderCode = gwErr.ProviderCode
	}

	if !gateway.IsRetryable(sendErr) {
		f.Kind = domain.FailureTerminal
	}

	return f
}
