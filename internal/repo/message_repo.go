package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Courier/internal/domain"
)

// messageColumns — список колонок для SELECT (порядок важен для scan).
const messageColumns = `
	id, batch_id, recipient, sender_id, template_name, language_code,
	body_parameters, header, scheduled_at_local, timezone, scheduled_at_utc,
	status, attempts, max_attempts, error_detail, external_message_id,
	created_at, updated_at, sent_at`

// appendFailureExpr — дописывает одну запись в error_detail, сохраняя
// прежние. NULL превращается в пустую историю.
const appendFailureExpr = `jsonb_set(
		coalesce(error_detail, '{"failures": []}'::jsonb),
		'{failures}',
		coalesce(error_detail->'failures', '[]'::jsonb) || $2::jsonb
	)`

// MessageRepo — репозиторий отложенных сообщений.
//
// Единственная точка мутации строк: все легальные переходы статусов
// (Claim, MarkSent, MarkFailed, RecoverStale, Requeue) выражены как
// атомарные условные UPDATE с guard'ом в WHERE. Никакого
// read-then-write на уровне приложения — атомарность условного UPDATE
// и есть механизм корректности при конкурирующих экземплярах.
type MessageRepo struct {
	pool *pgxpool.Pool
}

// NewMessageRepo создаёт новый MessageRepo.
func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

// Create создаёт новое сообщение.
func (r *MessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	bodyJSON, headerJSON, err := marshalPayload(msg)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO messages (id, batch_id, recipient, sender_id, template_name,
		                      language_code, body_parameters, header,
		                      scheduled_at_local, timezone, scheduled_at_utc,
		                      status, attempts, max_attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err = r.pool.Exec(ctx, query,
		msg.ID,
		msg.BatchID,
		msg.Recipient,
		msg.SenderID,
		msg.TemplateName,
		msg.LanguageCode,
		bodyJSON,
		headerJSON,
		msg.ScheduledAtLocal,
		msg.Timezone,
		msg.ScheduledAtUTC,
		msg.Status,
		msg.Attempts,
		msg.MaxAttempts,
		msg.CreatedAt,
		msg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// CreateBatch создаёт все сообщения batch'а в одной транзакции.
// Либо записываются все строки, либо ни одной.
func (r *MessageRepo) CreateBatch(ctx context.Context, msgs []*domain.Message) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO messages (id, batch_id, recipient, sender_id, template_name,
		                      language_code, body_parameters, header,
		                      scheduled_at_local, timezone, scheduled_at_utc,
		                      status, attempts, max_attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	for _, msg := range msgs {
		bodyJSON, headerJSON, err := marshalPayload(msg)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, query,
			msg.ID,
			msg.BatchID,
			msg.Recipient,
			msg.SenderID,
			msg.TemplateName,
			msg.LanguageCode,
			bodyJSON,
			headerJSON,
			msg.ScheduledAtLocal,
			msg.Timezone,
			msg.ScheduledAtUTC,
			msg.Status,
			msg.Attempts,
			msg.MaxAttempts,
			msg.CreatedAt,
			msg.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert message %s: %w", msg.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByID возвращает сообщение по ID.
func (r *MessageRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = $1`
	return scanMessage(r.pool.QueryRow(ctx, query, id))
}

// List возвращает список сообщений с фильтрацией.
func (r *MessageRepo) List(ctx context.Context, filter MessageFilter) ([]domain.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE ($1::uuid IS NULL OR batch_id = $1)
		  AND ($2::text IS NULL OR status = $2)
		ORDER BY scheduled_at_utc ASC, id ASC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.pool.Query(ctx, query,
		nullUUID(filter.BatchID),
		nullString(string(filter.Status)),
		filter.Limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	return collectMessages(rows)
}

// ListDue возвращает сообщения, готовые к отправке: PENDING, время
// пришло, попытки не исчерпаны. Порядок (scheduled_at_utc, id)
// детерминирован; limit ограничивает худший случай длительности цикла.
func (r *MessageRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE status = 'PENDING'
		  AND scheduled_at_utc <= $1
		  AND attempts < max_attempts
		ORDER BY scheduled_at_utc ASC, id ASC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list due messages: %w", err)
	}
	defer rows.Close()

	return collectMessages(rows)
}

// Claim атомарно захватывает сообщение: PENDING → PROCESSING,
// attempts += 1. Guard в WHERE гарантирует не более одного победителя
// при конкурирующих claim'ах; проигравший получает ErrClaimConflict.
func (r *MessageRepo) Claim(ctx context.Context, id uuid.UUID, now time.Time) error {
	query := `
		UPDATE messages
		SET status = 'PROCESSING', attempts = attempts + 1, updated_at = $2
		WHERE id = $1 AND status = 'PENDING' AND attempts < max_attempts
	`
	result, err := r.pool.Exec(ctx, query, id, now)
	if err != nil {
		return fmt.Errorf("claim message: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrClaimConflict
	}
	return nil
}

// MarkSent фиксирует успешную доставку: PROCESSING → SENT.
// Возвращает false без ошибки, если сообщение уже не в PROCESSING —
// повторный вызов (дублированный callback) ничего не перезаписывает.
func (r *MessageRepo) MarkSent(ctx context.Context, id uuid.UUID, externalID string, now time.Time) (bool, error) {
	query := `
		UPDATE messages
		SET status = 'SENT', sent_at = $2, external_message_id = $3,
		    error_detail = NULL, updated_at = $2
		WHERE id = $1 AND status = 'PROCESSING'
	`
	result, err := r.pool.Exec(ctx, query, id, now, externalID)
	if err != nil {
		return false, fmt.Errorf("mark sent: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// MarkFailed фиксирует неудачную попытку. Решение retryable/terminal
// принимается в самом UPDATE: если attempts уже достиг max_attempts —
// ERROR (финально), иначе PENDING (будет захвачено следующим циклом).
// Запись о неудаче дописывается в error_detail.
//
// Возвращает итоговый статус; пустой статус без ошибки означает no-op
// (сообщение уже в финальном статусе по конкурирующему пути).
func (r *MessageRepo) MarkFailed(ctx context.Context, id uuid.UUID, f domain.Failure, now time.Time) (domain.MessageStatus, error) {
	failureJSON, err := json.Marshal(f)
	if err != nil {
		return "", fmt.Errorf("marshal failure: %w", err)
	}

	query := `
		UPDATE messages
		SET status = CASE WHEN attempts >= max_attempts THEN 'ERROR' ELSE 'PENDING' END,
		    error_detail = ` + appendFailureExpr + `,
		    updated_at = $3
		WHERE id = $1 AND status = 'PROCESSING'
		RETURNING status
	`
	var status domain.MessageStatus
	err = r.pool.QueryRow(ctx, query, id, failureJSON, now).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("mark failed: %w", err)
	}
	return status, nil
}

// RecoverStale возвращает брошенные сообщения в PENDING: PROCESSING,
// updated_at старше порога, попытки не исчерпаны. Recovery-отметка
// дописывается в error_detail с сохранением прежней истории.
// Возвращает ID восстановленных сообщений.
func (r *MessageRepo) RecoverStale(ctx context.Context, olderThan time.Time, note domain.Failure, now time.Time) ([]uuid.UUID, error) {
	noteJSON, err := json.Marshal(note)
	if err != nil {
		return nil, fmt.Errorf("marshal recovery note: %w", err)
	}

	query := `
		UPDATE messages
		SET status = 'PENDING',
		    error_detail = jsonb_set(
		        coalesce(error_detail, '{"failures": []}'::jsonb),
		        '{failures}',
		        coalesce(error_detail->'failures', '[]'::jsonb) || $1::jsonb
		    ),
		    updated_at = $2
		WHERE status = 'PROCESSING'
		  AND updated_at < $3
		  AND attempts < max_attempts
		RETURNING id
	`
	rows, err := r.pool.Query(ctx, query, noteJSON, now, olderThan)
	if err != nil {
		return nil, fmt.Errorf("recover stale: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan recovered id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Requeue возвращает финально-ошибочное сообщение в очередь со сброшенным
// счётчиком попыток. Операторский путь (API/CLI); движок этот метод
// никогда не вызывает.
func (r *MessageRepo) Requeue(ctx context.Context, id uuid.UUID, now time.Time) error {
	query := `
		UPDATE messages
		SET status = 'PENDING', attempts = 0, updated_at = $2
		WHERE id = $1 AND status = 'ERROR'
	`
	result, err := r.pool.Exec(ctx, query, id, now)
	if err != nil {
		return fmt.Errorf("requeue message: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrInvalidState
	}
	return nil
}

// BatchSummary возвращает количество сообщений batch'а по статусам.
func (r *MessageRepo) BatchSummary(ctx context.Context, batchID uuid.UUID) (map[domain.MessageStatus]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT status, COUNT(*) FROM messages WHERE batch_id = $1 GROUP BY status
	`, batchID)
	if err != nil {
		return nil, fmt.Errorf("batch summary: %w", err)
	}
	defer rows.Close()

	summary := make(map[domain.MessageStatus]int)
	for rows.Next() {
		var status domain.MessageStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		summary[status] = count
	}
	return summary, rows.Err()
}

// CountByStatus возвращает количество сообщений в каждом статусе.
// Используется janitor-циклом для gauge-метрик глубины очереди.
func (r *MessageRepo) CountByStatus(ctx context.Context) (map[domain.MessageStatus]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM messages GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.MessageStatus]int)
	for rows.Next() {
		var status domain.MessageStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// --- Helpers ---

// MessageFilter — параметры фильтрации сообщений.
type MessageFilter struct {
	BatchID *uuid.UUID
	Status  domain.MessageStatus
	Limit   int
	Offset  int
}

// marshalPayload сериализует body_parameters и header для записи в БД.
func marshalPayload(msg *domain.Message) ([]byte, []byte, error) {
	bodyJSON, err := json.Marshal(msg.BodyParameters)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal body parameters: %w", err)
	}

	var headerJSON []byte
	if msg.Header != nil {
		headerJSON, err = json.Marshal(msg.Header)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal header: %w", err)
		}
	}
	return bodyJSON, headerJSON, nil
}

// scanMessage сканирует одну строку в Message.
func scanMessage(row pgx.Row) (*domain.Message, error) {
	var m domain.Message
	var bodyJSON, headerJSON, detailJSON []byte
	var externalID *string

	err := row.Scan(
		&m.ID,
		&m.BatchID,
		&m.Recipient,
		&m.SenderID,
		&m.TemplateName,
		&m.LanguageCode,
		&bodyJSON,
		&headerJSON,
		&m.ScheduledAtLocal,
		&m.Timezone,
		&m.ScheduledAtUTC,
		&m.Status,
		&m.Attempts,
		&m.MaxAttempts,
		&detailJSON,
		&externalID,
		&m.CreatedAt,
		&m.UpdatedAt,
		&m.SentAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan message: %w", err)
	}

	if err := unmarshalPayload(&m, bodyJSON, headerJSON, detailJSON); err != nil {
		return nil, err
	}
	if externalID != nil {
		m.ExternalMessageID = *externalID
	}
	return &m, nil
}

// collectMessages сканирует все строки результата.
func collectMessages(rows pgx.Rows) ([]domain.Message, error) {
	var msgs []domain.Message
	for rows.Next() {
		var m domain.Message
		var bodyJSON, headerJSON, detailJSON []byte
		var externalID *string

		err := rows.Scan(
			&m.ID,
			&m.BatchID,
			&m.Recipient,
			&m.SenderID,
			&m.TemplateName,
			&m.LanguageCode,
			&bodyJSON,
			&headerJSON,
			&m.ScheduledAtLocal,
			&m.Timezone,
			&m.ScheduledAtUTC,
			&m.Status,
			&m.Attempts,
			&m.MaxAttempts,
			&detailJSON,
			&externalID,
			&m.CreatedAt,
			&m.UpdatedAt,
			&m.SentAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}

		if err := unmarshalPayload(&m, bodyJSON, headerJSON, detailJSON); err != nil {
			return nil, err
		}
		if externalID != nil {
			m.ExternalMessageID = *externalID
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// unmarshalPayload восстанавливает JSONB-поля сообщения.
func unmarshalPayload(m *domain.Message, bodyJSON, headerJSON, detailJSON []byte) error {
	if bodyJSON != nil {
		if err := json.Unmarshal(bodyJSON, &m.BodyParameters); err != nil {
			return fmt.Errorf("unmarshal body parameters: %w", err)
		}
	}
	if headerJSON != nil {
		m.Header = &domain.Header{}
		if err := json.Unmarshal(headerJSON, m.Header); err != nil {
			return fmt.Errorf("unmarshal header: %w", err)
		}
	}
	if detailJSON != nil {
		m.ErrorDetail = &domain.ErrorDetail{}
		if err := json.Unmarshal(detailJSON, m.ErrorDetail); err != nil {
			return fmt.Errorf("unmarshal error detail: %w", err)
		}
	}
	return nil
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// nullUUID возвращает nil для пустого UUID.
func nullUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil || *id == uuid.Nil {
		return nil
	}
	return id
}
