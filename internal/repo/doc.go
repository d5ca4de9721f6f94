// Package repo реализует доступ к Postgres для отложенных сообщений.
//
// Репозиторий — единственная точка мутации строк. Все легальные
// переходы статусов выражены как атомарные условные UPDATE:
//
//	Claim        PENDING → PROCESSING (attempts += 1)
//	MarkSent     PROCESSING → SENT
//	MarkFailed   PROCESSING → PENDING | ERROR (решается в SQL)
//	RecoverStale PROCESSING (stale) → PENDING
//	Requeue      ERROR → PENDING (только оператор)
//
// Сконструировать нелегальный переход через репозиторий невозможно.
//
// Ожидаемая схема:
//
//	CREATE TABLE messages (
//	    id                  UUID PRIMARY KEY,
//	    batch_id            UUID NOT NULL,
//	    recipient           TEXT NOT NULL,
//	    sender_id           TEXT NOT NULL,
//	    template_name       TEXT NOT NULL,
//	    language_code       TEXT NOT NULL,
//	    body_parameters     JSONB,
//	    header              JSONB,
//	    scheduled_at_local  TEXT NOT NULL,
//	    timezone            TEXT NOT NULL,
//	    scheduled_at_utc    TIMESTAMPTZ NOT NULL,
//	    status              TEXT NOT NULL DEFAULT 'PENDING',
//	    attempts            INT NOT NULL DEFAULT 0,
//	    max_attempts        INT NOT NULL DEFAULT 3,
//	    error_detail        JSONB,
//	    external_message_id TEXT,
//	    created_at          TIMESTAMPTZ NOT NULL,
//	    updated_at          TIMESTAMPTZ NOT NULL,
//	    sent_at             TIMESTAMPTZ
//	);
//
//	CREATE INDEX idx_messages_due
//	    ON messages (scheduled_at_utc, id) WHERE status = 'PENDING';
//	CREATE INDEX idx_messages_batch ON messages (batch_id);
package repo
