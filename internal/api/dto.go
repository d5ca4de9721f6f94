package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Courier/internal/domain"
)

// Batch DTOs

// RecipientRequest — один получатель в batch-запросе.
type RecipientRequest struct {
	// Phone — номер телефона получателя.
	Phone string `json:"phone"`

	// BodyParameters — подстановки для этого получателя.
	// Если не заданы, берутся параметры batch-уровня.
	BodyParameters []string `json:"body_parameters,omitempty"`
}

// HeaderRequest — media-заголовок шаблона.
type HeaderRequest struct {
	Format    string `json:"format"`
	MediaURL  string `json:"media_url,omitempty"`
	MediaName string `json:"media_name,omitempty"`
}

// CreateBatchRequest — запрос на планирование рассылки.
type CreateBatchRequest struct {
	SenderID       string             `json:"sender_id"`
	TemplateName   string             `json:"template_name"`
	LanguageCode   string             `json:"language_code"`
	BodyParameters []string           `json:"body_parameters,omitempty"`
	Header         *HeaderRequest     `json:"header,omitempty"`
	ScheduledAt    string             `json:"scheduled_at"` // локальное время, как ввёл пользователь
	Timezone       string             `json:"timezone"`     // IANA-имя
	MaxAttempts    int                `json:"max_attempts,omitempty"`
	Recipients     []RecipientRequest `json:"recipients"`
}

// RejectedRecipient — отклонённый получатель с причиной.
type RejectedRecipient struct {
	Phone  string `json:"phone"`
	Reason string `json:"reason"`
}

// BatchResponse — результат приёма batch'а.
type BatchResponse struct {
	BatchID            uuid.UUID           `json:"batch_id"`
	ScheduledAtUTC     time.Time           `json:"scheduled_at_utc"`
	Accepted           int                 `json:"accepted"`
	Rejected           int                 `json:"rejected"`
	RejectedRecipients []RejectedRecipient `json:"rejected_recipients,omitempty"`
}

// BatchSummaryResponse — сводка по batch'у.
type BatchSummaryResponse struct {
	BatchID    uuid.UUID `json:"batch_id"`
	Total      int       `json:"total"`
	Pending    int       `json:"pending"`
	Processing int       `json:"processing"`
	Sent       int       `json:"sent"`
	Error      int       `json:"error"`
}

// Message DTOs

// MessageResponse — сообщение из хранилища.
type MessageResponse struct {
	ID                uuid.UUID           `json:"id"`
	BatchID           uuid.UUID           `json:"batch_id"`
	Recipient         string              `json:"recipient"`
	SenderID          string              `json:"sender_id"`
	TemplateName      string              `json:"template_name"`
	LanguageCode      string              `json:"language_code"`
	BodyParameters    []string            `json:"body_parameters,omitempty"`
	Header            *domain.Header      `json:"header,omitempty"`
	ScheduledAtLocal  string              `json:"scheduled_at_local"`
	Timezone          string              `json:"timezone"`
	ScheduledAtUTC    time.Time           `json:"scheduled_at_utc"`
	Status            string              `json:"status"`
	Attempts          int                 `json:"attempts"`
	MaxAttempts       int                 `json:"max_attempts"`
	ErrorDetail       *domain.ErrorDetail `json:"error_detail,omitempty"`
	ExternalMessageID string              `json:"external_message_id,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
	SentAt            *time.Time          `json:"sent_at,omitempty"`
}

// MessageFromDomain конвертирует domain.Message в MessageResponse.
func MessageFromDomain(m *domain.Message) MessageResponse {
	return MessageResponse{
		ID:                m.ID,
		BatchID:           m.BatchID,
		Recipient:         m.Recipient,
		SenderID:          m.SenderID,
		TemplateName:      m.TemplateName,
		LanguageCode:      m.LanguageCode,
		BodyParameters:    m.BodyParameters,
		Header:            m.Header,
		ScheduledAtLocal:  m.ScheduledAtLocal,
		Timezone:          m.Timezone,
		ScheduledAtUTC:    m.ScheduledAtUTC,
		Status:            string(m.Status),
		Attempts:          m.Attempts,
		MaxAttempts:       m.MaxAttempts,
		ErrorDetail:       m.ErrorDetail,
		ExternalMessageID: m.ExternalMessageID,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
		SentAt:            m.SentAt,
	}
}
