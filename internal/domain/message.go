package domain

import (
	"time"

	"github.com/google/uuid"
)

// HeaderFormat — формат media-заголовка шаблонного сообщения.
type HeaderFormat string

const (
	HeaderFormatText     HeaderFormat = "TEXT"
	HeaderFormatImage    HeaderFormat = "IMAGE"
	HeaderFormatVideo    HeaderFormat = "VIDEO"
	HeaderFormatDocument HeaderFormat = "DOCUMENT"
)

// IsValid проверяет, что формат заголовка известен.
func (f HeaderFormat) IsValid() bool {
	switch f {
	case HeaderFormatText, HeaderFormatImage, HeaderFormatVideo, HeaderFormatDocument:
		return true
	default:
		return false
	}
}

// Header — опциональный заголовок шаблона.
//
// Media должна быть уже загружена и доступна по устойчивому URL:
// движок никогда не загружает и не транскодирует файлы при отправке.
type Header struct {
	// Format — тип заголовка: TEXT, IMAGE, VIDEO или DOCUMENT.
	Format HeaderFormat `json:"format"`

	// MediaURL — устойчивый URL media-файла (для IMAGE/VIDEO/DOCUMENT).
	MediaURL string `json:"media_url,omitempty"`

	// MediaName — имя файла (используется для DOCUMENT).
	MediaName string `json:"media_name,omitempty"`
}

// Message — отложенное сообщение, единица работы диспетчера.
//
// Создаётся API при приёме batch-запроса (одно сообщение на валидного
// получателя). Мутируется только через атомарные условные UPDATE в
// MessageRepo: Claim, MarkSent, MarkFailed, RecoverStale, Requeue.
// Никогда не удаляется движком (retention — внешняя забота).
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID uuid.UUID `json:"id"`

	// BatchID — группирует сообщения одного scheduling-запроса.
	BatchID uuid.UUID `json:"batch_id"`

	// Recipient — адрес получателя в формате канала (номер телефона).
	Recipient string `json:"recipient"`

	// SenderID — идентификатор исходящего канала/аккаунта,
	// через который отправляется сообщение.
	SenderID string `json:"sender_id"`

	// TemplateName — имя утверждённого шаблона у провайдера.
	TemplateName string `json:"template_name"`

	// LanguageCode — код языка шаблона, например "en_US".
	LanguageCode string `json:"language_code"`

	// BodyParameters — упорядоченные подстановки в тело шаблона.
	BodyParameters []string `json:"body_parameters,omitempty"`

	// Header — опциональный media-заголовок.
	Header *Header `json:"header,omitempty"`

	// ScheduledAtLocal — время отправки как его ввёл пользователь.
	// Хранится для отображения, в логике не участвует.
	ScheduledAtLocal string `json:"scheduled_at_local"`

	// Timezone — IANA-имя часового пояса пользователя.
	Timezone string `json:"timezone"`

	// ScheduledAtUTC — канонический момент отправки.
	// Вычисляется ровно один раз при создании из ScheduledAtLocal +
	// Timezone и больше никогда не пересчитывается.
	ScheduledAtUTC time.Time `json:"scheduled_at_utc"`

	// Status — текущий статус сообщения.
	Status MessageStatus `json:"status"`

	// Attempts — число выполненных попыток отправки.
	// Монотонно растёт и никогда не превышает MaxAttempts.
	Attempts int `json:"attempts"`

	// MaxAttempts — бюджет попыток (default: 3).
	MaxAttempts int `json:"max_attempts"`

	// ErrorDetail — история неудачных попыток и recovery-отметок.
	ErrorDetail *ErrorDetail `json:"error_detail,omitempty"`

	// ExternalMessageID — идентификатор, присвоенный шлюзом.
	// Заполняется только при успешной отправке.
	ExternalMessageID string `json:"external_message_id,omitempty"`

	// CreatedAt — время создания.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последней мутации. Recovery Sweeper использует
	// его как датчик staleness для подвисших PROCESSING.
	UpdatedAt time.Time `json:"updated_at"`

	// SentAt — время успешной доставки в шлюз.
	SentAt *time.Time `json:"sent_at,omitempty"`
}

// DefaultMaxAttempts — бюджет попыток по умолчанию.
const DefaultMaxAttempts = 3

// IsDue возвращает true, если сообщение пора отправлять.
func (m *Message) IsDue(now time.Time) bool {
	return !m.ScheduledAtUTC.After(now)
}

// CanRetry проверяет, остались ли попытки.
func (m *Message) CanRetry() bool {
	return m.Attempts < m.MaxAttempts
}

// IsFinished возвращает true, если сообщение в финальном статусе.
func (m *Message) IsFinished() bool {
	return m.Status.IsTerminal()
}
