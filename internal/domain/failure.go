package domain

import "time"

// FailureKind — категория неудачи при обработке сообщения.
type FailureKind string

const (
	// FailureValidation — некорректные данные обнаружены до отправки.
	FailureValidation FailureKind = "VALIDATION"

	// FailureTransient — временная ошибка (сеть, таймаут, rate-limit,
	// 5xx от шлюза). Ретраится автоматически в пределах max_attempts.
	FailureTransient FailureKind = "TRANSIENT"

	// FailureTerminal — отказ шлюза, который ретраить бессмысленно
	// (шаблон отклонён, невалидный получатель). Бюджет попыток при этом
	// всё равно соблюдается механически.
	FailureTerminal FailureKind = "TERMINAL"

	// FailureRecovery — отметка Recovery Sweeper'а: сообщение было
	// брошено в PROCESSING упавшим процессом и возвращено в PENDING.
	// Это не ошибка самого сообщения.
	FailureRecovery FailureKind = "RECOVERY"
)

// Failure — структурированная запись об одной неудачной попытке.
//
// Сериализуется в колонку error_detail как стабильная схема,
// а не свободный текст.
type Failure struct {
	// Kind — категория неудачи.
	Kind FailureKind `json:"kind"`

	// HTTPStatus — HTTP-статус ответа шлюза (0, если до HTTP не дошло).
	HTTPStatus int `json:"http_status,omitempty"`

	// ProviderCode — код ошибки из тела ответа провайдера.
	ProviderCode string `json:"provider_code,omitempty"`

	// Message — человекочитаемое описание.
	Message string `json:"message"`

	// Attempt — номер попытки, на которой произошла неудача.
	Attempt int `json:"attempt,omitempty"`

	// OccurredAt — момент неудачи.
	OccurredAt time.Time `json:"occurred_at"`
}

// Retryable возвращает true, если неудачу имеет смысл повторить.
func (f Failure) Retryable() bool {
	return f.Kind == FailureTransient
}

// ErrorDetail — накопленная история неудач сообщения.
//
// Каждая новая запись дописывается в конец, прежние сохраняются —
// включая recovery-отметки между попытками.
type ErrorDetail struct {
	Failures []Failure `json:"failures"`
}

// Append возвращает копию с дописанной записью.
// Работает и на nil-приёмнике (первая неудача).
func (d *ErrorDetail) Append(f Failure) *ErrorDetail {
	if d == nil {
		return &ErrorDetail{Failures: []Failure{f}}
	}
	out := &ErrorDetail{Failures: make([]Failure, 0, len(d.Failures)+1)}
	out.Failures = append(out.Failures, d.Failures...)
	out.Failures = append(out.Failures, f)
	return out
}

// Last возвращает последнюю запись, если она есть.
func (d *ErrorDetail) Last() (Failure, bool) {
	if d == nil || len(d.Failures) == 0 {
		return Failure{}, false
	}
	return d.Failures[len(d.Failures)-1], true
}
