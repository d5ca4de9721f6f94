package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrSend — отправка в шлюз завершилась ошибкой.
var ErrSend = errors.New("gateway send failed")

// GatewayError — отказ шлюза с контекстом ответа провайдера.
type GatewayError struct {
	// HTTPStatus — HTTP-статус ответа (0, если запрос не дошёл).
	HTTPStatus int

	// ProviderCode — код ошибки из тела ответа провайдера.
	ProviderCode string

	// Message — описание ошибки от провайдера.
	Message string
}

// Error реализует интерфейс error.
func (e *GatewayError) Error() string {
	if e.HTTPStatus == 0 {
		return fmt.Sprintf("gateway: %s", e.Message)
	}
	return fmt.Sprintf("gateway: HTTP %d: %s", e.HTTPStatus, e.Message)
}

// Retryable сообщает, имеет ли смысл повторять отправку.
//
// Временными считаются: rate-limit (429), request timeout (408) и любой
// 5xx. Остальные 4xx — отказ провайдера по существу (шаблон отклонён,
// невалидный получатель), повтор не поможет.
func (e *GatewayError) Retryable() bool {
	switch {
	case e.HTTPStatus == 0:
		return true
	case e.HTTPStatus == 408 || e.HTTPStatus == 429:
		return true
	case e.HTTPStatus >= 500:
		return true
	default:
		return false
	}
}

// IsRetryable классифицирует произвольную ошибку отправки.
// Сетевые ошибки и таймауты трактуются как временные.
func IsRetryable(err error) bool {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.Retryable()
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	// Неклассифицированная ошибка — повторим, бюджет попыток всё равно
	// ограничит ущерб.
	return true
}
