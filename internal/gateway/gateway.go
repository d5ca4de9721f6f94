package gateway

import (
	"context"

	"github.com/shaiso/Courier/internal/domain"
)

// SendRequest — запрос на отправку одного шаблонного сообщения.
type SendRequest struct {
	// Recipient — адрес получателя (номер телефона).
	Recipient string

	// SenderID — идентификатор исходящего канала у провайдера.
	SenderID string

	// TemplateName — имя утверждённого шаблона.
	TemplateName string

	// LanguageCode — код языка шаблона.
	LanguageCode string

	// BodyParameters — упорядоченные подстановки в тело.
	BodyParameters []string

	// Header — опциональный media-заголовок (URL уже устойчивый).
	Header *domain.Header
}

// Gateway — внешний шлюз доставки сообщений.
//
// Send возвращает идентификатор, присвоенный шлюзом. Таймаут задаёт
// вызывающий через ctx; по таймауту ошибка классифицируется как
// временная.
type Gateway interface {
	Send(ctx context.Context, req *SendRequest) (externalID string, err error)
}
