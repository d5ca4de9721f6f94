package domain

// MessageStatus — статус отложенного сообщения.
//
// Жизненный цикл:
//
//	PENDING → PROCESSING → SENT
//	                     ↘ PENDING (recovery или retryable ошибка)
//	                     ↘ ERROR (попытки исчерпаны)
//
// Других переходов не существует. ERROR и SENT — финальные статусы:
// движок никогда не трогает такие сообщения автоматически.
type MessageStatus string

const (
	// StatusPending — сообщение ожидает отправки (claimable).
	StatusPending MessageStatus = "PENDING"

	// StatusProcessing — сообщение захвачено диспетчером и отправляется.
	StatusProcessing MessageStatus = "PROCESSING"

	// StatusSent — сообщение доставлено в шлюз, external_message_id заполнен.
	StatusSent MessageStatus = "SENT"

	// StatusError — все попытки исчерпаны, вмешательство только вручную.
	StatusError MessageStatus = "ERROR"
)

// IsTerminal возвращает true, если статус финальный.
func (s MessageStatus) IsTerminal() bool {
	switch s {
	case StatusSent, StatusError:
		return true
	default:
		return false
	}
}

// String возвращает строковое представление статуса.
func (s MessageStatus) String() string {
	return string(s)
}
