// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Диспетчер публикует события об исходах доставки; потребители
// (дашборды статусов, webhook-рассылка) живут вне этого репозитория.
// Публикация best-effort: ошибка publish никогда не валит цикл —
// состояние сообщения уже зафиксировано в БД.
//
// Структура:
//   - connection.go — управление соединением с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация событий
//
// Типы событий:
//   - batch.created   — принят новый batch отложенных сообщений
//   - message.sent    — сообщение доставлено в шлюз
//   - message.failed  — попытка отправки не удалась (retryable или финально)
//
// Exchanges:
//   - courier.events — все события доставки
package mq
