// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go        — Handler с DI (store, publisher, logger)
//   - routes.go         — регистрация маршрутов
//   - middleware.go     — middleware (logging, recovery)
//   - response.go       — унифицированные JSON-ответы и обработка ошибок
//   - dto.go            — Data Transfer Objects (request/response)
//   - batch_handler.go  — приём batch'ей отложенных сообщений
//   - message_handler.go — чтение сообщений и операторский requeue
//
// Приём batch'а — единственное место, где вызывается нормализация
// локального времени: невалидная таймзона или дата отклоняет весь batch
// до записи хотя бы одной строки. Невалидные получатели отклоняются
// поштучно, и ответ сразу сообщает сколько принято и сколько отклонено.
package api
