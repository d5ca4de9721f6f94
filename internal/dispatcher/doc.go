// Package dispatcher реализует цикл доставки отложенных сообщений.
//
// Один тик (Dispatcher.Tick):
//
//  1. Берётся lease-блокировка потока "courier.dispatch" (бюджет ~1s).
//     Не взяли — цикл молча пропускается: его уже выполняет другой
//     экземпляр.
//  2. Recovery Sweeper возвращает в PENDING сообщения, брошенные
//     в PROCESSING упавшим процессом (updated_at старше порога).
//  3. Выбирается ограниченная пачка due-сообщений, каждое атомарно
//     захватывается (PENDING → PROCESSING, attempts += 1). Проигранная
//     гонка за claim — не ошибка, сообщение просто пропускается.
//  4. Захваченные отправляются последовательно через token-bucket
//     pacing с таймаутом на отправку; исход фиксируется атомарным
//     переходом (SENT, либо PENDING/ERROR по бюджету попыток).
//  5. Блокировка отпускается.
//
// Ошибка отправки одного сообщения никогда не прерывает цикл. Цикл
// прерывают только ошибки хранилища — следующий тик повторит работу
// независимо.
//
// Корректность не зависит от единственности экземпляра: lease
// арбитрирует полезную работу, а условный UPDATE в Claim делает захват
// безопасным даже без неё.
//
// Janitor — вспомогательный 30-минутный цикл того же семейства:
// обновляет gauge-метрики глубины очереди под собственной блокировкой.
package dispatcher
