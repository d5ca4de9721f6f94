package lock

import (
	"context"
	"time"
)

// Locker — именованная межпроцессная блокировка с арендой.
//
// TryAcquire — best-effort с коротким бюджетом ожидания: если взять
// не удалось, вызывающий обязан молча пропустить весь цикл (его уже
// выполняет другой экземпляр), а не продолжать частично.
//
// Имя блокировки скоупит отдельный логический поток работ, поэтому
// диспетчер и janitor не мешают ни друг другу, ни посторонним
// планировщикам.
type Locker interface {
	// TryAcquire пытается взять блокировку name в пределах wait.
	// Возвращает true, если блокировка взята.
	TryAcquire(ctx context.Context, name string, wait time.Duration) (bool, error)

	// Release отпускает блокировку name.
	Release(ctx context.Context, name string) error
}
