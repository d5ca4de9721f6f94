package lock

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// retryInterval — пауза между попытками взять advisory lock
// в пределах бюджета ожидания.
const retryInterval = 100 * time.Millisecond

// AdvisoryLocker — Locker поверх session-level advisory-блокировок
// Postgres. Безопасен между процессами и хостами: блокировку держит
// сессия БД, а pg_try_advisory_lock не ждёт.
//
// Чтобы блокировка жила в одной и той же сессии между TryAcquire и
// Release, соединение забирается из пула и удерживается до Release.
type AdvisoryLocker struct {
	pool *pgxpool.Pool

	mu   sync.Mutex
	held map[string]*pgxpool.Conn
}

// NewAdvisoryLocker создаёт AdvisoryLocker.
func NewAdvisoryLocker(pool *pgxpool.Pool) *AdvisoryLocker {
	return &AdvisoryLocker{
		pool: pool,
		held: make(map[string]*pgxpool.Conn),
	}
}

// TryAcquire пытается взять блокировку name, повторяя попытки
// до исчерпания wait.
//
// Имя, уже удерживаемое этим процессом, считается занятым: вызывающий
// пропускает цикл, а не входит в него вторым. Иначе затянувшийся тик и
// следующий за ним работали бы параллельно, и Release первого снял бы
// блокировку под вторым.
func (l *AdvisoryLocker) TryAcquire(ctx context.Context, name string, wait time.Duration) (bool, error) {
	l.mu.Lock()
	_, ok := l.held[name]
	l.mu.Unlock()
	if ok {
		return false, nil
	}

	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire conn: %w", err)
	}

	key := lockKey(name)
	deadline := time.Now().Add(wait)

	for {
		var got bool
		if err := conn.QueryRow(ctx, "select pg_try_advisory_lock($1)", key).Scan(&got); err != nil {
			conn.Release()
			return false, fmt.Errorf("try advisory lock: %w", err)
		}
		if got {
			l.mu.Lock()
			l.held[name] = conn
			l.mu.Unlock()
			return true, nil
		}

		if time.Now().After(deadline) {
			conn.Release()
			return false, nil
		}

		select {
		case <-time.After(retryInterval):
		case <-ctx.Done():
			conn.Release()
			return false, ctx.Err()
		}
	}
}

// Release отпускает блокировку name и возвращает соединение в пул.
func (l *AdvisoryLocker) Release(ctx context.Context, name string) error {
	l.mu.Lock()
	conn, ok := l.held[name]
	delete(l.held, name)
	l.mu.Unlock()
	if !ok {
		return nil
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "select pg_advisory_unlock($1)", lockKey(name)); err != nil {
		return fmt.Errorf("advisory unlock: %w", err)
	}
	return nil
}

// lockKey сводит имя блокировки к 64-битному ключу advisory-локов.
func lockKey(name string) int64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	return int64(h.Sum64())
}
