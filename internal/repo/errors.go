package repo

import "errors"

// Общие ошибки репозитория.
var (
	// ErrNotFound — запись не найдена в БД.
	ErrNotFound = errors.New("not found")

	// ErrClaimConflict — условный UPDATE при claim затронул 0 строк:
	// сообщение уже захвачено другим процессом либо стало неподходящим.
	// Это НЕ ошибка отправки — это ожидаемый исход оптимистичной
	// конкуренции, логируется максимум на debug.
	ErrClaimConflict = errors.New("claim conflict")

	// ErrInvalidState — операция невозможна в текущем статусе сообщения.
	ErrInvalidState = errors.New("invalid state")
)
