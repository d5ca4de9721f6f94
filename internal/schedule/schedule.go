package schedule

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidSchedule — нераспознанная таймзона или нераспарсиваемое
// локальное время. Возвращается создателю batch'а синхронно; ни одной
// строки при этом не записывается.
var ErrInvalidSchedule = errors.New("invalid schedule")

// Принимаемые форматы локального времени.
var localLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// NormalizeLocal переводит локальное время пользователя в канонический
// UTC-момент.
//
// Вызывается ровно один раз на сообщение — при создании. Диспетчер
// дальше сравнивает только с полученным UTC и никогда не пересчитывает
// его заново: иначе смена дефолтной таймзоны сервера сдвинула бы уже
// запланированные отправки.
func NormalizeLocal(localDateTime, ianaZone string) (time.Time, error) {
	if localDateTime == "" {
		return time.Time{}, fmt.Errorf("%w: empty datetime", ErrInvalidSchedule)
	}
	if ianaZone == "" {
		return time.Time{}, fmt.Errorf("%w: empty timezone", ErrInvalidSchedule)
	}

	loc, err := time.LoadLocation(ianaZone)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: unknown timezone %q", ErrInvalidSchedule, ianaZone)
	}

	for _, layout := range localLayouts {
		t, err := time.ParseInLocation(layout, localDateTime, loc)
		if err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: cannot parse datetime %q", ErrInvalidSchedule, localDateTime)
}
