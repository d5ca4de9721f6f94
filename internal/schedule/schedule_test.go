package schedule

import (
	"errors"
	"testing"
	"time"
)

func TestNormalizeLocal_UTC(t *testing.T) {
	got, err := NormalizeLocal("2026-09-01 10:30", "UTC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := time.Date(2026, 9, 1, 10, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestNormalizeLocal_Offset(t *testing.T) {
	// Sao Paulo — UTC-3, без DST с 2019 года.
	got, err := NormalizeLocal("2026-09-01 10:30:00", "America/Sao_Paulo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := time.Date(2026, 9, 1, 13, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestNormalizeLocal_DST(t *testing.T) {
	// Зимой Нью-Йорк UTC-5, летом UTC-4: один и тот же wall clock
	// даёт разные UTC-моменты.
	winter, err := NormalizeLocal("2026-01-15 12:00", "America/New_York")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	summer, err := NormalizeLocal("2026-07-15 12:00", "America/New_York")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if winter.Hour() != 17 {
		t.Errorf("winter hour = %d, want 17", winter.Hour())
	}
	if summer.Hour() != 16 {
		t.Errorf("summer hour = %d, want 16", summer.Hour())
	}
}

func TestNormalizeLocal_Layouts(t *testing.T) {
	inputs := []string{
		"2026-09-01 10:30:00",
		"2026-09-01 10:30",
		"2026-09-01T10:30:00",
		"2026-09-01T10:30",
	}

	want := time.Date(2026, 9, 1, 10, 30, 0, 0, time.UTC)
	for _, in := range inputs {
		got, err := NormalizeLocal(in, "UTC")
		if err != nil {
			t.Errorf("NormalizeLocal(%q): unexpected error: %v", in, err)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("NormalizeLocal(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNormalizeLocal_ReturnsUTC(t *testing.T) {
	got, err := NormalizeLocal("2026-09-01 10:30", "Asia/Tokyo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Location() != time.UTC {
		t.Errorf("location = %v, want UTC", got.Location())
	}
}

func TestNormalizeLocal_Invalid(t *testing.T) {
	cases := []struct {
		name     string
		datetime string
		zone     string
	}{
		{"empty datetime", "", "UTC"},
		{"empty timezone", "2026-09-01 10:30", ""},
		{"unknown timezone", "2026-09-01 10:30", "Mars/Olympus_Mons"},
		{"garbage datetime", "tomorrow at noon", "UTC"},
		{"unix timestamp", "1756722600", "UTC"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NormalizeLocal(tc.datetime, tc.zone)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrInvalidSchedule) {
				t.Errorf("error %v is not ErrInvalidSchedule", err)
			}
		})
	}
}
