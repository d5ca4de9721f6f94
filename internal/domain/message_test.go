package domain

import (
	"testing"
	"time"
)

// --- Status Tests ---

func TestMessageStatus_IsTerminal(t *testing.T) {
	cases := []struct {
		status MessageStatus
		want   bool
	}{
		{StatusPending, false},
		{StatusProcessing, false},
		{StatusSent, true},
		{StatusError, true},
	}

	for _, tc := range cases {
		if got := tc.status.IsTerminal(); got != tc.want {
			t.Errorf("%s.IsTerminal() = %v, want %v", tc.status, got, tc.want)
		}
	}
}

// --- Message Tests ---

func TestMessage_IsDue(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	past := &Message{ScheduledAtUTC: now.Add(-time.Minute)}
	exact := &Message{ScheduledAtUTC: now}
	future := &Message{ScheduledAtUTC: now.Add(time.Minute)}

	if !past.IsDue(now) {
		t.Error("past message should be due")
	}
	if !exact.IsDue(now) {
		t.Error("message scheduled exactly now should be due")
	}
	if future.IsDue(now) {
		t.Error("future message should not be due")
	}
}

func TestMessage_CanRetry(t *testing.T) {
	m := &Message{Attempts: 2, MaxAttempts: 3}
	if !m.CanRetry() {
		t.Error("attempts below budget should allow retry")
	}

	m.Attempts = 3
	if m.CanRetry() {
		t.Error("exhausted budget should not allow retry")
	}
}

// --- Failure Tests ---

func TestFailure_Retryable(t *testing.T) {
	cases := []struct {
		kind FailureKind
		want bool
	}{
		{FailureTransient, true},
		{FailureValidation, false},
		{FailureTerminal, false},
		{FailureRecovery, false},
	}

	for _, tc := range cases {
		f := Failure{Kind: tc.kind}
		if got := f.Retryable(); got != tc.want {
			t.Errorf("Failure{Kind: %s}.Retryable() = %v, want %v", tc.kind, got, tc.want)
		}
	}
}

func TestErrorDetail_AppendOnNil(t *testing.T) {
	var d *ErrorDetail

	out := d.Append(Failure{Kind: FailureTransient, Message: "timeout"})
	if out == nil {
		t.Fatal("Append on nil should allocate")
	}
	if len(out.Failures) != 1 {
		t.Fatalf("len = %d, want 1", len(out.Failures))
	}
	if out.Failures[0].Message != "timeout" {
		t.Errorf("message = %q, want %q", out.Failures[0].Message, "timeout")
	}
}

func TestErrorDetail_AppendPreservesHistory(t *testing.T) {
	d := &ErrorDetail{Failures: []Failure{
		{Kind: FailureTransient, Message: "first", Attempt: 1},
		{Kind: FailureRecovery, Message: "recovered"},
	}}

	out := d.Append(Failure{Kind: FailureTerminal, Message: "rejected", Attempt: 2})

	if len(out.Failures) != 3 {
		t.Fatalf("len = %d, want 3", len(out.Failures))
	}
	if out.Failures[0].Message != "first" || out.Failures[1].Message != "recovered" {
		t.Error("earlier entries should be preserved in order")
	}

	// Исходная история не мутируется.
	if len(d.Failures) != 2 {
		t.Errorf("original len = %d, want 2", len(d.Failures))
	}
}

func TestErrorDetail_Last(t *testing.T) {
	var empty *ErrorDetail
	if _, ok := empty.Last(); ok {
		t.Error("Last on nil should report absence")
	}

	d := &ErrorDetail{Failures: []Failure{
		{Message: "first"},
		{Message: "second"},
	}}
	last, ok := d.Last()
	if !ok {
		t.Fatal("Last should find an entry")
	}
	if last.Message != "second" {
		t.Errorf("last message = %q, want %q", last.Message, "second")
	}
}

// --- Header Tests ---

func TestHeaderFormat_IsValid(t *testing.T) {
	valid := []HeaderFormat{HeaderFormatText, HeaderFormatImage, HeaderFormatVideo, HeaderFormatDocument}
	for _, f := range valid {
		if !f.IsValid() {
			t.Errorf("%s should be valid", f)
		}
	}

	if HeaderFormat("AUDIO").IsValid() {
		t.Error("unknown format should be invalid")
	}
}
