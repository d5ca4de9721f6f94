package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Courier/internal/domain"
	"github.com/shaiso/Courier/internal/repo"
)

// --- Fake store ---

type fakeStore struct {
	messages map[uuid.UUID]*domain.Message

	createErr  error
	requeueErr error
}

func newFakeStore(msgs ...*domain.Message) *fakeStore {
	s := &fakeStore{messages: make(map[uuid.UUID]*domain.Message)}
	for _, m := range msgs {
		s.messages[m.ID] = m
	}
	return s
}

func (s *fakeStore) CreateBatch(_ context.Context, msgs []*domain.Message) error {
	if s.createErr != nil {
		return s.createErr
	}
	for _, m := range msgs {
		s.messages[m.ID] = m
	}
	return nil
}

func (s *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Message, error) {
	m, ok := s.messages[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return m, nil
}

func (s *fakeStore) List(_ context.Context, filter repo.MessageFilter) ([]domain.Message, error) {
	var out []domain.Message
	for _, m := range s.messages {
		if filter.BatchID != nil && m.BatchID != *filter.BatchID {
			continue
		}
		if filter.Status != "" && m.Status != filter.Status {
			continue
		}
		out = append(out, *m)
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *fakeStore) BatchSummary(_ context.Context, batchID uuid.UUID) (map[domain.MessageStatus]int, error) {
	counts := make(map[domain.MessageStatus]int)
	for _, m := range s.messages {
		if m.BatchID == batchID {
			counts[m.Status]++
		}
	}
	return counts, nil
}

func (s *fakeStore) Requeue(_ context.Context, id uuid.UUID, now time.Time) error {
	if s.requeueErr != nil {
		return s.requeueErr
	}
	m, ok := s.messages[id]
	if !ok {
		return repo.ErrInvalidState
	}
	if m.Status != domain.StatusError {
		return repo.ErrInvalidState
	}
	m.Status = domain.StatusPending
	m.Attempts = 0
	m.UpdatedAt = now
	return nil
}

// --- Helpers ---

func testServer(store Store) *httptest.Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(Config{Store: store, Logger: logger})

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	return httptest.NewServer(mux)
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func decodeData(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()

	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&wrapper); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if err := json.Unmarshal(wrapper.Data, out); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}

// --- CreateBatch Tests ---

func TestCreateBatch_HappyPath(t *testing.T) {
	store := newFakeStore()
	srv := testServer(store)
	defer srv.Close()

	body := `{
		"sender_id": "123456789",
		"template_name": "order_update",
		"language_code": "pt_BR",
		"body_parameters": ["A-42"],
		"scheduled_at": "2026-09-01 10:30",
		"timezone": "America/Sao_Paulo",
		"recipients": [
			{"phone": "+55 11 99999-0000"},
			{"phone": "+5511988880000", "body_parameters": ["B-7"]},
			{"phone": "not-a-phone"}
		]
	}`

	resp := postJSON(t, srv.URL+"/api/v1/batches", body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	var batch BatchResponse
	decodeData(t, resp, &batch)

	if batch.Accepted != 2 {
		t.Errorf("accepted = %d, want 2", batch.Accepted)
	}
	if batch.Rejected != 1 {
		t.Errorf("rejected = %d, want 1", batch.Rejected)
	}
	if len(batch.RejectedRecipients) != 1 || batch.RejectedRecipients[0].Phone != "not-a-phone" {
		t.Errorf("rejected recipients = %+v", batch.RejectedRecipients)
	}

	// Sao Paulo UTC-3: 10:30 локального = 13:30 UTC.
	wantUTC := time.Date(2026, 9, 1, 13, 30, 0, 0, time.UTC)
	if !batch.ScheduledAtUTC.Equal(wantUTC) {
		t.Errorf("scheduled_at_utc = %v, want %v", batch.ScheduledAtUTC, wantUTC)
	}

	if len(store.messages) != 2 {
		t.Fatalf("stored messages = %d, want 2", len(store.messages))
	}
	for _, m := range store.messages {
		if m.Status != domain.StatusPending {
			t.Errorf("status = %s, want PENDING", m.Status)
		}
		if m.MaxAttempts != domain.DefaultMaxAttempts {
			t.Errorf("max attempts = %d, want default", m.MaxAttempts)
		}
		if m.BatchID != batch.BatchID {
			t.Errorf("batch id mismatch: %s", m.BatchID)
		}
		if !m.ScheduledAtUTC.Equal(wantUTC) {
			t.Errorf("message scheduled_at_utc = %v", m.ScheduledAtUTC)
		}
		switch m.Recipient {
		case "+5511999990000":
			// Общие параметры batch-уровня.
			if len(m.BodyParameters) != 1 || m.BodyParameters[0] != "A-42" {
				t.Errorf("body parameters = %v, want [A-42]", m.BodyParameters)
			}
		case "+5511988880000":
			// Индивидуальные параметры получателя.
			if len(m.BodyParameters) != 1 || m.BodyParameters[0] != "B-7" {
				t.Errorf("body parameters = %v, want [B-7]", m.BodyParameters)
			}
		default:
			t.Errorf("unexpected recipient %q", m.Recipient)
		}
	}
}

func TestCreateBatch_InvalidTimezoneRejectsWholeBatch(t *testing.T) {
	store := newFakeStore()
	srv := testServer(store)
	defer srv.Close()

	body := `{
		"sender_id": "123",
		"template_name": "greeting",
		"language_code": "en_US",
		"scheduled_at": "2026-09-01 10:30",
		"timezone": "Mars/Olympus_Mons",
		"recipients": [{"phone": "+5511999990000"}]
	}`

	resp := postJSON(t, srv.URL+"/api/v1/batches", body)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if len(store.messages) != 0 {
		t.Errorf("stored messages = %d, want 0 (nothing persisted)", len(store.messages))
	}
}

func TestCreateBatch_MissingFields(t *testing.T) {
	srv := testServer(newFakeStore())
	defer srv.Close()

	cases := []struct {
		name string
		body string
	}{
		{"no sender", `{"template_name":"t","language_code":"en","scheduled_at":"2026-09-01 10:30","timezone":"UTC","recipients":[{"phone":"+5511999990000"}]}`},
		{"no template", `{"sender_id":"1","language_code":"en","scheduled_at":"2026-09-01 10:30","timezone":"UTC","recipients":[{"phone":"+5511999990000"}]}`},
		{"no recipients", `{"sender_id":"1","template_name":"t","language_code":"en","scheduled_at":"2026-09-01 10:30","timezone":"UTC","recipients":[]}`},
		{"bad json", `{not json`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/api/v1/batches", tc.body)
			resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestCreateBatch_MediaHeaderRequiresURL(t *testing.T) {
	srv := testServer(newFakeStore())
	defer srv.Close()

	body := `{
		"sender_id": "123",
		"template_name": "invoice",
		"language_code": "en_US",
		"header": {"format": "document"},
		"scheduled_at": "2026-09-01 10:30",
		"timezone": "UTC",
		"recipients": [{"phone": "+5511999990000"}]
	}`

	resp := postJSON(t, srv.URL+"/api/v1/batches", body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

// --- BatchSummary Tests ---

func TestGetBatchSummary(t *testing.T) {
	batchID := uuid.New()
	mk := func(status domain.MessageStatus) *domain.Message {
		return &domain.Message{ID: uuid.New(), BatchID: batchID, Status: status}
	}

	store := newFakeStore(
		mk(domain.StatusPending),
		mk(domain.StatusPending),
		mk(domain.StatusSent),
		mk(domain.StatusError),
	)
	srv := testServer(store)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/batches/" + batchID.String())
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var summary BatchSummaryResponse
	decodeData(t, resp, &summary)

	if summary.Total != 4 || summary.Pending != 2 || summary.Sent != 1 || summary.Error != 1 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestGetBatchSummary_UnknownBatch(t *testing.T) {
	srv := testServer(newFakeStore())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/batches/" + uuid.NewString())
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}
