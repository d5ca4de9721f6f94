package api

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Courier/internal/domain"
)

func TestGetMessage(t *testing.T) {
	msg := &domain.Message{
		ID:        uuid.New(),
		BatchID:   uuid.New(),
		Recipient: "+5511999990000",
		Status:    domain.StatusSent,
		Attempts:  1,
	}

	srv := testServer(newFakeStore(msg))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/messages/" + msg.ID.String())
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var got MessageResponse
	decodeData(t, resp, &got)

	if got.ID != msg.ID {
		t.Errorf("id = %s, want %s", got.ID, msg.ID)
	}
	if got.Status != "SENT" {
		t.Errorf("status = %q, want SENT", got.Status)
	}
}

func TestGetMessage_NotFound(t *testing.T) {
	srv := testServer(newFakeStore())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/messages/" + uuid.NewString())
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestGetMessage_InvalidID(t *testing.T) {
	srv := testServer(newFakeStore())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/messages/not-a-uuid")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestListMessages_StatusFilter(t *testing.T) {
	batchID := uuid.New()
	store := newFakeStore(
		&domain.Message{ID: uuid.New(), BatchID: batchID, Status: domain.StatusPending},
		&domain.Message{ID: uuid.New(), BatchID: batchID, Status: domain.StatusError},
		&domain.Message{ID: uuid.New(), BatchID: batchID, Status: domain.StatusError},
	)
	srv := testServer(store)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/messages?status=ERROR")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var wrapper struct {
		Data  []MessageResponse `json:"data"`
		Total int               `json:"total"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&wrapper); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if wrapper.Total != 2 || len(wrapper.Data) != 2 {
		t.Fatalf("total = %d, len = %d, want 2", wrapper.Total, len(wrapper.Data))
	}
	for _, m := range wrapper.Data {
		if m.Status != "ERROR" {
			t.Errorf("status = %q, want ERROR", m.Status)
		}
	}
}

func TestListBatchMessages(t *testing.T) {
	batchID := uuid.New()
	store := newFakeStore(
		&domain.Message{ID: uuid.New(), BatchID: batchID, Status: domain.StatusPending},
		&domain.Message{ID: uuid.New(), BatchID: uuid.New(), Status: domain.StatusPending},
	)
	srv := testServer(store)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/batches/" + batchID.String() + "/messages")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var wrapper struct {
		Data []MessageResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&wrapper); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(wrapper.Data) != 1 {
		t.Fatalf("len = %d, want 1 (other batch excluded)", len(wrapper.Data))
	}
	if wrapper.Data[0].BatchID != batchID {
		t.Errorf("batch id = %s, want %s", wrapper.Data[0].BatchID, batchID)
	}
}

// --- Requeue Tests ---

func TestRequeueMessage(t *testing.T) {
	msg := &domain.Message{
		ID:          uuid.New(),
		BatchID:     uuid.New(),
		Status:      domain.StatusError,
		Attempts:    3,
		MaxAttempts: 3,
		UpdatedAt:   time.Now().Add(-time.Hour),
	}

	store := newFakeStore(msg)
	srv := testServer(store)
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/api/v1/messages/"+msg.ID.String()+"/requeue", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var got MessageResponse
	decodeData(t, resp, &got)

	if got.Status != "PENDING" {
		t.Errorf("status = %q, want PENDING", got.Status)
	}
	if got.Attempts != 0 {
		t.Errorf("attempts = %d, want 0 (budget reset)", got.Attempts)
	}
}

func TestRequeueMessage_NotInErrorState(t *testing.T) {
	msg := &domain.Message{
		ID:      uuid.New(),
		BatchID: uuid.New(),
		Status:  domain.StatusSent,
	}

	srv := testServer(newFakeStore(msg))
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/api/v1/messages/"+msg.ID.String()+"/requeue", "")
	resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", resp.StatusCode)
	}
}
