package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Courier/internal/domain"
	"github.com/shaiso/Courier/internal/repo"
	"github.com/shaiso/Courier/internal/telemetry"
)

// ListMessages возвращает список сообщений с фильтрацией.
// GET /api/v1/messages?batch_id=...&status=...&limit=...&offset=...
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	filter := repo.MessageFilter{Limit: 50}

	if batchIDStr := r.URL.Query().Get("batch_id"); batchIDStr != "" {
		batchID, err := uuid.Parse(batchIDStr)
		if err != nil {
			BadRequest(w, "invalid batch_id")
			return
		}
		filter.BatchID = &batchID
	}

	if status := r.URL.Query().Get("status"); status != "" {
		filter.Status = domain.MessageStatus(status)
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
			filter.Limit = limit
		}
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil && offset >= 0 {
			filter.Offset = offset
		}
	}

	msgs, err := h.store.List(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]MessageResponse, len(msgs))
	for i := range msgs {
		result[i] = MessageFromDomain(&msgs[i])
	}

	List(w, result, len(result))
}

// ListBatchMessages возвращает все сообщения batch'а.
// GET /api/v1/batches/{id}/messages
func (h *Handler) ListBatchMessages(w http.ResponseWriter, r *http.Request) {
	batchID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid batch id")
		return
	}

	msgs, err := h.store.List(r.Context(), repo.MessageFilter{
		BatchID: &batchID,
		Limit:   1000,
	})
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]MessageResponse, len(msgs))
	for i := range msgs {
		result[i] = MessageFromDomain(&msgs[i])
	}

	List(w, result, len(result))
}

// GetMessage возвращает сообщение по ID.
// GET /api/v1/messages/{id}
func (h *Handler) GetMessage(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid message id")
		return
	}

	msg, err := h.store.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "message not found") {
		return
	}

	Success(w, MessageFromDomain(msg))
}

// RequeueMessage возвращает финально-ошибочное сообщение в очередь.
// Операторская операция: движок сам никогда не покидает ERROR.
// POST /api/v1/messages/{id}/requeue
func (h *Handler) RequeueMessage(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid message id")
		return
	}

	if err := h.store.Requeue(r.Context(), id, time.Now()); err != nil {
		if HandleRepoError(w, h.logger, err, "message not found") {
			return
		}
	}

	telemetry.FromContext(r.Context()).Info("message requeued by operator", "message_id", id)

	msg, err := h.store.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "message not found") {
		return
	}

	Success(w, MessageFromDomain(msg))
}
