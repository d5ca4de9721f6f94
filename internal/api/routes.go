package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
	)

	// Batches
	mux.Handle("POST /api/v1/batches", chain(http.HandlerFunc(h.CreateBatch)))
	mux.Handle("GET /api/v1/batches/{id}", chain(http.HandlerFunc(h.GetBatchSummary)))
	mux.Handle("GET /api/v1/batches/{id}/messages", chain(http.HandlerFunc(h.ListBatchMessages)))

	// Messages
	mux.Handle("GET /api/v1/messages", chain(http.HandlerFunc(h.ListMessages)))
	mux.Handle("GET /api/v1/messages/{id}", chain(http.HandlerFunc(h.GetMessage)))
	mux.Handle("POST /api/v1/messages/{id}/requeue", chain(http.HandlerFunc(h.RequeueMessage)))
}
