package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Courier/internal/domain"
	"github.com/shaiso/Courier/internal/mq"
	"github.com/shaiso/Courier/internal/schedule"
	"github.com/shaiso/Courier/internal/telemetry"
)

// phoneRe — E.164-подобный номер: опциональный "+", 7-15 цифр,
// без ведущего нуля.
var phoneRe = regexp.MustCompile(`^\+?[1-9][0-9]{6,14}$`)

// CreateBatch принимает рассылку: одно шаблонное сообщение на каждого
// валидного получателя, одно общее время отправки.
// POST /api/v1/batches
//
// Невалидная таймзона или дата отклоняет весь batch (400) до записи
// хотя бы одной строки. Невалидные получатели отклоняются поштучно,
// счётчики возвращаются сразу в ответе.
func (h *Handler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	var req CreateBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if req.SenderID == "" {
		BadRequest(w, "sender_id is required")
		return
	}
	if req.TemplateName == "" {
		BadRequest(w, "template_name is required")
		return
	}
	if req.LanguageCode == "" {
		BadRequest(w, "language_code is required")
		return
	}
	if len(req.Recipients) == 0 {
		BadRequest(w, "recipients are required")
		return
	}

	header, err := headerFromRequest(req.Header)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	// Нормализация выполняется ровно один раз — здесь. Диспетчер дальше
	// сравнивает только с этим UTC-моментом.
	scheduledUTC, err := schedule.NormalizeLocal(req.ScheduledAt, req.Timezone)
	if err != nil {
		if errors.Is(err, schedule.ErrInvalidSchedule) {
			BadRequest(w, err.Error())
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	maxAttempts := req.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = domain.DefaultMaxAttempts
	}

	batchID := uuid.New()
	now := time.Now()

	var msgs []*domain.Message
	var rejected []RejectedRecipient

	for _, rec := range req.Recipients {
		phone := normalizePhone(rec.Phone)
		if !phoneRe.MatchString(phone) {
			rejected = append(rejected, RejectedRecipient{
				Phone:  rec.Phone,
				Reason: "invalid phone number",
			})
			continue
		}

		params := rec.BodyParameters
		if params == nil {
			params = req.BodyParameters
		}

		msgs = append(msgs, &domain.Message{
			ID:               uuid.New(),
			BatchID:          batchID,
			Recipient:        phone,
			SenderID:         req.SenderID,
			TemplateName:     req.TemplateName,
			LanguageCode:     req.LanguageCode,
			BodyParameters:   params,
			Header:           header,
			ScheduledAtLocal: req.ScheduledAt,
			Timezone:         req.Timezone,
			ScheduledAtUTC:   scheduledUTC,
			Status:           domain.StatusPending,
			MaxAttempts:      maxAttempts,
			CreatedAt:        now,
			UpdatedAt:        now,
		})
	}

	if len(msgs) > 0 {
		if err := h.store.CreateBatch(r.Context(), msgs); err != nil {
			InternalError(w, h.logger, err)
			return
		}
	}

	logger := telemetry.WithBatchID(telemetry.FromContext(r.Context()), batchID.String())
	logger.Info("batch accepted",
		"accepted", len(msgs),
		"rejected", len(rejected),
		"scheduled_at_utc", scheduledUTC,
	)

	if h.publisher != nil {
		err := h.publisher.PublishBatchCreated(r.Context(), mq.BatchCreatedPayload{
			BatchID:  batchID,
			Accepted: len(msgs),
			Rejected: len(rejected),
		})
		if err != nil {
			logger.Warn("failed to publish batch.created", "error", err)
		}
	}

	Created(w, BatchResponse{
		BatchID:            batchID,
		ScheduledAtUTC:     scheduledUTC,
		Accepted:           len(msgs),
		Rejected:           len(rejected),
		RejectedRecipients: rejected,
	})
}

// GetBatchSummary возвращает сводку по batch'у.
// GET /api/v1/batches/{id}
func (h *Handler) GetBatchSummary(w http.ResponseWriter, r *http.Request) {
	batchID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid batch id")
		return
	}

	summary, err := h.store.BatchSummary(r.Context(), batchID)
	if HandleRepoError(w, h.logger, err, "batch not found") {
		return
	}

	resp := BatchSummaryResponse{
		BatchID:    batchID,
		Pending:    summary[domain.StatusPending],
		Processing: summary[domain.StatusProcessing],
		Sent:       summary[domain.StatusSent],
		Error:      summary[domain.StatusError],
	}
	resp.Total = resp.Pending + resp.Processing + resp.Sent + resp.Error

	if resp.Total == 0 {
		NotFound(w, "batch not found")
		return
	}

	Success(w, resp)
}

// --- Helpers ---

// headerFromRequest валидирует и конвертирует header из запроса.
func headerFromRequest(req *HeaderRequest) (*domain.Header, error) {
	if req == nil {
		return nil, nil
	}

	format := domain.HeaderFormat(strings.ToUpper(req.Format))
	if !format.IsValid() {
		return nil, errors.New("header format must be TEXT, IMAGE, VIDEO or DOCUMENT")
	}
	if format != domain.HeaderFormatText && req.MediaURL == "" {
		return nil, errors.New("header media_url is required for media formats")
	}

	return &domain.Header{
		Format:    format,
		MediaURL:  req.MediaURL,
		MediaName: req.MediaName,
	}, nil
}

// normalizePhone убирает пробелы и дефисы из номера.
func normalizePhone(phone string) string {
	return strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(phone)
}
