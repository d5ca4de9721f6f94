package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Courier/internal/domain"
	"github.com/shaiso/Courier/internal/mq"
	"github.com/shaiso/Courier/internal/repo"
)

// Store — операции хранилища, нужные API. Реализуется repo.MessageRepo.
type Store interface {
	CreateBatch(ctx context.Context, msgs []*domain.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error)
	List(ctx context.Context, filter repo.MessageFilter) ([]domain.Message, error)
	BatchSummary(ctx context.Context, batchID uuid.UUID) (map[domain.MessageStatus]int, error)
	Requeue(ctx context.Context, id uuid.UUID, now time.Time) error
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	store     Store
	publisher *mq.Publisher
	logger    *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Store     Store
	Publisher *mq.Publisher // опционально
	Logger    *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		store:     cfg.Store,
		publisher: cfg.Publisher,
		logger:    cfg.Logger,
	}
}
