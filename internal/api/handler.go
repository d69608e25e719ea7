package api

import (
	"log/slog"

	"github.com/shaiso/Gridflow/internal/mq"
	"github.com/shaiso/Gridflow/internal/process"
	"github.com/shaiso/Gridflow/internal/record"
)

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	store     *record.Store
	registry  *process.Registry
	publisher *mq.Publisher
	logger    *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Store     *record.Store
	Registry  *process.Registry
	Publisher *mq.Publisher
	Logger    *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		store:     cfg.Store,
		registry:  cfg.Registry,
		publisher: cfg.Publisher,
		logger:    cfg.Logger,
	}
}
