// handler.go — основной обработчик API audiovault.
// Объединяет webhook-endpoint и health endpoints, делегируя
// бизнес-логику в сервисный слой.
package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/audiovault/internal/domain/model"
	"github.com/bigkaa/audiovault/internal/service"
)

// Ingester — конвейер ингестии аудио.
type Ingester interface {
	Ingest(ctx context.Context, ev model.InboundEvent) service.Outcome
}

// Searcher — конвейер поиска и доставки.
type Searcher interface {
	Search(ctx context.Context, ev model.InboundEvent) service.Outcome
}

// PayloadArchiver — архив сырых webhook-payload'ов (nil — архив отключён).
type PayloadArchiver interface {
	Store(ctx context.Context, payload []byte) error
}

// APIHandler — основной обработчик API audiovault.
type APIHandler struct {
	health   *HealthHandler
	ingest   Ingester
	search   Searcher
	archiver PayloadArchiver
	logger   *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
// archiver может быть nil — архивирование payload'ов пропускается.
func NewAPIHandler(
	health *HealthHandler,
	ingest Ingester,
	search Searcher,
	archiver PayloadArchiver,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:   health,
		ingest:   ingest,
		search:   search,
		archiver: archiver,
		logger:   logger.With(slog.String("component", "api_handler")),
	}
}

// Register регистрирует маршруты на chi-роутере.
func (h *APIHandler) Register(r chi.Router) {
	r.Post("/webhook", h.Webhook)
	r.Get("/health/live", h.health.HealthLive)
	r.Get("/health/ready", h.health.HealthReady)
	r.Get("/metrics", h.health.GetMetrics)
}

// writeAck записывает acknowledgment: всегда 200, plain text.
func writeAck(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}
