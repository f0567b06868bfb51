// search.go — оркестратор поиска и доставки файлов.
// Конвейер: валидация запроса → scan индекса → выбор первого совпадения
// с непустым locator'ом → presign → отправка документа.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/audiovault/internal/domain/model"
	"github.com/bigkaa/audiovault/internal/index"
	"github.com/bigkaa/audiovault/internal/storage"
)

// Prometheus-метрики поиска.
var (
	searchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "av_searches_total",
		Help: "Общее количество поисковых запросов (по результату).",
	}, []string{"status"})

	searchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "av_search_duration_seconds",
		Help:    "Длительность конвейера поиска.",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
	})
)

// SearchService — оркестратор поиска.
type SearchService struct {
	idx        index.MetadataIndex
	blobs      storage.BlobStore
	notifier   Notifier
	presignTTL time.Duration
	logger     *slog.Logger
}

// NewSearchService создаёт оркестратор поиска.
func NewSearchService(
	idx index.MetadataIndex,
	blobs storage.BlobStore,
	notifier Notifier,
	presignTTL time.Duration,
	logger *slog.Logger,
) *SearchService {
	return &SearchService{
		idx:        idx,
		blobs:      blobs,
		notifier:   notifier,
		presignTTL: presignTTL,
		logger:     logger.With(slog.String("component", "search_service")),
	}
}

// Search обрабатывает команду /search.
//
// За один вызов доставляется не более одного документа: первая запись
// с непустым locator'ом. Остальные совпадения не рассматриваются,
// при сбое доставки переход к следующей записи не выполняется.
// Записи с пустым locator'ом молча пропускаются.
//
// Все уведомления пользователю best-effort: сбой отправки логируется
// и не меняет бизнес-результат.
func (s *SearchService) Search(ctx context.Context, ev model.InboundEvent) Outcome {
	start := time.Now()

	if ev.Query == "" {
		searchesTotal.WithLabelValues(string(OutcomeMissingQuery)).Inc()
		s.notify(ctx, ev.OwnerID, "Please provide a search term after /search", ev.ReplyTo)
		return Outcome{Code: OutcomeMissingQuery, Ack: "Search term missing"}
	}

	records, err := s.idx.SearchByOwner(ctx, ev.OwnerID, ev.Query)
	if err != nil {
		searchesTotal.WithLabelValues(string(OutcomeIndexError)).Inc()
		s.logger.Error("Сбой поиска в индексе",
			slog.Int64("owner_id", ev.OwnerID),
			slog.String("query", ev.Query),
			slog.String("error", err.Error()),
		)
		s.notify(ctx, ev.OwnerID, "Error searching files", 0)
		return Outcome{
			Code: OutcomeIndexError,
			Ack:  "Search error",
			Err:  fmt.Errorf("поиск %q: %w", ev.Query, err),
		}
	}

	if len(records) == 0 {
		searchesTotal.WithLabelValues(string(OutcomeNoMatch)).Inc()
		s.notify(ctx, ev.OwnerID, fmt.Sprintf("No files found matching '%s'", ev.Query), ev.ReplyTo)
		return Outcome{Code: OutcomeNoMatch, Ack: "No matches found"}
	}

	for _, rec := range records {
		if rec.S3URL == "" {
			// Запись без locator'а недоставляема, пропускаем.
			continue
		}

		key := s.blobs.KeyFromURL(rec.S3URL)
		filename := path.Base(key)

		url, err := s.blobs.PresignGet(ctx, key, s.presignTTL)
		if err != nil {
			searchesTotal.WithLabelValues(string(OutcomeDispatchError)).Inc()
			s.logger.Error("Не удалось сгенерировать presigned URL",
				slog.String("record_key", rec.RecordKey),
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
			s.notify(ctx, ev.OwnerID, fmt.Sprintf("Error sending file %s", filename), ev.ReplyTo)
			return Outcome{
				Code: OutcomeDispatchError,
				Ack:  "Search error",
				Err:  fmt.Errorf("presign %s: %w", key, err),
			}
		}

		if err := s.notifier.SendDocument(ctx, ev.OwnerID, url, filename, rec.Caption, ev.ReplyTo); err != nil {
			searchesTotal.WithLabelValues(string(OutcomeDispatchError)).Inc()
			s.logger.Error("Не удалось отправить документ",
				slog.String("record_key", rec.RecordKey),
				slog.String("filename", filename),
				slog.String("error", err.Error()),
			)
			s.notify(ctx, ev.OwnerID, fmt.Sprintf("Error sending file %s", filename), ev.ReplyTo)
			return Outcome{
				Code: OutcomeDispatchError,
				Ack:  "Search error",
				Err:  fmt.Errorf("отправка документа %s: %w", filename, err),
			}
		}

		duration := time.Since(start)
		searchesTotal.WithLabelValues(string(OutcomeDelivered)).Inc()
		searchDuration.Observe(duration.Seconds())

		s.logger.Info("Документ доставлен",
			slog.Int64("owner_id", ev.OwnerID),
			slog.String("query", ev.Query),
			slog.String("record_key", rec.RecordKey),
			slog.String("filename", filename),
			slog.Duration("duration", duration),
		)
		return Outcome{Code: OutcomeDelivered, Ack: "Search completed"}
	}

	// Совпадения нашлись, но все без locator'а — доставлять нечего.
	searchesTotal.WithLabelValues(string(OutcomeSuccess)).Inc()
	s.logger.Warn("Все совпадения без locator'а",
		slog.Int64("owner_id", ev.OwnerID),
		slog.String("query", ev.Query),
		slog.Int("matches", len(records)),
	)
	return Outcome{Code: OutcomeSuccess, Ack: "Search completed"}
}

// notify отправляет сообщение пользователю. Best-effort: сбой логируется.
func (s *SearchService) notify(ctx context.Context, chatID int64, text string, replyTo int64) {
	if err := s.notifier.SendMessage(ctx, chatID, text, replyTo); err != nil {
		s.logger.Warn("Не удалось отправить уведомление",
			slog.Int64("chat_id", chatID),
			slog.String("error", err.Error()),
		)
	}
}
