// ingest.go — оркестратор ингестии аудио-вложений.
// Конвейер: валидация → резолв file_path → вывод ключа хранения →
// streaming download+upload → запись индекса. Каждый шаг — жёсткий гейт:
// сбой останавливает конвейер и возвращает структурированный Outcome.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/audiovault/internal/domain/model"
	"github.com/bigkaa/audiovault/internal/index"
	"github.com/bigkaa/audiovault/internal/storage"
)

// Расширение по умолчанию, когда resolved file_path не содержит суффикса.
const defaultExtension = ".ogg"

// Prometheus-метрики ингестии.
var (
	ingestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "av_ingests_total",
		Help: "Общее количество ингестий аудио (по результату).",
	}, []string{"status"})

	ingestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "av_ingest_duration_seconds",
		Help:    "Длительность конвейера ингестии.",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
	})

	uploadBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "av_upload_bytes_total",
		Help: "Общее количество байт, загруженных в blob-хранилище.",
	})
)

// IngestService — оркестратор ингестии.
type IngestService struct {
	resolver FileResolver
	blobs    storage.BlobStore
	idx      index.MetadataIndex
	logger   *slog.Logger
}

// NewIngestService создаёт оркестратор ингестии.
func NewIngestService(
	resolver FileResolver,
	blobs storage.BlobStore,
	idx index.MetadataIndex,
	logger *slog.Logger,
) *IngestService {
	return &IngestService{
		resolver: resolver,
		blobs:    blobs,
		idx:      idx,
		logger:   logger.With(slog.String("component", "ingest_service")),
	}
}

// Ingest обрабатывает событие загрузки аудио.
//
// Конвейер строго последовательный (каждый шаг зависит от предыдущего):
//  1. Валидация: owner id и file_id обязательны.
//  2. Резолв file_id → file_path через Bot API.
//  3. Ключ хранения user_{owner}/{file_id}{ext} — детерминированный,
//     повторная ингестия перезаписывает тот же blob (идемпотентность).
//  4. Streaming download → upload, без материализации файла в памяти.
//     Неудачная загрузка не оставляет ни blob'а, ни записи.
//  5. Запись AudioRecord в индекс. Сбой здесь оставляет blob без записи —
//     компенсирующего удаления нет, ключ логируется для ручной сверки.
//
// Пользователь на пути ингестии не уведомляется: результат виден
// в acknowledgment, логах и метриках.
func (s *IngestService) Ingest(ctx context.Context, ev model.InboundEvent) Outcome {
	start := time.Now()

	// 1. Валидация обязательных полей
	if ev.OwnerID == 0 || ev.Audio == nil || ev.Audio.FileID == "" {
		ingestsTotal.WithLabelValues(string(OutcomeInvalidEvent)).Inc()
		s.logger.Warn("Событие ингестии отклонено: нет owner id или file_id")
		return Outcome{Code: OutcomeInvalidEvent, Ack: "Invalid audio request"}
	}

	audio := ev.Audio

	// 2. Резолв file_path
	filePath, err := s.resolver.ResolveFilePath(ctx, audio.FileID)
	if err != nil {
		ingestsTotal.WithLabelValues(string(OutcomeFetchInfoError)).Inc()
		s.logger.Error("Не удалось получить file_path из Telegram",
			slog.String("file_id", audio.FileID),
			slog.String("error", err.Error()),
		)
		return Outcome{
			Code: OutcomeFetchInfoError,
			Ack:  "Failed to get audio file from Telegram",
			Err:  fmt.Errorf("резолв file_id %s: %w", audio.FileID, err),
		}
	}

	// 3. Детерминированный ключ хранения
	key := storageKey(ev.OwnerID, audio.FileID, filePath)

	// 4. Streaming download → upload
	src, err := s.resolver.DownloadFile(ctx, filePath)
	if err != nil {
		ingestsTotal.WithLabelValues(string(OutcomeUploadError)).Inc()
		s.logger.Error("Не удалось скачать файл из Telegram",
			slog.String("file_path", filePath),
			slog.String("error", err.Error()),
		)
		return Outcome{
			Code: OutcomeUploadError,
			Ack:  "Failed to upload audio to S3",
			Err:  fmt.Errorf("скачивание %s: %w", filePath, err),
		}
	}
	defer src.Close()

	counted := &countingReader{r: src}
	if err := s.blobs.Put(ctx, key, counted); err != nil {
		ingestsTotal.WithLabelValues(string(OutcomeUploadError)).Inc()
		s.logger.Error("Не удалось загрузить файл в blob-хранилище",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return Outcome{
			Code: OutcomeUploadError,
			Ack:  "Failed to upload audio to S3",
			Err:  fmt.Errorf("загрузка %s: %w", key, err),
		}
	}
	uploadBytesTotal.Add(float64(counted.n))

	// 5. Запись индекса метаданных
	rec := &model.AudioRecord{
		RecordKey: model.RecordKey(ev.OwnerID, audio.FileID),
		FileID:    audio.FileID,
		S3URL:     s.blobs.URL(key),
		Caption:   audio.Caption,
		Timestamp: model.NowTimestamp(),
		Duration:  audio.Duration,
		Filename:  audio.FileName,
	}
	if err := s.idx.PutRecord(ctx, rec); err != nil {
		ingestsTotal.WithLabelValues(string(OutcomeMetadataError)).Inc()
		// Blob уже записан; компенсирующего удаления нет.
		// Логируем ключ для ручной сверки.
		s.logger.Error("Запись индекса не создана, blob остаётся без записи",
			slog.String("record_key", rec.RecordKey),
			slog.String("orphan_key", key),
			slog.String("error", err.Error()),
		)
		return Outcome{
			Code: OutcomeMetadataError,
			Ack:  "Failed to save metadata",
			Err:  fmt.Errorf("запись индекса %s: %w", rec.RecordKey, err),
		}
	}

	duration := time.Since(start)
	ingestsTotal.WithLabelValues(string(OutcomeSuccess)).Inc()
	ingestDuration.Observe(duration.Seconds())

	s.logger.Info("Аудио сохранено",
		slog.Int64("owner_id", ev.OwnerID),
		slog.String("record_key", rec.RecordKey),
		slog.String("key", key),
		slog.Int64("bytes", counted.n),
		slog.Duration("duration", duration),
	)

	return Outcome{Code: OutcomeSuccess, Ack: "Audio uploaded successfully"}
}

// storageKey выводит ключ blob-хранилища: user_{owner}/{file_id}{ext}.
// Расширение берётся из resolved file_path; без суффикса — .ogg.
func storageKey(ownerID int64, fileID, filePath string) string {
	ext := path.Ext(filePath)
	if ext == "" {
		ext = defaultExtension
	}
	return fmt.Sprintf("user_%d/%s%s", ownerID, fileID, ext)
}

// countingReader — обёртка io.Reader для подсчёта переданных байт.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
