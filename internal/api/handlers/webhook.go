// webhook.go — приём Telegram webhook update.
// Контракт endpoint'а: любой запрос получает 200, бизнес-результат
// передаётся телом acknowledgment. Не-200 заставил бы Telegram
// бесконечно ретраить update, который никогда не обработается.
package handlers

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/bigkaa/audiovault/internal/domain/model"
	"github.com/bigkaa/audiovault/internal/service"
)

// Лимит размера webhook-payload. Update — это JSON-метаданные
// (сам файл скачивается отдельно по file_id), 1 МБ хватает с запасом.
const maxPayloadBytes = 1 << 20

// Webhook обрабатывает POST /webhook.
// Порядок: чтение тела → архив (best-effort) → классификация →
// диспетчеризация в оркестратор по виду события.
func (h *APIHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	if err != nil {
		h.logger.Warn("Не удалось прочитать тело webhook",
			slog.String("error", err.Error()),
		)
		writeAck(w, "Invalid request")
		return
	}

	// Архив сырого payload'а — best-effort, до классификации:
	// невалидные payload'ы тоже представляют интерес при разборе инцидентов.
	if h.archiver != nil && len(body) > 0 {
		if err := h.archiver.Store(r.Context(), body); err != nil {
			h.logger.Warn("Payload не записан в архив",
				slog.String("error", err.Error()),
			)
		}
	}

	ev := model.Classify(body)

	var outcome service.Outcome
	switch ev.Kind {
	case model.EventSearchCommand:
		outcome = h.search.Search(r.Context(), ev)
	case model.EventAudioUpload:
		outcome = h.ingest.Ingest(r.Context(), ev)
	default:
		h.logger.Debug("Update без аудио и без команды поиска",
			slog.String("diag", ev.Diag),
		)
		writeAck(w, ev.Diag)
		return
	}

	if outcome.Err != nil {
		h.logger.Warn("Конвейер завершился с ошибкой",
			slog.String("outcome", string(outcome.Code)),
			slog.String("error", outcome.Err.Error()),
		)
	} else {
		h.logger.Debug("Конвейер завершён",
			slog.String("outcome", string(outcome.Code)),
		)
	}

	writeAck(w, outcome.Ack)
}
