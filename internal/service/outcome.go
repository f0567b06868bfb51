// Пакет service — бизнес-логика audiovault: оркестраторы ингестии и поиска.
// outcome.go — явные результаты оркестраторов. Ни один сбой конвейера
// не поднимается до транспортного уровня: webhook всегда отвечает 200,
// бизнес-результат передаётся телом acknowledgment и метриками.
package service

import (
	"context"
	"io"
)

// OutcomeCode — код результата оркестратора (таксономия ошибок конвейера).
type OutcomeCode string

const (
	// OutcomeSuccess — конвейер завершён успешно.
	OutcomeSuccess OutcomeCode = "success"
	// OutcomeInvalidEvent — отсутствуют обязательные поля события.
	OutcomeInvalidEvent OutcomeCode = "invalid_event"
	// OutcomeFetchInfoError — Telegram не вернул скачиваемый file_path.
	OutcomeFetchInfoError OutcomeCode = "fetch_info_error"
	// OutcomeUploadError — сбой скачивания или записи в blob-хранилище.
	OutcomeUploadError OutcomeCode = "upload_error"
	// OutcomeMetadataError — blob записан, но запись индекса не создана.
	// Компенсирующего удаления нет: blob остаётся без записи,
	// ключ логируется для ручной сверки.
	OutcomeMetadataError OutcomeCode = "metadata_error"
	// OutcomeMissingQuery — /search без поискового запроса.
	OutcomeMissingQuery OutcomeCode = "missing_query"
	// OutcomeNoMatch — поиск не нашёл записей.
	OutcomeNoMatch OutcomeCode = "no_match"
	// OutcomeIndexError — сбой scan индекса.
	OutcomeIndexError OutcomeCode = "index_error"
	// OutcomeDispatchError — presign или отправка документа не удались.
	OutcomeDispatchError OutcomeCode = "dispatch_error"
	// OutcomeDelivered — документ отправлен пользователю.
	OutcomeDelivered OutcomeCode = "delivered"
)

// Outcome — результат работы оркестратора.
type Outcome struct {
	// Code — код результата для логов и метрик
	Code OutcomeCode
	// Ack — тело acknowledgment для транспортного уровня
	Ack string
	// Err — исходная ошибка (nil при успехе)
	Err error
}

// FileResolver — резолв и скачивание файлов Telegram (подмножество telegram.Client).
type FileResolver interface {
	// ResolveFilePath резолвит file_id в скачиваемый file_path.
	ResolveFilePath(ctx context.Context, fileID string) (string, error)
	// DownloadFile возвращает поток содержимого файла; вызывающий код закрывает его.
	DownloadFile(ctx context.Context, filePath string) (io.ReadCloser, error)
}

// Notifier — отправка ответов пользователю (подмножество telegram.Client).
// Обе операции best-effort: ошибки логируются вызывающим кодом
// и никогда не меняют бизнес-результат.
type Notifier interface {
	SendMessage(ctx context.Context, chatID int64, text string, replyTo int64) error
	SendDocument(ctx context.Context, chatID int64, documentURL, filename, caption string, replyTo int64) error
}
