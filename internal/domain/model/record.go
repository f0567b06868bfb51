// record.go — AudioRecord: строка индекса метаданных (DynamoDB).
package model

import (
	"fmt"
	"time"
)

// AudioRecord — запись сохранённого аудио-файла в индексе метаданных.
// Имена атрибутов совместимы с исходной таблицей.
//
// Инвариант: RecordKey начинается с "{owner_id}_" — это единственная
// граница доступа в системе. Скоупированный scan по begins_with(id, prefix)
// никогда не возвращает чужие записи. Запись создаётся ровно один раз
// после успешной загрузки blob'а, не обновляется и не удаляется.
type AudioRecord struct {
	// RecordKey — составной ключ "{owner_id}_{file_id}" (уникальность: одна
	// запись на пару владелец+файл, повторная ингестия перезаписывает)
	RecordKey string `dynamodbav:"id"`
	// FileID — opaque идентификатор файла в Telegram
	FileID string `dynamodbav:"file_id"`
	// S3URL — blob locator вида "s3://bucket/key" (невладеющая ссылка)
	S3URL string `dynamodbav:"s3_url"`
	// Caption — подпись сообщения
	Caption string `dynamodbav:"caption"`
	// Timestamp — время создания записи, UTC RFC3339
	Timestamp string `dynamodbav:"timestamp"`
	// Duration — длительность аудио в секундах
	Duration int `dynamodbav:"duration"`
	// Filename — заявленное имя файла
	Filename string `dynamodbav:"filename"`
}

// RecordKey строит составной ключ записи: "{owner_id}_{file_id}".
func RecordKey(ownerID int64, fileID string) string {
	return fmt.Sprintf("%d_%s", ownerID, fileID)
}

// OwnerPrefix — префикс ключей владельца для скоупинга поиска.
// Разделитель обязателен: begins_with("4") совпал бы с записями
// владельца 42, begins_with("4_") — нет.
func OwnerPrefix(ownerID int64) string {
	return fmt.Sprintf("%d_", ownerID)
}

// NowTimestamp — текущее время в формате хранения (UTC RFC3339).
func NowTimestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
