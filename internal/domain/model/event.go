// Пакет model — доменные модели audiovault.
// event.go — типизированный Telegram-конверт и классификация входящих событий.
package model

import (
	"encoding/json"
	"strings"
)

// searchPrefix — префикс команды поиска. Сравнение регистрозависимое.
const searchPrefix = "/search"

// Update — конверт Telegram webhook (подмножество Bot API Update).
// Все поля опциональны: отсутствующие ключи не являются ошибкой парсинга.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

// Message — входящее сообщение чата.
type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from"`
	Text      string `json:"text"`
	Caption   string `json:"caption"`
	Audio     *Audio `json:"audio"`
}

// User — отправитель сообщения. ID используется как owner id
// для ключей хранения и скоупинга поиска.
type User struct {
	ID int64 `json:"id"`
}

// Audio — аудио-вложение сообщения.
type Audio struct {
	FileID   string `json:"file_id"`
	Duration int    `json:"duration"`
	FileName string `json:"file_name"`
}

// EventKind — вариант входящего события.
type EventKind int

const (
	// EventMalformed — тело не разобрано или не содержит ни аудио, ни команды поиска.
	EventMalformed EventKind = iota
	// EventAudioUpload — загрузка аудио-вложения.
	EventAudioUpload
	// EventSearchCommand — команда /search.
	EventSearchCommand
)

// AudioDescriptor — описание аудио-вложения для конвейера ингестии.
type AudioDescriptor struct {
	// FileID — opaque идентификатор файла в Telegram
	FileID string
	// Duration — длительность в секундах (неотрицательная)
	Duration int
	// FileName — заявленное имя файла (может быть пустым)
	FileName string
	// Caption — подпись сообщения (может быть пустой; при повторной
	// отправке обрезается до 1024 символов на стороне Notifier)
	Caption string
}

// InboundEvent — размеченное объединение входящих webhook-событий.
// Создаётся один раз на вызов webhook, неизменяемо.
type InboundEvent struct {
	Kind EventKind
	// OwnerID — идентификатор отправителя (0, если отсутствует)
	OwnerID int64
	// ReplyTo — message_id для ответа (0, если отсутствует)
	ReplyTo int64
	// Audio — дескриптор вложения (только EventAudioUpload)
	Audio *AudioDescriptor
	// Query — текст поиска после /search, обрезанный по пробелам
	// (только EventSearchCommand; может быть пустым)
	Query string
	// Diag — диагностика для тела acknowledgment (только EventMalformed)
	Diag string
}

// Classify разбирает сырое тело webhook и классифицирует событие.
// Тотальный парсер: никогда не возвращает ошибку, отсутствующие
// опциональные поля не считаются сбоем. Команда /search имеет
// приоритет над аудио-вложением (поведение исходного бота).
func Classify(body []byte) InboundEvent {
	if len(body) == 0 {
		return InboundEvent{Kind: EventMalformed, Diag: "Invalid request"}
	}

	var upd Update
	if err := json.Unmarshal(body, &upd); err != nil {
		return InboundEvent{Kind: EventMalformed, Diag: "Invalid JSON format"}
	}

	msg := upd.Message
	if msg == nil {
		return InboundEvent{Kind: EventMalformed, Diag: "No audio found in the request"}
	}

	var ownerID int64
	if msg.From != nil {
		ownerID = msg.From.ID
	}

	// Команда поиска: литеральный префикс /search, остаток — запрос
	if strings.HasPrefix(msg.Text, searchPrefix) {
		return InboundEvent{
			Kind:    EventSearchCommand,
			OwnerID: ownerID,
			ReplyTo: msg.MessageID,
			Query:   strings.TrimSpace(strings.TrimPrefix(msg.Text, searchPrefix)),
		}
	}

	// Аудио-вложение
	if msg.Audio != nil {
		return InboundEvent{
			Kind:    EventAudioUpload,
			OwnerID: ownerID,
			ReplyTo: msg.MessageID,
			Audio: &AudioDescriptor{
				FileID:   msg.Audio.FileID,
				Duration: msg.Audio.Duration,
				FileName: msg.Audio.FileName,
				Caption:  msg.Caption,
			},
		}
	}

	return InboundEvent{
		Kind:    EventMalformed,
		OwnerID: ownerID,
		Diag:    "No audio found in the request",
	}
}
