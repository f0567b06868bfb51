package model

import (
	"testing"
)

// TestClassify_EmptyBody проверяет классификацию пустого тела.
func TestClassify_EmptyBody(t *testing.T) {
	ev := Classify(nil)

	if ev.Kind != EventMalformed {
		t.Errorf("Kind = %d, ожидался EventMalformed", ev.Kind)
	}
	if ev.Diag != "Invalid request" {
		t.Errorf("Diag = %q, ожидался %q", ev.Diag, "Invalid request")
	}
}

// TestClassify_InvalidJSON проверяет классификацию неразбираемого JSON.
func TestClassify_InvalidJSON(t *testing.T) {
	ev := Classify([]byte("{not json"))

	if ev.Kind != EventMalformed {
		t.Errorf("Kind = %d, ожидался EventMalformed", ev.Kind)
	}
	if ev.Diag != "Invalid JSON format" {
		t.Errorf("Diag = %q, ожидался %q", ev.Diag, "Invalid JSON format")
	}
}

// TestClassify_NoMessage проверяет update без message (например, edited_message).
func TestClassify_NoMessage(t *testing.T) {
	ev := Classify([]byte(`{"update_id": 1}`))

	if ev.Kind != EventMalformed {
		t.Errorf("Kind = %d, ожидался EventMalformed", ev.Kind)
	}
	if ev.Diag != "No audio found in the request" {
		t.Errorf("Diag = %q, ожидался %q", ev.Diag, "No audio found in the request")
	}
}

// TestClassify_SearchCommand проверяет разбор команды /search:
// остаток обрезается по пробелам.
func TestClassify_SearchCommand(t *testing.T) {
	body := []byte(`{
		"update_id": 1,
		"message": {
			"message_id": 77,
			"from": {"id": 42},
			"text": "/search   beatles  "
		}
	}`)

	ev := Classify(body)

	if ev.Kind != EventSearchCommand {
		t.Fatalf("Kind = %d, ожидался EventSearchCommand", ev.Kind)
	}
	if ev.OwnerID != 42 {
		t.Errorf("OwnerID = %d, ожидался 42", ev.OwnerID)
	}
	if ev.ReplyTo != 77 {
		t.Errorf("ReplyTo = %d, ожидался 77", ev.ReplyTo)
	}
	if ev.Query != "beatles" {
		t.Errorf("Query = %q, ожидался %q", ev.Query, "beatles")
	}
}

// TestClassify_SearchCommand_EmptyQuery проверяет /search без запроса:
// событие остаётся командой поиска с пустым Query.
func TestClassify_SearchCommand_EmptyQuery(t *testing.T) {
	body := []byte(`{"message": {"message_id": 5, "from": {"id": 1}, "text": "/search"}}`)

	ev := Classify(body)

	if ev.Kind != EventSearchCommand {
		t.Fatalf("Kind = %d, ожидался EventSearchCommand", ev.Kind)
	}
	if ev.Query != "" {
		t.Errorf("Query = %q, ожидался пустой", ev.Query)
	}
}

// TestClassify_SearchCaseSensitive проверяет регистрозависимость команды:
// /Search — не команда поиска.
func TestClassify_SearchCaseSensitive(t *testing.T) {
	body := []byte(`{"message": {"message_id": 5, "from": {"id": 1}, "text": "/Search abba"}}`)

	ev := Classify(body)

	if ev.Kind != EventMalformed {
		t.Errorf("Kind = %d, ожидался EventMalformed", ev.Kind)
	}
}

// TestClassify_AudioUpload проверяет классификацию аудио-вложения.
func TestClassify_AudioUpload(t *testing.T) {
	body := []byte(`{
		"update_id": 2,
		"message": {
			"message_id": 10,
			"from": {"id": 42},
			"caption": "my song",
			"audio": {"file_id": "abc", "duration": 180, "file_name": "song.mp3"}
		}
	}`)

	ev := Classify(body)

	if ev.Kind != EventAudioUpload {
		t.Fatalf("Kind = %d, ожидался EventAudioUpload", ev.Kind)
	}
	if ev.Audio == nil {
		t.Fatal("Audio = nil, ожидался дескриптор")
	}
	if ev.Audio.FileID != "abc" {
		t.Errorf("FileID = %q, ожидался %q", ev.Audio.FileID, "abc")
	}
	if ev.Audio.Duration != 180 {
		t.Errorf("Duration = %d, ожидался 180", ev.Audio.Duration)
	}
	if ev.Audio.FileName != "song.mp3" {
		t.Errorf("FileName = %q, ожидался %q", ev.Audio.FileName, "song.mp3")
	}
	if ev.Audio.Caption != "my song" {
		t.Errorf("Caption = %q, ожидался %q", ev.Audio.Caption, "my song")
	}
}

// TestClassify_SearchPrecedence проверяет приоритет команды поиска:
// сообщение с текстом /search и аудио классифицируется как поиск.
func TestClassify_SearchPrecedence(t *testing.T) {
	body := []byte(`{
		"message": {
			"message_id": 3,
			"from": {"id": 7},
			"text": "/search jazz",
			"audio": {"file_id": "xyz"}
		}
	}`)

	ev := Classify(body)

	if ev.Kind != EventSearchCommand {
		t.Errorf("Kind = %d, ожидался EventSearchCommand", ev.Kind)
	}
	if ev.Query != "jazz" {
		t.Errorf("Query = %q, ожидался %q", ev.Query, "jazz")
	}
}

// TestClassify_TextOnly проверяет обычное текстовое сообщение без аудио.
func TestClassify_TextOnly(t *testing.T) {
	body := []byte(`{"message": {"message_id": 9, "from": {"id": 42}, "text": "hello"}}`)

	ev := Classify(body)

	if ev.Kind != EventMalformed {
		t.Errorf("Kind = %d, ожидался EventMalformed", ev.Kind)
	}
	if ev.Diag != "No audio found in the request" {
		t.Errorf("Diag = %q, ожидался %q", ev.Diag, "No audio found in the request")
	}
}

// TestRecordKey проверяет построение составного ключа записи.
func TestRecordKey(t *testing.T) {
	if got := RecordKey(42, "abc"); got != "42_abc" {
		t.Errorf("RecordKey = %q, ожидался %q", got, "42_abc")
	}
}

// TestOwnerPrefix проверяет, что префикс владельца содержит разделитель:
// ключи владельца 42 не совпадают с префиксом владельца 4.
func TestOwnerPrefix(t *testing.T) {
	prefix4 := OwnerPrefix(4)
	key42 := RecordKey(42, "abc")

	if prefix4 != "4_" {
		t.Errorf("OwnerPrefix = %q, ожидался %q", prefix4, "4_")
	}
	if len(key42) >= len(prefix4) && key42[:len(prefix4)] == prefix4 {
		t.Errorf("ключ %q совпадает с префиксом %q — утечка между владельцами", key42, prefix4)
	}
}
