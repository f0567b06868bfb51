package telegram

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// newTestClient создаёт клиент, направленный на httptest-сервер.
func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := New(srv.URL, "test-token", 5*time.Second, 16, time.Minute, slog.Default())
	return client, srv
}

// TestResolveFilePath проверяет резолв file_id через getFile.
func TestResolveFilePath(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bottest-token/getFile" {
			t.Errorf("path = %q, ожидался %q", r.URL.Path, "/bottest-token/getFile")
		}
		if got := r.URL.Query().Get("file_id"); got != "abc" {
			t.Errorf("file_id = %q, ожидался %q", got, "abc")
		}
		_, _ = w.Write([]byte(`{"ok": true, "result": {"file_path": "music/abc.mp3"}}`))
	})

	path, err := client.ResolveFilePath(context.Background(), "abc")
	if err != nil {
		t.Fatalf("ResolveFilePath ошибка: %v", err)
	}
	if path != "music/abc.mp3" {
		t.Errorf("file_path = %q, ожидался %q", path, "music/abc.mp3")
	}
}

// TestResolveFilePath_Cached проверяет кэширование резолва:
// повторный вызов не обращается к API.
func TestResolveFilePath_Cached(t *testing.T) {
	callCount := 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		callCount++
		_, _ = w.Write([]byte(`{"ok": true, "result": {"file_path": "music/abc.mp3"}}`))
	})

	for i := 0; i < 3; i++ {
		if _, err := client.ResolveFilePath(context.Background(), "abc"); err != nil {
			t.Fatalf("вызов %d: ошибка: %v", i, err)
		}
	}

	if callCount != 1 {
		t.Errorf("запросов к API = %d, ожидался 1 (кэш)", callCount)
	}
}

// TestResolveFilePath_NoFilePath проверяет ответ getFile без file_path.
func TestResolveFilePath_NoFilePath(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"ok": true, "result": {}}`))
	})

	_, err := client.ResolveFilePath(context.Background(), "abc")
	if err != ErrNoFilePath {
		t.Errorf("err = %v, ожидался ErrNoFilePath", err)
	}
}

// TestResolveFilePath_APIError проверяет не-200 ответ getFile.
func TestResolveFilePath_APIError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"ok": false, "description": "file not found"}`))
	})

	if _, err := client.ResolveFilePath(context.Background(), "abc"); err == nil {
		t.Error("ожидалась ошибка при статусе 404")
	}
}

// TestDownloadFile проверяет streaming-скачивание файла.
func TestDownloadFile(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/file/bottest-token/music/abc.mp3" {
			t.Errorf("path = %q, ожидался %q", r.URL.Path, "/file/bottest-token/music/abc.mp3")
		}
		_, _ = w.Write([]byte("audio-bytes"))
	})

	rc, err := client.DownloadFile(context.Background(), "music/abc.mp3")
	if err != nil {
		t.Fatalf("DownloadFile ошибка: %v", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("чтение потока: %v", err)
	}
	if string(data) != "audio-bytes" {
		t.Errorf("содержимое = %q, ожидался %q", data, "audio-bytes")
	}
}

// TestDownloadFile_NotFound проверяет не-200 ответ при скачивании.
func TestDownloadFile_NotFound(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	if _, err := client.DownloadFile(context.Background(), "music/gone.mp3"); err == nil {
		t.Error("ожидалась ошибка при статусе 404")
	}
}

// TestSendMessage проверяет payload sendMessage, включая reply_to_message_id.
func TestSendMessage(t *testing.T) {
	var payload map[string]any
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bottest-token/sendMessage" {
			t.Errorf("path = %q, ожидался %q", r.URL.Path, "/bottest-token/sendMessage")
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("разбор payload: %v", err)
		}
		_, _ = w.Write([]byte(`{"ok": true}`))
	})

	if err := client.SendMessage(context.Background(), 42, "hello", 77); err != nil {
		t.Fatalf("SendMessage ошибка: %v", err)
	}

	if payload["chat_id"].(float64) != 42 {
		t.Errorf("chat_id = %v, ожидался 42", payload["chat_id"])
	}
	if payload["text"] != "hello" {
		t.Errorf("text = %v, ожидался %q", payload["text"], "hello")
	}
	if payload["reply_to_message_id"].(float64) != 77 {
		t.Errorf("reply_to_message_id = %v, ожидался 77", payload["reply_to_message_id"])
	}
}

// TestSendMessage_NoReply проверяет, что reply_to_message_id опускается при 0.
func TestSendMessage_NoReply(t *testing.T) {
	var payload map[string]any
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&payload)
		_, _ = w.Write([]byte(`{"ok": true}`))
	})

	if err := client.SendMessage(context.Background(), 42, "hello", 0); err != nil {
		t.Fatalf("SendMessage ошибка: %v", err)
	}
	if _, ok := payload["reply_to_message_id"]; ok {
		t.Error("reply_to_message_id присутствует, ожидалось отсутствие при replyTo=0")
	}
}

// TestSendMessage_APIRejected проверяет ответ ok=false при статусе 200.
func TestSendMessage_APIRejected(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"ok": false, "description": "chat not found"}`))
	})

	err := client.SendMessage(context.Background(), 42, "hello", 0)
	if err == nil {
		t.Fatal("ожидалась ошибка при ok=false")
	}
	if !strings.Contains(err.Error(), "chat not found") {
		t.Errorf("err = %v, ожидалось описание из ответа API", err)
	}
}

// TestSendDocument проверяет отправку документа: скачивание по URL
// и multipart-форму sendDocument.
func TestSendDocument(t *testing.T) {
	// Источник документа (имитация presigned URL)
	docSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("document-bytes"))
	}))
	defer docSrv.Close()

	var gotChatID, gotCaption, gotReplyTo, gotFilename, gotContent string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bottest-token/sendDocument" {
			t.Errorf("path = %q, ожидался %q", r.URL.Path, "/bottest-token/sendDocument")
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("разбор multipart: %v", err)
		}
		gotChatID = r.FormValue("chat_id")
		gotCaption = r.FormValue("caption")
		gotReplyTo = r.FormValue("reply_to_message_id")

		file, header, err := r.FormFile("document")
		if err != nil {
			t.Fatalf("поле document: %v", err)
		}
		defer file.Close()
		gotFilename = header.Filename
		data, _ := io.ReadAll(file)
		gotContent = string(data)

		_, _ = w.Write([]byte(`{"ok": true}`))
	})

	err := client.SendDocument(context.Background(), 42, docSrv.URL, "song.mp3", "my song", 77)
	if err != nil {
		t.Fatalf("SendDocument ошибка: %v", err)
	}

	if gotChatID != "42" {
		t.Errorf("chat_id = %q, ожидался %q", gotChatID, "42")
	}
	if gotCaption != "my song" {
		t.Errorf("caption = %q, ожидался %q", gotCaption, "my song")
	}
	if gotReplyTo != "77" {
		t.Errorf("reply_to_message_id = %q, ожидался %q", gotReplyTo, "77")
	}
	if gotFilename != "song.mp3" {
		t.Errorf("filename = %q, ожидался %q", gotFilename, "song.mp3")
	}
	if gotContent != "document-bytes" {
		t.Errorf("содержимое = %q, ожидался %q", gotContent, "document-bytes")
	}
}

// TestSendDocument_SourceError проверяет сбой скачивания документа по URL.
func TestSendDocument_SourceError(t *testing.T) {
	docSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer docSrv.Close()

	apiCalled := false
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		apiCalled = true
		_, _ = w.Write([]byte(`{"ok": true}`))
	})

	err := client.SendDocument(context.Background(), 42, docSrv.URL, "song.mp3", "", 0)
	if err == nil {
		t.Fatal("ожидалась ошибка при статусе 403 источника")
	}
	if apiCalled {
		t.Error("sendDocument вызван после сбоя скачивания источника")
	}
}

// TestTruncateCaption проверяет обрезку caption до лимита по рунам.
func TestTruncateCaption(t *testing.T) {
	short := "короткая подпись"
	if got := TruncateCaption(short); got != short {
		t.Errorf("короткая подпись изменена: %q", got)
	}

	// 2000 кириллических символов (многобайтовые руны)
	long := strings.Repeat("я", 2000)
	got := TruncateCaption(long)
	if runeCount := len([]rune(got)); runeCount != captionLimit {
		t.Errorf("длина = %d рун, ожидался %d", runeCount, captionLimit)
	}
	if got != strings.Repeat("я", captionLimit) {
		t.Error("обрезка повредила многобайтовые символы")
	}
}

// TestNormalizeURL проверяет удаление trailing slash.
func TestNormalizeURL(t *testing.T) {
	cases := map[string]string{
		"https://api.telegram.org":   "https://api.telegram.org",
		"https://api.telegram.org/":  "https://api.telegram.org",
		"https://api.telegram.org//": "https://api.telegram.org",
	}
	for in, want := range cases {
		if got := normalizeURL(in); got != want {
			t.Errorf("normalizeURL(%q) = %q, ожидался %q", in, got, want)
		}
	}
}
