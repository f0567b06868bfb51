// Пакет telegram — HTTP-клиент Telegram Bot API.
// Резолв file_id → file_path (getFile, с LRU-кэшем), streaming-скачивание
// файлов, отправка текстовых сообщений и документов (sendMessage, sendDocument).
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Лимит Telegram на длину caption при отправке документа.
const captionLimit = 1024

// Ошибки клиента Bot API.
var (
	// ErrNoFilePath — getFile вернул ответ без result.file_path.
	ErrNoFilePath = errors.New("ответ getFile не содержит file_path")
)

// Prometheus-метрики клиента.
var (
	fileCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "av_telegram_file_cache_hits_total",
		Help: "Общее количество попаданий в кэш резолва getFile.",
	})
	fileCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "av_telegram_file_cache_misses_total",
		Help: "Общее количество промахов кэша резолва getFile.",
	})
	apiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "av_telegram_api_requests_total",
		Help: "Количество запросов к Telegram Bot API (по методу и результату).",
	}, []string{"method", "status"})
)

// Client — HTTP-клиент Telegram Bot API.
// Резолв getFile кэшируется: file_path действителен минимум час,
// TTL кэша должен быть заметно меньше (см. config.FileCacheTTL).
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	fileCache  *expirable.LRU[string, string]
	logger     *slog.Logger
}

// New создаёт клиент Bot API.
// baseURL — базовый URL API (в тестах — httptest-сервер).
// timeout — таймаут HTTP-запросов; применяется и к скачиванию файлов.
func New(baseURL, token string, timeout time.Duration, cacheSize int, cacheTTL time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
			},
		},
		baseURL:   normalizeURL(baseURL),
		token:     token,
		fileCache: expirable.NewLRU[string, string](cacheSize, nil, cacheTTL),
		logger:    logger.With(slog.String("component", "telegram_client")),
	}
}

// getFileResponse — ответ метода getFile.
type getFileResponse struct {
	OK     bool `json:"ok"`
	Result *struct {
		FilePath string `json:"file_path"`
	} `json:"result"`
}

// apiResponse — общий ответ Bot API (для sendMessage/sendDocument).
type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// ResolveFilePath резолвит file_id в file_path через getFile.
// Результат кэшируется (LRU с TTL).
func (c *Client) ResolveFilePath(ctx context.Context, fileID string) (string, error) {
	if path, ok := c.fileCache.Get(fileID); ok {
		fileCacheHitsTotal.Inc()
		return path, nil
	}
	fileCacheMissesTotal.Inc()

	reqURL := fmt.Sprintf("%s/bot%s/getFile?file_id=%s", c.baseURL, c.token, fileID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("создание запроса getFile: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		apiRequestsTotal.WithLabelValues("getFile", "error").Inc()
		return "", fmt.Errorf("запрос getFile: %w", err)
	}
	defer resp.Body.Close()

	apiRequestsTotal.WithLabelValues("getFile", strconv.Itoa(resp.StatusCode)).Inc()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("getFile вернул статус %d", resp.StatusCode)
	}

	var parsed getFileResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("разбор ответа getFile: %w", err)
	}
	if !parsed.OK || parsed.Result == nil || parsed.Result.FilePath == "" {
		return "", ErrNoFilePath
	}

	c.fileCache.Add(fileID, parsed.Result.FilePath)

	c.logger.Debug("file_path получен",
		slog.String("file_id", fileID),
		slog.String("file_path", parsed.Result.FilePath),
	)

	return parsed.Result.FilePath, nil
}

// DownloadFile скачивает файл по file_path.
// Возвращает io.ReadCloser — вызывающий код ОБЯЗАН закрыть его.
// Тело не буферизуется: аудио-файлы бывают большими, передача идёт потоком.
func (c *Client) DownloadFile(ctx context.Context, filePath string) (io.ReadCloser, error) {
	reqURL := fmt.Sprintf("%s/file/bot%s/%s", c.baseURL, c.token, filePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("создание запроса скачивания: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		apiRequestsTotal.WithLabelValues("downloadFile", "error").Inc()
		return nil, fmt.Errorf("скачивание файла %s: %w", filePath, err)
	}

	apiRequestsTotal.WithLabelValues("downloadFile", strconv.Itoa(resp.StatusCode)).Inc()
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("скачивание файла %s: статус %d", filePath, resp.StatusCode)
	}

	// Не закрываем resp.Body — вызывающий код отвечает за это (streaming)
	return resp.Body, nil
}

// SendMessage отправляет текстовое сообщение пользователю.
// replyTo — message_id для ответа (0 — без ответа).
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, replyTo int64) error {
	payload := map[string]any{
		"chat_id": chatID,
		"text":    text,
	}
	if replyTo != 0 {
		payload["reply_to_message_id"] = replyTo
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("сериализация sendMessage: %w", err)
	}

	reqURL := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("создание запроса sendMessage: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		apiRequestsTotal.WithLabelValues("sendMessage", "error").Inc()
		return fmt.Errorf("запрос sendMessage: %w", err)
	}
	defer resp.Body.Close()

	apiRequestsTotal.WithLabelValues("sendMessage", strconv.Itoa(resp.StatusCode)).Inc()
	return checkAPIResponse("sendMessage", resp)
}

// SendDocument отправляет документ пользователю.
// Файл скачивается по documentURL (обычно presigned GET) и передаётся
// в Telegram потоком через multipart, без буферизации в памяти.
// caption обрезается до 1024 символов (лимит Telegram).
func (c *Client) SendDocument(ctx context.Context, chatID int64, documentURL, filename, caption string, replyTo int64) error {
	srcReq, err := http.NewRequestWithContext(ctx, http.MethodGet, documentURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("создание запроса скачивания документа: %w", err)
	}

	src, err := c.httpClient.Do(srcReq)
	if err != nil {
		return fmt.Errorf("скачивание документа: %w", err)
	}
	defer src.Body.Close()

	if src.StatusCode != http.StatusOK {
		return fmt.Errorf("скачивание документа: статус %d", src.StatusCode)
	}

	// multipart-тело формируется в горутине и читается запросом через pipe
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		err := writeDocumentForm(mw, src.Body, chatID, filename, caption, replyTo)
		if cerr := mw.Close(); err == nil {
			err = cerr
		}
		pw.CloseWithError(err)
	}()

	reqURL := fmt.Sprintf("%s/bot%s/sendDocument", c.baseURL, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, pr)
	if err != nil {
		return fmt.Errorf("создание запроса sendDocument: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		apiRequestsTotal.WithLabelValues("sendDocument", "error").Inc()
		return fmt.Errorf("запрос sendDocument: %w", err)
	}
	defer resp.Body.Close()

	apiRequestsTotal.WithLabelValues("sendDocument", strconv.Itoa(resp.StatusCode)).Inc()
	return checkAPIResponse("sendDocument", resp)
}

// writeDocumentForm записывает поля multipart-формы sendDocument.
func writeDocumentForm(mw *multipart.Writer, doc io.Reader, chatID int64, filename, caption string, replyTo int64) error {
	if err := mw.WriteField("chat_id", strconv.FormatInt(chatID, 10)); err != nil {
		return err
	}
	if err := mw.WriteField("caption", TruncateCaption(caption)); err != nil {
		return err
	}
	if replyTo != 0 {
		if err := mw.WriteField("reply_to_message_id", strconv.FormatInt(replyTo, 10)); err != nil {
			return err
		}
	}

	part, err := mw.CreateFormFile("document", filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, doc); err != nil {
		return fmt.Errorf("передача документа: %w", err)
	}
	return nil
}

// checkAPIResponse проверяет HTTP-статус и поле ok ответа Bot API.
func checkAPIResponse(method string, resp *http.Response) error {
	var parsed apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("%s вернул статус %d", method, resp.StatusCode)
		}
		return fmt.Errorf("разбор ответа %s: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK || !parsed.OK {
		return fmt.Errorf("%s отклонён: статус %d, %s", method, resp.StatusCode, parsed.Description)
	}
	return nil
}

// TruncateCaption обрезает caption до лимита Telegram (1024 символа).
// Обрезка по рунам, чтобы не разрезать многобайтовый символ.
func TruncateCaption(caption string) string {
	runes := []rune(caption)
	if len(runes) <= captionLimit {
		return caption
	}
	return string(runes[:captionLimit])
}

// normalizeURL убирает trailing slash из URL.
func normalizeURL(rawURL string) string {
	for len(rawURL) > 0 && rawURL[len(rawURL)-1] == '/' {
		rawURL = rawURL[:len(rawURL)-1]
	}
	return rawURL
}
