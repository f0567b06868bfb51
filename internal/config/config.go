// Пакет config — загрузка и валидация конфигурации audiovault
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации audiovault.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- HTTP Server Timeouts ---

	// Таймаут чтения HTTP-сервера (по умолчанию 30s)
	HTTPReadTimeout time.Duration
	// Таймаут записи HTTP-сервера (по умолчанию 60s)
	HTTPWriteTimeout time.Duration
	// Таймаут простоя HTTP-сервера (по умолчанию 120s)
	HTTPIdleTimeout time.Duration

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown (по умолчанию 5s)
	ShutdownTimeout time.Duration

	// --- Telegram Bot API ---

	// Токен бота (обязательный)
	TelegramToken string
	// Базовый URL Bot API (переопределяется в тестах)
	TelegramAPIURL string
	// Таймаут HTTP-клиента Bot API (по умолчанию 60s — файлы бывают большими)
	TelegramTimeout time.Duration
	// Секрет webhook (X-Telegram-Bot-Api-Secret-Token); пусто — проверка отключена
	WebhookSecret string
	// Размер LRU-кэша резолва getFile
	FileCacheSize int
	// TTL кэша getFile; file_path действителен минимум час,
	// кэшируем заметно меньше
	FileCacheTTL time.Duration

	// --- Blob storage (S3) ---

	// Имя S3-бакета (обязательный)
	S3Bucket string
	// Кастомный S3/DynamoDB endpoint (MinIO, LocalStack); пусто — стандартный AWS
	AWSEndpoint string
	// Срок действия presigned GET URL (по умолчанию 1h)
	PresignTTL time.Duration

	// --- Индекс метаданных (DynamoDB) ---

	// Имя таблицы DynamoDB (обязательный)
	DynamoTable string

	// --- Архив payload'ов (PostgreSQL, опционально) ---

	// Хост PostgreSQL; пусто — архив отключён
	PGHost string
	// Порт PostgreSQL
	PGPort int
	// Имя базы данных
	PGDatabase string
	// Пользователь
	PGUser string
	// Пароль
	PGPassword string
	// Режим SSL (disable, require, verify-full)
	PGSSLMode string

	// --- Dephealth ---

	// Интервал проверки зависимостей
	DephealthCheckInterval time.Duration
	// Имя группы в метриках topologymetrics
	DephealthGroup string
	// Лейбл isentry=yes для всех зависимостей
	DephealthIsEntry bool
}

// ArchiveEnabled сообщает, настроен ли PostgreSQL-архив payload'ов.
func (c *Config) ArchiveEnabled() bool {
	return c.PGHost != ""
}

// DatabaseDSN возвращает DSN подключения к PostgreSQL для pgxpool.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.PGUser, c.PGPassword, c.PGHost, c.PGPort, c.PGDatabase, c.PGSSLMode,
	)
}

// Load загружает конфигурацию из переменных окружения.
// Возвращает ошибку, если обязательные переменные не заданы
// или значения некорректны — процесс падает на старте, не в рантайме.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// AV_PORT — порт HTTP-сервера (по умолчанию 8080)
	cfg.Port, err = getEnvInt("AV_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("AV_PORT: %w", err)
	}

	// AV_LOG_LEVEL — уровень логирования (по умолчанию info)
	logLevel := getEnvDefault("AV_LOG_LEVEL", "info")
	cfg.LogLevel, err = parseLogLevel(logLevel)
	if err != nil {
		return nil, fmt.Errorf("AV_LOG_LEVEL: %w", err)
	}

	// AV_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("AV_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("AV_LOG_FORMAT: недопустимый формат %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- HTTP Server Timeouts ---

	cfg.HTTPReadTimeout, err = getEnvDuration("AV_HTTP_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("AV_HTTP_READ_TIMEOUT: %w", err)
	}
	cfg.HTTPWriteTimeout, err = getEnvDuration("AV_HTTP_WRITE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("AV_HTTP_WRITE_TIMEOUT: %w", err)
	}
	cfg.HTTPIdleTimeout, err = getEnvDuration("AV_HTTP_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("AV_HTTP_IDLE_TIMEOUT: %w", err)
	}

	// AV_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("AV_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("AV_SHUTDOWN_TIMEOUT: %w", err)
	}

	// --- Telegram Bot API ---

	// AV_TELEGRAM_BOT_TOKEN — токен бота (обязательный)
	cfg.TelegramToken, err = getEnvRequired("AV_TELEGRAM_BOT_TOKEN")
	if err != nil {
		return nil, err
	}

	// AV_TELEGRAM_API_URL — базовый URL Bot API
	cfg.TelegramAPIURL = getEnvDefault("AV_TELEGRAM_API_URL", "https://api.telegram.org")

	// AV_TELEGRAM_TIMEOUT — таймаут HTTP-клиента Bot API
	cfg.TelegramTimeout, err = getEnvDuration("AV_TELEGRAM_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("AV_TELEGRAM_TIMEOUT: %w", err)
	}

	// AV_WEBHOOK_SECRET — секрет webhook (опционально)
	cfg.WebhookSecret = getEnvDefault("AV_WEBHOOK_SECRET", "")

	// AV_FILE_CACHE_SIZE / AV_FILE_CACHE_TTL — кэш резолва getFile
	cfg.FileCacheSize, err = getEnvInt("AV_FILE_CACHE_SIZE", 256)
	if err != nil {
		return nil, fmt.Errorf("AV_FILE_CACHE_SIZE: %w", err)
	}
	cfg.FileCacheTTL, err = getEnvDuration("AV_FILE_CACHE_TTL", 30*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("AV_FILE_CACHE_TTL: %w", err)
	}

	// --- Blob storage ---

	// AV_S3_BUCKET — имя бакета (обязательный)
	cfg.S3Bucket, err = getEnvRequired("AV_S3_BUCKET")
	if err != nil {
		return nil, err
	}

	// AV_AWS_ENDPOINT — кастомный endpoint (опционально)
	cfg.AWSEndpoint = getEnvDefault("AV_AWS_ENDPOINT", "")

	// AV_PRESIGN_TTL — срок действия presigned URL (по умолчанию 1h)
	cfg.PresignTTL, err = getEnvDuration("AV_PRESIGN_TTL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("AV_PRESIGN_TTL: %w", err)
	}

	// --- Индекс метаданных ---

	// AV_DYNAMODB_TABLE — имя таблицы (обязательный)
	cfg.DynamoTable, err = getEnvRequired("AV_DYNAMODB_TABLE")
	if err != nil {
		return nil, err
	}

	// --- Архив payload'ов ---

	cfg.PGHost = getEnvDefault("AV_PG_HOST", "")
	cfg.PGPort, err = getEnvInt("AV_PG_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("AV_PG_PORT: %w", err)
	}
	cfg.PGDatabase = getEnvDefault("AV_PG_DATABASE", "audiovault")
	cfg.PGUser = getEnvDefault("AV_PG_USER", "audiovault")
	cfg.PGPassword = getEnvDefault("AV_PG_PASSWORD", "")
	cfg.PGSSLMode = getEnvDefault("AV_PG_SSLMODE", "disable")

	// --- Dephealth ---

	cfg.DephealthCheckInterval, err = getEnvDuration("AV_DEPHEALTH_CHECK_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("AV_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}
	cfg.DephealthGroup = getEnvDefault("AV_DEPHEALTH_GROUP", "audiovault")
	cfg.DephealthIsEntry, err = getEnvBool("AV_DEPHEALTH_ISENTRY", false)
	if err != nil {
		return nil, fmt.Errorf("AV_DEPHEALTH_ISENTRY: %w", err)
	}

	return cfg, nil
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q (допустимые: true, false, 1, 0)", val)
	}
	return b, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
