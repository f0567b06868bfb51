// Точка входа audiovault — сервиса приёма и поиска аудио через Telegram webhook.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/audiovault/internal/api/handlers"
	"github.com/bigkaa/audiovault/internal/api/middleware"
	"github.com/bigkaa/audiovault/internal/archive"
	"github.com/bigkaa/audiovault/internal/config"
	"github.com/bigkaa/audiovault/internal/index"
	"github.com/bigkaa/audiovault/internal/server"
	"github.com/bigkaa/audiovault/internal/service"
	"github.com/bigkaa/audiovault/internal/storage"
	"github.com/bigkaa/audiovault/internal/telegram"
)

func main() {
	// Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка конфигурации: %v\n", err)
		os.Exit(1)
	}

	// Настройка логгера
	logger := config.SetupLogger(cfg)
	logger.Info("audiovault запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("s3_bucket", cfg.S3Bucket),
		slog.String("dynamodb_table", cfg.DynamoTable),
		slog.Bool("archive_enabled", cfg.ArchiveEnabled()),
	)

	ctx := context.Background()

	// --- Инициализация компонентов ---

	// 1. Клиент Telegram Bot API
	tgClient := telegram.New(
		cfg.TelegramAPIURL,
		cfg.TelegramToken,
		cfg.TelegramTimeout,
		cfg.FileCacheSize,
		cfg.FileCacheTTL,
		logger,
	)

	// 2. Blob-хранилище (S3)
	blobs, err := storage.NewS3Store(ctx, cfg.S3Bucket, cfg.AWSEndpoint, logger)
	if err != nil {
		logger.Error("Ошибка инициализации S3", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 3. Индекс метаданных (DynamoDB)
	idx, err := index.NewDynamoIndex(ctx, cfg.DynamoTable, cfg.AWSEndpoint, logger)
	if err != nil {
		logger.Error("Ошибка инициализации DynamoDB", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Архив payload'ов (PostgreSQL, опционально)
	var (
		arch      *archive.Archive
		archDB    *sql.DB
		archiver  handlers.PayloadArchiver
		archCheck handlers.ReadinessChecker
	)
	if cfg.ArchiveEnabled() {
		if err := archive.Migrate(cfg, logger); err != nil {
			logger.Error("Ошибка миграций архива", slog.String("error", err.Error()))
			os.Exit(1)
		}
		arch, err = archive.Connect(ctx, cfg, logger)
		if err != nil {
			logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer arch.Close()

		archiver = arch
		archCheck = archive.NewReadinessChecker(arch.Pool())
		// *sql.DB поверх pgxpool для dephealth pgcheck
		archDB = stdlib.OpenDBFromPool(arch.Pool())
	}

	// 5. Оркестраторы
	ingestSvc := service.NewIngestService(tgClient, blobs, idx, logger)
	searchSvc := service.NewSearchService(idx, blobs, tgClient, cfg.PresignTTL, logger)

	// 6. topologymetrics — мониторинг зависимостей
	dephealthSvc, dephealthErr := service.NewDephealthService(
		"audiovault",
		cfg.DephealthGroup,
		cfg.TelegramAPIURL,
		archDB,
		cfg.DatabaseDSN(),
		cfg.DephealthCheckInterval,
		cfg.DephealthIsEntry,
		logger,
	)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
	} else {
		if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics",
				slog.String("error", startErr.Error()),
			)
		} else {
			defer dephealthSvc.Stop()
			logger.Info("topologymetrics запущен",
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
		}
	}

	// 7. Handlers
	healthHandler := handlers.NewHealthHandler(index.NewReadinessChecker(idx), archCheck)
	apiHandler := handlers.NewAPIHandler(healthHandler, ingestSvc, searchSvc, archiver, logger)

	// 8. HTTP-сервер
	srv := server.New(cfg, logger, apiHandler,
		middleware.MetricsMiddleware(),
		middleware.RequestLogger(logger),
		middleware.WebhookSecret(cfg.WebhookSecret),
	)

	// 9. Запуск сервера (блокирующий вызов с graceful shutdown)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("audiovault остановлен")
}
