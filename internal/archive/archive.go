// Пакет archive — опциональный PostgreSQL-архив сырых webhook-payload'ов.
// Подключение через pgxpool, применение миграций (golang-migrate),
// проверка готовности. Архив best-effort: его ошибки логируются
// и никогда не влияют на бизнес-результат webhook'а.
package archive

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bigkaa/audiovault/internal/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Archive — хранилище сырых webhook-payload'ов.
type Archive struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Connect создаёт пул подключений к PostgreSQL.
// Выполняет ping для проверки доступности.
func Connect(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Archive, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга DSN: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания пула подключений: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка подключения к PostgreSQL: %w", err)
	}

	logger.Info("Подключение к PostgreSQL установлено",
		slog.String("host", cfg.PGHost),
		slog.Int("port", cfg.PGPort),
		slog.String("database", cfg.PGDatabase),
	)

	return &Archive{
		pool:   pool,
		logger: logger.With(slog.String("component", "archive")),
	}, nil
}

// Migrate применяет SQL-миграции из embedded FS к базе данных.
func Migrate(cfg *config.Config, logger *slog.Logger) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("ошибка создания источника миграций: %w", err)
	}

	dbURL := fmt.Sprintf(
		"pgx5://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.PGUser, cfg.PGPassword, cfg.PGHost, cfg.PGPort, cfg.PGDatabase, cfg.PGSSLMode,
	)

	m, err := migrate.NewWithSourceInstance("iofs", source, dbURL)
	if err != nil {
		return fmt.Errorf("ошибка инициализации миграций: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("ошибка применения миграций: %w", err)
	}

	version, dirty, _ := m.Version()
	logger.Info("Миграции применены",
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty),
	)

	return nil
}

// Store сохраняет сырой payload как JSONB-строку.
// Невалидный JSON отклоняется базой — для best-effort архива это
// допустимо, вызывающий код только логирует ошибку.
func (a *Archive) Store(ctx context.Context, payload []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := a.pool.Exec(ctx,
		`INSERT INTO webhook_payloads (id, payload) VALUES ($1, $2)`,
		uuid.New(), payload,
	)
	if err != nil {
		return fmt.Errorf("ошибка записи payload в архив: %w", err)
	}
	return nil
}

// Pool возвращает пул подключений (для dephealth pgcheck).
func (a *Archive) Pool() *pgxpool.Pool {
	return a.pool
}

// Close закрывает пул подключений.
func (a *Archive) Close() {
	a.pool.Close()
}

// ReadinessChecker — проверка готовности PostgreSQL для health endpoint.
type ReadinessChecker struct {
	pool *pgxpool.Pool
}

// NewReadinessChecker создаёт проверку готовности PostgreSQL.
func NewReadinessChecker(pool *pgxpool.Pool) *ReadinessChecker {
	return &ReadinessChecker{pool: pool}
}

// CheckReady проверяет подключение к PostgreSQL через ping.
// Возвращает статус ("ok", "fail") и сообщение.
func (c *ReadinessChecker) CheckReady() (status string, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := c.pool.Ping(ctx); err != nil {
		return "fail", fmt.Sprintf("PostgreSQL недоступен: %v", err)
	}
	return "ok", "подключение активно"
}
