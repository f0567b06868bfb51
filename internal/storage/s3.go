// Пакет storage — адаптер blob-хранилища (S3).
// Streaming-загрузка объектов и генерация presigned GET URL.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// BlobStore — интерфейс blob-хранилища.
// Обе операции — single-attempt, без внутренних retry.
type BlobStore interface {
	// Put загружает объект под указанным ключом. body читается потоком,
	// без буферизации целиком в памяти. Повторная загрузка под тем же
	// ключом перезаписывает объект.
	Put(ctx context.Context, key string, body io.Reader) error
	// PresignGet генерирует временный (ttl) presigned GET URL для объекта.
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	// URL строит blob locator "s3://bucket/key" для записи в индекс.
	URL(key string) string
	// KeyFromURL извлекает ключ объекта из blob locator'а.
	KeyFromURL(locator string) string
}

// S3Store — реализация BlobStore поверх AWS S3 (или совместимого API).
type S3Store struct {
	bucket   string
	client   *s3.Client
	uploader *manager.Uploader
	presign  *s3.PresignClient
	logger   *slog.Logger
}

// NewS3Store создаёт S3-адаптер.
// endpoint — кастомный endpoint (MinIO/LocalStack, включает path-style
// адресацию); пустая строка — стандартный AWS.
// Учётные данные и регион берутся из стандартной цепочки AWS SDK.
func NewS3Store(ctx context.Context, bucket, endpoint string, logger *slog.Logger) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("загрузка AWS-конфигурации: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{
		bucket:   bucket,
		client:   client,
		uploader: manager.NewUploader(client),
		presign:  s3.NewPresignClient(client),
		logger:   logger.With(slog.String("component", "s3_store")),
	}, nil
}

// Put загружает объект потоком через manager.Uploader (multipart при
// больших размерах; размер заранее неизвестен — body приходит из
// HTTP-ответа Telegram).
func (s *S3Store) Put(ctx context.Context, key string, body io.Reader) error {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
	})
	if err != nil {
		return fmt.Errorf("загрузка объекта %s: %w", key, err)
	}

	s.logger.Debug("Объект загружен в S3",
		slog.String("bucket", s.bucket),
		slog.String("key", key),
	)
	return nil
}

// PresignGet генерирует presigned GET URL со сроком действия ttl.
func (s *S3Store) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("генерация presigned URL для %s: %w", key, err)
	}
	return req.URL, nil
}

// URL строит blob locator "s3://bucket/key".
func (s *S3Store) URL(key string) string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, key)
}

// KeyFromURL извлекает ключ объекта из locator'а "s3://bucket/key".
// Чужой или некорректный locator возвращается как есть — ключом
// он не станет, ошибка всплывёт на операции с хранилищем.
func (s *S3Store) KeyFromURL(locator string) string {
	return strings.TrimPrefix(locator, fmt.Sprintf("s3://%s/", s.bucket))
}
