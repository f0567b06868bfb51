// Пакет index — индекс метаданных сохранённых файлов (DynamoDB).
// Запись AudioRecord по составному ключу и скоупированный substring-поиск
// по полям filename и caption.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/bigkaa/audiovault/internal/domain/model"
)

// MetadataIndex — интерфейс индекса метаданных.
type MetadataIndex interface {
	// PutRecord сохраняет запись. Дубликат ключа перезаписывается
	// (семантика overwrite — повторная ингестия идемпотентна).
	PutRecord(ctx context.Context, rec *model.AudioRecord) error
	// SearchByOwner выполняет substring-поиск по filename и caption,
	// скоупированный владельцем. Совпадение регистрозависимое, без
	// токенизации и ранжирования. Порядок результатов определяется
	// хранилищем и не гарантирован.
	SearchByOwner(ctx context.Context, ownerID int64, query string) ([]model.AudioRecord, error)
}

// DynamoIndex — реализация MetadataIndex поверх DynamoDB.
// Поиск — полный scan с фильтром; вторичных индексов нет.
// На масштабе этой системы это осознанное ограничение.
type DynamoIndex struct {
	table  string
	client *dynamodb.Client
	logger *slog.Logger
}

// NewDynamoIndex создаёт DynamoDB-адаптер.
// endpoint — кастомный endpoint (LocalStack); пустая строка — стандартный AWS.
func NewDynamoIndex(ctx context.Context, table, endpoint string, logger *slog.Logger) (*DynamoIndex, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("загрузка AWS-конфигурации: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	return &DynamoIndex{
		table:  table,
		client: client,
		logger: logger.With(slog.String("component", "dynamo_index")),
	}, nil
}

// PutRecord сохраняет запись через PutItem (overwrite при дубликате ключа).
func (d *DynamoIndex) PutRecord(ctx context.Context, rec *model.AudioRecord) error {
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("сериализация записи %s: %w", rec.RecordKey, err)
	}

	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("запись %s в индекс: %w", rec.RecordKey, err)
	}

	d.logger.Debug("Запись сохранена в индексе",
		slog.String("record_key", rec.RecordKey),
	)
	return nil
}

// SearchByOwner сканирует таблицу с фильтром
// (contains(filename, q) OR contains(caption, q)) AND begins_with(id, "{owner}_").
// Scan постраничный: LastEvaluatedKey обходится до конца.
func (d *DynamoIndex) SearchByOwner(ctx context.Context, ownerID int64, query string) ([]model.AudioRecord, error) {
	expr, err := expression.NewBuilder().
		WithFilter(searchFilter(ownerID, query)).
		Build()
	if err != nil {
		return nil, fmt.Errorf("построение фильтра поиска: %w", err)
	}

	var records []model.AudioRecord
	var startKey map[string]types.AttributeValue

	for {
		out, err := d.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:                 aws.String(d.table),
			FilterExpression:          expr.Filter(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("scan индекса: %w", err)
		}

		var page []model.AudioRecord
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("десериализация результатов scan: %w", err)
		}
		records = append(records, page...)

		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	d.logger.Debug("Поиск в индексе выполнен",
		slog.Int64("owner_id", ownerID),
		slog.Int("matches", len(records)),
	)
	return records, nil
}

// searchFilter строит фильтр скоупированного поиска.
// Скоупинг по префиксу владельца С разделителем — это единственная
// граница доступа: begins_with без "_" пропускал бы владельца 4
// к записям владельца 42.
func searchFilter(ownerID int64, query string) expression.ConditionBuilder {
	return expression.And(
		expression.Or(
			expression.Contains(expression.Name("filename"), query),
			expression.Contains(expression.Name("caption"), query),
		),
		expression.BeginsWith(expression.Name("id"), model.OwnerPrefix(ownerID)),
	)
}

// ReadinessChecker — проверка доступности таблицы для health endpoint.
type ReadinessChecker struct {
	idx *DynamoIndex
}

// NewReadinessChecker создаёт проверку готовности индекса.
func NewReadinessChecker(idx *DynamoIndex) *ReadinessChecker {
	return &ReadinessChecker{idx: idx}
}

// CheckReady выполняет DescribeTable с коротким таймаутом.
// Возвращает статус ("ok", "fail") и сообщение.
func (c *ReadinessChecker) CheckReady() (status, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err := c.idx.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(c.idx.table),
	})
	if err != nil {
		return "fail", fmt.Sprintf("DynamoDB недоступна: %v", err)
	}
	return "ok", "таблица доступна"
}
