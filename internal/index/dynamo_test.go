package index

import (
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// stringValues извлекает строковые значения из ExpressionAttributeValues.
func stringValues(t *testing.T, values map[string]types.AttributeValue) []string {
	t.Helper()
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(*types.AttributeValueMemberS); ok {
			out = append(out, s.Value)
		}
	}
	return out
}

// TestSearchFilter проверяет структуру фильтра поиска: substring-условия
// по filename и caption плюс скоупинг по префиксу владельца.
func TestSearchFilter(t *testing.T) {
	expr, err := expression.NewBuilder().
		WithFilter(searchFilter(42, "beatles")).
		Build()
	if err != nil {
		t.Fatalf("Build ошибка: %v", err)
	}

	filter := *expr.Filter()
	if !strings.Contains(filter, "contains") {
		t.Errorf("фильтр %q не содержит contains", filter)
	}
	if !strings.Contains(filter, "begins_with") {
		t.Errorf("фильтр %q не содержит begins_with", filter)
	}

	// Имена атрибутов присутствуют через плейсхолдеры
	names := make(map[string]bool)
	for _, v := range expr.Names() {
		names[v] = true
	}
	for _, attr := range []string{"filename", "caption", "id"} {
		if !names[attr] {
			t.Errorf("атрибут %q отсутствует в ExpressionAttributeNames", attr)
		}
	}

	// Значения: поисковый запрос и префикс владельца с разделителем
	vals := stringValues(t, expr.Values())
	hasQuery, hasPrefix := false, false
	for _, v := range vals {
		if v == "beatles" {
			hasQuery = true
		}
		if v == "42_" {
			hasPrefix = true
		}
	}
	if !hasQuery {
		t.Errorf("значения %v не содержат поисковый запрос", vals)
	}
	if !hasPrefix {
		t.Errorf("значения %v не содержат префикс владельца %q", vals, "42_")
	}
}

// TestSearchFilter_OwnerScoping проверяет, что префикс владельца 4
// не совпадает с началом ключей владельца 42.
func TestSearchFilter_OwnerScoping(t *testing.T) {
	expr, err := expression.NewBuilder().WithFilter(searchFilter(4, "q")).Build()
	if err != nil {
		t.Fatalf("Build ошибка: %v", err)
	}

	vals := stringValues(t, expr.Values())
	for _, v := range vals {
		if v == "4" {
			t.Error("префикс без разделителя — совпал бы с ключами владельца 42")
		}
	}

	hasPrefix := false
	for _, v := range vals {
		if v == "4_" {
			hasPrefix = true
		}
	}
	if !hasPrefix {
		t.Errorf("значения %v не содержат префикс %q", vals, "4_")
	}
}
