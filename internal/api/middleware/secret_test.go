package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// okHandler — конечный handler, отвечающий 200 "ok".
var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte("ok"))
})

// TestWebhookSecret_Valid проверяет пропуск запроса с корректным токеном.
func TestWebhookSecret_Valid(t *testing.T) {
	handler := WebhookSecret("s3cret")(okHandler)

	req := httptest.NewRequest(http.MethodPost, "/webhook", nil)
	req.Header.Set("X-Telegram-Bot-Api-Secret-Token", "s3cret")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, ожидался 200", rec.Code)
	}
}

// TestWebhookSecret_Invalid проверяет отказ при неверном токене.
func TestWebhookSecret_Invalid(t *testing.T) {
	handler := WebhookSecret("s3cret")(okHandler)

	req := httptest.NewRequest(http.MethodPost, "/webhook", nil)
	req.Header.Set("X-Telegram-Bot-Api-Secret-Token", "wrong")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, ожидался 403", rec.Code)
	}
}

// TestWebhookSecret_Missing проверяет отказ при отсутствии заголовка.
func TestWebhookSecret_Missing(t *testing.T) {
	handler := WebhookSecret("s3cret")(okHandler)

	req := httptest.NewRequest(http.MethodPost, "/webhook", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, ожидался 403", rec.Code)
	}
}

// TestWebhookSecret_Disabled проверяет отключение проверки при пустом секрете.
func TestWebhookSecret_Disabled(t *testing.T) {
	handler := WebhookSecret("")(okHandler)

	req := httptest.NewRequest(http.MethodPost, "/webhook", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, ожидался 200 (проверка отключена)", rec.Code)
	}
}

// TestWebhookSecret_OtherPathsExcluded проверяет, что health endpoints
// не требуют токена.
func TestWebhookSecret_OtherPathsExcluded(t *testing.T) {
	handler := WebhookSecret("s3cret")(okHandler)

	for _, path := range []string{"/health/live", "/health/ready", "/metrics"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d, ожидался 200", path, rec.Code)
		}
	}
}

// TestNormalizePath проверяет схлопывание неизвестных путей.
func TestNormalizePath(t *testing.T) {
	cases := map[string]string{
		"/webhook":          "/webhook",
		"/health/live":      "/health/live",
		"/health/ready":     "/health/ready",
		"/metrics":          "/metrics",
		"/wp-admin/":        "other",
		"/webhook/x":        "other",
		"/.env":             "other",
	}
	for in, want := range cases {
		if got := normalizePath(in); got != want {
			t.Errorf("normalizePath(%q) = %q, ожидался %q", in, got, want)
		}
	}
}
