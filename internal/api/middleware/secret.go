// secret.go — проверка секретного токена Telegram webhook.
// Telegram повторяет значение, заданное при setWebhook, в заголовке
// X-Telegram-Bot-Api-Secret-Token каждого запроса. Несовпадение —
// запрос пришёл не от Telegram.
package middleware

import (
	"crypto/subtle"
	"net/http"
)

// Заголовок секретного токена Telegram Bot API.
const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// WebhookSecret возвращает middleware, проверяющий секретный токен
// на пути /webhook. Пустой secret отключает проверку (webhook
// зарегистрирован без secret_token). Остальные пути (health, metrics)
// не проверяются — они не принимают updates.
//
// Отказ — 403 без тела: контракт "всегда 200" действует только для
// запросов, прошедших аутентификацию источника.
func WebhookSecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/webhook" {
				got := r.Header.Get(secretTokenHeader)
				if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
					w.WriteHeader(http.StatusForbidden)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
