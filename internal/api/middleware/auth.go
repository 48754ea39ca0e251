package middleware

import (
	"crypto/subtle"
	"net/http"

	"liquidator/pkg/crypto"
)

// BasicAuth - middleware HTTP Basic аутентификации оператора
//
// Пароль сверяется с bcrypt-хешем (API_PASSWORD_HASH). Пустой хеш отключает
// проверку: API только читает состояние и предназначен для локальной сети.
//
// Использование:
//
//	api := router.PathPrefix("/api/v1").Subrouter()
//	api.Use(middleware.BasicAuth(cfg.Security.APIUser, cfg.Security.APIPasswordHash))
func BasicAuth(user, passwordHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if passwordHash == "" {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, p, ok := r.BasicAuth()
			if !ok {
				unauthorized(w)
				return
			}

			// Constant-time сравнение имени; bcrypt сам по себе constant-time
			userMatch := subtle.ConstantTimeCompare([]byte(u), []byte(user)) == 1
			passMatch := crypto.CheckPasswordMatch(p, passwordHash)

			if !userMatch || !passMatch {
				unauthorized(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="liquidator"`)
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}
