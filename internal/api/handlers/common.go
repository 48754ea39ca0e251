package handlers

import (
	"errors"
	"net/http"
	"strconv"

	jsoniter "github.com/json-iterator/go"

	"liquidator/internal/repository"
	"liquidator/internal/service"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrorResponse стандартный формат ответа об ошибке для всех API endpoints
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// Коды ошибок API
const (
	CodeNotFound        = "NOT_FOUND"
	CodeBadRequest      = "BAD_REQUEST"
	CodeJournalDisabled = "JOURNAL_DISABLED"
	CodeInternal        = "INTERNAL"
)

// respondWithJSON отправляет JSON ответ
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

// respondWithError отправляет JSON ошибку
func respondWithError(w http.ResponseWriter, status int, code, message string) {
	respondWithJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// respondWithServiceError переводит ошибку сервиса в HTTP статус
func respondWithServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrJournalDisabled):
		respondWithError(w, http.StatusServiceUnavailable, CodeJournalDisabled, err.Error())
	case errors.Is(err, repository.ErrLiquidationNotFound), errors.Is(err, repository.ErrNotificationNotFound):
		respondWithError(w, http.StatusNotFound, CodeNotFound, err.Error())
	default:
		respondWithError(w, http.StatusInternalServerError, CodeInternal, err.Error())
	}
}

// parseLimit читает ?limit; некорректное значение заменяется значением по умолчанию
func parseLimit(r *http.Request, def int) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			return parsed
		}
	}
	return def
}
