// Пакет errors — ответы с ошибкой в едином формате галереи.
// Формат: {"success": false, "error": "...", "code": "..."}.
// Все HTTP-ответы с ошибками должны использовать WriteError.
package errors //nolint:revive // конфликт имени со stdlib, импортируется как apierrors

import (
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"

	"github.com/fede1817/CLOUD-FEDERICO-BRITEZ/internal/service"
)

// Коды ошибок уровня API, не порождаемые сервисами.
const (
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeMethodNotAllowed  = "METHOD_NOT_ALLOWED"
)

// errorBody — тело ответа ошибки.
type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}

// WriteError записывает ответ ошибки в стандартном формате.
// code — машиночитаемый код, пустой code в ответ не попадает.
func WriteError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorBody{
		Success: false,
		Error:   message,
		Code:    code,
	})
}

// --- Конструкторы для типичных ошибок ---

// ValidationError — 400 некорректные входные данные.
func ValidationError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, service.CodeValidationError, message)
}

// NotFound — 404 ресурс не найден.
func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, service.CodeNotFound, message)
}

// MethodNotAllowed — 405 метод не поддерживается маршрутом.
func MethodNotAllowed(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, message)
}

// InvalidTransition — 409 недопустимый переход между режимами.
func InvalidTransition(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, CodeInvalidTransition, message)
}

// InternalError — 500 внутренняя ошибка.
func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, service.CodeInternalError, message)
}

// StatusFor возвращает HTTP-статус для класса ошибки сервиса.
func StatusFor(kind service.Kind) int {
	switch kind {
	case service.KindValidation, service.KindLimitExceeded:
		return http.StatusBadRequest
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindModeNotAllowed:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// FromService пишет ответ для ошибки сервисного слоя.
// Причина ошибок ввода-вывода уходит в лог, клиенту — только сообщение.
func FromService(w http.ResponseWriter, logger *slog.Logger, err error) {
	var se *service.Error
	if !stderrors.As(err, &se) {
		logger.Error("Необработанная ошибка", slog.String("error", err.Error()))
		InternalError(w, "Внутренняя ошибка сервера")
		return
	}
	if se.Kind == service.KindIO && se.Err != nil {
		logger.Error(se.Message,
			slog.String("code", se.Code),
			slog.String("error", se.Err.Error()),
		)
	}
	WriteError(w, StatusFor(se.Kind), se.Code, se.Message)
}
