// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import "fmt"

// Kind — класс ошибки; определяет HTTP-статус на границе API.
type Kind string

const (
	// KindValidation — некорректное имя, пустая загрузка, лишнее поле (400)
	KindValidation Kind = "validation"
	// KindLimitExceeded — файл слишком большой, слишком много файлов (400)
	KindLimitExceeded Kind = "limit_exceeded"
	// KindNotFound — файл отсутствует (404)
	KindNotFound Kind = "not_found"
	// KindModeNotAllowed — операция недоступна в текущем режиме (409)
	KindModeNotAllowed Kind = "mode_not_allowed"
	// KindIO — непредвиденная ошибка файловой системы (500)
	KindIO Kind = "io"
)

// Машиночитаемые коды ошибок.
const (
	CodeValidationError = "VALIDATION_ERROR"
	CodeInvalidFilename = "INVALID_FILENAME"
	CodeNoFiles         = "NO_FILES"
	CodeUnexpectedField = "UNEXPECTED_FIELD"
	CodeFileTooLarge    = "FILE_TOO_LARGE"
	CodeTooManyFiles    = "TOO_MANY_FILES"
	CodeNotFound        = "NOT_FOUND"
	CodeModeNotAllowed  = "MODE_NOT_ALLOWED"
	CodeInternalError   = "INTERNAL_ERROR"
)

// Error — ошибка сервиса с классом, кодом и сообщением для клиента.
// Err — исходная причина, только для логов.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func validationError(code, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message}
}

func limitError(code, message string) *Error {
	return &Error{Kind: KindLimitExceeded, Code: code, Message: message}
}

func notFoundError(message string) *Error {
	return &Error{Kind: KindNotFound, Code: CodeNotFound, Message: message}
}

func modeError(message string) *Error {
	return &Error{Kind: KindModeNotAllowed, Code: CodeModeNotAllowed, Message: message}
}

func ioError(message string, err error) *Error {
	return &Error{Kind: KindIO, Code: CodeInternalError, Message: message, Err: err}
}
