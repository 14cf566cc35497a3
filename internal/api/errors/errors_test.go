package errors //nolint:revive // конфликт имени со stdlib

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fede1817/CLOUD-FEDERICO-BRITEZ/internal/service"
)

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("тело не JSON: %v (%s)", err, w.Body.String())
	}
	return body
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, http.StatusBadRequest, "SOME_CODE", "описание")

	if w.Code != http.StatusBadRequest {
		t.Errorf("статус: %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: %q", ct)
	}
	body := decodeBody(t, w)
	if body["success"] != false {
		t.Errorf("success должен быть false: %v", body["success"])
	}
	if body["error"] != "описание" || body["code"] != "SOME_CODE" {
		t.Errorf("тело: %v", body)
	}
}

func TestFromService(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{"validation", &service.Error{Kind: service.KindValidation, Code: service.CodeInvalidFilename, Message: "плохое имя"},
			http.StatusBadRequest, service.CodeInvalidFilename, "плохое имя"},
		{"limit", &service.Error{Kind: service.KindLimitExceeded, Code: service.CodeFileTooLarge, Message: "большой"},
			http.StatusBadRequest, service.CodeFileTooLarge, "большой"},
		{"not found", &service.Error{Kind: service.KindNotFound, Code: service.CodeNotFound, Message: "нет"},
			http.StatusNotFound, service.CodeNotFound, "нет"},
		{"mode", &service.Error{Kind: service.KindModeNotAllowed, Code: service.CodeModeNotAllowed, Message: "ro"},
			http.StatusConflict, service.CodeModeNotAllowed, "ro"},
		{"io скрывает причину", &service.Error{Kind: service.KindIO, Code: service.CodeInternalError, Message: "Ошибка записи", Err: fmt.Errorf("/srv/secret: permission denied")},
			http.StatusInternalServerError, service.CodeInternalError, "Ошибка записи"},
		{"чужая ошибка", fmt.Errorf("что-то сломалось"),
			http.StatusInternalServerError, service.CodeInternalError, "Внутренняя ошибка сервера"},
		{"обёрнутая ошибка сервиса", fmt.Errorf("обёртка: %w", &service.Error{Kind: service.KindNotFound, Code: service.CodeNotFound, Message: "нет"}),
			http.StatusNotFound, service.CodeNotFound, "нет"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			FromService(w, logger, tt.err)

			if w.Code != tt.wantStatus {
				t.Errorf("статус: ожидалось %d, получено %d", tt.wantStatus, w.Code)
			}
			body := decodeBody(t, w)
			if body["code"] != tt.wantCode {
				t.Errorf("code: ожидалось %s, получено %v", tt.wantCode, body["code"])
			}
			if body["error"] != tt.wantMsg {
				t.Errorf("error: ожидалось %q, получено %v", tt.wantMsg, body["error"])
			}
		})
	}
}
