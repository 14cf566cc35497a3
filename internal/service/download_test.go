package service

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fede1817/CLOUD-FEDERICO-BRITEZ/internal/domain/mode"
)

func TestDownloadServe(t *testing.T) {
	env := setupTestEnv(t)
	svc := NewDownloadService(env.store, env.sm, testLogger())
	putFile(t, env, "1700000000000-abc-my-photo.png", "PNGDATA", time.Now())

	req := httptest.NewRequest(http.MethodGet, "/uploads/1700000000000-abc-my-photo.png", nil)
	w := httptest.NewRecorder()

	if err := svc.Serve(w, req, "1700000000000-abc-my-photo.png"); err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	if w.Code != http.StatusOK {
		t.Errorf("статус: ожидалось 200, получено %d", w.Code)
	}
	if w.Body.String() != "PNGDATA" {
		t.Errorf("тело: %q", w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type: ожидалось image/png, получено %q", ct)
	}
	cd := w.Header().Get("Content-Disposition")
	if !strings.HasPrefix(cd, "inline") || !strings.Contains(cd, "my-photo.png") {
		t.Errorf("Content-Disposition: %q", cd)
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("отсутствует X-Content-Type-Options: nosniff")
	}
}

func TestDownloadServe_Range(t *testing.T) {
	env := setupTestEnv(t)
	svc := NewDownloadService(env.store, env.sm, testLogger())
	putFile(t, env, "1-a-data.txt", "0123456789", time.Now())

	req := httptest.NewRequest(http.MethodGet, "/uploads/1-a-data.txt", nil)
	req.Header.Set("Range", "bytes=2-4")
	w := httptest.NewRecorder()

	if err := svc.Serve(w, req, "1-a-data.txt"); err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if w.Code != http.StatusPartialContent {
		t.Errorf("статус: ожидалось 206, получено %d", w.Code)
	}
	if w.Body.String() != "234" {
		t.Errorf("тело: ожидалось 234, получено %q", w.Body.String())
	}
}

func TestDownloadServe_Errors(t *testing.T) {
	env := setupTestEnv(t)
	svc := NewDownloadService(env.store, env.sm, testLogger())

	tests := []struct {
		name string
		file string
		kind Kind
	}{
		{"отсутствует", "missing.txt", KindNotFound},
		{"traversal", "../secret", KindValidation},
		{"staging-каталог", ".partial", KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/uploads/x", nil)
			w := httptest.NewRecorder()
			err := svc.Serve(w, req, tt.file)
			assertServiceError(t, err, tt.kind, "")
			if w.Body.Len() != 0 {
				t.Errorf("при ошибке ответ не должен записываться, получено %q", w.Body.String())
			}
		})
	}
}

func TestDownloadServe_ReadOnlyAllowed(t *testing.T) {
	env := setupTestEnv(t)
	putFile(t, env, "1-a-x.txt", "x", time.Now())
	env.sm.TransitionTo(mode.ModeRO)
	svc := NewDownloadService(env.store, env.sm, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/uploads/1-a-x.txt", nil)
	w := httptest.NewRecorder()
	if err := svc.Serve(w, req, "1-a-x.txt"); err != nil {
		t.Fatalf("скачивание должно работать в ro: %v", err)
	}
}
