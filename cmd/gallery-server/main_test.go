package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fede1817/CLOUD-FEDERICO-BRITEZ/internal/config"
	"github.com/fede1817/CLOUD-FEDERICO-BRITEZ/internal/server"
)

func testConfig(uploadPath string) *config.Config {
	return &config.Config{
		Port:          5000,
		UploadPath:    uploadPath,
		MaxFileSize:   1024,
		MaxFiles:      50,
		Mode:          "rw",
		SweepInterval: time.Hour,
		PartialTTL:    time.Hour,
	}
}

func TestBuildApp_UnwritableUploadPath(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg := testConfig(filepath.Join(blocker, "uploads"))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	a, err := buildApp(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("недоступный каталог не должен останавливать запуск: %v", err)
	}
	router := server.NewRouter(cfg, logger, a.api)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("health: статус %d", rec.Code)
	}
	var health struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&health); err != nil {
		t.Fatalf("health не JSON: %v", err)
	}
	if health.Status != "degraded" {
		t.Errorf("health status = %q, ожидался degraded", health.Status)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, _ := mw.CreateFormFile("files", "a.txt")
	_, _ = part.Write([]byte("data"))
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("upload: статус %d, ожидался 500 (тело: %s)", rec.Code, rec.Body.String())
	}
	var envelope struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("ответ не JSON: %v", err)
	}
	if envelope.Success || envelope.Error == "" {
		t.Errorf("некорректный конверт ошибки: %+v", envelope)
	}
}

func TestBuildApp_InvalidMode(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.Mode = "archive"

	if _, err := buildApp(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil))); err == nil {
		t.Error("ожидалась ошибка для неизвестного режима")
	}
}
