package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fede1817/CLOUD-FEDERICO-BRITEZ/internal/config"
)

// recordingHandler — ServerInterface, запоминающий вызванный метод.
type recordingHandler struct {
	called   string
	filename string
}

func (h *recordingHandler) mark(w http.ResponseWriter, name string) {
	h.called = name
	w.WriteHeader(http.StatusNoContent)
}

func (h *recordingHandler) GetHealth(w http.ResponseWriter, _ *http.Request) {
	h.mark(w, "GetHealth")
}
func (h *recordingHandler) GetInfo(w http.ResponseWriter, _ *http.Request) { h.mark(w, "GetInfo") }
func (h *recordingHandler) GetOpenAPI(w http.ResponseWriter, _ *http.Request) {
	h.mark(w, "GetOpenAPI")
}
func (h *recordingHandler) ListFiles(w http.ResponseWriter, _ *http.Request) {
	h.mark(w, "ListFiles")
}
func (h *recordingHandler) UploadFiles(w http.ResponseWriter, _ *http.Request) {
	h.mark(w, "UploadFiles")
}
func (h *recordingHandler) DeleteFiles(w http.ResponseWriter, _ *http.Request) {
	h.mark(w, "DeleteFiles")
}
func (h *recordingHandler) DeleteFile(w http.ResponseWriter, _ *http.Request, filename string) {
	h.filename = filename
	h.mark(w, "DeleteFile")
}
func (h *recordingHandler) TransitionMode(w http.ResponseWriter, _ *http.Request) {
	h.mark(w, "TransitionMode")
}
func (h *recordingHandler) SweepPartials(w http.ResponseWriter, _ *http.Request) {
	h.mark(w, "SweepPartials")
}
func (h *recordingHandler) ServeUpload(w http.ResponseWriter, _ *http.Request, filename string) {
	h.filename = filename
	h.mark(w, "ServeUpload")
}

func testConfig() *config.Config {
	return &config.Config{
		Port:            0,
		CORSOrigins:     []string{"http://localhost:5173"},
		ShutdownTimeout: time.Second,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRouter_Routes(t *testing.T) {
	tests := []struct {
		method   string
		target   string
		want     string
		filename string
	}{
		{http.MethodGet, "/api/health", "GetHealth", ""},
		{http.MethodGet, "/api/info", "GetInfo", ""},
		{http.MethodGet, "/api/openapi.json", "GetOpenAPI", ""},
		{http.MethodGet, "/api/files", "ListFiles", ""},
		{http.MethodPost, "/api/upload", "UploadFiles", ""},
		{http.MethodDelete, "/api/files/batch", "DeleteFiles", ""},
		{http.MethodDelete, "/api/files/1700000000000-abc-a.txt", "DeleteFile", "1700000000000-abc-a.txt"},
		{http.MethodDelete, "/api/files/my%20file.txt", "DeleteFile", "my file.txt"},
		{http.MethodDelete, "/api/files/..%2Fsecret", "DeleteFile", "../secret"},
		{http.MethodPost, "/api/mode/transition", "TransitionMode", ""},
		{http.MethodPost, "/api/maintenance/sweep", "SweepPartials", ""},
		{http.MethodGet, "/uploads/photo.jpg", "ServeUpload", "photo.jpg"},
		{http.MethodHead, "/uploads/photo.jpg", "ServeUpload", "photo.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			h := &recordingHandler{}
			router := NewRouter(testConfig(), testLogger(), h)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.target, nil))

			if h.called != tt.want {
				t.Fatalf("вызван %q, ожидался %q (статус %d)", h.called, tt.want, rec.Code)
			}
			if h.filename != tt.filename {
				t.Errorf("filename = %q, ожидался %q", h.filename, tt.filename)
			}
		})
	}
}

func TestRouter_ErrorEnvelopes(t *testing.T) {
	tests := []struct {
		method string
		target string
		status int
	}{
		{http.MethodGet, "/api/unknown", http.StatusNotFound},
		{http.MethodGet, "/nothing", http.StatusNotFound},
		{http.MethodPut, "/api/upload", http.StatusMethodNotAllowed},
		{http.MethodPost, "/api/files", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			router := NewRouter(testConfig(), testLogger(), &recordingHandler{})
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.target, nil))

			if rec.Code != tt.status {
				t.Fatalf("статус = %d, ожидался %d", rec.Code, tt.status)
			}
			var body struct {
				Success bool   `json:"success"`
				Error   string `json:"error"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("ответ не JSON: %v", err)
			}
			if body.Success || body.Error == "" {
				t.Errorf("некорректный конверт ошибки: %+v", body)
			}
		})
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	router := NewRouter(testConfig(), testLogger(), &recordingHandler{})

	req := httptest.NewRequest(http.MethodOptions, "/api/upload", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}

	// Чужой origin не получает разрешения
	req = httptest.NewRequest(http.MethodOptions, "/api/upload", nil)
	req.Header.Set("Origin", "http://evil.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Access-Control-Allow-Origin для чужого origin = %q", got)
	}
}

func TestRouter_Metrics(t *testing.T) {
	router := NewRouter(testConfig(), testLogger(), &recordingHandler{})

	// Запрос, который попадёт в счётчик
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/health", nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("статус = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "gallery_http_requests_total") {
		t.Error("в /metrics нет gallery_http_requests_total")
	}
}

func TestRunContext_Shutdown(t *testing.T) {
	srv := New(testConfig(), testLogger(), &recordingHandler{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.RunContext(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("RunContext вернул ошибку: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("сервер не остановился")
	}
}

func TestRouter_RateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = 1
	cfg.RateBurst = 2
	router := NewRouter(cfg, testLogger(), &recordingHandler{})

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/upload", nil)
		req.RemoteAddr = "192.0.2.10:4000"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		statuses = append(statuses, rec.Code)
	}
	if statuses[0] != http.StatusNoContent || statuses[1] != http.StatusNoContent {
		t.Fatalf("первые запросы в пределах всплеска отклонены: %v", statuses)
	}
	if statuses[2] != http.StatusTooManyRequests {
		t.Fatalf("третий запрос: статус %d, ожидался 429", statuses[2])
	}

	// Другой клиент и чтение не затронуты
	req := httptest.NewRequest(http.MethodPost, "/api/upload", nil)
	req.RemoteAddr = "192.0.2.11:4000"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("другой IP: статус %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/files", nil)
	req.RemoteAddr = "192.0.2.10:4000"
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("чтение под лимитом: статус %d", rec.Code)
	}
}

func TestRouter_RateLimitIgnoresForwardedHeaders(t *testing.T) {
	tests := []struct {
		name       string
		trustProxy bool
		wantLast   int
	}{
		{"без доверия прокси", false, http.StatusTooManyRequests},
		{"с доверием прокси", true, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.RateLimit = 1
			cfg.RateBurst = 1
			cfg.TrustProxy = tt.trustProxy
			router := NewRouter(cfg, testLogger(), &recordingHandler{})

			var last int
			for i := 0; i < 2; i++ {
				req := httptest.NewRequest(http.MethodPost, "/api/upload", nil)
				req.RemoteAddr = "192.0.2.20:4000"
				req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i+1))
				rec := httptest.NewRecorder()
				router.ServeHTTP(rec, req)
				last = rec.Code
			}
			if last != tt.wantLast {
				t.Errorf("второй запрос: статус %d, ожидался %d", last, tt.wantLast)
			}
		})
	}
}
