package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRequestLogger_Levels(t *testing.T) {
	tests := []struct {
		status    int
		wantLevel string
	}{
		{http.StatusOK, "INFO"},
		{http.StatusNotModified, "INFO"},
		{http.StatusNotFound, "WARN"},
		{http.StatusInternalServerError, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))

			handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("hello"))
			}))
			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/files", nil))

			var entry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("лог не JSON: %v (%s)", err, buf.String())
			}
			if entry["level"] != tt.wantLevel {
				t.Errorf("level = %v, ожидался %s", entry["level"], tt.wantLevel)
			}
			if entry["status"] != float64(tt.status) {
				t.Errorf("status = %v", entry["status"])
			}
			if entry["path"] != "/api/files" {
				t.Errorf("path = %v", entry["path"])
			}
			if tt.status != http.StatusNotModified && entry["bytes"] != float64(5) {
				t.Errorf("bytes = %v, ожидалось 5", entry["bytes"])
			}
		})
	}
}

func TestMetricsMiddleware_RoutePattern(t *testing.T) {
	router := chi.NewRouter()
	router.Use(MetricsMiddleware())
	router.Get("/metrics-test/{filename}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics-test/"+name, nil))
	}

	got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/metrics-test/{filename}", "200"))
	if got != 3 {
		t.Errorf("счётчик по шаблону маршрута = %v, ожидалось 3", got)
	}
	if raw := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/metrics-test/a.txt", "200")); raw != 0 {
		t.Errorf("сырой путь попал в лейбл: %v", raw)
	}
}

func TestRoutePattern_Unmatched(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/x", nil)
	if got := routePattern(r); got != "unmatched" {
		t.Errorf("routePattern без chi-контекста = %q", got)
	}
}
