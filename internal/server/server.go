// Пакет server — HTTP-сервер файловой галереи: маршруты, middleware,
// graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apierrors "github.com/fede1817/CLOUD-FEDERICO-BRITEZ/internal/api/errors"
	"github.com/fede1817/CLOUD-FEDERICO-BRITEZ/internal/api/middleware"
	"github.com/fede1817/CLOUD-FEDERICO-BRITEZ/internal/config"
)

// ServerInterface — все endpoints галереи. Path-параметры уже
// извлечены и раскодированы обёртками роутера.
type ServerInterface interface {
	// GET /api/health
	GetHealth(w http.ResponseWriter, r *http.Request)
	// GET /api/info
	GetInfo(w http.ResponseWriter, r *http.Request)
	// GET /api/openapi.json
	GetOpenAPI(w http.ResponseWriter, r *http.Request)
	// GET /api/files
	ListFiles(w http.ResponseWriter, r *http.Request)
	// POST /api/upload
	UploadFiles(w http.ResponseWriter, r *http.Request)
	// DELETE /api/files/batch
	DeleteFiles(w http.ResponseWriter, r *http.Request)
	// DELETE /api/files/{filename}
	DeleteFile(w http.ResponseWriter, r *http.Request, filename string)
	// POST /api/mode/transition
	TransitionMode(w http.ResponseWriter, r *http.Request)
	// POST /api/maintenance/sweep
	SweepPartials(w http.ResponseWriter, r *http.Request)
	// GET /uploads/{filename}
	ServeUpload(w http.ResponseWriter, r *http.Request, filename string)
}

// Server — HTTP-сервер галереи.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт HTTP-сервер с настроенными маршрутами и middleware.
func New(cfg *config.Config, logger *slog.Logger, handler ServerInterface) *Server {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           NewRouter(cfg, logger, handler),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// NewRouter собирает chi-роутер со всеми маршрутами.
//
// Порядок middleware: RealIP (только при TRUST_PROXY) → Recoverer →
// логирование → метрики → CORS.
// Маршруты, меняющие состояние, дополнительно проходят через лимит частоты
// запросов (RATE_LIMIT, RATE_BURST; 0 отключает).
// Статический маршрут /api/files/batch регистрируется раньше
// /api/files/{filename}; chi в любом случае предпочитает статический сегмент.
func NewRouter(cfg *config.Config, logger *slog.Logger, handler ServerInterface) http.Handler {
	router := chi.NewRouter()

	if cfg.TrustProxy {
		router.Use(chimw.RealIP)
	}
	router.Use(recoverer(logger))
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.MetricsMiddleware())
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		apierrors.NotFound(w, "Маршрут не найден")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		apierrors.MethodNotAllowed(w, "Метод не поддерживается")
	})

	router.Route("/api", func(r chi.Router) {
		r.Get("/health", handler.GetHealth)
		r.Get("/info", handler.GetInfo)
		r.Get("/openapi.json", handler.GetOpenAPI)

		r.Get("/files", handler.ListFiles)

		// Запросы на изменение ограничены по частоте на IP клиента
		r.Group(func(r chi.Router) {
			if cfg.RateLimit > 0 {
				r.Use(newIPRateLimiter(cfg.RateLimit, cfg.RateBurst).middleware)
			}
			r.Post("/upload", handler.UploadFiles)
			r.Delete("/files/batch", handler.DeleteFiles)
			r.Delete("/files/{filename}", withFilename(handler.DeleteFile))

			r.Post("/mode/transition", handler.TransitionMode)
			r.Post("/maintenance/sweep", handler.SweepPartials)
		})
	})

	serveUpload := withFilename(handler.ServeUpload)
	router.Get("/uploads/{filename}", serveUpload)
	router.Head("/uploads/{filename}", serveUpload)

	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return router
}

// withFilename извлекает и раскодирует path-параметр filename
// (стиль simple, как в сгенерированных oapi-codegen обёртках).
func withFilename(fn func(w http.ResponseWriter, r *http.Request, filename string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var filename string
		err := runtime.BindStyledParameterWithOptions("simple", "filename", chi.URLParam(r, "filename"), &filename,
			runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
		if err != nil {
			apierrors.ValidationError(w, fmt.Sprintf("Некорректный параметр filename: %s", err))
			return
		}
		fn(w, r, filename)
	}
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown с таймаутом
// SHUTDOWN_TIMEOUT: новые соединения не принимаются, идущие загрузки
// дорабатывают.
func (s *Server) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.RunContext(ctx)
}

// RunContext запускает сервер до отмены ctx.
func (s *Server) RunContext(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Получен сигнал завершения")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...",
		slog.Duration("timeout", s.cfg.ShutdownTimeout),
	)
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}

// Handler возвращает корневой http.Handler сервера.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
