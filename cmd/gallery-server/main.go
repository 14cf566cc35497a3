// Точка входа файловой галереи: HTTP-сервер загрузки и раздачи файлов.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/fede1817/CLOUD-FEDERICO-BRITEZ/internal/api/handlers"
	"github.com/fede1817/CLOUD-FEDERICO-BRITEZ/internal/api/openapi"
	"github.com/fede1817/CLOUD-FEDERICO-BRITEZ/internal/config"
	"github.com/fede1817/CLOUD-FEDERICO-BRITEZ/internal/domain/mode"
	"github.com/fede1817/CLOUD-FEDERICO-BRITEZ/internal/server"
	"github.com/fede1817/CLOUD-FEDERICO-BRITEZ/internal/service"
	"github.com/fede1817/CLOUD-FEDERICO-BRITEZ/internal/storage/filestore"
)

func main() {
	// Загрузка конфигурации из переменных окружения (и .env, если есть)
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка конфигурации: %v\n", err)
		os.Exit(1)
	}

	logger := config.SetupLogger(cfg)
	logger.Info("Файловая галерея запускается",
		slog.String("version", config.Version),
		slog.String("mode", cfg.Mode),
		slog.Int("port", cfg.Port),
		slog.String("upload_path", cfg.UploadPath),
		slog.Int64("max_file_size", cfg.MaxFileSize),
		slog.Int("max_files", cfg.MaxFiles),
	)

	ctx := context.Background()

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка инициализации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Фоновая очистка staging
	a.sweeper.Start(ctx)

	// HTTP-сервер
	srv := server.New(cfg, logger, a.api)

	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		a.sweeper.Stop()
		os.Exit(1)
	}

	logger.Info("Остановка фоновых процессов...")
	a.sweeper.Stop()

	logger.Info("Файловая галерея остановлена")
}

// app — собранные компоненты сервера.
type app struct {
	api     *handlers.APIHandler
	sweeper *service.SweeperService
}

// buildApp инициализирует компоненты. Недоступный каталог хранения
// не считается ошибкой: она уже залогирована, запись вернёт IOError,
// а /api/health покажет degraded.
func buildApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	// 1. Конечный автомат режимов
	initialMode, err := mode.ParseMode(cfg.Mode)
	if err != nil {
		return nil, fmt.Errorf("некорректный режим: %w", err)
	}
	sm, err := mode.NewStateMachine(initialMode)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации state machine: %w", err)
	}

	// 2. Файловое хранилище
	store := filestore.New(cfg.UploadPath, logger)

	// 3. Сервисы
	uploadSvc := service.NewUploadService(cfg, store, sm, logger)
	catalogSvc := service.NewCatalogService(store, sm, logger)
	downloadSvc := service.NewDownloadService(store, sm, logger)
	sweeperSvc := service.NewSweeperService(store, cfg.SweepInterval, cfg.PartialTTL, logger)

	// 4. Встроенный OpenAPI-документ
	openapiHandler, err := openapi.NewHandler(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки OpenAPI-документа: %w", err)
	}

	// 5. Handlers
	api := handlers.NewAPIHandler(
		handlers.NewFilesHandler(cfg, uploadSvc, catalogSvc, downloadSvc, logger),
		handlers.NewSystemHandler(cfg, catalogSvc, sm, diskUsageFn(cfg.UploadPath), logger),
		handlers.NewModeHandler(sm, logger),
		handlers.NewMaintenanceHandler(sweeperSvc),
		handlers.NewHealthHandler(store, sm),
		openapiHandler,
	)

	return &app{api: api, sweeper: sweeperSvc}, nil
}

// diskUsageFn возвращает функцию для получения информации об ёмкости диска.
func diskUsageFn(dir string) handlers.DiskUsageFunc {
	return func() (int64, int64, int64, error) {
		return getDiskUsage(dir)
	}
}
