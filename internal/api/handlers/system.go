// system.go — обработчик GET /api/info (сводная статистика хранилища).
package handlers

import (
	"log/slog"
	"net/http"

	apierrors "github.com/fede1817/CLOUD-FEDERICO-BRITEZ/internal/api/errors"
	"github.com/fede1817/CLOUD-FEDERICO-BRITEZ/internal/config"
	"github.com/fede1817/CLOUD-FEDERICO-BRITEZ/internal/domain/mode"
	"github.com/fede1817/CLOUD-FEDERICO-BRITEZ/internal/domain/model"
	"github.com/fede1817/CLOUD-FEDERICO-BRITEZ/internal/service"
)

// DiskUsageFunc возвращает ёмкость файловой системы каталога хранения.
type DiskUsageFunc func() (total, used, available int64, err error)

// SystemHandler — обработчик системных endpoints.
type SystemHandler struct {
	cfg        *config.Config
	catalogSvc *service.CatalogService
	sm         *mode.StateMachine
	diskUsage  DiskUsageFunc
	logger     *slog.Logger
}

// NewSystemHandler создаёт обработчик системных endpoints.
// diskUsage может быть nil: блок disk тогда не возвращается.
func NewSystemHandler(
	cfg *config.Config,
	catalogSvc *service.CatalogService,
	sm *mode.StateMachine,
	diskUsage DiskUsageFunc,
	logger *slog.Logger,
) *SystemHandler {
	return &SystemHandler{
		cfg:        cfg,
		catalogSvc: catalogSvc,
		sm:         sm,
		diskUsage:  diskUsage,
		logger:     logger.With(slog.String("component", "system_handler")),
	}
}

// GetInfo обрабатывает GET /api/info.
func (h *SystemHandler) GetInfo(w http.ResponseWriter, r *http.Request) {
	stats, err := h.catalogSvc.Stats(r.Context())
	if err != nil {
		apierrors.FromService(w, h.logger, err)
		return
	}

	ops := h.sm.AllowedOperations()
	allowedOps := make([]string, 0, len(ops))
	for _, op := range ops {
		allowedOps = append(allowedOps, string(op))
	}

	data := map[string]any{
		"totalFiles":           stats.TotalFiles,
		"totalSize":            stats.TotalSize,
		"totalSizeFormatted":   model.FormatSize(stats.TotalSize),
		"uploadPath":           h.cfg.UploadPath,
		"maxFileSize":          h.cfg.MaxFileSize,
		"maxFileSizeFormatted": model.FormatSize(h.cfg.MaxFileSize),
		"maxFiles":             h.cfg.MaxFiles,
		"mode":                 h.sm.CurrentMode(),
		"allowedOperations":    allowedOps,
		"allowedFileTypes":     "all",
		"byType":               stats.ByType,
		"modeHistory":          h.sm.History(),
	}

	if h.diskUsage != nil {
		total, used, available, err := h.diskUsage()
		if err != nil {
			h.logger.Warn("Не удалось получить ёмкость диска", slog.String("error", err.Error()))
		} else {
			data["disk"] = map[string]int64{
				"total":     total,
				"used":      used,
				"available": available,
			}
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    data,
	})
}
