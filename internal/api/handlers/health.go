// health.go — обработчик GET /api/health (проверка живости).
package handlers

import (
	"net/http"
	"time"

	"github.com/fede1817/CLOUD-FEDERICO-BRITEZ/internal/config"
	"github.com/fede1817/CLOUD-FEDERICO-BRITEZ/internal/domain/mode"
)

// statusFail — строковая константа для статуса "fail" в health checks.
const statusFail = "fail"

// WritableChecker — проверка возможности записи в каталог хранения.
type WritableChecker interface {
	CheckWritable() error
}

// features — возможности сервера, перечисляемые в /api/health.
var features = []string{
	"multi-upload",
	"all-file-types",
	"type-filter",
	"pagination",
	"batch-delete",
	"range-download",
	"read-only-mode",
}

// HealthHandler реализует GET /api/health.
type HealthHandler struct {
	version string
	storage WritableChecker
	sm      *mode.StateMachine
}

// NewHealthHandler создаёт обработчик health endpoint.
// storage может быть nil: проверка каталога тогда пропускается.
func NewHealthHandler(storage WritableChecker, sm *mode.StateMachine) *HealthHandler {
	return &HealthHandler{
		version: config.Version,
		storage: storage,
		sm:      sm,
	}
}

// GetHealth обрабатывает GET /api/health.
// Всегда 200: недоступный на запись каталог переводит статус в degraded.
func (h *HealthHandler) GetHealth(w http.ResponseWriter, _ *http.Request) {
	storageCheck := h.checkStorage()

	status := "ok"
	message := "Сервер работает"
	if storageCheck["status"] != "ok" {
		status = "degraded"
		message = "Сервер работает, каталог хранения недоступен на запись"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"status":    status,
		"message":   message,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.version,
		"mode":      h.sm.CurrentMode(),
		"features":  features,
		"checks": map[string]any{
			"storage": storageCheck,
		},
	})
}

// checkStorage проверяет доступность каталога хранения на запись.
func (h *HealthHandler) checkStorage() map[string]any {
	if h.storage == nil {
		return map[string]any{
			"status":  "ok",
			"message": "Проверка не настроена",
		}
	}
	if err := h.storage.CheckWritable(); err != nil {
		return map[string]any{
			"status":  statusFail,
			"message": "Каталог хранения недоступен для записи: " + err.Error(),
		}
	}
	return map[string]any{
		"status": "ok",
	}
}
