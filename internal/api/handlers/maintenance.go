// maintenance.go — обработчик POST /api/maintenance/sweep.
// Делегирует внеплановую очистку staging в SweeperService.
package handlers

import (
	"net/http"

	"github.com/fede1817/CLOUD-FEDERICO-BRITEZ/internal/service"
)

// SweepRunner — интерфейс для запуска очистки.
// Позволяет тестировать handler без полного SweeperService.
type SweepRunner interface {
	// RunOnce выполняет один проход очистки. Параллельные вызовы
	// сериализуются внутри реализации.
	RunOnce() *service.SweepResult
}

// MaintenanceHandler — обработчик endpoints обслуживания.
type MaintenanceHandler struct {
	sweeper SweepRunner
}

// NewMaintenanceHandler создаёт обработчик maintenance endpoints.
// sweeper может быть nil (заглушка — возвращает пустой результат).
func NewMaintenanceHandler(sweeper SweepRunner) *MaintenanceHandler {
	return &MaintenanceHandler{sweeper: sweeper}
}

// SweepPartials обрабатывает POST /api/maintenance/sweep.
// Запускает синхронный проход очистки и возвращает результат.
func (h *MaintenanceHandler) SweepPartials(w http.ResponseWriter, _ *http.Request) {
	result := &service.SweepResult{}
	if h.sweeper != nil {
		result = h.sweeper.RunOnce()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data": map[string]any{
			"scanned":    result.Scanned,
			"removed":    result.Removed,
			"errors":     result.Errors,
			"durationMs": result.Duration.Milliseconds(),
		},
	})
}
