// mode.go — обработчик POST /api/mode/transition.
// Переключение хранилища между rw и ro во время работы.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	apierrors "github.com/fede1817/CLOUD-FEDERICO-BRITEZ/internal/api/errors"
	"github.com/fede1817/CLOUD-FEDERICO-BRITEZ/internal/domain/mode"
)

// ModeHandler — обработчик endpoint смены режима.
type ModeHandler struct {
	sm     *mode.StateMachine
	logger *slog.Logger
}

// NewModeHandler создаёт обработчик смены режима.
func NewModeHandler(sm *mode.StateMachine, logger *slog.Logger) *ModeHandler {
	return &ModeHandler{
		sm:     sm,
		logger: logger.With(slog.String("component", "mode_handler")),
	}
}

type modeTransitionRequest struct {
	Mode string `json:"mode"`
}

// TransitionMode обрабатывает POST /api/mode/transition.
// Тело: {"mode": "rw" | "ro"}.
func (h *ModeHandler) TransitionMode(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)

	var req modeTransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	targetMode, err := mode.ParseMode(req.Mode)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	previousMode := h.sm.CurrentMode()

	if err := h.sm.TransitionTo(targetMode); err != nil {
		var transErr *mode.TransitionError
		if errors.As(err, &transErr) {
			apierrors.InvalidTransition(w, transErr.Message)
			return
		}
		apierrors.InternalError(w, "Ошибка смены режима")
		return
	}

	now := time.Now().UTC()

	h.logger.Info("Режим изменён",
		slog.String("from", string(previousMode)),
		slog.String("to", string(targetMode)),
		slog.Time("at", now),
	)

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data": map[string]any{
			"previousMode":      previousMode,
			"currentMode":       targetMode,
			"transitionedAt":    now.Format(time.RFC3339),
			"allowedOperations": h.sm.AllowedOperations(),
		},
	})
}
