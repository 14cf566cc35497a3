// handler.go — APIHandler реализует server.ServerInterface,
// делегируя вызовы в отдельные handler'ы по доменам.
package handlers

import (
	"net/http"

	"github.com/fede1817/CLOUD-FEDERICO-BRITEZ/internal/server"
)

// APIHandler — единая реализация ServerInterface, собирающая
// все доменные handlers в один объект.
type APIHandler struct {
	files       *FilesHandler
	system      *SystemHandler
	modeHandler *ModeHandler
	maintenance *MaintenanceHandler
	health      *HealthHandler
	openapi     http.Handler
}

// NewAPIHandler создаёт единый handler для всех endpoints.
func NewAPIHandler(
	files *FilesHandler,
	system *SystemHandler,
	modeHandler *ModeHandler,
	maintenance *MaintenanceHandler,
	health *HealthHandler,
	openapi http.Handler,
) *APIHandler {
	return &APIHandler{
		files:       files,
		system:      system,
		modeHandler: modeHandler,
		maintenance: maintenance,
		health:      health,
		openapi:     openapi,
	}
}

// --- Files ---

func (h *APIHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	h.files.ListFiles(w, r)
}

func (h *APIHandler) UploadFiles(w http.ResponseWriter, r *http.Request) {
	h.files.UploadFiles(w, r)
}

func (h *APIHandler) DeleteFile(w http.ResponseWriter, r *http.Request, filename string) {
	h.files.DeleteFile(w, r, filename)
}

func (h *APIHandler) DeleteFiles(w http.ResponseWriter, r *http.Request) {
	h.files.DeleteFiles(w, r)
}

func (h *APIHandler) ServeUpload(w http.ResponseWriter, r *http.Request, filename string) {
	h.files.ServeUpload(w, r, filename)
}

// --- System ---

func (h *APIHandler) GetInfo(w http.ResponseWriter, r *http.Request) {
	h.system.GetInfo(w, r)
}

func (h *APIHandler) GetOpenAPI(w http.ResponseWriter, r *http.Request) {
	h.openapi.ServeHTTP(w, r)
}

// --- Mode ---

func (h *APIHandler) TransitionMode(w http.ResponseWriter, r *http.Request) {
	h.modeHandler.TransitionMode(w, r)
}

// --- Maintenance ---

func (h *APIHandler) SweepPartials(w http.ResponseWriter, r *http.Request) {
	h.maintenance.SweepPartials(w, r)
}

// --- Health ---

func (h *APIHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	h.health.GetHealth(w, r)
}

// Проверка соответствия интерфейсу на этапе компиляции.
var _ server.ServerInterface = (*APIHandler)(nil)
