// files.go — HTTP handlers файловых операций галереи.
// Upload, List, Delete (одиночное и пакетное), отдача /uploads.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oapi-codegen/runtime"

	apierrors "github.com/fede1817/CLOUD-FEDERICO-BRITEZ/internal/api/errors"
	"github.com/fede1817/CLOUD-FEDERICO-BRITEZ/internal/config"
	"github.com/fede1817/CLOUD-FEDERICO-BRITEZ/internal/domain/model"
	"github.com/fede1817/CLOUD-FEDERICO-BRITEZ/internal/service"
)

const (
	// multipartPartOverhead — запас на заголовки и границы одной части
	multipartPartOverhead = 64 << 10
	// maxJSONBody — лимит тела JSON-запросов
	maxJSONBody = 1 << 20
)

// FilesHandler — обработчик файловых endpoints.
type FilesHandler struct {
	cfg         *config.Config
	uploadSvc   *service.UploadService
	catalogSvc  *service.CatalogService
	downloadSvc *service.DownloadService
	logger      *slog.Logger
}

// NewFilesHandler создаёт обработчик файловых endpoints.
func NewFilesHandler(
	cfg *config.Config,
	uploadSvc *service.UploadService,
	catalogSvc *service.CatalogService,
	downloadSvc *service.DownloadService,
	logger *slog.Logger,
) *FilesHandler {
	return &FilesHandler{
		cfg:         cfg,
		uploadSvc:   uploadSvc,
		catalogSvc:  catalogSvc,
		downloadSvc: downloadSvc,
		logger:      logger.With(slog.String("component", "files_handler")),
	}
}

// fileEntry — файл в ответах API.
type fileEntry struct {
	Name          string         `json:"name"`
	OriginalName  string         `json:"originalName"`
	Size          int64          `json:"size"`
	SizeFormatted string         `json:"sizeFormatted"`
	UploadDate    string         `json:"uploadDate,omitempty"`
	Type          model.FileType `json:"type"`
	URL           string         `json:"url"`
	Extension     string         `json:"extension"`
	Icon          string         `json:"icon"`
}

type paginationBody struct {
	Current    int  `json:"current"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	TotalFiles int  `json:"totalFiles"`
	Limit      int  `json:"limit"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

type batchDeleteRequest struct {
	Filenames []string `json:"filenames"`
}

type batchFailure struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
	Code     string `json:"code,omitempty"`
}

// UploadFiles обрабатывает POST /api/upload.
// Multipart form: files (1..MAX_FILES частей). Тело читается потоком,
// без буферизации в памяти или во временных файлах net/http.
func (h *FilesHandler) UploadFiles(w http.ResponseWriter, r *http.Request) {
	bodyLimit := int64(h.cfg.MaxFiles+1)*multipartPartOverhead + int64(h.cfg.MaxFiles)*h.cfg.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, bodyLimit)

	mr, err := r.MultipartReader()
	if err != nil {
		apierrors.ValidationError(w, "Ожидается multipart/form-data с полем files")
		return
	}

	result, err := h.uploadSvc.Upload(r.Context(), mr)
	if err != nil {
		apierrors.FromService(w, h.logger, err)
		return
	}

	base := h.baseURL(r)
	files := make([]fileEntry, 0, len(result.Files))
	for _, f := range result.Files {
		files = append(files, fileEntry{
			Name:          f.StoredName,
			OriginalName:  f.OriginalName,
			Size:          f.Size,
			SizeFormatted: model.FormatSize(f.Size),
			Type:          f.Type,
			URL:           fileURL(base, f.StoredName),
			Extension:     f.Extension,
			Icon:          model.Icon(f.OriginalName, f.Type),
		})
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": fmt.Sprintf("Загружено файлов: %d", len(files)),
		"data": map[string]any{
			"files":              files,
			"totalSize":          result.TotalSize,
			"totalSizeFormatted": model.FormatSize(result.TotalSize),
		},
	})
}

// ListFiles обрабатывает GET /api/files.
// Фильтр: type. Пагинация: page (с 1), limit (по умолчанию 100).
func (h *FilesHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	var (
		fileType *string
		page     *int
		limit    *int
	)
	query := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "type", query, &fileType); err != nil {
		apierrors.ValidationError(w, fmt.Sprintf("Некорректный параметр type: %s", err))
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "page", query, &page); err != nil {
		apierrors.ValidationError(w, "Параметр page должен быть целым числом")
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", query, &limit); err != nil {
		apierrors.ValidationError(w, "Параметр limit должен быть целым числом")
		return
	}

	params := service.ListParams{Page: 1, Limit: service.DefaultPageLimit}
	if fileType != nil {
		params.Type = *fileType
	}
	if page != nil {
		params.Page = *page
	}
	if limit != nil {
		params.Limit = *limit
	}

	result, err := h.catalogSvc.List(r.Context(), params)
	if err != nil {
		apierrors.FromService(w, h.logger, err)
		return
	}

	base := h.baseURL(r)
	files := make([]fileEntry, 0, len(result.Files))
	for _, f := range result.Files {
		files = append(files, storedToEntry(f, base))
	}

	p := result.Pagination
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data": map[string]any{
			"files": files,
			"pagination": paginationBody{
				Current:    p.Current,
				Total:      p.TotalPages,
				TotalPages: p.TotalPages,
				TotalFiles: p.TotalFiles,
				Limit:      p.Limit,
				HasNext:    p.HasNext,
				HasPrev:    p.HasPrev,
			},
		},
	})
}

// DeleteFile обрабатывает DELETE /api/files/{filename}.
func (h *FilesHandler) DeleteFile(w http.ResponseWriter, r *http.Request, filename string) {
	if err := h.catalogSvc.Delete(r.Context(), filename); err != nil {
		apierrors.FromService(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Файл удалён",
		"data":    map[string]string{"filename": filename},
	})
}

// DeleteFiles обрабатывает DELETE /api/files/batch.
// Тело: {"filenames": [...]}. Ошибка по отдельному имени не влияет на
// остальные и не меняет статус ответа.
func (h *FilesHandler) DeleteFiles(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)

	var req batchDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			apierrors.ValidationError(w, "Тело запроса слишком большое")
			return
		}
		apierrors.ValidationError(w, "Некорректный JSON: ожидается {\"filenames\": [...]}")
		return
	}

	result, err := h.catalogSvc.DeleteBatch(r.Context(), req.Filenames)
	if err != nil {
		apierrors.FromService(w, h.logger, err)
		return
	}

	failed := make([]batchFailure, 0, len(result.Failed))
	for _, f := range result.Failed {
		failed = append(failed, batchFailure{Filename: f.Filename, Error: f.Error, Code: f.Code})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("Удалено: %d, ошибок: %d", len(result.Deleted), len(failed)),
		"data": map[string]any{
			"success":      result.Deleted,
			"failed":       failed,
			"totalSuccess": len(result.Deleted),
			"totalFailed":  len(failed),
		},
	})
}

// ServeUpload обрабатывает GET /uploads/{filename}.
// Поддерживает Range requests (206) и If-Modified-Since (304).
func (h *FilesHandler) ServeUpload(w http.ResponseWriter, r *http.Request, filename string) {
	if err := h.downloadSvc.Serve(w, r, filename); err != nil {
		apierrors.FromService(w, h.logger, err)
	}
}

// baseURL — схема и хост, по которым клиент обратился к серверу,
// либо PUBLIC_BASE_URL, если он задан.
func (h *FilesHandler) baseURL(r *http.Request) string {
	if h.cfg.PublicBaseURL != "" {
		return h.cfg.PublicBaseURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if h.cfg.TrustProxy {
		if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
			scheme = proto
		}
	}
	return scheme + "://" + r.Host
}

// fileURL — публичная ссылка на файл.
func fileURL(base, storedName string) string {
	return strings.TrimRight(base, "/") + "/uploads/" + url.PathEscape(storedName)
}

// storedToEntry преобразует доменную модель в API-формат.
func storedToEntry(f *model.StoredFile, base string) fileEntry {
	return fileEntry{
		Name:          f.StoredName,
		OriginalName:  f.OriginalName,
		Size:          f.Size,
		SizeFormatted: model.FormatSize(f.Size),
		UploadDate:    formatTime(f.ModTime),
		Type:          f.Type,
		URL:           fileURL(base, f.StoredName),
		Extension:     f.Extension,
		Icon:          model.Icon(f.StoredName, f.Type),
	}
}

// writeJSON вспомогательная функция для записи JSON-ответа.
func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// formatTime форматирует время для API-ответов.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
