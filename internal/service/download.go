// download.go — сервис отдачи загруженных файлов (/uploads/{storedName}).
package service

import (
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"

	"github.com/fede1817/CLOUD-FEDERICO-BRITEZ/internal/api/middleware"
	"github.com/fede1817/CLOUD-FEDERICO-BRITEZ/internal/domain/mode"
	"github.com/fede1817/CLOUD-FEDERICO-BRITEZ/internal/domain/model"
	"github.com/fede1817/CLOUD-FEDERICO-BRITEZ/internal/storage/filestore"
)

// DownloadService — сервис скачивания файлов.
type DownloadService struct {
	store  *filestore.FileStore
	sm     *mode.StateMachine
	logger *slog.Logger
}

// NewDownloadService создаёт сервис скачивания файлов.
func NewDownloadService(
	store *filestore.FileStore,
	sm *mode.StateMachine,
	logger *slog.Logger,
) *DownloadService {
	return &DownloadService{
		store:  store,
		sm:     sm,
		logger: logger.With(slog.String("component", "download_service")),
	}
}

// Serve отдаёт файл клиенту через http.ServeContent.
// Поддерживает Range requests (206 Partial Content) и If-Modified-Since.
// Content-Type определяется по расширению имени на диске.
//
// Ошибка возвращается только до начала записи ответа.
func (s *DownloadService) Serve(w http.ResponseWriter, r *http.Request, storedName string) error {
	if !s.sm.CanPerform(mode.OpDownload) {
		return modeError(fmt.Sprintf("Скачивание файлов недоступно в режиме %s", s.sm.CurrentMode()))
	}

	file, err := s.store.Open(storedName)
	if err != nil {
		middleware.OperationsTotal.WithLabelValues("download", "error").Inc()
		switch {
		case errors.Is(err, filestore.ErrInvalidName):
			return validationError(CodeInvalidFilename, "Недопустимое имя файла")
		case errors.Is(err, filestore.ErrNotFound):
			return notFoundError("Файл не найден")
		default:
			s.logger.Error("Ошибка открытия файла",
				slog.String("name", storedName),
				slog.String("error", err.Error()),
			)
			return ioError("Ошибка чтения файла", err)
		}
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		middleware.OperationsTotal.WithLabelValues("download", "error").Inc()
		return ioError("Ошибка чтения файла", err)
	}

	displayName := model.OriginalName(storedName)
	if displayName == "" {
		displayName = storedName
	}

	h := w.Header()
	if cd := mime.FormatMediaType("inline", map[string]string{"filename": displayName}); cd != "" {
		h.Set("Content-Disposition", cd)
	}
	// Тип любой, в том числе html и svg: браузер не должен исполнять
	// содержимое в контексте origin сервера.
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("Content-Security-Policy", "sandbox")

	// ServeContent выставляет Content-Type по расширению storedName
	http.ServeContent(w, r, storedName, stat.ModTime(), file)

	middleware.OperationsTotal.WithLabelValues("download", "success").Inc()

	s.logger.Debug("Файл отдан",
		slog.String("name", storedName),
		slog.Int64("size", stat.Size()),
	)
	return nil
}
