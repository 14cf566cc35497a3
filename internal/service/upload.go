// Пакет service — бизнес-логика файловой галереи.
// upload.go — Storage Gateway: приём multipart-загрузки и запись на диск.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/fede1817/CLOUD-FEDERICO-BRITEZ/internal/api/middleware"
	"github.com/fede1817/CLOUD-FEDERICO-BRITEZ/internal/config"
	"github.com/fede1817/CLOUD-FEDERICO-BRITEZ/internal/domain/mode"
	"github.com/fede1817/CLOUD-FEDERICO-BRITEZ/internal/domain/model"
	"github.com/fede1817/CLOUD-FEDERICO-BRITEZ/internal/storage/filestore"
)

// FilesField — имя multipart-поля с файлами.
const FilesField = "files"

// PartReader — источник частей multipart-запроса.
// *multipart.Reader удовлетворяет интерфейсу.
type PartReader interface {
	NextPart() (*multipart.Part, error)
}

// UploadedFile — метаданные принятого файла.
type UploadedFile struct {
	StoredName   string
	OriginalName string
	Size         int64
	Type         model.FileType
	Extension    string
}

// UploadResult — результат загрузки.
type UploadResult struct {
	Files     []UploadedFile
	TotalSize int64
}

// UploadService — сервис загрузки файлов.
type UploadService struct {
	cfg    *config.Config
	store  *filestore.FileStore
	sm     *mode.StateMachine
	logger *slog.Logger
	now    func() time.Time
}

// NewUploadService создаёт сервис загрузки файлов.
func NewUploadService(
	cfg *config.Config,
	store *filestore.FileStore,
	sm *mode.StateMachine,
	logger *slog.Logger,
) *UploadService {
	return &UploadService{
		cfg:    cfg,
		store:  store,
		sm:     sm,
		logger: logger.With(slog.String("component", "upload_service")),
		now:    time.Now,
	}
}

// staged — принятая часть, ожидающая публикации.
type staged struct {
	file         *filestore.StagedFile
	originalName string
}

// Upload принимает от 1 до MaxFiles файлов из поля "files".
//
// Поток:
//  1. Проверка mode
//  2. Каждая часть пишется в staging с лимитом MaxFileSize
//  3. После приёма всех частей staging-файлы получают уникальные имена
//     и публикуются через rename
//
// Любой отказ отклоняет запрос целиком: staging-файлы и уже
// опубликованные файлы этого запроса удаляются.
func (s *UploadService) Upload(ctx context.Context, parts PartReader) (*UploadResult, error) {
	if !s.sm.CanPerform(mode.OpUpload) {
		return nil, modeError(fmt.Sprintf("Загрузка файлов недоступна в режиме %s", s.sm.CurrentMode()))
	}

	var accepted []staged
	discardAll := func() {
		for _, st := range accepted {
			s.store.Discard(st.file)
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			discardAll()
			return nil, s.fail(ioError("Загрузка прервана", err))
		}

		part, err := parts.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			discardAll()
			return nil, s.fail(classifyPartError(err))
		}

		if part.FormName() != FilesField || part.FileName() == "" {
			part.Close()
			discardAll()
			return nil, s.fail(validationError(CodeUnexpectedField,
				fmt.Sprintf("Неожиданное поле формы %q: файлы передаются в поле %q", part.FormName(), FilesField)))
		}

		if len(accepted) >= s.cfg.MaxFiles {
			part.Close()
			discardAll()
			return nil, s.fail(limitError(CodeTooManyFiles,
				fmt.Sprintf("Слишком много файлов. Максимум %d за запрос", s.cfg.MaxFiles)))
		}

		file, err := s.store.Stage(part, s.cfg.MaxFileSize)
		part.Close()
		if err != nil {
			discardAll()
			if errors.Is(err, filestore.ErrTooLarge) {
				return nil, s.fail(limitError(CodeFileTooLarge,
					fmt.Sprintf("Файл слишком большой. Лимит: %s", model.FormatSize(s.cfg.MaxFileSize))))
			}
			return nil, s.fail(classifyStageError(err))
		}
		accepted = append(accepted, staged{file: file, originalName: part.FileName()})
	}

	if len(accepted) == 0 {
		return nil, s.fail(validationError(CodeNoFiles, "Файлы не переданы"))
	}

	result, err := s.publish(accepted)
	if err != nil {
		return nil, s.fail(err)
	}

	middleware.OperationsTotal.WithLabelValues("upload", "success").Add(float64(len(result.Files)))
	middleware.UploadedBytesTotal.Add(float64(result.TotalSize))

	s.logger.Info("Файлы загружены",
		slog.Int("count", len(result.Files)),
		slog.Int64("total_size", result.TotalSize),
	)
	return result, nil
}

// publish присваивает staging-файлам уникальные имена и публикует их.
// При ошибке откатывает уже опубликованные файлы запроса.
func (s *UploadService) publish(accepted []staged) (*UploadResult, *Error) {
	result := &UploadResult{Files: make([]UploadedFile, 0, len(accepted))}

	rollback := func(from int) {
		for _, f := range result.Files {
			if err := s.store.Remove(f.StoredName); err != nil {
				s.logger.Error("Ошибка отката загруженного файла",
					slog.String("name", f.StoredName),
					slog.String("error", err.Error()),
				)
			}
		}
		for _, st := range accepted[from:] {
			s.store.Discard(st.file)
		}
	}

	for i, st := range accepted {
		storedName, err := s.commit(st)
		if err != nil {
			rollback(i)
			return nil, ioError("Ошибка сохранения файла на диск", err)
		}

		result.Files = append(result.Files, UploadedFile{
			StoredName:   storedName,
			OriginalName: st.originalName,
			Size:         st.file.Size,
			Type:         model.Classify(storedName),
			Extension:    model.Extension(storedName),
		})
		result.TotalSize += st.file.Size

		s.logger.Debug("Файл сохранён",
			slog.String("name", storedName),
			slog.String("original_name", st.originalName),
			slog.Int64("size", st.file.Size),
		)
	}
	return result, nil
}

// commit публикует staging-файл. Коллизия имени практически невозможна,
// но если случится — генерируется новое имя.
func (s *UploadService) commit(st staged) (string, error) {
	const attempts = 3
	var err error
	for i := 0; i < attempts; i++ {
		name := filestore.GenerateStoredName(st.originalName, s.now())
		err = s.store.Commit(st.file, name)
		if err == nil {
			return name, nil
		}
		if !errors.Is(err, filestore.ErrExists) {
			return "", err
		}
	}
	return "", err
}

// fail логирует и считает неудачную загрузку.
func (s *UploadService) fail(err *Error) *Error {
	middleware.OperationsTotal.WithLabelValues("upload", "error").Inc()
	if err.Kind == KindIO {
		s.logger.Error("Ошибка загрузки файлов",
			slog.String("code", err.Code),
			slog.Any("error", err.Err),
		)
	} else {
		s.logger.Warn("Загрузка отклонена",
			slog.String("code", err.Code),
			slog.String("message", err.Message),
		)
	}
	return err
}

// classifyPartError классифицирует ошибку получения очередной части.
// Превышение http.MaxBytesReader считается лимитом, остальное битым multipart.
func classifyPartError(err error) *Error {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return limitError(CodeFileTooLarge, "Тело запроса превышает допустимый размер")
	}
	return &Error{
		Kind:    KindValidation,
		Code:    CodeValidationError,
		Message: "Некорректный multipart-запрос",
		Err:     err,
	}
}

// classifyStageError классифицирует ошибку записи части. Обрыв тела
// запроса относится к валидации, остальное к вводу-выводу сервера.
func classifyStageError(err error) *Error {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return limitError(CodeFileTooLarge, "Тело запроса превышает допустимый размер")
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, multipart.ErrMessageTooLarge) {
		return &Error{
			Kind:    KindValidation,
			Code:    CodeValidationError,
			Message: "Тело запроса оборвано",
			Err:     err,
		}
	}
	return ioError("Ошибка записи файла", err)
}
