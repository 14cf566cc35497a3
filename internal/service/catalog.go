// catalog.go — Catalog Service: каталог файлов, построенный сканированием
// каталога хранения, и удаление (одиночное и пакетное).
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/fede1817/CLOUD-FEDERICO-BRITEZ/internal/api/middleware"
	"github.com/fede1817/CLOUD-FEDERICO-BRITEZ/internal/domain/mode"
	"github.com/fede1817/CLOUD-FEDERICO-BRITEZ/internal/domain/model"
	"github.com/fede1817/CLOUD-FEDERICO-BRITEZ/internal/storage/filestore"
)

const (
	// DefaultPageLimit — размер страницы по умолчанию
	DefaultPageLimit = 100
	// MaxPageLimit — максимальный размер страницы
	MaxPageLimit = 1000
	// MaxBatchSize — максимум имён в одном пакетном удалении
	MaxBatchSize = 1000
)

// ListParams — параметры листинга.
type ListParams struct {
	// Фильтр по категории, пустая строка означает без фильтра
	Type string
	// Page — номер страницы, начиная с 1
	Page int
	// Limit — размер страницы
	Limit int
}

// Pagination — сведения о странице.
type Pagination struct {
	Current    int
	TotalPages int
	TotalFiles int
	Limit      int
	HasNext    bool
	HasPrev    bool
}

// ListResult — страница каталога.
type ListResult struct {
	Files      []*model.StoredFile
	Pagination Pagination
}

// BatchFailure — причина отказа по одному имени пакета.
type BatchFailure struct {
	Filename string
	Error    string
	Code     string
}

// BatchResult — итог пакетного удаления.
type BatchResult struct {
	Deleted []string
	Failed  []BatchFailure
}

// Stats — агрегаты по каталогу.
type Stats struct {
	TotalFiles int
	TotalSize  int64
	ByType     map[model.FileType]int
}

// CatalogService — сервис каталога файлов.
// Кэша нет: каждый вызов заново сканирует каталог хранения.
type CatalogService struct {
	store  *filestore.FileStore
	sm     *mode.StateMachine
	logger *slog.Logger
}

// NewCatalogService создаёт сервис каталога.
func NewCatalogService(
	store *filestore.FileStore,
	sm *mode.StateMachine,
	logger *slog.Logger,
) *CatalogService {
	return &CatalogService{
		store:  store,
		sm:     sm,
		logger: logger.With(slog.String("component", "catalog_service")),
	}
}

// List возвращает страницу каталога.
//
// Поток:
//  1. Сканирование каталога (stat каждого файла)
//  2. Фильтр по категории
//  3. Сортировка по mtime, новые первыми
//  4. Срез [(page-1)*limit, page*limit)
func (s *CatalogService) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.Page < 1 {
		return nil, validationError(CodeValidationError, "Параметр page должен быть >= 1")
	}
	if params.Limit < 1 || params.Limit > MaxPageLimit {
		return nil, validationError(CodeValidationError,
			fmt.Sprintf("Параметр limit должен быть в диапазоне 1-%d", MaxPageLimit))
	}
	limit := params.Limit

	var filter model.FileType
	if params.Type != "" {
		t, ok := model.ParseFileType(params.Type)
		if !ok {
			return nil, validationError(CodeValidationError,
				fmt.Sprintf("Неизвестный тип файла %q", params.Type))
		}
		filter = t
	}

	files, err := s.store.Scan(ctx)
	if err != nil {
		s.logger.Error("Ошибка сканирования каталога", slog.String("error", err.Error()))
		return nil, ioError("Ошибка чтения каталога файлов", err)
	}

	if filter != "" {
		matched := files[:0]
		for _, f := range files {
			if f.Type == filter {
				matched = append(matched, f)
			}
		}
		files = matched
	}

	sort.SliceStable(files, func(i, j int) bool {
		return files[i].ModTime.After(files[j].ModTime)
	})

	total := len(files)
	totalPages := (total + limit - 1) / limit
	page := []*model.StoredFile{}
	// Сравнение до умножения: (page-1)*limit переполняется для больших page
	if params.Page <= totalPages {
		start := (params.Page - 1) * limit
		end := min(start+limit, total)
		page = files[start:end]
	}

	middleware.OperationsTotal.WithLabelValues("list", "success").Inc()

	return &ListResult{
		Files: page,
		Pagination: Pagination{
			Current:    params.Page,
			TotalPages: totalPages,
			TotalFiles: total,
			Limit:      limit,
			HasNext:    params.Page < totalPages,
			HasPrev:    params.Page > 1,
		},
	}, nil
}

// Delete удаляет один файл по имени на диске.
func (s *CatalogService) Delete(ctx context.Context, name string) error {
	if !s.sm.CanPerform(mode.OpDelete) {
		return modeError(fmt.Sprintf("Удаление файлов недоступно в режиме %s", s.sm.CurrentMode()))
	}
	if err := s.remove(name); err != nil {
		middleware.OperationsTotal.WithLabelValues("delete", "error").Inc()
		return err
	}
	middleware.OperationsTotal.WithLabelValues("delete", "success").Inc()
	s.logger.Info("Файл удалён", slog.String("name", name))
	return nil
}

// DeleteBatch удаляет файлы независимо друг от друга: ошибка по одному
// имени не прерывает обработку остальных. Повторяющиеся имена
// обрабатываются один раз.
func (s *CatalogService) DeleteBatch(ctx context.Context, names []string) (*BatchResult, error) {
	if !s.sm.CanPerform(mode.OpDelete) {
		return nil, modeError(fmt.Sprintf("Удаление файлов недоступно в режиме %s", s.sm.CurrentMode()))
	}
	if len(names) == 0 {
		return nil, validationError(CodeValidationError, "Список filenames пуст")
	}
	if len(names) > MaxBatchSize {
		return nil, limitError(CodeTooManyFiles,
			fmt.Sprintf("Слишком много имён. Максимум %d за запрос", MaxBatchSize))
	}

	result := &BatchResult{Deleted: []string{}, Failed: []BatchFailure{}}
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true

		if err := ctx.Err(); err != nil {
			return nil, ioError("Удаление прервано", err)
		}

		if err := s.remove(name); err != nil {
			result.Failed = append(result.Failed, BatchFailure{
				Filename: name,
				Error:    err.Message,
				Code:     err.Code,
			})
			middleware.OperationsTotal.WithLabelValues("delete", "error").Inc()
			continue
		}
		result.Deleted = append(result.Deleted, name)
		middleware.OperationsTotal.WithLabelValues("delete", "success").Inc()
	}

	s.logger.Info("Пакетное удаление завершено",
		slog.Int("deleted", len(result.Deleted)),
		slog.Int("failed", len(result.Failed)),
	)
	return result, nil
}

// remove — общая часть одиночного и пакетного удаления.
// Повторное удаление одного имени конкурентными запросами даёт
// NotFound второму, это штатная ситуация.
func (s *CatalogService) remove(name string) *Error {
	err := s.store.Remove(name)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, filestore.ErrInvalidName):
		return validationError(CodeInvalidFilename, "Недопустимое имя файла")
	case errors.Is(err, filestore.ErrNotFound):
		return notFoundError("Файл не найден")
	default:
		s.logger.Error("Ошибка удаления файла",
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
		return ioError("Ошибка удаления файла", err)
	}
}

// Stats считает количество и суммарный размер файлов, в том числе по категориям.
func (s *CatalogService) Stats(ctx context.Context) (*Stats, error) {
	files, err := s.store.Scan(ctx)
	if err != nil {
		s.logger.Error("Ошибка сканирования каталога", slog.String("error", err.Error()))
		return nil, ioError("Ошибка чтения каталога файлов", err)
	}

	stats := &Stats{ByType: make(map[model.FileType]int, len(model.AllTypes))}
	for _, t := range model.AllTypes {
		stats.ByType[t] = 0
	}
	for _, f := range files {
		stats.TotalFiles++
		stats.TotalSize += f.Size
		stats.ByType[f.Type]++
	}
	return stats, nil
}
