// Пакет filestore — плоский каталог хранения загруженных файлов.
//
// Обеспечивает генерацию уникальных имён, потоковую запись через
// staging-файлы в {dir}/.partial с последующим атомарным rename,
// сканирование каталога и удаление с защитой от directory traversal.
//
// Блокировок нет: каталог — общий ресурс, все операции написаны как
// check-then-act и терпимы к гонкам (каталог уже создан, файл уже удалён).
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fede1817/CLOUD-FEDERICO-BRITEZ/internal/domain/model"
)

// PartialDirName — подкаталог staging-файлов внутри каталога хранения.
// Лежит на той же ФС, поэтому rename атомарен.
const PartialDirName = ".partial"

// partialSuffix — расширение staging-файла.
const partialSuffix = ".part"

// maxSanitizedLen — ограничение длины санитизированного имени,
// чтобы итоговое имя укладывалось в лимит ФС (255 байт).
const maxSanitizedLen = 200

var (
	// ErrInvalidName — имя содержит "..", "/" или "\".
	ErrInvalidName = errors.New("недопустимое имя файла")
	// ErrNotFound — файл отсутствует в каталоге.
	ErrNotFound = errors.New("файл не найден")
	// ErrTooLarge — поток превысил допустимый размер.
	ErrTooLarge = errors.New("превышен максимальный размер файла")
	// ErrExists — файл с таким именем уже существует.
	ErrExists = errors.New("файл уже существует")
)

// FileStore — управление файлами в каталоге хранения.
type FileStore struct {
	// dir — каталог хранения (UPLOAD_PATH)
	dir    string
	logger *slog.Logger
}

// StagedFile — файл, записанный в staging, но ещё не опубликованный.
type StagedFile struct {
	// Path — полный путь staging-файла
	Path string
	// Size — количество записанных байт
	Size int64
}

// PartialFile — staging-файл, найденный при сканировании.
type PartialFile struct {
	Name    string
	ModTime time.Time
}

// New создаёт FileStore и пытается создать каталог хранения.
// Ошибка создания логируется, но не возвращается: последующая запись
// сама вернёт ошибку ввода-вывода.
func New(dir string, logger *slog.Logger) *FileStore {
	fs := &FileStore{
		dir:    dir,
		logger: logger.With(slog.String("component", "filestore")),
	}
	_ = fs.EnsureDir()
	return fs
}

// EnsureDir идемпотентно создаёт каталог хранения и staging-подкаталог.
func (fs *FileStore) EnsureDir() error {
	if err := os.MkdirAll(fs.partialDir(), 0o750); err != nil {
		fs.logger.Error("Ошибка создания каталога хранения",
			slog.String("dir", fs.dir),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("не удалось создать каталог %s: %w", fs.dir, err)
	}
	return nil
}

// Dir возвращает путь к каталогу хранения.
func (fs *FileStore) Dir() string {
	return fs.dir
}

func (fs *FileStore) partialDir() string {
	return filepath.Join(fs.dir, PartialDirName)
}

// GenerateStoredName генерирует имя файла на диске.
// Формат: {unixMillis}-{token}-{sanitizedOriginalName}, где token —
// 12 hex-символов UUID v4 без дефисов. Ни timestamp, ни token не
// содержат "-", поэтому model.OriginalName однозначно отделяет префикс.
func GenerateStoredName(originalName string, now time.Time) string {
	token := strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
	return strconv.FormatInt(now.UnixMilli(), 10) + "-" + token + "-" + Sanitize(originalName)
}

// Sanitize заменяет каждый символ вне [A-Za-z0-9.\-_] на "_" и сводит
// серии точек к одной: имя на диске не содержит "..", поэтому проходит
// ValidateName и может быть удалено по API.
// Слишком длинные имена укорачиваются с сохранением расширения.
func Sanitize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	prevDot := false
	for _, r := range name {
		switch {
		case r == '.':
			if !prevDot {
				b.WriteByte('.')
			}
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
		prevDot = r == '.'
	}
	s := b.String()
	if len(s) <= maxSanitizedLen {
		return s
	}
	ext := filepath.Ext(s)
	if len(ext) > 20 {
		ext = ""
	}
	return strings.TrimRight(s[:maxSanitizedLen-len(ext)], ".") + ext
}

// ValidateName — защита от directory traversal: имя не должно
// содержать "..", "/" и "\". Единственная проверка безопасности
// путей в системе, применяется ко всем операциям по имени.
func ValidateName(name string) error {
	if name == "" ||
		strings.Contains(name, "..") ||
		strings.Contains(name, "/") ||
		strings.Contains(name, `\`) {
		return ErrInvalidName
	}
	return nil
}

// FullPath возвращает путь к файлу в каталоге хранения.
// Имя должно быть предварительно проверено через ValidateName.
func (fs *FileStore) FullPath(name string) string {
	return filepath.Join(fs.dir, name)
}

// Stage записывает поток во временный файл в .partial.
// Если поток длиннее limit байт, staging-файл удаляется и
// возвращается ErrTooLarge.
func (fs *FileStore) Stage(reader io.Reader, limit int64) (*StagedFile, error) {
	// Каталог мог быть удалён извне после старта
	_ = fs.EnsureDir()

	tmpPath := filepath.Join(fs.partialDir(), uuid.New().String()+partialSuffix)
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	size, err := io.Copy(f, io.LimitReader(reader, limit+1))
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка записи данных: %w", err)
	}
	if size > limit {
		f.Close()
		os.Remove(tmpPath)
		return nil, ErrTooLarge
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка fsync: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	return &StagedFile{Path: tmpPath, Size: size}, nil
}

// Commit публикует staging-файл под именем storedName (atomic rename).
// Существующий файл не перезаписывается.
func (fs *FileStore) Commit(staged *StagedFile, storedName string) error {
	if storedName == "" || strings.ContainsAny(storedName, `/\`) {
		return ErrInvalidName
	}
	target := fs.FullPath(storedName)
	if _, err := os.Lstat(target); err == nil {
		return fmt.Errorf("%s: %w", storedName, ErrExists)
	}
	if err := os.Rename(staged.Path, target); err != nil {
		return fmt.Errorf("ошибка атомарного переименования: %w", err)
	}
	return nil
}

// Discard удаляет staging-файл. Отсутствие файла не считается ошибкой.
func (fs *FileStore) Discard(staged *StagedFile) {
	if staged == nil {
		return
	}
	if err := os.Remove(staged.Path); err != nil && !os.IsNotExist(err) {
		fs.logger.Warn("Не удалось удалить временный файл",
			slog.String("path", staged.Path),
			slog.String("error", err.Error()),
		)
	}
}

// Stat возвращает информацию о файле из каталога хранения.
func (fs *FileStore) Stat(name string) (os.FileInfo, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	info, err := os.Stat(fs.FullPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("ошибка получения информации о файле %s: %w", name, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return info, nil
}

// Open открывает файл для чтения. Вызывающий код обязан закрыть файл.
func (fs *FileStore) Open(name string) (*os.File, error) {
	if _, err := fs.Stat(name); err != nil {
		return nil, err
	}
	f, err := os.Open(fs.FullPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("ошибка открытия файла %s: %w", name, err)
	}
	return f, nil
}

// Remove удаляет файл из каталога хранения.
// Возвращает ErrInvalidName для небезопасного имени и ErrNotFound, если
// файла нет, в том числе когда его удалил конкурентный запрос.
func (fs *FileStore) Remove(name string) error {
	if _, err := fs.Stat(name); err != nil {
		return err
	}
	if err := os.Remove(fs.FullPath(name)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return fmt.Errorf("ошибка удаления файла %s: %w", name, err)
	}
	return nil
}

// Scan перечисляет обычные файлы каталога хранения.
// Подкаталоги (включая .partial) и скрытые файлы пропускаются.
// Файл, удалённый между ReadDir и stat, молча пропускается.
func (fs *FileStore) Scan(ctx context.Context) ([]*model.StoredFile, error) {
	entries, err := os.ReadDir(fs.dir)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения каталога %s: %w", fs.dir, err)
	}

	files := make([]*model.StoredFile, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") || entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("ошибка stat %s: %w", name, err)
		}
		if !info.Mode().IsRegular() {
			continue
		}
		files = append(files, model.NewStoredFile(name, info.Size(), info.ModTime()))
	}
	return files, nil
}

// Partials перечисляет staging-файлы в .partial.
func (fs *FileStore) Partials() ([]PartialFile, error) {
	entries, err := os.ReadDir(fs.partialDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка чтения каталога %s: %w", fs.partialDir(), err)
	}

	result := make([]PartialFile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), partialSuffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		result = append(result, PartialFile{Name: entry.Name(), ModTime: info.ModTime()})
	}
	return result, nil
}

// RemovePartial удаляет staging-файл по имени.
func (fs *FileStore) RemovePartial(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(fs.partialDir(), name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка удаления временного файла %s: %w", name, err)
	}
	return nil
}

// CheckWritable проверяет, что в каталог можно писать.
func (fs *FileStore) CheckWritable() error {
	testFile := filepath.Join(fs.partialDir(), ".health_check")
	if err := os.WriteFile(testFile, []byte("ok"), 0o600); err != nil {
		return err
	}
	_ = os.Remove(testFile)
	return nil
}
