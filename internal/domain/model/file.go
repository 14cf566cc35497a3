// Пакет model — доменные модели файловой галереи.
//
// Отдельной записи метаданных нет: StoredFile целиком выводится из
// содержимого каталога хранения (имя файла + stat).
package model

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// FileType — категория файла, определяемая по расширению.
type FileType string

const (
	TypeImage      FileType = "image"
	TypeVideo      FileType = "video"
	TypeAudio      FileType = "audio"
	TypeDocument   FileType = "document"
	TypeArchive    FileType = "archive"
	TypeExecutable FileType = "executable"
	TypeCode       FileType = "code"
	TypeFont       FileType = "font"
	TypeDatabase   FileType = "database"
	TypeOther      FileType = "other"
)

// AllTypes — все категории в порядке проверки классификатора.
var AllTypes = []FileType{
	TypeImage, TypeVideo, TypeAudio, TypeDocument, TypeArchive,
	TypeExecutable, TypeCode, TypeFont, TypeDatabase, TypeOther,
}

// extensionTypes — фиксированная таблица расширение → категория.
// Каждое расширение принадлежит ровно одной категории:
// .dmg отнесён к archive.
var extensionTypes = buildExtensionTable(map[FileType][]string{
	TypeImage:      {"jpg", "jpeg", "png", "gif", "webp", "bmp", "tiff", "svg", "ico", "heic"},
	TypeVideo:      {"mp4", "avi", "mov", "mkv", "webm", "flv", "wmv", "m4v", "3gp", "mpeg", "mpg"},
	TypeAudio:      {"mp3", "wav", "ogg", "aac", "flac", "m4a", "wma", "aiff"},
	TypeDocument:   {"pdf", "doc", "docx", "xls", "xlsx", "ppt", "pptx", "txt", "rtf", "csv", "odt", "ods"},
	TypeArchive:    {"zip", "rar", "7z", "tar", "gz", "bz2", "dmg", "iso"},
	TypeExecutable: {"exe", "msi", "pkg", "deb", "rpm", "apk"},
	TypeCode:       {"js", "jsx", "ts", "tsx", "html", "css", "scss", "php", "py", "java", "c", "cpp", "json", "xml"},
	TypeFont:       {"ttf", "otf", "woff", "woff2", "eot"},
	TypeDatabase:   {"sql", "db", "sqlite", "mdb"},
})

func buildExtensionTable(groups map[FileType][]string) map[string]FileType {
	table := make(map[string]FileType)
	for t, exts := range groups {
		for _, ext := range exts {
			if prev, dup := table[ext]; dup {
				panic("расширение " + ext + " указано в двух категориях: " + string(prev) + ", " + string(t))
			}
			table[ext] = t
		}
	}
	return table
}

// StoredFile — файл в каталоге хранения.
type StoredFile struct {
	// StoredName — уникальное имя на диске: {timestampMillis}-{token}-{sanitizedName}
	StoredName string
	// OriginalName — имя для отображения (см. OriginalName)
	OriginalName string
	// Size — размер в байтах из stat
	Size int64
	// ModTime — mtime файла, используется как дата загрузки и ключ сортировки
	ModTime time.Time
	// Extension — расширение в нижнем регистре без точки
	Extension string
	// Type — категория по расширению
	Type FileType
}

// NewStoredFile собирает StoredFile из имени на диске и данных stat.
func NewStoredFile(storedName string, size int64, modTime time.Time) *StoredFile {
	return &StoredFile{
		StoredName:   storedName,
		OriginalName: OriginalName(storedName),
		Size:         size,
		ModTime:      modTime,
		Extension:    Extension(storedName),
		Type:         Classify(storedName),
	}
}

// Extension возвращает часть имени после последней точки в нижнем регистре.
// Пустая строка, если точки нет.
func Extension(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return ""
	}
	return strings.ToLower(name[i+1:])
}

// Classify определяет категорию файла только по расширению,
// содержимое не анализируется. Неизвестное расширение — TypeOther.
func Classify(name string) FileType {
	if t, ok := extensionTypes[Extension(name)]; ok {
		return t
	}
	return TypeOther
}

// ParseFileType проверяет строку фильтра и возвращает категорию.
func ParseFileType(s string) (FileType, bool) {
	for _, t := range AllTypes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// OriginalName восстанавливает имя для отображения из имени на диске.
//
// Правило разбора: имя делится по "-", первые два сегмента — timestamp
// и случайный токен, всё остальное (снова склеенное через "-") —
// санитизированное исходное имя. Если сегментов меньше двух, имя
// возвращается как есть. Санитизация не удаляет "-", поэтому дефисы
// исходного имени восстанавливаются корректно.
func OriginalName(storedName string) string {
	parts := strings.Split(storedName, "-")
	if len(parts) < 2 {
		return storedName
	}
	return strings.Join(parts[2:], "-")
}

var sizeUnits = []string{"Bytes", "KB", "MB", "GB", "TB"}

// FormatSize форматирует размер в человекочитаемый вид с основанием 1024:
// 0 → "0 Bytes", 1536 → "1.5 KB". Не более двух знаков после запятой,
// незначащие нули отбрасываются.
func FormatSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	i := int(math.Floor(math.Log(float64(bytes)) / math.Log(1024)))
	if i >= len(sizeUnits) {
		i = len(sizeUnits) - 1
	}
	v := float64(bytes) / math.Pow(1024, float64(i))
	v = math.Round(v*100) / 100
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + sizeUnits[i]
}

// Icon — класс иконки Font Awesome для UI. Чисто косметическая подсказка.
func Icon(name string, t FileType) string {
	switch t {
	case TypeImage:
		return "far fa-file-image text-green-500"
	case TypeVideo:
		return "far fa-file-video text-red-500"
	case TypeAudio:
		return "far fa-file-audio text-purple-500"
	case TypeDocument:
		switch Extension(name) {
		case "pdf":
			return "far fa-file-pdf text-red-500"
		case "doc", "docx":
			return "far fa-file-word text-blue-500"
		case "xls", "xlsx":
			return "far fa-file-excel text-green-600"
		case "ppt", "pptx":
			return "far fa-file-powerpoint text-orange-500"
		}
		return "far fa-file-alt text-blue-400"
	case TypeArchive:
		return "far fa-file-archive text-yellow-500"
	case TypeExecutable:
		return "fas fa-cog text-gray-500"
	case TypeCode:
		return "far fa-file-code text-indigo-500"
	case TypeFont:
		return "fas fa-font text-pink-500"
	case TypeDatabase:
		return "fas fa-database text-teal-500"
	default:
		return "far fa-file text-gray-500"
	}
}
