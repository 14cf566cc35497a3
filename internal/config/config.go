// Пакет config — загрузка и валидация конфигурации файловой галереи
// из переменных окружения.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/time/rate"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Значения по умолчанию.
const (
	DefaultPort        = 5000
	DefaultUploadPath  = "uploads"
	DefaultMaxFileSize = 500 * 1024 * 1024
	DefaultMaxFiles    = 50
	DefaultCORSOrigins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"

	// Лимит запросов на изменение с одного IP
	DefaultRateLimit = 10
	DefaultRateBurst = 20

	// maxFilesLimit — верхняя граница MAX_FILES
	maxFilesLimit = 1000
)

// Config содержит все параметры конфигурации сервера.
type Config struct {
	// Порт HTTP-сервера
	Port int
	// Каталог хранения загруженных файлов
	UploadPath string
	// Максимальный размер одного файла в байтах
	MaxFileSize int64
	// Максимальное количество файлов в одном запросе загрузки
	MaxFiles int
	// Начальный режим хранилища (rw, ro)
	Mode string
	// Разрешённые источники CORS
	CORSOrigins []string
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// Таймауты HTTP-сервера. 0 — без ограничения: загрузка
	// больших файлов может идти дольше любого разумного таймаута.
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration

	// Интервал запуска очистки незавершённых загрузок
	SweepInterval time.Duration
	// Возраст, после которого staging-файл считается брошенным
	PartialTTL time.Duration

	// Лимит запросов на изменение (upload, delete, смена режима)
	// с одного клиентского IP: запросов в секунду и размер всплеска.
	// 0 — без ограничения.
	RateLimit rate.Limit
	RateBurst int

	// Доверять X-Forwarded-For, X-Real-IP и X-Forwarded-Proto.
	// Включается только за обратным прокси, который перезаписывает эти заголовки.
	TrustProxy bool

	// Внешний базовый URL для ссылок на файлы (опционально).
	// Пустой — URL строится из схемы и хоста запроса.
	PublicBaseURL string
}

// Load загружает конфигурацию из переменных окружения, валидирует
// значения и возвращает Config или ошибку.
//
// Если в рабочем каталоге есть .env, он загружается первым.
// Уже заданные переменные окружения не перезаписываются.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf(".env: %w", err)
	}

	cfg := &Config{}

	// PORT — порт HTTP-сервера (по умолчанию 5000)
	port, err := getEnvInt("PORT", DefaultPort)
	if err != nil {
		return nil, fmt.Errorf("PORT: %w", err)
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("PORT: значение %d вне допустимого диапазона 1-65535", port)
	}
	cfg.Port = port

	// UPLOAD_PATH — каталог хранения (по умолчанию "uploads")
	cfg.UploadPath = getEnvDefault("UPLOAD_PATH", DefaultUploadPath)

	// MAX_FILE_SIZE — максимальный размер файла (по умолчанию 500 MB)
	maxFileSize, err := getEnvInt64("MAX_FILE_SIZE", DefaultMaxFileSize)
	if err != nil {
		return nil, fmt.Errorf("MAX_FILE_SIZE: %w", err)
	}
	if maxFileSize <= 0 {
		return nil, fmt.Errorf("MAX_FILE_SIZE: значение должно быть положительным")
	}
	cfg.MaxFileSize = maxFileSize

	// MAX_FILES — файлов в одном запросе (по умолчанию 50)
	maxFiles, err := getEnvInt("MAX_FILES", DefaultMaxFiles)
	if err != nil {
		return nil, fmt.Errorf("MAX_FILES: %w", err)
	}
	if maxFiles < 1 || maxFiles > maxFilesLimit {
		return nil, fmt.Errorf("MAX_FILES: значение %d вне допустимого диапазона 1-%d", maxFiles, maxFilesLimit)
	}
	cfg.MaxFiles = maxFiles

	// STORAGE_MODE — начальный режим (по умолчанию "rw")
	cfg.Mode = getEnvDefault("STORAGE_MODE", "rw")
	if cfg.Mode != "rw" && cfg.Mode != "ro" {
		return nil, fmt.Errorf("STORAGE_MODE: недопустимое значение %q, допустимые: rw, ro", cfg.Mode)
	}

	cfg.CORSOrigins = parseList(getEnvDefault("CORS_ORIGINS", DefaultCORSOrigins))

	// LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	// LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	cfg.HTTPReadTimeout, err = getEnvDuration("HTTP_READ_TIMEOUT", 0)
	if err != nil {
		return nil, fmt.Errorf("HTTP_READ_TIMEOUT: %w", err)
	}
	cfg.HTTPWriteTimeout, err = getEnvDuration("HTTP_WRITE_TIMEOUT", 0)
	if err != nil {
		return nil, fmt.Errorf("HTTP_WRITE_TIMEOUT: %w", err)
	}
	cfg.HTTPIdleTimeout, err = getEnvDuration("HTTP_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("HTTP_IDLE_TIMEOUT: %w", err)
	}

	// SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 30s)
	cfg.ShutdownTimeout, err = getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SHUTDOWN_TIMEOUT: %w", err)
	}

	// SWEEP_INTERVAL — интервал очистки staging (по умолчанию 1h)
	cfg.SweepInterval, err = getEnvPositiveDuration("SWEEP_INTERVAL", time.Hour)
	if err != nil {
		return nil, err
	}

	// PARTIAL_TTL — время жизни staging-файла (по умолчанию 24h)
	cfg.PartialTTL, err = getEnvPositiveDuration("PARTIAL_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	// RATE_LIMIT / RATE_BURST — лимит запросов на изменение с одного IP
	rps, err := getEnvFloat("RATE_LIMIT", DefaultRateLimit)
	if err != nil {
		return nil, fmt.Errorf("RATE_LIMIT: %w", err)
	}
	if rps < 0 {
		return nil, fmt.Errorf("RATE_LIMIT: значение не может быть отрицательным")
	}
	cfg.RateLimit = rate.Limit(rps)

	cfg.RateBurst, err = getEnvInt("RATE_BURST", DefaultRateBurst)
	if err != nil {
		return nil, fmt.Errorf("RATE_BURST: %w", err)
	}
	if cfg.RateBurst < 1 {
		return nil, fmt.Errorf("RATE_BURST: значение должно быть положительным")
	}

	// TRUST_PROXY — доверие заголовкам прокси (по умолчанию false)
	cfg.TrustProxy, err = getEnvBool("TRUST_PROXY", false)
	if err != nil {
		return nil, fmt.Errorf("TRUST_PROXY: %w", err)
	}

	// PUBLIC_BASE_URL — опционально, абсолютный URL без завершающего "/"
	if raw := getEnvDefault("PUBLIC_BASE_URL", ""); raw != "" {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("PUBLIC_BASE_URL: ожидается абсолютный URL, получено %q", raw)
		}
		cfg.PublicBaseURL = strings.TrimRight(raw, "/")
	}

	return cfg, nil
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvInt64 возвращает int64 значение переменной окружения или значение по умолчанию.
func getEnvInt64(key string, defaultVal int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvFloat возвращает float64 значение переменной окружения или значение по умолчанию.
func getEnvFloat(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректное число: %q", val)
	}
	return f, nil
}

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q", val)
	}
	return b, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 6h)", val)
	}
	if d < 0 {
		return 0, fmt.Errorf("длительность не может быть отрицательной: %q", val)
	}
	return d, nil
}

// getEnvPositiveDuration — как getEnvDuration, но 0 недопустим.
func getEnvPositiveDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	d, err := getEnvDuration(key, defaultVal)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d == 0 {
		return 0, fmt.Errorf("%s: значение должно быть положительным", key)
	}
	return d, nil
}

// parseList разбирает список через запятую, пустые элементы отбрасываются.
func parseList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
