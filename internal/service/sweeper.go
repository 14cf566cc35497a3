// sweeper.go — фоновая очистка незавершённых загрузок.
//
// Staging-файлы в {UPLOAD_PATH}/.partial остаются после падения процесса
// или обрыва соединения в момент, когда запрос уже не может их убрать.
// Sweeper удаляет те, что старше PARTIAL_TTL.
//
// Запускается как горутина с периодическим тикером (SWEEP_INTERVAL).
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/fede1817/CLOUD-FEDERICO-BRITEZ/internal/storage/filestore"
)

// Prometheus метрики очистки
var (
	sweepRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gallery_sweeper_runs_total",
		Help: "Общее количество запусков очистки staging-файлов",
	})

	sweepFilesRemovedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gallery_sweeper_files_removed_total",
		Help: "Общее количество удалённых брошенных staging-файлов",
	})

	sweepDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gallery_sweeper_duration_seconds",
		Help:    "Длительность очистки в секундах",
		Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
	})
)

// SweepResult — результат одного запуска очистки.
type SweepResult struct {
	// Scanned — найдено staging-файлов
	Scanned int
	// Removed — удалено брошенных
	Removed int
	// Errors — ошибок удаления
	Errors int
	// Duration — длительность выполнения
	Duration time.Duration
}

// SweeperService — сервис очистки staging-каталога.
type SweeperService struct {
	store    *filestore.FileStore
	interval time.Duration
	ttl      time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu     sync.Mutex // защита от параллельного запуска RunOnce
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSweeperService создаёт сервис очистки.
func NewSweeperService(
	store *filestore.FileStore,
	interval time.Duration,
	ttl time.Duration,
	logger *slog.Logger,
) *SweeperService {
	return &SweeperService{
		store:    store,
		interval: interval,
		ttl:      ttl,
		logger:   logger.With(slog.String("component", "sweeper")),
		now:      time.Now,
	}
}

// Start запускает фоновую горутину с периодическим тикером.
// Вызывается один раз при старте приложения.
func (s *SweeperService) Start(ctx context.Context) {
	sweepCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(sweepCtx)

	s.logger.Info("Очистка staging запущена",
		slog.String("interval", s.interval.String()),
		slog.String("ttl", s.ttl.String()),
	)
}

// Stop останавливает фоновый процесс и ждёт завершения текущего прохода.
func (s *SweeperService) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.logger.Info("Очистка staging остановлена")
}

// run — основной цикл фоновой горутины.
func (s *SweeperService) run(ctx context.Context) {
	defer close(s.done)

	// Первый запуск — сразу после старта: подбирает остатки
	// предыдущего процесса.
	s.RunOnce()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce()
		}
	}
}

// RunOnce выполняет один проход очистки.
// Потокобезопасен: использует mutex для защиты от параллельного запуска.
// Свежие staging-файлы не трогаются, их может писать идущая загрузка.
func (s *SweeperService) RunOnce() *SweepResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	result := &SweepResult{}

	partials, err := s.store.Partials()
	if err != nil {
		s.logger.Error("Ошибка чтения staging-каталога", slog.String("error", err.Error()))
		result.Errors++
		return result
	}
	result.Scanned = len(partials)

	cutoff := s.now().Add(-s.ttl)
	for _, p := range partials {
		if p.ModTime.After(cutoff) {
			continue
		}
		if err := s.store.RemovePartial(p.Name); err != nil {
			s.logger.Error("Ошибка удаления staging-файла",
				slog.String("name", p.Name),
				slog.String("error", err.Error()),
			)
			result.Errors++
			continue
		}
		s.logger.Debug("Брошенный staging-файл удалён",
			slog.String("name", p.Name),
			slog.Time("mod_time", p.ModTime),
		)
		result.Removed++
	}

	result.Duration = time.Since(start)

	sweepRunsTotal.Inc()
	sweepFilesRemovedTotal.Add(float64(result.Removed))
	sweepDurationSeconds.Observe(result.Duration.Seconds())

	if result.Removed > 0 || result.Errors > 0 {
		s.logger.Info("Очистка staging завершена",
			slog.Int("scanned", result.Scanned),
			slog.Int("removed", result.Removed),
			slog.Int("errors", result.Errors),
			slog.Duration("duration", result.Duration),
		)
	}
	return result
}
