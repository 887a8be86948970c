// dephealth.go — мониторинг зависимостей шлюза через topologymetrics SDK.
//
// Зависимости:
//   - control-center — HTTP checker к API Control Center (critical)
//   - activity-log — HTTP checker к endpoint журнала активности (non-critical,
//     только если журнал включён)
//
// Метрики доступны на /metrics вместе с остальными Prometheus-метриками:
//   - app_dependency_health — состояние зависимости (1 = ok, 0 = fail)
//   - app_dependency_latency_seconds — задержка проверки
//   - app_dependency_status — категория статуса
package service

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/BigKAA/topologymetrics/sdk-go/dephealth"
	_ "github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/httpcheck" // HTTP checker
	"github.com/prometheus/client_golang/prometheus"
)

// Имена зависимостей в метриках и в /health/ready.
const (
	DepControlCenter = "control-center"
	DepActivityLog   = "activity-log"
)

// DephealthConfig — параметры мониторинга зависимостей.
type DephealthConfig struct {
	// ServiceID — имя вершины графа текущего приложения
	ServiceID string
	// Group — имя группы в метриках (GW_DEPHEALTH_GROUP)
	Group string
	// ControlCenterURL и ControlCenterHealthPath — проверяемый endpoint Control Center
	ControlCenterURL        string
	ControlCenterHealthPath string
	// ActivityLogURL — endpoint журнала активности; пусто — не мониторится
	ActivityLogURL string
	// CheckInterval — интервал проверки (GW_DEPHEALTH_CHECK_INTERVAL)
	CheckInterval time.Duration
}

// DephealthService — сервис мониторинга зависимостей через topologymetrics.
type DephealthService struct {
	dh     *dephealth.DepHealth
	logger *slog.Logger
}

// NewDephealthService создаёт сервис мониторинга зависимостей.
// Метрики регистрируются в глобальном Prometheus registry.
func NewDephealthService(cfg DephealthConfig, logger *slog.Logger) (*DephealthService, error) {
	return newDephealthService(cfg, logger)
}

// NewDephealthServiceWithRegisterer создаёт сервис с указанным Prometheus registerer.
// Используется в тестах для изоляции метрик.
func NewDephealthServiceWithRegisterer(cfg DephealthConfig, logger *slog.Logger, registerer prometheus.Registerer) (*DephealthService, error) {
	return newDephealthService(cfg, logger, dephealth.WithRegisterer(registerer))
}

func newDephealthService(cfg DephealthConfig, logger *slog.Logger, extraOpts ...dephealth.Option) (*DephealthService, error) {
	ccDepOpts := []dephealth.DependencyOption{
		dephealth.FromURL(cfg.ControlCenterURL),
		dephealth.WithHTTPHealthPath(healthPath(cfg.ControlCenterURL, cfg.ControlCenterHealthPath)),
		dephealth.CheckInterval(cfg.CheckInterval),
		dephealth.Critical(true),
	}

	opts := make([]dephealth.Option, 0, 3+len(extraOpts))
	opts = append(opts,
		dephealth.WithLogger(logger),
		dephealth.HTTP(DepControlCenter, ccDepOpts...),
	)

	// Журнал активности — best-effort, его недоступность не делает шлюз неготовым.
	if cfg.ActivityLogURL != "" {
		opts = append(opts, dephealth.HTTP(DepActivityLog,
			dephealth.FromURL(cfg.ActivityLogURL),
			dephealth.WithHTTPHealthPath(healthPath(cfg.ActivityLogURL, "/")),
			dephealth.CheckInterval(cfg.CheckInterval),
			dephealth.Critical(false),
		))
	}
	opts = append(opts, extraOpts...)

	dh, err := dephealth.New(cfg.ServiceID, cfg.Group, opts...)
	if err != nil {
		return nil, err
	}

	return &DephealthService{
		dh:     dh,
		logger: logger.With(slog.String("component", "dephealth")),
	}, nil
}

// healthPath возвращает путь проверки: явный, иначе путь из URL, иначе "/".
func healthPath(rawURL, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if parsed, err := url.Parse(rawURL); err == nil && parsed.Path != "" {
		return parsed.Path
	}
	return "/"
}

// Start запускает периодическую проверку зависимостей.
func (ds *DephealthService) Start(ctx context.Context) error {
	ds.logger.Info("Мониторинг зависимостей запущен")
	return ds.dh.Start(ctx)
}

// Stop останавливает мониторинг зависимостей.
func (ds *DephealthService) Stop() {
	ds.dh.Stop()
	ds.logger.Info("Мониторинг зависимостей остановлен")
}

// Health возвращает текущее состояние зависимостей.
// Ключ — имя зависимости, значение — true если ok.
func (ds *DephealthService) Health() map[string]bool {
	return ds.dh.Health()
}
