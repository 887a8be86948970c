// Точка входа шлюза Control Center.
// Загружает конфигурацию и секреты, создаёт хранилище сессий, клиент
// Control Center, журнал активности, gate и сервисный слой, запускает
// мониторинг зависимостей и HTTP-сервер с graceful shutdown.
package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/bigkaa/control-center-gateway/internal/activity"
	apihandlers "github.com/bigkaa/control-center-gateway/internal/api/handlers"
	"github.com/bigkaa/control-center-gateway/internal/auth"
	"github.com/bigkaa/control-center-gateway/internal/config"
	"github.com/bigkaa/control-center-gateway/internal/controlcenter"
	"github.com/bigkaa/control-center-gateway/internal/gate"
	"github.com/bigkaa/control-center-gateway/internal/secrets"
	"github.com/bigkaa/control-center-gateway/internal/server"
	"github.com/bigkaa/control-center-gateway/internal/service"
	"github.com/bigkaa/control-center-gateway/internal/session"
	"github.com/bigkaa/control-center-gateway/internal/telemetry"
	uihandlers "github.com/bigkaa/control-center-gateway/internal/ui/handlers"
	"github.com/bigkaa/control-center-gateway/internal/validator"
)

// stopTimeout — таймаут остановки фоновых компонентов после HTTP-сервера.
const stopTimeout = 10 * time.Second

func main() {
	// 0. .env (для локального запуска); отсутствие файла не ошибка
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Ошибка чтения .env", slog.String("error", err.Error()))
	}

	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Шлюз Control Center запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("Шлюз остановлен с ошибкой", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Шлюз Control Center остановлен")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Трейсинг
	shutdownTracing, err := telemetry.Init(ctx, telemetry.Options{
		Endpoint: cfg.OTelEndpoint,
		Insecure: cfg.OTelInsecure,
		Version:  config.Version,
	}, logger)
	if err != nil {
		return err
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
		defer stopCancel()
		if err := shutdownTracing(stopCtx); err != nil {
			logger.Warn("Ошибка остановки трейсинга", slog.String("error", err.Error()))
		}
	}()

	// 4. Секреты
	provider, err := secrets.NewProvider(ctx, cfg, telemetry.InstrumentClient(nil, cfg.ControlCenterTimeout))
	if err != nil {
		return err
	}
	sec, err := secrets.Load(ctx, provider, logger)
	if err != nil {
		return err
	}

	// 5. Хранилище сессий
	var store session.Store
	switch cfg.SessionStore {
	case config.SessionStoreRedis:
		rdb, err := session.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return err
		}
		defer rdb.Close()
		store = session.NewRedisStore(rdb)
		logger.Info("Сессии хранятся в Redis", slog.String("addr", cfg.RedisAddr))
	default:
		store = session.NewMemoryStore(cfg.SessionMaxEntries, cfg.SessionTTL)
		logger.Info("Сессии хранятся в памяти процесса",
			slog.Int("max_entries", cfg.SessionMaxEntries),
		)
	}

	sessions, err := session.NewManager(store, sec.SessionSecret, cfg.SessionTTL, cfg.SessionSecureCookie, logger)
	if err != nil {
		return err
	}

	// 6. Журнал активности
	var activityLog *activity.Logger
	if cfg.ActivityActive() {
		activityLog = activity.New(activity.Options{
			URL:          cfg.ActivityLogURL,
			APIKeyHeader: cfg.ControlCenterAPIKeyHeader,
			APIKey:       sec.ControlCenterAPIKey,
			QueueSize:    cfg.ActivityQueueSize,
			Timeout:      cfg.ActivityTimeout,
			HTTPClient:   telemetry.InstrumentClient(nil, cfg.ActivityTimeout),
		}, logger)
	} else {
		logger.Info("Журнал активности отключён")
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
		defer stopCancel()
		if err := activityLog.Close(stopCtx); err != nil {
			logger.Warn("Ошибка остановки журнала активности", slog.String("error", err.Error()))
		}
	}()

	// 7. Клиент Control Center
	var recorder controlcenter.Recorder
	if activityLog != nil {
		recorder = activityLog
	}
	ccClient := controlcenter.New(controlcenter.Config{
		BaseURL:      cfg.ControlCenterURL,
		APIKeyHeader: cfg.ControlCenterAPIKeyHeader,
		APIKey:       sec.ControlCenterAPIKey,
		HTTPClient:   telemetry.InstrumentClient(nil, cfg.ControlCenterTimeout),
	}, recorder, logger)

	// 8. Gate, валидатор и сервисы
	schemas := validator.MustLoadSchemas()
	g := gate.New(ccClient, cfg.RoleCacheTTL, logger)

	appsSvc := service.NewApplicationService(ccClient, schemas, logger)
	catalogSvc := service.NewCatalogService(ccClient, schemas, logger)
	adminsSvc := service.NewAdministratorService(ccClient, schemas, logger)

	// 9. OAuth-клиент Google
	oauthHTTP := telemetry.InstrumentClient(nil, 30*time.Second)
	var verifier *auth.IDTokenVerifier
	if cfg.OAuthVerifyIDToken {
		verifier, err = auth.NewIDTokenVerifier(cfg.OAuthJWKSURL, sec.GoogleClientID, oauthHTTP, logger)
		if err != nil {
			return err
		}
	}
	idp := auth.New(auth.Config{
		ClientID:     sec.GoogleClientID,
		ClientSecret: sec.GoogleClientSecret,
		UserInfoURL:  cfg.OAuthUserInfoURL,
		HTTPClient:   oauthHTTP,
		Verifier:     verifier,
	}, logger)

	// 10. topologymetrics — мониторинг зависимостей
	var health apihandlers.HealthSource
	dephealthSvc, err := service.NewDephealthService(service.DephealthConfig{
		ServiceID:               "cc-gateway",
		Group:                   cfg.DephealthGroup,
		ControlCenterURL:        cfg.ControlCenterURL,
		ControlCenterHealthPath: cfg.ControlCenterHealthPath,
		ActivityLogURL:          activeURL(cfg),
		CheckInterval:           cfg.DephealthCheckInterval,
	}, logger)
	if err != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", err.Error()),
		)
	} else if err := dephealthSvc.Start(ctx); err != nil {
		logger.Warn("Ошибка запуска topologymetrics", slog.String("error", err.Error()))
	} else {
		health = dephealthSvc
		defer dephealthSvc.Stop()
		logger.Info("topologymetrics запущен",
			slog.String("group", cfg.DephealthGroup),
			slog.String("check_interval", cfg.DephealthCheckInterval.String()),
		)
	}

	// 11. Обработчики и роутер
	router := server.NewRouter(server.Deps{
		Sessions: sessions,
		Gate:     g,
		API:      apihandlers.NewAPIHandler(appsSvc, catalogSvc, adminsSvc, sessions, logger),
		Health: apihandlers.NewHealthHandler(
			apihandlers.PingChecker{Target: store},
			apihandlers.DependencyChecker{Source: health, Dependency: service.DepControlCenter},
		),
		Auth: uihandlers.NewAuthHandler(idp, sessions, sec.GoogleRedirectURI, cfg.PublicURL, logger),
		Home: uihandlers.NewHomeHandler(g, sessions, logger),
	}, logger)

	// 12. HTTP-сервер
	return server.New(cfg, logger, router).Run(ctx)
}

// activeURL возвращает URL журнала активности, если журнал включён.
func activeURL(cfg *config.Config) string {
	if cfg.ActivityActive() {
		return cfg.ActivityLogURL
	}
	return ""
}
