// Пакет config — загрузка и валидация конфигурации шлюза Control Center
// из переменных окружения.
//
// Секреты (API-ключ Control Center, OAuth client secret, ключ сессий) сюда
// не входят: их загружает пакет secrets из выбранного провайдера.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Провайдеры секретов.
const (
	SecretsProviderEnv   = "env"
	SecretsProviderVault = "vault"
	SecretsProviderGCP   = "gcp"
)

// Хранилища сессий.
const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

// Config содержит все параметры конфигурации шлюза.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string
	// Внешний базовый URL шлюза (для redirect_uri). Пусто — вычисляется из запроса.
	PublicURL string

	// --- Control Center ---

	// Базовый URL удалённого API Control Center
	ControlCenterURL string
	// Имя заголовка, в котором передаётся API-ключ
	ControlCenterAPIKeyHeader string
	// Таймаут исходящих запросов к Control Center
	ControlCenterTimeout time.Duration
	// Путь health check для мониторинга зависимости
	ControlCenterHealthPath string

	// --- Журнал активности ---

	// URL endpoint журнала активности (пусто — журнал отключён)
	ActivityLogURL string
	// Включён ли журнал активности
	ActivityEnabled bool
	// Размер очереди асинхронной отправки (0 — синхронная отправка)
	ActivityQueueSize int
	// Таймаут одной отправки записи журнала
	ActivityTimeout time.Duration

	// --- Сессии ---

	// Хранилище сессий: memory, redis
	SessionStore string
	// Время жизни сессии
	SessionTTL time.Duration
	// Максимум сессий в памяти (memory store)
	SessionMaxEntries int
	// Атрибут Secure у cookie сессии
	SessionSecureCookie bool
	// Адрес Redis
	RedisAddr string
	// Пароль Redis
	RedisPassword string
	// Номер базы Redis
	RedisDB int
	// Время жизни кэшированной роли администратора (0 — всё время жизни сессии)
	RoleCacheTTL time.Duration

	// --- OAuth ---

	// Проверять подпись ID token Google
	OAuthVerifyIDToken bool
	// URL JWKS провайдера идентификации
	OAuthJWKSURL string
	// URL userinfo endpoint
	OAuthUserInfoURL string

	// --- Секреты ---

	// Провайдер секретов: env, vault, gcp
	SecretsProvider string
	// Адрес Vault
	VaultAddr string
	// Токен Vault
	VaultToken string
	// Namespace Vault (опционально)
	VaultNamespace string
	// Mount KV v2 движка
	VaultMount string
	// Путь секрета внутри mount
	VaultPath string
	// Проект GCP для Secret Manager
	GCPProject string
	// Endpoint Secret Manager (для тестов и эмуляторов)
	GCPSecretManagerEndpoint string

	// --- Наблюдаемость ---

	// OTLP/HTTP endpoint для трейсов (пусто — трейсинг отключён)
	OTelEndpoint string
	// Отправлять трейсы без TLS
	OTelInsecure bool
	// Группа в метриках dephealth
	DephealthGroup string
	// Интервал проверки зависимостей topologymetrics
	DephealthCheckInterval time.Duration

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// GW_PORT — порт HTTP-сервера (по умолчанию 8080)
	cfg.Port, err = getEnvInt("GW_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("GW_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("GW_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	// GW_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("GW_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("GW_LOG_LEVEL: %w", err)
	}

	// GW_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("GW_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("GW_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// GW_PUBLIC_URL — опционально
	cfg.PublicURL = strings.TrimRight(getEnvDefault("GW_PUBLIC_URL", ""), "/")
	if cfg.PublicURL != "" {
		if err := validateURL(cfg.PublicURL); err != nil {
			return nil, fmt.Errorf("GW_PUBLIC_URL: %w", err)
		}
	}

	// --- Control Center ---

	// GW_CONTROL_CENTER_URL — обязательный
	cfg.ControlCenterURL, err = getEnvRequired("GW_CONTROL_CENTER_URL")
	if err != nil {
		return nil, err
	}
	cfg.ControlCenterURL = strings.TrimRight(cfg.ControlCenterURL, "/")
	if err := validateURL(cfg.ControlCenterURL); err != nil {
		return nil, fmt.Errorf("GW_CONTROL_CENTER_URL: %w", err)
	}

	cfg.ControlCenterAPIKeyHeader = getEnvDefault("GW_CONTROL_CENTER_API_KEY_HEADER", "x-api-key")

	cfg.ControlCenterTimeout, err = getEnvDuration("GW_CONTROL_CENTER_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("GW_CONTROL_CENTER_TIMEOUT: %w", err)
	}
	if cfg.ControlCenterTimeout <= 0 {
		return nil, fmt.Errorf("GW_CONTROL_CENTER_TIMEOUT: таймаут должен быть положительным")
	}

	cfg.ControlCenterHealthPath = getEnvDefault("GW_CONTROL_CENTER_HEALTH_PATH", "/")

	// --- Журнал активности ---

	cfg.ActivityLogURL = getEnvDefault("GW_ACTIVITY_LOG_URL", "")
	if cfg.ActivityLogURL != "" {
		if err := validateURL(cfg.ActivityLogURL); err != nil {
			return nil, fmt.Errorf("GW_ACTIVITY_LOG_URL: %w", err)
		}
	}

	cfg.ActivityEnabled, err = getEnvBool("GW_ACTIVITY_ENABLED", true)
	if err != nil {
		return nil, fmt.Errorf("GW_ACTIVITY_ENABLED: %w", err)
	}

	cfg.ActivityQueueSize, err = getEnvInt("GW_ACTIVITY_QUEUE_SIZE", 256)
	if err != nil {
		return nil, fmt.Errorf("GW_ACTIVITY_QUEUE_SIZE: %w", err)
	}
	if cfg.ActivityQueueSize < 0 {
		return nil, fmt.Errorf("GW_ACTIVITY_QUEUE_SIZE: значение %d не может быть отрицательным", cfg.ActivityQueueSize)
	}

	cfg.ActivityTimeout, err = getEnvDuration("GW_ACTIVITY_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("GW_ACTIVITY_TIMEOUT: %w", err)
	}

	// --- Сессии ---

	cfg.SessionStore = getEnvDefault("GW_SESSION_STORE", SessionStoreMemory)
	if cfg.SessionStore != SessionStoreMemory && cfg.SessionStore != SessionStoreRedis {
		return nil, fmt.Errorf("GW_SESSION_STORE: недопустимое значение %q, допустимые: memory, redis", cfg.SessionStore)
	}

	cfg.SessionTTL, err = getEnvDuration("GW_SESSION_TTL", 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("GW_SESSION_TTL: %w", err)
	}
	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("GW_SESSION_TTL: время жизни сессии должно быть положительным")
	}

	cfg.SessionMaxEntries, err = getEnvInt("GW_SESSION_MAX_ENTRIES", 10000)
	if err != nil {
		return nil, fmt.Errorf("GW_SESSION_MAX_ENTRIES: %w", err)
	}
	if cfg.SessionMaxEntries < 1 {
		return nil, fmt.Errorf("GW_SESSION_MAX_ENTRIES: значение %d должно быть положительным", cfg.SessionMaxEntries)
	}

	cfg.SessionSecureCookie, err = getEnvBool("GW_SESSION_SECURE_COOKIE", true)
	if err != nil {
		return nil, fmt.Errorf("GW_SESSION_SECURE_COOKIE: %w", err)
	}

	cfg.RedisAddr = getEnvDefault("GW_REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnvDefault("GW_REDIS_PASSWORD", "")
	cfg.RedisDB, err = getEnvInt("GW_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("GW_REDIS_DB: %w", err)
	}

	// GW_ROLE_CACHE_TTL — 0 означает «до конца сессии»
	cfg.RoleCacheTTL, err = getEnvDuration("GW_ROLE_CACHE_TTL", 0)
	if err != nil {
		return nil, fmt.Errorf("GW_ROLE_CACHE_TTL: %w", err)
	}
	if cfg.RoleCacheTTL < 0 {
		return nil, fmt.Errorf("GW_ROLE_CACHE_TTL: значение не может быть отрицательным")
	}

	// --- OAuth ---

	cfg.OAuthVerifyIDToken, err = getEnvBool("GW_OAUTH_VERIFY_ID_TOKEN", true)
	if err != nil {
		return nil, fmt.Errorf("GW_OAUTH_VERIFY_ID_TOKEN: %w", err)
	}
	cfg.OAuthJWKSURL = getEnvDefault("GW_OAUTH_JWKS_URL", "https://www.googleapis.com/oauth2/v3/certs")
	cfg.OAuthUserInfoURL = getEnvDefault("GW_OAUTH_USERINFO_URL", "https://openidconnect.googleapis.com/v1/userinfo")

	// --- Секреты ---

	cfg.SecretsProvider = getEnvDefault("GW_SECRETS_PROVIDER", SecretsProviderEnv)
	switch cfg.SecretsProvider {
	case SecretsProviderEnv:
	case SecretsProviderVault:
		if cfg.VaultAddr, err = getEnvRequired("GW_VAULT_ADDR"); err != nil {
			return nil, err
		}
		if cfg.VaultToken, err = getEnvRequired("GW_VAULT_TOKEN"); err != nil {
			return nil, err
		}
		cfg.VaultAddr = strings.TrimRight(cfg.VaultAddr, "/")
		cfg.VaultNamespace = getEnvDefault("GW_VAULT_NAMESPACE", "")
		cfg.VaultMount = getEnvDefault("GW_VAULT_MOUNT", "secret")
		cfg.VaultPath = getEnvDefault("GW_VAULT_PATH", "control-center-gateway")
	case SecretsProviderGCP:
		if cfg.GCPProject, err = getEnvRequired("GW_GCP_PROJECT"); err != nil {
			return nil, err
		}
		cfg.GCPSecretManagerEndpoint = getEnvDefault("GW_GCP_SECRET_MANAGER_ENDPOINT", "")
	default:
		return nil, fmt.Errorf("GW_SECRETS_PROVIDER: недопустимое значение %q, допустимые: env, vault, gcp", cfg.SecretsProvider)
	}

	// --- Наблюдаемость ---

	cfg.OTelEndpoint = getEnvDefault("GW_OTEL_ENDPOINT", "")
	cfg.OTelInsecure, err = getEnvBool("GW_OTEL_INSECURE", false)
	if err != nil {
		return nil, fmt.Errorf("GW_OTEL_INSECURE: %w", err)
	}

	cfg.DephealthGroup = getEnvDefault("GW_DEPHEALTH_GROUP", "cc-gateway")
	cfg.DephealthCheckInterval, err = getEnvDuration("GW_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("GW_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// --- Graceful shutdown ---

	cfg.ShutdownTimeout, err = getEnvDuration("GW_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("GW_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// ActivityActive сообщает, нужно ли отправлять записи журнала активности.
func (c *Config) ActivityActive() bool {
	return c.ActivityEnabled && c.ActivityLogURL != ""
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

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

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

func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное логическое значение: %q", val)
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
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// validateURL проверяет, что строка — абсолютный http(s) URL.
func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("некорректный URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("некорректный URL %q: ожидается схема http или https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("некорректный URL %q: не указан хост", raw)
	}
	return nil
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
