// health.go — обработчики health endpoints шлюза.
// /health/live — liveness probe (процесс жив)
// /health/ready — readiness probe (хранилище сессий + Control Center)
// /metrics — Prometheus метрики
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bigkaa/control-center-gateway/internal/config"
)

// serviceName — имя сервиса в ответах health endpoints.
const serviceName = "cc-gateway"

// readyTimeout — таймаут одной проверки готовности.
const readyTimeout = 3 * time.Second

// ReadinessChecker — интерфейс проверки готовности зависимости.
type ReadinessChecker interface {
	// CheckReady возвращает статус ("ok", "degraded", "fail") и сообщение.
	CheckReady(ctx context.Context) (status string, message string)
}

// Pinger — зависимость с проверкой доступности (хранилище сессий).
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingChecker — проверка готовности через Ping.
type PingChecker struct {
	Target Pinger
}

// CheckReady реализует ReadinessChecker.
func (c PingChecker) CheckReady(ctx context.Context) (string, string) {
	if c.Target == nil {
		return "fail", "не инициализирован"
	}
	if err := c.Target.Ping(ctx); err != nil {
		return "fail", err.Error()
	}
	return "ok", ""
}

// HealthSource — источник результатов фоновых проверок (dephealth).
type HealthSource interface {
	Health() map[string]bool
}

// DependencyChecker — проверка готовности по результату dephealth.
// Ещё не выполненная проверка даёт "degraded".
type DependencyChecker struct {
	Source     HealthSource
	Dependency string
}

// CheckReady реализует ReadinessChecker.
func (c DependencyChecker) CheckReady(context.Context) (string, string) {
	if c.Source == nil {
		return "degraded", "мониторинг зависимостей отключён"
	}
	healthy, ok := c.Source.Health()[c.Dependency]
	switch {
	case !ok:
		return "degraded", "проверка ещё не выполнялась"
	case !healthy:
		return "fail", "зависимость недоступна"
	default:
		return "ok", ""
	}
}

// HealthHandler — обработчик health endpoints.
type HealthHandler struct {
	storeChecker ReadinessChecker
	ccChecker    ReadinessChecker
	promHandler  http.Handler
}

// NewHealthHandler создаёт обработчик health endpoints.
// storeChecker — хранилище сессий, ccChecker — Control Center.
// nil-проверка даёт "fail".
func NewHealthHandler(storeChecker, ccChecker ReadinessChecker) *HealthHandler {
	return &HealthHandler{
		storeChecker: storeChecker,
		ccChecker:    ccChecker,
		promHandler:  promhttp.Handler(),
	}
}

// healthCheckResult — результат проверки одной зависимости.
type healthCheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// healthLiveResponse — ответ liveness probe.
type healthLiveResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	Service   string `json:"service"`
}

// healthReadyResponse — ответ readiness probe.
type healthReadyResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	Service   string `json:"service"`
	Checks    struct {
		SessionStore  healthCheckResult `json:"session_store"`
		ControlCenter healthCheckResult `json:"control_center"`
	} `json:"checks"`
}

// HealthLive — liveness probe. Возвращает 200 если процесс жив.
func (h *HealthHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthLiveResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   config.Version,
		Service:   serviceName,
	})
}

// HealthReady — readiness probe.
// Возвращает 200 (ok/degraded) или 503 (fail).
func (h *HealthHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	resp := healthReadyResponse{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   config.Version,
		Service:   serviceName,
	}
	resp.Checks.SessionStore = check(ctx, h.storeChecker)
	resp.Checks.ControlCenter = check(ctx, h.ccChecker)
	resp.Status = overallStatus(resp.Checks.SessionStore.Status, resp.Checks.ControlCenter.Status)

	status := http.StatusOK
	if resp.Status == "fail" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// GetMetrics — Prometheus метрики.
func (h *HealthHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.promHandler.ServeHTTP(w, r)
}

func check(ctx context.Context, c ReadinessChecker) healthCheckResult {
	if c == nil {
		return healthCheckResult{Status: "fail", Message: "не инициализирован"}
	}
	status, msg := c.CheckReady(ctx)
	return healthCheckResult{Status: status, Message: msg}
}

// overallStatus определяет итоговый статус из статусов зависимостей.
// Если хотя бы одна зависимость fail — итог fail.
// Если хотя бы одна degraded — итог degraded.
// Иначе — ok.
func overallStatus(statuses ...string) string {
	hasDegraded := false
	for _, s := range statuses {
		if s == "fail" {
			return "fail"
		}
		if s == "degraded" {
			hasDegraded = true
		}
	}
	if hasDegraded {
		return "degraded"
	}
	return "ok"
}
