// Пакет gate — проверка права доступа к действиям Control Center.
//
// Доступ получает только вошедший пользователь, найденный в справочнике
// администраторов. Роль запрашивается один раз и кэшируется в сессии;
// при любой ошибке проверки доступ запрещается и ничего не кэшируется.
package gate

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/control-center-gateway/internal/controlcenter"
	"github.com/bigkaa/control-center-gateway/internal/domain/model"
	"github.com/bigkaa/control-center-gateway/internal/domain/rbac"
	"github.com/bigkaa/control-center-gateway/internal/session"
)

// Причины отказа.
const (
	ReasonNotAuthenticated = "not authenticated"
	ReasonValidationFailed = "validation failed"
)

// ErrForbidden — роль не позволяет изменять данные.
var ErrForbidden = errors.New("недостаточно прав для изменения данных")

var decisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "gw_gate_decisions_total",
	Help: "Решения проверки доступа (allow_cached, allow_refreshed, deny_unauthenticated, deny_validation).",
}, []string{"result"})

// RoleLookup — удалённая проверка пользователя в справочнике администраторов.
type RoleLookup interface {
	LookupAdminRole(ctx context.Context, username string) (*model.AdminRole, error)
}

// Decision — результат проверки доступа.
type Decision struct {
	// Allow — доступ разрешён
	Allow bool
	// Role — роль пользователя (пусто при отказе)
	Role string
	// Reason — причина отказа
	Reason string
	// Refreshed — роль получена удалённой проверкой в этом запросе
	Refreshed bool
}

// Gate проверяет доступ по состоянию сессии.
type Gate struct {
	lookup RoleLookup
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// New создаёт Gate. ttl — время жизни кэшированной роли; 0 — до конца сессии.
func New(lookup RoleLookup, ttl time.Duration, logger *slog.Logger) *Gate {
	return &Gate{
		lookup: lookup,
		ttl:    ttl,
		logger: logger.With(slog.String("component", "gate")),
		now:    time.Now,
	}
}

// Authorize решает, может ли владелец сессии выполнять действия.
// Изменения сессии (кэш роли) помечают её dirty; сохранение — на вызывающем.
func (g *Gate) Authorize(ctx context.Context, s *session.State) Decision {
	if !s.Authenticated() {
		decisionsTotal.WithLabelValues("deny_unauthenticated").Inc()
		return Decision{Reason: ReasonNotAuthenticated}
	}

	if s.AdminRole != nil {
		if g.fresh(s.AdminRole) {
			decisionsTotal.WithLabelValues("allow_cached").Inc()
			return Decision{Allow: true, Role: s.AdminRole.Role}
		}
		s.ForgetRole()
	}

	username := s.Identity.Username()
	role, err := g.lookup.LookupAdminRole(ctx, username)
	if err != nil {
		decisionsTotal.WithLabelValues("deny_validation").Inc()
		g.logger.Warn("Проверка администратора не пройдена",
			slog.String("username", username),
			slog.String("kind", string(controlcenter.KindOf(err))),
			slog.String("error", err.Error()),
		)
		return Decision{Reason: ReasonValidationFailed}
	}

	cached := *role
	cached.CheckedAt = g.now()
	s.CacheRole(cached)

	decisionsTotal.WithLabelValues("allow_refreshed").Inc()
	g.logger.Info("Администратор проверен",
		slog.String("username", username),
		slog.String("role", cached.Role),
	)
	return Decision{Allow: true, Role: cached.Role, Refreshed: true}
}

// fresh сообщает, действительна ли кэшированная роль.
func (g *Gate) fresh(r *model.AdminRole) bool {
	if g.ttl <= 0 {
		return true
	}
	return g.now().Sub(r.CheckedAt) < g.ttl
}

// RequireMutation возвращает ErrForbidden, если решение не даёт права изменять данные.
func RequireMutation(d Decision) error {
	if !d.Allow || !rbac.CanMutate(d.Role) {
		return ErrForbidden
	}
	return nil
}
