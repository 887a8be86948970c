package gate

import (
	"context"
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/control-center-gateway/internal/api/errors"
	"github.com/bigkaa/control-center-gateway/internal/controlcenter"
	"github.com/bigkaa/control-center-gateway/internal/session"
)

// SessionSaver сохраняет изменённое состояние сессии.
type SessionSaver interface {
	SaveIfDirty(ctx context.Context, w http.ResponseWriter, s *session.State) error
}

type decisionKey struct{}

// DecisionFromContext возвращает решение, принятое middleware.
func DecisionFromContext(ctx context.Context) (Decision, bool) {
	d, ok := ctx.Value(decisionKey{}).(Decision)
	return d, ok
}

// Middleware пропускает к обработчику только разрешённые запросы API.
// Сессия должна быть загружена раньше (session.FromContext).
// Новая роль сохраняется до вызова обработчика; email пользователя
// передаётся в контекст как автор действий.
func (g *Gate) Middleware(saver SessionSaver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := session.FromContext(r.Context())
			if s == nil {
				apierrors.Unauthorized(w, "Требуется вход")
				return
			}

			ctx := r.Context()
			if s.Authenticated() {
				ctx = controlcenter.WithActor(ctx, s.Identity.Email)
			}

			d := g.Authorize(ctx, s)
			if err := saver.SaveIfDirty(ctx, w, s); err != nil {
				g.logger.Error("Ошибка сохранения сессии", slog.String("error", err.Error()))
			}

			switch {
			case d.Allow:
			case d.Reason == ReasonNotAuthenticated:
				apierrors.Unauthorized(w, "Требуется вход")
				return
			default:
				apierrors.Forbidden(w, "Пользователь не является администратором Control Center")
				return
			}

			ctx = context.WithValue(ctx, decisionKey{}, d)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// MutationMiddleware отклоняет изменяющие запросы пользователей с ролью guest.
// Ставится после Middleware.
func MutationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d, _ := DecisionFromContext(r.Context())
		if err := RequireMutation(d); err != nil {
			apierrors.Forbidden(w, err.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}
