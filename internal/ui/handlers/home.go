// home.go — домашняя страница.
package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"

	"github.com/bigkaa/control-center-gateway/internal/controlcenter"
	"github.com/bigkaa/control-center-gateway/internal/gate"
	"github.com/bigkaa/control-center-gateway/internal/session"
	"github.com/bigkaa/control-center-gateway/internal/ui/pages"
)

// Authorizer — проверка доступа по сессии.
type Authorizer interface {
	Authorize(ctx context.Context, s *session.State) gate.Decision
}

// HomeHandler — обработчик GET /.
type HomeHandler struct {
	gate     Authorizer
	sessions Sessions
	logger   *slog.Logger
}

// NewHomeHandler создаёт HomeHandler.
func NewHomeHandler(g Authorizer, sessions Sessions, logger *slog.Logger) *HomeHandler {
	return &HomeHandler{
		gate:     g,
		sessions: sessions,
		logger:   logger.With(slog.String("component", "ui_home")),
	}
}

// HandleHome — GET /.
// Без входа — страница входа; администратор — домашняя страница;
// вошедший, но не администратор — отказ в доступе.
func (h *HomeHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())
	if !s.Authenticated() {
		renderPage(h.logger, w, r, http.StatusOK, pages.Index())
		return
	}

	ctx := controlcenter.WithActor(r.Context(), s.Identity.Email)
	d := h.gate.Authorize(ctx, s)
	if err := h.sessions.SaveIfDirty(ctx, w, s); err != nil {
		h.logger.Error("Ошибка сохранения сессии", slog.String("error", err.Error()))
	}

	if !d.Allow {
		renderPage(h.logger, w, r, http.StatusForbidden, pages.AccessDenied(s.Identity.Email))
		return
	}

	renderPage(h.logger, w, r, http.StatusOK, pages.Home(pages.HomeData{
		Name:    s.Identity.Name,
		Email:   s.Identity.Email,
		Picture: s.Identity.Picture,
		Role:    d.Role,
	}))
}

// ErrorPage — страница 500 для Recoverer.
func ErrorPage(logger *slog.Logger) http.Handler {
	log := logger.With(slog.String("component", "ui_error_page"))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		renderPage(log, w, r, http.StatusInternalServerError, pages.Error("Внутренняя ошибка сервера"))
	})
}

func renderPage(logger *slog.Logger, w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		logger.Error("Ошибка рендеринга страницы", slog.String("error", err.Error()))
	}
}
