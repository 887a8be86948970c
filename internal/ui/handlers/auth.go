// Пакет handlers — HTTP-обработчики страниц шлюза.
// auth.go — вход через Google OAuth (Authorization Code + PKCE), выход
// и повторная проверка роли.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bigkaa/control-center-gateway/internal/auth"
	"github.com/bigkaa/control-center-gateway/internal/domain/model"
	"github.com/bigkaa/control-center-gateway/internal/session"
	"github.com/bigkaa/control-center-gateway/internal/ui/pages"
)

// loginMaxAge — сколько живут state и verifier незавершённого входа.
const loginMaxAge = 10 * time.Minute

// IdentityProvider — OAuth-провайдер идентификации.
type IdentityProvider interface {
	AuthCodeURL(redirectURL, state, verifier string) string
	Exchange(ctx context.Context, redirectURL, code, verifier string) (*model.Identity, error)
}

// Sessions — сохранение и удаление сессий.
type Sessions interface {
	Save(ctx context.Context, w http.ResponseWriter, s *session.State) error
	Rotate(ctx context.Context, w http.ResponseWriter, s *session.State) error
	SaveIfDirty(ctx context.Context, w http.ResponseWriter, s *session.State) error
	Destroy(ctx context.Context, w http.ResponseWriter, s *session.State) error
}

// AuthHandler — обработчики входа и выхода.
type AuthHandler struct {
	idp         IdentityProvider
	sessions    Sessions
	redirectURI string
	publicURL   string
	logger      *slog.Logger
	now         func() time.Time
}

// NewAuthHandler создаёт AuthHandler.
// redirectURI — явный callback URI; пусто — publicURL + "/callback",
// а без publicURL — вычисляется из запроса.
func NewAuthHandler(idp IdentityProvider, sessions Sessions, redirectURI, publicURL string, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		idp:         idp,
		sessions:    sessions,
		redirectURI: redirectURI,
		publicURL:   strings.TrimRight(publicURL, "/"),
		logger:      logger.With(slog.String("component", "ui_auth")),
		now:         time.Now,
	}
}

// HandleLogin — GET /login.
// Генерирует state и PKCE verifier, сохраняет их в сессии,
// redirect на страницу входа Google.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())
	if s == nil {
		h.renderError(w, r, http.StatusInternalServerError, "Сессия не загружена")
		return
	}

	state, err := auth.GenerateState()
	if err != nil {
		h.logger.Error("Ошибка генерации state", slog.String("error", err.Error()))
		h.renderError(w, r, http.StatusInternalServerError, "Внутренняя ошибка сервера")
		return
	}
	verifier := auth.GenerateVerifier()

	s.BeginLogin(session.LoginState{State: state, CodeVerifier: verifier, StartedAt: h.now()})
	if err := h.sessions.Save(r.Context(), w, s); err != nil {
		h.logger.Error("Ошибка сохранения сессии", slog.String("error", err.Error()))
		h.renderError(w, r, http.StatusInternalServerError, "Ошибка создания сессии")
		return
	}

	authorizeURL := h.idp.AuthCodeURL(h.buildRedirectURI(r), state, verifier)
	h.logger.Debug("Redirect на Google login", slog.String("authorize_url", authorizeURL))

	http.Redirect(w, r, authorizeURL, http.StatusFound)
}

// HandleCallback — GET /callback.
// Обменивает authorization code на профиль пользователя, сохраняет его
// в сессии, redirect на /.
func (h *AuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())
	if s == nil {
		h.renderError(w, r, http.StatusInternalServerError, "Сессия не загружена")
		return
	}
	q := r.URL.Query()

	// 1. Ошибка от провайдера
	if errCode := q.Get("error"); errCode != "" {
		h.logger.Warn("Google вернул ошибку авторизации",
			slog.String("error", errCode),
			slog.String("description", q.Get("error_description")),
		)
		h.renderError(w, r, http.StatusBadRequest, "Ошибка авторизации: "+errCode)
		return
	}

	// 2. code и state
	code, state := q.Get("code"), q.Get("state")
	if code == "" || state == "" {
		h.renderError(w, r, http.StatusBadRequest, "Отсутствует code или state")
		return
	}

	// 3. Данные незавершённого входа одноразовые
	login := s.TakeLogin()
	if err := h.sessions.SaveIfDirty(r.Context(), w, s); err != nil {
		h.logger.Error("Ошибка сохранения сессии", slog.String("error", err.Error()))
	}
	if login == nil || h.now().Sub(login.StartedAt) > loginMaxAge {
		h.logger.Warn("Нет данных входа в сессии или они устарели")
		h.renderError(w, r, http.StatusBadRequest, "Сессия авторизации истекла, попробуйте ещё раз")
		return
	}

	// 4. CSRF-защита
	if login.State != state {
		h.logger.Warn("State mismatch (возможная CSRF атака)",
			slog.String("expected", login.State),
			slog.String("received", state),
		)
		h.renderError(w, r, http.StatusBadRequest, "State mismatch")
		return
	}

	// 5. Обмен code на профиль
	identity, err := h.idp.Exchange(r.Context(), h.buildRedirectURI(r), code, login.CodeVerifier)
	if err != nil {
		h.logger.Error("Ошибка обмена code на профиль", slog.String("error", err.Error()))
		h.renderError(w, r, http.StatusBadGateway, "Ошибка аутентификации")
		return
	}

	// 6. Профиль в сессии под новым идентификатором; роль будет проверена при первом запросе
	s.SetIdentity(*identity)
	if err := h.sessions.Rotate(r.Context(), w, s); err != nil {
		h.logger.Error("Ошибка сохранения сессии", slog.String("error", err.Error()))
		h.renderError(w, r, http.StatusInternalServerError, "Ошибка создания сессии")
		return
	}

	h.logger.Info("Пользователь аутентифицирован", slog.String("email", identity.Email))
	http.Redirect(w, r, "/", http.StatusFound)
}

// HandleLogout — GET|POST /logout. Удаляет всю сессию, redirect на /.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())
	if err := h.sessions.Destroy(r.Context(), w, s); err != nil {
		h.logger.Error("Ошибка удаления сессии", slog.String("error", err.Error()))
	}
	if s.Authenticated() {
		h.logger.Info("Пользователь вышел", slog.String("email", s.Identity.Email))
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// HandleRevalidate — POST /auth/revalidate.
// Сбрасывает кэшированную роль: следующий запрос проверит её заново.
func (h *AuthHandler) HandleRevalidate(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())
	if !s.Authenticated() {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	s.ForgetRole()
	if err := h.sessions.SaveIfDirty(r.Context(), w, s); err != nil {
		h.logger.Error("Ошибка сохранения сессии", slog.String("error", err.Error()))
		h.renderError(w, r, http.StatusInternalServerError, "Ошибка сохранения сессии")
		return
	}

	h.logger.Info("Роль сброшена для повторной проверки", slog.String("email", s.Identity.Email))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// buildRedirectURI формирует callback redirect URI.
func (h *AuthHandler) buildRedirectURI(r *http.Request) string {
	if h.redirectURI != "" {
		return h.redirectURI
	}
	if h.publicURL != "" {
		return h.publicURL + "/callback"
	}
	return buildBaseURL(r) + "/callback"
}

// buildBaseURL формирует базовый URL (scheme + host) из заголовков запроса.
// Учитывает X-Forwarded-* заголовки от reverse proxy.
func buildBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	host := r.Host
	if fwdHost := r.Header.Get("X-Forwarded-Host"); fwdHost != "" {
		host = fwdHost
	}

	return scheme + "://" + host
}

// renderError отвечает HTML-страницей ошибки.
func (h *AuthHandler) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	renderPage(h.logger, w, r, status, pages.Error(message))
}
