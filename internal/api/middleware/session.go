// session.go — загрузка состояния сессии в контекст запроса.
package middleware

import (
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/control-center-gateway/internal/api/errors"
	"github.com/bigkaa/control-center-gateway/internal/session"
)

// SessionLoader загружает состояние сессии по cookie запроса.
type SessionLoader interface {
	Load(r *http.Request) (*session.State, error)
}

// Session помещает состояние сессии в контекст (session.FromContext).
// Сбой хранилища сессий — 500; отсутствующая сессия — новое пустое состояние.
// Обработчики сохраняют изменённую сессию до записи тела ответа.
func Session(loader SessionLoader, logger *slog.Logger) func(http.Handler) http.Handler {
	log := logger.With(slog.String("component", "session_middleware"))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, err := loader.Load(r)
			if err != nil {
				log.Error("Ошибка загрузки сессии", slog.String("error", err.Error()))
				apierrors.InternalError(w, "Хранилище сессий недоступно")
				return
			}
			next.ServeHTTP(w, r.WithContext(session.NewContext(r.Context(), s)))
		})
	}
}
