// recover.go — перехват паник обработчиков.
package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"runtime/debug"
	"strings"

	apierrors "github.com/bigkaa/control-center-gateway/internal/api/errors"
)

// Recoverer перехватывает панику обработчика, логирует место паники и стек
// и отвечает 500. fallback пишет ответ 500 для страниц; для /api/ и при
// fallback == nil ответ — JSON INTERNAL_ERROR.
func Recoverer(logger *slog.Logger, fallback http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.Error("Паника в обработчике HTTP-запроса",
					slog.String("panic", fmt.Sprint(rec)),
					slog.String("origin", panicOrigin()),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("stack", string(debug.Stack())),
				)

				if fallback == nil || strings.HasPrefix(r.URL.Path, "/api/") {
					apierrors.InternalError(w, "Внутренняя ошибка сервера")
					return
				}
				fallback.ServeHTTP(w, r)
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// panicOrigin возвращает file:line первого кадра стека вне пакета runtime.
func panicOrigin() string {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		f, more := frames.Next()
		if !strings.HasPrefix(f.Function, "runtime.") && !strings.HasSuffix(f.File, "/recover.go") {
			return fmt.Sprintf("%s:%d", f.File, f.Line)
		}
		if !more {
			return "unknown"
		}
	}
}
