package middleware

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/bigkaa/control-center-gateway/internal/session"
)

// testLogger создаёт logger для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// TestNormalizePath проверяет ограничение кардинальности метки path.
func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path     string
		expected string
	}{
		{"/", "/"},
		{"/api/applications", "/api/applications"},
		{"/api/applications/", "/api/applications"},
		{"/api/administrators/enroll", "/api/administrators/enroll"},
		{"/health/ready", "/health/ready"},
		{"/wp-admin/install.php", "other"},
		{"/api/applications/123", "other"},
	}
	for _, tt := range tests {
		if got := normalizePath(tt.path); got != tt.expected {
			t.Errorf("normalizePath(%q) = %q, ожидается %q", tt.path, got, tt.expected)
		}
	}
}

// TestMetricsMiddleware проверяет прозрачность middleware для ответа.
func TestMetricsMiddleware(t *testing.T) {
	h := MetricsMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("статус = %d, ожидается %d", rec.Code, http.StatusTeapot)
	}
}

// TestRequestLogger проверяет уровень и поля записи лога.
func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	h := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream"))
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/applications/submit", nil))

	out := buf.String()
	for _, want := range []string{"level=ERROR", "status=502", "bytes=8", "path=/api/applications/submit"} {
		if !strings.Contains(out, want) {
			t.Errorf("лог не содержит %q: %s", want, out)
		}
	}
}

// TestRecoverer проверяет ответ 500 вместо падения процесса.
func TestRecoverer(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	fallback := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("<h1>Ошибка</h1>"))
	})
	h := Recoverer(logger, fallback)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	tests := []struct {
		path        string
		wantContent string
	}{
		{"/api/applications", "INTERNAL_ERROR"},
		{"/", "<h1>Ошибка</h1>"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != http.StatusInternalServerError {
				t.Errorf("статус = %d, ожидается 500", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tt.wantContent) {
				t.Errorf("тело = %q, ожидается %q", rec.Body.String(), tt.wantContent)
			}
		})
	}

	out := buf.String()
	if !strings.Contains(out, "panic=boom") || !strings.Contains(out, "middleware_test.go:") {
		t.Errorf("лог должен содержать панику и место: %s", out)
	}
}

// fakeLoader — загрузчик сессий для тестов.
type fakeLoader struct {
	state *session.State
	err   error
}

func (f *fakeLoader) Load(*http.Request) (*session.State, error) {
	return f.state, f.err
}

// TestSession проверяет помещение сессии в контекст и отказ при сбое хранилища.
func TestSession(t *testing.T) {
	t.Run("загружена", func(t *testing.T) {
		st := &session.State{ID: "s-1"}
		var got *session.State
		h := Session(&fakeLoader{state: st}, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = session.FromContext(r.Context())
		}))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		if got != st {
			t.Errorf("сессия в контексте = %v, ожидается %v", got, st)
		}
	})

	t.Run("сбой хранилища", func(t *testing.T) {
		called := false
		h := Session(&fakeLoader{err: errors.New("redis down")}, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))
		if called {
			t.Error("обработчик не должен вызываться")
		}
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("статус = %d, ожидается 500", rec.Code)
		}
	})
}
