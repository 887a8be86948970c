package pages

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/a-h/templ"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	if err := c.Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render() ошибка: %v", err)
	}
	return buf.String()
}

// TestHome проверяет вывод профиля и экранирование.
func TestHome(t *testing.T) {
	out := render(t, Home(HomeData{
		Name:    `<script>alert(1)</script>`,
		Email:   "jane@example.com",
		Picture: "https://example.com/jane.png",
		Role:    "admin",
	}))

	if strings.Contains(out, "<script>") {
		t.Error("имя должно экранироваться")
	}
	for _, want := range []string{"&lt;script&gt;", "jane@example.com", `src="https://example.com/jane.png"`, "admin", `action="/logout"`} {
		if !strings.Contains(out, want) {
			t.Errorf("страница не содержит %q", want)
		}
	}
}

// TestHome_UnsafePicture проверяет отбрасывание небезопасного URL аватара.
func TestHome_UnsafePicture(t *testing.T) {
	out := render(t, Home(HomeData{Email: "jane@example.com", Picture: "javascript:alert(1)"}))
	if strings.Contains(out, "javascript:") {
		t.Error("javascript: URL не должен попадать в src")
	}
	if !strings.Contains(out, "<h1>jane@example.com</h1>") {
		t.Error("без имени выводится email")
	}
}

// TestStaticPages проверяет остальные страницы.
func TestStaticPages(t *testing.T) {
	tests := []struct {
		name string
		c    templ.Component
		want string
	}{
		{"index", Index(), `href="/login"`},
		{"access denied", AccessDenied("x@example.com"), "x@example.com"},
		{"error", Error("Сбой входа"), "Сбой входа"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := render(t, tt.c)
			if !strings.HasPrefix(out, "<!doctype html>") || !strings.Contains(out, tt.want) {
				t.Errorf("страница не содержит %q: %s", tt.want, out)
			}
		})
	}
}

// TestRender_CancelledContext проверяет, что отменённый контекст прерывает рендеринг.
func TestRender_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	err := Error("сбой").Render(ctx, &buf)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Render() = %v, ожидается context.Canceled", err)
	}
	if buf.Len() != 0 {
		t.Errorf("записано %d байт, ожидается 0", buf.Len())
	}
}
