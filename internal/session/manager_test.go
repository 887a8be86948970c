package session

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/bigkaa/control-center-gateway/internal/domain/model"
)

// testLogger создаёт logger для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestManager(t *testing.T, key string) (*Manager, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore(100, time.Hour)
	m, err := NewManager(store, key, time.Hour, false, testLogger())
	if err != nil {
		t.Fatalf("NewManager() вернул ошибку: %v", err)
	}
	return m, store
}

// cookieFrom извлекает cookie сессии из ответа.
func cookieFrom(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == CookieName {
			return c
		}
	}
	t.Fatal("cookie сессии не установлен")
	return nil
}

// TestManager_SaveLoadRoundTrip проверяет сохранение и загрузку по cookie.
func TestManager_SaveLoadRoundTrip(t *testing.T) {
	m, _ := newTestManager(t, "test-secret")

	s := m.New()
	s.SetIdentity(model.Identity{Email: "jdoe@example.com", Name: "John Doe", Picture: "https://pic"})
	s.CacheRole(model.AdminRole{SubjectID: "123", Role: "admin", CheckedAt: time.Now()})

	rec := httptest.NewRecorder()
	if err := m.Save(context.Background(), rec, s); err != nil {
		t.Fatalf("Save() вернул ошибку: %v", err)
	}
	if s.Dirty() {
		t.Error("Dirty() = true после Save")
	}

	cookie := cookieFrom(t, rec)
	if !cookie.HttpOnly {
		t.Error("cookie без HttpOnly")
	}
	if cookie.SameSite != http.SameSiteLaxMode {
		t.Errorf("SameSite = %v, ожидается Lax", cookie.SameSite)
	}
	if cookie.Value == s.ID {
		t.Error("идентификатор сессии записан в cookie открытым текстом")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	loaded, err := m.Load(req)
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}
	if loaded.ID != s.ID {
		t.Errorf("ID = %q, ожидается %q", loaded.ID, s.ID)
	}
	if !loaded.Authenticated() || loaded.Identity.Picture != "https://pic" {
		t.Errorf("Identity = %+v", loaded.Identity)
	}
	if loaded.AdminRole == nil || loaded.AdminRole.Role != "admin" {
		t.Errorf("AdminRole = %+v", loaded.AdminRole)
	}
}

// TestManager_LoadWithoutCookie — новая пустая сессия.
func TestManager_LoadWithoutCookie(t *testing.T) {
	m, _ := newTestManager(t, "")

	s, err := m.Load(httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}
	if s == nil || s.ID == "" {
		t.Fatal("ожидалась новая сессия с ID")
	}
	if s.Authenticated() {
		t.Error("новая сессия аутентифицирована")
	}
}

// TestManager_TamperedCookie — повреждённый cookie даёт новую сессию.
func TestManager_TamperedCookie(t *testing.T) {
	m, _ := newTestManager(t, "test-secret")

	tests := []struct {
		name  string
		value string
	}{
		{"не base64", "%%%"},
		{"слишком короткий", "AAAA"},
		{"чужой шифротекст", "dGhpcyBpcyBub3QgYSB2YWxpZCBjaXBoZXJ0ZXh0IGF0IGFsbA=="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.AddCookie(&http.Cookie{Name: CookieName, Value: tt.value})
			s, err := m.Load(req)
			if err != nil {
				t.Fatalf("Load() вернул ошибку: %v", err)
			}
			if s.Authenticated() {
				t.Error("сессия из повреждённого cookie аутентифицирована")
			}
		})
	}
}

// TestManager_CookieFromOtherKey — cookie, зашифрованный другим ключом, не принимается.
func TestManager_CookieFromOtherKey(t *testing.T) {
	m1, store := newTestManager(t, "key-one")
	m2, err := NewManager(store, "key-two", time.Hour, false, testLogger())
	if err != nil {
		t.Fatalf("NewManager() вернул ошибку: %v", err)
	}

	s := m1.New()
	s.SetIdentity(model.Identity{Email: "jdoe@example.com"})
	rec := httptest.NewRecorder()
	if err := m1.Save(context.Background(), rec, s); err != nil {
		t.Fatalf("Save() вернул ошибку: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookieFrom(t, rec))
	loaded, _ := m2.Load(req)
	if loaded.ID == s.ID {
		t.Error("сессия загружена с чужим ключом")
	}
}

// TestManager_Destroy — logout удаляет сессию и cookie.
func TestManager_Destroy(t *testing.T) {
	m, store := newTestManager(t, "test-secret")

	s := m.New()
	s.SetIdentity(model.Identity{Email: "jdoe@example.com"})
	rec := httptest.NewRecorder()
	_ = m.Save(context.Background(), rec, s)
	cookie := cookieFrom(t, rec)

	out := httptest.NewRecorder()
	if err := m.Destroy(context.Background(), out, s); err != nil {
		t.Fatalf("Destroy() вернул ошибку: %v", err)
	}
	if c := cookieFrom(t, out); c.MaxAge != -1 {
		t.Errorf("MaxAge = %d, ожидается -1", c.MaxAge)
	}
	if store.Len() != 0 {
		t.Errorf("в хранилище осталось %d сессий", store.Len())
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	loaded, _ := m.Load(req)
	if loaded.Authenticated() {
		t.Error("после Destroy сессия всё ещё аутентифицирована")
	}
}

// TestManager_Rotate — после входа cookie, выданный до входа, не загружает сессию.
func TestManager_Rotate(t *testing.T) {
	m, store := newTestManager(t, "test-secret")

	s := m.New()
	s.BeginLogin(LoginState{State: "st", CodeVerifier: "v"})
	rec := httptest.NewRecorder()
	if err := m.Save(context.Background(), rec, s); err != nil {
		t.Fatalf("Save() вернул ошибку: %v", err)
	}
	preLogin := cookieFrom(t, rec)
	oldID := s.ID

	s.SetIdentity(model.Identity{Email: "jdoe@example.com"})
	out := httptest.NewRecorder()
	if err := m.Rotate(context.Background(), out, s); err != nil {
		t.Fatalf("Rotate() вернул ошибку: %v", err)
	}
	if s.ID == oldID {
		t.Error("идентификатор сессии не изменился")
	}
	if s.Dirty() {
		t.Error("после Rotate состояние осталось dirty")
	}
	if store.Len() != 1 {
		t.Errorf("Len() = %d, ожидается 1", store.Len())
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(preLogin)
	loaded, err := m.Load(req)
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}
	if loaded.Authenticated() || loaded.ID == s.ID {
		t.Error("cookie до входа загружает аутентифицированную сессию")
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookieFrom(t, out))
	loaded, _ = m.Load(req)
	if !loaded.Authenticated() || loaded.ID != s.ID {
		t.Errorf("новый cookie: ID = %q, ожидается %q", loaded.ID, s.ID)
	}
}

// TestManager_SaveIfDirty — неизменённое состояние не сохраняется.
func TestManager_SaveIfDirty(t *testing.T) {
	m, store := newTestManager(t, "test-secret")

	s := m.New()
	rec := httptest.NewRecorder()
	if err := m.SaveIfDirty(context.Background(), rec, s); err != nil {
		t.Fatalf("SaveIfDirty() вернул ошибку: %v", err)
	}
	if store.Len() != 0 || len(rec.Result().Cookies()) != 0 {
		t.Error("чистое состояние было сохранено")
	}

	s.SetPendingEdit(model.PendingEdit{AppID: "42"})
	if err := m.SaveIfDirty(context.Background(), rec, s); err != nil {
		t.Fatalf("SaveIfDirty() вернул ошибку: %v", err)
	}
	if store.Len() != 1 {
		t.Errorf("Len() = %d, ожидается 1", store.Len())
	}
}

func TestState_Mutations(t *testing.T) {
	s := &State{ID: "s1"}

	s.BeginLogin(LoginState{State: "st", CodeVerifier: "cv"})
	if l := s.TakeLogin(); l == nil || l.State != "st" {
		t.Fatalf("TakeLogin() = %+v", l)
	}
	if s.TakeLogin() != nil {
		t.Error("повторный TakeLogin() вернул данные")
	}

	s.CacheRole(model.AdminRole{Role: "admin"})
	s.SetPendingEdit(model.PendingEdit{AppID: "1"})
	s.SetIdentity(model.Identity{Email: "other@example.com"})
	if s.AdminRole != nil || s.PendingEdit != nil {
		t.Error("SetIdentity не сбросил роль и черновик")
	}

	s.CacheRole(model.AdminRole{Role: "admin"})
	s.ForgetRole()
	if s.AdminRole != nil {
		t.Error("ForgetRole не сбросил роль")
	}
}

func TestContext(t *testing.T) {
	if FromContext(context.Background()) != nil {
		t.Error("FromContext без сессии вернул не nil")
	}
	s := &State{ID: "x"}
	if got := FromContext(NewContext(context.Background(), s)); got != s {
		t.Error("FromContext вернул другое состояние")
	}
}
