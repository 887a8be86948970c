package activity

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"
)

// testLogger создаёт logger для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// collector — mock endpoint журнала, сохраняющий полученные записи.
type collector struct {
	mu      sync.Mutex
	entries []wireEntry
	headers []http.Header
}

func (c *collector) handle(w http.ResponseWriter, r *http.Request) {
	var body wireBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	c.mu.Lock()
	c.entries = append(c.entries, body.Data)
	c.headers = append(c.headers, r.Header.Clone())
	c.mu.Unlock()
	w.WriteHeader(http.StatusCreated)
}

func (c *collector) titles() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e.LogTitle)
	}
	return out
}

// TestRecord_SyncPayload проверяет формат тела запроса в синхронном режиме.
func TestRecord_SyncPayload(t *testing.T) {
	c := &collector{}
	srv := httptest.NewServer(http.HandlerFunc(c.handle))
	t.Cleanup(srv.Close)

	l := New(Options{URL: srv.URL, APIKeyHeader: "x-api-key", APIKey: "k-1"}, testLogger())
	end := time.Date(2024, 5, 1, 10, 0, 5, 0, time.UTC)
	l.now = func() time.Time { return end }

	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	l.Record(start, "Delete application", StatusFailed, "remote error", "app_id=42")

	if len(c.entries) != 1 {
		t.Fatalf("получено %d записей, ожидается 1", len(c.entries))
	}
	got := c.entries[0]
	want := wireEntry{
		StartDate:    "2024-05-01T10:00:00Z",
		EndDate:      "2024-05-01T10:00:05Z",
		LogTitle:     "Delete application",
		Status:       "Failed",
		ErrorMessage: "remote error",
		Remarks:      "app_id=42",
	}
	if got != want {
		t.Errorf("запись = %+v, ожидается %+v", got, want)
	}
	if h := c.headers[0].Get("x-api-key"); h != "k-1" {
		t.Errorf("x-api-key = %q, ожидается k-1", h)
	}
}

// TestRecord_FailureSwallowed проверяет, что ошибка endpoint не всплывает.
func TestRecord_FailureSwallowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	l := New(Options{URL: srv.URL}, testLogger())
	l.Record(time.Now(), "Save application", StatusSuccess, "", "")
}

// TestRecord_Unreachable проверяет отсутствие паники при недоступном endpoint.
func TestRecord_Unreachable(t *testing.T) {
	l := New(Options{URL: "http://127.0.0.1:1", Timeout: 200 * time.Millisecond}, testLogger())
	l.Record(time.Now(), "Lookup", StatusSuccess, "", "")
}

// TestRecord_Disabled проверяет no-op без URL.
func TestRecord_Disabled(t *testing.T) {
	l := New(Options{}, testLogger())
	if l.Enabled() {
		t.Fatal("Enabled() = true без URL")
	}
	l.Record(time.Now(), "noop", StatusSuccess, "", "")
	if err := l.Close(context.Background()); err != nil {
		t.Errorf("Close() вернул ошибку: %v", err)
	}

	var nilLogger *Logger
	nilLogger.Record(time.Now(), "noop", StatusSuccess, "", "")
}

// TestRecord_AsyncDelivery проверяет доставку через очередь и дренаж при Close.
func TestRecord_AsyncDelivery(t *testing.T) {
	c := &collector{}
	srv := httptest.NewServer(http.HandlerFunc(c.handle))
	t.Cleanup(srv.Close)

	l := New(Options{URL: srv.URL, QueueSize: 8}, testLogger())
	for _, title := range []string{"a", "b", "c"} {
		l.Record(time.Now(), title, StatusSuccess, "", "")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := l.Close(ctx); err != nil {
		t.Fatalf("Close() вернул ошибку: %v", err)
	}

	got := c.titles()
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("получены записи %v, ожидается [a b c]", got)
	}

	// После Close запись отбрасывается без паники.
	l.Record(time.Now(), "late", StatusSuccess, "", "")
	if err := l.Close(ctx); err != nil {
		t.Errorf("повторный Close() вернул ошибку: %v", err)
	}
}

// TestRecord_DropOldest проверяет вытеснение самой старой записи при переполнении.
func TestRecord_DropOldest(t *testing.T) {
	c := &collector{}
	firstArrived := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.handle(w, r)
		once.Do(func() {
			close(firstArrived)
			<-release
		})
	}))
	t.Cleanup(srv.Close)

	l := New(Options{URL: srv.URL, QueueSize: 1}, testLogger())

	// Первая запись занимает отправителя.
	l.Record(time.Now(), "first", StatusSuccess, "", "")
	select {
	case <-firstArrived:
	case <-time.After(5 * time.Second):
		t.Fatal("первая запись не доставлена")
	}

	// Очередь на 1 элемент: "second" вытесняется записью "third".
	l.Record(time.Now(), "second", StatusSuccess, "", "")
	l.Record(time.Now(), "third", StatusSuccess, "", "")
	close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := l.Close(ctx); err != nil {
		t.Fatalf("Close() вернул ошибку: %v", err)
	}

	got := c.titles()
	if len(got) != 2 || got[0] != "first" || got[1] != "third" {
		t.Errorf("получены записи %v, ожидается [first third]", got)
	}
}
