// Пакет activity — журнал активности: запись результата каждого исходящего
// вызова в удалённый endpoint аудита.
//
// Запись — fire-and-forget: Record ничего не возвращает, ошибки отправки
// пишутся в debug-лог и отбрасываются. Повторных попыток нет.
//
// Режимы доставки:
//   - QueueSize == 0 — синхронная отправка в вызывающей горутине;
//   - QueueSize > 0  — ограниченная очередь и одна горутина-отправитель.
//     При переполнении вытесняется самая старая запись (drop-oldest),
//     вытеснения считаются в gw_activity_entries_total{result="dropped"}.
package activity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Status — итог операции в записи журнала.
type Status string

const (
	StatusSuccess Status = "Success"
	StatusFailed  Status = "Failed"
)

// Формат дат в записях журнала.
const timeLayout = time.RFC3339

var entriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "gw_activity_entries_total",
	Help: "Записи журнала активности по результату доставки (sent, failed, dropped).",
}, []string{"result"})

// Entry — одна запись журнала активности.
type Entry struct {
	StartDate    time.Time
	EndDate      time.Time
	LogTitle     string
	Status       Status
	ErrorMessage string
	Remarks      string
}

// wireEntry — представление записи в теле запроса.
type wireEntry struct {
	StartDate    string `json:"StartDate"`
	EndDate      string `json:"EndDate"`
	LogTitle     string `json:"LogTitle"`
	Status       string `json:"Status"`
	ErrorMessage string `json:"ErrorMessage"`
	Remarks      string `json:"Remarks"`
}

type wireBody struct {
	Data wireEntry `json:"data"`
}

// Options — параметры Logger.
type Options struct {
	// URL endpoint журнала. Пусто — журнал отключён.
	URL string
	// Заголовок и значение API-ключа
	APIKeyHeader string
	APIKey       string
	// Размер очереди; 0 — синхронная отправка
	QueueSize int
	// Таймаут одной отправки (по умолчанию 10s)
	Timeout time.Duration
	// HTTP-клиент (опционально)
	HTTPClient *http.Client
}

// Logger — клиент журнала активности.
type Logger struct {
	url          string
	apiKeyHeader string
	apiKey       string
	timeout      time.Duration
	httpClient   *http.Client
	logger       *slog.Logger
	now          func() time.Time

	mu     sync.Mutex
	queue  chan Entry
	closed bool
	done   chan struct{}
}

// New создаёт Logger. В асинхронном режиме сразу запускает отправитель;
// его нужно остановить через Close.
func New(opts Options, logger *slog.Logger) *Logger {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	l := &Logger{
		url:          opts.URL,
		apiKeyHeader: opts.APIKeyHeader,
		apiKey:       opts.APIKey,
		timeout:      timeout,
		httpClient:   httpClient,
		logger:       logger.With(slog.String("component", "activity_logger")),
		now:          time.Now,
	}

	if l.url == "" {
		l.logger.Info("Журнал активности отключён: URL не задан")
		return l
	}

	if opts.QueueSize > 0 {
		l.queue = make(chan Entry, opts.QueueSize)
		l.done = make(chan struct{})
		go l.run()
	}

	l.logger.Info("Журнал активности инициализирован",
		slog.String("url", l.url),
		slog.Int("queue_size", opts.QueueSize),
	)
	return l
}

// Enabled сообщает, отправляет ли Logger записи.
func (l *Logger) Enabled() bool {
	return l != nil && l.url != ""
}

// Record фиксирует результат операции. Время окончания — момент вызова.
// Никогда не блокируется надолго и не возвращает ошибок.
func (l *Logger) Record(start time.Time, title string, status Status, errMsg, remarks string) {
	if !l.Enabled() {
		return
	}

	e := Entry{
		StartDate:    start,
		EndDate:      l.now(),
		LogTitle:     title,
		Status:       status,
		ErrorMessage: errMsg,
		Remarks:      remarks,
	}

	if l.queue == nil {
		l.send(e)
		return
	}
	l.enqueue(e)
}

// enqueue кладёт запись в очередь, вытесняя самую старую при переполнении.
func (l *Logger) enqueue(e Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		entriesTotal.WithLabelValues("dropped").Inc()
		return
	}

	for {
		select {
		case l.queue <- e:
			return
		default:
		}
		select {
		case old := <-l.queue:
			entriesTotal.WithLabelValues("dropped").Inc()
			l.logger.Debug("Очередь журнала переполнена, запись вытеснена",
				slog.String("title", old.LogTitle),
			)
		default:
		}
	}
}

// run — цикл горутины-отправителя.
func (l *Logger) run() {
	defer close(l.done)
	for e := range l.queue {
		l.send(e)
	}
}

// send отправляет одну запись. Ошибки только логируются.
func (l *Logger) send(e Entry) {
	if err := l.post(e); err != nil {
		entriesTotal.WithLabelValues("failed").Inc()
		l.logger.Debug("Не удалось отправить запись журнала активности",
			slog.String("title", e.LogTitle),
			slog.String("error", err.Error()),
		)
		return
	}
	entriesTotal.WithLabelValues("sent").Inc()
}

func (l *Logger) post(e Entry) error {
	body, err := json.Marshal(wireBody{Data: wireEntry{
		StartDate:    e.StartDate.Format(timeLayout),
		EndDate:      e.EndDate.Format(timeLayout),
		LogTitle:     e.LogTitle,
		Status:       string(e.Status),
		ErrorMessage: e.ErrorMessage,
		Remarks:      e.Remarks,
	}})
	if err != nil {
		return fmt.Errorf("сериализация записи: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("создание запроса: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if l.apiKeyHeader != "" && l.apiKey != "" {
		req.Header.Set(l.apiKeyHeader, l.apiKey)
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("отправка запроса: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("endpoint журнала вернул статус %d", resp.StatusCode)
	}
	return nil
}

// Close прекращает приём записей и ждёт отправки оставшихся в очереди
// до отмены ctx. Повторный вызов безопасен.
func (l *Logger) Close(ctx context.Context) error {
	if l == nil || l.queue == nil {
		return nil
	}

	l.mu.Lock()
	if !l.closed {
		l.closed = true
		close(l.queue)
	}
	l.mu.Unlock()

	select {
	case <-l.done:
		l.logger.Info("Журнал активности остановлен")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("остановка журнала активности: %w", ctx.Err())
	}
}
