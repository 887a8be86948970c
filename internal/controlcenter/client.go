// Пакет controlcenter — HTTP-клиент к удалённому API Control Center.
//
// Один исходящий запрос на операцию, API-ключ передаётся в заголовке,
// ответ разбирается как JSON. Каждая операция возвращает (значение, error),
// где error — *Error с категорией (Kind). Результат каждого вызова
// фиксируется в журнале активности и в метриках Prometheus.
//
// Операции: LookupAdminRole, FetchMasterData, SaveApplication,
// DeleteApplication, FetchModules, FetchDimensions, SearchAdministrator,
// EnrollAdministrator, DeleteAdministrator, ListAdministrators.
package controlcenter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/control-center-gateway/internal/activity"
	"github.com/bigkaa/control-center-gateway/internal/domain/model"
	"github.com/bigkaa/control-center-gateway/internal/domain/rbac"
)

// Имена операций (метка operation в метриках).
const (
	OpLookupAdminRole     = "lookup_admin_role"
	OpFetchMasterData     = "fetch_master_data"
	OpSaveApplication     = "save_application"
	OpDeleteApplication   = "delete_application"
	OpFetchModules        = "fetch_modules"
	OpFetchDimensions     = "fetch_dimensions"
	OpSearchAdministrator = "search_administrator"
	OpEnrollAdministrator = "enroll_administrator"
	OpDeleteAdministrator = "delete_administrator"
	OpListAdministrators  = "list_administrators"
)

// Заголовки записей журнала активности.
var opTitles = map[string]string{
	OpLookupAdminRole:     "Validate administrator",
	OpFetchMasterData:     "Fetch application master data",
	OpSaveApplication:     "Save application",
	OpDeleteApplication:   "Delete application",
	OpFetchModules:        "Fetch application modules",
	OpFetchDimensions:     "Fetch application dimensions",
	OpSearchAdministrator: "Search administrator",
	OpEnrollAdministrator: "Enroll administrator",
	OpDeleteAdministrator: "Delete administrator",
	OpListAdministrators:  "List administrators",
}

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gw_control_center_requests_total",
		Help: "Вызовы Control Center по операции и результату.",
	}, []string{"operation", "result"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gw_control_center_request_duration_seconds",
		Help:    "Длительность вызовов Control Center.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
)

// maxErrorBody — сколько байт тела ответа с ошибкой попадает в лог.
const maxErrorBody = 512

// Recorder — получатель записей журнала активности.
type Recorder interface {
	Record(start time.Time, title string, status activity.Status, errMsg, remarks string)
}

// Config — параметры клиента.
type Config struct {
	// Базовый URL API (без trailing slash)
	BaseURL string
	// Заголовок API-ключа (по умолчанию x-api-key)
	APIKeyHeader string
	// API-ключ
	APIKey string
	// HTTP-клиент; по умолчанию с таймаутом Timeout
	HTTPClient *http.Client
	// Таймаут по умолчанию (30s), если HTTPClient не задан
	Timeout time.Duration
}

// Client — HTTP-клиент к Control Center.
type Client struct {
	baseURL      string
	apiKeyHeader string
	apiKey       string
	httpClient   *http.Client
	recorder     Recorder
	logger       *slog.Logger
}

// New создаёт клиент Control Center. recorder может быть nil.
func New(cfg Config, recorder Recorder, logger *slog.Logger) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	header := cfg.APIKeyHeader
	if header == "" {
		header = "x-api-key"
	}

	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		apiKeyHeader: header,
		apiKey:       cfg.APIKey,
		httpClient:   httpClient,
		recorder:     recorder,
		logger:       logger.With(slog.String("component", "control_center_client")),
	}
}

// --- Администраторы: проверка роли ---

// LookupAdminRole ищет пользователя в справочнике администраторов.
// Пустой список — ошибка KindNotFound; запись без hcm_id или role_type,
// либо с ролью вне guest/admin/superadmin — KindMalformed.
func (c *Client) LookupAdminRole(ctx context.Context, username string) (*model.AdminRole, error) {
	var (
		resp listResponse
		role *model.AdminRole
	)
	q := url.Values{"username": {username}}
	check := func() error {
		if resp.Data == nil {
			return &Error{Op: OpLookupAdminRole, Kind: KindMalformed, Err: errors.New("в ответе нет поля data")}
		}
		if len(*resp.Data) == 0 {
			return &Error{Op: OpLookupAdminRole, Kind: KindNotFound}
		}
		first := (*resp.Data)[0]
		subject := model.StringField(first, "hcm_id")
		r := rbac.Normalize(model.StringField(first, "role_type"))
		if subject == "" || r == "" {
			return &Error{Op: OpLookupAdminRole, Kind: KindMalformed,
				Err: errors.New("в записи нет hcm_id или role_type")}
		}
		if !rbac.IsValidRole(r) {
			return &Error{Op: OpLookupAdminRole, Kind: KindMalformed,
				Err: fmt.Errorf("неизвестная роль %q", r)}
		}
		role = &model.AdminRole{SubjectID: subject, Role: r, CheckedAt: time.Now()}
		return nil
	}

	err := c.call(ctx, OpLookupAdminRole, http.MethodGet, "/admins/validate", q, nil, &resp, check, "username="+username)
	if err != nil {
		return nil, err
	}
	return role, nil
}

// --- Приложения ---

// FetchMasterData возвращает справочник приложений.
func (c *Client) FetchMasterData(ctx context.Context) ([]model.Record, error) {
	return c.list(ctx, OpFetchMasterData, "/applications", nil, "")
}

// SaveApplication создаёт или изменяет приложение.
// id == nil передаётся как null (режим modify без черновика в сессии).
func (c *Client) SaveApplication(ctx context.Context, mode string, id *string, draft model.ApplicationDraft, actor string) error {
	body := saveApplicationRequest{Mode: mode, AppID: id, ApplicationDraft: draft, Actor: actor}
	remarks := fmt.Sprintf("mode=%s app_id=%s app_name=%s", mode, derefOrNull(id), draft.Name)
	return c.action(ctx, OpSaveApplication, "/applications/save", body, remarks)
}

// DeleteApplication удаляет приложение.
func (c *Client) DeleteApplication(ctx context.Context, appID, actor string) error {
	body := deleteApplicationRequest{AppID: appID, Actor: actor}
	return c.action(ctx, OpDeleteApplication, "/applications/delete", body, "app_id="+appID)
}

// FetchModules возвращает модули приложения.
func (c *Client) FetchModules(ctx context.Context, appID string) ([]model.Record, error) {
	path := "/applications/" + url.PathEscape(appID) + "/modules"
	return c.list(ctx, OpFetchModules, path, nil, "app_id="+appID)
}

// FetchDimensions возвращает измерения приложения.
func (c *Client) FetchDimensions(ctx context.Context, appID string) ([]model.Record, error) {
	path := "/applications/" + url.PathEscape(appID) + "/dimensions"
	return c.list(ctx, OpFetchDimensions, path, nil, "app_id="+appID)
}

// --- Администраторы ---

// SearchAdministrator ищет сотрудника по hcm_id.
func (c *Client) SearchAdministrator(ctx context.Context, hcmID string) ([]model.Record, error) {
	q := url.Values{"hcm_id": {hcmID}}
	return c.list(ctx, OpSearchAdministrator, "/administrators/search", q, "hcm_id="+hcmID)
}

// EnrollAdministrator регистрирует администратора.
func (c *Client) EnrollAdministrator(ctx context.Context, e model.AdministratorEnrollment, actor string) error {
	body := enrollAdministratorRequest{AdministratorEnrollment: e, EnrolledBy: actor}
	remarks := fmt.Sprintf("hcm_id=%s role_type=%s", e.HCMID, e.RoleType)
	return c.action(ctx, OpEnrollAdministrator, "/administrators/enroll", body, remarks)
}

// DeleteAdministrator удаляет администратора с указанием причины.
func (c *Client) DeleteAdministrator(ctx context.Context, userID, reason, actor string) error {
	body := deleteAdministratorRequest{UserID: userID, Reason: reason, DeletedBy: actor}
	return c.action(ctx, OpDeleteAdministrator, "/administrators/delete", body, "user_id="+userID)
}

// ListAdministrators возвращает таблицу администраторов.
func (c *Client) ListAdministrators(ctx context.Context) ([]model.Record, error) {
	return c.list(ctx, OpListAdministrators, "/administrators", nil, "")
}

// --- Вспомогательные методы ---

// list выполняет GET и разбирает ответ {"data": [...]}.
func (c *Client) list(ctx context.Context, op, path string, query url.Values, remarks string) ([]model.Record, error) {
	var resp listResponse
	check := func() error {
		if resp.Data == nil {
			return &Error{Op: op, Kind: KindMalformed, Err: errors.New("в ответе нет поля data")}
		}
		return nil
	}
	if err := c.call(ctx, op, http.MethodGet, path, query, nil, &resp, check, remarks); err != nil {
		return nil, err
	}
	return *resp.Data, nil
}

// action выполняет POST и разбирает ответ {"status": ...}.
func (c *Client) action(ctx context.Context, op, path string, body any, remarks string) error {
	var resp actionResponse
	check := func() error {
		switch resp.Status {
		case statusSuccess:
			return nil
		case statusError:
			msg := resp.Message
			if msg == "" {
				msg = "control center reported an error"
			}
			return &Error{Op: op, Kind: KindRemote, Message: msg}
		default:
			return &Error{Op: op, Kind: KindMalformed, Err: fmt.Errorf("неожиданный status %q", resp.Status)}
		}
	}
	return c.call(ctx, op, http.MethodPost, path, nil, body, &resp, check, remarks)
}

// call выполняет один вызов: запрос, проверка конверта ответа (check),
// запись результата в метрики и журнал активности.
func (c *Client) call(
	ctx context.Context,
	op, method, path string,
	query url.Values,
	body, target any,
	check func() error,
	remarks string,
) error {
	start := time.Now()
	err := c.do(ctx, op, method, path, query, body, target)
	if err == nil && check != nil {
		err = check()
	}
	requestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	if actor := ActorFromContext(ctx); actor != "" {
		if remarks != "" {
			remarks += " "
		}
		remarks += "actor=" + actor
	}

	if err == nil {
		requestsTotal.WithLabelValues(op, "success").Inc()
		c.record(start, op, activity.StatusSuccess, "", remarks)
		return nil
	}

	requestsTotal.WithLabelValues(op, string(KindOf(err))).Inc()
	level := slog.LevelWarn
	if IsNotFound(err) {
		level = slog.LevelInfo
	}
	c.logger.Log(ctx, level, "Вызов Control Center завершился ошибкой",
		slog.String("operation", op),
		slog.String("kind", string(KindOf(err))),
		slog.String("error", err.Error()),
	)
	c.record(start, op, activity.StatusFailed, err.Error(), remarks)
	return err
}

// do отправляет запрос и декодирует JSON-ответ в target.
// Все ошибки возвращаются как *Error.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, target any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &Error{Op: op, Kind: KindTransport, Err: fmt.Errorf("сериализация тела запроса: %w", err)}
		}
		bodyReader = bytes.NewReader(data)
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return &Error{Op: op, Kind: KindTransport, Err: fmt.Errorf("создание запроса: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(c.apiKeyHeader, c.apiKey)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Op: op, Kind: KindTransport, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Debug("Control Center вернул ошибочный статус",
			slog.String("operation", op),
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(snippet)),
		)
		return &Error{Op: op, Kind: KindStatus, StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return &Error{Op: op, Kind: KindDecode, StatusCode: resp.StatusCode,
			Err: fmt.Errorf("декодирование ответа: %w", err)}
	}
	return nil
}

// record передаёт итог вызова в журнал активности.
func (c *Client) record(start time.Time, op string, status activity.Status, errMsg, remarks string) {
	if c.recorder == nil {
		return
	}
	c.recorder.Record(start, opTitles[op], status, errMsg, remarks)
}

func derefOrNull(s *string) string {
	if s == nil {
		return "null"
	}
	return *s
}
