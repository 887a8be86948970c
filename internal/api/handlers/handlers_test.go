package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"slices"
	"strings"
	"testing"

	"github.com/bigkaa/control-center-gateway/internal/controlcenter"
	"github.com/bigkaa/control-center-gateway/internal/domain/model"
	"github.com/bigkaa/control-center-gateway/internal/domain/rbac"
	"github.com/bigkaa/control-center-gateway/internal/gate"
	"github.com/bigkaa/control-center-gateway/internal/service"
	"github.com/bigkaa/control-center-gateway/internal/session"
	"github.com/bigkaa/control-center-gateway/internal/validator"
)

// testLogger создаёт logger для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeDirectory — заглушка Control Center.
type fakeDirectory struct {
	err      error
	rows     []model.Record
	saveIDs  []*string
	enrolled []model.AdministratorEnrollment
}

func (f *fakeDirectory) FetchMasterData(context.Context) ([]model.Record, error) {
	return f.rows, f.err
}

func (f *fakeDirectory) SaveApplication(_ context.Context, _ string, id *string, _ model.ApplicationDraft, _ string) error {
	f.saveIDs = append(f.saveIDs, id)
	return f.err
}

func (f *fakeDirectory) DeleteApplication(context.Context, string, string) error { return f.err }

func (f *fakeDirectory) FetchModules(context.Context, string) ([]model.Record, error) {
	return f.rows, f.err
}

func (f *fakeDirectory) FetchDimensions(context.Context, string) ([]model.Record, error) {
	return f.rows, f.err
}

func (f *fakeDirectory) ListAdministrators(context.Context) ([]model.Record, error) {
	return f.rows, f.err
}

func (f *fakeDirectory) SearchAdministrator(context.Context, string) ([]model.Record, error) {
	return f.rows, f.err
}

func (f *fakeDirectory) EnrollAdministrator(_ context.Context, e model.AdministratorEnrollment, _ string) error {
	f.enrolled = append(f.enrolled, e)
	return f.err
}

func (f *fakeDirectory) DeleteAdministrator(context.Context, string, string, string) error {
	return f.err
}

// recordingSessions — заглушка сохранения сессии.
type recordingSessions struct {
	saved int
}

func (r *recordingSessions) SaveIfDirty(_ context.Context, _ http.ResponseWriter, s *session.State) error {
	if s.Dirty() {
		r.saved++
	}
	return nil
}

var upstreamErr = &controlcenter.Error{Op: controlcenter.OpFetchMasterData, Kind: controlcenter.KindTransport, Err: errors.New("connection refused")}

func newTestHandler(dir *fakeDirectory) (*APIHandler, *recordingSessions) {
	schemas := validator.MustLoadSchemas()
	logger := testLogger()
	sessions := &recordingSessions{}
	h := NewAPIHandler(
		service.NewApplicationService(dir, schemas, logger),
		service.NewCatalogService(dir, schemas, logger),
		service.NewAdministratorService(dir, schemas, logger),
		sessions,
		logger,
	)
	return h, sessions
}

// call выполняет запрос к обработчику с сессией в контексте.
func call(h http.HandlerFunc, method, body string, st *session.State) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, "/", nil)
	} else {
		req = httptest.NewRequest(method, "/", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if st != nil {
		req = req.WithContext(session.NewContext(req.Context(), st))
	}
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

type errorResponse struct {
	Error struct {
		Code   string   `json:"code"`
		Fields []string `json:"fields"`
	} `json:"error"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("ошибка декодирования ответа: %v", err)
	}
	return resp
}

const validApplication = `{"app_id":"42","app_name":"CRM","app_url":"https://crm","app_status":"active","app_owner":"ops","perm_view":"on"}`

// TestWriteServiceError проверяет преобразование ошибок сервиса в HTTP-ответы.
func TestWriteServiceError(t *testing.T) {
	h, _ := newTestHandler(&fakeDirectory{})

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantFields []string
	}{
		{
			name:       "валидация",
			err:        &service.ValidationError{Schema: "X", Fields: []string{"app_owner"}},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
			wantFields: []string{"app_owner"},
		},
		{
			name:       "нет черновика",
			err:        service.ErrNoPendingEdit,
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
		},
		{
			name:       "сбой Control Center",
			err:        errors.Join(errors.New("контекст"), upstreamErr),
			wantStatus: http.StatusBadGateway,
			wantCode:   "UPSTREAM_ERROR",
		},
		{
			name:       "прочая ошибка",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.writeServiceError(w, tt.err)

			if w.Code != tt.wantStatus {
				t.Errorf("статус = %d, ожидается %d", w.Code, tt.wantStatus)
			}
			resp := decodeError(t, w)
			if resp.Error.Code != tt.wantCode {
				t.Errorf("code = %q, ожидается %q", resp.Error.Code, tt.wantCode)
			}
			if !slices.Equal(resp.Error.Fields, tt.wantFields) {
				t.Errorf("fields = %v, ожидается %v", resp.Error.Fields, tt.wantFields)
			}
		})
	}
}

// TestDecodePayload проверяет разбор JSON и HTML-форм.
func TestDecodePayload(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		want        map[string]any
		wantErr     bool
	}{
		{"JSON", "application/json", `{"app_id":"1"}`, map[string]any{"app_id": "1"}, false},
		{"пустое тело", "application/json", ``, map[string]any{}, false},
		{"null", "application/json", `null`, map[string]any{}, false},
		{"форма", "application/x-www-form-urlencoded", `app_id=7&perm_view=on`, map[string]any{"app_id": "7", "perm_view": "on"}, false},
		{"некорректный JSON", "application/json", `{"app_id":`, nil, true},
		{"массив вместо объекта", "application/json", `[1,2]`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)

			got, err := decodePayload(req)
			if tt.wantErr {
				if err == nil {
					t.Fatal("ожидалась ошибка")
				}
				return
			}
			if err != nil {
				t.Fatalf("неожиданная ошибка: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("payload = %v, ожидается %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("payload[%s] = %v, ожидается %v", k, got[k], v)
				}
			}
		})
	}
}

// TestReadPayload_BadJSON проверяет ответ 400 на некорректное тело.
func TestReadPayload_BadJSON(t *testing.T) {
	h, _ := newTestHandler(&fakeDirectory{})
	w := call(h.DeleteApplication, http.MethodPost, `{broken`, &session.State{ID: "s-1"})

	if w.Code != http.StatusBadRequest {
		t.Errorf("статус = %d, ожидается 400", w.Code)
	}
}

// TestListApplications проверяет список и пустой результат.
func TestListApplications(t *testing.T) {
	t.Run("данные", func(t *testing.T) {
		h, _ := newTestHandler(&fakeDirectory{rows: []model.Record{{"app_id": "1"}}})
		w := call(h.ListApplications, http.MethodGet, "", nil)

		if w.Code != http.StatusOK {
			t.Fatalf("статус = %d, ожидается 200", w.Code)
		}
		var resp listResponse[model.Record]
		_ = json.NewDecoder(w.Body).Decode(&resp)
		if len(resp.Data) != 1 || resp.Data[0]["app_id"] != "1" {
			t.Errorf("data = %v", resp.Data)
		}
	})

	t.Run("пусто", func(t *testing.T) {
		h, _ := newTestHandler(&fakeDirectory{})
		w := call(h.ListApplications, http.MethodGet, "", nil)
		if body := strings.TrimSpace(w.Body.String()); body != `{"data":[]}` {
			t.Errorf("тело = %s, ожидается {\"data\":[]}", body)
		}
	})

	t.Run("сбой", func(t *testing.T) {
		h, _ := newTestHandler(&fakeDirectory{err: upstreamErr})
		w := call(h.ListApplications, http.MethodGet, "", nil)
		if w.Code != http.StatusBadGateway {
			t.Errorf("статус = %d, ожидается 502", w.Code)
		}
	})
}

// TestModifySubmitFlow проверяет выбор приложения и сохранение в режиме modify.
func TestModifySubmitFlow(t *testing.T) {
	dir := &fakeDirectory{}
	h, sessions := newTestHandler(dir)
	st := &session.State{ID: "s-1"}

	w := call(h.ModifyApplication, http.MethodPost, validApplication, st)
	if w.Code != http.StatusOK {
		t.Fatalf("modify: статус = %d, ожидается 200: %s", w.Code, w.Body.String())
	}
	if sessions.saved != 1 {
		t.Errorf("modify: сохранений сессии = %d, ожидается 1", sessions.saved)
	}

	w = call(h.GetPendingApplication, http.MethodGet, "", st)
	if w.Code != http.StatusOK {
		t.Fatalf("pending: статус = %d, ожидается 200", w.Code)
	}
	var edit model.PendingEdit
	_ = json.NewDecoder(w.Body).Decode(&edit)
	if edit.AppID != "42" {
		t.Errorf("pending app_id = %q, ожидается 42", edit.AppID)
	}

	// Клиент подменяет app_id: используется идентификатор из черновика.
	body := `{"mode":"modify","app_id":"999","app_name":"CRM","app_url":"https://crm","app_status":"active","app_owner":"ops"}`
	w = call(h.SubmitApplication, http.MethodPost, body, st)
	if w.Code != http.StatusOK {
		t.Fatalf("submit: статус = %d, ожидается 200: %s", w.Code, w.Body.String())
	}
	if len(dir.saveIDs) != 1 || dir.saveIDs[0] == nil || *dir.saveIDs[0] != "42" {
		t.Errorf("в Control Center отправлен app_id %v, ожидается 42", dir.saveIDs)
	}
	if sessions.saved != 2 {
		t.Errorf("submit: сохранений сессии = %d, ожидается 2", sessions.saved)
	}

	w = call(h.GetPendingApplication, http.MethodGet, "", st)
	if w.Code != http.StatusNotFound {
		t.Errorf("после submit pending: статус = %d, ожидается 404", w.Code)
	}
}

// TestSubmitApplication_MissingOwner проверяет отказ без app_owner.
func TestSubmitApplication_MissingOwner(t *testing.T) {
	dir := &fakeDirectory{}
	h, _ := newTestHandler(dir)

	body := `{"mode":"create","app_name":"CRM","app_url":"https://crm","app_status":"active"}`
	w := call(h.SubmitApplication, http.MethodPost, body, &session.State{ID: "s-1"})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("статус = %d, ожидается 400", w.Code)
	}
	resp := decodeError(t, w)
	if !slices.Contains(resp.Error.Fields, "app_owner") {
		t.Errorf("fields = %v, ожидается app_owner", resp.Error.Fields)
	}
	if len(dir.saveIDs) != 0 {
		t.Error("Control Center вызван при невалидной форме")
	}
}

// TestCatalog_FailureGivesEmptyList проверяет пустой список при сбое Control Center.
func TestCatalog_FailureGivesEmptyList(t *testing.T) {
	h, _ := newTestHandler(&fakeDirectory{err: upstreamErr})

	for name, fn := range map[string]http.HandlerFunc{"modules": h.ListModules, "dimensions": h.ListDimensions} {
		t.Run(name, func(t *testing.T) {
			w := call(fn, http.MethodPost, `{"app_id":"42"}`, nil)
			if w.Code != http.StatusOK {
				t.Fatalf("статус = %d, ожидается 200", w.Code)
			}
			if body := strings.TrimSpace(w.Body.String()); body != `{"data":[]}` {
				t.Errorf("тело = %s", body)
			}
		})
	}
}

// TestAdministrators проверяет endpoints справочника администраторов.
func TestAdministrators(t *testing.T) {
	t.Run("enroll", func(t *testing.T) {
		dir := &fakeDirectory{}
		h, _ := newTestHandler(dir)
		w := call(h.EnrollAdministrator, http.MethodPost,
			`{"hcm_id":"E1","full_name":"Ivan","email":"ivan@example.com","role_type":"admin"}`, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("статус = %d, ожидается 200: %s", w.Code, w.Body.String())
		}
		if len(dir.enrolled) != 1 || dir.enrolled[0].HCMID != "E1" {
			t.Errorf("enrolled = %+v", dir.enrolled)
		}
	})

	t.Run("enroll без email", func(t *testing.T) {
		h, _ := newTestHandler(&fakeDirectory{})
		w := call(h.EnrollAdministrator, http.MethodPost, `{"hcm_id":"E1","full_name":"Ivan","role_type":"admin"}`, nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("статус = %d, ожидается 400", w.Code)
		}
	})

	t.Run("search", func(t *testing.T) {
		h, _ := newTestHandler(&fakeDirectory{rows: []model.Record{{"hcm_id": "E1"}}})
		w := call(h.SearchAdministrator, http.MethodPost, `{"hcm_id":"E1"}`, nil)
		if w.Code != http.StatusOK {
			t.Errorf("статус = %d, ожидается 200", w.Code)
		}
	})

	t.Run("delete сбой", func(t *testing.T) {
		h, _ := newTestHandler(&fakeDirectory{err: upstreamErr})
		w := call(h.DeleteAdministrator, http.MethodPost, `{"user_id":"5","reason":"left"}`, nil)
		if w.Code != http.StatusBadGateway {
			t.Errorf("статус = %d, ожидается 502", w.Code)
		}
	})

	t.Run("list", func(t *testing.T) {
		h, _ := newTestHandler(&fakeDirectory{})
		w := call(h.ListAdministrators, http.MethodGet, "", nil)
		if w.Code != http.StatusOK {
			t.Errorf("статус = %d, ожидается 200", w.Code)
		}
	})
}

// fakeLookup — справочник администраторов для gate.
type fakeLookup struct {
	role *model.AdminRole
}

func (f *fakeLookup) LookupAdminRole(context.Context, string) (*model.AdminRole, error) {
	return f.role, nil
}

// TestGetCurrentUser проверяет /api/me за gate.Middleware.
func TestGetCurrentUser(t *testing.T) {
	tests := []struct {
		name          string
		role          string
		wantCanMutate bool
	}{
		{"admin", rbac.RoleAdmin, true},
		{"guest", rbac.RoleGuest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, sessions := newTestHandler(&fakeDirectory{})
			g := gate.New(&fakeLookup{role: &model.AdminRole{SubjectID: "E7", Role: tt.role}}, 0, testLogger())

			st := &session.State{ID: "s-1"}
			st.SetIdentity(model.Identity{Email: "ivan@example.com", Name: "Ivan"})

			w := call(g.Middleware(sessions)(http.HandlerFunc(h.GetCurrentUser)).ServeHTTP, http.MethodGet, "", st)
			if w.Code != http.StatusOK {
				t.Fatalf("статус = %d, ожидается 200: %s", w.Code, w.Body.String())
			}

			var resp currentUser
			_ = json.NewDecoder(w.Body).Decode(&resp)
			if resp.Email != "ivan@example.com" || resp.Role != tt.role || resp.HCMID != "E7" {
				t.Errorf("ответ = %+v", resp)
			}
			if resp.CanMutate != tt.wantCanMutate {
				t.Errorf("can_mutate = %v, ожидается %v", resp.CanMutate, tt.wantCanMutate)
			}
			if resp.RoleCheckedAt == nil {
				t.Error("role_checked_at не заполнен")
			}
		})
	}
}

// TestGetCurrentUser_NoDecision проверяет 401 без решения gate.
func TestGetCurrentUser_NoDecision(t *testing.T) {
	h, _ := newTestHandler(&fakeDirectory{})
	w := call(h.GetCurrentUser, http.MethodGet, "", &session.State{ID: "s-1"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("статус = %d, ожидается 401", w.Code)
	}
}
