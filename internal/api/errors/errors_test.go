package errors

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

type decoded struct {
	Error struct {
		Code    string   `json:"code"`
		Message string   `json:"message"`
		Fields  []string `json:"fields"`
	} `json:"error"`
}

// TestWriteError проверяет формат тела и статусы конструкторов.
func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		write      func(w http.ResponseWriter)
		wantStatus int
		wantCode   string
		wantFields []string
	}{
		{"validation", func(w http.ResponseWriter) { ValidationError(w, "нет полей", "app_owner", "app_url") },
			http.StatusBadRequest, CodeValidationError, []string{"app_owner", "app_url"}},
		{"unauthorized", func(w http.ResponseWriter) { Unauthorized(w, "нет входа") },
			http.StatusUnauthorized, CodeUnauthorized, nil},
		{"forbidden", func(w http.ResponseWriter) { Forbidden(w, "нет прав") },
			http.StatusForbidden, CodeForbidden, nil},
		{"upstream", func(w http.ResponseWriter) { UpstreamError(w, "сбой") },
			http.StatusBadGateway, CodeUpstreamError, nil},
		{"not found", func(w http.ResponseWriter) { NotFound(w, "нет") },
			http.StatusNotFound, CodeNotFound, nil},
		{"internal", func(w http.ResponseWriter) { InternalError(w, "сбой") },
			http.StatusInternalServerError, CodeInternalError, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec)

			if rec.Code != tt.wantStatus {
				t.Errorf("статус = %d, ожидается %d", rec.Code, tt.wantStatus)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}
			var body decoded
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("невалидный JSON: %v", err)
			}
			if body.Error.Code != tt.wantCode {
				t.Errorf("code = %q, ожидается %q", body.Error.Code, tt.wantCode)
			}
			if len(body.Error.Fields) != len(tt.wantFields) {
				t.Fatalf("fields = %v, ожидается %v", body.Error.Fields, tt.wantFields)
			}
			for i := range tt.wantFields {
				if body.Error.Fields[i] != tt.wantFields[i] {
					t.Errorf("fields[%d] = %q, ожидается %q", i, body.Error.Fields[i], tt.wantFields[i])
				}
			}
		})
	}
}
