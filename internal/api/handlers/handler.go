// Пакет handlers — JSON API шлюза.
// handler.go — общий обработчик API и вспомогательные функции.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	apierrors "github.com/bigkaa/control-center-gateway/internal/api/errors"
	"github.com/bigkaa/control-center-gateway/internal/controlcenter"
	"github.com/bigkaa/control-center-gateway/internal/service"
	"github.com/bigkaa/control-center-gateway/internal/session"
)

// maxBodySize — максимальный размер тела запроса.
const maxBodySize = 1 << 20

// Sessions — сохранение изменённой сессии.
type Sessions interface {
	SaveIfDirty(ctx context.Context, w http.ResponseWriter, s *session.State) error
}

// APIHandler — обработчик JSON API.
// Доступ проверяется gate.Middleware до вызова обработчиков.
type APIHandler struct {
	apps     *service.ApplicationService
	catalog  *service.CatalogService
	admins   *service.AdministratorService
	sessions Sessions
	logger   *slog.Logger
}

// NewAPIHandler создаёт обработчик API.
func NewAPIHandler(
	apps *service.ApplicationService,
	catalog *service.CatalogService,
	admins *service.AdministratorService,
	sessions Sessions,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		apps:     apps,
		catalog:  catalog,
		admins:   admins,
		sessions: sessions,
		logger:   logger.With(slog.String("component", "api_handler")),
	}
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// listResponse — ответ табличных endpoints.
type listResponse[T any] struct {
	Data []T `json:"data"`
}

// statusResponse — ответ изменяющих endpoints.
type statusResponse struct {
	Status string `json:"status"`
}

var statusOK = statusResponse{Status: "success"}

// decodePayload читает тело запроса как JSON-объект или HTML-форму.
func decodePayload(r *http.Request) (map[string]any, error) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/x-www-form-urlencoded" {
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("некорректная форма: %w", err)
		}
		payload := make(map[string]any, len(r.PostForm))
		for k, v := range r.PostForm {
			if len(v) > 0 {
				payload[k] = v[0]
			}
		}
		return payload, nil
	}

	var payload map[string]any
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("некорректный JSON: %w", err)
	}
	if payload == nil {
		payload = map[string]any{}
	}
	return payload, nil
}

// readPayload ограничивает размер тела и декодирует его; при ошибке пишет 400.
func readPayload(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	payload, err := decodePayload(r)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return nil, false
	}
	return payload, true
}

// writeServiceError преобразует ошибку сервисного слоя в HTTP-ответ.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, err error) {
	var ve *service.ValidationError
	var ce *controlcenter.Error

	switch {
	case errors.As(err, &ve):
		apierrors.ValidationError(w, "Не заполнены или некорректны поля: "+strings.Join(ve.Fields, ", "), ve.Fields...)
	case errors.Is(err, service.ErrNoPendingEdit):
		apierrors.NotFound(w, err.Error())
	case errors.As(err, &ce):
		h.logger.Warn("Ошибка Control Center",
			slog.String("operation", ce.Op),
			slog.String("kind", string(ce.Kind)),
			slog.String("error", err.Error()),
		)
		apierrors.UpstreamError(w, "Control Center недоступен или вернул ошибку")
	default:
		h.logger.Error("Внутренняя ошибка", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
	}
}

// saveSession сохраняет изменённую сессию до записи тела ответа.
func (h *APIHandler) saveSession(w http.ResponseWriter, r *http.Request, s *session.State) {
	if err := h.sessions.SaveIfDirty(r.Context(), w, s); err != nil {
		h.logger.Error("Ошибка сохранения сессии", slog.String("error", err.Error()))
	}
}
