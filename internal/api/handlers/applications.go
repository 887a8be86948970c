// applications.go — обработчики /api/applications.
package handlers

import (
	"net/http"

	"github.com/bigkaa/control-center-gateway/internal/domain/model"
	"github.com/bigkaa/control-center-gateway/internal/session"
)

// ListApplications — GET /api/applications.
func (h *APIHandler) ListApplications(w http.ResponseWriter, r *http.Request) {
	rows, err := h.apps.List(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[model.Record]{Data: nonNil(rows)})
}

// ModifyApplication — POST /api/applications/modify.
// Сохраняет выбранное приложение в сессии для последующего сохранения.
func (h *APIHandler) ModifyApplication(w http.ResponseWriter, r *http.Request) {
	payload, ok := readPayload(w, r)
	if !ok {
		return
	}
	s := session.FromContext(r.Context())

	edit, err := h.apps.BeginModify(s, payload)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.saveSession(w, r, s)
	writeJSON(w, http.StatusOK, edit)
}

// GetPendingApplication — GET /api/applications/pending.
func (h *APIHandler) GetPendingApplication(w http.ResponseWriter, r *http.Request) {
	edit, err := h.apps.Pending(session.FromContext(r.Context()))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, edit)
}

// SubmitApplication — POST /api/applications/submit.
func (h *APIHandler) SubmitApplication(w http.ResponseWriter, r *http.Request) {
	payload, ok := readPayload(w, r)
	if !ok {
		return
	}
	s := session.FromContext(r.Context())

	res, err := h.apps.Submit(r.Context(), s, payload)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.saveSession(w, r, s)
	writeJSON(w, http.StatusOK, res)
}

// DeleteApplication — POST /api/applications/delete.
func (h *APIHandler) DeleteApplication(w http.ResponseWriter, r *http.Request) {
	payload, ok := readPayload(w, r)
	if !ok {
		return
	}
	if err := h.apps.Delete(r.Context(), payload); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusOK)
}

// ListModules — POST /api/applications/modules.
// Сбой Control Center даёт пустой список.
func (h *APIHandler) ListModules(w http.ResponseWriter, r *http.Request) {
	payload, ok := readPayload(w, r)
	if !ok {
		return
	}
	rows, err := h.catalog.Modules(r.Context(), payload)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[model.Record]{Data: nonNil(rows)})
}

// ListDimensions — POST /api/applications/dimensions.
// Сбой Control Center даёт пустой список.
func (h *APIHandler) ListDimensions(w http.ResponseWriter, r *http.Request) {
	payload, ok := readPayload(w, r)
	if !ok {
		return
	}
	rows, err := h.catalog.Dimensions(r.Context(), payload)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[model.Record]{Data: nonNil(rows)})
}

func nonNil(rows []model.Record) []model.Record {
	if rows == nil {
		return []model.Record{}
	}
	return rows
}
