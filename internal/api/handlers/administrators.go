// administrators.go — обработчики /api/administrators.
package handlers

import (
	"net/http"

	"github.com/bigkaa/control-center-gateway/internal/domain/model"
)

// ListAdministrators — GET /api/administrators.
func (h *APIHandler) ListAdministrators(w http.ResponseWriter, r *http.Request) {
	rows, err := h.admins.List(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[model.Record]{Data: nonNil(rows)})
}

// SearchAdministrator — POST /api/administrators/search.
func (h *APIHandler) SearchAdministrator(w http.ResponseWriter, r *http.Request) {
	payload, ok := readPayload(w, r)
	if !ok {
		return
	}
	rows, err := h.admins.Search(r.Context(), payload)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[model.Record]{Data: nonNil(rows)})
}

// EnrollAdministrator — POST /api/administrators/enroll.
func (h *APIHandler) EnrollAdministrator(w http.ResponseWriter, r *http.Request) {
	payload, ok := readPayload(w, r)
	if !ok {
		return
	}
	if err := h.admins.Enroll(r.Context(), payload); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusOK)
}

// DeleteAdministrator — POST /api/administrators/delete.
func (h *APIHandler) DeleteAdministrator(w http.ResponseWriter, r *http.Request) {
	payload, ok := readPayload(w, r)
	if !ok {
		return
	}
	if err := h.admins.Delete(r.Context(), payload); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusOK)
}
