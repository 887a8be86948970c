// me.go — GET /api/me: текущий пользователь и его роль.
package handlers

import (
	"net/http"
	"time"

	apierrors "github.com/bigkaa/control-center-gateway/internal/api/errors"
	"github.com/bigkaa/control-center-gateway/internal/gate"
	"github.com/bigkaa/control-center-gateway/internal/session"
)

// currentUser — ответ /api/me.
type currentUser struct {
	Email         string     `json:"email"`
	Name          string     `json:"name"`
	GivenName     string     `json:"given_name,omitempty"`
	FamilyName    string     `json:"family_name,omitempty"`
	Picture       string     `json:"picture,omitempty"`
	Role          string     `json:"role"`
	HCMID         string     `json:"hcm_id,omitempty"`
	RoleCheckedAt *time.Time `json:"role_checked_at,omitempty"`
	CanMutate     bool       `json:"can_mutate"`
}

// GetCurrentUser — GET /api/me.
func (h *APIHandler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())
	d, ok := gate.DecisionFromContext(r.Context())
	if !s.Authenticated() || !ok {
		apierrors.Unauthorized(w, "Требуется вход")
		return
	}

	resp := currentUser{
		Email:      s.Identity.Email,
		Name:       s.Identity.Name,
		GivenName:  s.Identity.GivenName,
		FamilyName: s.Identity.FamilyName,
		Picture:    s.Identity.Picture,
		Role:       d.Role,
		CanMutate:  gate.RequireMutation(d) == nil,
	}
	if s.AdminRole != nil {
		resp.HCMID = s.AdminRole.SubjectID
		checked := s.AdminRole.CheckedAt
		resp.RoleCheckedAt = &checked
	}

	writeJSON(w, http.StatusOK, resp)
}
