package controlcenter

import "github.com/bigkaa/control-center-gateway/internal/domain/model"

// Статусы ответа на изменяющие операции.
const (
	statusSuccess = "success"
	statusError   = "error"
)

// listResponse — ответ табличных операций: {"data": [...]}.
type listResponse struct {
	Data *[]model.Record `json:"data"`
}

// actionResponse — ответ изменяющих операций: {"status": "success"|"error"}.
type actionResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// saveApplicationRequest — тело сохранения приложения.
// AppID == nil сериализуется как null.
type saveApplicationRequest struct {
	Mode  string  `json:"mode"`
	AppID *string `json:"app_id"`
	model.ApplicationDraft
	Actor string `json:"actor"`
}

type deleteApplicationRequest struct {
	AppID string `json:"app_id"`
	Actor string `json:"actor"`
}

type enrollAdministratorRequest struct {
	model.AdministratorEnrollment
	EnrolledBy string `json:"enrolled_by"`
}

type deleteAdministratorRequest struct {
	UserID    string `json:"user_id"`
	Reason    string `json:"reason"`
	DeletedBy string `json:"deleted_by"`
}
