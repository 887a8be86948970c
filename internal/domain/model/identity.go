// Пакет model — доменные модели шлюза Control Center.
package model

import (
	"strings"
	"time"
)

// Identity — профиль пользователя, полученный от провайдера идентификации
// на шаге callback. Живёт в сессии до logout или истечения сессии.
type Identity struct {
	// Email — адрес электронной почты (основной идентификатор)
	Email string `json:"email"`
	// Name — отображаемое имя
	Name string `json:"name"`
	// GivenName — имя
	GivenName string `json:"given_name,omitempty"`
	// FamilyName — фамилия
	FamilyName string `json:"family_name,omitempty"`
	// Picture — URL аватара
	Picture string `json:"picture,omitempty"`
}

// Username возвращает имя пользователя для справочника администраторов:
// локальная часть email в нижнем регистре.
func (i Identity) Username() string {
	email := strings.TrimSpace(i.Email)
	if at := strings.IndexByte(email, '@'); at >= 0 {
		email = email[:at]
	}
	return strings.ToLower(email)
}

// AdminRole — результат проверки пользователя в справочнике администраторов.
// Кэшируется в сессии после первой успешной проверки.
type AdminRole struct {
	// SubjectID — идентификатор сотрудника (hcm_id)
	SubjectID string `json:"hcm_id"`
	// Role — классификация: guest, admin, superadmin
	Role string `json:"role_type"`
	// CheckedAt — время удалённой проверки
	CheckedAt time.Time `json:"checked_at"`
}
