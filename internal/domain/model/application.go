package model

import (
	"strconv"
	"strings"
	"time"
)

// Режимы сохранения приложения.
const (
	ModeCreate = "create"
	ModeModify = "modify"
)

// Permissions — четыре флага прав на приложение.
type Permissions struct {
	View   bool `json:"perm_view"`
	Add    bool `json:"perm_add"`
	Edit   bool `json:"perm_edit"`
	Delete bool `json:"perm_delete"`
}

// ApplicationDraft — данные приложения, отправляемые в Control Center.
type ApplicationDraft struct {
	Name   string `json:"app_name"`
	URL    string `json:"app_url"`
	Status string `json:"app_status"`
	Owner  string `json:"app_owner"`
	Permissions
}

// PendingEdit — черновик редактирования приложения, сохранённый в сессии.
// Создаётся при принятии запроса на изменение, его идентификатор
// используется при сохранении в режиме modify.
type PendingEdit struct {
	AppID string `json:"app_id"`
	ApplicationDraft
	CreatedAt time.Time `json:"created_at"`
}

// Record — строка табличных данных Control Center в исходном виде.
type Record = map[string]any

// AdministratorEnrollment — данные для регистрации администратора.
type AdministratorEnrollment struct {
	HCMID    string `json:"hcm_id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	RoleType string `json:"role_type"`
}

// DraftFromPayload собирает ApplicationDraft из полей JSON-запроса.
func DraftFromPayload(p map[string]any) ApplicationDraft {
	return ApplicationDraft{
		Name:   StringField(p, "app_name"),
		URL:    StringField(p, "app_url"),
		Status: StringField(p, "app_status"),
		Owner:  StringField(p, "app_owner"),
		Permissions: Permissions{
			View:   FlagField(p, "perm_view"),
			Add:    FlagField(p, "perm_add"),
			Edit:   FlagField(p, "perm_edit"),
			Delete: FlagField(p, "perm_delete"),
		},
	}
}

// StringField возвращает строковое значение поля без окружающих пробелов.
// Числа приводятся к строке, остальные типы дают пустую строку.
func StringField(p map[string]any, key string) string {
	switch v := p[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// FlagField интерпретирует поле как флаг: true, "true", "on", "1", 1.
// Отсутствующее поле — false.
func FlagField(p map[string]any, key string) bool {
	switch v := p[key].(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "on", "1", "yes":
			return true
		}
	}
	return false
}
