// Пакет rbac — классификация ролей администраторов Control Center.
// Роль приходит из удалённого справочника (поле role_type) и относится
// к замкнутому набору: guest, admin, superadmin.
// Изменяющие операции разрешены только ролям выше guest.
package rbac

import "strings"

// Роли в порядке возрастания привилегий.
const (
	RoleGuest      = "guest"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superadmin"
)

// roleWeight — вес роли для сравнения.
// Чем выше вес, тем больше привилегий.
var roleWeight = map[string]int{
	RoleGuest:      1,
	RoleAdmin:      2,
	RoleSuperAdmin: 3,
}

// Normalize приводит значение role_type из удалённого ответа к
// каноническому виду: нижний регистр, без пробелов и разделителей.
// "Super Admin", "super_admin" и "SuperAdmin" дают "superadmin".
func Normalize(role string) string {
	r := strings.ToLower(strings.TrimSpace(role))
	r = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(r)
	return r
}

// IsValidRole проверяет, является ли строка допустимой ролью.
func IsValidRole(role string) bool {
	_, ok := roleWeight[role]
	return ok
}

// CanMutate сообщает, разрешены ли роли изменяющие операции.
// Неизвестная или пустая роль приравнивается к отказу.
func CanMutate(role string) bool {
	return roleWeight[role] > roleWeight[RoleGuest]
}
