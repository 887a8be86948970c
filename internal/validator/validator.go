// Пакет validator — проверка JSON-запросов перед отправкой в Control Center.
//
// Validate проверяет наличие обязательных полей и сообщает обо всех
// отсутствующих за один проход. Поля-идентификаторы (имя оканчивается
// на "_id") дополнительно должны быть непустой строкой после обрезки пробелов.
// Функция чистая: payload не изменяется.
package validator

import (
	"strings"
)

// Result — итог проверки запроса.
type Result struct {
	// OK — все проверки пройдены
	OK bool `json:"ok"`
	// Missing — отсутствующие или пустые обязательные поля, в порядке required
	Missing []string `json:"missing,omitempty"`
	// Invalid — поля, не прошедшие проверку типа или формата
	Invalid []string `json:"invalid,omitempty"`
}

// Fields возвращает все проблемные поля: сначала отсутствующие, затем некорректные.
func (r Result) Fields() []string {
	out := make([]string, 0, len(r.Missing)+len(r.Invalid))
	out = append(out, r.Missing...)
	out = append(out, r.Invalid...)
	return out
}

// Validate проверяет присутствие полей required в payload.
// nil payload эквивалентен пустому объекту.
func Validate(payload map[string]any, required []string) Result {
	var missing []string
	for _, field := range required {
		v, ok := payload[field]
		if !ok {
			missing = append(missing, field)
			continue
		}
		if IsIdentifier(field) && !nonEmptyString(v) {
			missing = append(missing, field)
		}
	}
	return Result{OK: len(missing) == 0, Missing: missing}
}

// IsIdentifier сообщает, является ли поле идентификатором.
func IsIdentifier(field string) bool {
	return strings.HasSuffix(field, "_id")
}

func nonEmptyString(v any) bool {
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) != ""
}
