// errors.go — ошибки сервисного слоя.
package service

import (
	"errors"
	"strings"
)

var (
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
	// ErrNoPendingEdit — нет черновика редактирования в сессии.
	ErrNoPendingEdit = errors.New("нет приложения, выбранного для редактирования")
)

// ValidationError — запрос не прошёл проверку схемы.
// Fields перечисляет все отсутствующие и некорректные поля.
type ValidationError struct {
	Schema string
	Fields []string
}

func (e *ValidationError) Error() string {
	return "ошибка валидации " + e.Schema + ": " + strings.Join(e.Fields, ", ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
