package service

import (
	"fmt"

	"github.com/bigkaa/control-center-gateway/internal/validator"
)

// SchemaChecker — проверка запроса по именованной схеме.
type SchemaChecker interface {
	Check(name string, payload map[string]any) (validator.Result, error)
}

// checkPayload возвращает *ValidationError, если payload не соответствует схеме.
func checkPayload(schemas SchemaChecker, name string, payload map[string]any) error {
	res, err := schemas.Check(name, payload)
	if err != nil {
		return fmt.Errorf("проверка схемы %s: %w", name, err)
	}
	if !res.OK {
		return &ValidationError{Schema: name, Fields: res.Fields()}
	}
	return nil
}
