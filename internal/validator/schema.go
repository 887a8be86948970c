package validator

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// Имена схем запросов.
const (
	SchemaSubmitApplication   = "SubmitApplication"
	SchemaModifyIntent        = "ModifyIntent"
	SchemaApplicationRef      = "ApplicationRef"
	SchemaAdministratorSearch = "AdministratorSearch"
	SchemaAdministratorEnroll = "AdministratorEnroll"
	SchemaAdministratorDelete = "AdministratorDelete"
)

//go:embed schemas.yaml
var schemasYAML []byte

// Schemas — набор схем запросов из встроенного OpenAPI-документа.
type Schemas struct {
	doc *openapi3.T
}

// LoadSchemas разбирает и валидирует встроенный OpenAPI-документ.
func LoadSchemas() (*Schemas, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(schemasYAML)
	if err != nil {
		return nil, fmt.Errorf("загрузка схем запросов: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("валидация схем запросов: %w", err)
	}
	return &Schemas{doc: doc}, nil
}

// MustLoadSchemas — как LoadSchemas, но паникует при ошибке.
// Встроенный документ проверяется тестами, ошибка здесь — дефект сборки.
func MustLoadSchemas() *Schemas {
	s, err := LoadSchemas()
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schemas) schema(name string) (*openapi3.Schema, error) {
	ref, ok := s.doc.Components.Schemas[name]
	if !ok || ref.Value == nil {
		return nil, fmt.Errorf("схема %q не найдена", name)
	}
	return ref.Value, nil
}

// Required возвращает список обязательных полей схемы.
func (s *Schemas) Required(name string) ([]string, error) {
	sc, err := s.schema(name)
	if err != nil {
		return nil, err
	}
	return slices.Clone(sc.Required), nil
}

// Check проверяет payload по схеме name.
// Сначала проверяется наличие обязательных полей (Validate); если чего-то
// не хватает, проверка типов не выполняется. Обязательная строка с minLength,
// состоящая из одних пробелов, тоже считается отсутствующей. Затем payload проверяется
// по схеме целиком, все нарушения собираются в Result.Invalid.
func (s *Schemas) Check(name string, payload map[string]any) (Result, error) {
	sc, err := s.schema(name)
	if err != nil {
		return Result{}, err
	}

	res := Validate(payload, sc.Required)
	if !res.OK {
		return res, nil
	}
	if blank := blankRequired(sc, payload); len(blank) > 0 {
		return Result{OK: false, Missing: blank}, nil
	}

	if payload == nil {
		payload = map[string]any{}
	}
	verr := sc.VisitJSON(payload, openapi3.MultiErrors())
	if verr == nil {
		return res, nil
	}

	invalid := collectFields(verr, nil)
	if len(invalid) == 0 {
		invalid = []string{"payload"}
	}
	return Result{OK: false, Invalid: invalid}, nil
}

// blankRequired возвращает обязательные строковые поля с minLength > 0,
// пустые после обрезки пробелов, в порядке required.
func blankRequired(sc *openapi3.Schema, payload map[string]any) []string {
	var blank []string
	for _, field := range sc.Required {
		prop, ok := sc.Properties[field]
		if !ok || prop.Value == nil || prop.Value.MinLength == 0 {
			continue
		}
		if v, ok := payload[field].(string); ok && strings.TrimSpace(v) == "" {
			blank = append(blank, field)
		}
	}
	return blank
}

// collectFields извлекает имена полей из ошибок валидации схемы.
func collectFields(err error, acc []string) []string {
	var multi openapi3.MultiError
	if errors.As(err, &multi) {
		for _, e := range multi {
			acc = collectFields(e, acc)
		}
		return acc
	}

	var se *openapi3.SchemaError
	if errors.As(err, &se) {
		field := strings.Join(se.JSONPointer(), ".")
		if field == "" {
			field = "payload"
		}
		if !slices.Contains(acc, field) {
			acc = append(acc, field)
		}
	}
	return acc
}
