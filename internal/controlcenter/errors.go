package controlcenter

import (
	"errors"
	"fmt"
)

// Kind — категория ошибки вызова Control Center.
type Kind string

const (
	// KindTransport — запрос не дошёл или ответ не получен (сеть, таймаут)
	KindTransport Kind = "transport"
	// KindStatus — ответ с HTTP-статусом вне 2xx
	KindStatus Kind = "status"
	// KindDecode — тело ответа не является корректным JSON
	KindDecode Kind = "decode"
	// KindRemote — Control Center ответил {"status":"error"}
	KindRemote Kind = "remote"
	// KindMalformed — JSON корректен, но не содержит ожидаемых полей
	KindMalformed Kind = "malformed"
	// KindNotFound — запись не найдена (пустой список там, где нужна одна запись)
	KindNotFound Kind = "not_found"
)

// Error — ошибка вызова Control Center с категорией.
// Позволяет вызывающему отличить «пусто» от «сбой».
type Error struct {
	// Op — имя операции (lookup_admin_role, save_application, ...)
	Op string
	// Kind — категория ошибки
	Kind Kind
	// StatusCode — HTTP-статус ответа (0, если ответа не было)
	StatusCode int
	// Message — сообщение Control Center (для KindRemote)
	Message string
	// Err — исходная ошибка
	Err error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("control center %s: %s: %s", e.Op, e.Kind, e.Message)
	case e.StatusCode != 0 && e.Err == nil:
		return fmt.Sprintf("control center %s: %s: HTTP %d", e.Op, e.Kind, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("control center %s: %s: %v", e.Op, e.Kind, e.Err)
	default:
		return fmt.Sprintf("control center %s: %s", e.Op, e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf возвращает категорию ошибки или пустую строку, если это не *Error.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

// IsNotFound сообщает, что Control Center не нашёл запрошенную запись.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}
