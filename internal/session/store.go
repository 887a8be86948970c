package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound — сессия отсутствует в хранилище или истекла.
var ErrNotFound = errors.New("сессия не найдена")

// Store — хранилище состояний сессий.
type Store interface {
	// Get возвращает копию состояния или ErrNotFound.
	Get(ctx context.Context, id string) (*State, error)
	// Put сохраняет состояние на время ttl.
	Put(ctx context.Context, s *State, ttl time.Duration) error
	// Delete удаляет состояние. Отсутствие записи ошибкой не считается.
	Delete(ctx context.Context, id string) error
	// Ping проверяет доступность хранилища (readiness).
	Ping(ctx context.Context) error
}
