package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryStore — хранилище сессий в памяти процесса на базе LRU с TTL.
// Состояние хранится сериализованным: Get всегда отдаёт независимую копию.
// TTL общий для всех записей и задаётся при создании; ttl в Put игнорируется.
type MemoryStore struct {
	lru *expirable.LRU[string, []byte]
}

// NewMemoryStore создаёт хранилище на maxEntries сессий с временем жизни ttl.
func NewMemoryStore(maxEntries int, ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		lru: expirable.NewLRU[string, []byte](maxEntries, nil, ttl),
	}
}

// Get возвращает копию состояния.
func (m *MemoryStore) Get(_ context.Context, id string) (*State, error) {
	data, ok := m.lru.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("десериализация сессии: %w", err)
	}
	return &s, nil
}

// Put сохраняет состояние.
func (m *MemoryStore) Put(_ context.Context, s *State, _ time.Duration) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("сериализация сессии: %w", err)
	}
	m.lru.Add(s.ID, data)
	return nil
}

// Delete удаляет состояние.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.lru.Remove(id)
	return nil
}

// Ping всегда успешен.
func (m *MemoryStore) Ping(context.Context) error {
	return nil
}

// Len возвращает число сессий в хранилище.
func (m *MemoryStore) Len() int {
	return m.lru.Len()
}
