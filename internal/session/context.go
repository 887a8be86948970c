package session

import "context"

type contextKey struct{}

// NewContext помещает состояние сессии в контекст запроса.
func NewContext(ctx context.Context, s *State) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext извлекает состояние сессии из контекста.
// Возвращает nil, если запрос не прошёл через загрузку сессии.
func FromContext(ctx context.Context) *State {
	s, _ := ctx.Value(contextKey{}).(*State)
	return s
}
