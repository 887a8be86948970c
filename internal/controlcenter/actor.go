package controlcenter

import "context"

type actorKey struct{}

// WithActor сохраняет в контексте email пользователя, от имени которого
// выполняются вызовы. Значение попадает в remarks журнала активности.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext возвращает email пользователя из контекста.
func ActorFromContext(ctx context.Context) string {
	actor, _ := ctx.Value(actorKey{}).(string)
	return actor
}
