package secrets

import (
	"context"
	"os"
)

// EnvProvider читает секреты из переменных окружения процесса
// (включая загруженные из .env).
type EnvProvider struct {
	lookup func(string) (string, bool)
}

// NewEnvProvider создаёт провайдер переменных окружения.
func NewEnvProvider() *EnvProvider {
	return &EnvProvider{lookup: os.LookupEnv}
}

// Name возвращает имя провайдера.
func (p *EnvProvider) Name() string { return "env" }

// Get возвращает значение переменной; пустая переменная считается отсутствующей.
func (p *EnvProvider) Get(_ context.Context, name string) (string, error) {
	v, ok := p.lookup(name)
	if !ok || v == "" {
		return "", ErrNotFound
	}
	return v, nil
}
