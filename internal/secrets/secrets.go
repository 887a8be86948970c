// Пакет secrets — загрузка секретов шлюза при старте процесса из
// выбранного провайдера: переменные окружения, HashiCorp Vault (KV v2)
// или Google Secret Manager.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/bigkaa/control-center-gateway/internal/config"
)

// Имена секретов.
const (
	NameControlCenterAPIKey = "CONTROL_CENTER_API_KEY"
	NameGoogleClientID      = "GOOGLE_CLIENT_ID"
	NameGoogleClientSecret  = "GOOGLE_CLIENT_SECRET"
	NameSessionSecret       = "SESSION_SECRET"
	NameGoogleRedirectURI   = "GOOGLE_REDIRECT_URI"
)

// ErrNotFound — секрет отсутствует в провайдере.
var ErrNotFound = errors.New("секрет не найден")

// Provider — источник секретов.
type Provider interface {
	// Name возвращает имя провайдера для логов.
	Name() string
	// Get возвращает значение секрета или ErrNotFound.
	Get(ctx context.Context, name string) (string, error)
}

// Secrets — набор секретов шлюза.
type Secrets struct {
	ControlCenterAPIKey string
	GoogleClientID      string
	GoogleClientSecret  string
	// SessionSecret — ключ шифрования cookie; пусто — случайный ключ
	SessionSecret string
	// GoogleRedirectURI — явный redirect URI; пусто — вычисляется из запроса
	GoogleRedirectURI string
}

type secretSpec struct {
	name     string
	required bool
	dst      func(*Secrets) *string
}

var specs = []secretSpec{
	{NameControlCenterAPIKey, true, func(s *Secrets) *string { return &s.ControlCenterAPIKey }},
	{NameGoogleClientID, true, func(s *Secrets) *string { return &s.GoogleClientID }},
	{NameGoogleClientSecret, true, func(s *Secrets) *string { return &s.GoogleClientSecret }},
	{NameSessionSecret, false, func(s *Secrets) *string { return &s.SessionSecret }},
	{NameGoogleRedirectURI, false, func(s *Secrets) *string { return &s.GoogleRedirectURI }},
}

// Load параллельно запрашивает все секреты у провайдера.
// Отсутствие обязательного секрета — ошибка; необязательные остаются пустыми.
func Load(ctx context.Context, p Provider, logger *slog.Logger) (*Secrets, error) {
	var s Secrets
	values := make([]string, len(specs))

	g, gctx := errgroup.WithContext(ctx)
	for i, spec := range specs {
		g.Go(func() error {
			v, err := p.Get(gctx, spec.name)
			if errors.Is(err, ErrNotFound) && !spec.required {
				return nil
			}
			if err != nil {
				return fmt.Errorf("секрет %s (%s): %w", spec.name, p.Name(), err)
			}
			values[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, spec := range specs {
		*spec.dst(&s) = values[i]
	}

	logger.Info("Секреты загружены", slog.String("provider", p.Name()))
	return &s, nil
}

// NewProvider создаёт провайдер секретов по конфигурации.
func NewProvider(ctx context.Context, cfg *config.Config, httpClient *http.Client) (Provider, error) {
	switch cfg.SecretsProvider {
	case config.SecretsProviderVault:
		return NewVaultProvider(VaultConfig{
			Addr:       cfg.VaultAddr,
			Token:      cfg.VaultToken,
			Namespace:  cfg.VaultNamespace,
			Mount:      cfg.VaultMount,
			Path:       cfg.VaultPath,
			HTTPClient: httpClient,
		}), nil
	case config.SecretsProviderGCP:
		return NewGCPProvider(ctx, cfg.GCPProject, GCPOptions{
			Endpoint:   cfg.GCPSecretManagerEndpoint,
			HTTPClient: httpClient,
		})
	default:
		return NewEnvProvider(), nil
	}
}
