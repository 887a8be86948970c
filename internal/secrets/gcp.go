package secrets

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	secretmanager "google.golang.org/api/secretmanager/v1"
)

// GCPOptions — параметры клиента Secret Manager.
type GCPOptions struct {
	// Endpoint — альтернативный endpoint API (эмулятор, тесты)
	Endpoint string
	// HTTPClient — клиент без аутентификации; используется вместе с Endpoint
	HTTPClient *http.Client
}

// GCPProvider читает последнюю версию секрета из Google Secret Manager.
type GCPProvider struct {
	project string
	svc     *secretmanager.Service
}

// NewGCPProvider создаёт провайдер. Без Endpoint используются
// Application Default Credentials.
func NewGCPProvider(ctx context.Context, project string, opts GCPOptions) (*GCPProvider, error) {
	var clientOpts []option.ClientOption
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.Endpoint), option.WithoutAuthentication())
		if opts.HTTPClient != nil {
			clientOpts = append(clientOpts, option.WithHTTPClient(opts.HTTPClient))
		}
	}

	svc, err := secretmanager.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("создание клиента Secret Manager: %w", err)
	}
	return &GCPProvider{project: project, svc: svc}, nil
}

// Name возвращает имя провайдера.
func (p *GCPProvider) Name() string { return "gcp" }

// Get возвращает значение последней версии секрета.
func (p *GCPProvider) Get(ctx context.Context, name string) (string, error) {
	resource := fmt.Sprintf("projects/%s/secrets/%s/versions/latest", p.project, name)

	resp, err := p.svc.Projects.Secrets.Versions.Access(resource).Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("чтение секрета из Secret Manager: %w", err)
	}
	if resp.Payload == nil || resp.Payload.Data == "" {
		return "", ErrNotFound
	}

	data, err := base64.StdEncoding.DecodeString(resp.Payload.Data)
	if err != nil {
		return "", fmt.Errorf("декодирование секрета: %w", err)
	}
	return string(data), nil
}
