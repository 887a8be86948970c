package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// VaultConfig — параметры доступа к Vault KV v2.
type VaultConfig struct {
	Addr       string
	Token      string
	Namespace  string
	Mount      string
	Path       string
	HTTPClient *http.Client
}

// VaultProvider читает секреты из одного документа Vault KV v2.
// Документ запрашивается один раз, все секреты берутся из него по ключу.
type VaultProvider struct {
	cfg        VaultConfig
	httpClient *http.Client

	mu   sync.Mutex
	data map[string]any
}

// NewVaultProvider создаёт провайдер Vault.
func NewVaultProvider(cfg VaultConfig) *VaultProvider {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &VaultProvider{cfg: cfg, httpClient: httpClient}
}

// Name возвращает имя провайдера.
func (p *VaultProvider) Name() string { return "vault" }

// kvResponse — ответ GET /v1/{mount}/data/{path}.
type kvResponse struct {
	Data struct {
		Data map[string]any `json:"data"`
	} `json:"data"`
}

// Get возвращает значение ключа name из документа.
func (p *VaultProvider) Get(ctx context.Context, name string) (string, error) {
	data, err := p.document(ctx)
	if err != nil {
		return "", err
	}
	raw, ok := data[name]
	if !ok || raw == nil {
		return "", ErrNotFound
	}
	v, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("значение %s в Vault не строка", name)
	}
	if v == "" {
		return "", ErrNotFound
	}
	return v, nil
}

func (p *VaultProvider) document(ctx context.Context) (map[string]any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.data != nil {
		return p.data, nil
	}

	u := strings.TrimRight(p.cfg.Addr, "/") + "/v1/" +
		url.PathEscape(strings.Trim(p.cfg.Mount, "/")) + "/data/" + strings.Trim(p.cfg.Path, "/")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("создание запроса к Vault: %w", err)
	}
	req.Header.Set("X-Vault-Token", p.cfg.Token)
	if p.cfg.Namespace != "" {
		req.Header.Set("X-Vault-Namespace", p.cfg.Namespace)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("запрос к Vault: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("Vault вернул статус %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var kv kvResponse
	if err := json.NewDecoder(resp.Body).Decode(&kv); err != nil {
		return nil, fmt.Errorf("декодирование ответа Vault: %w", err)
	}
	if kv.Data.Data == nil {
		kv.Data.Data = map[string]any{}
	}
	p.data = kv.Data.Data
	return p.data, nil
}
