// Пакет auth — вход через Google OAuth 2.0 (Authorization Code + PKCE)
// и получение профиля пользователя из userinfo endpoint.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/bigkaa/control-center-gateway/internal/domain/model"
)

// DefaultUserInfoURL — userinfo endpoint Google.
const DefaultUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// DefaultScopes — запрашиваемые scopes.
var DefaultScopes = []string{"openid", "email", "profile"}

// Config — параметры OAuth-клиента.
type Config struct {
	// ClientID и ClientSecret — учётные данные OAuth-клиента Google
	ClientID     string
	ClientSecret string
	// Endpoint — authorize/token endpoints (по умолчанию google.Endpoint)
	Endpoint oauth2.Endpoint
	// UserInfoURL — userinfo endpoint (по умолчанию DefaultUserInfoURL)
	UserInfoURL string
	// Scopes (по умолчанию DefaultScopes)
	Scopes []string
	// HTTPClient — клиент для token и userinfo запросов
	HTTPClient *http.Client
	// Verifier — проверка ID token; nil — проверка отключена
	Verifier *IDTokenVerifier
}

// Client — OAuth-клиент провайдера идентификации.
type Client struct {
	clientID     string
	clientSecret string
	endpoint     oauth2.Endpoint
	userInfoURL  string
	scopes       []string
	httpClient   *http.Client
	verifier     *IDTokenVerifier
	logger       *slog.Logger
}

// New создаёт OAuth-клиент.
func New(cfg Config, logger *slog.Logger) *Client {
	endpoint := cfg.Endpoint
	if endpoint.AuthURL == "" || endpoint.TokenURL == "" {
		endpoint = google.Endpoint
	}
	userInfoURL := cfg.UserInfoURL
	if userInfoURL == "" {
		userInfoURL = DefaultUserInfoURL
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		endpoint:     endpoint,
		userInfoURL:  userInfoURL,
		scopes:       scopes,
		httpClient:   httpClient,
		verifier:     cfg.Verifier,
		logger:       logger.With(slog.String("component", "oauth_client")),
	}
}

// config возвращает oauth2.Config для конкретного redirect URI.
// redirect URI вычисляется из запроса, поэтому Config не кэшируется.
func (c *Client) config(redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.clientID,
		ClientSecret: c.clientSecret,
		Endpoint:     c.endpoint,
		RedirectURL:  redirectURL,
		Scopes:       c.scopes,
	}
}

// GenerateState генерирует случайный state parameter (CSRF-защита).
func GenerateState() (string, error) {
	b := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", fmt.Errorf("ошибка генерации state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GenerateVerifier генерирует PKCE code_verifier.
func GenerateVerifier() string {
	return oauth2.GenerateVerifier()
}

// AuthCodeURL формирует URL redirect на страницу входа провайдера (S256 challenge).
func (c *Client) AuthCodeURL(redirectURL, state, verifier string) string {
	return c.config(redirectURL).AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
}

// userInfo — ответ userinfo endpoint.
type userInfo struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Picture    string `json:"picture"`
}

// Exchange обменивает authorization code на токены и возвращает профиль
// пользователя из userinfo endpoint. При включённой проверке ID token
// его подпись и audience проверяются, а email должен совпадать с userinfo.
func (c *Client) Exchange(ctx context.Context, redirectURL, code, verifier string) (*model.Identity, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	conf := c.config(redirectURL)

	token, err := conf.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("обмен code на токены: %w", err)
	}

	var claims *IDTokenClaims
	if c.verifier != nil {
		rawID, _ := token.Extra("id_token").(string)
		claims, err = c.verifier.Verify(ctx, rawID)
		if err != nil {
			return nil, err
		}
	}

	info, err := c.fetchUserInfo(ctx, conf, token)
	if err != nil {
		return nil, err
	}
	if info.Email == "" {
		return nil, errors.New("userinfo не содержит email")
	}
	if claims != nil && !strings.EqualFold(claims.Email, info.Email) {
		return nil, fmt.Errorf("email ID token (%s) не совпадает с userinfo (%s)", claims.Email, info.Email)
	}

	c.logger.Debug("Профиль пользователя получен", slog.String("email", info.Email))

	return &model.Identity{
		Email:      info.Email,
		Name:       info.Name,
		GivenName:  info.GivenName,
		FamilyName: info.FamilyName,
		Picture:    info.Picture,
	}, nil
}

func (c *Client) fetchUserInfo(ctx context.Context, conf *oauth2.Config, token *oauth2.Token) (*userInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("создание запроса userinfo: %w", err)
	}

	resp, err := conf.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("запрос userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("userinfo вернул статус %d: %s", resp.StatusCode, string(body))
	}

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("декодирование userinfo: %w", err)
	}
	return &info, nil
}
