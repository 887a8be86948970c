package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// Допустимые значения iss в ID token Google.
var googleIssuers = []string{"https://accounts.google.com", "accounts.google.com"}

// Интервал фонового обновления JWKS.
const jwksRefreshInterval = time.Hour

// IDTokenClaims — claims ID token, используемые шлюзом.
type IDTokenClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	jwt.RegisteredClaims
}

// IDTokenVerifier проверяет подпись и claims ID token по JWKS провайдера.
type IDTokenVerifier struct {
	jwks     keyfunc.Keyfunc
	audience string
	issuers  []string
}

// NewIDTokenVerifier создаёт верификатор с JWKS, загружаемым по HTTP
// и обновляемым в фоне. Старт не блокируется недоступностью JWKS.
func NewIDTokenVerifier(jwksURL, clientID string, httpClient *http.Client, logger *slog.Logger) (*IDTokenVerifier, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	storage, err := jwkset.NewStorageFromHTTP(jwksURL, jwkset.HTTPClientStorageOptions{
		Client:                    httpClient,
		NoErrorReturnFirstHTTPReq: true,
		RefreshInterval:           jwksRefreshInterval,
		RefreshErrorHandler: func(_ context.Context, err error) {
			logger.Error("Ошибка обновления JWKS",
				slog.String("error", err.Error()),
				slog.String("url", jwksURL),
			)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("создание JWKS storage: %w", err)
	}

	k, err := keyfunc.New(keyfunc.Options{Storage: storage})
	if err != nil {
		return nil, fmt.Errorf("создание keyfunc: %w", err)
	}

	return NewIDTokenVerifierWithKeyfunc(k, clientID), nil
}

// NewIDTokenVerifierWithKeyfunc создаёт верификатор с готовой keyfunc.
func NewIDTokenVerifierWithKeyfunc(kf keyfunc.Keyfunc, clientID string) *IDTokenVerifier {
	return &IDTokenVerifier{
		jwks:     kf,
		audience: clientID,
		issuers:  googleIssuers,
	}
}

// Verify проверяет подпись (RS256), срок действия, audience и issuer.
func (v *IDTokenVerifier) Verify(ctx context.Context, raw string) (*IDTokenClaims, error) {
	if raw == "" {
		return nil, errors.New("ID token отсутствует в ответе token endpoint")
	}

	claims := &IDTokenClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, v.jwks.KeyfuncCtx(ctx),
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithExpirationRequired(),
		jwt.WithAudience(v.audience),
	)
	if err != nil {
		return nil, fmt.Errorf("проверка ID token: %w", err)
	}

	if !slices.Contains(v.issuers, claims.Issuer) {
		return nil, fmt.Errorf("проверка ID token: недопустимый issuer %q", claims.Issuer)
	}
	return claims, nil
}
