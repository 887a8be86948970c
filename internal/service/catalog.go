// catalog.go — модули и измерения приложения.
package service

import (
	"context"
	"log/slog"

	"github.com/bigkaa/control-center-gateway/internal/controlcenter"
	"github.com/bigkaa/control-center-gateway/internal/domain/model"
	"github.com/bigkaa/control-center-gateway/internal/validator"
)

// CatalogDirectory — операции Control Center с модулями и измерениями.
type CatalogDirectory interface {
	FetchModules(ctx context.Context, appID string) ([]model.Record, error)
	FetchDimensions(ctx context.Context, appID string) ([]model.Record, error)
}

// CatalogService — модули и измерения приложения.
// Сбой Control Center здесь не ошибка: вызывающий получает пустой список.
type CatalogService struct {
	cc      CatalogDirectory
	schemas SchemaChecker
	logger  *slog.Logger
}

// NewCatalogService создаёт сервис модулей и измерений.
func NewCatalogService(cc CatalogDirectory, schemas SchemaChecker, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		cc:      cc,
		schemas: schemas,
		logger:  logger.With(slog.String("component", "catalog_service")),
	}
}

// Modules возвращает модули приложения. Ошибка — только при невалидном запросе.
func (s *CatalogService) Modules(ctx context.Context, payload map[string]any) ([]model.Record, error) {
	return s.fetch(ctx, payload, controlcenter.OpFetchModules, s.cc.FetchModules)
}

// Dimensions возвращает измерения приложения. Ошибка — только при невалидном запросе.
func (s *CatalogService) Dimensions(ctx context.Context, payload map[string]any) ([]model.Record, error) {
	return s.fetch(ctx, payload, controlcenter.OpFetchDimensions, s.cc.FetchDimensions)
}

func (s *CatalogService) fetch(
	ctx context.Context,
	payload map[string]any,
	op string,
	call func(context.Context, string) ([]model.Record, error),
) ([]model.Record, error) {
	if err := checkPayload(s.schemas, validator.SchemaApplicationRef, payload); err != nil {
		return nil, err
	}

	appID := model.StringField(payload, "app_id")
	rows, err := call(ctx, appID)
	if err != nil {
		s.logger.Warn("Control Center недоступен, возвращается пустой список",
			slog.String("operation", op),
			slog.String("app_id", appID),
			slog.String("kind", string(controlcenter.KindOf(err))),
			slog.String("error", err.Error()),
		)
		return []model.Record{}, nil
	}
	if rows == nil {
		rows = []model.Record{}
	}
	return rows, nil
}
