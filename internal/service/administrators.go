// administrators.go — справочник администраторов Control Center.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bigkaa/control-center-gateway/internal/controlcenter"
	"github.com/bigkaa/control-center-gateway/internal/domain/model"
	"github.com/bigkaa/control-center-gateway/internal/domain/rbac"
	"github.com/bigkaa/control-center-gateway/internal/validator"
)

// AdministratorDirectory — операции Control Center с администраторами.
type AdministratorDirectory interface {
	ListAdministrators(ctx context.Context) ([]model.Record, error)
	SearchAdministrator(ctx context.Context, hcmID string) ([]model.Record, error)
	EnrollAdministrator(ctx context.Context, e model.AdministratorEnrollment, actor string) error
	DeleteAdministrator(ctx context.Context, userID, reason, actor string) error
}

// AdministratorService — сервис справочника администраторов.
type AdministratorService struct {
	cc      AdministratorDirectory
	schemas SchemaChecker
	logger  *slog.Logger
}

// NewAdministratorService создаёт сервис администраторов.
func NewAdministratorService(cc AdministratorDirectory, schemas SchemaChecker, logger *slog.Logger) *AdministratorService {
	return &AdministratorService{
		cc:      cc,
		schemas: schemas,
		logger:  logger.With(slog.String("component", "administrator_service")),
	}
}

// List возвращает всех администраторов.
func (s *AdministratorService) List(ctx context.Context) ([]model.Record, error) {
	rows, err := s.cc.ListAdministrators(ctx)
	if err != nil {
		return nil, fmt.Errorf("получение списка администраторов: %w", err)
	}
	return rows, nil
}

// Search ищет сотрудника по hcm_id.
func (s *AdministratorService) Search(ctx context.Context, payload map[string]any) ([]model.Record, error) {
	if err := checkPayload(s.schemas, validator.SchemaAdministratorSearch, payload); err != nil {
		return nil, err
	}
	hcmID := model.StringField(payload, "hcm_id")
	rows, err := s.cc.SearchAdministrator(ctx, hcmID)
	if err != nil {
		return nil, fmt.Errorf("поиск администратора %s: %w", hcmID, err)
	}
	return rows, nil
}

// Enroll регистрирует администратора.
func (s *AdministratorService) Enroll(ctx context.Context, payload map[string]any) error {
	if err := checkPayload(s.schemas, validator.SchemaAdministratorEnroll, payload); err != nil {
		return err
	}

	e := model.AdministratorEnrollment{
		HCMID:    model.StringField(payload, "hcm_id"),
		FullName: model.StringField(payload, "full_name"),
		Email:    model.StringField(payload, "email"),
		RoleType: rbac.Normalize(model.StringField(payload, "role_type")),
	}
	if err := s.cc.EnrollAdministrator(ctx, e, controlcenter.ActorFromContext(ctx)); err != nil {
		return fmt.Errorf("регистрация администратора %s: %w", e.HCMID, err)
	}

	s.logger.Info("Администратор зарегистрирован",
		slog.String("hcm_id", e.HCMID),
		slog.String("role", e.RoleType),
	)
	return nil
}

// Delete удаляет администратора с указанием причины.
func (s *AdministratorService) Delete(ctx context.Context, payload map[string]any) error {
	if err := checkPayload(s.schemas, validator.SchemaAdministratorDelete, payload); err != nil {
		return err
	}

	userID := model.StringField(payload, "user_id")
	reason := model.StringField(payload, "reason")
	if err := s.cc.DeleteAdministrator(ctx, userID, reason, controlcenter.ActorFromContext(ctx)); err != nil {
		return fmt.Errorf("удаление администратора %s: %w", userID, err)
	}

	s.logger.Info("Администратор удалён", slog.String("user_id", userID))
	return nil
}
