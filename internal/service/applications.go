// Пакет service — операции шлюза поверх клиента Control Center.
// applications.go — справочник приложений: выбор для редактирования,
// сохранение (create/modify) и удаление.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/control-center-gateway/internal/controlcenter"
	"github.com/bigkaa/control-center-gateway/internal/domain/model"
	"github.com/bigkaa/control-center-gateway/internal/session"
	"github.com/bigkaa/control-center-gateway/internal/validator"
)

// ApplicationDirectory — операции Control Center с приложениями.
type ApplicationDirectory interface {
	FetchMasterData(ctx context.Context) ([]model.Record, error)
	SaveApplication(ctx context.Context, mode string, id *string, draft model.ApplicationDraft, actor string) error
	DeleteApplication(ctx context.Context, appID, actor string) error
}

// SubmitResult — итог сохранения приложения.
type SubmitResult struct {
	Mode string `json:"mode"`
	// AppID — идентификатор, отправленный в Control Center (nil — null)
	AppID *string `json:"app_id"`
}

// ApplicationService — сервис справочника приложений.
type ApplicationService struct {
	cc      ApplicationDirectory
	schemas SchemaChecker
	logger  *slog.Logger
	newID   func() string
	now     func() time.Time
}

// NewApplicationService создаёт сервис приложений.
func NewApplicationService(cc ApplicationDirectory, schemas SchemaChecker, logger *slog.Logger) *ApplicationService {
	return &ApplicationService{
		cc:      cc,
		schemas: schemas,
		logger:  logger.With(slog.String("component", "application_service")),
		newID:   uuid.NewString,
		now:     time.Now,
	}
}

// List возвращает справочник приложений.
func (s *ApplicationService) List(ctx context.Context) ([]model.Record, error) {
	rows, err := s.cc.FetchMasterData(ctx)
	if err != nil {
		return nil, fmt.Errorf("получение справочника приложений: %w", err)
	}
	return rows, nil
}

// BeginModify сохраняет выбранное приложение в сессии как черновик.
// Удалённых вызовов нет: идентификатор будет взят из черновика при сохранении.
func (s *ApplicationService) BeginModify(st *session.State, payload map[string]any) (*model.PendingEdit, error) {
	if err := checkPayload(s.schemas, validator.SchemaModifyIntent, payload); err != nil {
		return nil, err
	}

	edit := model.PendingEdit{
		AppID:            model.StringField(payload, "app_id"),
		ApplicationDraft: model.DraftFromPayload(payload),
		CreatedAt:        s.now(),
	}
	st.SetPendingEdit(edit)

	s.logger.Debug("Приложение выбрано для редактирования", slog.String("app_id", edit.AppID))
	return &edit, nil
}

// Pending возвращает черновик редактирования без его удаления.
func (s *ApplicationService) Pending(st *session.State) (*model.PendingEdit, error) {
	if st == nil || st.PendingEdit == nil {
		return nil, ErrNoPendingEdit
	}
	edit := *st.PendingEdit
	return &edit, nil
}

// Submit проверяет форму и сохраняет приложение.
// create — новый UUID; modify — идентификатор из черновика сессии, а не из
// данных клиента. Без черновика в режиме modify уходит app_id: null.
func (s *ApplicationService) Submit(ctx context.Context, st *session.State, payload map[string]any) (*SubmitResult, error) {
	if err := checkPayload(s.schemas, validator.SchemaSubmitApplication, payload); err != nil {
		return nil, err
	}

	mode := model.StringField(payload, "mode")
	draft := model.DraftFromPayload(payload)

	var id *string
	switch mode {
	case model.ModeCreate:
		newID := s.newID()
		id = &newID
	case model.ModeModify:
		if st != nil && st.PendingEdit != nil {
			pendingID := st.PendingEdit.AppID
			id = &pendingID
		} else {
			s.logger.Warn("Сохранение в режиме modify без черновика: app_id будет null")
		}
	}

	if err := s.cc.SaveApplication(ctx, mode, id, draft, controlcenter.ActorFromContext(ctx)); err != nil {
		return nil, fmt.Errorf("сохранение приложения: %w", err)
	}

	if mode == model.ModeModify && st != nil {
		st.ClearPendingEdit()
	}

	s.logger.Info("Приложение сохранено",
		slog.String("mode", mode),
		slog.String("app_id", derefOrEmpty(id)),
	)
	return &SubmitResult{Mode: mode, AppID: id}, nil
}

// Delete удаляет приложение.
func (s *ApplicationService) Delete(ctx context.Context, payload map[string]any) error {
	if err := checkPayload(s.schemas, validator.SchemaApplicationRef, payload); err != nil {
		return err
	}

	appID := model.StringField(payload, "app_id")
	if err := s.cc.DeleteApplication(ctx, appID, controlcenter.ActorFromContext(ctx)); err != nil {
		return fmt.Errorf("удаление приложения %s: %w", appID, err)
	}

	s.logger.Info("Приложение удалено", slog.String("app_id", appID))
	return nil
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
