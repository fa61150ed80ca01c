package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
	"github.com/ignatzorin/escrow-backend/internal/domain/repository"
	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-backend/internal/usecase/lifecycle"
)

type ServiceInput struct {
	Title       string
	Description string
	Category    string
	BasePrice   valueobject.Money
}

// ServiceUseCases управляет услугами исполнителя в каталоге.
// Изменения каталога не затрагивают уже размещенные заказы.
type ServiceUseCases struct {
	store    repository.Store
	recorder *lifecycle.Recorder
}

func NewServiceUseCases(store repository.Store, recorder *lifecycle.Recorder) *ServiceUseCases {
	return &ServiceUseCases{store: store, recorder: recorder}
}

func (uc *ServiceUseCases) Create(ctx context.Context, actor lifecycle.Actor, input ServiceInput) (*entity.CatalogService, error) {
	if actor.Role != valueobject.RoleFulfiller {
		return nil, apperror.New(apperror.ErrCodeForbidden, "услуги публикуют только исполнители")
	}
	svc, err := entity.NewCatalogService(actor.ID, input.Title, input.Description, input.Category, input.BasePrice)
	if err != nil {
		return nil, err
	}
	err = uc.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := repos.Services.Create(ctx, svc); err != nil {
			return err
		}
		uc.recorder.Audit(ctx, repos, actor.Ref(), entity.AuditEntityService, svc.ID, "service.create", entity.AuditPayload{After: svc.Snapshot()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}

func (uc *ServiceUseCases) Update(ctx context.Context, actor lifecycle.Actor, id uuid.UUID, input ServiceInput) (*entity.CatalogService, error) {
	svc, err := uc.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	before := svc.Snapshot()
	if err := svc.Update(input.Title, input.Description, input.Category, input.BasePrice); err != nil {
		return nil, err
	}
	err = uc.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := repos.Services.Update(ctx, svc); err != nil {
			return err
		}
		uc.recorder.Audit(ctx, repos, actor.Ref(), entity.AuditEntityService, svc.ID, "service.update", entity.AuditPayload{Before: before, After: svc.Snapshot()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}

func (uc *ServiceUseCases) Delete(ctx context.Context, actor lifecycle.Actor, id uuid.UUID) error {
	svc, err := uc.owned(ctx, actor, id)
	if err != nil {
		return err
	}
	return uc.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := repos.Services.Delete(ctx, id); err != nil {
			return err
		}
		uc.recorder.Audit(ctx, repos, actor.Ref(), entity.AuditEntityService, id, "service.delete", entity.AuditPayload{Before: svc.Snapshot()})
		return nil
	})
}

func (uc *ServiceUseCases) Get(ctx context.Context, id uuid.UUID) (*entity.CatalogService, error) {
	return uc.store.Repositories().Services.FindByID(ctx, id)
}

func (uc *ServiceUseCases) owned(ctx context.Context, actor lifecycle.Actor, id uuid.UUID) (*entity.CatalogService, error) {
	svc, err := uc.store.Repositories().Services.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if svc.ProviderID != actor.ID {
		return nil, apperror.ErrForbidden
	}
	return svc, nil
}
