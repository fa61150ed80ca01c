package memory

import (
	"context"

	"github.com/google/uuid"
	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
	"github.com/ignatzorin/escrow-backend/internal/domain/repository"
	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
)

type orderRepo struct{ v *view }

func (r *orderRepo) Create(_ context.Context, order *entity.Order) error {
	return r.v.run(func(st *state) error {
		if _, ok := st.orders[order.ID]; ok {
			return apperror.Conflict("заказ уже существует")
		}
		st.orders[order.ID] = *order
		return nil
	})
}

func (r *orderRepo) Update(_ context.Context, order *entity.Order, expected valueobject.OrderStatus) error {
	return r.v.run(func(st *state) error {
		current, ok := st.orders[order.ID]
		if !ok {
			return apperror.ErrOrderNotFound
		}
		if current.Status != expected {
			return apperror.ErrConcurrentUpdate
		}
		st.orders[order.ID] = *order
		return nil
	})
}

func (r *orderRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Order, error) {
	var out *entity.Order
	err := r.v.run(func(st *state) error {
		o, ok := st.orders[id]
		if !ok {
			return apperror.ErrOrderNotFound
		}
		out = &o
		return nil
	})
	return out, err
}

func (r *orderRepo) List(_ context.Context, f repository.OrderFilter) ([]*entity.Order, int, error) {
	var out []*entity.Order
	err := r.v.run(func(st *state) error {
		for _, o := range st.orders {
			if f.RequesterID != nil && o.RequesterID != *f.RequesterID {
				continue
			}
			if f.FulfillerID != nil && o.FulfillerID != *f.FulfillerID {
				continue
			}
			if f.Status != nil && o.Status != *f.Status {
				continue
			}
			if f.ParticipantID != nil && !o.IsParticipant(*f.ParticipantID) {
				continue
			}
			o := o
			out = append(out, &o)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	sortOrders(out)
	return page(out, f.Limit, f.Offset), len(out), nil
}

type serviceRepo struct{ v *view }

func (r *serviceRepo) Create(_ context.Context, svc *entity.CatalogService) error {
	return r.v.run(func(st *state) error {
		st.services[svc.ID] = *svc
		return nil
	})
}

func (r *serviceRepo) Update(_ context.Context, svc *entity.CatalogService) error {
	return r.v.run(func(st *state) error {
		if _, ok := st.services[svc.ID]; !ok {
			return apperror.ErrServiceNotFound
		}
		st.services[svc.ID] = *svc
		return nil
	})
}

func (r *serviceRepo) Delete(_ context.Context, id uuid.UUID) error {
	return r.v.run(func(st *state) error {
		if _, ok := st.services[id]; !ok {
			return apperror.ErrServiceNotFound
		}
		delete(st.services, id)
		return nil
	})
}

func (r *serviceRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.CatalogService, error) {
	var out *entity.CatalogService
	err := r.v.run(func(st *state) error {
		s, ok := st.services[id]
		if !ok {
			return apperror.ErrServiceNotFound
		}
		out = &s
		return nil
	})
	return out, err
}
