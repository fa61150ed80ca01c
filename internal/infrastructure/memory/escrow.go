package memory

import (
	"context"

	"github.com/google/uuid"
	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
)

type paymentRepo struct{ v *view }

func (r *paymentRepo) Create(_ context.Context, p *entity.Payment) error {
	return r.v.run(func(st *state) error {
		for _, existing := range st.payments {
			if existing.OrderID == p.OrderID {
				return apperror.Conflict("по заказу уже есть платеж")
			}
		}
		st.payments[p.ID] = *p
		return nil
	})
}

func (r *paymentRepo) Update(_ context.Context, p *entity.Payment, expected valueobject.EscrowStatus) error {
	return r.v.run(func(st *state) error {
		current, ok := st.payments[p.ID]
		if !ok {
			return apperror.ErrPaymentNotFound
		}
		if current.Status != expected {
			return apperror.ErrConcurrentUpdate
		}
		st.payments[p.ID] = *p
		return nil
	})
}

func (r *paymentRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Payment, error) {
	var out *entity.Payment
	err := r.v.run(func(st *state) error {
		p, ok := st.payments[id]
		if !ok {
			return apperror.ErrPaymentNotFound
		}
		out = &p
		return nil
	})
	return out, err
}

func (r *paymentRepo) FindByOrderID(_ context.Context, orderID uuid.UUID) (*entity.Payment, error) {
	var out *entity.Payment
	err := r.v.run(func(st *state) error {
		for _, p := range st.payments {
			if p.OrderID == orderID {
				p := p
				out = &p
				return nil
			}
		}
		return apperror.ErrPaymentNotFound
	})
	return out, err
}

type executionRepo struct{ v *view }

func (r *executionRepo) Create(_ context.Context, e *entity.Execution) error {
	return r.v.run(func(st *state) error {
		if _, ok := st.executions[e.OrderID]; ok {
			return apperror.Conflict("запись исполнения уже существует")
		}
		st.executions[e.OrderID] = *e
		return nil
	})
}

func (r *executionRepo) Update(_ context.Context, e *entity.Execution) error {
	return r.v.run(func(st *state) error {
		if _, ok := st.executions[e.OrderID]; !ok {
			return apperror.New(apperror.ErrCodeNotFound, "запись исполнения не найдена")
		}
		st.executions[e.OrderID] = *e
		return nil
	})
}

func (r *executionRepo) FindByOrderID(_ context.Context, orderID uuid.UUID) (*entity.Execution, error) {
	var out *entity.Execution
	err := r.v.run(func(st *state) error {
		e, ok := st.executions[orderID]
		if !ok {
			return apperror.New(apperror.ErrCodeNotFound, "запись исполнения не найдена")
		}
		out = &e
		return nil
	})
	return out, err
}
