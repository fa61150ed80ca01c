package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
	"github.com/ignatzorin/escrow-backend/internal/domain/repository"
	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
)

type disputeRepo struct{ v *view }

func (r *disputeRepo) Create(_ context.Context, d *entity.Dispute) error {
	return r.v.run(func(st *state) error {
		for _, existing := range st.disputes {
			if existing.OrderID == d.OrderID && existing.Status.IsActive() {
				return apperror.Conflict("по заказу уже открыт спор")
			}
		}
		st.disputes[d.ID] = *d
		return nil
	})
}

func (r *disputeRepo) Update(_ context.Context, d *entity.Dispute, expected valueobject.DisputeStatus) error {
	return r.v.run(func(st *state) error {
		current, ok := st.disputes[d.ID]
		if !ok {
			return apperror.ErrDisputeNotFound
		}
		if current.Status != expected {
			return apperror.ErrConcurrentUpdate
		}
		st.disputes[d.ID] = *d
		return nil
	})
}

func (r *disputeRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Dispute, error) {
	var out *entity.Dispute
	err := r.v.run(func(st *state) error {
		d, ok := st.disputes[id]
		if !ok {
			return apperror.ErrDisputeNotFound
		}
		out = &d
		return nil
	})
	return out, err
}

func (r *disputeRepo) FindActiveByOrderID(_ context.Context, orderID uuid.UUID) (*entity.Dispute, error) {
	var out *entity.Dispute
	err := r.v.run(func(st *state) error {
		for _, d := range st.disputes {
			if d.OrderID == orderID && d.Status.IsActive() {
				d := d
				out = &d
				return nil
			}
		}
		return apperror.ErrDisputeNotFound
	})
	return out, err
}

func (r *disputeRepo) List(_ context.Context, f repository.DisputeFilter) ([]*entity.Dispute, int, error) {
	var out []*entity.Dispute
	err := r.v.run(func(st *state) error {
		for _, d := range st.disputes {
			if f.Status != nil && d.Status != *f.Status {
				continue
			}
			if f.OrderID != nil && d.OrderID != *f.OrderID {
				continue
			}
			d := d
			out = append(out, &d)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, f.Limit, f.Offset), len(out), nil
}

func (r *disputeRepo) AddEvidence(_ context.Context, e *entity.DisputeEvidence) error {
	return r.v.run(func(st *state) error {
		d, ok := st.disputes[e.DisputeID]
		if !ok {
			return apperror.ErrDisputeNotFound
		}
		if !d.Status.IsActive() {
			return apperror.Conflict("спор уже разрешен, доказательства не принимаются")
		}
		st.evidence = append(st.evidence, *e)
		return nil
	})
}

func (r *disputeRepo) ListEvidence(_ context.Context, disputeID uuid.UUID) ([]*entity.DisputeEvidence, error) {
	var out []*entity.DisputeEvidence
	err := r.v.run(func(st *state) error {
		for _, e := range st.evidence {
			if e.DisputeID == disputeID {
				e := e
				out = append(out, &e)
			}
		}
		return nil
	})
	return out, err
}
