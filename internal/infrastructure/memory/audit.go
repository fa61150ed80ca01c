package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
	"github.com/ignatzorin/escrow-backend/internal/domain/repository"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-backend/internal/pkg/auditchain"
)

type auditRepo struct{ v *view }

func (r *auditRepo) Append(_ context.Context, entry *entity.AuditEntry) error {
	return r.v.run(func(st *state) error {
		prev := ""
		if n := len(st.audit); n > 0 {
			prev = st.audit[n-1].EntryHash
		}
		entry.Seq = int64(len(st.audit) + 1)
		auditchain.Seal(entry, prev)
		st.audit = append(st.audit, *entry)
		return nil
	})
}

func (r *auditRepo) List(_ context.Context, f repository.AuditFilter) ([]*entity.AuditEntry, int, error) {
	var out []*entity.AuditEntry
	err := r.v.run(func(st *state) error {
		for _, e := range st.audit {
			if f.EntityType != "" && e.EntityType != f.EntityType {
				continue
			}
			if f.EntityID != nil && e.EntityID != *f.EntityID {
				continue
			}
			if f.ActorID != nil && (e.ActorID == nil || *e.ActorID != *f.ActorID) {
				continue
			}
			if f.Action != "" && e.Action != f.Action {
				continue
			}
			if f.Since != nil && e.CreatedAt.Before(*f.Since) {
				continue
			}
			e := e
			out = append(out, &e)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	if !f.Ascending {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return page(out, f.Limit, f.Offset), len(out), nil
}

type eventRepo struct{ v *view }

func (r *eventRepo) Enqueue(_ context.Context, e *entity.OrderEvent) error {
	return r.v.run(func(st *state) error {
		st.events = append(st.events, *e)
		return nil
	})
}

func (r *eventRepo) ClaimPending(_ context.Context, limit int) ([]*entity.OrderEvent, error) {
	var out []*entity.OrderEvent
	err := r.v.run(func(st *state) error {
		for _, e := range st.events {
			if e.Status != entity.OrderEventPending {
				continue
			}
			e := e
			out = append(out, &e)
			if limit > 0 && len(out) == limit {
				break
			}
		}
		return nil
	})
	return out, err
}

func (r *eventRepo) MarkDispatched(_ context.Context, id uuid.UUID, at time.Time) error {
	return r.v.run(func(st *state) error {
		for i := range st.events {
			if st.events[i].ID == id {
				st.events[i].Status = entity.OrderEventDispatched
				st.events[i].DispatchedAt = &at
				return nil
			}
		}
		return apperror.New(apperror.ErrCodeNotFound, "событие не найдено")
	})
}

func (r *eventRepo) MarkFailed(_ context.Context, id uuid.UUID, reason string) error {
	return r.v.run(func(st *state) error {
		for i := range st.events {
			if st.events[i].ID == id {
				st.events[i].Attempts++
				st.events[i].LastError = &reason
				return nil
			}
		}
		return apperror.New(apperror.ErrCodeNotFound, "событие не найдено")
	})
}
