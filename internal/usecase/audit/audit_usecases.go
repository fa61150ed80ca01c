package audit

import (
	"context"

	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
	"github.com/ignatzorin/escrow-backend/internal/domain/repository"
	"github.com/ignatzorin/escrow-backend/internal/pkg/auditchain"
	"github.com/ignatzorin/escrow-backend/internal/usecase/lifecycle"
)

type ListAuditUseCase struct {
	audit repository.AuditRepository
}

func NewListAuditUseCase(store repository.Store) *ListAuditUseCase {
	return &ListAuditUseCase{audit: store.Repositories().Audit}
}

func (uc *ListAuditUseCase) Execute(ctx context.Context, actor lifecycle.Actor, filter repository.AuditFilter) ([]*entity.AuditEntry, int, error) {
	if err := actor.RequireMediator(); err != nil {
		return nil, 0, err
	}
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	return uc.audit.List(ctx, filter)
}

type VerifyResult struct {
	Checked int
	Valid   bool
	Broken  *auditchain.BrokenLink
}

// VerifyChainUseCase пересчитывает цепочку хэшей журнала от первой записи.
type VerifyChainUseCase struct {
	audit repository.AuditRepository
}

func NewVerifyChainUseCase(store repository.Store) *VerifyChainUseCase {
	return &VerifyChainUseCase{audit: store.Repositories().Audit}
}

const verifyPageSize = 500

func (uc *VerifyChainUseCase) Execute(ctx context.Context, actor lifecycle.Actor) (*VerifyResult, error) {
	if err := actor.RequireMediator(); err != nil {
		return nil, err
	}

	result := &VerifyResult{Valid: true}
	prev := ""
	for offset := 0; ; offset += verifyPageSize {
		entries, _, err := uc.audit.List(ctx, repository.AuditFilter{Ascending: true, Limit: verifyPageSize, Offset: offset})
		if err != nil {
			return nil, err
		}
		if err := auditchain.Verify(entries, prev); err != nil {
			result.Valid = false
			result.Broken, _ = err.(*auditchain.BrokenLink)
			return result, nil
		}
		result.Checked += len(entries)
		if len(entries) < verifyPageSize {
			return result, nil
		}
		prev = entries[len(entries)-1].EntryHash
	}
}
