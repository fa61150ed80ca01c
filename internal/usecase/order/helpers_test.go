package order_test

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
	"github.com/ignatzorin/escrow-backend/internal/domain/repository"
	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-backend/internal/usecase/lifecycle"
)

func lifecycleOutsider() lifecycle.Actor {
	return lifecycle.Actor{ID: uuid.New(), Role: valueobject.RoleRequester}
}

var errExecutionsDown = errors.New("executions table unavailable")

// flakyExecutions роняет первую вставку записи исполнения.
type flakyExecutions struct {
	repository.ExecutionRepository
	failed *atomic.Bool
}

func (r flakyExecutions) Create(ctx context.Context, exec *entity.Execution) error {
	if r.failed.CompareAndSwap(false, true) {
		return errExecutionsDown
	}
	return r.ExecutionRepository.Create(ctx, exec)
}

type flakyStore struct {
	repository.Store
	failed *atomic.Bool
}

func (s flakyStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	return s.Store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		repos.Executions = flakyExecutions{ExecutionRepository: repos.Executions, failed: s.failed}
		return fn(ctx, repos)
	})
}
