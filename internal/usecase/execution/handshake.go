package execution

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
	"github.com/ignatzorin/escrow-backend/internal/domain/repository"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-backend/internal/usecase/escrow"
	"github.com/ignatzorin/escrow-backend/internal/usecase/lifecycle"
)

// Result - заказ и запись исполнения после шага подтверждения.
type Result struct {
	Order     *entity.Order
	Execution *entity.Execution
	Payment   *entity.Payment
}

// step применяет изменение к записи исполнения внутри транзакции перехода.
func step(ctx context.Context, repos repository.Repositories, orderID uuid.UUID, apply func(e *entity.Execution, now time.Time) error) (*entity.Execution, error) {
	exec, err := repos.Executions.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := apply(exec, time.Now().UTC()); err != nil {
		return nil, err
	}
	if err := repos.Executions.Update(ctx, exec); err != nil {
		return nil, err
	}
	return exec, nil
}

func executionAudit(exec **entity.Execution) func(o *entity.Order, p *entity.AuditPayload) (string, uuid.UUID) {
	return func(o *entity.Order, p *entity.AuditPayload) (string, uuid.UUID) {
		e := *exec
		p.Metadata = map[string]string{"execution_id": e.ID.String()}
		if e.StartedAt != nil {
			p.Metadata["started_at"] = e.StartedAt.Format(time.RFC3339Nano)
		}
		if e.EndedAt != nil {
			p.Metadata["ended_at"] = e.EndedAt.Format(time.RFC3339Nano)
		}
		return entity.AuditEntityOrder, o.ID
	}
}

// MarkStartUseCase - исполнитель отмечает начало работы, время старта ставится по его отметке.
type MarkStartUseCase struct {
	runner *lifecycle.Runner
}

func NewMarkStartUseCase(runner *lifecycle.Runner) *MarkStartUseCase {
	return &MarkStartUseCase{runner: runner}
}

func (uc *MarkStartUseCase) Execute(ctx context.Context, orderID uuid.UUID, actor lifecycle.Actor) (*Result, error) {
	var exec *entity.Execution
	order, err := uc.runner.Run(ctx, lifecycle.Transition{
		Action:  "execution.mark_start",
		OrderID: orderID,
		Actor:   actor,
		Apply: func(_ context.Context, o *entity.Order) error {
			return o.MarkStart(actor.ID)
		},
		InTx: func(ctx context.Context, repos repository.Repositories, o *entity.Order) (err error) {
			exec, err = step(ctx, repos, o.ID, (*entity.Execution).MarkStart)
			return err
		},
		Audit: executionAudit(&exec),
	})
	if err != nil {
		return nil, err
	}
	return &Result{Order: order, Execution: exec}, nil
}

type ConfirmStartUseCase struct {
	runner *lifecycle.Runner
}

func NewConfirmStartUseCase(runner *lifecycle.Runner) *ConfirmStartUseCase {
	return &ConfirmStartUseCase{runner: runner}
}

func (uc *ConfirmStartUseCase) Execute(ctx context.Context, orderID uuid.UUID, actor lifecycle.Actor) (*Result, error) {
	var exec *entity.Execution
	order, err := uc.runner.Run(ctx, lifecycle.Transition{
		Action:  "execution.confirm_start",
		OrderID: orderID,
		Actor:   actor,
		Apply: func(ctx context.Context, o *entity.Order) error {
			if err := o.RequireRequester(actor.ID); err != nil {
				return err
			}
			// подтвердить можно только то, что исполнитель уже отметил
			current, err := uc.runner.Store().Repositories().Executions.FindByOrderID(ctx, o.ID)
			if err != nil && !apperror.IsNotFound(err) {
				return err
			}
			if current == nil || !current.FulfillerMarkedStart {
				return apperror.Conflict("исполнитель еще не отметил начало работы")
			}
			return o.ConfirmStart(actor.ID)
		},
		InTx: func(ctx context.Context, repos repository.Repositories, o *entity.Order) (err error) {
			exec, err = step(ctx, repos, o.ID, (*entity.Execution).ConfirmStart)
			return err
		},
		Audit: executionAudit(&exec),
	})
	if err != nil {
		return nil, err
	}
	return &Result{Order: order, Execution: exec}, nil
}

type MarkFinishUseCase struct {
	runner *lifecycle.Runner
}

func NewMarkFinishUseCase(runner *lifecycle.Runner) *MarkFinishUseCase {
	return &MarkFinishUseCase{runner: runner}
}

func (uc *MarkFinishUseCase) Execute(ctx context.Context, orderID uuid.UUID, actor lifecycle.Actor) (*Result, error) {
	var exec *entity.Execution
	order, err := uc.runner.Run(ctx, lifecycle.Transition{
		Action:  "execution.mark_finish",
		OrderID: orderID,
		Actor:   actor,
		Apply: func(_ context.Context, o *entity.Order) error {
			return o.MarkFinish(actor.ID)
		},
		InTx: func(ctx context.Context, repos repository.Repositories, o *entity.Order) (err error) {
			exec, err = step(ctx, repos, o.ID, (*entity.Execution).MarkFinish)
			return err
		},
		Audit: executionAudit(&exec),
	})
	if err != nil {
		return nil, err
	}
	return &Result{Order: order, Execution: exec}, nil
}

// ConfirmFinishUseCase завершает заказ и выпускает средства исполнителю.
type ConfirmFinishUseCase struct {
	runner *lifecycle.Runner
	ledger *escrow.Ledger
}

func NewConfirmFinishUseCase(runner *lifecycle.Runner, ledger *escrow.Ledger) *ConfirmFinishUseCase {
	return &ConfirmFinishUseCase{runner: runner, ledger: ledger}
}

func (uc *ConfirmFinishUseCase) Execute(ctx context.Context, orderID uuid.UUID, actor lifecycle.Actor) (*Result, error) {
	var (
		exec    *entity.Execution
		payment *entity.Payment
	)
	order, err := uc.runner.Run(ctx, lifecycle.Transition{
		Action:  "execution.confirm_finish",
		OrderID: orderID,
		Actor:   actor,
		Apply: func(_ context.Context, o *entity.Order) error {
			return o.ConfirmFinish(actor.ID)
		},
		InTx: func(ctx context.Context, repos repository.Repositories, o *entity.Order) (err error) {
			if exec, err = step(ctx, repos, o.ID, (*entity.Execution).ConfirmFinish); err != nil {
				return err
			}
			payment, err = uc.ledger.Release(ctx, repos, o, exec)
			return err
		},
		Audit: func(o *entity.Order, p *entity.AuditPayload) (string, uuid.UUID) {
			entityType, id := executionAudit(&exec)(o, p)
			p.Metadata["payment_id"] = payment.ID.String()
			p.Metadata["escrow_status"] = string(payment.Status)
			return entityType, id
		},
	})
	if err != nil {
		return nil, err
	}
	return &Result{Order: order, Execution: exec, Payment: payment}, nil
}
