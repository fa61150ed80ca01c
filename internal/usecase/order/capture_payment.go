package order

import (
	"context"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
	"github.com/ignatzorin/escrow-backend/internal/domain/repository"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-backend/internal/usecase/escrow"
	"github.com/ignatzorin/escrow-backend/internal/usecase/lifecycle"
)

type CapturePaymentResult struct {
	Order     *entity.Order
	Payment   *entity.Payment
	Execution *entity.Execution
}

// CapturePaymentUseCase переводит заказ в эскроу. Заказ, платеж и запись
// исполнения появляются вместе или не появляются вовсе.
type CapturePaymentUseCase struct {
	runner *lifecycle.Runner
	ledger *escrow.Ledger
}

func NewCapturePaymentUseCase(runner *lifecycle.Runner, ledger *escrow.Ledger) *CapturePaymentUseCase {
	return &CapturePaymentUseCase{runner: runner, ledger: ledger}
}

func (uc *CapturePaymentUseCase) Execute(ctx context.Context, orderID uuid.UUID, actor lifecycle.Actor, method string) (*CapturePaymentResult, error) {
	method = strings.TrimSpace(method)
	result := &CapturePaymentResult{}

	order, err := uc.runner.Run(ctx, lifecycle.Transition{
		Action:  "order.capture_payment",
		OrderID: orderID,
		Actor:   actor,
		Apply: func(_ context.Context, o *entity.Order) error {
			if method == "" {
				return apperror.Validation("не указан способ оплаты")
			}
			return o.MarkPaid(actor.ID)
		},
		InTx: func(ctx context.Context, repos repository.Repositories, o *entity.Order) error {
			payment, err := uc.ledger.Capture(ctx, repos, o, method)
			if err != nil {
				return err
			}
			exec := entity.NewExecution(o.ID)
			if err := repos.Executions.Create(ctx, exec); err != nil {
				return err
			}
			result.Payment, result.Execution = payment, exec
			return nil
		},
		Audit: func(o *entity.Order, p *entity.AuditPayload) (string, uuid.UUID) {
			p.Metadata = map[string]string{
				"payment_id":      result.Payment.ID.String(),
				"method":          result.Payment.Method,
				"gross_minor":     strconv.FormatInt(int64(result.Payment.GrossAmount), 10),
				"fee_minor":       strconv.FormatInt(int64(result.Payment.OperatorFee), 10),
				"net_minor":       strconv.FormatInt(int64(result.Payment.NetAmount), 10),
				"transaction_ref": result.Payment.TransactionRef,
			}
			return entity.AuditEntityOrder, o.ID
		},
	})
	if err != nil {
		return nil, err
	}
	result.Order = order
	return result, nil
}
