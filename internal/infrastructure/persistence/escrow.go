package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-backend/internal/repository/common"
)

var errExecutionNotFound = apperror.New(apperror.ErrCodeNotFound, "запись исполнения не найдена")

type paymentRow struct {
	ID             uuid.UUID `db:"id"`
	OrderID        uuid.UUID `db:"order_id"`
	GrossAmount    int64     `db:"gross_amount"`
	OperatorFee    int64     `db:"operator_fee"`
	NetAmount      int64     `db:"net_amount"`
	FeeBps         int64     `db:"fee_bps"`
	Status         string    `db:"status"`
	Method         string    `db:"method"`
	Reference      string    `db:"reference"`
	TransactionRef string    `db:"transaction_ref"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

func (r paymentRow) toEntity() *entity.Payment {
	return &entity.Payment{
		ID:             r.ID,
		OrderID:        r.OrderID,
		GrossAmount:    valueobject.Money(r.GrossAmount),
		OperatorFee:    valueobject.Money(r.OperatorFee),
		NetAmount:      valueobject.Money(r.NetAmount),
		FeeBps:         r.FeeBps,
		Status:         valueobject.EscrowStatus(r.Status),
		Method:         r.Method,
		Reference:      r.Reference,
		TransactionRef: r.TransactionRef,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

type paymentRepo struct{ c *conn }

func (r *paymentRepo) Create(ctx context.Context, p *entity.Payment) error {
	_, err := r.c.q.ExecContext(ctx, `
		INSERT INTO payments (id, order_id, gross_amount, operator_fee, net_amount, fee_bps, status,
			method, reference, transaction_ref, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		p.ID, p.OrderID, int64(p.GrossAmount), int64(p.OperatorFee), int64(p.NetAmount), p.FeeBps, string(p.Status),
		p.Method, p.Reference, p.TransactionRef, p.CreatedAt, p.UpdatedAt,
	)
	if common.IsUniqueViolation(err) {
		return apperror.Conflict("по заказу уже есть платеж")
	}
	return dbError(err, "не удалось сохранить платеж")
}

// Update меняет только статус: суммы фиксируются при захвате.
func (r *paymentRepo) Update(ctx context.Context, p *entity.Payment, expected valueobject.EscrowStatus) error {
	res, err := r.c.q.ExecContext(ctx, `
		UPDATE payments SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`,
		p.ID, string(expected), string(p.Status), p.UpdatedAt,
	)
	if err != nil {
		return dbError(err, "не удалось обновить платеж")
	}
	if err := common.ExpectAffected(res, apperror.ErrConcurrentUpdate); err != nil {
		if _, findErr := r.FindByID(ctx, p.ID); apperror.IsNotFound(findErr) {
			return apperror.ErrPaymentNotFound
		}
		return dbError(err, "не удалось обновить платеж")
	}
	return nil
}

func (r *paymentRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error) {
	row, err := common.GetOne[paymentRow](ctx, r.c.q, apperror.ErrPaymentNotFound, `SELECT * FROM payments WHERE id = $1`, id)
	if err != nil {
		return nil, dbError(err, "не удалось получить платеж")
	}
	return row.toEntity(), nil
}

func (r *paymentRepo) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*entity.Payment, error) {
	row, err := common.GetOne[paymentRow](ctx, r.c.q, apperror.ErrPaymentNotFound, `SELECT * FROM payments WHERE order_id = $1`, orderID)
	if err != nil {
		return nil, dbError(err, "не удалось получить платеж")
	}
	return row.toEntity(), nil
}

type executionRow struct {
	ID                       uuid.UUID  `db:"id"`
	OrderID                  uuid.UUID  `db:"order_id"`
	StartedAt                *time.Time `db:"started_at"`
	EndedAt                  *time.Time `db:"ended_at"`
	FulfillerMarkedStart     bool       `db:"fulfiller_marked_start"`
	RequesterConfirmedStart  bool       `db:"requester_confirmed_start"`
	FulfillerMarkedFinish    bool       `db:"fulfiller_marked_finish"`
	RequesterConfirmedFinish bool       `db:"requester_confirmed_finish"`
	CreatedAt                time.Time  `db:"created_at"`
	UpdatedAt                time.Time  `db:"updated_at"`
}

type executionRepo struct{ c *conn }

func (r *executionRepo) Create(ctx context.Context, e *entity.Execution) error {
	_, err := r.c.q.ExecContext(ctx, `
		INSERT INTO executions (id, order_id, started_at, ended_at, fulfiller_marked_start, requester_confirmed_start,
			fulfiller_marked_finish, requester_confirmed_finish, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ID, e.OrderID, e.StartedAt, e.EndedAt, e.FulfillerMarkedStart, e.RequesterConfirmedStart,
		e.FulfillerMarkedFinish, e.RequesterConfirmedFinish, e.CreatedAt, e.UpdatedAt,
	)
	if common.IsUniqueViolation(err) {
		return apperror.Conflict("запись исполнения уже существует")
	}
	return dbError(err, "не удалось создать запись исполнения")
}

// Update не сбрасывает уже установленные флаги: OR защищает от устаревшей копии.
func (r *executionRepo) Update(ctx context.Context, e *entity.Execution) error {
	res, err := r.c.q.ExecContext(ctx, `
		UPDATE executions SET
			started_at = COALESCE(started_at, $2),
			ended_at = COALESCE(ended_at, $3),
			fulfiller_marked_start = fulfiller_marked_start OR $4,
			requester_confirmed_start = requester_confirmed_start OR $5,
			fulfiller_marked_finish = fulfiller_marked_finish OR $6,
			requester_confirmed_finish = requester_confirmed_finish OR $7,
			updated_at = $8
		WHERE order_id = $1`,
		e.OrderID, e.StartedAt, e.EndedAt, e.FulfillerMarkedStart, e.RequesterConfirmedStart,
		e.FulfillerMarkedFinish, e.RequesterConfirmedFinish, e.UpdatedAt,
	)
	if err != nil {
		return dbError(err, "не удалось обновить запись исполнения")
	}
	return common.ExpectAffected(res, errExecutionNotFound)
}

func (r *executionRepo) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*entity.Execution, error) {
	row, err := common.GetOne[executionRow](ctx, r.c.q, errExecutionNotFound, `SELECT * FROM executions WHERE order_id = $1`, orderID)
	if err != nil {
		return nil, dbError(err, "не удалось получить запись исполнения")
	}
	return &entity.Execution{
		ID:                       row.ID,
		OrderID:                  row.OrderID,
		StartedAt:                row.StartedAt,
		EndedAt:                  row.EndedAt,
		FulfillerMarkedStart:     row.FulfillerMarkedStart,
		RequesterConfirmedStart:  row.RequesterConfirmedStart,
		FulfillerMarkedFinish:    row.FulfillerMarkedFinish,
		RequesterConfirmedFinish: row.RequesterConfirmedFinish,
		CreatedAt:                row.CreatedAt,
		UpdatedAt:                row.UpdatedAt,
	}, nil
}
