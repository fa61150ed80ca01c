package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
	"github.com/ignatzorin/escrow-backend/internal/domain/repository"
	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-backend/internal/repository/common"
	"github.com/jmoiron/sqlx"
)

type disputeRow struct {
	ID              uuid.UUID  `db:"id"`
	OrderID         uuid.UUID  `db:"order_id"`
	OpenedBy        uuid.UUID  `db:"opened_by"`
	OpenerRole      string     `db:"opener_role"`
	Reason          string     `db:"reason"`
	Status          string     `db:"status"`
	Decision        *string    `db:"decision"`
	ResolutionNotes *string    `db:"resolution_notes"`
	ResolvedBy      *uuid.UUID `db:"resolved_by"`
	ResolvedAt      *time.Time `db:"resolved_at"`
	ClosedAt        *time.Time `db:"closed_at"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

func (r disputeRow) toEntity() *entity.Dispute {
	d := &entity.Dispute{
		ID:              r.ID,
		OrderID:         r.OrderID,
		OpenedBy:        r.OpenedBy,
		OpenerRole:      valueobject.Role(r.OpenerRole),
		Reason:          r.Reason,
		Status:          valueobject.DisputeStatus(r.Status),
		ResolutionNotes: r.ResolutionNotes,
		ResolvedBy:      r.ResolvedBy,
		ResolvedAt:      r.ResolvedAt,
		ClosedAt:        r.ClosedAt,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	if r.Decision != nil {
		decision := valueobject.DisputeDecision(*r.Decision)
		d.Decision = &decision
	}
	return d
}

func decisionValue(d *valueobject.DisputeDecision) *string {
	if d == nil {
		return nil
	}
	s := string(*d)
	return &s
}

type disputeRepo struct{ c *conn }

func (r *disputeRepo) Create(ctx context.Context, d *entity.Dispute) error {
	_, err := r.c.q.ExecContext(ctx, `
		INSERT INTO disputes (id, order_id, opened_by, opener_role, reason, status, decision, resolution_notes,
			resolved_by, resolved_at, closed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		d.ID, d.OrderID, d.OpenedBy, string(d.OpenerRole), d.Reason, string(d.Status), decisionValue(d.Decision),
		d.ResolutionNotes, d.ResolvedBy, d.ResolvedAt, d.ClosedAt, d.CreatedAt, d.UpdatedAt,
	)
	// uq_disputes_active_order
	if common.IsUniqueViolation(err) {
		return apperror.Conflict("по заказу уже открыт спор")
	}
	return dbError(err, "не удалось создать спор")
}

func (r *disputeRepo) Update(ctx context.Context, d *entity.Dispute, expected valueobject.DisputeStatus) error {
	res, err := r.c.q.ExecContext(ctx, `
		UPDATE disputes SET status = $3, decision = $4, resolution_notes = $5, resolved_by = $6,
			resolved_at = $7, closed_at = $8, updated_at = $9
		WHERE id = $1 AND status = $2`,
		d.ID, string(expected), string(d.Status), decisionValue(d.Decision), d.ResolutionNotes, d.ResolvedBy,
		d.ResolvedAt, d.ClosedAt, d.UpdatedAt,
	)
	if err != nil {
		return dbError(err, "не удалось обновить спор")
	}
	if err := common.ExpectAffected(res, apperror.ErrConcurrentUpdate); err != nil {
		if _, findErr := r.FindByID(ctx, d.ID); apperror.IsNotFound(findErr) {
			return apperror.ErrDisputeNotFound
		}
		return dbError(err, "не удалось обновить спор")
	}
	return nil
}

func (r *disputeRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Dispute, error) {
	row, err := common.GetOne[disputeRow](ctx, r.c.q, apperror.ErrDisputeNotFound, `SELECT * FROM disputes WHERE id = $1`, id)
	if err != nil {
		return nil, dbError(err, "не удалось получить спор")
	}
	return row.toEntity(), nil
}

func (r *disputeRepo) FindActiveByOrderID(ctx context.Context, orderID uuid.UUID) (*entity.Dispute, error) {
	row, err := common.GetOne[disputeRow](ctx, r.c.q, apperror.ErrDisputeNotFound, `
		SELECT * FROM disputes WHERE order_id = $1 AND status IN ('open', 'in_review')`, orderID)
	if err != nil {
		return nil, dbError(err, "не удалось получить спор")
	}
	return row.toEntity(), nil
}

func (r *disputeRepo) List(ctx context.Context, f repository.DisputeFilter) ([]*entity.Dispute, int, error) {
	var where common.Where
	if f.Status != nil {
		where.Add("status = ?", string(*f.Status))
	}
	if f.OrderID != nil {
		where.Add("order_id = ?", *f.OrderID)
	}

	var total int
	if err := sqlx.GetContext(ctx, r.c.q, &total, `SELECT COUNT(*) FROM disputes`+where.String(), where.Args...); err != nil {
		return nil, 0, dbError(err, "не удалось посчитать споры")
	}

	query, args := where.Page(`SELECT * FROM disputes`+where.String()+` ORDER BY created_at DESC, id`, f.Limit, f.Offset)
	var rows []disputeRow
	if err := sqlx.SelectContext(ctx, r.c.q, &rows, query, args...); err != nil {
		return nil, 0, dbError(err, "не удалось получить список споров")
	}
	out := make([]*entity.Dispute, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toEntity())
	}
	return out, total, nil
}

type evidenceRow struct {
	ID          uuid.UUID `db:"id"`
	DisputeID   uuid.UUID `db:"dispute_id"`
	UploadedBy  uuid.UUID `db:"uploaded_by"`
	FileName    string    `db:"file_name"`
	ContentType string    `db:"content_type"`
	SizeBytes   int64     `db:"size_bytes"`
	StoragePath string    `db:"storage_path"`
	CreatedAt   time.Time `db:"created_at"`
}

// AddEvidence вставляет запись, только если спор активен. FOR SHARE блокирует
// строку спора: разрешение, начатое раньше, перепроверяется после своего коммита,
// начатое позже ждет конца этой транзакции.
func (r *disputeRepo) AddEvidence(ctx context.Context, e *entity.DisputeEvidence) error {
	res, err := r.c.q.ExecContext(ctx, `
		WITH active AS (
			SELECT id FROM disputes WHERE id = $2 AND status IN ('open', 'in_review') FOR SHARE
		)
		INSERT INTO dispute_evidence (id, dispute_id, uploaded_by, file_name, content_type, size_bytes, storage_path, created_at)
		SELECT $1::uuid, active.id, $3::uuid, $4::text, $5::text, $6::bigint, $7::text, $8::timestamptz FROM active`,
		e.ID, e.DisputeID, e.UploadedBy, e.FileName, e.ContentType, e.SizeBytes, e.StoragePath, e.CreatedAt,
	)
	if err != nil {
		return dbError(err, "не удалось сохранить доказательство")
	}
	inactive := apperror.Conflict("спор уже разрешен, доказательства не принимаются")
	if err := common.ExpectAffected(res, inactive); err != nil {
		if _, findErr := r.FindByID(ctx, e.DisputeID); apperror.IsNotFound(findErr) {
			return apperror.ErrDisputeNotFound
		}
		return dbError(err, "не удалось сохранить доказательство")
	}
	return nil
}

func (r *disputeRepo) ListEvidence(ctx context.Context, disputeID uuid.UUID) ([]*entity.DisputeEvidence, error) {
	var rows []evidenceRow
	if err := sqlx.SelectContext(ctx, r.c.q, &rows,
		`SELECT * FROM dispute_evidence WHERE dispute_id = $1 ORDER BY created_at, id`, disputeID); err != nil {
		return nil, dbError(err, "не удалось получить доказательства")
	}
	out := make([]*entity.DisputeEvidence, 0, len(rows))
	for _, row := range rows {
		e := entity.DisputeEvidence(row)
		out = append(out, &e)
	}
	return out, nil
}
