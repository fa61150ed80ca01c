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

const orderColumns = `id, requester_id, fulfiller_id, service_id, pricing_mode, scheduled_at, location, notes,
	total_amount, snapshot_title, snapshot_description, snapshot_category, snapshot_base_price,
	status, created_at, updated_at`

type orderRow struct {
	ID                  uuid.UUID  `db:"id"`
	RequesterID         uuid.UUID  `db:"requester_id"`
	FulfillerID         uuid.UUID  `db:"fulfiller_id"`
	ServiceID           uuid.UUID  `db:"service_id"`
	PricingMode         string     `db:"pricing_mode"`
	ScheduledAt         *time.Time `db:"scheduled_at"`
	Location            string     `db:"location"`
	Notes               string     `db:"notes"`
	TotalAmount         int64      `db:"total_amount"`
	SnapshotTitle       string     `db:"snapshot_title"`
	SnapshotDescription string     `db:"snapshot_description"`
	SnapshotCategory    string     `db:"snapshot_category"`
	SnapshotBasePrice   int64      `db:"snapshot_base_price"`
	Status              string     `db:"status"`
	CreatedAt           time.Time  `db:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at"`
}

func (r orderRow) toEntity() *entity.Order {
	return &entity.Order{
		ID:          r.ID,
		RequesterID: r.RequesterID,
		FulfillerID: r.FulfillerID,
		ServiceID:   r.ServiceID,
		PricingMode: valueobject.PricingMode(r.PricingMode),
		ScheduledAt: r.ScheduledAt,
		Location:    r.Location,
		Notes:       r.Notes,
		TotalAmount: valueobject.Money(r.TotalAmount),
		Snapshot: entity.ServiceSnapshot{
			Title:       r.SnapshotTitle,
			Description: r.SnapshotDescription,
			Category:    r.SnapshotCategory,
			BasePrice:   valueobject.Money(r.SnapshotBasePrice),
		},
		Status:    valueobject.OrderStatus(r.Status),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type orderRepo struct{ c *conn }

func (r *orderRepo) Create(ctx context.Context, o *entity.Order) error {
	query := `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err := r.c.q.ExecContext(ctx, query,
		o.ID, o.RequesterID, o.FulfillerID, o.ServiceID, string(o.PricingMode), o.ScheduledAt, o.Location, o.Notes,
		int64(o.TotalAmount), o.Snapshot.Title, o.Snapshot.Description, o.Snapshot.Category, int64(o.Snapshot.BasePrice),
		string(o.Status), o.CreatedAt, o.UpdatedAt,
	)
	if common.IsUniqueViolation(err) {
		return apperror.Conflict("заказ уже существует")
	}
	return dbError(err, "не удалось создать заказ")
}

// Update меняет только изменяемые поля. Снимок услуги и участники после создания не трогаются.
func (r *orderRepo) Update(ctx context.Context, o *entity.Order, expected valueobject.OrderStatus) error {
	res, err := r.c.q.ExecContext(ctx, `
		UPDATE orders
		SET status = $3, total_amount = $4, scheduled_at = $5, location = $6, notes = $7, updated_at = $8
		WHERE id = $1 AND status = $2`,
		o.ID, string(expected), string(o.Status), int64(o.TotalAmount), o.ScheduledAt, o.Location, o.Notes, o.UpdatedAt,
	)
	if err != nil {
		return dbError(err, "не удалось обновить заказ")
	}
	if err := common.ExpectAffected(res, apperror.ErrConcurrentUpdate); err != nil {
		if _, findErr := r.FindByID(ctx, o.ID); apperror.IsNotFound(findErr) {
			return apperror.ErrOrderNotFound
		}
		return dbError(err, "не удалось обновить заказ")
	}
	return nil
}

func (r *orderRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Order, error) {
	row, err := common.GetOne[orderRow](ctx, r.c.q, apperror.ErrOrderNotFound,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	if err != nil {
		return nil, dbError(err, "не удалось получить заказ")
	}
	return row.toEntity(), nil
}

func (r *orderRepo) List(ctx context.Context, f repository.OrderFilter) ([]*entity.Order, int, error) {
	var where common.Where
	if f.RequesterID != nil {
		where.Add("requester_id = ?", *f.RequesterID)
	}
	if f.FulfillerID != nil {
		where.Add("fulfiller_id = ?", *f.FulfillerID)
	}
	if f.ParticipantID != nil {
		where.Add("(requester_id = ? OR fulfiller_id = ?)", *f.ParticipantID)
	}
	if f.Status != nil {
		where.Add("status = ?", string(*f.Status))
	}

	var total int
	if err := sqlx.GetContext(ctx, r.c.q, &total, `SELECT COUNT(*) FROM orders`+where.String(), where.Args...); err != nil {
		return nil, 0, dbError(err, "не удалось посчитать заказы")
	}

	query, args := where.Page(`SELECT `+orderColumns+` FROM orders`+where.String()+` ORDER BY created_at DESC, id`, f.Limit, f.Offset)
	var rows []orderRow
	if err := sqlx.SelectContext(ctx, r.c.q, &rows, query, args...); err != nil {
		return nil, 0, dbError(err, "не удалось получить список заказов")
	}
	out := make([]*entity.Order, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toEntity())
	}
	return out, total, nil
}

type serviceRow struct {
	ID          uuid.UUID `db:"id"`
	ProviderID  uuid.UUID `db:"provider_id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	Category    string    `db:"category"`
	BasePrice   int64     `db:"base_price"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

type serviceRepo struct{ c *conn }

func (r *serviceRepo) Create(ctx context.Context, s *entity.CatalogService) error {
	_, err := r.c.q.ExecContext(ctx, `
		INSERT INTO catalog_services (id, provider_id, title, description, category, base_price, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.ID, s.ProviderID, s.Title, s.Description, s.Category, int64(s.BasePrice), s.CreatedAt, s.UpdatedAt,
	)
	return dbError(err, "не удалось создать услугу")
}

func (r *serviceRepo) Update(ctx context.Context, s *entity.CatalogService) error {
	res, err := r.c.q.ExecContext(ctx, `
		UPDATE catalog_services SET title = $2, description = $3, category = $4, base_price = $5, updated_at = $6
		WHERE id = $1`,
		s.ID, s.Title, s.Description, s.Category, int64(s.BasePrice), s.UpdatedAt,
	)
	if err != nil {
		return dbError(err, "не удалось обновить услугу")
	}
	return common.ExpectAffected(res, apperror.ErrServiceNotFound)
}

func (r *serviceRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.c.q.ExecContext(ctx, `DELETE FROM catalog_services WHERE id = $1`, id)
	if err != nil {
		return dbError(err, "не удалось удалить услугу")
	}
	return common.ExpectAffected(res, apperror.ErrServiceNotFound)
}

func (r *serviceRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.CatalogService, error) {
	row, err := common.GetOne[serviceRow](ctx, r.c.q, apperror.ErrServiceNotFound, `SELECT * FROM catalog_services WHERE id = $1`, id)
	if err != nil {
		return nil, dbError(err, "не удалось получить услугу")
	}
	return &entity.CatalogService{
		ID:          row.ID,
		ProviderID:  row.ProviderID,
		Title:       row.Title,
		Description: row.Description,
		Category:    row.Category,
		BasePrice:   valueobject.Money(row.BasePrice),
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}, nil
}
