package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
	"github.com/ignatzorin/escrow-backend/internal/domain/repository"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-backend/internal/pkg/auditchain"
	"github.com/ignatzorin/escrow-backend/internal/repository/common"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// auditLockKey сериализует запись в журнал: хэш следующей записи зависит от предыдущей.
const auditLockKey = 7_420_001

type auditRow struct {
	Seq        int64      `db:"seq"`
	ID         uuid.UUID  `db:"id"`
	ActorID    *uuid.UUID `db:"actor_id"`
	EntityType string     `db:"entity_type"`
	EntityID   uuid.UUID  `db:"entity_id"`
	Action     string     `db:"action"`
	Payload    []byte     `db:"payload"`
	PrevHash   string     `db:"prev_hash"`
	EntryHash  string     `db:"entry_hash"`
	CreatedAt  time.Time  `db:"created_at"`
}

type auditRepo struct{ c *conn }

// Append выполняется в точке сохранения, чтобы сбой записи аудита
// не переводил внешнюю транзакцию в состояние aborted.
func (r *auditRepo) Append(ctx context.Context, entry *entity.AuditEntry) error {
	if r.c.tx == nil {
		return common.WithTransaction(ctx, r.c.db, func(tx *sqlx.Tx) error {
			return appendAudit(ctx, tx, entry)
		})
	}
	return common.WithSavepoint(ctx, r.c.tx, "audit_append", func() error {
		return appendAudit(ctx, r.c.tx, entry)
	})
}

func appendAudit(ctx context.Context, tx *sqlx.Tx, entry *entity.AuditEntry) error {
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, auditLockKey); err != nil {
		return dbError(err, "не удалось заблокировать журнал аудита")
	}

	var prev string
	err := tx.GetContext(ctx, &prev, `SELECT entry_hash FROM audit_log ORDER BY seq DESC LIMIT 1`)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return dbError(err, "не удалось прочитать хвост журнала аудита")
	}
	auditchain.Seal(entry, prev)

	err = tx.GetContext(ctx, &entry.Seq, `
		INSERT INTO audit_log (id, actor_id, entity_type, entity_id, action, payload, prev_hash, entry_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING seq`,
		entry.ID, entry.ActorID, entry.EntityType, entry.EntityID, entry.Action, []byte(entry.Payload),
		entry.PrevHash, entry.EntryHash, entry.CreatedAt,
	)
	return dbError(err, "не удалось записать аудит")
}

func (r *auditRepo) List(ctx context.Context, f repository.AuditFilter) ([]*entity.AuditEntry, int, error) {
	var where common.Where
	if f.EntityType != "" {
		where.Add("entity_type = ?", f.EntityType)
	}
	if f.EntityID != nil {
		where.Add("entity_id = ?", *f.EntityID)
	}
	if f.ActorID != nil {
		where.Add("actor_id = ?", *f.ActorID)
	}
	if f.Action != "" {
		where.Add("action = ?", f.Action)
	}
	if f.Since != nil {
		where.Add("created_at >= ?", *f.Since)
	}

	var total int
	if err := sqlx.GetContext(ctx, r.c.q, &total, `SELECT COUNT(*) FROM audit_log`+where.String(), where.Args...); err != nil {
		return nil, 0, dbError(err, "не удалось посчитать записи аудита")
	}

	order := " ORDER BY seq DESC"
	if f.Ascending {
		order = " ORDER BY seq ASC"
	}
	query, args := where.Page(`SELECT * FROM audit_log`+where.String()+order, f.Limit, f.Offset)
	var rows []auditRow
	if err := sqlx.SelectContext(ctx, r.c.q, &rows, query, args...); err != nil {
		return nil, 0, dbError(err, "не удалось получить журнал аудита")
	}
	out := make([]*entity.AuditEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, &entity.AuditEntry{
			ID:         row.ID,
			Seq:        row.Seq,
			ActorID:    row.ActorID,
			EntityType: row.EntityType,
			EntityID:   row.EntityID,
			Action:     row.Action,
			Payload:    row.Payload,
			PrevHash:   row.PrevHash,
			EntryHash:  row.EntryHash,
			CreatedAt:  row.CreatedAt.UTC(),
		})
	}
	return out, total, nil
}

type eventRow struct {
	ID           uuid.UUID      `db:"id"`
	OrderID      uuid.UUID      `db:"order_id"`
	EventType    string         `db:"event_type"`
	Payload      []byte         `db:"payload"`
	Recipients   pq.StringArray `db:"recipients"`
	Status       string         `db:"status"`
	Attempts     int            `db:"attempts"`
	LastError    *string        `db:"last_error"`
	CreatedAt    time.Time      `db:"created_at"`
	DispatchedAt *time.Time     `db:"dispatched_at"`
}

type eventRepo struct{ c *conn }

func (r *eventRepo) Enqueue(ctx context.Context, e *entity.OrderEvent) error {
	recipients := make([]string, 0, len(e.Recipients))
	for _, id := range e.Recipients {
		recipients = append(recipients, id.String())
	}
	_, err := r.c.q.ExecContext(ctx, `
		INSERT INTO order_events (id, order_id, event_type, payload, recipients, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5::uuid[], $6, $7, $8)`,
		e.ID, e.OrderID, e.EventType, []byte(e.Payload), pq.Array(recipients), string(e.Status), e.Attempts, e.CreatedAt,
	)
	return dbError(err, "не удалось поставить событие в очередь")
}

// ClaimPending блокирует строки до конца транзакции. Параллельные ретрансляторы
// пропускают заблокированные события и не отправляют их повторно.
func (r *eventRepo) ClaimPending(ctx context.Context, limit int) ([]*entity.OrderEvent, error) {
	var rows []eventRow
	err := sqlx.SelectContext(ctx, r.c.q, &rows, `
		SELECT id, order_id, event_type, payload, recipients::text[] AS recipients, status, attempts,
			last_error, created_at, dispatched_at
		FROM order_events
		WHERE status = 'pending'
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED`, limit)
	if err != nil {
		return nil, dbError(err, "не удалось выбрать события")
	}
	out := make([]*entity.OrderEvent, 0, len(rows))
	for _, row := range rows {
		recipients := make([]uuid.UUID, 0, len(row.Recipients))
		for _, s := range row.Recipients {
			if id, err := uuid.Parse(s); err == nil {
				recipients = append(recipients, id)
			}
		}
		out = append(out, &entity.OrderEvent{
			ID:           row.ID,
			OrderID:      row.OrderID,
			EventType:    row.EventType,
			Payload:      row.Payload,
			Recipients:   recipients,
			Status:       entity.OrderEventStatus(row.Status),
			Attempts:     row.Attempts,
			LastError:    row.LastError,
			CreatedAt:    row.CreatedAt,
			DispatchedAt: row.DispatchedAt,
		})
	}
	return out, nil
}

var errEventNotFound = apperror.New(apperror.ErrCodeNotFound, "событие не найдено")

func (r *eventRepo) MarkDispatched(ctx context.Context, id uuid.UUID, at time.Time) error {
	res, err := r.c.q.ExecContext(ctx, `
		UPDATE order_events SET status = 'dispatched', dispatched_at = $2, attempts = attempts + 1, last_error = NULL
		WHERE id = $1`, id, at)
	if err != nil {
		return dbError(err, "не удалось отметить событие")
	}
	return common.ExpectAffected(res, errEventNotFound)
}

func (r *eventRepo) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	res, err := r.c.q.ExecContext(ctx, `
		UPDATE order_events SET attempts = attempts + 1, last_error = $2 WHERE id = $1`, id, reason)
	if err != nil {
		return dbError(err, "не удалось отметить событие")
	}
	return common.ExpectAffected(res, errEventNotFound)
}
