package lifecycle

import (
	"context"

	"github.com/google/uuid"
	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
	"github.com/ignatzorin/escrow-backend/internal/domain/repository"
	"github.com/ignatzorin/escrow-backend/internal/logger"
	"github.com/ignatzorin/escrow-backend/internal/metrics"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
	"github.com/sirupsen/logrus"
)

// Recorder пишет аудит и события outbox внутри транзакции операции.
type Recorder struct {
	metrics *metrics.EscrowMetrics
}

func NewRecorder(m *metrics.EscrowMetrics) *Recorder {
	return &Recorder{metrics: m}
}

// Audit добавляет запись журнала. Ошибка записи не отменяет бизнес-операцию:
// она логируется и попадает в метрику.
func (r *Recorder) Audit(ctx context.Context, repos repository.Repositories, actor *uuid.UUID, entityType string, entityID uuid.UUID, action string, payload entity.AuditPayload) {
	entry, err := entity.NewAuditEntry(actor, entityType, entityID, action, payload)
	if err == nil {
		err = repos.Audit.Append(ctx, entry)
	}
	if err == nil {
		return
	}

	r.metrics.AuditFailure()
	fields := logrus.Fields{
		"entity_type": entityType,
		"entity_id":   entityID,
		"action":      action,
		"error":       err.Error(),
	}
	if actor != nil {
		fields["user_id"] = *actor
	}
	logger.Get().WithFields(fields).Error("аудит: не удалось сохранить запись")
}

// OrderChanged ставит снимок заказа в outbox для ретранслятора уведомлений.
func (r *Recorder) OrderChanged(ctx context.Context, repos repository.Repositories, order *entity.Order, action string) error {
	event, err := entity.NewOrderEvent(order, action, NewOrderSnapshot(order))
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось сформировать событие заказа")
	}
	return repos.Events.Enqueue(ctx, event)
}

// Fail учитывает ошибку операции в метриках и логах.
func (r *Recorder) Fail(operation string, err error) {
	code := apperror.CodeOf(err)
	r.metrics.OperationError(operation, string(code))
	entry := logger.Get().WithFields(logrus.Fields{"operation": operation, "code": code})
	if code == apperror.ErrCodeInternal || code == apperror.ErrCodeDatabaseError ||
		code == apperror.ErrCodePaymentGateway || code == apperror.ErrCodePayoutGateway {
		entry.WithError(err).Error("операция завершилась ошибкой")
		return
	}
	entry.Debug(err.Error())
}
