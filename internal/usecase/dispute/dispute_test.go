package dispute_test

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
	"github.com/ignatzorin/escrow-backend/internal/domain/repository"
	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-backend/internal/storage"
	"github.com/ignatzorin/escrow-backend/internal/usecase/dispute"
	"github.com/ignatzorin/escrow-backend/internal/usecase/lifecycle"
	"github.com/ignatzorin/escrow-backend/internal/usecase/usecasetest"
)

func openDispute(t *testing.T, env *usecasetest.Env, orderID uuid.UUID) *dispute.OpenDisputeResult {
	t.Helper()
	res, err := env.OpenDispute.Execute(context.Background(), dispute.OpenDisputeInput{
		OrderID: orderID,
		Actor:   env.Requester,
		Reason:  "no-show",
	})
	require.NoError(t, err)
	return res
}

// из in_execution открывается спор, после чего confirmFinish недоступен
func TestScenario_DisputeFreezesOrder(t *testing.T) {
	env := usecasetest.New(t)
	ctx := context.Background()
	o := env.InExecution(t, 20000)

	res := openDispute(t, env, o.ID)
	assert.Equal(t, valueobject.OrderStatusDisputed, res.Order.Status)
	assert.Equal(t, valueobject.DisputeStatusOpen, res.Dispute.Status)
	assert.Equal(t, valueobject.RoleRequester, res.Dispute.OpenerRole)

	_, err := env.ConfirmFinish.Execute(ctx, o.ID, env.Requester)
	assert.True(t, apperror.Is(err, apperror.ErrCodeInvalidStateTransition))
	_, err = env.MarkFinish.Execute(ctx, o.ID, env.Fulfiller)
	assert.Error(t, err)
	assert.Equal(t, valueobject.OrderStatusDisputed, env.Order(t, o.ID).Status)
}

// resolve(refund_to_requester, 'verified no-show')
func TestScenario_RefundResolution(t *testing.T) {
	env := usecasetest.New(t)
	ctx := context.Background()
	o := env.InExecution(t, 20000)
	opened := openDispute(t, env, o.ID)

	res, err := env.Resolve.Execute(ctx, dispute.ResolveInput{
		DisputeID: opened.Dispute.ID,
		Actor:     env.Mediator,
		Decision:  "refund_to_requester",
		Notes:     "verified no-show",
	})
	require.NoError(t, err)
	assert.Equal(t, valueobject.EscrowStatusRefunded, res.Payment.Status)
	assert.Equal(t, valueobject.OrderStatusCancelled, res.Order.Status)
	assert.Equal(t, valueobject.DisputeStatusResolved, res.Dispute.Status)
	require.NotNil(t, res.Dispute.ResolvedAt)

	require.Len(t, env.Gateway.Payouts, 1)
	assert.Equal(t, valueobject.Money(20000), env.Gateway.Payouts[0].Amount)

	entries := env.Audit(t, repository.AuditFilter{EntityID: &opened.Dispute.ID})
	require.Len(t, entries, 1)
	entry := entries[0]
	assert.Equal(t, "dispute.resolve", entry.Action)
	assert.Equal(t, env.Mediator.ID, *entry.ActorID)
	payload := string(entry.Payload)
	assert.Contains(t, payload, "verified no-show")
	assert.Contains(t, payload, "refund_to_requester")
	assert.Contains(t, payload, env.Mediator.ID.String())

	stored := env.Order(t, o.ID)
	assert.Equal(t, valueobject.OrderStatusCancelled, stored.Status)
}

func TestResolve_ReleaseBypassesConfirmations(t *testing.T) {
	env := usecasetest.New(t)
	ctx := context.Background()
	paid := env.PaidOrder(t, 20000)
	opened := openDispute(t, env, paid.Order.ID)

	_, err := env.BeginReview.Execute(ctx, opened.Dispute.ID, env.Mediator)
	require.NoError(t, err)

	res, err := env.Resolve.Execute(ctx, dispute.ResolveInput{
		DisputeID: opened.Dispute.ID,
		Actor:     env.Mediator,
		Decision:  "release_to_fulfiller",
		Notes:     "работа выполнена, фото подтверждают",
	})
	require.NoError(t, err)
	assert.Equal(t, valueobject.EscrowStatusReleased, res.Payment.Status)
	assert.Equal(t, valueobject.OrderStatusCompleted, res.Order.Status)
	require.Len(t, env.Gateway.Payouts, 1)
	assert.Equal(t, paid.Payment.NetAmount, env.Gateway.Payouts[0].Amount)

	closed, err := env.Close.Execute(ctx, opened.Dispute.ID, env.Mediator)
	require.NoError(t, err)
	assert.Equal(t, valueobject.DisputeStatusClosed, closed.Status)
}

func TestResolve_RequiresMediatorAndNotes(t *testing.T) {
	env := usecasetest.New(t)
	ctx := context.Background()
	paid := env.PaidOrder(t, 20000)
	opened := openDispute(t, env, paid.Order.ID)

	_, err := env.Resolve.Execute(ctx, dispute.ResolveInput{DisputeID: opened.Dispute.ID, Actor: env.Requester, Decision: "refund_to_requester", Notes: "хочу деньги назад"})
	assert.True(t, apperror.Is(err, apperror.ErrCodeForbidden))

	_, err = env.Resolve.Execute(ctx, dispute.ResolveInput{DisputeID: opened.Dispute.ID, Actor: env.Mediator, Decision: "refund_to_requester"})
	assert.True(t, apperror.Is(err, apperror.ErrCodeValidation))

	_, err = env.Resolve.Execute(ctx, dispute.ResolveInput{DisputeID: opened.Dispute.ID, Actor: env.Mediator, Decision: "split", Notes: "пополам"})
	assert.True(t, apperror.Is(err, apperror.ErrCodeValidation))

	payment, err := env.Store.Repositories().Payments.FindByOrderID(ctx, paid.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.EscrowStatusHeld, payment.Status)
	assert.Empty(t, env.Gateway.Payouts)
}

func TestResolve_Twice(t *testing.T) {
	env := usecasetest.New(t)
	ctx := context.Background()
	paid := env.PaidOrder(t, 20000)
	opened := openDispute(t, env, paid.Order.ID)
	input := dispute.ResolveInput{DisputeID: opened.Dispute.ID, Actor: env.Mediator, Decision: "refund_to_requester", Notes: "verified no-show"}

	_, err := env.Resolve.Execute(ctx, input)
	require.NoError(t, err)
	_, err = env.Resolve.Execute(ctx, input)
	assert.True(t, apperror.Is(err, apperror.ErrCodeInvalidStateTransition))
	assert.Len(t, env.Gateway.Payouts, 1)
}

func TestOpenDispute_Rules(t *testing.T) {
	env := usecasetest.New(t)
	ctx := context.Background()

	unpaid := env.SentOrder(t, 20000)
	_, err := env.OpenDispute.Execute(ctx, dispute.OpenDisputeInput{OrderID: unpaid.ID, Actor: env.Requester, Reason: "no-show"})
	assert.True(t, apperror.Is(err, apperror.ErrCodeInvalidStateTransition))

	paid := env.PaidOrder(t, 20000)
	outsider := lifecycle.Actor{ID: uuid.New(), Role: valueobject.RoleRequester}
	_, err = env.OpenDispute.Execute(ctx, dispute.OpenDisputeInput{OrderID: paid.Order.ID, Actor: outsider, Reason: "no-show"})
	assert.True(t, apperror.Is(err, apperror.ErrCodeForbidden))

	_, err = env.OpenDispute.Execute(ctx, dispute.OpenDisputeInput{OrderID: paid.Order.ID, Actor: env.Fulfiller, Reason: "x"})
	assert.True(t, apperror.Is(err, apperror.ErrCodeValidation))

	openDispute(t, env, paid.Order.ID)
	_, err = env.OpenDispute.Execute(ctx, dispute.OpenDisputeInput{OrderID: paid.Order.ID, Actor: env.Fulfiller, Reason: "второй спор"})
	assert.True(t, apperror.Is(err, apperror.ErrCodeConflict))
}

func TestReviewAndClose_MediatorOnly(t *testing.T) {
	env := usecasetest.New(t)
	ctx := context.Background()
	paid := env.PaidOrder(t, 20000)
	opened := openDispute(t, env, paid.Order.ID)

	_, err := env.BeginReview.Execute(ctx, opened.Dispute.ID, env.Fulfiller)
	assert.True(t, apperror.Is(err, apperror.ErrCodeForbidden))

	_, err = env.Close.Execute(ctx, opened.Dispute.ID, env.Mediator)
	assert.True(t, apperror.Is(err, apperror.ErrCodeInvalidStateTransition))

	reviewed, err := env.BeginReview.Execute(ctx, opened.Dispute.ID, env.Mediator)
	require.NoError(t, err)
	assert.Equal(t, valueobject.DisputeStatusInReview, reviewed.Status)

	entries := env.Audit(t, repository.AuditFilter{EntityType: entity.AuditEntityDispute, Action: "dispute.begin_review"})
	require.Len(t, entries, 1)
	assert.Equal(t, env.Mediator.ID, *entries[0].ActorID)
}

var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 0x49, 0x48, 0x44, 0x52}

func TestAddEvidence(t *testing.T) {
	env := usecasetest.New(t)
	ctx := context.Background()
	files, err := storage.NewEvidenceStorage(t.TempDir(), 1)
	require.NoError(t, err)
	addEvidence := dispute.NewAddEvidenceUseCase(env.Store, files, lifecycle.NewRecorder(nil))
	getDispute := dispute.NewGetDisputeUseCase(env.Store)

	paid := env.PaidOrder(t, 20000)
	opened := openDispute(t, env, paid.Order.ID)

	_, err = addEvidence.Execute(ctx, dispute.AddEvidenceInput{
		DisputeID: opened.Dispute.ID,
		Actor:     env.Requester,
		FileName:  "note.txt",
		Content:   bytes.NewReader([]byte("просто текст")),
	})
	assert.True(t, apperror.Is(err, apperror.ErrCodeValidation))

	outsider := lifecycle.Actor{ID: uuid.New(), Role: valueobject.RoleFulfiller}
	_, err = addEvidence.Execute(ctx, dispute.AddEvidenceInput{
		DisputeID: opened.Dispute.ID,
		Actor:     outsider,
		FileName:  "photo.png",
		Content:   bytes.NewReader(pngHeader),
	})
	assert.True(t, apperror.Is(err, apperror.ErrCodeForbidden))

	evidence, err := addEvidence.Execute(ctx, dispute.AddEvidenceInput{
		DisputeID: opened.Dispute.ID,
		Actor:     env.Requester,
		FileName:  "photo.png",
		Content:   bytes.NewReader(pngHeader),
	})
	require.NoError(t, err)
	assert.Equal(t, "image/png", evidence.ContentType)
	assert.Equal(t, int64(len(pngHeader)), evidence.SizeBytes)

	details, err := getDispute.Execute(ctx, opened.Dispute.ID, env.Mediator)
	require.NoError(t, err)
	require.Len(t, details.Evidence, 1)
	assert.Equal(t, evidence.ID, details.Evidence[0].ID)

	_, err = getDispute.Execute(ctx, opened.Dispute.ID, outsider)
	assert.True(t, apperror.Is(err, apperror.ErrCodeForbidden))
}

// resolvingStorage разрешает спор, пока файл еще загружается.
type resolvingStorage struct {
	*storage.EvidenceStorage
	duringSave func()
	deleted    []string
}

func (s *resolvingStorage) Save(ctx context.Context, disputeID uuid.UUID, name string, r io.Reader) (*storage.StoredFile, error) {
	stored, err := s.EvidenceStorage.Save(ctx, disputeID, name, r)
	if err == nil {
		s.duringSave()
	}
	return stored, err
}

func (s *resolvingStorage) Delete(ctx context.Context, path string) error {
	s.deleted = append(s.deleted, path)
	return s.EvidenceStorage.Delete(ctx, path)
}

func TestAddEvidence_ResolvedDuringUpload(t *testing.T) {
	env := usecasetest.New(t)
	ctx := context.Background()
	paid := env.PaidOrder(t, 20000)
	opened := openDispute(t, env, paid.Order.ID)

	inner, err := storage.NewEvidenceStorage(t.TempDir(), 1)
	require.NoError(t, err)
	files := &resolvingStorage{EvidenceStorage: inner, duringSave: func() {
		_, err := env.Resolve.Execute(ctx, dispute.ResolveInput{
			DisputeID: opened.Dispute.ID,
			Actor:     env.Mediator,
			Decision:  "release_to_fulfiller",
			Notes:     "работа выполнена по фото",
		})
		require.NoError(t, err)
	}}
	addEvidence := dispute.NewAddEvidenceUseCase(env.Store, files, lifecycle.NewRecorder(nil))

	_, err = addEvidence.Execute(ctx, dispute.AddEvidenceInput{
		DisputeID: opened.Dispute.ID,
		Actor:     env.Fulfiller,
		FileName:  "photo.png",
		Content:   bytes.NewReader(pngHeader),
	})
	assert.True(t, apperror.IsConflict(err), "got %v", err)
	assert.Len(t, files.deleted, 1)

	evidence, err := env.Store.Repositories().Disputes.ListEvidence(ctx, opened.Dispute.ID)
	require.NoError(t, err)
	assert.Empty(t, evidence)
	assert.Empty(t, env.Audit(t, repository.AuditFilter{Action: "dispute.evidence_added"}))
}

func TestListDisputes_MediatorOnly(t *testing.T) {
	env := usecasetest.New(t)
	ctx := context.Background()
	paid := env.PaidOrder(t, 20000)
	openDispute(t, env, paid.Order.ID)
	list := dispute.NewListDisputesUseCase(env.Store)

	_, _, err := list.Execute(ctx, env.Requester, repository.DisputeFilter{})
	assert.True(t, apperror.Is(err, apperror.ErrCodeForbidden))

	open := valueobject.DisputeStatusOpen
	items, total, err := list.Execute(ctx, env.Mediator, repository.DisputeFilter{Status: &open})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, paid.Order.ID, items[0].OrderID)
}
