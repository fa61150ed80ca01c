// Package usecasetest собирает сценарии поверх хранилища в памяти для тестов.
package usecasetest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
	"github.com/ignatzorin/escrow-backend/internal/domain/gateway"
	"github.com/ignatzorin/escrow-backend/internal/domain/repository"
	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-backend/internal/infrastructure/memory"
	"github.com/ignatzorin/escrow-backend/internal/usecase/catalog"
	"github.com/ignatzorin/escrow-backend/internal/usecase/dispute"
	"github.com/ignatzorin/escrow-backend/internal/usecase/escrow"
	"github.com/ignatzorin/escrow-backend/internal/usecase/execution"
	"github.com/ignatzorin/escrow-backend/internal/usecase/lifecycle"
	"github.com/ignatzorin/escrow-backend/internal/usecase/order"
)

// Gateway - управляемый шлюз: ошибки задаются полями, списания записываются.
// Как и настоящий шлюз, повторный захват с той же ссылкой не создает новое списание.
type Gateway struct {
	mu         sync.Mutex
	CaptureErr error
	PayoutErr  error
	Captures   []gateway.CaptureRequest
	Payouts    []gateway.PayoutRequest
}

func (g *Gateway) Capture(_ context.Context, req gateway.CaptureRequest) (gateway.CaptureResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.CaptureErr != nil {
		return gateway.CaptureResult{}, g.CaptureErr
	}
	for _, c := range g.Captures {
		if c.Reference == req.Reference {
			return gateway.CaptureResult{TransactionID: "tx_" + req.Reference}, nil
		}
	}
	g.Captures = append(g.Captures, req)
	return gateway.CaptureResult{TransactionID: "tx_" + req.Reference}, nil
}

func (g *Gateway) Payout(_ context.Context, req gateway.PayoutRequest) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.PayoutErr != nil {
		return g.PayoutErr
	}
	g.Payouts = append(g.Payouts, req)
	return nil
}

func (g *Gateway) CaptureCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Captures)
}

func (g *Gateway) PayoutCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Payouts)
}

// ErrAuditDown возвращается журналом, подмененным через BrokenAudit.
var ErrAuditDown = errors.New("audit storage unavailable")

type brokenAuditRepo struct{}

func (brokenAuditRepo) Append(context.Context, *entity.AuditEntry) error { return ErrAuditDown }

func (brokenAuditRepo) List(context.Context, repository.AuditFilter) ([]*entity.AuditEntry, int, error) {
	return nil, 0, ErrAuditDown
}

// BrokenAudit оборачивает хранилище так, что запись в журнал всегда падает.
type BrokenAudit struct {
	repository.Store
}

func (s BrokenAudit) Repositories() repository.Repositories {
	repos := s.Store.Repositories()
	repos.Audit = brokenAuditRepo{}
	return repos
}

func (s BrokenAudit) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	return s.Store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		repos.Audit = brokenAuditRepo{}
		return fn(ctx, repos)
	})
}

// Env - все сценарии жизненного цикла над одним хранилищем.
type Env struct {
	Store   repository.Store
	Memory  *memory.Store
	Gateway *Gateway
	Ledger  *escrow.Ledger

	Catalog *catalog.ServiceUseCases

	Submit   *order.SubmitOrderUseCase
	Accept   *order.AcceptOrderUseCase
	Reject   *order.RejectOrderUseCase
	Counter  *order.CounterOfferUseCase
	Finalize *order.FinalizeDetailsUseCase
	Cancel   *order.CancelOrderUseCase
	Capture  *order.CapturePaymentUseCase
	View     *order.GetEscrowViewUseCase

	MarkStart     *execution.MarkStartUseCase
	ConfirmStart  *execution.ConfirmStartUseCase
	MarkFinish    *execution.MarkFinishUseCase
	ConfirmFinish *execution.ConfirmFinishUseCase

	OpenDispute *dispute.OpenDisputeUseCase
	BeginReview *dispute.BeginReviewUseCase
	Resolve     *dispute.ResolveDisputeUseCase
	Close       *dispute.CloseDisputeUseCase

	Hold *escrow.HoldPaymentUseCase

	Requester lifecycle.Actor
	Fulfiller lifecycle.Actor
	Mediator  lifecycle.Actor
}

type Option func(*options)

type options struct {
	feeBps int64
	wrap   func(repository.Store) repository.Store
}

// WithFee задает комиссию площадки в базисных пунктах.
func WithFee(bps int64) Option {
	return func(o *options) { o.feeBps = bps }
}

// WithStore подменяет хранилище, которое видят сценарии.
func WithStore(wrap func(repository.Store) repository.Store) Option {
	return func(o *options) { o.wrap = wrap }
}

func New(t testing.TB, opts ...Option) *Env {
	t.Helper()
	o := options{feeBps: 1000}
	for _, opt := range opts {
		opt(&o)
	}

	mem := memory.NewStore()
	var store repository.Store = mem
	if o.wrap != nil {
		store = o.wrap(mem)
	}

	fees, err := valueobject.NewFeePolicy(o.feeBps)
	require.NoError(t, err)
	gw := &Gateway{}
	ledger, err := escrow.NewLedger(gw, escrow.Config{Fees: fees, MaxRetries: 1}, nil)
	require.NoError(t, err)

	recorder := lifecycle.NewRecorder(nil)
	runner := lifecycle.NewRunner(store, recorder, nil)

	return &Env{
		Store:   store,
		Memory:  mem,
		Gateway: gw,
		Ledger:  ledger,

		Catalog: catalog.NewServiceUseCases(store, recorder),

		Submit:   order.NewSubmitOrderUseCase(store, recorder),
		Accept:   order.NewAcceptOrderUseCase(runner),
		Reject:   order.NewRejectOrderUseCase(runner),
		Counter:  order.NewCounterOfferUseCase(runner),
		Finalize: order.NewFinalizeDetailsUseCase(runner),
		Cancel:   order.NewCancelOrderUseCase(runner),
		Capture:  order.NewCapturePaymentUseCase(runner, ledger),
		View:     order.NewGetEscrowViewUseCase(store),

		MarkStart:     execution.NewMarkStartUseCase(runner),
		ConfirmStart:  execution.NewConfirmStartUseCase(runner),
		MarkFinish:    execution.NewMarkFinishUseCase(runner),
		ConfirmFinish: execution.NewConfirmFinishUseCase(runner, ledger),

		OpenDispute: dispute.NewOpenDisputeUseCase(runner),
		BeginReview: dispute.NewBeginReviewUseCase(store, recorder),
		Resolve:     dispute.NewResolveDisputeUseCase(store, ledger, recorder, nil),
		Close:       dispute.NewCloseDisputeUseCase(store, recorder),

		Hold: escrow.NewHoldPaymentUseCase(store, ledger, recorder),

		Requester: lifecycle.Actor{ID: uuid.New(), Role: valueobject.RoleRequester},
		Fulfiller: lifecycle.Actor{ID: uuid.New(), Role: valueobject.RoleFulfiller},
		Mediator:  lifecycle.Actor{ID: uuid.New(), Role: valueobject.RoleMediator},
	}
}

// Service публикует услугу исполнителя.
func (e *Env) Service(t testing.TB, price valueobject.Money) *entity.CatalogService {
	t.Helper()
	svc, err := e.Catalog.Create(context.Background(), e.Fulfiller, catalog.ServiceInput{
		Title:       "Уборка квартиры",
		Description: "Генеральная уборка",
		Category:    "cleaning",
		BasePrice:   price,
	})
	require.NoError(t, err)
	return svc
}

// SentOrder создает заказ в статусе sent.
func (e *Env) SentOrder(t testing.TB, amount valueobject.Money) *entity.Order {
	t.Helper()
	svc := e.Service(t, amount)
	o, err := e.Submit.Execute(context.Background(), order.SubmitOrderInput{
		Actor:       e.Requester,
		FulfillerID: e.Fulfiller.ID,
		ServiceID:   svc.ID,
		PricingMode: string(valueobject.PricingFixed),
		TotalAmount: amount,
		Location:    "Москва",
	})
	require.NoError(t, err)
	return o
}

// PaidOrder доводит заказ до paid_escrow_held.
func (e *Env) PaidOrder(t testing.TB, amount valueobject.Money) *order.CapturePaymentResult {
	t.Helper()
	ctx := context.Background()
	o := e.SentOrder(t, amount)
	_, err := e.Accept.Execute(ctx, o.ID, e.Fulfiller)
	require.NoError(t, err)
	res, err := e.Capture.Execute(ctx, o.ID, e.Requester, "card")
	require.NoError(t, err)
	return res
}

// InExecution доводит заказ до in_execution.
func (e *Env) InExecution(t testing.TB, amount valueobject.Money) *entity.Order {
	t.Helper()
	ctx := context.Background()
	paid := e.PaidOrder(t, amount)
	_, err := e.MarkStart.Execute(ctx, paid.Order.ID, e.Fulfiller)
	require.NoError(t, err)
	res, err := e.ConfirmStart.Execute(ctx, paid.Order.ID, e.Requester)
	require.NoError(t, err)
	return res.Order
}

// Audit возвращает журнал по возрастанию номера записи.
func (e *Env) Audit(t testing.TB, filter repository.AuditFilter) []*entity.AuditEntry {
	t.Helper()
	filter.Ascending = true
	entries, _, err := e.Memory.Repositories().Audit.List(context.Background(), filter)
	require.NoError(t, err)
	return entries
}

func (e *Env) Order(t testing.TB, id uuid.UUID) *entity.Order {
	t.Helper()
	o, err := e.Store.Repositories().Orders.FindByID(context.Background(), id)
	require.NoError(t, err)
	return o
}
