package gateway

import (
	"context"
	"strings"
	"sync"

	"github.com/ignatzorin/escrow-backend/internal/domain/gateway"
	"github.com/jaevor/go-nanoid"
)

// Sandbox - шлюз для разработки. Способ оплаты "declined" всегда отклоняется.
// Захват идемпотентен по Reference: повтор возвращает ту же транзакцию.
type Sandbox struct {
	mu       sync.Mutex
	newID    func() string
	captures map[string]string
	payouts  []gateway.PayoutRequest
}

func NewSandbox() (*Sandbox, error) {
	idGenerator, err := nanoid.Standard(21)
	if err != nil {
		return nil, err
	}
	return &Sandbox{newID: idGenerator, captures: make(map[string]string)}, nil
}

func (s *Sandbox) Capture(ctx context.Context, req gateway.CaptureRequest) (gateway.CaptureResult, error) {
	if err := ctx.Err(); err != nil {
		return gateway.CaptureResult{}, err
	}
	if strings.EqualFold(req.Method, "declined") {
		return gateway.CaptureResult{}, gateway.ErrDeclined
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx, ok := s.captures[req.Reference]; ok && req.Reference != "" {
		return gateway.CaptureResult{TransactionID: tx}, nil
	}
	tx := "sbx_" + s.newID()
	if req.Reference != "" {
		s.captures[req.Reference] = tx
	}
	return gateway.CaptureResult{TransactionID: tx}, nil
}

func (s *Sandbox) Payout(ctx context.Context, req gateway.PayoutRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.payouts = append(s.payouts, req)
	s.mu.Unlock()
	return nil
}

// Payouts возвращает копию выполненных выплат.
func (s *Sandbox) Payouts() []gateway.PayoutRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]gateway.PayoutRequest(nil), s.payouts...)
}
