package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ignatzorin/escrow-backend/internal/domain/gateway"
)

// HTTPGateway вызывает внешний платежный шлюз по JSON API.
// 4xx считается окончательным отказом, 5xx и сетевые ошибки - временными.
type HTTPGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPGateway(baseURL, apiKey string, timeout time.Duration) *HTTPGateway {
	return &HTTPGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type captureBody struct {
	Amount    int64  `json:"amount"`
	Method    string `json:"method"`
	Reference string `json:"reference"`
}

type captureReply struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transaction_id"`
	Error         string `json:"error"`
}

type payoutBody struct {
	Amount      int64  `json:"amount"`
	Destination string `json:"destination"`
	Reference   string `json:"reference"`
}

type payoutReply struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (g *HTTPGateway) Capture(ctx context.Context, req gateway.CaptureRequest) (gateway.CaptureResult, error) {
	var reply captureReply
	body := captureBody{Amount: int64(req.Amount), Method: req.Method, Reference: req.Reference}
	if err := g.post(ctx, "/v1/captures", req.Reference, body, &reply); err != nil {
		return gateway.CaptureResult{}, err
	}
	if !reply.Success || reply.TransactionID == "" {
		return gateway.CaptureResult{}, fmt.Errorf("%w: %s", gateway.ErrDeclined, reply.Error)
	}
	return gateway.CaptureResult{TransactionID: reply.TransactionID}, nil
}

func (g *HTTPGateway) Payout(ctx context.Context, req gateway.PayoutRequest) error {
	var reply payoutReply
	body := payoutBody{Amount: int64(req.Amount), Destination: req.Destination, Reference: req.Reference}
	if err := g.post(ctx, "/v1/payouts", req.Reference, body, &reply); err != nil {
		return err
	}
	if !reply.Success {
		return fmt.Errorf("%w: %s", gateway.ErrDeclined, reply.Error)
	}
	return nil
}

func (g *HTTPGateway) post(ctx context.Context, path, idempotencyKey string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	// ключ идемпотентности защищает от двойного списания при повторе
	req.Header.Set("Idempotency-Key", idempotencyKey)
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("gateway read %s: %w", path, err)
	}
	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("gateway %s: status %d", path, resp.StatusCode)
	case resp.StatusCode >= 400:
		return fmt.Errorf("%w: status %d: %s", gateway.ErrDeclined, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("gateway decode %s: %w", path, err)
	}
	return nil
}
