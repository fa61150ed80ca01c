package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/escrow-backend/internal/config"
	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-backend/internal/interface/http/dto"
	"github.com/ignatzorin/escrow-backend/internal/interface/http/handler"
	"github.com/ignatzorin/escrow-backend/internal/metrics"
	"github.com/ignatzorin/escrow-backend/internal/service"
	"github.com/ignatzorin/escrow-backend/internal/storage"
	"github.com/ignatzorin/escrow-backend/internal/usecase/audit"
	"github.com/ignatzorin/escrow-backend/internal/usecase/dispute"
	"github.com/ignatzorin/escrow-backend/internal/usecase/lifecycle"
	"github.com/ignatzorin/escrow-backend/internal/usecase/order"
	"github.com/ignatzorin/escrow-backend/internal/usecase/usecasetest"
	"github.com/ignatzorin/escrow-backend/internal/ws"
)

type testServer struct {
	t      *testing.T
	engine *gin.Engine
	env    *usecasetest.Env
	tokens *service.TokenManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Env:             "development",
		AllowedOrigins:  []string{"http://localhost:3000"},
		RateLimitLimit:  1000,
		RateLimitPeriod: time.Minute,
	}
	env := usecasetest.New(t)
	money := dto.MoneyCodec{Decimals: 2}
	tokens := service.NewTokenManager("router-test-secret-0123456789abcdef", time.Hour)
	files, err := storage.NewEvidenceStorage(t.TempDir(), 1)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	metrics.New(reg)
	hub := ws.NewHub()

	handlers := Handlers{
		Orders: handler.NewOrderHandler(handler.OrderUseCases{
			Submit:     env.Submit,
			Accept:     env.Accept,
			Reject:     env.Reject,
			Counter:    env.Counter,
			Finalize:   env.Finalize,
			Cancel:     env.Cancel,
			Capture:    env.Capture,
			Get:        order.NewGetOrderUseCase(env.Store),
			List:       order.NewListOrdersUseCase(env.Store),
			EscrowView: env.View,
		}, money),
		Execution: handler.NewExecutionHandler(handler.ExecutionUseCases{
			MarkStart:     env.MarkStart,
			ConfirmStart:  env.ConfirmStart,
			MarkFinish:    env.MarkFinish,
			ConfirmFinish: env.ConfirmFinish,
		}, money),
		Disputes: handler.NewDisputeHandler(handler.DisputeUseCases{
			Open:        env.OpenDispute,
			BeginReview: env.BeginReview,
			Resolve:     env.Resolve,
			Close:       env.Close,
			Get:         dispute.NewGetDisputeUseCase(env.Store),
			List:        dispute.NewListDisputesUseCase(env.Store),
			AddEvidence: dispute.NewAddEvidenceUseCase(env.Store, files, lifecycle.NewRecorder(nil)),
		}, money, 1),
		Payments: handler.NewPaymentHandler(env.Hold, money),
		Audit:    handler.NewAuditHandler(audit.NewListAuditUseCase(env.Store), audit.NewVerifyChainUseCase(env.Store)),
		Catalog:  handler.NewCatalogHandler(env.Catalog, money),
		WS:       handler.NewWSHandler(hub, tokens, cfg.AllowedOrigins),
		Health:   handler.NewHealthHandler(env.Store, hub),
		Dev:      handler.NewDevHandler(tokens),
	}

	return &testServer{t: t, engine: SetupRouter(cfg, handlers, tokens, reg), env: env, tokens: tokens}
}

func (s *testServer) token(id uuid.UUID, role valueobject.Role) string {
	s.t.Helper()
	token, _, err := s.tokens.Issue(id, role)
	require.NoError(s.t, err)
	return token
}

// do выполняет запрос и раскладывает поле data ответа в out.
func (s *testServer) do(method, path, token string, body any, out any) int {
	s.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(s.t, err)
	}
	req, _ := http.NewRequest(method, path, bytes.NewReader(payload))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	if out != nil && w.Code < 300 {
		envelope := struct {
			Data json.RawMessage `json:"data"`
		}{}
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &envelope), w.Body.String())
		require.NoError(s.t, json.Unmarshal(envelope.Data, out))
	}
	return w.Code
}

func TestRouter_Health(t *testing.T) {
	s := newTestServer(t)

	var health handler.HealthResponse
	req, _ := http.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)

	req, _ = http.NewRequest("GET", "/metrics", nil)
	w = httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_RequiresToken(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, s.do("GET", "/api/orders", "", nil, nil))
	assert.Equal(t, http.StatusBadRequest, s.do("GET", "/api/orders/not-a-uuid", s.token(uuid.New(), valueobject.RoleRequester), nil, nil))
}

func TestRouter_DevToken(t *testing.T) {
	s := newTestServer(t)
	userID := uuid.New()

	var issued struct {
		AccessToken string `json:"access_token"`
	}
	code := s.do("POST", "/api/dev/token", "", gin.H{"user_id": userID, "role": "mediator"}, &issued)
	require.Equal(t, http.StatusOK, code)
	require.NotEmpty(t, issued.AccessToken)

	var verify struct {
		Valid bool `json:"valid"`
	}
	assert.Equal(t, http.StatusOK, s.do("GET", "/api/audit/verify", issued.AccessToken, nil, &verify))
	assert.True(t, verify.Valid)

	assert.Equal(t, http.StatusBadRequest, s.do("POST", "/api/dev/token", "", gin.H{"user_id": userID, "role": "admin"}, nil))
}

func TestRouter_DisputeRefund(t *testing.T) {
	s := newTestServer(t)
	env := s.env
	requester := s.token(env.Requester.ID, valueobject.RoleRequester)
	fulfiller := s.token(env.Fulfiller.ID, valueobject.RoleFulfiller)
	mediator := s.token(env.Mediator.ID, valueobject.RoleMediator)

	var svc dto.ServiceResponse
	require.Equal(t, http.StatusCreated, s.do("POST", "/api/services", fulfiller, gin.H{
		"title": "Ремонт крана", "category": "plumbing", "base_price": 800.0,
	}, &svc))

	var created dto.OrderResponse
	require.Equal(t, http.StatusCreated, s.do("POST", "/api/orders", requester, gin.H{
		"fulfiller_id": env.Fulfiller.ID, "service_id": svc.ID, "pricing_mode": "fixed", "total_amount": 800.0,
	}, &created))
	orderPath := "/api/orders/" + created.ID.String()

	require.Equal(t, http.StatusOK, s.do("POST", orderPath+"/accept", fulfiller, nil, nil))
	var paid dto.EscrowStateResponse
	require.Equal(t, http.StatusCreated, s.do("POST", orderPath+"/payment", requester, gin.H{"method": "card"}, &paid))
	assert.Equal(t, "held", paid.Payment.Status)

	// отмена после оплаты запрещена, деньги возвращаются только через спор
	assert.Equal(t, http.StatusConflict, s.do("POST", orderPath+"/cancel", requester, nil, nil))

	var opened struct {
		Order   dto.OrderResponse   `json:"order"`
		Dispute dto.DisputeResponse `json:"dispute"`
	}
	require.Equal(t, http.StatusCreated, s.do("POST", orderPath+"/dispute", requester, gin.H{"reason": "мастер не пришел"}, &opened))
	assert.Equal(t, "disputed", opened.Order.Status)
	disputePath := "/api/disputes/" + opened.Dispute.ID.String()

	// участник не может разрешить спор
	assert.Equal(t, http.StatusForbidden, s.do("POST", disputePath+"/resolve", requester, gin.H{
		"decision": "refund_to_requester", "notes": "сам себе вернул",
	}, nil))

	require.Equal(t, http.StatusOK, s.do("POST", disputePath+"/review", mediator, nil, nil))

	var resolved struct {
		Dispute dto.DisputeResponse `json:"dispute"`
		Order   dto.OrderResponse   `json:"order"`
		Payment dto.PaymentResponse `json:"payment"`
	}
	require.Equal(t, http.StatusOK, s.do("POST", disputePath+"/resolve", mediator, gin.H{
		"decision": "refund_to_requester", "notes": "исполнитель не явился, подтверждено перепиской",
	}, &resolved))
	assert.Equal(t, "resolved", resolved.Dispute.Status)
	assert.Equal(t, "cancelled", resolved.Order.Status)
	assert.Equal(t, "refunded", resolved.Payment.Status)

	require.Equal(t, http.StatusOK, s.do("POST", disputePath+"/close", mediator, nil, nil))

	var state dto.EscrowStateResponse
	require.Equal(t, http.StatusOK, s.do("GET", orderPath+"/escrow", fulfiller, nil, &state))
	assert.Equal(t, "cancelled", state.Order.Status)
	assert.Equal(t, "refunded", state.Payment.Status)
	assert.Nil(t, state.Dispute)

	var closed dto.DisputeDetailsResponse
	require.Equal(t, http.StatusOK, s.do("GET", disputePath, requester, nil, &closed))
	assert.Equal(t, "closed", closed.Dispute.Status)

	var verify struct {
		Checked int  `json:"checked"`
		Valid   bool `json:"valid"`
	}
	require.Equal(t, http.StatusOK, s.do("GET", "/api/audit/verify", mediator, nil, &verify))
	assert.True(t, verify.Valid)
	assert.Greater(t, verify.Checked, 5)
}
