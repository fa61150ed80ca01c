package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-backend/internal/http/middleware"
	"github.com/ignatzorin/escrow-backend/internal/interface/http/dto"
	"github.com/ignatzorin/escrow-backend/internal/interface/http/response"
	"github.com/ignatzorin/escrow-backend/internal/usecase/audit"
	"github.com/ignatzorin/escrow-backend/internal/usecase/order"
	"github.com/ignatzorin/escrow-backend/internal/usecase/usecasetest"
)

var money = dto.MoneyCodec{Decimals: 2}

// asUser подставляет пользователя так, как это делает AuthMiddleware.
func asUser(id uuid.UUID, role valueobject.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserIDKey, id)
		c.Set(middleware.ContextRoleKey, role)
		c.Next()
	}
}

func perform(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req, _ = http.NewRequest(method, path, nil)
	} else {
		req, _ = http.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	return body.Error.Code
}

func TestOrderHandler_Submit_Unauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := NewOrderHandler(OrderUseCases{}, money)
	r.POST("/orders", handler.Submit)

	w := perform(r, "POST", "/orders", `{}`)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOrderHandler_Accept_InvalidOrderID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := NewOrderHandler(OrderUseCases{}, money)
	r.POST("/orders/:id/accept", asUser(uuid.New(), valueobject.RoleFulfiller), handler.Accept)

	w := perform(r, "POST", "/orders/invalid-uuid/accept", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOrderHandler_CapturePayment_InvalidMethod(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := NewOrderHandler(OrderUseCases{}, money)
	r.POST("/orders/:id/payment", asUser(uuid.New(), valueobject.RoleRequester), handler.CapturePayment)

	w := perform(r, "POST", "/orders/"+uuid.NewString()+"/payment", `{"method":"bank card"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOrderHandler_Lifecycle(t *testing.T) {
	gin.SetMode(gin.TestMode)
	env := usecasetest.New(t)
	svc := env.Service(t, 150000)

	orders := NewOrderHandler(OrderUseCases{
		Submit:  env.Submit,
		Accept:  env.Accept,
		Capture: env.Capture,
		Get:     order.NewGetOrderUseCase(env.Store),
	}, money)
	steps := NewExecutionHandler(ExecutionUseCases{
		MarkStart:     env.MarkStart,
		ConfirmStart:  env.ConfirmStart,
		MarkFinish:    env.MarkFinish,
		ConfirmFinish: env.ConfirmFinish,
	}, money)

	r := gin.New()
	requester := r.Group("/", asUser(env.Requester.ID, valueobject.RoleRequester))
	requester.POST("/orders", orders.Submit)
	requester.GET("/orders/:id", orders.Get)
	requester.POST("/orders/:id/payment", orders.CapturePayment)
	requester.POST("/orders/:id/start/confirm", steps.ConfirmStart)
	requester.POST("/orders/:id/finish/confirm", steps.ConfirmFinish)

	fulfiller := r.Group("/as-fulfiller", asUser(env.Fulfiller.ID, valueobject.RoleFulfiller))
	fulfiller.POST("/orders/:id/accept", orders.Accept)
	fulfiller.POST("/orders/:id/start", steps.MarkStart)
	fulfiller.POST("/orders/:id/finish", steps.MarkFinish)

	w := perform(r, "POST", "/orders", `{"fulfiller_id":"`+env.Fulfiller.ID.String()+`","service_id":"`+svc.ID.String()+`","pricing_mode":"fixed","total_amount":1500.00,"location":"Москва"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		Data dto.OrderResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "sent", created.Data.Status)
	assert.Equal(t, 1500.0, created.Data.TotalAmount)
	id := created.Data.ID.String()

	// подтвердить начало до оплаты нельзя
	w = perform(r, "POST", "/orders/"+id+"/start/confirm", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "INVALID_STATE_TRANSITION", decodeError(t, w))

	w = perform(r, "POST", "/as-fulfiller/orders/"+id+"/accept", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = perform(r, "POST", "/orders/"+id+"/payment", `{"method":"card"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var paid struct {
		Data dto.EscrowStateResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &paid))
	assert.Equal(t, "paid_escrow_held", paid.Data.Order.Status)
	assert.Equal(t, 1500.0, paid.Data.Payment.GrossAmount)
	assert.Equal(t, 150.0, paid.Data.Payment.OperatorFee)
	assert.Equal(t, 1350.0, paid.Data.Payment.NetAmount)

	for _, path := range []string{
		"/as-fulfiller/orders/" + id + "/start",
		"/orders/" + id + "/start/confirm",
		"/as-fulfiller/orders/" + id + "/finish",
		"/orders/" + id + "/finish/confirm",
	} {
		w = perform(r, "POST", path, "")
		require.Equal(t, http.StatusOK, w.Code, path+": "+w.Body.String())
	}

	var done struct {
		Data dto.EscrowStateResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &done))
	assert.Equal(t, "completed", done.Data.Order.Status)
	assert.Equal(t, "released", done.Data.Payment.Status)
	require.NotNil(t, done.Data.Execution)
	assert.True(t, done.Data.Execution.RequesterConfirmedFinish)
	assert.Equal(t, 1, env.Gateway.PayoutCount())
}

func TestOrderHandler_Get_Forbidden(t *testing.T) {
	gin.SetMode(gin.TestMode)
	env := usecasetest.New(t)
	o := env.SentOrder(t, 10000)

	handler := NewOrderHandler(OrderUseCases{Get: order.NewGetOrderUseCase(env.Store)}, money)
	r := gin.New()
	r.GET("/orders/:id", asUser(uuid.New(), valueobject.RoleRequester), handler.Get)

	w := perform(r, "GET", "/orders/"+o.ID.String(), "")

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestExecutionHandler_WrongParticipant(t *testing.T) {
	gin.SetMode(gin.TestMode)
	env := usecasetest.New(t)
	paid := env.PaidOrder(t, 10000)

	handler := NewExecutionHandler(ExecutionUseCases{MarkStart: env.MarkStart}, money)
	r := gin.New()
	r.POST("/orders/:id/start", asUser(env.Requester.ID, valueobject.RoleRequester), handler.MarkStart)

	w := perform(r, "POST", "/orders/"+paid.Order.ID.String()+"/start", "")

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", decodeError(t, w))
}

func TestDisputeHandler_Resolve_MissingNotes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := NewDisputeHandler(DisputeUseCases{}, money, 1)
	r.POST("/disputes/:id/resolve", asUser(uuid.New(), valueobject.RoleMediator), handler.Resolve)

	w := perform(r, "POST", "/disputes/"+uuid.NewString()+"/resolve", `{"decision":"refund_to_requester"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPaymentHandler_Hold_Unauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := NewPaymentHandler(nil, money)
	r.POST("/payments/:id/hold", handler.Hold)

	w := perform(r, "POST", "/payments/"+uuid.NewString()+"/hold", `{"reason":"проверка"}`)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuditHandler_Verify_RequiresMediator(t *testing.T) {
	gin.SetMode(gin.TestMode)
	env := usecasetest.New(t)
	env.SentOrder(t, 10000)

	handler := NewAuditHandler(audit.NewListAuditUseCase(env.Store), audit.NewVerifyChainUseCase(env.Store))
	r := gin.New()
	r.GET("/audit/verify/requester", asUser(env.Requester.ID, valueobject.RoleRequester), handler.Verify)
	r.GET("/audit/verify/mediator", asUser(env.Mediator.ID, valueobject.RoleMediator), handler.Verify)

	w := perform(r, "GET", "/audit/verify/requester", "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = perform(r, "GET", "/audit/verify/mediator", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data struct {
			Checked int  `json:"checked"`
			Valid   bool `json:"valid"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Data.Valid)
	assert.Equal(t, 2, body.Data.Checked)
}
