package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/escrow-backend/internal/config"
	"github.com/ignatzorin/escrow-backend/internal/db"
	"github.com/ignatzorin/escrow-backend/internal/domain/gateway"
	"github.com/ignatzorin/escrow-backend/internal/domain/repository"
	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-backend/internal/goroutine"
	httpRouter "github.com/ignatzorin/escrow-backend/internal/http/router"
	gatewayAdapter "github.com/ignatzorin/escrow-backend/internal/infrastructure/gateway"
	"github.com/ignatzorin/escrow-backend/internal/infrastructure/kafka"
	"github.com/ignatzorin/escrow-backend/internal/infrastructure/memory"
	"github.com/ignatzorin/escrow-backend/internal/infrastructure/persistence"
	"github.com/ignatzorin/escrow-backend/internal/interface/http/dto"
	"github.com/ignatzorin/escrow-backend/internal/interface/http/handler"
	"github.com/ignatzorin/escrow-backend/internal/logger"
	"github.com/ignatzorin/escrow-backend/internal/metrics"
	"github.com/ignatzorin/escrow-backend/internal/service"
	"github.com/ignatzorin/escrow-backend/internal/storage"
	"github.com/ignatzorin/escrow-backend/internal/usecase/audit"
	"github.com/ignatzorin/escrow-backend/internal/usecase/catalog"
	"github.com/ignatzorin/escrow-backend/internal/usecase/dispute"
	"github.com/ignatzorin/escrow-backend/internal/usecase/escrow"
	"github.com/ignatzorin/escrow-backend/internal/usecase/execution"
	"github.com/ignatzorin/escrow-backend/internal/usecase/lifecycle"
	"github.com/ignatzorin/escrow-backend/internal/usecase/order"
	"github.com/ignatzorin/escrow-backend/internal/usecase/relay"
	"github.com/ignatzorin/escrow-backend/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	logger.Init(cfg.LogLevel)
	if cfg.Env == "development" {
		logger.SetTextFormatter()
	}
	lg := logger.Get()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	escrowMetrics := metrics.New(registry)

	store, closeStore := buildStore(ctx, cfg, lg)
	defer closeStore()

	gw := buildGateway(cfg, lg)
	fees, err := valueobject.NewFeePolicy(cfg.Escrow.FeeBps)
	if err != nil {
		lg.Fatalf("main: некорректная комиссия: %v", err)
	}
	ledger, err := escrow.NewLedger(gw, escrow.Config{
		Fees:       fees,
		MaxRetries: cfg.Gateway.MaxRetries,
		RetryDelay: cfg.Gateway.RetryDelay,
	}, escrowMetrics)
	if err != nil {
		lg.Fatalf("main: не удалось создать леджер: %v", err)
	}

	evidenceStorage, err := storage.NewEvidenceStorage(cfg.EvidenceDir, cfg.EvidenceMaxMB)
	if err != nil {
		lg.Fatalf("main: не удалось подготовить файловое хранилище: %v", err)
	}

	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL)

	// Сценарии.
	recorder := lifecycle.NewRecorder(escrowMetrics)
	runner := lifecycle.NewRunner(store, recorder, escrowMetrics)

	// Вебсокеты и ретранслятор событий.
	recovery := goroutine.NewRecoveryHandler(lg)
	hub := ws.NewHub()
	recovery.SafeGoWithContext(ctx, hub.Run)

	sinks := []relay.Sink{hub}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher := kafka.NewOrderPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer func() {
			if err := publisher.Close(); err != nil {
				lg.WithError(err).Warn("main: ошибка закрытия kafka writer")
			}
		}()
		sinks = append(sinks, publisher)
	}
	dispatcher := relay.NewDispatcher(store, relay.Config{
		BatchSize:    cfg.Relay.BatchSize,
		PollInterval: cfg.Relay.PollInterval,
	}, escrowMetrics, sinks...)
	recovery.SafeGoWithContext(ctx, dispatcher.Run)

	// HTTP хэндлеры.
	money := dto.MoneyCodec{Decimals: cfg.Escrow.CurrencyDecimals}
	handlers := httpRouter.Handlers{
		Orders: handler.NewOrderHandler(handler.OrderUseCases{
			Submit:     order.NewSubmitOrderUseCase(store, recorder),
			Accept:     order.NewAcceptOrderUseCase(runner),
			Reject:     order.NewRejectOrderUseCase(runner),
			Counter:    order.NewCounterOfferUseCase(runner),
			Finalize:   order.NewFinalizeDetailsUseCase(runner),
			Cancel:     order.NewCancelOrderUseCase(runner),
			Capture:    order.NewCapturePaymentUseCase(runner, ledger),
			Get:        order.NewGetOrderUseCase(store),
			List:       order.NewListOrdersUseCase(store),
			EscrowView: order.NewGetEscrowViewUseCase(store),
		}, money),
		Execution: handler.NewExecutionHandler(handler.ExecutionUseCases{
			MarkStart:     execution.NewMarkStartUseCase(runner),
			ConfirmStart:  execution.NewConfirmStartUseCase(runner),
			MarkFinish:    execution.NewMarkFinishUseCase(runner),
			ConfirmFinish: execution.NewConfirmFinishUseCase(runner, ledger),
		}, money),
		Disputes: handler.NewDisputeHandler(handler.DisputeUseCases{
			Open:        dispute.NewOpenDisputeUseCase(runner),
			BeginReview: dispute.NewBeginReviewUseCase(store, recorder),
			Resolve:     dispute.NewResolveDisputeUseCase(store, ledger, recorder, escrowMetrics),
			Close:       dispute.NewCloseDisputeUseCase(store, recorder),
			Get:         dispute.NewGetDisputeUseCase(store),
			List:        dispute.NewListDisputesUseCase(store),
			AddEvidence: dispute.NewAddEvidenceUseCase(store, evidenceStorage, recorder),
		}, money, cfg.EvidenceMaxMB),
		Payments: handler.NewPaymentHandler(escrow.NewHoldPaymentUseCase(store, ledger, recorder), money),
		Audit:    handler.NewAuditHandler(audit.NewListAuditUseCase(store), audit.NewVerifyChainUseCase(store)),
		Catalog:  handler.NewCatalogHandler(catalog.NewServiceUseCases(store, recorder), money),
		WS:       handler.NewWSHandler(hub, tokenManager, cfg.AllowedOrigins),
		Health:   handler.NewHealthHandler(store, hub),
	}
	if cfg.Env == "development" {
		handlers.Dev = handler.NewDevHandler(tokenManager)
	}

	engine := httpRouter.SetupRouter(cfg, handlers, tokenManager, registry)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.WithError(err).Error("main: ошибка остановки http сервера")
		}
	}()

	lg.WithFields(logrus.Fields{
		"port":    cfg.HTTPPort,
		"store":   cfg.Store,
		"fee_bps": cfg.Escrow.FeeBps,
		"kafka":   len(cfg.Kafka.Brokers) > 0,
	}).Info("main: HTTP сервер запущен")

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		lg.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// buildStore выбирает хранилище леджера и возвращает функцию его закрытия.
func buildStore(ctx context.Context, cfg *config.Config, lg *logrus.Logger) (repository.Store, func()) {
	if cfg.Store == config.StoreMemory {
		lg.Warn("main: используется хранилище в памяти, данные не сохраняются между запусками")
		return memory.NewStore(), func() {}
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		lg.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	if err := db.RunMigrations(dbConn, lg); err != nil {
		lg.Fatalf("main: ошибка миграций: %v", err)
	}
	return persistence.NewStore(dbConn), func() {
		if err := dbConn.Close(); err != nil {
			lg.WithError(err).Error("main: ошибка закрытия базы")
		}
	}
}

func buildGateway(cfg *config.Config, lg *logrus.Logger) gateway.PaymentGateway {
	if cfg.Gateway.URL != "" {
		return gatewayAdapter.NewHTTPGateway(cfg.Gateway.URL, cfg.Gateway.APIKey, cfg.Gateway.Timeout)
	}
	lg.Warn("main: GATEWAY_URL не задан, платежи проходят через песочницу")
	sandbox, err := gatewayAdapter.NewSandbox()
	if err != nil {
		lg.Fatalf("main: не удалось создать песочницу платежей: %v", err)
	}
	return sandbox
}
