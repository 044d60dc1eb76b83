package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"orderhub/config"
	"orderhub/internal/cache"
	"orderhub/internal/catalog"
	"orderhub/internal/cleanup"
	"orderhub/internal/emitters"
	"orderhub/internal/eventbus"
	"orderhub/internal/inventory"
	"orderhub/internal/producer"
	"orderhub/internal/realtime"
	"orderhub/internal/repository"
	"orderhub/internal/service"
	"orderhub/internal/token"
	"orderhub/internal/transport/http/handlers"
	"orderhub/internal/transport/http/router"
	"orderhub/pkg/database"
	"orderhub/pkg/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

func main() {
	_ = godotenv.Load()
	isDev := os.Getenv("ENV") == "development"
	if err := logger.Init(isDev); err != nil {
		panic(err)
	}

	defer logger.Sync()

	log := logger.L()

	cfg := config.Load(log)
	db := database.ConnectDB(&cfg.DB.Config, log)
	defer database.CloseDB(db, log)

	repos := repository.New(db)

	bus := eventbus.New(eventbus.ConfigFrom(cfg.EventBus), log)
	orderEvents := emitters.NewOrderEmitter(bus, log)
	productEvents := emitters.NewProductEmitter(bus, log)
	userEvents := emitters.NewUserEmitter(bus, log)

	// Redis необязателен: без него кэш и realtime отключены
	var (
		invalidator emitters.CacheInvalidator = emitters.NopCache{}
		rtChannel   emitters.RealtimeChannel  = emitters.NopRealtime{}
		orderCache  service.OrderCache
		subscriber  handlers.RealtimeSubscriber
	)
	if cfg.Redis.Enabled {
		rc, err := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.OrderTTL, log)
		if err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer rc.Close()
		hub := realtime.NewHub(rc.Client(), log)
		invalidator, orderCache = rc, rc
		rtChannel, subscriber = hub, hub
	} else {
		log.Warn("redis disabled: order cache and realtime are off")
	}

	if len(cfg.Kafka.Brokers) == 0 {
		log.Fatal("no kafka brokers configured (KAFKA_BROKERS)")
	}
	emailProducer := producer.NewEmailProducer(cfg.Kafka.Brokers, cfg.Kafka.EmailTopic, log)
	defer emailProducer.Close()
	indexer := producer.NewSearchIndexer(cfg.Kafka.Brokers, cfg.Kafka.SearchIndexTopic, log)
	defer indexer.Close()
	notifier := producer.NewNotifier(emailProducer, repos.Users, log)

	(&emitters.OrderHandlers{Cache: invalidator, Realtime: rtChannel, Mailer: notifier, Log: log}).Register(bus)
	(&emitters.ProductHandlers{Search: indexer, Cache: invalidator, Realtime: rtChannel, Log: log}).Register(bus)
	(&emitters.UserHandlers{Mailer: notifier, Cache: invalidator, Log: log}).Register(bus)

	go func() {
		for f := range bus.Failures() {
			log.Error("event handler gave up",
				zap.String("type", f.Event.Type.String()),
				zap.String("request_id", f.Event.Metadata.RequestID),
				zap.String("handler", f.Handler),
				zap.Int("attempts", f.Attempts),
				zap.Error(f.Err),
			)
		}
	}()
	bus.Start()

	manager := inventory.NewManager(repos, log,
		inventory.WithObserver(productEvents),
		inventory.WithDefaultTTL(cfg.Stock.ReservationTTL),
	)
	stockSvc := inventory.NewStockService(repos, log, productEvents)

	orderSvc := service.NewOrderService(service.Deps{
		Carts:          repos.Carts,
		Orders:         repos.Orders,
		Users:          repos.Users,
		Stock:          manager,
		Notifier:       notifier,
		Cache:          invalidator,
		OrderCache:     orderCache,
		Realtime:       rtChannel,
		Events:         orderEvents,
		CartEvents:     userEvents,
		ReservationTTL: cfg.Stock.ReservationTTL,
	}, log)
	productSvc := catalog.NewProductService(repos, productEvents, log)
	shopperSvc := catalog.NewShopperService(repos, userEvents, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := cleanup.NewScheduler(cleanup.NewCleanupService(db, repos.Reservations, manager, log), cfg.Stock.SweepInterval, log)
	sched.Start(ctx)

	systemHandler := handlers.NewSystemHandler(bus, subscriber, log)
	engine := router.Router(router.Deps{
		Verifier:      token.NewHSProvider(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Audience),
		Orders:        handlers.NewOrderHandler(orderSvc, log),
		Catalog:       handlers.NewCatalogHandler(productSvc, stockSvc, shopperSvc, log),
		System:        systemHandler,
		WebhookSecret: cfg.PaymentWebhookSecret,
		ServiceSecret: cfg.ServiceSecret,
		AllowOrigins:  cfg.CORSAllowOrigins,
	}, log)

	srv := &http.Server{
		Addr:              cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	// иначе открытый SSE поток держит Shutdown до таймаута
	srv.RegisterOnShutdown(systemHandler.CloseStreams)

	lis, err := net.Listen("tcp", cfg.GRPCPort)
	if err != nil {
		log.Fatal("failed to listen", zap.Error(err))
	}
	grpcServer := grpc.NewServer()

	// Health server
	healthSrv := health.NewServer()
	healthSrv.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	grpc_health_v1.RegisterHealthServer(grpcServer, healthSrv)

	// Reflection for local debugging
	reflection.Register(grpcServer)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info("Starting health gRPC server", zap.String("addr", cfg.GRPCPort))
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatal("gRPC server failed", zap.Error(err))
		}
	}()
	go func() {
		log.Info("Starting HTTP server", zap.String("addr", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	<-quit
	log.Info("Shutting down...")
	healthSrv.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	// сначала дожидаемся запросов в полёте: оформление заказа должно доиграть до конца
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", zap.Error(err))
	}
	cancel()
	sched.Stop()
	if err := bus.Close(shutdownCtx); err != nil {
		log.Warn("event bus did not stop cleanly", zap.Error(err))
	}
	grpcServer.GracefulStop()
	log.Info("Server stopped gracefully")
}
