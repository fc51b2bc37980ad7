package container

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"

	"commerce-backend/internal/config"
	infraCache "commerce-backend/internal/infrastructure/cache"
	"commerce-backend/internal/infrastructure/database"
	"commerce-backend/internal/infrastructure/queue"
	"commerce-backend/pkg/cache"
	"commerce-backend/pkg/logger"

	cartRepo "commerce-backend/internal/domains/cart/repository"
	currencyService "commerce-backend/internal/domains/currency/service"
	inventoryHandler "commerce-backend/internal/domains/inventory/handler"
	inventoryRepo "commerce-backend/internal/domains/inventory/repository"
	inventoryService "commerce-backend/internal/domains/inventory/service"
	orderHandler "commerce-backend/internal/domains/order/handler"
	orderRepo "commerce-backend/internal/domains/order/repository"
	orderService "commerce-backend/internal/domains/order/service"
	"commerce-backend/internal/domains/payment/gateway"
	gatewayMock "commerce-backend/internal/domains/payment/gateway/mock"
	"commerce-backend/internal/domains/payment/gateway/paypro"
	paymentHandler "commerce-backend/internal/domains/payment/handler"
	paymentRepo "commerce-backend/internal/domains/payment/repository"
	paymentService "commerce-backend/internal/domains/payment/service"
	reservationHandler "commerce-backend/internal/domains/reservation/handler"
	reservationRepo "commerce-backend/internal/domains/reservation/repository"
	reservationService "commerce-backend/internal/domains/reservation/service"
	"commerce-backend/internal/scheduler"
)

// Container is the root of the dependency graph. Every binary builds one
// and picks the pieces it needs.
type Container struct {
	// Infrastructure
	Config      *config.Config
	DB          *database.PostgresDB
	Cache       cache.Cache
	AsynqClient *asynq.Client
	Producer    queue.Producer
	Gateway     gateway.Gateway

	// Repositories
	Ledger          inventoryRepo.Ledger
	ReservationRepo reservationRepo.Repository
	OrderRepo       orderRepo.OrderRepository
	ShippingRepo    orderRepo.ShippingMethodRepository
	CartRepo        cartRepo.RepositoryInterface
	PaymentRepo     paymentRepo.Repository
	SweepRunRepo    scheduler.RunRepository

	// Services
	InventoryService inventoryService.Service
	Reservations     reservationService.Store
	Checkout         orderService.CheckoutService
	Lifecycle        orderService.LifecycleService
	Converter        currencyService.Converter
	PaymentService   paymentService.Service
	Sweeper          *scheduler.Sweeper

	// Handlers
	InventoryHandler   *inventoryHandler.Handler
	OrderHandler       *orderHandler.Handler
	PaymentHandler     *paymentHandler.Handler
	ReservationHandler *reservationHandler.Handler

	redisCache *infraCache.RedisCache
}

// NewContainer builds the whole graph. Failing fast here is deliberate:
// a binary with half its dependencies must not start.
func NewContainer() (*Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(cfg.App.Environment)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	db := database.NewPostgresDB(&cfg.Database)
	if err := db.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	redisCache := infraCache.NewRedisCache(cfg.Redis.Host, cfg.Redis.Password, cfg.Redis.DB)
	if err := redisCache.Connect(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Host,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	gw, err := buildGateway(cfg)
	if err != nil {
		db.Close()
		redisCache.Close()
		return nil, err
	}

	c := &Container{
		Config:      cfg,
		DB:          db,
		Cache:       redisCache,
		AsynqClient: asynqClient,
		Producer:    queue.NewProducer(asynqClient),
		Gateway:     gw,
		redisCache:  redisCache,
	}
	c.buildRepositories()
	c.buildServices()
	c.buildHandlers()
	return c, nil
}

// buildGateway picks the real provider when credentials are configured
// and the in-memory mock otherwise, so local development works without a
// merchant account.
func buildGateway(cfg *config.Config) (gateway.Gateway, error) {
	if cfg.Gateway.ShopID == "" || cfg.Gateway.Secret == "" {
		if cfg.App.Environment == "production" {
			return nil, fmt.Errorf("gateway credentials are required in production")
		}
		logger.Warn("gateway credentials not set, using mock gateway", map[string]interface{}{})
		return gatewayMock.NewGateway(), nil
	}
	return paypro.NewClient(&paypro.Config{
		ShopID:    cfg.Gateway.ShopID,
		SecretKey: cfg.Gateway.Secret,
		BaseURL:   cfg.Gateway.BaseURL,
		Sandbox:   cfg.Gateway.Sandbox,
		Timeout:   cfg.Gateway.Timeout,
	})
}

func (c *Container) buildRepositories() {
	pool := c.DB.Pool
	c.Ledger = inventoryRepo.NewLedger(pool, c.Config.Database.LockTimeout)
	c.ReservationRepo = reservationRepo.NewRepository(pool)
	c.OrderRepo = orderRepo.NewOrderRepository(pool)
	c.ShippingRepo = orderRepo.NewShippingMethodRepository(pool)
	c.CartRepo = cartRepo.NewRepository(pool)
	c.PaymentRepo = paymentRepo.NewRepository(pool)
	c.SweepRunRepo = scheduler.NewRunRepository(pool)
}

func (c *Container) buildServices() {
	pool := c.DB.Pool
	cfg := c.Config

	c.InventoryService = inventoryService.NewService(c.Ledger)
	c.Reservations = reservationService.NewStore(pool, c.ReservationRepo, c.Ledger, cfg.Reserve.TTL)
	c.Lifecycle = orderService.NewLifecycleService(pool, c.OrderRepo, c.Reservations)
	c.Checkout = orderService.NewCheckoutService(pool, c.OrderRepo, c.ShippingRepo, c.CartRepo,
		c.Ledger, c.Reservations, c.Producer, cfg.Currency.OrderCurrency)

	fallbackRate, err := decimal.NewFromString(cfg.Currency.FallbackRate)
	if err != nil {
		fallbackRate = decimal.NewFromInt(1)
	}
	c.Converter = currencyService.NewConverter(c.Cache,
		currencyService.NewRateFetcher(cfg.Currency.ExchangeAPIKey),
		fallbackRate, cfg.Currency.CacheTTL)

	c.PaymentService = paymentService.NewService(c.Gateway, c.PaymentRepo, c.OrderRepo,
		c.Lifecycle, c.Converter, paymentService.Config{
			PaymentCurrency: cfg.Currency.PaymentCurrency,
			FrontendURL:     cfg.App.FrontendURL,
			BackendURL:      cfg.App.BackendURL,
		})

	c.Sweeper = scheduler.NewSweeper(c.Reservations, c.OrderRepo, c.Lifecycle,
		c.PaymentService, c.SweepRunRepo)
}

func (c *Container) buildHandlers() {
	c.InventoryHandler = inventoryHandler.NewHandler(c.InventoryService)
	c.OrderHandler = orderHandler.NewHandler(c.Checkout, c.Lifecycle)
	c.PaymentHandler = paymentHandler.NewHandler(c.PaymentService, c.Gateway)
	c.ReservationHandler = reservationHandler.NewHandler(c.Reservations)
}

// Cleanup releases every held connection. Safe to call once on shutdown.
func (c *Container) Cleanup() {
	if c.AsynqClient != nil {
		if err := c.AsynqClient.Close(); err != nil {
			logger.Error("failed to close asynq client", err)
		}
	}
	if c.redisCache != nil {
		if err := c.redisCache.Close(); err != nil {
			logger.Error("failed to close redis", err)
		}
	}
	if c.DB != nil {
		c.DB.Close()
	}
}
