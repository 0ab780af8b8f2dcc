package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/taipei-day-trip/internal/config"
	"github.com/iliyamo/taipei-day-trip/internal/database"
	"github.com/iliyamo/taipei-day-trip/internal/handler"
	"github.com/iliyamo/taipei-day-trip/internal/middleware"
	"github.com/iliyamo/taipei-day-trip/internal/payment"
	"github.com/iliyamo/taipei-day-trip/internal/queue"
	"github.com/iliyamo/taipei-day-trip/internal/repository"
	"github.com/iliyamo/taipei-day-trip/internal/router"
	"github.com/iliyamo/taipei-day-trip/internal/service"
	"github.com/iliyamo/taipei-day-trip/internal/utils"
)

func main() {
	cfg := config.Load()
	logger := newLogger(cfg.LogLevel)
	if err := run(cfg, logger); err != nil {
		logger.Fatal(err)
	}
}

func newLogger(level string) *log.Logger {
	l := log.New("tdt")
	switch strings.ToLower(level) {
	case "debug":
		l.SetLevel(log.DEBUG)
	case "warn":
		l.SetLevel(log.WARN)
	case "error":
		l.SetLevel(log.ERROR)
	default:
		l.SetLevel(log.INFO)
	}
	return l
}

func run(cfg config.Config, logger *log.Logger) error {
	db, err := database.Open(
		database.DSN(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName),
		database.PoolOptions{
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: cfg.DBConnMaxLifetime,
		},
	)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.DBMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
		logger.Info("schema applied")
	}

	// Redis is optional: without it the limiter and the cache pass through.
	rdb := config.NewRedisClient()
	if rdb == nil {
		logger.Warn("redis unavailable; rate limiting and response cache disabled")
	} else {
		defer rdb.Close()
	}

	tokens := utils.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTLDays)
	users := repository.NewUserRepo(db)
	attractions := repository.NewAttractionRepo(db)
	bookings := repository.NewBookingRepo(db)
	orders := repository.NewOrderRepo(db)

	authSvc := service.NewAuthService(users, cfg.BcryptCost)
	bookingSvc := service.NewBookingService(bookings, attractions, cfg.Location())
	orderSvc := service.NewOrderService(service.OrderDeps{
		DB:       orders.DB(),
		Orders:   orders,
		Bookings: bookings,
		Gateway: payment.NewClient(payment.Config{
			Endpoint:   cfg.TapPay.Endpoint,
			PartnerKey: cfg.TapPay.PartnerKey,
			MerchantID: cfg.TapPay.MerchantID,
			Details:    cfg.TapPay.Details,
			Timeout:    cfg.TapPay.Timeout,
		}),
		Events:   queue.NewPublisher(cfg.RabbitMQURL, logger),
		Logger:   logger,
		Location: cfg.Location(),
	})

	e := echo.New()
	e.HideBanner = true
	e.Logger = logger
	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			logger.Infoj(log.JSON{
				"request_id": v.RequestID,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency_ms": v.Latency.Milliseconds(),
				"remote_ip":  v.RemoteIP,
			})
			return nil
		},
	}))
	// the gateway may take up to TAPPAY_TIMEOUT before we can answer
	e.Server.ReadHeaderTimeout = 5 * time.Second
	e.Server.WriteTimeout = cfg.TapPay.Timeout + 15*time.Second

	limit := middleware.RateLimit(config.LoadRateLimitConfig(), rdb)
	cache := middleware.ResponseCache(config.LoadCacheConfig(), rdb)

	router.RegisterRoutes(e, db)
	api := e.Group("/api")
	router.RegisterUser(api, handler.NewUserHandler(authSvc, tokens), tokens, limit)
	router.RegisterPublic(api, handler.NewAttractionHandler(attractions), cache)
	router.RegisterCustomer(api, handler.NewBookingHandler(bookingSvc), handler.NewOrderHandler(orderSvc), tokens, limit)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := ":" + cfg.Port
		logger.Infof("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})
	if cfg.ConsumeOrders {
		consumer := &queue.Consumer{URL: cfg.RabbitMQURL, LogDir: cfg.OrderLogDir, Logger: logger}
		g.Go(func() error { return consumer.Run(ctx) })
	}
	return g.Wait()
}
