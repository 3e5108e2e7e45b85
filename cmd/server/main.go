package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/edu-platform/internal/auth"
	"github.com/iliyamo/edu-platform/internal/catalog"
	"github.com/iliyamo/edu-platform/internal/config"
	"github.com/iliyamo/edu-platform/internal/database"
	"github.com/iliyamo/edu-platform/internal/handler"
	"github.com/iliyamo/edu-platform/internal/ledger"
	"github.com/iliyamo/edu-platform/internal/mail"
	"github.com/iliyamo/edu-platform/internal/middleware"
	"github.com/iliyamo/edu-platform/internal/model"
	"github.com/iliyamo/edu-platform/internal/payment"
	"github.com/iliyamo/edu-platform/internal/queue"
	"github.com/iliyamo/edu-platform/internal/repository"
	"github.com/iliyamo/edu-platform/internal/router"
	"github.com/iliyamo/edu-platform/internal/service"
)

func main() {
	cfg := config.Load() // Load environment config
	if cfg.Env == "dev" {
		log.SetLevel(log.DEBUG)
	}
	ctx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	// ---- Storage ----
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("mysql: %v", err)
	}
	if cfg.Session.MigrateOnStart {
		if err := database.Migrate(ctx, db); err != nil {
			log.Fatalf("migrate: %v", err)
		}
	}
	rdb, err := config.NewRedisClient(ctx)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}

	accounts := repository.NewAccountRepo(db)
	tokens := repository.NewTokenRepo(db)
	receipts := repository.NewReceiptRepo(db)
	payments := repository.NewPaymentRepo(db)

	// ---- Mail ----
	mailer := mail.NewMailer(cfg.Mail)
	var notifier auth.Notifier = mailer
	if cfg.AMQPURL != "" {
		notifier = service.NewResetMailPublisher(cfg.AMQPURL)
		if cfg.Mail.ConsumerEnable {
			go func() {
				if err := queue.StartMailConsumer(ctx, cfg.AMQPURL, mailer); err != nil && !errors.Is(err, context.Canceled) {
					log.Errorf("mail consumer stopped: %v", err)
				}
			}()
		}
	} else {
		log.Info("AMQP_URL not set, reset mail goes straight to SMTP")
	}

	// ---- Services ----
	authSvc := auth.NewService(auth.Config{
		Secret:         cfg.JWTSecret,
		AccessTTL:      cfg.AccessTTL(),
		RefreshTTL:     cfg.RefreshTTL(),
		ResetCodeTTL:   cfg.Session.ResetCodeTTL,
		ResetPermitTTL: cfg.Session.ResetPermitTTL,
		MaxActive:      cfg.Session.MaxActive,
		BcryptCost:     cfg.BcryptCost,
	}, accounts, tokens,
		repository.NewBlacklistStore(rdb, cfg.Session.RedisPrefix),
		repository.NewResetCodeStore(rdb, cfg.Session.RedisPrefix).WithMaxAttempts(cfg.Session.ResetAttempts),
		notifier)

	cacheCfg := config.LoadCacheConfig()
	catalogSvc := catalog.NewService(repository.NewCatalogRepo(db), func(ctx context.Context) {
		if err := middleware.InvalidateCache(ctx, rdb, cacheCfg.Prefix); err != nil {
			log.Warnf("catalog cache invalidation failed: %v", err)
		}
	})
	ledgerSvc := ledger.NewService(accounts, receipts, payments, catalogSvc,
		payment.NewStubGateway(cfg.Payment.CheckoutBaseURL), cfg.Payment.DefaultMethod)

	// ---- HTTP ----
	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(log.Level())
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			c.Logger().Infof("%s %s %d %s", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))

	h := router.Handlers{
		StudentAuth: handler.NewAuthHandler(authSvc, model.KindStudent, cfg.Cookie),
		AdminAuth:   handler.NewAuthHandler(authSvc, model.KindAdmin, cfg.Cookie),
		TeacherAuth: handler.NewAuthHandler(authSvc, model.KindTeacher, cfg.Cookie),
		Accounts:    handler.NewAccountHandler(authSvc),
		Catalog:     handler.NewCatalogHandler(catalogSvc),
		Ledger:      handler.NewLedgerHandler(ledgerSvc),
	}
	router.RegisterRoutes(e, map[string]handler.Check{
		"mysql": db.PingContext,
		"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	})
	router.RegisterAuth(e, h, middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	router.RegisterStudent(e, h, cfg.JWTSecret)
	router.RegisterAdmin(e, h, cfg.JWTSecret)
	router.RegisterCatalog(e, h, middleware.NewRedisCache(cacheCfg, rdb))

	addr := ":" + cfg.Port
	go func() {
		log.Infof("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.Shutdown,
		map[string]gfshutdown.Operation{
			"edu-platform": func(ctx context.Context) error {
				log.Info("graceful shutdown initiated")
				stopBackground()
				err := e.Shutdown(ctx)
				return errors.Join(err, rdb.Close(), db.Close())
			},
		},
	)
	exitCode := <-wait
	log.Infof("exited with code %d", exitCode)
	os.Exit(exitCode)
}
