package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bvstock/config"
	"bvstock/controllers"
	"bvstock/middleware"
	"bvstock/routes"
	"bvstock/services"
	"bvstock/store"
	"bvstock/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-co-op/gocron"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

func main() {
	app := &cli.App{
		Name:  "bvstock",
		Usage: "stock, distributor and BV sales tracking API",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "memory", Usage: "use the in-memory store instead of MongoDB"},
		},
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API and the low-stock scheduler",
				Flags:  []cli.Flag{&cli.BoolFlag{Name: "memory", Usage: "use the in-memory store instead of MongoDB"}},
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "create MongoDB indexes",
				Action: migrate,
			},
			{
				Name:  "seed",
				Usage: "create the default users and optionally stock the catalog",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "catalog", Usage: "units to add for every catalog product (0 skips)"},
				},
				Action: seed,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func bootstrap() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger := config.NewLogger(cfg.LogLevel)
	utils.InitJWT(cfg.JWTSecret)
	return cfg, logger, nil
}

// openStore returns the configured store and a func that releases it.
func openStore(cfg *config.Config, logger *logrus.Logger, memory bool) (store.Store, func(), error) {
	if memory {
		logger.Warn("using in-memory store; data is lost on exit")
		return store.NewMemory(), func() {}, nil
	}

	client, err := config.ConnectDatabase(cfg.MongoURI, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to MongoDB: %w", err)
	}
	closeFn := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(ctx)
	}
	return store.NewMongo(client, cfg.MongoDB, cfg.MongoTransactions), closeFn, nil
}

func migrate(c *cli.Context) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	st, closeFn, err := openStore(cfg, logger, false)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := st.EnsureIndexes(c.Context); err != nil {
		return err
	}
	logger.Info("indexes ensured")
	return nil
}

func seed(c *cli.Context) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	if err := cfg.RequireSecrets(); err != nil {
		return err
	}
	st, closeFn, err := openStore(cfg, logger, false)
	if err != nil {
		return err
	}
	defer closeFn()

	return seedStore(c.Context, st, cfg, logger, c.Int("catalog"))
}

func seedStore(ctx context.Context, st store.Store, cfg *config.Config, logger *logrus.Logger, catalogUnits int) error {
	seeded, err := services.SeedUsers(ctx, st, cfg.SeedAdminPassword, cfg.SeedStaffPassword)
	if err != nil {
		return err
	}
	logger.WithField("created", seeded).Info("default users checked")

	if catalogUnits > 0 {
		created, err := services.SeedCatalog(ctx, st, catalogUnits)
		if err != nil {
			return err
		}
		logger.WithField("created", created).Info("catalog stocked")
	}
	return nil
}

func serve(c *cli.Context) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}

	memory := c.Bool("memory")
	if memory {
		if keys := cfg.InsecureDefaults(); len(keys) > 0 {
			logger.WithField("keys", keys).Warn("development secrets in use")
		}
	} else if err := cfg.RequireSecrets(); err != nil {
		return err
	}

	st, closeFn, err := openStore(cfg, logger, memory)
	if err != nil {
		return err
	}
	defer closeFn()

	if memory {
		if err := seedStore(c.Context, st, cfg, logger, 0); err != nil {
			return err
		}
	} else if err := st.EnsureIndexes(c.Context); err != nil {
		config.LogError(logger, "main", "serve", "ensuring indexes", nil, err)
	}

	var locker store.Locker = store.NoopLocker{}
	if rdb := config.ConnectRedis(cfg.RedisAddress, cfg.RedisPassword, logger); rdb != nil {
		defer rdb.Close()
		locker = store.NewRedisLocker(rdb, logger)
	}

	ctl := &controllers.Controller{
		Store:             st,
		Sales:             services.NewSaleService(st, locker, services.BVSource(cfg.SaleBVSource), logger),
		Logger:            logger,
		PhoneRegion:       cfg.PhoneRegion,
		LowStockThreshold: cfg.LowStockThreshold,
		SecureCookies:     !memory,
	}
	if cfg.StorageEnabled() {
		photos, err := utils.NewPhotoStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.CDNBase, cfg.MinioSecure)
		if err != nil {
			return err
		}
		ctl.Photos = photos
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(logger), otelgin.Middleware("bvstock"))

	middleware.InitMetrics(prometheus.DefaultRegisterer, services.Collectors()...)
	r.Use(middleware.PrometheusMiddleware())
	r.GET("/metrics", func(c *gin.Context) {
		if !cfg.MetricsAllowed(c.ClientIP()) {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		promhttp.Handler().ServeHTTP(c.Writer, c.Request)
	})

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
	}))

	if err := routes.InitializeRoutes(r, ctl); err != nil {
		return err
	}

	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return err
	}
	var mailer services.Mailer
	if cfg.MailEnabled() {
		mailer = utils.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)
	}
	scheduler := gocron.NewScheduler(location)
	job := services.NewLowStockJob(st, cfg.LowStockThreshold, mailer, cfg.AlertEmail, logger)
	if err := job.Schedule(scheduler, cfg.LowStockAt); err != nil {
		return err
	}
	scheduler.StartAsync()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("port", cfg.Port).Info("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
