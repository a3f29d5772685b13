package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ledgerpipe/ledgerpipe/internal/approval"
	"github.com/ledgerpipe/ledgerpipe/internal/cache"
	"github.com/ledgerpipe/ledgerpipe/internal/config"
	"github.com/ledgerpipe/ledgerpipe/internal/events"
	"github.com/ledgerpipe/ledgerpipe/internal/httpapi/handlers"
	"github.com/ledgerpipe/ledgerpipe/internal/httpapi/middleware"
	"github.com/ledgerpipe/ledgerpipe/internal/normalize"
	"github.com/ledgerpipe/ledgerpipe/internal/numbering"
	"github.com/ledgerpipe/ledgerpipe/internal/redisclient"
	"github.com/ledgerpipe/ledgerpipe/internal/run"
	"github.com/ledgerpipe/ledgerpipe/internal/storage"
	"github.com/ledgerpipe/ledgerpipe/internal/storage/fsstore"
	"github.com/ledgerpipe/ledgerpipe/internal/storage/s3store"
	"github.com/ledgerpipe/ledgerpipe/internal/store"
	"github.com/ledgerpipe/ledgerpipe/internal/taxstage"
	"github.com/ledgerpipe/ledgerpipe/internal/template"
)

func main() {
	cfg, err := config.Load("ledgerpipe")
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	db, err := store.Open(cfg.GetDatabaseDSN())
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	log.Println("connected to database")

	objStore, err := newObjectStore(cfg)
	if err != nil {
		log.Fatalf("failed to initialize object storage: %v", err)
	}

	emitter := newEventEmitter(cfg)
	splitCache := newSplitCache(cfg)

	allocator := numbering.NewDBAllocator(db)
	coordinator := &run.Coordinator{
		DB:           db,
		Storage:      objStore,
		Events:       emitter,
		Normalizer:   normalize.Lookup(normalize.DefaultRegistry()),
		Allocator:    taxstage.New(allocator, cfg.Pipeline.CompanyStateTable).WithCache(splitCache),
		Templates:    template.NewRegistry(map[string]string{}, cfg.Pipeline.TemplateRegistryPath),
		BucketPrefix: cfg.Storage.BucketPrefix,
		StateTable:   cfg.Pipeline.CompanyStateTable,
	}
	approvalQueue := approval.New(db)

	runHandler := handlers.NewRunHandler(coordinator, db)
	expenseHandler := handlers.NewExpenseHandler(coordinator)
	approvalHandler := handlers.NewApprovalHandler(approvalQueue)
	healthHandler := handlers.NewHealthHandler(db)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.Recovery(), middleware.RequestID(), middleware.CORS([]string{"*"}), middleware.GSTINScope(), middleware.Logger())

	router.GET("/health", healthHandler.Health)
	router.GET("/livez", healthHandler.Liveness)
	router.GET("/readyz", healthHandler.Readiness)

	v1 := router.Group("/api/v1")
	{
		runs := v1.Group("/runs")
		{
			runs.POST("", runHandler.CreateRun)
			runs.GET("/:id", runHandler.GetRun)
		}

		expenseRuns := v1.Group("/expense-runs")
		{
			expenseRuns.POST("", expenseHandler.CreateExpenseRun)
		}

		approvals := v1.Group("/approvals")
		{
			approvals.GET("", approvalHandler.List)
			approvals.POST("/item/:id/decide", approvalHandler.DecideItem)
			approvals.POST("/ledger/:id/decide", approvalHandler.DecideLedger)
		}
	}

	srv := &http.Server{
		Addr:    cfg.GetServerAddress(),
		Handler: router,
	}

	go func() {
		log.Printf("ledgerpipe service starting on %s (env: %s)", cfg.GetServerAddress(), cfg.App.Environment)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}
	if p, ok := emitter.(*events.Publisher); ok {
		p.Close()
	}
	log.Println("server exited")
}

// newObjectStore picks S3 storage when a bucket is configured, falling
// back to the filesystem store for local/dev runs.
func newObjectStore(cfg *config.Config) (storage.Store, error) {
	if cfg.Storage.S3Bucket != "" {
		return s3store.New(context.Background(), cfg.Storage.S3Bucket, cfg.Storage.S3Region)
	}
	return fsstore.New(cfg.Storage.LocalRoot)
}

// newEventEmitter connects to NATS for run-lifecycle events, falling
// back to a no-op emitter if the broker is unreachable so a missing
// event bus never blocks the pipeline itself.
func newEventEmitter(cfg *config.Config) events.Emitter {
	publisher, err := events.Connect(events.Config{URL: cfg.NATS.URL, Name: cfg.App.Name})
	if err != nil {
		log.Printf("nats unavailable, falling back to no-op event emitter: %v", err)
		return events.NoopPublisher{}
	}
	return publisher
}

// newSplitCache connects to Redis for tax-split memoization, falling
// back to an unmemoized cache.New(nil) if Redis is unreachable so a
// missing cache never blocks the pipeline itself.
func newSplitCache(cfg *config.Config) *cache.Cache {
	client, err := redisclient.New(redisclient.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Printf("redis unavailable, tax-split memoization disabled: %v", err)
		return cache.New(nil)
	}
	return cache.New(client)
}
