// Package bootstrap builds the application dependency graph shared by the
// API server and the queue worker.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"extraction-backend/internal/analyzer"
	"extraction-backend/internal/cache"
	"extraction-backend/internal/contentsvc"
	"extraction-backend/internal/queue"
	"extraction-backend/internal/runs"
	"extraction-backend/internal/schemadocs"
	"extraction-backend/internal/shared/config"
	"extraction-backend/internal/shared/retry"
	"extraction-backend/internal/shared/server"
	"extraction-backend/internal/shared/storage/db"
	"extraction-backend/internal/shared/storage/object"
	localstore "extraction-backend/internal/shared/storage/object/local"
	s3store "extraction-backend/internal/shared/storage/object/s3"
)

// App holds shared dependencies.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.Store
	Cache  cache.Cache
	Queue  queue.Client

	ContentClient contentsvc.Client

	SchemasRepo  schemadocs.Repo
	RunsRepo     runs.Repo
	AnalyzerRepo analyzer.Repo

	SchemasService *schemadocs.Service
	Provisioner    *analyzer.Provisioner
	RunsService    *runs.Service
	RunProcessor   RunProcessor

	SchemaHandler *schemadocs.Handler
	RunHandler    *runs.Handler
}

// RunProcessor allows callers to override run processing for tests.
type RunProcessor interface {
	Process(ctx context.Context, runID string) error
}

// Build prepares shared dependencies and wires routes.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx)
	if err != nil {
		return nil, err
	}

	contentClient, err := contentsvc.NewHTTPClient(cfg.AnalysisEndpoint, cfg.AnalysisAPIKey, cfg.AnalysisAPIVersion)
	if err != nil {
		return nil, fmt.Errorf("analysis client: %w", err)
	}

	app := &App{
		Config:        cfg,
		DB:            sqlDB,
		Store:         store,
		Cache:         buildCache(cfg),
		Queue:         queueClient,
		ContentClient: contentClient,
	}
	buildServices(app)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:        cfg,
		SchemaHandler: app.SchemaHandler,
		RunHandler:    app.RunHandler,
	})
	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.Store, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildCache(cfg config.Config) cache.Cache {
	if strings.TrimSpace(cfg.RedisURL) == "" {
		return cache.NewMemoryCache()
	}
	redis, err := cache.NewRedisCache(cfg.RedisURL)
	if err != nil {
		log.Printf("bootstrap: redis unavailable; using in-memory cache: %v", err)
		return cache.NewMemoryCache()
	}
	return redis
}

func buildQueue(ctx context.Context) (queue.Client, error) {
	if strings.TrimSpace(os.Getenv("EX_SQS_QUEUE_URL")) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx)
}

func buildServices(app *App) {
	if app.DB != nil {
		app.SchemasRepo = &schemadocs.PGRepo{DB: app.DB}
		app.RunsRepo = &runs.PGRepo{DB: app.DB}
		app.AnalyzerRepo = &analyzer.PGRepo{DB: app.DB}
	} else {
		app.SchemasRepo = schemadocs.NewMemoryRepo()
		app.RunsRepo = runs.NewMemoryRepo()
		app.AnalyzerRepo = analyzer.NewMemoryRepo()
	}

	app.SchemasService = &schemadocs.Service{
		Repo:  app.SchemasRepo,
		Store: app.Store,
	}

	app.Provisioner = &analyzer.Provisioner{
		Client:   app.ContentClient,
		Repo:     app.AnalyzerRepo,
		Cache:    app.Cache,
		Interval: app.Config.ProvisionPollInterval,
		Budget:   app.Config.ProvisionPollBudget,
	}

	runsSvc := &runs.Service{
		Repo:        app.RunsRepo,
		Schemas:     app.SchemasService,
		Store:       app.Store,
		Provisioner: app.Provisioner,
		Submitter:   &runs.Submitter{Client: app.ContentClient},
		Poller: &runs.Poller{
			Client:   app.ContentClient,
			Interval: app.Config.StatusPollInterval,
			Budget:   app.Config.StatusPollBudget,
			Skew: retry.Backoff{
				Base:     app.Config.SkewBackoffBase,
				Factor:   2,
				Attempts: app.Config.SkewBackoffAttempts,
			},
		},
		RunTimeout: app.Config.RunTimeout,
	}
	if enqueuer, ok := app.Queue.(runs.Enqueuer); ok {
		runsSvc.Queue = enqueuer
	}
	app.RunsService = runsSvc
	app.RunProcessor = runsSvc

	app.SchemaHandler = schemadocs.NewHandler(app.SchemasService)
	app.RunHandler = runs.NewHandler(app.RunsService)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
