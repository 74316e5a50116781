package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/markdave123-py/Lumen/internal/api/handlers"
	"github.com/markdave123-py/Lumen/internal/config"
	"github.com/markdave123-py/Lumen/internal/core"
	"github.com/markdave123-py/Lumen/internal/core/aiclient"
	"github.com/markdave123-py/Lumen/internal/core/credentials"
	db "github.com/markdave123-py/Lumen/internal/core/database"
	"github.com/markdave123-py/Lumen/internal/core/diagrams"
	"github.com/markdave123-py/Lumen/internal/core/ingestion_engine"
	"github.com/markdave123-py/Lumen/internal/core/llm"
	objectclient "github.com/markdave123-py/Lumen/internal/core/object-client"
	"github.com/markdave123-py/Lumen/internal/core/resilience"
	"github.com/markdave123-py/Lumen/internal/observability/metrics"
	"github.com/markdave123-py/Lumen/internal/pkg/logger"
	"github.com/markdave123-py/Lumen/internal/services"
)

type App struct {
	DBClient     *db.DatabaseClient
	ObjectClient core.ObjectClient
	Ingestor     *ingestion_engine.ArtifactIngestor
	Server       *Server

	cfg *config.Config
	llm *llm.GeminiLLM
	log *logger.Logger
}

func NewApp(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	dbClient, err := db.NewDatabaseClient(appCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	log.Info("database initialized and ready", "driver", cfg.DatabaseDriver)

	objClient, err := newObjectClient(appCtx, cfg)
	if err != nil {
		_ = dbClient.Close()
		return nil, fmt.Errorf("object storage: %w", err)
	}
	log.Info("object storage ready", "backend", cfg.StorageBackend, "bucket", cfg.BucketName)

	var pipelineMetrics *metrics.PipelineMetrics
	if cfg.MetricsEnabled {
		pipelineMetrics = metrics.NewPipelineMetrics()
	}

	resCfg := resilience.DefaultConfig()
	resCfg.BreakerEnabled = cfg.BreakerEnabled
	if cfg.BreakerMinRequests > 0 {
		resCfg.BreakerMinRequests = uint32(cfg.BreakerMinRequests)
	}
	resCfg.BreakerOpenTimeout = cfg.BreakerOpenTimeout
	ai := aiclient.New(aiclient.Options{
		SummarizerURL: cfg.SummarizerURL,
		DetectorURL:   cfg.DetectorURL,
		OCRURL:        cfg.OCRURL,
		PollTimeout:   cfg.PollTimeout,
		Executor:      resilience.NewExecutor(resCfg, log),
		Logger:        log,
	})

	var extractor core.TextExtractor = ai
	if strings.EqualFold(cfg.OCRBackend, "docconv") {
		extractor = ingestion_engine.NewDocconvExtractor(false)
	}

	ingestor := ingestion_engine.NewArtifactIngestor(ingestion_engine.Deps{
		Store:      dbClient,
		Objects:    objClient,
		Bucket:     cfg.BucketName,
		Summarizer: ai,
		Detector:   ai,
		Extractor:  extractor,
		Metrics:    pipelineMetrics,
		Logger:     log,
	}, ingestion_engine.IngestConfig{Workers: cfg.IngestWorkers, QueueSize: cfg.IngestQueueSize})

	var chatLLM *llm.GeminiLLM
	var provider core.LLMProvider
	if cfg.AIAPIKey != "" {
		chatLLM, err = llm.NewGeminiLLM(appCtx, cfg.AIAPIKey, cfg.GenModel)
		if err != nil {
			_ = dbClient.Close()
			return nil, fmt.Errorf("couldn't initialize the llm: %w", err)
		}
		provider = chatLLM
	} else {
		log.Warn("GEMINI_API_KEY not set, session chat disabled")
	}

	tokens := credentials.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)
	users := services.NewUserService(dbClient, tokens)
	uploads := services.NewUploadService(dbClient, objClient, cfg.BucketName, tokens, ingestor, log)
	sessions := services.NewSessionService(dbClient, tokens, log)
	chat := services.NewChatService(dbClient, provider, sessions, log)
	poller := diagrams.NewPoller(dbClient, ai, pipelineMetrics, log)

	server := NewServer(cfg, Routes{
		Auth:     handlers.NewAuthHandler(users),
		Uploads:  handlers.NewUploadHandler(uploads, sessions, handlers.DefaultMaxUploadBytes),
		Sessions: handlers.NewSessionHandler(sessions),
		Chat:     handlers.NewChatHandler(chat),
		Diagrams: handlers.NewDiagramHandler(poller),
		Health:   dbClient,
		Metrics:  pipelineMetrics,
	}, log)

	return &App{
		DBClient:     dbClient,
		ObjectClient: objClient,
		Ingestor:     ingestor,
		Server:       server,
		cfg:          cfg,
		llm:          chatLLM,
		log:          log,
	}, nil
}

// Start launches the background workers. Jobs outlive ctx cancellation.
func (a *App) Start(ctx context.Context) {
	a.Ingestor.Start(ctx, a.cfg.IngestWorkers)
}

// Shutdown stops the HTTP server, drains the ingestor and releases clients.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if err := a.Server.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := a.Ingestor.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	a.Close()
	return errors.Join(errs...)
}

func (a *App) Close() {
	if a.llm != nil {
		_ = a.llm.Close()
	}
	if a.DBClient != nil {
		_ = a.DBClient.Close()
	}
}

func newObjectClient(ctx context.Context, cfg *config.Config) (core.ObjectClient, error) {
	switch strings.ToLower(cfg.StorageBackend) {
	case "s3":
		return objectclient.NewS3Client(ctx, cfg)
	case "", "local":
		return objectclient.NewLocalClient(cfg.UploadDir)
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.StorageBackend)
	}
}
