package main

import (
	"context"
	"log"
	"os"

	"github.com/LexatoBR/lexato-extension-sub001/internal/config"
	"github.com/LexatoBR/lexato-extension-sub001/internal/infra/anchor/rekor"
	"github.com/LexatoBR/lexato-extension-sub001/internal/infra/collectors"
	"github.com/LexatoBR/lexato-extension-sub001/internal/infra/db"
	httpinfra "github.com/LexatoBR/lexato-extension-sub001/internal/infra/http"
	"github.com/LexatoBR/lexato-extension-sub001/internal/infra/kv"
	"github.com/LexatoBR/lexato-extension-sub001/internal/infra/policyconsent"
	"github.com/LexatoBR/lexato-extension-sub001/internal/usecase"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	cfg := config.FromEnv()

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	store, err := db.NewStore(cfg.PostgresDSN, cfg.AutoMigrate)
	if err != nil {
		logger.Fatal("init evidence store", zap.Error(err))
	}
	if !store.Enabled() {
		logger.Warn("POSTGRES_DSN not set; evidence records will not be persisted")
	}
	repo := db.NewEvidenceRepo(store)

	var progressStore usecase.ProgressStore
	if cfg.RedisAddr != "" {
		redisStore, err := kv.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Fatal("init redis progress store", zap.Error(err))
		}
		defer redisStore.Close()
		progressStore = redisStore
	} else {
		logger.Warn("REDIS_ADDR not set; progress will not survive restarts")
		progressStore = kv.NewMemoryStore()
	}

	tracker := usecase.NewProgressTracker(progressStore, logger)
	if err := tracker.Initialize(ctx); err != nil {
		logger.Warn("recover persisted progress", zap.Error(err))
	}

	policy, err := newConsentPolicy(ctx, cfg)
	if err != nil {
		logger.Fatal("init consent policy", zap.Error(err))
	}

	set := collectors.New(logger)
	set.ServiceTag = cfg.ServiceTag
	applyCollectorConfig(set, cfg)

	pipeline := &usecase.EvidencePipeline{
		Repo:    repo,
		Tracker: tracker,
		Forensics: &usecase.ForensicCollection{
			Collectors: set,
			Policy:     policy,
			Logger:     logger,
		},
		Logger: logger,
	}
	if cfg.RekorURL != "" {
		anchorer, err := rekor.NewClient(cfg.RekorURL, nil, nil)
		if err != nil {
			logger.Fatal("init anchor client", zap.Error(err))
		}
		pipeline.Anchor = anchorer
	}

	srv := httpinfra.NewServer(httpinfra.ServerDeps{
		Addr:     cfg.HTTPAddr,
		Store:    store,
		Pipeline: pipeline,
		Tracker:  tracker,
		Evidence: repo,
		Logger:   logger,
	})

	logger.Info("lexatod listening", zap.String("addr", cfg.HTTPAddr))
	if err := srv.Run(); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		parsed = zapcore.InfoLevel
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(parsed)
	return zcfg.Build()
}

func newConsentPolicy(ctx context.Context, cfg config.Config) (*policyconsent.Engine, error) {
	if cfg.ConsentPolicy == "" {
		return policyconsent.NewEngine(ctx)
	}
	module, err := os.ReadFile(cfg.ConsentPolicy)
	if err != nil {
		return nil, err
	}
	return policyconsent.NewEngineFromModule(ctx, string(module))
}

func applyCollectorConfig(set *collectors.Set, cfg config.Config) {
	if cfg.DNSResolver != "" {
		set.Resolver = cfg.DNSResolver
	}
	if cfg.DoHEndpoint != "" {
		set.DoHEndpoint = cfg.DoHEndpoint
	}
	if cfg.WhoisServer != "" {
		set.WhoisServer = cfg.WhoisServer
	}
	if cfg.IPInfoEndpoint != "" {
		set.IPInfoEndpoint = cfg.IPInfoEndpoint
	}
	if cfg.GeoEndpoint != "" {
		set.GeoEndpoint = cfg.GeoEndpoint
	}
	if cfg.ArchiveEndpoint != "" {
		set.ArchiveEndpoint = cfg.ArchiveEndpoint
	}
}
