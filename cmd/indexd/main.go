// Package main wires together the indexing service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/websearch/indexd/internal/api"
	"github.com/websearch/indexd/internal/clock/system"
	"github.com/websearch/indexd/internal/config"
	"github.com/websearch/indexd/internal/dictionary"
	"github.com/websearch/indexd/internal/embed"
	"github.com/websearch/indexd/internal/executor"
	"github.com/websearch/indexd/internal/hash/sha256"
	"github.com/websearch/indexd/internal/logging"
	"github.com/websearch/indexd/internal/metrics"
	"github.com/websearch/indexd/internal/pipeline"
	"github.com/websearch/indexd/internal/scheduler"
	"github.com/websearch/indexd/internal/search"
	"github.com/websearch/indexd/internal/sitemap"
	"github.com/websearch/indexd/internal/spider"
	"github.com/websearch/indexd/internal/storage/postgres"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.Init()

	pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
		DSN:      cfg.DB.DSN,
		MaxConns: int32(cfg.DB.MaxConns),
	})
	if err != nil {
		logger.Fatal("postgres init failed", zap.Error(err))
	}
	defer pool.Close()

	websiteStore := postgres.NewWebsiteStore(pool)
	pageStore := postgres.NewPageStore(pool, postgres.PageStoreConfig{
		StaleAfter:  time.Duration(cfg.Crawl.StaleAfterDays) * 24 * time.Hour,
		CoolDown:    time.Duration(cfg.Crawl.CoolDownHours) * time.Hour,
		MaxAttempts: cfg.Crawl.MaxAttempts,
	})
	contentStore := postgres.NewContentStore(pool, cfg.Embedding.SparseDims)
	searchStore := postgres.NewSearchStore(pool, cfg.Embedding.SparseDims)
	wordStore := postgres.NewWordStore(pool)

	spiderClient, err := spider.NewClient(spider.Config{
		BaseURL: cfg.Spider.BaseURL,
		Timeout: time.Duration(cfg.Spider.TimeoutSeconds) * time.Second,
	}, logger.Named("spider"))
	if err != nil {
		logger.Fatal("spider client init failed", zap.Error(err))
	}
	embedClient, err := embed.NewClient(embed.Config{
		BaseURL:     cfg.Embedding.BaseURL,
		APIKey:      cfg.Embedding.APIKey,
		DenseModel:  cfg.Embedding.DenseModel,
		SparseModel: cfg.Embedding.SparseModel,
		Dimensions:  cfg.Embedding.Dimensions,
		Timeout:     time.Duration(cfg.Embedding.TimeoutSeconds) * time.Second,
	}, logger.Named("embed"))
	if err != nil {
		logger.Fatal("embedding client init failed", zap.Error(err))
	}

	hasher := sha256.New()
	clock := system.New()

	vocab := dictionary.NewSet(wordStore, logger.Named("dictionary"))
	if err := vocab.Reload(ctx); err != nil {
		logger.Fatal("vocabulary load failed", zap.Error(err))
	}

	sitemapManager := sitemap.NewManager(
		websiteStore,
		pageStore,
		spiderClient,
		sitemap.NewResolver(logger.Named("resolver")),
		clock,
		sitemap.ManagerConfig{
			StartupDelay:   time.Duration(cfg.Sitemap.StartupDelaySeconds) * time.Second,
			SweepInterval:  time.Duration(cfg.Sitemap.SweepIntervalSec) * time.Second,
			PerSiteDelay:   time.Duration(cfg.Sitemap.PerSiteDelaySec) * time.Second,
			StaleAfter:     time.Duration(cfg.Sitemap.StaleAfterDays) * 24 * time.Hour,
			WebsitesPerRun: cfg.Sitemap.WebsitesPerRun,
		},
		logger.Named("sitemap"),
	)

	crawlPolicy := scheduler.Policy{
		StaleAfter:    time.Duration(cfg.Crawl.StaleAfterDays) * 24 * time.Hour,
		RetryCoolDown: time.Duration(cfg.Crawl.CoolDownHours) * time.Hour,
		MaxAttempts:   cfg.Crawl.MaxAttempts,
	}
	sched := scheduler.New(pageStore, crawlPolicy, clock, cfg.Crawl.BatchSize, logger.Named("scheduler"))
	crawlManager := executor.NewManager(
		sched,
		executor.New(pageStore, spiderClient, clock, logger.Named("executor")),
		executor.ManagerConfig{
			IdleDelay:    time.Duration(cfg.Crawl.IdleDelaySec) * time.Second,
			FailureDelay: time.Duration(cfg.Crawl.FailureDelaySec) * time.Second,
		},
		logger.Named("crawl"),
	)

	embedManager := pipeline.NewManager(
		contentStore,
		pipeline.New(vocab, embedClient, hasher, pipeline.Config{
			ChunkSize:  cfg.Pipeline.ChunkSize,
			MinWordLen: cfg.Pipeline.MinWordLen,
		}, logger.Named("pipeline")),
		pipeline.ManagerConfig{
			BatchSize:    cfg.Pipeline.BatchSize,
			IdleDelay:    time.Duration(cfg.Pipeline.IdleDelaySec) * time.Second,
			FailureDelay: time.Duration(cfg.Pipeline.FailureDelaySec) * time.Second,
		},
		logger.Named("embedding"),
	)

	engine := search.New(searchStore, embedClient, search.Config{
		Weights: search.Weights{
			Dense:   cfg.Search.DenseWeight,
			Sparse:  cfg.Search.SparseWeight,
			Keyword: cfg.Search.KeywordWeight,
		},
		MaxDistance:     cfg.Search.MaxDistance,
		DefaultPageSize: cfg.Search.DefaultPageSize,
		MaxPageSize:     cfg.Search.MaxPageSize,
	}, logger.Named("search"))

	apiServer := api.NewServer(engine, websiteStore, cfg, logger.Named("api"))
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("sitemap manager started")
		sitemapManager.Run(ctx)
	}()
	go func() {
		logger.Info("crawl manager started")
		crawlManager.Run(ctx)
	}()
	go func() {
		logger.Info("embedding manager started")
		embedManager.Run(ctx)
	}()
	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
