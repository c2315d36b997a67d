package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/swapfy/terminal/internal/chart"
	"github.com/swapfy/terminal/internal/config"
	"github.com/swapfy/terminal/internal/history"
	"github.com/swapfy/terminal/internal/jupiter"
	"github.com/swapfy/terminal/internal/prefs"
	"github.com/swapfy/terminal/internal/prices"
	"github.com/swapfy/terminal/internal/registry"
	"github.com/swapfy/terminal/internal/server"
	"github.com/swapfy/terminal/internal/swap"
)

// env bootstrap
func loadEnv(logger *logrus.Logger) {
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	envPath := filepath.Join(projectRoot, ".env")

	if err := godotenv.Load(envPath); err != nil {
		logger.Warnf("no .env file found at %s, using system environment variables", envPath)
	} else {
		logger.Infof("loaded .env from %s", envPath)
	}
}

func loadRegistry(ctx context.Context, cfg *config.Config, logger *logrus.Logger) *registry.Registry {
	if cfg.TokenListPath != "" {
		reg, err := registry.LoadFile(cfg.TokenListPath)
		if err != nil {
			logger.WithError(err).Fatal("failed to load token list file")
		}
		return reg
	}
	reg, err := registry.LoadURL(ctx, cfg.TokenListURL)
	if err != nil {
		logger.WithError(err).Fatal("failed to fetch token list")
	}
	return reg
}

// main starts the terminal's HTTP API: quotes, prices, charts, recent
// attempts, preferences, and token metadata.
func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(logrus.InfoLevel)

	// load .env BEFORE anything reads os.Getenv
	loadEnv(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	rclient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   0,
	})
	if err := rclient.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Fatal("failed to connect to Redis")
	}

	reg := loadRegistry(ctx, cfg, logger)
	logger.WithField("tokens", reg.Len()).Info("token registry loaded")

	jup := jupiter.NewClient(cfg.JupiterBaseURL, cfg.JupiterPriceURL, cfg.JupiterAPIKey)

	cache := prices.NewCache(logger, prices.WithRedis(rclient, cfg.StoragePrefix))
	if err := cache.Load(ctx); err != nil {
		logger.WithError(err).Warn("failed to load persisted prices")
	}
	batch := prices.NewBatcher(cache, jup.Prices, logger)
	go batch.Run(ctx)

	chartClient := chart.NewClient(cfg.CodexURL, cfg.CodexAPIKey, logger)
	resolver := chart.NewResolver(chartClient, logger)

	prefStore, err := prefs.NewStore(rclient, cfg.StoragePrefix)
	if err != nil {
		logger.WithError(err).Fatal("failed to create preferences store")
	}

	recorder, err := history.NewRecorder(rclient, cfg.StoragePrefix, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to create attempt recorder")
	}

	form := swap.NewForm(ctx, swap.FormConfig{
		Quoter:   jup,
		Registry: reg,
		Logger:   logger,
	})

	h := &server.Handlers{
		Form:     form,
		Charts:   resolver,
		Pairs:    chartClient,
		Prices:   cache,
		Batch:    batch,
		Prefs:    prefStore,
		Attempts: recorder,
		Tokens:   reg,
		DevMode:  cfg.DevMode,
		Logger:   logger,
	}

	srv, err := server.NewServer(server.ServerDeps{
		Handlers: h,
		Config: server.ServerConfig{
			Addr:    cfg.APIAddr,
			DevMode: cfg.DevMode,
			APIKey:  cfg.APIKey,
		},
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create http server")
	}

	go func() {
		<-sigCh
		logger.Info("shutting down")
		cancel()
		batch.Close()
		form.Close()
		if err := cache.Persist(context.Background()); err != nil {
			logger.WithError(err).Warn("failed to persist price cache")
		}
		_ = srv.Shutdown(context.Background())
	}()

	logger.WithField("addr", cfg.APIAddr).Info("api server starting")
	if err := srv.Start(); err != nil {
		if err.Error() == "http: Server closed" {
			return
		}
		logger.WithError(err).Fatal("api server failed")
	}

	if err := srv.WaitClosed(context.Background()); err != nil {
		fmt.Println(err)
	}
}
