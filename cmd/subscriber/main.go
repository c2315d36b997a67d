package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/swapfy/terminal/internal/config"
	"github.com/swapfy/terminal/internal/history"
)

func loadEnv() {
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	_ = godotenv.Load(filepath.Join(projectRoot, ".env"))
}

// main tails the live attempt feed. Useful for watching swaps land
// while driving the terminal from another process.
func main() {
	loadEnv()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	rclient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: 0})
	if err := rclient.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Fatal("failed to connect to Redis")
	}

	recorder, err := history.NewRecorder(rclient, cfg.StoragePrefix, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to create recorder")
	}

	attempts, err := recorder.Subscribe(ctx)
	if err != nil {
		logger.WithError(err).Fatal("failed to subscribe")
	}

	logger.Info("following live swap attempts, Ctrl+C to stop")
	for a := range attempts {
		entry := logger.WithFields(logrus.Fields{
			"status": a.Status,
			"pair":   a.Pair(),
			"mode":   a.SwapMode,
		})
		if a.Signature != "" {
			entry = entry.WithField("signature", a.Signature)
		}
		if a.ErrorCode != "" {
			entry = entry.WithField("error", a.ErrorCode)
		}
		switch a.Status {
		case history.StatusSuccess:
			entry.WithFields(logrus.Fields{
				"realizedIn":  a.RealizedIn,
				"realizedOut": a.RealizedOut,
			}).Info("swap settled")
		case history.StatusTimedOut:
			entry.Warn("swap timed out")
		default:
			entry.Warn("swap failed")
		}
	}
}
