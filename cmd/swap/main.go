package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/swapfy/terminal/internal/accounts"
	"github.com/swapfy/terminal/internal/config"
	"github.com/swapfy/terminal/internal/constants"
	"github.com/swapfy/terminal/internal/history"
	"github.com/swapfy/terminal/internal/jupiter"
	"github.com/swapfy/terminal/internal/prefs"
	"github.com/swapfy/terminal/internal/registry"
	"github.com/swapfy/terminal/internal/rpc"
	"github.com/swapfy/terminal/internal/swap"
	"github.com/swapfy/terminal/internal/wallet"
)

func loadEnv() {
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	_ = godotenv.Load(filepath.Join(projectRoot, ".env"))
}

// main is a one-shot swap: quote the requested pair, build, sign, send,
// and wait for a terminal status.
func main() {
	loadEnv()

	fromMint := flag.String("from", "", "input mint address (default USDC)")
	toMint := flag.String("to", "", "output mint address (default wSOL)")
	amt := flag.String("amt", "", "amount in human units on the -side token (e.g. 0.1)")
	side := flag.String("side", "from", "which side -amt applies to: from (exact-in) | to (exact-out)")
	slippageBps := flag.Int("slippage-bps", 0, "fixed slippage in bps; 0 keeps dynamic mode")
	priority := flag.String("priority", "HIGH", "priority fee tier: MEDIUM | HIGH | VERY_HIGH")
	priorityFee := flag.Uint64("priority-fee", 0, "fallback priority fee in micro-lamports per CU")
	dryRun := flag.Bool("dry-run", false, "quote only, do not submit")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if *amt == "" {
		fmt.Println("missing -amt")
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	if cfg.WalletPrivateKey == "" && !*dryRun {
		logger.Fatal("WALLET_PRIVATE_KEY is required to submit swaps")
	}

	reg := loadRegistry(ctx, cfg, logger)
	jup := jupiter.NewClient(cfg.JupiterBaseURL, cfg.JupiterPriceURL, cfg.JupiterAPIKey)

	form := swap.NewForm(ctx, swap.FormConfig{
		Quoter:   jup,
		Registry: reg,
		Logger:   logger,
		FromMint: *fromMint,
		ToMint:   *toMint,
	})
	defer form.Close()

	activeSide := swap.SideFrom
	switch *side {
	case "from":
	case "to":
		activeSide = swap.SideTo
	default:
		fmt.Println("invalid -side (use from|to)")
		os.Exit(2)
	}

	if *slippageBps > 0 {
		form.SetSlippage(&prefs.Preferences{
			SlippageMode:  prefs.SlippageFixed,
			SlippageBps:   uint16(*slippageBps),
			DynamicMaxBps: constants.DefaultDynamicMaxSlippageBps,
		})
	}

	form.UpdateAmount(activeSide, *amt)
	if err := form.RequestQuote(ctx); err != nil {
		logger.WithError(err).Fatal("quote failed")
	}

	state := form.State()
	quote, stale := form.Quote()
	if quote == nil || stale {
		logger.Fatal("no usable quote")
	}
	fmt.Printf("quote: %s %s -> %s %s via %v\n",
		state.FromValue, state.FromMint, state.ToValue, state.ToMint, state.RouteLabels)

	if *dryRun {
		return
	}

	keypair, err := wallet.NewKeypair(cfg.WalletPrivateKey)
	if err != nil {
		logger.WithError(err).Fatal("invalid wallet key")
	}

	rpcClient := rpc.NewClient(rpc.ClientConfig{
		BaseURL:      cfg.RPCUrl,
		Timeout:      cfg.HTTPTimeout,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		Logger:       logger,
	})
	sender := wallet.NewSender(rpcClient)
	balances := accounts.NewSnapshot(rpcClient, keypair.Address(), logger)

	journal := buildJournal(ctx, cfg, logger)

	orch := swap.NewOrchestrator(swap.OrchestratorConfig{
		Form:     form,
		Builder:  jup,
		Signer:   keypair,
		Sender:   sender,
		Chain:    rpcClient,
		Journal:  journal,
		Balances: balances,
		Fees: func() swap.ReferenceFees {
			return swap.ReferenceFees{SwapFee: *priorityFee}
		},
		Priority: swap.PriorityLevel(*priority),
		Logger:   logger,
		OnStatus: func(s history.Status) {
			fmt.Println("status:", s)
		},
	})

	result, err := orch.Submit(ctx, swap.SubmitOptions{})
	if err != nil {
		logger.WithError(err).Error("swap failed")
	}
	if result != nil {
		fmt.Printf("status=%s sig=%s realized_in=%.6f realized_out=%.6f\n",
			result.Status, result.Signature, result.RealizedIn, result.RealizedOut)
		if result.Status != history.StatusSuccess {
			os.Exit(1)
		}
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

// buildJournal wires the attempt sinks that are reachable. Redis and
// ClickHouse are both optional for a one-shot swap.
func buildJournal(ctx context.Context, cfg *config.Config, logger *logrus.Logger) *history.Journal {
	var cacheSink *history.Recorder
	rclient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: 0})
	if err := rclient.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Warn("redis unreachable, attempts will not be cached")
	} else {
		r, err := history.NewRecorder(rclient, cfg.StoragePrefix, logger)
		if err == nil {
			cacheSink = r
		}
	}

	var archive *history.ClickHouseStore
	if cfg.ClickHouseAddr != "" {
		store, err := history.NewClickHouseStore(cfg.ClickHouseAddr, cfg.ClickHouseDatabase, cfg.ClickHouseUsername, cfg.ClickHousePassword)
		if err != nil {
			logger.WithError(err).Warn("clickhouse unreachable, attempts will not be archived")
		} else {
			archive = store
		}
	}

	// Avoid handing the journal a typed-nil sink.
	switch {
	case cacheSink != nil && archive != nil:
		return history.NewJournal(cacheSink, archive, logger)
	case cacheSink != nil:
		return history.NewJournal(cacheSink, nil, logger)
	case archive != nil:
		return history.NewJournal(nil, archive, logger)
	default:
		return history.NewJournal(nil, nil, logger)
	}
}
