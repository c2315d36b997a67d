package accounts

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/swapfy/terminal/internal/rpc"
)

// Balance is one token holding in the wallet.
type Balance struct {
	Mint     string  `json:"mint"`
	Raw      uint64  `json:"raw"`
	UI       float64 `json:"ui"`
	Decimals uint8   `json:"decimals"`
}

// Snapshot caches the wallet's token balances. Refresh replaces the
// whole snapshot atomically; a swap that just landed re-refreshes so
// the max-click amount tracks reality.
type Snapshot struct {
	rpc    *rpc.Client
	owner  string
	logger *logrus.Logger

	mu          sync.RWMutex
	balances    map[string]Balance
	solLamports uint64
	refreshedAt time.Time
}

func NewSnapshot(client *rpc.Client, owner string, logger *logrus.Logger) *Snapshot {
	if logger == nil {
		logger = logrus.New()
	}
	return &Snapshot{
		rpc:      client,
		owner:    owner,
		logger:   logger,
		balances: make(map[string]Balance),
	}
}

type tokenAccountsResult struct {
	Result struct {
		Value []struct {
			Account struct {
				Data struct {
					Parsed struct {
						Info struct {
							Mint        string          `json:"mint"`
							TokenAmount rpc.TokenAmount `json:"tokenAmount"`
						} `json:"info"`
					} `json:"parsed"`
				} `json:"data"`
			} `json:"account"`
		} `json:"value"`
	} `json:"result"`
	Error *rpc.RPCError `json:"error,omitempty"`
}

type balanceResult struct {
	Result struct {
		Value uint64 `json:"value"`
	} `json:"result"`
	Error *rpc.RPCError `json:"error,omitempty"`
}

const tokenProgramID = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"

// Refresh re-reads every token account plus the native SOL balance and
// swaps in the new snapshot.
func (s *Snapshot) Refresh(ctx context.Context) error {
	var accounts tokenAccountsResult
	params := []interface{}{
		s.owner,
		map[string]interface{}{"programId": tokenProgramID},
		map[string]interface{}{"encoding": "jsonParsed", "commitment": "confirmed"},
	}
	if err := s.rpc.Call(ctx, "getTokenAccountsByOwner", params, &accounts); err != nil {
		return fmt.Errorf("fetch token accounts: %w", err)
	}
	if accounts.Error != nil {
		return fmt.Errorf("fetch token accounts: %w", accounts.Error)
	}

	var sol balanceResult
	if err := s.rpc.Call(ctx, "getBalance", []interface{}{s.owner}, &sol); err != nil {
		return fmt.Errorf("fetch SOL balance: %w", err)
	}
	if sol.Error != nil {
		return fmt.Errorf("fetch SOL balance: %w", sol.Error)
	}

	next := make(map[string]Balance, len(accounts.Result.Value))
	for _, acc := range accounts.Result.Value {
		info := acc.Account.Data.Parsed.Info
		if info.Mint == "" {
			continue
		}
		b := Balance{
			Mint:     info.Mint,
			UI:       info.TokenAmount.UIAmount,
			Decimals: uint8(info.TokenAmount.Decimals),
		}
		if raw, err := strconv.ParseUint(info.TokenAmount.Amount, 10, 64); err == nil {
			b.Raw = raw
		}
		// A wallet can hold several accounts for one mint; sum them.
		if prev, ok := next[info.Mint]; ok {
			b.Raw += prev.Raw
			b.UI += prev.UI
		}
		next[info.Mint] = b
	}

	s.mu.Lock()
	s.balances = next
	s.solLamports = sol.Result.Value
	s.refreshedAt = time.Now()
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"owner":  s.owner,
		"tokens": len(next),
	}).Debug("Refreshed balance snapshot")
	return nil
}

// Balance returns the holding for one mint; a zero Balance when the
// wallet holds none.
func (s *Snapshot) Balance(mint string) Balance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances[mint]
}

// All returns a copy of every holding.
func (s *Snapshot) All() []Balance {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Balance, 0, len(s.balances))
	for _, b := range s.balances {
		out = append(out, b)
	}
	return out
}

// SOLLamports is the native balance from the last refresh.
func (s *Snapshot) SOLLamports() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.solLamports
}

// Mints lists every held mint, for price tracking.
func (s *Snapshot) Mints() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.balances))
	for m := range s.balances {
		out = append(out, m)
	}
	return out
}

func (s *Snapshot) Owner() string {
	return s.owner
}

func (s *Snapshot) RefreshedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshedAt
}
