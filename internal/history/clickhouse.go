package history

import (
	"context"
	"fmt"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// ClickHouseStore archives terminal swap attempts for later analysis.
type ClickHouseStore struct {
	conn driver.Conn
}

func NewClickHouseStore(addr, database, username, password string) (*ClickHouseStore, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: database,
			Username: username,
			Password: password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	return &ClickHouseStore{conn: conn}, nil
}

// InsertAttempt archives one terminal attempt.
func (c *ClickHouseStore) InsertAttempt(ctx context.Context, a *Attempt) error {
	query := `
		INSERT INTO swap_attempts (
			signature, owner, status, from_mint, to_mint, swap_mode,
			quoted_in_raw, quoted_out_raw, realized_in, realized_out,
			route, slippage_bps, priority_fee, error_code, error_message,
			started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := c.conn.Exec(ctx, query,
		a.Signature,
		a.Owner,
		string(a.Status),
		a.FromMint,
		a.ToMint,
		a.SwapMode,
		a.QuotedInRaw,
		a.QuotedOutRaw,
		a.RealizedIn,
		a.RealizedOut,
		strings.Join(a.RouteLabels, ">"),
		a.SlippageBps,
		a.PriorityFee,
		a.ErrorCode,
		a.ErrorMessage,
		a.StartedAt,
		a.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert swap attempt: %w", err)
	}
	return nil
}

func (c *ClickHouseStore) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

func (c *ClickHouseStore) Close() error {
	return c.conn.Close()
}
