package wallet

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/swapfy/terminal/internal/rpc"
)

// SendOptions configures transaction sending behavior.
type SendOptions struct {
	SkipPreflight       bool
	PreflightCommitment string
	MaxRetries          *int
	Commitment          string
}

// DefaultSendOptions returns the terminal's send settings. Preflight is
// skipped because the aggregator already simulated the route.
func DefaultSendOptions() SendOptions {
	maxRetries := 3
	return SendOptions{
		SkipPreflight:       true,
		PreflightCommitment: "processed",
		MaxRetries:          &maxRetries,
		Commitment:          "confirmed",
	}
}

// Sender broadcasts signed transactions and tracks them to a commitment
// level, classifying expiry with the structured ExecError contract.
type Sender struct {
	rpc *rpc.Client
}

func NewSender(client *rpc.Client) *Sender {
	return &Sender{rpc: client}
}

// Send serializes and broadcasts a signed transaction, returning its
// signature.
func (s *Sender) Send(ctx context.Context, tx *solana.Transaction, opts *SendOptions) (string, error) {
	if opts == nil {
		defaultOpts := DefaultSendOptions()
		opts = &defaultOpts
	}

	txBytes, err := tx.MarshalBinary()
	if err != nil {
		return "", execErr(ErrCodeBroadcast, fmt.Errorf("failed to serialize transaction: %w", err))
	}
	encodedTx := base64.StdEncoding.EncodeToString(txBytes)

	params := []any{
		encodedTx,
		map[string]any{
			"encoding":            "base64",
			"skipPreflight":       opts.SkipPreflight,
			"preflightCommitment": opts.PreflightCommitment,
		},
	}
	if opts.MaxRetries != nil {
		params[1].(map[string]any)["maxRetries"] = *opts.MaxRetries
	}

	var resp struct {
		Result string        `json:"result"`
		Error  *rpc.RPCError `json:"error"`
	}

	if err := s.rpc.Call(ctx, "sendTransaction", params, &resp); err != nil {
		return "", execErr(ErrCodeBroadcast, fmt.Errorf("sendTransaction RPC failed: %w", err))
	}
	if resp.Error != nil {
		if IsExpiry(resp.Error) {
			return "", execErr(ErrCodeExpired, resp.Error)
		}
		return "", execErr(ErrCodeBroadcast, fmt.Errorf("sendTransaction error: code=%d, message=%s",
			resp.Error.Code, resp.Error.Message))
	}

	return resp.Result, nil
}

// Confirm polls for confirmation until the signature reaches the given
// commitment, the blockhash's lastValidBlockHeight passes, or the timeout
// elapses. Expiry is reported as ErrCodeExpired; everything else as
// ErrCodeFailed or ErrCodeConfirmation.
func (s *Sender) Confirm(
	ctx context.Context,
	signature string,
	lastValidBlockHeight uint64,
	commitment string,
	timeout time.Duration,
) error {
	deadline := time.Now().Add(timeout)
	backoff := 500 * time.Millisecond
	maxBackoff := 4 * time.Second

	for time.Now().Before(deadline) {
		confirmed, statusErr := s.checkSignatureStatus(ctx, signature, commitment)
		if statusErr != nil {
			return statusErr
		}
		if confirmed {
			return nil
		}

		if lastValidBlockHeight > 0 {
			height, err := s.blockHeight(ctx)
			if err == nil && height > lastValidBlockHeight {
				return &ExecError{
					Code: ErrCodeExpired,
					Err:  fmt.Errorf("block height %d exceeded lastValidBlockHeight %d", height, lastValidBlockHeight),
				}
			}
		}

		select {
		case <-ctx.Done():
			return execErrFrom(ctx.Err())
		case <-time.After(backoff):
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
	}

	return &ExecError{
		Code: ErrCodeExpired,
		Err:  fmt.Errorf("confirmation timeout after %v", timeout),
	}
}

func execErrFrom(err error) *ExecError {
	return &ExecError{Code: ErrCodeConfirmation, Err: err}
}

func (s *Sender) checkSignatureStatus(ctx context.Context, signature string, commitment string) (bool, *ExecError) {
	var resp struct {
		Result struct {
			Value []*struct {
				Slot               uint64      `json:"slot"`
				Confirmations      *int        `json:"confirmations"`
				Err                interface{} `json:"err"`
				ConfirmationStatus string      `json:"confirmationStatus"`
			} `json:"value"`
		} `json:"result"`
		Error *rpc.RPCError `json:"error"`
	}

	params := []any{
		[]string{signature},
		map[string]any{"searchTransactionHistory": true},
	}

	if err := s.rpc.Call(ctx, "getSignatureStatuses", params, &resp); err != nil {
		return false, execErr(ErrCodeConfirmation, err)
	}
	if resp.Error != nil {
		return false, execErr(ErrCodeConfirmation, resp.Error)
	}
	if len(resp.Result.Value) == 0 || resp.Result.Value[0] == nil {
		return false, nil // not yet processed
	}

	status := resp.Result.Value[0]
	if status.Err != nil {
		return false, execErr(ErrCodeFailed, fmt.Errorf("transaction failed: %v", status.Err))
	}

	switch commitment {
	case "processed":
		return status.ConfirmationStatus != "", nil
	case "confirmed":
		return status.ConfirmationStatus == "confirmed" || status.ConfirmationStatus == "finalized", nil
	case "finalized":
		return status.ConfirmationStatus == "finalized", nil
	default:
		return status.ConfirmationStatus != "", nil
	}
}

func (s *Sender) blockHeight(ctx context.Context) (uint64, error) {
	var resp struct {
		Result uint64        `json:"result"`
		Error  *rpc.RPCError `json:"error"`
	}

	params := []any{
		map[string]any{"commitment": "confirmed"},
	}

	if err := s.rpc.Call(ctx, "getBlockHeight", params, &resp); err != nil {
		return 0, err
	}
	if resp.Error != nil {
		return 0, resp.Error
	}
	return resp.Result, nil
}

// GetBalanceSOL returns the lamport balance of a public key in SOL.
func (s *Sender) GetBalanceSOL(ctx context.Context, pub solana.PublicKey) (float64, error) {
	var resp struct {
		Result struct {
			Value uint64 `json:"value"`
		} `json:"result"`
		Error *rpc.RPCError `json:"error"`
	}

	params := []any{
		pub.String(),
		map[string]any{"commitment": "confirmed"},
	}

	if err := s.rpc.Call(ctx, "getBalance", params, &resp); err != nil {
		return 0, fmt.Errorf("getBalance RPC failed: %w", err)
	}
	if resp.Error != nil {
		return 0, fmt.Errorf("getBalance error: %s", resp.Error.Message)
	}

	return float64(resp.Result.Value) / 1e9, nil
}
