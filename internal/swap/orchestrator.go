package swap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"github.com/swapfy/terminal/internal/history"
	"github.com/swapfy/terminal/internal/jupiter"
	"github.com/swapfy/terminal/internal/prefs"
	"github.com/swapfy/terminal/internal/rpc"
	"github.com/swapfy/terminal/internal/wallet"
)

// TransactionBuilder is the aggregator surface used during submission.
type TransactionBuilder interface {
	Swap(ctx context.Context, req jupiter.SwapRequest) (*jupiter.SwapResponse, error)
	SwapInstructions(ctx context.Context, req jupiter.SwapInstructionsRequest) (*jupiter.SwapInstructionsResponse, error)
}

// Broadcaster sends a signed transaction and tracks it to a commitment.
type Broadcaster interface {
	Send(ctx context.Context, tx *solana.Transaction, opts *wallet.SendOptions) (string, error)
	Confirm(ctx context.Context, signature string, lastValidBlockHeight uint64, commitment string, timeout time.Duration) error
}

// ChainReader fetches confirmed transactions for realized-amount
// computation.
type ChainReader interface {
	GetTransaction(ctx context.Context, signature string) (*rpc.TransactionResponse, error)
}

// BalanceRefresher re-reads wallet balances after a swap settles.
type BalanceRefresher interface {
	Refresh(ctx context.Context) error
}

// Recorder persists terminal attempts. *history.Journal satisfies it.
type Recorder interface {
	Record(ctx context.Context, a *history.Attempt)
}

const confirmTimeout = 90 * time.Second

// Result is the outcome of one submission.
type Result struct {
	Signature  string         `json:"signature,omitempty"`
	Status     history.Status `json:"status"`
	InputMint  string         `json:"inputMint"`
	OutputMint string         `json:"outputMint"`

	// Realized amounts come from on-chain balance deltas, not the quote.
	RealizedIn  float64 `json:"realizedIn,omitempty"`
	RealizedOut float64 `json:"realizedOut,omitempty"`

	QuotedDynamicSlippageBps *uint16 `json:"quotedDynamicSlippageBps,omitempty"`

	Error *ErrorEntry `json:"error,omitempty"`
}

// OrchestratorConfig wires an Orchestrator. Journal, Balances, Chain,
// and OnStatus are optional.
type OrchestratorConfig struct {
	Form     *Form
	Builder  TransactionBuilder
	Signer   wallet.Signer
	Sender   Broadcaster
	Chain    ChainReader
	Journal  Recorder
	Balances BalanceRefresher

	Fees     FeeSource
	Priority PriorityLevel

	Logger   *logrus.Logger
	OnStatus func(history.Status)
}

// Orchestrator drives one swap submission through the state machine
//
//	idle -> quoting -> pending-approval -> sending -> {success | failed | timed-out}
//
// quoting is skipped when the caller supplies a prebuilt transaction.
// A failed submission is never retried automatically; the next Submit
// starts a fresh attempt from idle.
type Orchestrator struct {
	form     *Form
	builder  TransactionBuilder
	signer   wallet.Signer
	sender   Broadcaster
	chain    ChainReader
	journal  Recorder
	balances BalanceRefresher
	fees     FeeSource
	priority PriorityLevel
	logger   *logrus.Logger
	onStatus func(history.Status)

	mu         sync.Mutex
	status     history.Status
	lastResult *Result
	submitting bool
}

func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Priority == "" {
		cfg.Priority = PriorityHigh
	}
	if cfg.Fees == nil {
		cfg.Fees = func() ReferenceFees { return ReferenceFees{} }
	}
	return &Orchestrator{
		form:     cfg.Form,
		builder:  cfg.Builder,
		signer:   cfg.Signer,
		sender:   cfg.Sender,
		chain:    cfg.Chain,
		journal:  cfg.Journal,
		balances: cfg.Balances,
		fees:     cfg.Fees,
		priority: cfg.Priority,
		logger:   cfg.Logger,
		onStatus: cfg.OnStatus,
		status:   history.StatusIdle,
	}
}

func (o *Orchestrator) setStatus(s history.Status) {
	o.mu.Lock()
	o.status = s
	o.mu.Unlock()
	if o.onStatus != nil {
		o.onStatus(s)
	}
}

// Status returns the current submission state.
func (o *Orchestrator) Status() history.Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// LastResult returns the most recent terminal result, if any.
func (o *Orchestrator) LastResult() *Result {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastResult
}

// SubmitOptions tunes one submission.
type SubmitOptions struct {
	// Prebuilt skips the quoting phase and submits this transaction
	// directly. The quote must still be current; the aggregator built
	// the transaction from it.
	Prebuilt *jupiter.SwapResponse
}

var ErrSubmitInProgress = errors.New("a submission is already in progress")

// Submit drives the current quote to a terminal state. Every terminal
// outcome is recorded as a SwapAttempt; none is silently dropped.
func (o *Orchestrator) Submit(ctx context.Context, opts SubmitOptions) (*Result, error) {
	quote, stale := o.form.Quote()
	if quote == nil || stale {
		return nil, fmt.Errorf("%s: no current quote to submit", errKeyStaleQuote)
	}

	o.mu.Lock()
	if o.submitting {
		o.mu.Unlock()
		return nil, ErrSubmitInProgress
	}
	o.submitting = true
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.submitting = false
		o.mu.Unlock()
	}()

	state := o.form.State()
	attempt := &history.Attempt{
		Owner:       o.signer.PublicKey().String(),
		FromMint:    quote.InputMint,
		ToMint:      quote.OutputMint,
		SwapMode:    quote.SwapMode,
		RouteLabels: quote.RouteLabels(),
		SlippageBps: state.SlippageBps,
		StartedAt:   time.Now().UTC(),
	}
	if raw, err := parseRaw(quote.InAmount); err == nil {
		attempt.QuotedInRaw = raw
	}
	if raw, err := parseRaw(quote.OutAmount); err == nil {
		attempt.QuotedOutRaw = raw
	}

	swapResp := opts.Prebuilt
	if swapResp == nil {
		o.setStatus(history.StatusQuoting)
		var err error
		swapResp, err = o.buildSwapTransaction(ctx, quote, state)
		if err != nil {
			return o.finish(ctx, attempt, history.StatusFailed, &ErrorEntry{
				Key:     errKeySwapBuildFailed,
				Title:   "Swap build failed",
				Message: err.Error(),
			}, "")
		}
	}

	tx, err := DecodeTransaction(swapResp.SwapTransaction)
	if err != nil {
		return o.finish(ctx, attempt, history.StatusFailed, &ErrorEntry{
			Key:     errKeySwapBuildFailed,
			Title:   "Swap build failed",
			Message: err.Error(),
		}, "")
	}

	fee := o.fees().Resolve(o.priority)
	if _, err := RewriteComputeUnitPrice(tx, fee); err != nil {
		o.logger.WithError(err).Warn("Could not rewrite priority fee, keeping placeholder")
	} else {
		attempt.PriorityFee = fee
	}

	o.setStatus(history.StatusPendingApproval)
	if err := o.signer.SignTransaction(tx); err != nil {
		return o.finish(ctx, attempt, history.StatusFailed, &ErrorEntry{
			Key:     errKeyExecutionFailed,
			Title:   "Signing failed",
			Message: err.Error(),
		}, "")
	}

	o.setStatus(history.StatusSending)
	sendOpts := wallet.DefaultSendOptions()
	signature, err := o.sender.Send(ctx, tx, &sendOpts)
	if err != nil {
		return o.finish(ctx, attempt, classifyFailure(err), execError(err), signature)
	}

	if err := o.sender.Confirm(ctx, signature, swapResp.LastValidBlockHeight, sendOpts.Commitment, confirmTimeout); err != nil {
		return o.finish(ctx, attempt, classifyFailure(err), execError(err), signature)
	}

	// Realized amounts go into the attempt before it is recorded.
	realizedIn, realizedOut := o.realizedAmounts(ctx, signature, quote)
	attempt.RealizedIn = realizedIn
	attempt.RealizedOut = realizedOut

	res, err := o.finish(ctx, attempt, history.StatusSuccess, nil, signature)
	if res != nil {
		res.RealizedIn = realizedIn
		res.RealizedOut = realizedOut
		if swapResp.DynamicSlippageReport != nil {
			res.QuotedDynamicSlippageBps = swapResp.DynamicSlippageReport.SlippageBps
		}
	}
	return res, err
}

func (o *Orchestrator) buildSwapTransaction(ctx context.Context, quote *jupiter.QuoteResponse, state State) (*jupiter.SwapResponse, error) {
	rawQuote, err := json.Marshal(quote)
	if err != nil {
		return nil, fmt.Errorf("marshal quote: %w", err)
	}

	req := jupiter.SwapRequest{
		QuoteResponse:           json.RawMessage(rawQuote),
		UserPublicKey:           o.signer.PublicKey().String(),
		WrapAndUnwrapSol:        true,
		DynamicComputeUnitLimit: true,
		// A placeholder; the real fee is written into the transaction's
		// compute-budget instruction before signing.
		PrioritizationFeeLamports: 1,
	}
	if state.SlippageMode == prefs.SlippageDynamic {
		req.DynamicSlippage = &jupiter.DynamicSlippage{MaxBps: state.DynamicMaxBps}
	}

	return o.builder.Swap(ctx, req)
}

// RequestInstructions fetches the raw instruction set for the current
// quote, for callers assembling their own transaction. Transport
// failures retry inside the client; after that the attempt surfaces the
// named missing-instructions error.
func (o *Orchestrator) RequestInstructions(ctx context.Context) (*jupiter.SwapInstructionsResponse, error) {
	quote, stale := o.form.Quote()
	if quote == nil || stale {
		return nil, fmt.Errorf("%s: no current quote", errKeyStaleQuote)
	}

	rawQuote, err := json.Marshal(quote)
	if err != nil {
		return nil, fmt.Errorf("marshal quote: %w", err)
	}

	out, err := o.builder.SwapInstructions(ctx, jupiter.SwapInstructionsRequest{
		QuoteResponse:           json.RawMessage(rawQuote),
		UserPublicKey:           o.signer.PublicKey().String(),
		DynamicComputeUnitLimit: true,
	})
	if err != nil {
		o.form.mu.Lock()
		o.form.errors[errKeyMissingInstructions] = missingInstructionsError()
		o.form.mu.Unlock()
		return nil, err
	}
	return out, nil
}

// finish records a terminal attempt and returns the result. Recording
// and the post-success balance refresh are best-effort.
func (o *Orchestrator) finish(ctx context.Context, attempt *history.Attempt, status history.Status, entry *ErrorEntry, signature string) (*Result, error) {
	o.setStatus(status)

	attempt.Status = status
	attempt.Signature = signature
	attempt.FinishedAt = time.Now().UTC()
	if entry != nil {
		attempt.ErrorCode = entry.Key
		attempt.ErrorMessage = entry.Message
	}

	res := &Result{
		Signature:  signature,
		Status:     status,
		InputMint:  attempt.FromMint,
		OutputMint: attempt.ToMint,
		Error:      entry,
	}

	o.mu.Lock()
	o.lastResult = res
	o.mu.Unlock()

	if o.journal != nil {
		o.journal.Record(ctx, attempt)
	}
	if o.balances != nil {
		if err := o.balances.Refresh(ctx); err != nil {
			o.logger.WithError(err).Warn("Balance refresh after swap failed")
		}
	}

	if entry != nil {
		return res, fmt.Errorf("%s: %s", entry.Key, entry.Message)
	}
	return res, nil
}

// realizedAmounts reads the balance deltas actually observed on chain.
// Quoted amounts are only estimates; execution may land anywhere inside
// the slippage bound.
func (o *Orchestrator) realizedAmounts(ctx context.Context, signature string, quote *jupiter.QuoteResponse) (in, out float64) {
	if o.chain == nil {
		return 0, 0
	}

	txResp, err := o.chain.GetTransaction(ctx, signature)
	if err != nil || txResp.Result == nil {
		o.logger.WithError(err).Warn("Could not fetch transaction for realized amounts")
		return 0, 0
	}

	owner := o.signer.PublicKey().String()
	in = math.Abs(rpc.TokenBalanceDelta(txResp.Result.Meta, owner, quote.InputMint))
	out = rpc.TokenBalanceDelta(txResp.Result.Meta, owner, quote.OutputMint)
	return in, out
}

// Reset returns the orchestrator and form to idle. With resetValues the
// form also returns to its initial pair. Balances always refresh.
func (o *Orchestrator) Reset(ctx context.Context, resetValues bool) {
	o.form.Reset(resetValues, "", "")
	o.setStatus(history.StatusIdle)
	if o.balances != nil {
		if err := o.balances.Refresh(ctx); err != nil {
			o.logger.WithError(err).Warn("Balance refresh on reset failed")
		}
	}
}

// classifyFailure maps an execution error to failed or timed-out. The
// structured code contract decides; message sniffing only covers errors
// from outside the execution layer.
func classifyFailure(err error) history.Status {
	if wallet.IsExpiry(err) {
		return history.StatusTimedOut
	}
	return history.StatusFailed
}

func execError(err error) *ErrorEntry {
	entry := &ErrorEntry{
		Key:     errKeyExecutionFailed,
		Title:   "Swap failed",
		Message: err.Error(),
	}
	if wallet.IsExpiry(err) {
		entry.Title = "Transaction expired"
	}
	return entry
}
