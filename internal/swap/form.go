package swap

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/swapfy/terminal/internal/amount"
	"github.com/swapfy/terminal/internal/constants"
	"github.com/swapfy/terminal/internal/jupiter"
	"github.com/swapfy/terminal/internal/prefs"
	"github.com/swapfy/terminal/internal/registry"
)

// Side names the form field the user is editing.
type Side int

const (
	SideFrom Side = iota
	SideTo
)

// Quoter is the slice of the aggregator client the form needs.
type Quoter interface {
	Quote(ctx context.Context, req jupiter.QuoteRequest) (*jupiter.QuoteResponse, error)
}

// quoteKey identifies the exact form state a quote was issued for. A
// response is applied only while its key still matches the form.
type quoteKey struct {
	FromMint    string
	ToMint      string
	RawAmount   uint64
	SwapMode    string
	SlippageBps uint16
}

// FormConfig wires a Form. Debounce and Validity default to the
// terminal's standard windows when zero.
type FormConfig struct {
	Quoter   Quoter
	Registry *registry.Registry
	Logger   *logrus.Logger

	FromMint string
	ToMint   string

	Slippage *prefs.Preferences

	Debounce time.Duration
	Validity time.Duration
}

// Form owns the user-editable trade intent and its derived quote state.
// Exactly one side is active at a time; the other side's value is
// always derived from the latest quote. Edits debounce into a single
// quote request, and a successful quote re-arms an expiry timer that
// refreshes it before it can go stale.
type Form struct {
	mu sync.Mutex

	fromMint  string
	toMint    string
	fromValue string
	toValue   string
	active    Side

	slippageMode  prefs.SlippageMode
	slippageBps   uint16
	dynamicMaxBps uint16

	quote    *jupiter.QuoteResponse
	quoteFor quoteKey
	quotedAt time.Time
	gen      uint64 // bumped per issued request; stale responses check it

	errors map[string]ErrorEntry

	quoter   Quoter
	registry *registry.Registry
	logger   *logrus.Logger

	debounce time.Duration
	validity time.Duration

	ctx          context.Context
	debounceTmr  *time.Timer
	expiryTmr    *time.Timer
	quoteUpdated chan struct{}
}

func NewForm(ctx context.Context, cfg FormConfig) *Form {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Debounce == 0 {
		cfg.Debounce = constants.QuoteDebounce
	}
	if cfg.Validity == 0 {
		cfg.Validity = constants.QuoteValidityWindow
	}
	if cfg.FromMint == "" {
		cfg.FromMint = constants.DefaultFromMint
	}
	if cfg.ToMint == "" {
		cfg.ToMint = constants.DefaultToMint
	}
	if cfg.Slippage == nil {
		cfg.Slippage = prefs.Defaults("")
	}

	return &Form{
		fromMint:      cfg.FromMint,
		toMint:        cfg.ToMint,
		active:        SideFrom,
		slippageMode:  cfg.Slippage.SlippageMode,
		slippageBps:   cfg.Slippage.SlippageBps,
		dynamicMaxBps: cfg.Slippage.DynamicMaxBps,
		errors:        make(map[string]ErrorEntry),
		quoter:        cfg.Quoter,
		registry:      cfg.Registry,
		logger:        cfg.Logger,
		debounce:      cfg.Debounce,
		validity:      cfg.Validity,
		ctx:           ctx,
		quoteUpdated:  make(chan struct{}, 1),
	}
}

// UpdateAmount records a user edit. Values failing validation are
// rejected silently: the field keeps its previous content and no state
// changes. A valid edit marks that side active, clears the derived
// side, invalidates the current quote, and schedules a refresh.
func (f *Form) UpdateAmount(side Side, value string) {
	if err := amount.Validate(value); err != nil {
		return
	}

	f.mu.Lock()
	f.active = side
	if side == SideFrom {
		f.fromValue = value
		f.toValue = ""
	} else {
		f.toValue = value
		f.fromValue = ""
	}
	f.invalidateQuoteLocked()
	f.scheduleQuoteLocked()
	f.mu.Unlock()
}

// SetTokens replaces the pair. Any quote for the old pair dies here.
func (f *Form) SetTokens(fromMint, toMint string) {
	f.mu.Lock()
	if f.fromMint != fromMint || f.toMint != toMint {
		f.fromMint = fromMint
		f.toMint = toMint
		f.invalidateQuoteLocked()
		f.scheduleQuoteLocked()
	}
	f.mu.Unlock()
}

// SwitchSides swaps the pair and carries the active side's value across.
func (f *Form) SwitchSides() {
	f.mu.Lock()
	f.fromMint, f.toMint = f.toMint, f.fromMint
	f.fromValue, f.toValue = f.toValue, f.fromValue
	if f.active == SideFrom {
		f.active = SideTo
	} else {
		f.active = SideFrom
	}
	f.invalidateQuoteLocked()
	f.scheduleQuoteLocked()
	f.mu.Unlock()
}

// SetSlippage applies new slippage settings and refreshes the quote,
// since the tolerance is part of the quote request.
func (f *Form) SetSlippage(p *prefs.Preferences) {
	f.mu.Lock()
	f.slippageMode = p.SlippageMode
	f.slippageBps = p.SlippageBps
	f.dynamicMaxBps = p.DynamicMaxBps
	f.invalidateQuoteLocked()
	f.scheduleQuoteLocked()
	f.mu.Unlock()
}

// swapMode derives the quote direction from the active side.
func (f *Form) swapModeLocked() string {
	if f.active == SideTo {
		return jupiter.SwapModeExactOut
	}
	return jupiter.SwapModeExactIn
}

// keyLocked computes the quote key for the current state. ok is false
// when the active side has no usable amount (no quote should be issued).
func (f *Form) keyLocked() (quoteKey, bool) {
	activeValue, activeMint := f.fromValue, f.fromMint
	if f.active == SideTo {
		activeValue, activeMint = f.toValue, f.toMint
	}
	if !amount.HasValue(activeValue) {
		return quoteKey{}, false
	}

	decimals, err := f.registry.Decimals(activeMint)
	if err != nil {
		return quoteKey{}, false
	}
	raw, err := amount.ToRaw(activeValue, decimals)
	if err != nil || raw == 0 {
		return quoteKey{}, false
	}

	return quoteKey{
		FromMint:    f.fromMint,
		ToMint:      f.toMint,
		RawAmount:   raw,
		SwapMode:    f.swapModeLocked(),
		SlippageBps: f.slippageBps,
	}, true
}

func (f *Form) invalidateQuoteLocked() {
	f.quote = nil
	f.quoteFor = quoteKey{}
	f.quotedAt = time.Time{}
	delete(f.errors, errKeyQuoteFailed)
	if f.expiryTmr != nil {
		f.expiryTmr.Stop()
		f.expiryTmr = nil
	}
}

func (f *Form) scheduleQuoteLocked() {
	if f.debounceTmr != nil {
		f.debounceTmr.Stop()
	}
	f.debounceTmr = time.AfterFunc(f.debounce, func() {
		_ = f.RequestQuote(f.ctx)
	})
}

// RequestQuote issues a quote for the current state, bypassing the
// debounce. Responses for superseded requests are discarded: a result
// applies only if no newer request has been issued and the form still
// matches the key that produced it.
func (f *Form) RequestQuote(ctx context.Context) error {
	f.mu.Lock()
	key, ok := f.keyLocked()
	if !ok {
		// Nothing to quote; clear the derived side.
		if f.active == SideFrom {
			f.toValue = ""
		} else {
			f.fromValue = ""
		}
		f.invalidateQuoteLocked()
		f.mu.Unlock()
		return nil
	}

	f.gen++
	myGen := f.gen
	slippage := key.SlippageBps
	req := jupiter.QuoteRequest{
		InputMint:   key.FromMint,
		OutputMint:  key.ToMint,
		Amount:      amount.FromRaw(key.RawAmount, 0),
		SwapMode:    key.SwapMode,
		SlippageBps: &slippage,
	}
	f.mu.Unlock()

	quote, err := f.quoter.Quote(ctx, req)

	f.mu.Lock()
	defer f.mu.Unlock()

	if myGen != f.gen {
		// A newer request owns the state now.
		return nil
	}
	if current, ok := f.keyLocked(); !ok || current != key {
		// The form moved on while we were in flight.
		return nil
	}

	if err != nil {
		// Keep the previous quote visible but flag the failure; user
		// input is never cleared by a quote error.
		f.errors[errKeyQuoteFailed] = quoteFailedError(err.Error())
		f.logger.WithError(err).Warn("Quote request failed")
		return err
	}

	f.quote = quote
	f.quoteFor = key
	f.quotedAt = time.Now()
	delete(f.errors, errKeyQuoteFailed)
	f.applyDerivedLocked(quote, key)
	f.armExpiryLocked()

	select {
	case f.quoteUpdated <- struct{}{}:
	default:
	}
	return nil
}

// applyDerivedLocked writes the non-active side's display value from the
// quote, at fixed display precision.
func (f *Form) applyDerivedLocked(quote *jupiter.QuoteResponse, key quoteKey) {
	if key.SwapMode == jupiter.SwapModeExactIn {
		decimals, err := f.registry.Decimals(key.ToMint)
		if err != nil {
			return
		}
		raw, err := parseRaw(quote.OutAmount)
		if err != nil {
			return
		}
		f.toValue = amount.Display(raw, decimals)
		return
	}

	decimals, err := f.registry.Decimals(key.FromMint)
	if err != nil {
		return
	}
	raw, err := parseRaw(quote.InAmount)
	if err != nil {
		return
	}
	f.fromValue = amount.Display(raw, decimals)
}

// armExpiryLocked schedules an automatic refresh so the quote is never
// older than the validity window while the form sits idle.
func (f *Form) armExpiryLocked() {
	if f.expiryTmr != nil {
		f.expiryTmr.Stop()
	}
	f.expiryTmr = time.AfterFunc(f.validity, func() {
		f.logger.Debug("Quote expired, refreshing")
		_ = f.RequestQuote(f.ctx)
	})
}

// Quote returns the current quote, or nil with stale=true when there is
// none or it has outlived the validity window.
func (f *Form) Quote() (_ *jupiter.QuoteResponse, stale bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.quote == nil {
		return nil, true
	}
	return f.quote, time.Since(f.quotedAt) > f.validity
}

// State is a render-ready copy of the form.
type State struct {
	FromMint  string `json:"fromMint"`
	ToMint    string `json:"toMint"`
	FromValue string `json:"fromValue"`
	ToValue   string `json:"toValue"`
	Active    Side   `json:"activeSide"`

	SlippageMode  prefs.SlippageMode `json:"slippageMode"`
	SlippageBps   uint16             `json:"slippageBps"`
	DynamicMaxBps uint16             `json:"dynamicMaxBps"`

	Quote       *jupiter.QuoteResponse `json:"quote,omitempty"`
	QuoteStale  bool                   `json:"quoteStale"`
	RouteLabels []string               `json:"routeLabels,omitempty"`

	Errors map[string]ErrorEntry `json:"errors,omitempty"`
}

func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := State{
		FromMint:      f.fromMint,
		ToMint:        f.toMint,
		FromValue:     f.fromValue,
		ToValue:       f.toValue,
		Active:        f.active,
		SlippageMode:  f.slippageMode,
		SlippageBps:   f.slippageBps,
		DynamicMaxBps: f.dynamicMaxBps,
		Quote:         f.quote,
		QuoteStale:    f.quote == nil || time.Since(f.quotedAt) > f.validity,
	}
	if f.quote != nil {
		s.RouteLabels = f.quote.RouteLabels()
	}
	if len(f.errors) > 0 {
		s.Errors = make(map[string]ErrorEntry, len(f.errors))
		for k, v := range f.errors {
			s.Errors[k] = v
		}
	}
	return s
}

// QuoteUpdates signals each applied quote; used by callers that block
// waiting for a fresh quote.
func (f *Form) QuoteUpdates() <-chan struct{} {
	return f.quoteUpdated
}

// Reset clears quote, errors, and derived state. With resetValues the
// form returns to its initial pair and empty amounts.
func (f *Form) Reset(resetValues bool, fromMint, toMint string) {
	f.mu.Lock()
	if resetValues {
		if fromMint == "" {
			fromMint = constants.DefaultFromMint
		}
		if toMint == "" {
			toMint = constants.DefaultToMint
		}
		f.fromMint = fromMint
		f.toMint = toMint
		f.fromValue = ""
		f.toValue = ""
		f.active = SideFrom
	} else {
		f.toValue = ""
	}
	f.errors = make(map[string]ErrorEntry)
	f.invalidateQuoteLocked()
	if f.debounceTmr != nil {
		f.debounceTmr.Stop()
		f.debounceTmr = nil
	}
	f.mu.Unlock()
}

// Close stops the form's timers.
func (f *Form) Close() {
	f.mu.Lock()
	if f.debounceTmr != nil {
		f.debounceTmr.Stop()
	}
	if f.expiryTmr != nil {
		f.expiryTmr.Stop()
	}
	f.mu.Unlock()
}

func parseRaw(s string) (uint64, error) {
	return amount.ToRaw(s, 0)
}
