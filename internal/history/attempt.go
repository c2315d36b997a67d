package history

import "time"

// Status is a swap attempt's lifecycle state. Terminal states are
// StatusSuccess, StatusFailed, and StatusTimedOut; an attempt never
// leaves a terminal state.
type Status string

const (
	StatusIdle            Status = "idle"
	StatusQuoting         Status = "quoting"
	StatusPendingApproval Status = "pending-approval"
	StatusSending         Status = "sending"
	StatusSuccess         Status = "success"
	StatusFailed          Status = "failed"
	StatusTimedOut        Status = "timed-out"
)

// Terminal reports whether s ends an attempt.
func (s Status) Terminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusTimedOut:
		return true
	}
	return false
}

// Attempt is one swap submission from quote to terminal state. Realized
// amounts come from on-chain balance deltas, not the quote; quotes are
// estimates and execution may land elsewhere inside the slippage bound.
type Attempt struct {
	Signature string `json:"signature,omitempty"`
	Owner     string `json:"owner"`
	Status    Status `json:"status"`

	FromMint string `json:"fromMint"`
	ToMint   string `json:"toMint"`
	SwapMode string `json:"swapMode"`

	QuotedInRaw  uint64 `json:"quotedInRaw"`
	QuotedOutRaw uint64 `json:"quotedOutRaw"`

	RealizedIn  float64 `json:"realizedIn,omitempty"`
	RealizedOut float64 `json:"realizedOut,omitempty"`

	RouteLabels []string `json:"routeLabels,omitempty"`
	SlippageBps uint16   `json:"slippageBps"`
	PriorityFee uint64   `json:"priorityFeeMicroLamports,omitempty"`

	ErrorCode    string `json:"errorCode,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`

	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

// Pair is the attempt's canonical pair label, used for per-pair pub/sub
// channels.
func (a *Attempt) Pair() string {
	return a.FromMint + "-" + a.ToMint
}
