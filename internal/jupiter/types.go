package jupiter

import "encoding/json"

// SwapMode selects which side of the trade is fixed.
const (
	SwapModeExactIn  = "ExactIn"
	SwapModeExactOut = "ExactOut"
)

type QuoteRequest struct {
	InputMint  string
	OutputMint string
	Amount     string // raw integer as string (uint64)

	SlippageBps *uint16
	SwapMode    string // ExactIn | ExactOut

	Dexes        []string
	ExcludeDexes []string

	RestrictIntermediateTokens *bool
	OnlyDirectRoutes           *bool
	AsLegacyTransaction        *bool

	PlatformFeeBps *uint16
	MaxAccounts    *uint64
}

type QuoteResponse struct {
	InputMint            string          `json:"inputMint"`
	OutputMint           string          `json:"outputMint"`
	InAmount             string          `json:"inAmount"`
	OutAmount            string          `json:"outAmount"`
	OtherAmountThreshold string          `json:"otherAmountThreshold"`
	SwapMode             string          `json:"swapMode"`
	SlippageBps          uint16          `json:"slippageBps"`
	PlatformFee          *PlatformFee    `json:"platformFee,omitempty"`
	PriceImpactPct       string          `json:"priceImpactPct"`
	RoutePlan            []RoutePlanStep `json:"routePlan"`

	ContextSlot uint64  `json:"contextSlot,omitempty"`
	TimeTaken   float64 `json:"timeTaken,omitempty"`
}

// RouteLabels returns the ordered venue labels of the route plan.
func (q *QuoteResponse) RouteLabels() []string {
	labels := make([]string, 0, len(q.RoutePlan))
	for _, step := range q.RoutePlan {
		labels = append(labels, step.SwapInfo.Label)
	}
	return labels
}

type PlatformFee struct {
	Amount string `json:"amount,omitempty"`
	FeeBps uint16 `json:"feeBps,omitempty"`
}

type RoutePlanStep struct {
	SwapInfo SwapInfo `json:"swapInfo"`
	Percent  *uint8   `json:"percent,omitempty"`
	Bps      uint16   `json:"bps"`
}

type SwapInfo struct {
	AmmKey     string `json:"ammKey"`
	Label      string `json:"label,omitempty"`
	InputMint  string `json:"inputMint"`
	OutputMint string `json:"outputMint"`
	InAmount   string `json:"inAmount"`
	OutAmount  string `json:"outAmount"`

	FeeAmount *string `json:"feeAmount,omitempty"`
	FeeMint   *string `json:"feeMint,omitempty"`
}

// DynamicSlippage caps dynamic slippage estimation at maxBps.
type DynamicSlippage struct {
	MaxBps uint16 `json:"maxBps"`
}

// SwapRequest asks the aggregator to build a full signed-ready
// transaction for a previously obtained quote.
type SwapRequest struct {
	QuoteResponse             json.RawMessage  `json:"quoteResponse"`
	UserPublicKey             string           `json:"userPublicKey"`
	WrapAndUnwrapSol          bool             `json:"wrapAndUnwrapSol"`
	DynamicComputeUnitLimit   bool             `json:"dynamicComputeUnitLimit"`
	PrioritizationFeeLamports uint64           `json:"prioritizationFeeLamports,omitempty"`
	DynamicSlippage           *DynamicSlippage `json:"dynamicSlippage,omitempty"`
	AsLegacyTransaction       bool             `json:"asLegacyTransaction,omitempty"`
}

type SwapResponse struct {
	SwapTransaction      string `json:"swapTransaction"` // base64
	Blockhash            string `json:"blockhash,omitempty"`
	LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`

	PrioritizationFeeLamports uint64                 `json:"prioritizationFeeLamports,omitempty"`
	DynamicSlippageReport     *DynamicSlippageReport `json:"dynamicSlippageReport,omitempty"`

	Error string `json:"error,omitempty"`
}

type DynamicSlippageReport struct {
	SlippageBps              *uint16 `json:"slippageBps,omitempty"`
	CategoryName             string  `json:"categoryName,omitempty"`
	HeuristicMaxSlippageBps  *uint16 `json:"heuristicMaxSlippageBps,omitempty"`
	AmplificationRatio       string  `json:"amplificationRatio,omitempty"`
	OtherAmount              *uint64 `json:"otherAmount,omitempty"`
	SimulatedIncurredSlippageBps *int16 `json:"simulatedIncurredSlippageBps,omitempty"`
}

// SwapInstructionsRequest asks for raw instructions instead of a full
// transaction.
type SwapInstructionsRequest struct {
	QuoteResponse           json.RawMessage `json:"quoteResponse"`
	UserPublicKey           string          `json:"userPublicKey"`
	DynamicComputeUnitLimit bool            `json:"dynamicComputeUnitLimit"`
}

// Instruction is one serialized instruction from the swap-instructions
// endpoint.
type Instruction struct {
	ProgramID string               `json:"programId"`
	Accounts  []InstructionAccount `json:"accounts"`
	Data      string               `json:"data"` // base64
}

type InstructionAccount struct {
	Pubkey     string `json:"pubkey"`
	IsSigner   bool   `json:"isSigner"`
	IsWritable bool   `json:"isWritable"`
}

type SwapInstructionsResponse struct {
	Error string `json:"error,omitempty"`

	TokenLedgerInstruction      *Instruction  `json:"tokenLedgerInstruction,omitempty"`
	ComputeBudgetInstructions   []Instruction `json:"computeBudgetInstructions,omitempty"`
	SetupInstructions           []Instruction `json:"setupInstructions,omitempty"`
	SwapInstruction             *Instruction  `json:"swapInstruction,omitempty"`
	CleanupInstruction          *Instruction  `json:"cleanupInstruction,omitempty"`
	AddressLookupTableAddresses []string      `json:"addressLookupTableAddresses,omitempty"`
}

// PriceEntry is one token's USD price from the price endpoint.
type PriceEntry struct {
	ID            string  `json:"id"`
	MintSymbol    string  `json:"mintSymbol"`
	VsToken       string  `json:"vsToken"`
	VsTokenSymbol string  `json:"vsTokenSymbol"`
	Price         float64 `json:"price"`
}

type priceResponse struct {
	Data      map[string]PriceEntry `json:"data"`
	TimeTaken float64               `json:"timeTaken"`
}
