package rpc

// RPCError represents a JSON-RPC error response.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return e.Message
}

// TokenAmount represents token balance information.
type TokenAmount struct {
	Amount         string  `json:"amount"`
	Decimals       int     `json:"decimals"`
	UIAmountString string  `json:"uiAmountString"`
	UIAmount       float64 `json:"uiAmount"`
}

// TokenBalance represents one pre/post token balance entry.
type TokenBalance struct {
	AccountIndex  int         `json:"accountIndex"`
	Mint          string      `json:"mint"`
	Owner         string      `json:"owner"`
	UITokenAmount TokenAmount `json:"uiTokenAmount"`
}

// TransactionMeta contains metadata about a confirmed transaction.
type TransactionMeta struct {
	Err               interface{}    `json:"err"`
	PreBalances       []uint64       `json:"preBalances"`
	PostBalances      []uint64       `json:"postBalances"`
	PreTokenBalances  []TokenBalance `json:"preTokenBalances"`
	PostTokenBalances []TokenBalance `json:"postTokenBalances"`
}

// AccountKey represents an account in a transaction message.
type AccountKey struct {
	Pubkey string `json:"pubkey"`
}

// TransactionMessage contains the transaction message.
type TransactionMessage struct {
	AccountKeys []AccountKey `json:"accountKeys"`
}

// Transaction represents a parsed transaction.
type Transaction struct {
	Message TransactionMessage `json:"message"`
}

// TransactionResult contains the full transaction data.
type TransactionResult struct {
	Slot        uint64           `json:"slot"`
	BlockTime   *int64           `json:"blockTime"`
	Meta        *TransactionMeta `json:"meta"`
	Transaction *Transaction     `json:"transaction"`
}

// TransactionResponse is the response from getTransaction.
type TransactionResponse struct {
	Result *TransactionResult `json:"result"`
	Error  *RPCError          `json:"error"`
}

// BalanceDelta is a token balance change observed on a confirmed
// transaction: post minus pre, in UI units, for one (owner, mint).
type BalanceDelta struct {
	Mint   string
	Amount float64
}

// TokenBalanceDelta computes the owner's balance change for a mint from a
// transaction's pre/post token balances. Quotes are estimates; realized
// amounts come from these deltas.
func TokenBalanceDelta(meta *TransactionMeta, owner, mint string) float64 {
	if meta == nil {
		return 0
	}

	sum := func(balances []TokenBalance) float64 {
		var total float64
		for _, b := range balances {
			if b.Mint == mint && b.Owner == owner {
				total += b.UITokenAmount.UIAmount
			}
		}
		return total
	}

	return sum(meta.PostTokenBalances) - sum(meta.PreTokenBalances)
}
