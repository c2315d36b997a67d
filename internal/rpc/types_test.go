package rpc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenBalanceDelta(t *testing.T) {
	meta := &TransactionMeta{
		PreTokenBalances: []TokenBalance{
			{Mint: "USDC", Owner: "alice", UITokenAmount: TokenAmount{UIAmount: 100}},
			{Mint: "SOL", Owner: "alice", UITokenAmount: TokenAmount{UIAmount: 2}},
			{Mint: "USDC", Owner: "bob", UITokenAmount: TokenAmount{UIAmount: 50}},
		},
		PostTokenBalances: []TokenBalance{
			{Mint: "USDC", Owner: "alice", UITokenAmount: TokenAmount{UIAmount: 75}},
			{Mint: "SOL", Owner: "alice", UITokenAmount: TokenAmount{UIAmount: 2.4}},
			{Mint: "USDC", Owner: "bob", UITokenAmount: TokenAmount{UIAmount: 75}},
		},
	}

	assert.InDelta(t, -25, TokenBalanceDelta(meta, "alice", "USDC"), 1e-9)
	assert.InDelta(t, 0.4, TokenBalanceDelta(meta, "alice", "SOL"), 1e-9)
	assert.InDelta(t, 25, TokenBalanceDelta(meta, "bob", "USDC"), 1e-9)

	// Account absent on one side counts as zero on that side.
	assert.InDelta(t, 0, TokenBalanceDelta(meta, "carol", "USDC"), 1e-9)
	assert.InDelta(t, 0, TokenBalanceDelta(nil, "alice", "USDC"), 1e-9)
}
