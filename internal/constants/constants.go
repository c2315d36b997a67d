package constants

import "time"

// Well-known mint addresses
const (
	NativeSOLMint  = "11111111111111111111111111111111"
	WrappedSOLMint = "So11111111111111111111111111111111111111112"
	USDCMint       = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	USDTMint       = "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"
)

// StablecoinMints are mints whose pair price already approximates USD.
var StablecoinMints = map[string]bool{
	USDCMint: true,
	USDTMint: true,
}

// SolanaNetworkID is the network id Codex uses for Solana.
const SolanaNetworkID = 1399811149

// Redis keys
const (
	RedisKeyRecentAttempts = "attempts:recent"
	RedisKeyPricePrefix    = "prices:"
)

// Redis Pub/Sub channels
const (
	PubSubChannelAttempts = "attempts:live"
)

// Limits
const (
	MaxRecentAttempts = 100
	// The price endpoint caps the ids parameter at ~100 addresses per call.
	PriceBatchSize = 100
)

// Price cache
const (
	PriceCacheTTL    = time.Minute
	PriceBatchDelay  = 250 * time.Millisecond
	PriceFetchWindow = 5 * time.Second
)

// Quoting
const (
	QuoteDebounce       = 300 * time.Millisecond
	QuoteValidityWindow = 20 * time.Second
)

// Form defaults (USDC -> wSOL, the terminal's initial pair)
const (
	DefaultFromMint = USDCMint
	DefaultToMint   = WrappedSOLMint

	DefaultSlippageBps           = 50  // 0.5%
	DefaultDynamicMaxSlippageBps = 300 // dynamic mode cap, 3%
)

// DisplayDecimals is the precision used for the derived (non-active) form side.
const DisplayDecimals = 6
