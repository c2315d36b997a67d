package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleList = `[
	{"address": "So11111111111111111111111111111111111111112", "symbol": "SOL", "name": "Wrapped SOL", "decimals": 9},
	{"address": "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", "symbol": "USDC", "name": "USD Coin", "decimals": 6},
	{"address": "", "symbol": "BAD", "name": "no address", "decimals": 6},
	{"address": "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", "symbol": "DUP", "name": "duplicate mint", "decimals": 0}
]`

func writeList(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tokens.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFile(t *testing.T) {
	reg, err := LoadFile(writeList(t, sampleList))
	require.NoError(t, err)

	// Entries without an address are skipped; duplicates keep first-seen.
	assert.Equal(t, 2, reg.Len())

	tok, err := reg.Get("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	require.NoError(t, err)
	assert.Equal(t, "USDC", tok.Symbol)
	assert.Equal(t, uint8(6), tok.Decimals)

	dec, err := reg.Decimals("So11111111111111111111111111111111111111112")
	require.NoError(t, err)
	assert.Equal(t, uint8(9), dec)

	_, err = reg.Get("missing")
	assert.ErrorIs(t, err, ErrTokenNotFound)
	assert.False(t, reg.Has("missing"))
}

func TestParse_WrappedEnvelope(t *testing.T) {
	wrapped := `{"name": "Test List", "tokens": ` + sampleList + `}`
	reg, err := LoadFile(writeList(t, wrapped))
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())
}

func TestParse_Empty(t *testing.T) {
	_, err := LoadFile(writeList(t, `[]`))
	assert.Error(t, err)

	_, err = LoadFile(writeList(t, `not json`))
	assert.Error(t, err)
}
