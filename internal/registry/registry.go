package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

var ErrTokenNotFound = errors.New("token not found in registry")

// TokenInfo describes one tradeable asset. Entries are loaded once at
// startup and never mutated afterwards.
type TokenInfo struct {
	Address  string   `json:"address"`
	Symbol   string   `json:"symbol"`
	Name     string   `json:"name"`
	Decimals uint8    `json:"decimals"`
	LogoURI  string   `json:"logoURI,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// Registry indexes the token list by mint address.
type Registry struct {
	byMint map[string]TokenInfo
	tokens []TokenInfo
}

// New builds a registry from an in-memory token list, keeping the first
// entry for a duplicated mint.
func New(tokens []TokenInfo) *Registry {
	r := &Registry{byMint: make(map[string]TokenInfo, len(tokens))}
	for _, t := range tokens {
		addr := strings.TrimSpace(t.Address)
		if addr == "" {
			continue
		}
		if _, ok := r.byMint[addr]; ok {
			continue
		}
		t.Address = addr
		r.byMint[addr] = t
		r.tokens = append(r.tokens, t)
	}
	return r
}

// LoadFile builds a registry from a local token-list JSON file.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read token list: %w", err)
	}
	return parse(data)
}

// LoadURL builds a registry from a hosted token list.
func LoadURL(ctx context.Context, url string) (*Registry, error) {
	client := &http.Client{Timeout: 30 * time.Second}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("accept", "application/json")

	res, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch token list: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token list fetch: unexpected status %d", res.StatusCode)
	}

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token list response: %w", err)
	}
	return parse(data)
}

func parse(data []byte) (*Registry, error) {
	var tokens []TokenInfo
	if err := json.Unmarshal(data, &tokens); err != nil {
		// Some lists wrap the array in a {"tokens": [...]} envelope.
		var wrapper struct {
			Tokens []TokenInfo `json:"tokens"`
		}
		if err2 := json.Unmarshal(data, &wrapper); err2 != nil || wrapper.Tokens == nil {
			return nil, fmt.Errorf("failed to parse token list: %w", err)
		}
		tokens = wrapper.Tokens
	}

	byMint := make(map[string]TokenInfo, len(tokens))
	kept := make([]TokenInfo, 0, len(tokens))
	for _, tok := range tokens {
		addr := strings.TrimSpace(tok.Address)
		if addr == "" || tok.Symbol == "" {
			continue
		}
		if _, dup := byMint[addr]; dup {
			continue
		}
		tok.Address = addr
		byMint[addr] = tok
		kept = append(kept, tok)
	}

	if len(kept) == 0 {
		return nil, fmt.Errorf("token list contains no usable entries")
	}

	return &Registry{byMint: byMint, tokens: kept}, nil
}

// Get looks a token up by mint address.
func (r *Registry) Get(mint string) (TokenInfo, error) {
	tok, ok := r.byMint[mint]
	if !ok {
		return TokenInfo{}, ErrTokenNotFound
	}
	return tok, nil
}

// Decimals returns the decimal precision for a mint.
func (r *Registry) Decimals(mint string) (uint8, error) {
	tok, err := r.Get(mint)
	if err != nil {
		return 0, err
	}
	return tok.Decimals, nil
}

// Has reports whether the registry knows the mint.
func (r *Registry) Has(mint string) bool {
	_, ok := r.byMint[mint]
	return ok
}

// All returns every token in list order.
func (r *Registry) All() []TokenInfo {
	return r.tokens
}

// Len returns the number of indexed tokens.
func (r *Registry) Len() int {
	return len(r.tokens)
}
