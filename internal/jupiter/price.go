package jupiter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// priceFetchTimeout is a hard cap on a single price call. Price lookups
// are ancillary; a slow feed must not stall the form.
const priceFetchTimeout = 5 * time.Second

// Prices fetches USD prices for up to ~100 token addresses in one batched
// call. Callers with larger sets must chunk; see prices.Batcher.
func (c *Client) Prices(ctx context.Context, addresses []string) (map[string]PriceEntry, error) {
	ids := make([]string, 0, len(addresses))
	for _, a := range addresses {
		a = strings.TrimSpace(a)
		if a != "" {
			ids = append(ids, a)
		}
	}
	if len(ids) == 0 {
		return map[string]PriceEntry{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, priceFetchTimeout)
	defer cancel()

	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))

	body, err := c.get(ctx, c.PriceURL+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("price fetch failed: %w", err)
	}

	var out priceResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode price response: %w", err)
	}
	if out.Data == nil {
		return map[string]PriceEntry{}, nil
	}
	return out.Data, nil
}
