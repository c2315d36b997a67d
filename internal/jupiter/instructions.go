package jupiter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// instructionFetchAttempts bounds the swap-instructions retry loop.
// Exactly this many attempts are made on transport failure, with linear
// backoff between them, before the fetch is declared failed.
const instructionFetchAttempts = 3

// ErrMissingInstructions means the swap-instructions endpoint either
// returned an error object or stayed unreachable through every retry.
var ErrMissingInstructions = errors.New("failed to get swap instructions")

// SwapInstructions fetches the raw instruction set for a quote. Transport
// failures are retried with a bounded loop and linear backoff (attempt n
// sleeps n*RetryBackoff); an explicit error object from the API is not
// retried.
func (c *Client) SwapInstructions(ctx context.Context, req SwapInstructionsRequest) (*SwapInstructionsResponse, error) {
	var lastErr error

	for attempt := 1; attempt <= instructionFetchAttempts; attempt++ {
		if attempt > 1 {
			backoff := time.Duration(attempt-1) * c.RetryBackoff
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		body, err := c.post(ctx, c.BaseURL+"/swap-instructions", req)
		if err != nil {
			lastErr = err
			continue
		}

		var out SwapInstructionsResponse
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, fmt.Errorf("failed to decode swap instructions: %w", err)
		}
		if out.Error != "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingInstructions, out.Error)
		}
		if out.SwapInstruction == nil {
			return nil, fmt.Errorf("%w: response has no swap instruction", ErrMissingInstructions)
		}
		return &out, nil
	}

	return nil, fmt.Errorf("%w: %v", ErrMissingInstructions, lastErr)
}
