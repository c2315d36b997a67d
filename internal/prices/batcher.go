package prices

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/swapfy/terminal/internal/constants"
	"github.com/swapfy/terminal/internal/jupiter"
)

// FetchFunc fetches USD prices for a set of token addresses. It is
// satisfied by (*jupiter.Client).Prices.
type FetchFunc func(ctx context.Context, addresses []string) (map[string]jupiter.PriceEntry, error)

// Batcher coalesces price lookups. Callers register the addresses they
// care about; the batcher waits a short debounce window so rapid
// registrations collapse into one upstream call, then fetches only the
// addresses the cache cannot serve, chunked to the upstream batch
// limit.
type Batcher struct {
	cache  *Cache
	fetch  FetchFunc
	logger *logrus.Logger

	debounce  time.Duration
	chunkSize int

	mu      sync.Mutex
	tracked map[string]struct{}
	timer   *time.Timer
	kicks   chan struct{}

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewBatcher(cache *Cache, fetch FetchFunc, logger *logrus.Logger) *Batcher {
	if logger == nil {
		logger = logrus.New()
	}
	return &Batcher{
		cache:     cache,
		fetch:     fetch,
		logger:    logger,
		debounce:  constants.PriceBatchDelay,
		chunkSize: constants.PriceBatchSize,
		tracked:   make(map[string]struct{}),
		kicks:     make(chan struct{}, 1),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Track registers addresses for price coverage and arms the debounce
// timer. Repeated calls inside the window extend the batch, not the
// number of upstream requests.
func (b *Batcher) Track(addrs ...string) {
	if len(addrs) == 0 {
		return
	}

	b.mu.Lock()
	for _, a := range addrs {
		if a != "" {
			b.tracked[a] = struct{}{}
		}
	}
	if b.timer == nil {
		b.timer = time.AfterFunc(b.debounce, b.kick)
	} else {
		b.timer.Reset(b.debounce)
	}
	b.mu.Unlock()
}

func (b *Batcher) kick() {
	select {
	case b.kicks <- struct{}{}:
	default:
	}
}

// Run services debounced refreshes until ctx ends or Close is called.
func (b *Batcher) Run(ctx context.Context) {
	defer close(b.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.stop:
			return
		case <-b.kicks:
			b.refresh(ctx)
		}
	}
}

func (b *Batcher) Close() {
	b.stopOnce.Do(func() { close(b.stop) })
	<-b.done
}

// Refresh fetches all tracked addresses the cache cannot serve,
// synchronously. The debounced path calls this too; exposing it lets
// tests and one-shot tools skip the timer.
func (b *Batcher) Refresh(ctx context.Context) error {
	return b.refresh(ctx)
}

func (b *Batcher) refresh(ctx context.Context) error {
	b.mu.Lock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	addrs := make([]string, 0, len(b.tracked))
	for a := range b.tracked {
		addrs = append(addrs, a)
	}
	b.mu.Unlock()

	stale := b.cache.Stale(addrs)
	if len(stale) == 0 {
		return nil
	}
	sort.Strings(stale)

	var firstErr error
	for start := 0; start < len(stale); start += b.chunkSize {
		end := start + b.chunkSize
		if end > len(stale) {
			end = len(stale)
		}
		chunk := stale[start:end]

		entries, err := b.fetch(ctx, chunk)
		if err != nil {
			b.logger.WithError(err).WithField("addresses", len(chunk)).
				Warn("Price batch fetch failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		prices := make(map[string]float64, len(entries))
		for addr, e := range entries {
			prices[addr] = e.Price
		}
		b.cache.Put(prices)
	}
	return firstErr
}
