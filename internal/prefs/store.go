package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/swapfy/terminal/internal/constants"
)

// SlippageMode selects how the execution layer bounds price movement.
type SlippageMode string

const (
	// SlippageFixed applies the user's exact basis-point tolerance.
	SlippageFixed SlippageMode = "FIXED"
	// SlippageDynamic lets the aggregator estimate, capped at MaxBps.
	SlippageDynamic SlippageMode = "DYNAMIC"
)

var ErrNotFound = errors.New("preferences not found")

// maxSlippageBps rejects settings that would accept any price. 5000 bps
// is a 50% move.
const maxSlippageBps = 5000

var ownerRe = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`)

// Preferences are a wallet's persisted swap settings.
type Preferences struct {
	Owner         string       `json:"owner"`
	SlippageMode  SlippageMode `json:"slippageMode"`
	SlippageBps   uint16       `json:"slippageBps"`
	DynamicMaxBps uint16       `json:"dynamicMaxBps"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// Defaults returns the settings applied before a wallet has saved any.
func Defaults(owner string) *Preferences {
	return &Preferences{
		Owner:         owner,
		SlippageMode:  SlippageDynamic,
		SlippageBps:   constants.DefaultSlippageBps,
		DynamicMaxBps: constants.DefaultDynamicMaxSlippageBps,
	}
}

func (p *Preferences) Validate() error {
	switch p.SlippageMode {
	case SlippageFixed, SlippageDynamic:
	default:
		return fmt.Errorf("invalid slippage mode %q", p.SlippageMode)
	}
	if p.SlippageBps == 0 || p.SlippageBps > maxSlippageBps {
		return fmt.Errorf("slippageBps must be in [1, %d]", maxSlippageBps)
	}
	if p.DynamicMaxBps == 0 || p.DynamicMaxBps > maxSlippageBps {
		return fmt.Errorf("dynamicMaxBps must be in [1, %d]", maxSlippageBps)
	}
	return nil
}

// Store persists per-wallet preferences in Redis. The prefix keeps one
// deployment's keys apart from another sharing the same instance.
type Store struct {
	client redis.Cmdable
	prefix string
}

func NewStore(client redis.Cmdable, prefix string) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	return &Store{client: client, prefix: prefix}, nil
}

func ValidateOwner(owner string) error {
	if !ownerRe.MatchString(owner) {
		return fmt.Errorf("invalid owner address")
	}
	return nil
}

// Upsert validates and saves a wallet's preferences, stamping UpdatedAt.
func (s *Store) Upsert(ctx context.Context, p *Preferences) (*Preferences, error) {
	if err := ValidateOwner(p.Owner); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	saved := *p
	saved.UpdatedAt = time.Now().UTC()
	b, err := json.Marshal(&saved)
	if err != nil {
		return nil, fmt.Errorf("marshal preferences: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(p.Owner), b, 0)
	pipe.SAdd(ctx, s.indexKey(), p.Owner)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("upsert preferences: %w", err)
	}

	return &saved, nil
}

// Get returns a wallet's saved preferences, or ErrNotFound.
func (s *Store) Get(ctx context.Context, owner string) (*Preferences, error) {
	if err := ValidateOwner(owner); err != nil {
		return nil, err
	}

	val, err := s.client.Get(ctx, s.key(owner)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get preferences: %w", err)
	}

	var p Preferences
	if err := json.Unmarshal([]byte(val), &p); err != nil {
		return nil, fmt.Errorf("unmarshal preferences: %w", err)
	}
	return &p, nil
}

// GetOrDefaults returns saved preferences when present, otherwise the
// defaults for the owner.
func (s *Store) GetOrDefaults(ctx context.Context, owner string) (*Preferences, error) {
	p, err := s.Get(ctx, owner)
	if errors.Is(err, ErrNotFound) {
		return Defaults(owner), nil
	}
	return p, err
}

func (s *Store) Delete(ctx context.Context, owner string) error {
	if err := ValidateOwner(owner); err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(owner))
	pipe.SRem(ctx, s.indexKey(), owner)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete preferences: %w", err)
	}
	return nil
}

func (s *Store) key(owner string) string {
	return s.prefix + "prefs:" + owner
}

func (s *Store) indexKey() string {
	return s.prefix + "prefs:index"
}
