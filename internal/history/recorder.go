package history

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/swapfy/terminal/internal/constants"
)

// Recorder keeps a capped recent-attempts list in Redis and fans each
// terminal attempt out over pub/sub for live subscribers.
type Recorder struct {
	client *redis.Client
	prefix string
	logger *logrus.Logger
}

func NewRecorder(client *redis.Client, prefix string, logger *logrus.Logger) (*Recorder, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Recorder{client: client, prefix: prefix, logger: logger}, nil
}

func (r *Recorder) listKey() string {
	return r.prefix + constants.RedisKeyRecentAttempts
}

func (r *Recorder) liveChannel() string {
	return r.prefix + constants.PubSubChannelAttempts
}

func (r *Recorder) pairChannel(pair string) string {
	return r.prefix + "attempts:pair:" + pair
}

// Record pushes a terminal attempt onto the recent list, trims the list
// to its cap, and publishes on the live and per-pair channels in one
// pipeline.
func (r *Recorder) Record(ctx context.Context, a *Attempt) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal attempt: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, r.listKey(), data)
	pipe.LTrim(ctx, r.listKey(), 0, constants.MaxRecentAttempts-1)
	pipe.Publish(ctx, r.liveChannel(), data)
	pipe.Publish(ctx, r.pairChannel(a.Pair()), data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"status":    a.Status,
		"pair":      a.Pair(),
		"signature": a.Signature,
	}).Debug("Recorded swap attempt")
	return nil
}

// Recent returns up to limit attempts, newest first.
func (r *Recorder) Recent(ctx context.Context, limit int64) ([]*Attempt, error) {
	if limit <= 0 || limit > constants.MaxRecentAttempts {
		limit = constants.MaxRecentAttempts
	}

	vals, err := r.client.LRange(ctx, r.listKey(), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("get recent attempts: %w", err)
	}

	out := make([]*Attempt, 0, len(vals))
	for _, v := range vals {
		var a Attempt
		if err := json.Unmarshal([]byte(v), &a); err != nil {
			r.logger.WithError(err).Warn("Skipping malformed attempt entry")
			continue
		}
		out = append(out, &a)
	}
	return out, nil
}

// Subscribe streams live attempts until ctx ends. Malformed payloads
// are skipped, not fatal.
func (r *Recorder) Subscribe(ctx context.Context) (<-chan *Attempt, error) {
	pubsub := r.client.Subscribe(ctx, r.liveChannel())
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe attempts: %w", err)
	}

	out := make(chan *Attempt)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var a Attempt
				if err := json.Unmarshal([]byte(msg.Payload), &a); err != nil {
					r.logger.WithError(err).Warn("Skipping malformed attempt message")
					continue
				}
				select {
				case out <- &a:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (r *Recorder) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Recorder) Close() error {
	return r.client.Close()
}
