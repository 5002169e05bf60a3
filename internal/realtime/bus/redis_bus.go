package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jpillora/backoff"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/navrelay/internal/platform/logger"
)

type RedisOptions struct {
	Addr    string
	Channel string
	NodeID  string
}

type redisBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
	nodeID  string
}

func NewRedisBus(log *logger.Logger, opts RedisOptions) (Bus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(opts.Addr)
	if addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	if strings.TrimSpace(opts.NodeID) == "" {
		return nil, fmt.Errorf("missing node id")
	}
	ch := strings.TrimSpace(opts.Channel)
	if ch == "" {
		ch = "navrelay"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisBus{
		log:     log.With("component", "RedisBus", "channel", ch),
		rdb:     rdb,
		channel: ch,
		nodeID:  opts.NodeID,
	}, nil
}

func (b *redisBus) Publish(ctx context.Context, env Envelope) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis bus not initialized")
	}
	env.Origin = b.nodeID
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

func (b *redisBus) StartForwarder(ctx context.Context, onMsg func(env Envelope)) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis bus not initialized")
	}
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}

	sub, err := b.subscribe(ctx)
	if err != nil {
		return err
	}

	go func() {
		retry := &backoff.Backoff{Min: 200 * time.Millisecond, Max: 30 * time.Second, Factor: 2, Jitter: true}
		for {
			if sub != nil {
				b.forward(ctx, sub, onMsg)
				_ = sub.Close()
				sub = nil
			}
			if ctx.Err() != nil {
				return
			}
			wait := retry.Duration()
			b.log.Warn("redis subscription dropped; resubscribing", "backoff", wait)
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
			next, err := b.subscribe(ctx)
			if err != nil {
				b.log.Warn("redis resubscribe failed", "error", err)
				continue
			}
			sub = next
			retry.Reset()
		}
	}()

	return nil
}

func (b *redisBus) subscribe(ctx context.Context) (*goredis.PubSub, error) {
	sub := b.rdb.Subscribe(ctx, b.channel)
	// ensures subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}
	return sub, nil
}

func (b *redisBus) forward(ctx context.Context, sub *goredis.PubSub, onMsg func(env Envelope)) {
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok || m == nil {
				return
			}
			env, keep, err := decodeEnvelope([]byte(m.Payload), b.nodeID)
			if err != nil {
				b.log.Warn("bad redis bus payload", "error", err)
				continue
			}
			if keep {
				onMsg(env)
			}
		}
	}
}

// decodeEnvelope parses a payload and reports whether it came from a peer.
func decodeEnvelope(raw []byte, self string) (Envelope, bool, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, false, err
	}
	if env.UserID == "" || env.RemID == "" || env.SourceClientID == "" || !env.Strength.Valid() {
		return Envelope{}, false, fmt.Errorf("incomplete envelope from %q", env.Origin)
	}
	return env, env.Origin != self, nil
}

func (b *redisBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}
