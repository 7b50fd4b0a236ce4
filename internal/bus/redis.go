// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package bus

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	xglog "github.com/ManuGH/simgw/internal/log"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisOptions tunes the Redis transport.
type RedisOptions struct {
	// URL is a redis:// or rediss:// URL.
	URL string
	// ChannelSize bounds the buffered messages per subscription.
	ChannelSize int
	// DialTimeout bounds the initial connection attempt.
	DialTimeout time.Duration
}

// RedisBus publishes and subscribes over Redis pub/sub. Reconnects and
// re-subscriptions after connection loss are handled by the go-redis
// PubSub, which resubscribes every channel of the subscription.
type RedisBus struct {
	client      *redis.Client
	channelSize int
	logger      zerolog.Logger
}

var setLoggerOnce sync.Once

// redisLogger routes go-redis internal logs (reconnects, pool errors) through zerolog.
type redisLogger struct {
	logger zerolog.Logger
}

func (l redisLogger) Printf(_ context.Context, format string, v ...any) {
	l.logger.Warn().
		Str(xglog.FieldEvent, "bus.client_log").
		Msg(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// NewRedisBus connects to Redis and verifies connectivity with PING.
func NewRedisBus(ctx context.Context, opts RedisOptions) (*RedisBus, error) {
	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if opts.DialTimeout > 0 {
		redisOpts.DialTimeout = opts.DialTimeout
	}
	if opts.ChannelSize <= 0 {
		opts.ChannelSize = 100
	}

	logger := xglog.WithComponent("bus")
	setLoggerOnce.Do(func() {
		redis.SetLogger(redisLogger{logger: logger})
	})

	client := redis.NewClient(redisOpts)
	b := &RedisBus{client: client, channelSize: opts.ChannelSize, logger: logger}

	pingCtx := ctx
	if opts.DialTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, opts.DialTimeout)
		defer cancel()
	}
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Info().
		Str(xglog.FieldEvent, "bus.connected").
		Str("addr", redisOpts.Addr).
		Int("db", redisOpts.DB).
		Msg("connected to Redis")
	return b, nil
}

// Publish sends payload with PUBLISH.
func (b *RedisBus) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := b.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish channel %q: %w", channel, err)
	}
	return nil
}

// Subscribe issues SUBSCRIBE and waits for the server's confirmation.
func (b *RedisBus) Subscribe(ctx context.Context, channels ...string) (Subscription, error) {
	if len(channels) == 0 {
		return nil, fmt.Errorf("subscribe: no channels")
	}
	ps := b.client.Subscribe(ctx, channels...)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %v: %w", channels, err)
	}

	s := &redisSub{
		ps:   ps,
		out:  make(chan Message, b.channelSize),
		done: make(chan struct{}),
	}
	go s.forward(ps.Channel(redis.WithChannelSize(b.channelSize)))

	b.logger.Info().
		Str(xglog.FieldEvent, "bus.subscribed").
		Strs("channels", channels).
		Msg("subscribed to bus channels")
	return s, nil
}

// Ping checks connectivity.
func (b *RedisBus) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Close closes the client and its connection pool.
func (b *RedisBus) Close() error {
	if err := b.client.Close(); err != nil && err != redis.ErrClosed {
		return err
	}
	return nil
}

type redisSub struct {
	ps        *redis.PubSub
	out       chan Message
	done      chan struct{}
	closeOnce sync.Once
}

func (s *redisSub) forward(in <-chan *redis.Message) {
	defer close(s.out)
	for {
		select {
		case <-s.done:
			return
		case m, ok := <-in:
			if !ok {
				return
			}
			select {
			case s.out <- Message{Channel: m.Channel, Payload: []byte(m.Payload)}:
			case <-s.done:
				return
			}
		}
	}
}

func (s *redisSub) C() <-chan Message {
	return s.out
}

func (s *redisSub) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.ps.Close()
	})
	return err
}

var _ Bus = (*RedisBus)(nil)
