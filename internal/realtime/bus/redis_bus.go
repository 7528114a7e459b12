package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/tripseal-backend/internal/platform/logger"
	"github.com/yungbote/tripseal-backend/internal/realtime"
)

type RedisConfig struct {
	Addr     string
	Password string
	// Prefix namespaces the redis topics; each hub channel becomes
	// "<prefix>:<channel>", e.g. "tripseal-events:session:<id>".
	Prefix string
}

const defaultRedisPrefix = "tripseal-events"

// redisBus publishes one redis topic per hub channel and forwards every topic
// under its prefix, so replicas see each other's session and user events.
type redisBus struct {
	log    *logger.Logger
	rdb    *goredis.Client
	prefix string
}

func NewRedisBus(ctx context.Context, log *logger.Logger, cfg RedisConfig) (Bus, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, errors.New("redis bus: address required")
	}
	prefix := strings.Trim(strings.TrimSpace(cfg.Prefix), ":")
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return &redisBus{log: log.With("service", "RedisEventBus", "prefix", prefix), rdb: rdb, prefix: prefix}, nil
}

func (b *redisBus) Publish(ctx context.Context, msg realtime.SSEMessage) error {
	topic, err := topicFor(b.prefix, msg.Channel)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s: %w", msg.Event, err)
	}
	return b.rdb.Publish(ctx, topic, raw).Err()
}

func (b *redisBus) StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error {
	if onMsg == nil {
		return errors.New("redis bus: onMsg callback required")
	}
	sub := b.rdb.PSubscribe(ctx, b.prefix+":*")
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis psubscribe: %w", err)
	}
	go func() {
		defer sub.Close()
		in := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-in:
				if !ok {
					return
				}
				msg, err := decodeMessage(b.prefix, m.Channel, m.Payload)
				if err != nil {
					b.log.Warn("Dropping event bus message", "topic", m.Channel, "error", err)
					continue
				}
				onMsg(msg)
			}
		}
	}()
	b.log.Info("Event bus forwarder started")
	return nil
}

func (b *redisBus) Close() error { return b.rdb.Close() }

func topicFor(prefix, channel string) (string, error) {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		return "", errors.New("redis bus: message has no channel")
	}
	return prefix + ":" + channel, nil
}

// decodeMessage trusts the topic over the payload for the hub channel.
func decodeMessage(prefix, topic, payload string) (realtime.SSEMessage, error) {
	var msg realtime.SSEMessage
	channel, ok := strings.CutPrefix(topic, prefix+":")
	if !ok || channel == "" {
		return msg, fmt.Errorf("topic outside prefix %q", prefix)
	}
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return msg, err
	}
	if msg.Event == "" {
		return msg, errors.New("missing event name")
	}
	msg.Channel = channel
	return msg, nil
}
