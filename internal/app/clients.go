package app

import (
	"context"
	"fmt"

	"github.com/yungbote/tripseal-backend/internal/platform/gcp"
	"github.com/yungbote/tripseal-backend/internal/platform/logger"
	"github.com/yungbote/tripseal-backend/internal/realtime/bus"
)

type Clients struct {
	Bus         bus.Bus
	ImageBucket gcp.ImageBucket
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	// Redis fan-out across replicas; a single process uses the local bus.
	var b bus.Bus
	if cfg.RedisAddr != "" {
		rb, err := bus.NewRedisBus(ctx, log, bus.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			Prefix:   cfg.RedisPrefix,
		})
		if err != nil {
			return Clients{}, fmt.Errorf("init redis event bus: %w", err)
		}
		b = rb
	} else {
		log.Info("REDIS_ADDR unset; using in-process event bus")
		b = bus.NewLocalBus()
	}

	// Gcs
	bucket, err := resolveImageBucket(ctx, log, cfg.ObjectStorage)
	if err != nil {
		_ = b.Close()
		return Clients{}, err
	}

	return Clients{Bus: b, ImageBucket: bucket}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Bus != nil {
		_ = c.Bus.Close()
	}
	if c.ImageBucket != nil {
		_ = c.ImageBucket.Close()
	}
}
