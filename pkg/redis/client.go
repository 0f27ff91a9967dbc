package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const defaultDialTimeout = 5 * time.Second

// Config configures a Redis connection. URL wins when set; otherwise Addrs
// select the topology: MasterName set means Sentinel, several Addrs mean
// Cluster, a single Addr is standalone.
type Config struct {
	URL          string
	Addrs        []string
	MasterName   string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Connect builds a client for cfg and pings it.
func Connect(ctx context.Context, cfg Config) (goredis.UniversalClient, error) {
	var client goredis.UniversalClient
	if cfg.URL != "" {
		opts, err := goredis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts.DialTimeout = orDefault(cfg.DialTimeout, opts.DialTimeout)
		opts.ReadTimeout = orDefault(cfg.ReadTimeout, opts.ReadTimeout)
		opts.WriteTimeout = orDefault(cfg.WriteTimeout, opts.WriteTimeout)
		client = goredis.NewClient(opts)
	} else {
		if len(cfg.Addrs) == 0 {
			return nil, fmt.Errorf("redis url or at least one address is required")
		}
		client = goredis.NewUniversalClient(&goredis.UniversalOptions{
			Addrs:        cfg.Addrs,
			MasterName:   cfg.MasterName,
			Password:     cfg.Password,
			DB:           cfg.DB,
			DialTimeout:  orDefault(cfg.DialTimeout, 0),
			ReadTimeout:  orDefault(cfg.ReadTimeout, 0),
			WriteTimeout: orDefault(cfg.WriteTimeout, 0),
		})
	}

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func orDefault(configured, parsed time.Duration) time.Duration {
	if configured > 0 {
		return configured
	}
	if parsed > 0 {
		return parsed
	}
	return defaultDialTimeout
}
