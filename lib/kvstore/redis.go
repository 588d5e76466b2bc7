// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

package kvstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures NewRedis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	// Prefix is prepended to every namespace to form the hash key.
	// Defaults to "tcbot:".
	Prefix string

	// OpTimeout bounds each Redis round trip. Defaults to two seconds.
	OpTimeout time.Duration

	Logger *slog.Logger
}

// Redis stores each namespace as one Redis hash.
type Redis struct {
	client    *redis.Client
	prefix    string
	opTimeout time.Duration
	logger    *slog.Logger
}

// hscanCount is the COUNT hint passed to HSCAN.
const hscanCount = 256

// NewRedis connects and pings the server.
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("kvstore: redis address is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "tcbot:"
	}
	opTimeout := cfg.OpTimeout
	if opTimeout <= 0 {
		opTimeout = 2 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("kvstore: redis ping %s: %w", cfg.Addr, err)
	}
	logger.Info("redis store connected", "addr", cfg.Addr, "db", cfg.DB)

	return &Redis{client: client, prefix: prefix, opTimeout: opTimeout, logger: logger}, nil
}

func (r *Redis) hashKey(namespace string) string { return r.prefix + namespace }

func (r *Redis) Get(ctx context.Context, namespace string, key []byte) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	value, err := r.client.HGet(ctx, r.hashKey(namespace), string(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		r.logger.Warn("redis get failed", "namespace", namespace, "error", err)
		return nil, false, fmt.Errorf("kvstore: redis get %s: %w", namespace, err)
	}
	return value, true, nil
}

func (r *Redis) Put(ctx context.Context, namespace string, key, value []byte) error {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	if err := r.client.HSet(ctx, r.hashKey(namespace), string(key), value).Err(); err != nil {
		r.logger.Warn("redis put failed", "namespace", namespace, "error", err)
		return fmt.Errorf("kvstore: redis put %s: %w", namespace, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, namespace string, key []byte) error {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	if err := r.client.HDel(ctx, r.hashKey(namespace), string(key)).Err(); err != nil {
		return fmt.Errorf("kvstore: redis delete %s: %w", namespace, err)
	}
	return nil
}

// Scan walks the hash with HSCAN. Entries changed during the scan may
// be visited twice or not at all, as HSCAN guarantees.
func (r *Redis) Scan(ctx context.Context, namespace string, fn func(key, value []byte) error) error {
	var cursor uint64
	for {
		opCtx, cancel := context.WithTimeout(ctx, r.opTimeout)
		fields, next, err := r.client.HScan(opCtx, r.hashKey(namespace), cursor, "", hscanCount).Result()
		cancel()
		if err != nil {
			return fmt.Errorf("kvstore: redis scan %s: %w", namespace, err)
		}
		// HSCAN replies with alternating field, value.
		for i := 0; i+1 < len(fields); i += 2 {
			if err := fn([]byte(fields[i]), []byte(fields[i+1])); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func (r *Redis) Close() error {
	return r.client.Close()
}
