// Package redis is a collector backend repurposing a Redis client
// originally built for a distributed job queue and pod-presence set,
// which a single-daemon, no-cross-task-sync monitor has no use for.
// The client plumbing (dialing, JSON get/set-with-expiry) is repurposed
// here as a result sink instead: the most recent result per host
// as a JSON value, plus a capped list for rolling history.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/opsloop/probed/internal/collector"
)

const (
	defaultTTL         = 24 * time.Hour
	defaultHistoryCap  = 100
	historyKeyTemplate = "probed:history:%s"
	latestKeyTemplate  = "probed:latest:%s"
)

func init() {
	collector.Register("redis", build)
}

// Collector stores each iteration's result in Redis: the latest value
// under a TTL'd key, and a capped rolling history list.
type Collector struct {
	client     *goredis.Client
	ttl        time.Duration
	historyCap int64
}

func build(cfg collector.Config) (collector.Collector, error) {
	addr := stringOr(cfg, "redis.addr", "localhost:6379")
	password := stringOr(cfg, "redis.password", "")
	db := intOr(cfg, "redis.db", 0)

	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("collector/redis: connect to %s: %w", addr, err)
	}

	return &Collector{
		client:     client,
		ttl:        defaultTTL,
		historyCap: defaultHistoryCap,
	}, nil
}

// Collect implements collector.Collector.
func (c *Collector) Collect(ctx context.Context, hostID string, lastCommand []string, lastResult any) error {
	record := map[string]any{
		"utctime": time.Now().UTC(),
		"cmd":     lastCommand,
		"result":  lastResult,
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("collector/redis: marshal: %w", err)
	}

	latestKey := fmt.Sprintf(latestKeyTemplate, hostID)
	if err := c.client.Set(ctx, latestKey, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("collector/redis: set %s: %w", latestKey, err)
	}

	historyKey := fmt.Sprintf(historyKeyTemplate, hostID)
	pipe := c.client.TxPipeline()
	pipe.LPush(ctx, historyKey, payload)
	pipe.LTrim(ctx, historyKey, 0, c.historyCap-1)
	pipe.Expire(ctx, historyKey, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("collector/redis: push history %s: %w", historyKey, err)
	}
	return nil
}

func stringOr(cfg collector.Config, key, fallback string) string {
	v, ok := cfg[key]
	if !ok {
		return fallback
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return fallback
	}
	return s
}

func intOr(cfg collector.Config, key string, fallback int) int {
	v, ok := cfg[key]
	if !ok {
		return fallback
	}
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	case string:
		if parsed, err := strconv.Atoi(n); err == nil {
			return parsed
		}
	}
	return fallback
}
