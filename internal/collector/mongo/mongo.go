// Package mongo stores one document per iteration, in one collection
// per host, inserted into a configured database.
package mongo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/opsloop/probed/internal/collector"
	"github.com/opsloop/probed/internal/exprlang"
)

func init() {
	collector.Register("mongo", build)
}

// Collector inserts one {utctime, cmd, result} document per iteration
// into db.<hostID>, one collection per host.
type Collector struct {
	client *mongo.Client
	db     string
}

func build(cfg collector.Config) (collector.Collector, error) {
	host := stringOr(cfg, "mongo.host", "salt")
	port := stringOr(cfg, "mongo.port", "27017")
	db := stringOr(cfg, "mongo.db", "salt")
	user := stringOr(cfg, "mongo.user", "")
	password := stringOr(cfg, "mongo.password", "")

	uri := fmt.Sprintf("mongodb://%s:%s", host, port)
	opts := options.Client().ApplyURI(uri)
	if user != "" && password != "" {
		opts = opts.SetAuth(options.Credential{Username: user, Password: password})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("collector/mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("collector/mongo: ping: %w", err)
	}

	return &Collector{client: client, db: db}, nil
}

// Collect implements collector.Collector.
func (c *Collector) Collect(ctx context.Context, hostID string, lastCommand []string, lastResult any) error {
	collection := c.client.Database(c.db).Collection(hostID)
	_, err := collection.InsertOne(ctx, bson.M{
		"utctime": time.Now().UTC(),
		"cmd":     lastCommand,
		"result":  rewriteDottedKeys(lastResult),
	})
	if err != nil {
		return fmt.Errorf("collector/mongo: insert: %w", err)
	}
	return nil
}

// rewriteDottedKeys replaces '.' with '-' in map keys, since mongo
// rejects dots in field names. Non-map results pass through
// unchanged.
func rewriteDottedKeys(v any) any {
	var m map[string]any
	switch t := v.(type) {
	case map[string]any:
		m = t
	case exprlang.AttrMap:
		m = map[string]any(t)
	default:
		return v
	}
	out := make(map[string]any, len(m))
	for k, val := range m {
		out[strings.ReplaceAll(k, ".", "-")] = val
	}
	return out
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
