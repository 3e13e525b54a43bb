// Package logcollector is the zero-dependency default collector: it
// just logs the result, so the daemon is observable out of the box
// when no collector is named in overlay config.
package logcollector

import (
	"context"

	"github.com/opsloop/probed/internal/collector"
	"github.com/opsloop/probed/internal/logging"
)

func init() {
	collector.Register("logging", func(collector.Config) (collector.Collector, error) {
		return New(logging.Default()), nil
	})
}

// Collector logs every iteration's final cmd/result pair at info
// level.
type Collector struct {
	log *logging.Logger
}

// New builds a Collector that writes through log.
func New(log *logging.Logger) *Collector {
	return &Collector{log: log}
}

// Collect implements collector.Collector.
func (c *Collector) Collect(_ context.Context, hostID string, lastCommand []string, lastResult any) error {
	c.log.Infow("collected result", "host", hostID, "cmd", lastCommand, "result", lastResult)
	return nil
}
