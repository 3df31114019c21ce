package metrics

import (
	"fmt"
	"time"

	"github.com/kilianp07/roamnet/core/factory"
)

// DefaultQueuePoll is the interval at which the CDR queue depth is sampled.
const DefaultQueuePoll = 15 * time.Second

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks" yaml:"sinks"`
	// PrometheusAddr enables the /metrics HTTP endpoint when set.
	PrometheusAddr string `json:"prometheus_addr" yaml:"prometheus_addr"`
	// QueuePollMS is the queue depth sampling interval in milliseconds.
	QueuePollMS int `json:"queue_poll_ms" yaml:"queue_poll_ms"`
}

// SetDefaults fills zero fields.
func (c *Config) SetDefaults() {
	if c.QueuePollMS == 0 {
		c.QueuePollMS = int(DefaultQueuePoll / time.Millisecond)
	}
}

// Validate checks that every sink names a type.
func (c Config) Validate() error {
	for i, s := range c.Sinks {
		if s.Type == "" {
			return fmt.Errorf("metrics.sinks[%d]: type required", i)
		}
	}
	if c.QueuePollMS < 0 {
		return fmt.Errorf("metrics.queue_poll_ms must be positive")
	}
	return nil
}

// QueuePoll returns the sampling interval as a duration.
func (c Config) QueuePoll() time.Duration {
	if c.QueuePollMS <= 0 {
		return DefaultQueuePoll
	}
	return time.Duration(c.QueuePollMS) * time.Millisecond
}
