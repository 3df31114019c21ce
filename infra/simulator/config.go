package simulator

import (
	"fmt"
	"time"

	"github.com/kilianp07/roamnet/core/model"
)

// Config holds parameters of a simulated operator.
type Config struct {
	OperatorID model.OperatorID `json:"operator_id"`
	// LatencyMS delays every answer.
	LatencyMS int `json:"latency_ms"`
	// DropRate is the probability that a call never answers and runs into
	// the dispatcher's deadline.
	DropRate float64 `json:"drop_rate"`
	// ChargeKW is the power drawn by every session.
	ChargeKW    float64 `json:"charge_kw"`
	CapacityKWh float64 `json:"capacity_kwh"`
	// AllowedTokens authorize charging; empty allows every token that is
	// not blocked.
	AllowedTokens []string `json:"allowed_tokens"`
	BlockedTokens []string `json:"blocked_tokens"`
}

// SetDefaults fills zero fields.
func (c *Config) SetDefaults() {
	if c.ChargeKW == 0 {
		c.ChargeKW = 11
	}
	if c.CapacityKWh == 0 {
		c.CapacityKWh = 60
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.OperatorID == "" {
		return fmt.Errorf("simulator: operator_id required")
	}
	if c.DropRate < 0 || c.DropRate > 1 {
		return fmt.Errorf("simulator: drop_rate must be within [0,1]")
	}
	return nil
}

func (c Config) latency() time.Duration { return time.Duration(c.LatencyMS) * time.Millisecond }
