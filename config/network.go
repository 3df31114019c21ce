package config

import (
	"fmt"
	"time"

	"github.com/kilianp07/roamnet/core/registry"
	"github.com/kilianp07/roamnet/core/status"
)

// NetworkConfig identifies the roaming network and its hierarchy.
type NetworkConfig struct {
	ID          string `json:"id"`
	HistorySize int    `json:"history_size"`
	// TopologyFile optionally seeds operators, pools, stations and EVSEs.
	TopologyFile string `json:"topology_file"`
}

// SetDefaults applies sane defaults.
func (c *NetworkConfig) SetDefaults() {
	if c.ID == "" {
		c.ID = "roamnet"
	}
	if c.HistorySize == 0 {
		c.HistorySize = status.DefaultHistorySize
	}
}

// Validate checks mandatory fields.
func (c NetworkConfig) Validate() error {
	if c.HistorySize < 1 {
		return fmt.Errorf("network.history_size must be at least 1")
	}
	return nil
}

// DispatchConfig tunes the dispatcher.
type DispatchConfig struct {
	DefaultTimeoutMS   int    `json:"default_timeout_ms"`
	ReservationMinutes int    `json:"reservation_minutes"`
	DuplicatePriority  string `json:"duplicate_priority"`
	CDRQueueSize       int    `json:"cdr_queue_size"`
	CDRWorkers         int    `json:"cdr_workers"`
}

// SetDefaults applies sane defaults.
func (c *DispatchConfig) SetDefaults() {
	if c.DefaultTimeoutMS == 0 {
		c.DefaultTimeoutMS = 5000
	}
	if c.ReservationMinutes == 0 {
		c.ReservationMinutes = 15
	}
	if c.DuplicatePriority == "" {
		c.DuplicatePriority = registry.PolicyReject.String()
	}
	if c.CDRQueueSize == 0 {
		c.CDRQueueSize = 256
	}
	if c.CDRWorkers == 0 {
		c.CDRWorkers = 2
	}
}

// Validate checks the ranges.
func (c DispatchConfig) Validate() error {
	if c.DefaultTimeoutMS < 0 || c.ReservationMinutes < 0 || c.CDRQueueSize < 0 || c.CDRWorkers < 0 {
		return fmt.Errorf("dispatch: negative values are not allowed")
	}
	if _, err := registry.ParseDuplicatePolicy(c.DuplicatePriority); err != nil {
		return fmt.Errorf("dispatch.duplicate_priority: %w", err)
	}
	return nil
}

// DefaultTimeout returns the per-backend timeout.
func (c DispatchConfig) DefaultTimeout() time.Duration {
	return time.Duration(c.DefaultTimeoutMS) * time.Millisecond
}

// ReservationDuration returns the default reservation length.
func (c DispatchConfig) ReservationDuration() time.Duration {
	return time.Duration(c.ReservationMinutes) * time.Minute
}

// Policy returns the parsed duplicate-priority policy.
func (c DispatchConfig) Policy() registry.DuplicatePolicy {
	p, err := registry.ParseDuplicatePolicy(c.DuplicatePriority)
	if err != nil {
		return registry.PolicyReject
	}
	return p
}
