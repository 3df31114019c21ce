package config

import (
	"fmt"

	"github.com/kilianp07/roamnet/core/dispatch/auditlog"
)

// AuditConfig defines settings for dispatch audit storage and rotation.
type AuditConfig struct {
	// Backend selects the store type: "jsonl", "sqlite" or "none".
	Backend string `json:"backend"`
	// Path is the file location of the store.
	Path string `json:"path"`
	// MaxSizeMB triggers rotation when the JSONL file exceeds this size.
	MaxSizeMB int `json:"max_size_mb"`
	// MaxBackups limits the number of rotated files to keep.
	MaxBackups int `json:"max_backups"`
	// MaxAgeDays removes rotated files older than this number of days.
	MaxAgeDays int `json:"max_age_days"`
	// Token protects the audit HTTP endpoint when set.
	Token string `json:"token"`
	// Buffer is the capacity of the recorder queue.
	Buffer int `json:"buffer"`
}

// SetDefaults applies sane defaults.
func (c *AuditConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "jsonl"
	}
	if c.Path == "" && c.Backend != "none" {
		c.Path = "dispatch-audit.log"
	}
	if c.Buffer == 0 {
		c.Buffer = 1024
	}
}

// Validate checks mandatory fields.
func (c AuditConfig) Validate() error {
	switch c.Backend {
	case "jsonl", "sqlite":
		if c.Path == "" {
			return fmt.Errorf("audit.path is required")
		}
	case "none":
	default:
		return fmt.Errorf("unknown audit backend %s", c.Backend)
	}
	return nil
}

// Store returns the auditlog settings.
func (c AuditConfig) Store() auditlog.Config {
	return auditlog.Config{
		Backend:    c.Backend,
		Path:       c.Path,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
	}
}
