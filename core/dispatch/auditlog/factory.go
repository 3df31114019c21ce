package auditlog

import "fmt"

// Config selects the audit backend.
type Config struct {
	// Backend is "jsonl", "sqlite" or "none".
	Backend string `json:"backend"`
	Path    string `json:"path"`
	// MaxSizeMB enables rotation of the JSONL file when positive.
	MaxSizeMB  int `json:"max_size_mb"`
	MaxBackups int `json:"max_backups"`
	MaxAgeDays int `json:"max_age_days"`
}

// Open returns the configured store, or nil for backend "none".
func Open(cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", "none":
		return nil, nil
	case "jsonl":
		if cfg.MaxSizeMB > 0 {
			return NewRotatingJSONLStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
		}
		return NewJSONLStore(cfg.Path)
	case "sqlite":
		return NewSQLiteStore(cfg.Path)
	}
	return nil, fmt.Errorf("auditlog: unknown backend %q", cfg.Backend)
}
