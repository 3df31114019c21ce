package config

import "github.com/kilianp07/roamnet/infra/monitoring"

// SentryConfig defines settings for Sentry error monitoring.
type SentryConfig = monitoring.SentryConfig
