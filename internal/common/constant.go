package common

import "time"

const (
	// DefaultSchedulerInterval is the reconciliation tick period.
	DefaultSchedulerInterval = 5 * time.Minute
	// DefaultMonitorInterval is the fleet probe cycle period.
	DefaultMonitorInterval = 5 * time.Minute
	// DefaultProbeTimeout bounds a single interface reachability attempt.
	DefaultProbeTimeout = 3 * time.Second
	// DefaultSyncInterval is the agent sync cycle period.
	DefaultSyncInterval = 30 * time.Minute
)
