package config

import (
	"time"

	"github.com/dmitrijs2005/fleetsync/internal/confx"
	"github.com/dmitrijs2005/fleetsync/internal/flagx"
	"github.com/dmitrijs2005/fleetsync/internal/timex"
)

// FileConfig is the on-disk shape of the server configuration. Durations
// use timex.Duration so both "5m" and integer nanoseconds are accepted.
// Zero values leave the current setting untouched.
type FileConfig struct {
	ControlAddrGRPC    string         `json:"control_addr_grpc" yaml:"control_addr_grpc"`
	DatabaseDSN        string         `json:"database_dsn" yaml:"database_dsn"`
	LogLevel           string         `json:"log_level" yaml:"log_level"`
	SchedulerInterval  timex.Duration `json:"scheduler_interval" yaml:"scheduler_interval"`
	MonitorInterval    timex.Duration `json:"monitor_interval" yaml:"monitor_interval"`
	ProbeTimeout       timex.Duration `json:"probe_timeout" yaml:"probe_timeout"`
	ProbeCycleTimeout  timex.Duration `json:"probe_cycle_timeout" yaml:"probe_cycle_timeout"`
	ProbeConcurrency   int            `json:"probe_concurrency" yaml:"probe_concurrency"`
	ProbeMode          string         `json:"probe_mode" yaml:"probe_mode"`
	ProbePort          int            `json:"probe_port" yaml:"probe_port"`
	ProbeAllInterfaces *bool          `json:"probe_all_interfaces" yaml:"probe_all_interfaces"`
	RedisURL           string         `json:"redis_url" yaml:"redis_url"`
	LockTTL            timex.Duration `json:"lock_ttl" yaml:"lock_ttl"`
	S3RootUser         string         `json:"s3_root_user" yaml:"s3_root_user"`
	S3RootPassword     string         `json:"s3_root_password" yaml:"s3_root_password"`
	S3Bucket           string         `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region           string         `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint     string         `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
}

// parseFile overlays the file named by -c/-config, if any.
func parseFile(config *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	c := &FileConfig{}
	if err := confx.DecodeFile(path, c); err != nil {
		return err
	}
	c.apply(config)
	return nil
}

func (c *FileConfig) apply(config *Config) {
	setString(&config.ControlAddrGRPC, c.ControlAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.LogLevel, c.LogLevel)
	setDuration(&config.SchedulerInterval, c.SchedulerInterval)
	setDuration(&config.MonitorInterval, c.MonitorInterval)
	setDuration(&config.ProbeTimeout, c.ProbeTimeout)
	setDuration(&config.ProbeCycleTimeout, c.ProbeCycleTimeout)
	if c.ProbeConcurrency != 0 {
		config.ProbeConcurrency = c.ProbeConcurrency
	}
	setString(&config.ProbeMode, c.ProbeMode)
	if c.ProbePort != 0 {
		config.ProbePort = c.ProbePort
	}
	if c.ProbeAllInterfaces != nil {
		config.ProbeAllInterfaces = *c.ProbeAllInterfaces
	}
	setString(&config.RedisURL, c.RedisURL)
	setDuration(&config.LockTTL, c.LockTTL)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
