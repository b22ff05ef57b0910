// Package config handles configuration for the edge sync agent, including
// defaults, a JSON or YAML file overlay, and command-line flags.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/fleetsync/internal/common"
)

// Config holds runtime settings for the agent.
//
// Fields:
//   - DeviceID: id the catalog knows this device by; empty means broadcast.
//   - CatalogURL: base URL of the catalog read surface.
//   - MediaDir / ManifestDir: where videos and M3U manifests live.
//   - StatePath: SQLite file holding the last sync time and snapshot.
//   - SyncInterval: time between sync cycles.
//   - RequestTimeout bounds the desired-state fetch; DownloadTimeout bounds one video.
//   - DownloadConcurrency: parallel downloads per cycle.
//   - ServiceUnit / UseSudo: systemd unit restarted after content changes.
//   - PruneExpiredMedia: delete media no desired playlist references.
//   - S3*: credentials for s3:// content refs.
//   - RunOnce: run a single cycle and exit.
type Config struct {
	DeviceID            string
	CatalogURL          string
	MediaDir            string
	ManifestDir         string
	StatePath           string
	LogLevel            string
	SyncInterval        time.Duration
	RequestTimeout      time.Duration
	DownloadTimeout     time.Duration
	DownloadConcurrency int
	ServiceUnit         string
	UseSudo             bool
	PruneExpiredMedia   bool
	S3AccessKey         string
	S3SecretKey         string
	S3Region            string
	S3BaseEndpoint      string
	RunOnce             bool
}

// LoadDefaults populates c with defaults suitable for a playback device.
func (c *Config) LoadDefaults() {
	c.CatalogURL = "http://127.0.0.1:8080"
	c.MediaDir = "/var/lib/fleetsync/media"
	c.ManifestDir = "/var/lib/fleetsync/playlists"
	c.StatePath = "/var/lib/fleetsync/state.db"
	c.LogLevel = "info"
	c.SyncInterval = common.DefaultSyncInterval
	c.RequestTimeout = 30 * time.Second
	c.DownloadTimeout = 30 * time.Minute
	c.DownloadConcurrency = 1
	c.ServiceUnit = "fleetsync-player.service"
	c.S3Region = "us-east-1"
}

// Validate rejects settings the agent cannot run with.
func (c *Config) Validate() error {
	if c.CatalogURL == "" {
		return fmt.Errorf("catalog_url is required")
	}
	if c.MediaDir == "" || c.ManifestDir == "" || c.StatePath == "" {
		return fmt.Errorf("media_dir, manifest_dir and state_path are required")
	}
	if c.SyncInterval <= 0 || c.RequestTimeout <= 0 || c.DownloadTimeout <= 0 {
		return fmt.Errorf("intervals and timeouts must be positive")
	}
	if c.DownloadConcurrency < 1 {
		return fmt.Errorf("download_concurrency must be at least 1, got %d", c.DownloadConcurrency)
	}
	return nil
}

// Load applies defaults, then the optional config file, then flags.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseFile(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig is Load over os.Args. It panics on an unusable configuration.
func LoadConfig() *Config {
	cfg, err := Load(os.Args[1:])
	if err != nil {
		panic(err)
	}
	return cfg
}
