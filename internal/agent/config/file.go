package config

import (
	"time"

	"github.com/dmitrijs2005/fleetsync/internal/confx"
	"github.com/dmitrijs2005/fleetsync/internal/flagx"
	"github.com/dmitrijs2005/fleetsync/internal/timex"
)

// FileConfig is the on-disk shape of the agent configuration. Zero values
// leave the current setting untouched; booleans are pointers so a file can
// switch them off.
type FileConfig struct {
	DeviceID            string         `json:"device_id" yaml:"device_id"`
	CatalogURL          string         `json:"catalog_url" yaml:"catalog_url"`
	MediaDir            string         `json:"media_dir" yaml:"media_dir"`
	ManifestDir         string         `json:"manifest_dir" yaml:"manifest_dir"`
	StatePath           string         `json:"state_path" yaml:"state_path"`
	LogLevel            string         `json:"log_level" yaml:"log_level"`
	SyncInterval        timex.Duration `json:"sync_interval" yaml:"sync_interval"`
	RequestTimeout      timex.Duration `json:"request_timeout" yaml:"request_timeout"`
	DownloadTimeout     timex.Duration `json:"download_timeout" yaml:"download_timeout"`
	DownloadConcurrency int            `json:"download_concurrency" yaml:"download_concurrency"`
	ServiceUnit         string         `json:"service_unit" yaml:"service_unit"`
	UseSudo             *bool          `json:"use_sudo" yaml:"use_sudo"`
	PruneExpiredMedia   *bool          `json:"prune_expired_media" yaml:"prune_expired_media"`
	S3AccessKey         string         `json:"s3_access_key" yaml:"s3_access_key"`
	S3SecretKey         string         `json:"s3_secret_key" yaml:"s3_secret_key"`
	S3Region            string         `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint      string         `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
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
	setString(&config.DeviceID, c.DeviceID)
	setString(&config.CatalogURL, c.CatalogURL)
	setString(&config.MediaDir, c.MediaDir)
	setString(&config.ManifestDir, c.ManifestDir)
	setString(&config.StatePath, c.StatePath)
	setString(&config.LogLevel, c.LogLevel)
	setDuration(&config.SyncInterval, c.SyncInterval)
	setDuration(&config.RequestTimeout, c.RequestTimeout)
	setDuration(&config.DownloadTimeout, c.DownloadTimeout)
	if c.DownloadConcurrency != 0 {
		config.DownloadConcurrency = c.DownloadConcurrency
	}
	setString(&config.ServiceUnit, c.ServiceUnit)
	if c.UseSudo != nil {
		config.UseSudo = *c.UseSudo
	}
	if c.PruneExpiredMedia != nil {
		config.PruneExpiredMedia = *c.PruneExpiredMedia
	}
	setString(&config.S3AccessKey, c.S3AccessKey)
	setString(&config.S3SecretKey, c.S3SecretKey)
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
