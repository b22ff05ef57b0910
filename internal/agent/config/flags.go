package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/fleetsync/internal/flagx"
)

var knownFlags = []string{
	"-id", "-u", "-m", "-p", "-s", "-l", "-i", "-t", "-n",
	"-unit", "-sudo", "-prune", "-once",
}

// parseFlags populates agent Config fields from command-line flags.
//
// Supported flags:
//
//	-id string     device id (empty for broadcast)
//	-u string      catalog base URL
//	-m string      media directory
//	-p string      manifest (playlist) directory
//	-s string      state database path
//	-l string      log level
//	-i duration    sync interval (e.g., "30m")
//	-t duration    desired-state request timeout
//	-n int         download concurrency
//	-unit string   systemd unit to restart after changes
//	-sudo          restart the unit through sudo -n
//	-prune         delete media no desired playlist references
//	-once          run a single sync cycle and exit
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, knownFlags)

	fs := flag.NewFlagSet("agent", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.DeviceID, "id", cfg.DeviceID, "device id")
	fs.StringVar(&cfg.CatalogURL, "u", cfg.CatalogURL, "catalog base url")
	fs.StringVar(&cfg.MediaDir, "m", cfg.MediaDir, "media directory")
	fs.StringVar(&cfg.ManifestDir, "p", cfg.ManifestDir, "manifest directory")
	fs.StringVar(&cfg.StatePath, "s", cfg.StatePath, "state database path")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.DurationVar(&cfg.SyncInterval, "i", cfg.SyncInterval, "sync interval")
	fs.DurationVar(&cfg.RequestTimeout, "t", cfg.RequestTimeout, "request timeout")
	fs.IntVar(&cfg.DownloadConcurrency, "n", cfg.DownloadConcurrency, "download concurrency")
	fs.StringVar(&cfg.ServiceUnit, "unit", cfg.ServiceUnit, "systemd unit")
	fs.BoolVar(&cfg.UseSudo, "sudo", cfg.UseSudo, "use sudo -n for systemctl")
	fs.BoolVar(&cfg.PruneExpiredMedia, "prune", cfg.PruneExpiredMedia, "prune unreferenced media")
	fs.BoolVar(&cfg.RunOnce, "once", cfg.RunOnce, "run one cycle and exit")

	return fs.Parse(args)
}
