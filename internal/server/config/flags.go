package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/fleetsync/internal/flagx"
)

var knownFlags = []string{
	"-a", "-d", "-l", "-s", "-m", "-t", "-n",
	"-probe-mode", "-probe-port", "-probe-all", "-r",
	"-u", "-p", "-b", "-g", "-e",
}

// parseFlags populates server Config fields from command-line flags.
//
// Supported flags:
//
//	-a string          gRPC control address (e.g., ":50051")
//	-d string          PostgreSQL DSN
//	-l string          log level (debug, info, warn, error)
//	-s duration        scheduler interval (e.g., "5m")
//	-m duration        monitor interval
//	-t duration        per-interface probe timeout
//	-n int             probe concurrency
//	-probe-mode string tcp or icmp
//	-probe-port int    TCP port dialled by the tcp prober
//	-probe-all         probe WiFi even when LAN answered (use -probe-all=false to unset)
//	-r string          Redis URL for the scheduler lock
//	-u, -p, -b, -g, -e S3 user, password, bucket, region, base endpoint
//
// Args are first filtered with flagx.FilterArgs so flags owned by other
// parsers (such as -c) do not break parsing.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, knownFlags)

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.ControlAddrGRPC, "a", config.ControlAddrGRPC, "address and port of the control surface")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.DurationVar(&config.SchedulerInterval, "s", config.SchedulerInterval, "scheduler interval")
	fs.DurationVar(&config.MonitorInterval, "m", config.MonitorInterval, "monitor interval")
	fs.DurationVar(&config.ProbeTimeout, "t", config.ProbeTimeout, "probe timeout per interface")
	fs.IntVar(&config.ProbeConcurrency, "n", config.ProbeConcurrency, "probe concurrency")
	fs.StringVar(&config.ProbeMode, "probe-mode", config.ProbeMode, "probe mode (tcp|icmp)")
	fs.IntVar(&config.ProbePort, "probe-port", config.ProbePort, "tcp probe port")
	fs.BoolVar(&config.ProbeAllInterfaces, "probe-all", config.ProbeAllInterfaces, "probe every interface")
	fs.StringVar(&config.RedisURL, "r", config.RedisURL, "redis url for the scheduler lock")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	return fs.Parse(args)
}
