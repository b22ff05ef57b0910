package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func Test_parseFile_JSON(t *testing.T) {
	path := writeTemp(t, "server.json", `{
		"control_addr_grpc": "www.example:9000",
		"database_dsn": "postgres://x",
		"scheduler_interval": "1m",
		"monitor_interval": 120000000000,
		"probe_concurrency": 4,
		"probe_all_interfaces": true,
		"redis_url": "redis://r:6379/1",
		"s3_bucket": "media"
	}`)

	cfg := &Config{}
	cfg.LoadDefaults()
	require.NoError(t, parseFile(cfg, []string{"-config", path}))

	assert.Equal(t, "www.example:9000", cfg.ControlAddrGRPC)
	assert.Equal(t, "postgres://x", cfg.DatabaseDSN)
	assert.Equal(t, time.Minute, cfg.SchedulerInterval)
	assert.Equal(t, 2*time.Minute, cfg.MonitorInterval)
	assert.Equal(t, 4, cfg.ProbeConcurrency)
	assert.True(t, cfg.ProbeAllInterfaces)
	assert.Equal(t, "redis://r:6379/1", cfg.RedisURL)
	assert.Equal(t, "media", cfg.S3Bucket)

	// untouched fields keep their defaults
	assert.Equal(t, 3*time.Second, cfg.ProbeTimeout)
	assert.Equal(t, "us-east-1", cfg.S3Region)
}

func Test_parseFile_YAML(t *testing.T) {
	path := writeTemp(t, "server.yaml", `
probe_mode: icmp
probe_timeout: 2s
probe_all_interfaces: false
lock_ttl: 30s
`)

	cfg := &Config{}
	cfg.LoadDefaults()
	cfg.ProbeAllInterfaces = true
	require.NoError(t, parseFile(cfg, []string{"-c", path}))

	assert.Equal(t, ProbeModeICMP, cfg.ProbeMode)
	assert.Equal(t, 2*time.Second, cfg.ProbeTimeout)
	assert.False(t, cfg.ProbeAllInterfaces)
	assert.Equal(t, 30*time.Second, cfg.LockTTL)
}

func Test_parseFile_NoFlag(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, parseFile(cfg, []string{"-a", ":1"}))
	assert.Equal(t, &Config{}, cfg)
}

func Test_parseFile_Errors(t *testing.T) {
	cfg := &Config{}
	err := parseFile(cfg, []string{"-c", filepath.Join(t.TempDir(), "missing.json")})
	require.ErrorContains(t, err, "read config")

	bad := writeTemp(t, "bad.json", `{"scheduler_interval": true}`)
	err = parseFile(cfg, []string{"-c", bad})
	require.ErrorContains(t, err, "decode config")
}

func TestLoad_FlagsOverrideFile(t *testing.T) {
	path := writeTemp(t, "server.json", `{"control_addr_grpc": ":7000", "probe_port": 2222}`)

	cfg, err := Load([]string{"-c", path, "-a", ":8000"})
	require.NoError(t, err)
	assert.Equal(t, ":8000", cfg.ControlAddrGRPC)
	assert.Equal(t, 2222, cfg.ProbePort)
}

func TestLoad_InvalidFails(t *testing.T) {
	_, err := Load([]string{"-probe-mode", "udp"})
	require.Error(t, err)
}
