package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		expected *Config
		name     string
		args     []string
		wantErr  bool
	}{
		{
			name: "all flags",
			args: []string{
				"-a", "127.0.0.1:9090", "-d", "db", "-l", "debug",
				"-s", "1m", "-m", "2m", "-t", "500ms", "-n", "8",
				"-probe-mode", "icmp", "-probe-port", "8080", "-probe-all",
				"-r", "redis://localhost:6379/0",
				"-u", "user", "-p", "password", "-b", "bucket", "-g", "us-west-1", "-e", "http://endpoint",
			},
			expected: &Config{
				ControlAddrGRPC:    "127.0.0.1:9090",
				DatabaseDSN:        "db",
				LogLevel:           "debug",
				SchedulerInterval:  time.Minute,
				MonitorInterval:    2 * time.Minute,
				ProbeTimeout:       500 * time.Millisecond,
				ProbeConcurrency:   8,
				ProbeMode:          "icmp",
				ProbePort:          8080,
				ProbeAllInterfaces: true,
				RedisURL:           "redis://localhost:6379/0",
				S3RootUser:         "user",
				S3RootPassword:     "password",
				S3Bucket:           "bucket",
				S3Region:           "us-west-1",
				S3BaseEndpoint:     "http://endpoint",
			},
		},
		{
			name:     "unknown flags are ignored",
			args:     []string{"-c", "cfg.json", "-x", "1", "-a", ":1"},
			expected: &Config{ControlAddrGRPC: ":1"},
		},
		{
			name:    "bad duration",
			args:    []string{"-s", "soon"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := &Config{}
			err := parseFlags(config, tt.args)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(tt.expected, config); diff != "" {
				t.Errorf("config mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
