// Package service restarts the local playback service through systemd.
package service

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

var (
	// ErrPermission means the agent is not allowed to restart the unit.
	ErrPermission = errors.New("not permitted to restart service")
	// ErrUnavailable means systemd, sudo or the unit itself is missing.
	ErrUnavailable = errors.New("service manager unavailable")
)

// Restarter restarts the playback service.
type Restarter interface {
	Restart(ctx context.Context) error
}

// runCommand is a seam for testing.
var runCommand = func(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

const defaultTimeout = 30 * time.Second

// Systemctl runs `systemctl restart <unit>`, optionally via `sudo -n` so a
// missing sudoers rule fails fast instead of prompting.
type Systemctl struct {
	Unit    string
	UseSudo bool
	Timeout time.Duration
}

func NewSystemctl(unit string, useSudo bool) *Systemctl {
	return &Systemctl{Unit: unit, UseSudo: useSudo, Timeout: defaultTimeout}
}

// Command returns the argv that Restart executes.
func (s *Systemctl) Command() []string {
	argv := []string{"systemctl", "restart", s.Unit}
	if s.UseSudo {
		argv = append([]string{"sudo", "-n"}, argv...)
	}
	return argv
}

// Restart returns nil on success, or an error wrapping ErrPermission or
// ErrUnavailable when the failure could be classified.
func (s *Systemctl) Restart(ctx context.Context) error {
	if s.Unit == "" {
		return fmt.Errorf("%w: no unit configured", ErrUnavailable)
	}

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	argv := s.Command()
	out, err := runCommand(ctx, argv[0], argv[1:]...)
	if err == nil {
		return nil
	}
	return classify(strings.Join(argv, " "), out, err)
}

var (
	permissionMarkers = []string{
		"access denied",
		"interactive authentication required",
		"a password is required",
		"not in the sudoers",
		"not allowed to execute",
		"permission denied",
	}
	unavailableMarkers = []string{
		"not found",
		"could not be found",
		"not been booted with systemd",
		"failed to connect to bus",
	}
)

func classify(cmd string, out []byte, err error) error {
	msg := strings.TrimSpace(string(out))

	if errors.Is(err, exec.ErrNotFound) {
		return fmt.Errorf("%w: %s: %w", ErrUnavailable, cmd, err)
	}

	lower := strings.ToLower(msg)
	for _, m := range permissionMarkers {
		if strings.Contains(lower, m) {
			return fmt.Errorf("%w: %s: %s", ErrPermission, cmd, msg)
		}
	}
	for _, m := range unavailableMarkers {
		if strings.Contains(lower, m) {
			return fmt.Errorf("%w: %s: %s", ErrUnavailable, cmd, msg)
		}
	}

	if msg == "" {
		return fmt.Errorf("%s: %w", cmd, err)
	}
	return fmt.Errorf("%s: %w: %s", cmd, err, msg)
}
