// Package session opens interactive SSH terminals in the platform's
// terminal emulator. Launches are fire and forget: the launcher starts
// the emulator and hands the session over, it never tracks or closes
// the window.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"os/exec"

	"gitlab.bluewillows.net/root/sshdeck/internal/metrics"
	"gitlab.bluewillows.net/root/sshdeck/internal/platform"
	"gitlab.bluewillows.net/root/sshdeck/internal/profile"
)

// ErrLaunch is returned when the terminal emulator cannot be started.
// Failures inside the spawned session are invisible to the launcher.
var ErrLaunch = errors.New("terminal launch failed")

// DefaultLinuxTerminal is the emulator used on linux when settings do
// not name another one.
const DefaultLinuxTerminal = "gnome-terminal"

// Launcher spawns terminal sessions for connection profiles.
type Launcher struct {
	family   platform.Family
	terminal string
	logger   *slog.Logger

	// start is swapped out in tests so no emulator is spawned.
	start func(*exec.Cmd) error
}

// Option is a functional option for configuring the Launcher.
type Option func(*Launcher)

// WithTerminal overrides the linux terminal emulator. Ignored on
// darwin, where Terminal.app is scripted directly.
func WithTerminal(name string) Option {
	return func(l *Launcher) {
		if name != "" {
			l.terminal = name
		}
	}
}

// WithLogger sets a custom logger for launch operations.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Launcher) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates a Launcher for the given platform family. The family
// comes from platform.Detect at startup; an unknown family fails
// construction.
func New(family platform.Family, opts ...Option) (*Launcher, error) {
	if family == platform.FamilyUnknown {
		return nil, platform.ErrUnsupported
	}

	l := &Launcher{
		family:   family,
		terminal: DefaultLinuxTerminal,
		logger:   slog.Default(),
		start:    startAndReap,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l, nil
}

// Open spawns a terminal window running an interactive SSH session for
// the profile. It returns once the emulator process has started.
func (l *Launcher) Open(p profile.Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}

	cmd := l.command(p)
	if err := l.start(cmd); err != nil {
		metrics.SessionLaunchesTotal.WithLabelValues(metrics.ResultError).Inc()
		return fmt.Errorf("%w: %s: %v", ErrLaunch, cmd.Path, err)
	}

	metrics.SessionLaunchesTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	l.logger.Info("terminal session launched",
		slog.String("host", p.Host),
		slog.String("user", p.Username),
		slog.String("platform", l.family.String()),
	)

	return nil
}

// command builds the emulator invocation for the current platform.
func (l *Launcher) command(p profile.Profile) *exec.Cmd {
	ssh := sshCommand(p)

	switch l.family {
	case platform.FamilyDarwin:
		script := fmt.Sprintf("tell application \"Terminal\"\nactivate\ndo script \"%s\"\nend tell", ssh)
		return exec.Command("osascript", "-e", script)
	default:
		// Keep the window open after the session ends so errors stay
		// readable.
		return exec.Command(l.terminal, "--", "bash", "-c", ssh+"; exec bash")
	}
}

// sshCommand renders the interactive client invocation for a profile.
func sshCommand(p profile.Profile) string {
	return fmt.Sprintf("ssh -i %s -o StrictHostKeyChecking=no %s@%s", p.KeyPath, p.Username, p.Host)
}

// startAndReap starts the command and reaps it in the background so
// finished emulators do not linger as zombies.
func startAndReap(cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
