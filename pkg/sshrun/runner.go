package sshrun

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Default values for remote invocations.
const (
	// DefaultPort is the standard SSH port, used when Target.Port is zero.
	DefaultPort = 22

	// DefaultTimeout bounds a single remote command when the caller's
	// context carries no deadline of its own.
	DefaultTimeout = 10 * time.Second
)

// Sentinel errors for remote invocations.
var (
	// ErrAuthenticationFailed is returned when the remote side rejects
	// the supplied key.
	ErrAuthenticationFailed = errors.New("ssh authentication failed")

	// ErrBadEndpoints is returned when a copy does not have exactly one
	// remote endpoint.
	ErrBadEndpoints = errors.New("copy requires exactly one remote endpoint")
)

// Target identifies the remote side of a command or copy: who connects
// where, authenticated by a private key file.
type Target struct {
	// User is the SSH username (required).
	User string

	// Host is the server hostname or IP address (required).
	Host string

	// KeyPath is the path to the SSH private key file (required).
	KeyPath string

	// Port is the SSH server port. Zero means DefaultPort.
	Port int
}

// Validate checks that all required target fields are present.
func (t Target) Validate() error {
	var errs []string

	if t.User == "" {
		errs = append(errs, "user is required")
	}
	if t.Host == "" {
		errs = append(errs, "host is required")
	}
	if t.KeyPath == "" {
		errs = append(errs, "key path is required")
	}
	if t.Port < 0 || t.Port > 65535 {
		errs = append(errs, "port must be between 0 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("target validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}

// Addr returns the server address in host:port format.
func (t Target) Addr() string {
	port := t.Port
	if port == 0 {
		port = DefaultPort
	}
	return fmt.Sprintf("%s:%d", t.Host, port)
}

// UserHost returns the user@host form used to qualify remote paths.
func (t Target) UserHost() string {
	return t.User + "@" + t.Host
}

// CommandResult holds the outcome of one remote invocation.
type CommandResult struct {
	// ExitCode is the exit status of the remote command or copy.
	ExitCode int

	// Stdout is the captured standard output.
	Stdout string

	// Stderr is the captured standard error.
	Stderr string
}

// Diagnostic returns the most useful error text from the result: stderr
// when present, otherwise stdout, trimmed of surrounding whitespace.
func (r *CommandResult) Diagnostic() string {
	if msg := strings.TrimSpace(r.Stderr); msg != "" {
		return msg
	}
	return strings.TrimSpace(r.Stdout)
}

// CommandRunner executes a single non-interactive command against a
// target. Implementations authenticate from scratch on every call and
// keep no remote state between calls.
type CommandRunner interface {
	Run(ctx context.Context, target Target, command string) (*CommandResult, error)
}

// Endpoint names one side of a copy. Remote endpoints are qualified with
// the target's user@host when the copy is invoked.
type Endpoint struct {
	Path   string
	Remote bool
}

// Copier moves a single file or directory between the local and remote
// filesystems. Exactly one of src and dst must be remote. A copy that the
// remote side rejects is reported through CommandResult.ExitCode, not as
// an error; errors are reserved for failures to perform the copy at all.
type Copier interface {
	Copy(ctx context.Context, target Target, src, dst Endpoint) (*CommandResult, error)
}

// ensureDeadline applies DefaultTimeout when the caller's context has no
// deadline of its own.
func ensureDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, DefaultTimeout)
}

// isAuthError checks if an error is an authentication-related error.
func isAuthError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "unable to authenticate") ||
		strings.Contains(errStr, "no supported methods") ||
		strings.Contains(errStr, "permission denied") ||
		strings.Contains(errStr, "publickey")
}
