package sshrun

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
)

// ExecRunner runs remote commands by shelling out to the local ssh binary.
// This is the production CommandRunner: the tool orchestrates an installed
// SSH client rather than speaking the protocol itself.
type ExecRunner struct {
	sshPath string
	logger  *slog.Logger
}

// ExecRunnerOption is a functional option for configuring the ExecRunner.
type ExecRunnerOption func(*ExecRunner)

// WithSSHPath overrides the ssh binary looked up on PATH.
func WithSSHPath(path string) ExecRunnerOption {
	return func(r *ExecRunner) {
		if path != "" {
			r.sshPath = path
		}
	}
}

// WithExecRunnerLogger sets a custom logger for command execution.
func WithExecRunnerLogger(logger *slog.Logger) ExecRunnerOption {
	return func(r *ExecRunner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewExecRunner creates a CommandRunner backed by the ssh binary.
func NewExecRunner(opts ...ExecRunnerOption) *ExecRunner {
	r := &ExecRunner{
		sshPath: "ssh",
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Run executes a command on the remote system. A non-zero remote exit
// status is reported through the result, not as an error; errors are
// reserved for invalid targets, an unstartable ssh binary, and timeouts.
func (r *ExecRunner) Run(ctx context.Context, target Target, command string) (*CommandResult, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := ensureDeadline(ctx)
	defer cancel()

	args := identityArgs(target)
	if target.Port != 0 {
		args = append(args, "-p", strconv.Itoa(target.Port))
	}
	args = append(args, target.UserHost(), "--", command)

	r.logger.Debug("running remote command",
		slog.String("host", target.Host),
		slog.String("command", command),
	)

	result, err := runLocal(ctx, r.sshPath, args)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("remote command finished",
		slog.String("host", target.Host),
		slog.Int("exit_code", result.ExitCode),
		slog.Int("stdout_len", len(result.Stdout)),
		slog.Int("stderr_len", len(result.Stderr)),
	)

	return result, nil
}

// ExecCopier copies paths by shelling out to the local scp binary.
type ExecCopier struct {
	scpPath string
	logger  *slog.Logger
}

// ExecCopierOption is a functional option for configuring the ExecCopier.
type ExecCopierOption func(*ExecCopier)

// WithSCPPath overrides the scp binary looked up on PATH.
func WithSCPPath(path string) ExecCopierOption {
	return func(c *ExecCopier) {
		if path != "" {
			c.scpPath = path
		}
	}
}

// WithExecCopierLogger sets a custom logger for copy execution.
func WithExecCopierLogger(logger *slog.Logger) ExecCopierOption {
	return func(c *ExecCopier) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewExecCopier creates a Copier backed by the scp binary.
func NewExecCopier(opts ...ExecCopierOption) *ExecCopier {
	c := &ExecCopier{
		scpPath: "scp",
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Copy invokes one recursive secure copy between src and dst. Transfers
// run without an implicit deadline; only the caller's context bounds them.
func (c *ExecCopier) Copy(ctx context.Context, target Target, src, dst Endpoint) (*CommandResult, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	if src.Remote == dst.Remote {
		return nil, ErrBadEndpoints
	}

	args := identityArgs(target)
	if target.Port != 0 {
		args = append(args, "-P", strconv.Itoa(target.Port))
	}
	args = append(args, "-r", endpointArg(target, src), endpointArg(target, dst))

	c.logger.Debug("running secure copy",
		slog.String("host", target.Host),
		slog.String("src", src.Path),
		slog.String("dst", dst.Path),
	)

	result, err := runLocal(ctx, c.scpPath, args)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("secure copy finished",
		slog.String("host", target.Host),
		slog.Int("exit_code", result.ExitCode),
	)

	return result, nil
}

// runLocal executes a local process and folds its exit status into a
// CommandResult.
func runLocal(ctx context.Context, bin string, args []string) (*CommandResult, error) {
	cmd := exec.CommandContext(ctx, bin, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("%s timed out: %w", bin, ctxErr)
	}

	result := &CommandResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("starting %s: %w", bin, err)
		}
		result.ExitCode = exitErr.ExitCode()
	}

	return result, nil
}

// identityArgs builds the key and policy arguments shared by ssh and scp.
// Host key checking is disabled to match the tool's operating mode, and
// BatchMode keeps the binaries from prompting interactively.
func identityArgs(t Target) []string {
	return []string{
		"-i", t.KeyPath,
		"-o", "StrictHostKeyChecking=no",
		"-o", "BatchMode=yes",
	}
}

// endpointArg renders one side of a copy, qualifying remote paths with
// the target's user@host.
func endpointArg(t Target, e Endpoint) string {
	if e.Remote {
		return t.UserHost() + ":" + e.Path
	}
	return e.Path
}
