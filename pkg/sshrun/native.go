package sshrun

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"

	"golang.org/x/crypto/ssh"
)

// NativeRunner executes remote commands with an in-process SSH client,
// for hosts without an OpenSSH installation. Like ExecRunner it dials and
// authenticates per call, holding nothing open between calls.
type NativeRunner struct {
	logger *slog.Logger
}

// NativeRunnerOption is a functional option for configuring the NativeRunner.
type NativeRunnerOption func(*NativeRunner)

// WithNativeRunnerLogger sets a custom logger for command execution.
func WithNativeRunnerLogger(logger *slog.Logger) NativeRunnerOption {
	return func(r *NativeRunner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewNativeRunner creates a CommandRunner backed by golang.org/x/crypto/ssh.
func NewNativeRunner(opts ...NativeRunnerOption) *NativeRunner {
	r := &NativeRunner{
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Run executes a command on the remote system over a one-shot connection.
func (r *NativeRunner) Run(ctx context.Context, target Target, command string) (*CommandResult, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := ensureDeadline(ctx)
	defer cancel()

	client, err := dial(ctx, target)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Close() }()

	session, err := client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("creating SSH session: %w", err)
	}
	defer func() { _ = session.Close() }()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	r.logger.Debug("running remote command",
		slog.String("host", target.Host),
		slog.String("command", command),
	)

	done := make(chan error, 1)
	go func() {
		done <- session.Run(command)
	}()

	select {
	case <-ctx.Done():
		_ = session.Close()
		return nil, fmt.Errorf("remote command timed out: %w", ctx.Err())
	case runErr := <-done:
		result := &CommandResult{
			Stdout: stdout.String(),
			Stderr: stderr.String(),
		}
		if runErr != nil {
			result.ExitCode = exitCode(runErr)
		}

		r.logger.Debug("remote command finished",
			slog.String("host", target.Host),
			slog.Int("exit_code", result.ExitCode),
		)

		return result, nil
	}
}

// dial opens an authenticated SSH connection for a single operation.
func dial(ctx context.Context, t Target) (*ssh.Client, error) {
	keyData, err := os.ReadFile(t.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("reading key file %s: %w", t.KeyPath, err)
	}

	signer, err := ssh.ParsePrivateKey(keyData)
	if err != nil {
		return nil, fmt.Errorf("parsing key file %s: %w", t.KeyPath, err)
	}

	config := &ssh.ClientConfig{
		User:            t.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec // matches the ssh/scp invocation policy
		Timeout:         DefaultTimeout,
	}

	dialer := &net.Dialer{}
	netConn, err := dialer.DialContext(ctx, "tcp", t.Addr())
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", t.Addr(), err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(netConn, t.Addr(), config)
	if err != nil {
		_ = netConn.Close() // Best effort cleanup
		if isAuthError(err) {
			return nil, fmt.Errorf("%w: %w", ErrAuthenticationFailed, err)
		}
		return nil, fmt.Errorf("SSH handshake failed: %w", err)
	}

	return ssh.NewClient(sshConn, chans, reqs), nil
}

// exitCode extracts the remote exit status from a session error.
func exitCode(err error) int {
	if err == nil {
		return 0
	}

	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitStatus()
	}

	// Session ended without a status (e.g. connection dropped).
	return 1
}
