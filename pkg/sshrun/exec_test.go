package sshrun

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// fakeBinary writes an executable shell script and returns its path.
func fakeBinary(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-bin")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatalf("writing fake binary: %v", err)
	}
	return path
}

func validTarget() Target {
	return Target{User: "alice", Host: "10.0.0.5", KeyPath: "/home/alice/.ssh/id_rsa"}
}

func TestIdentityArgs(t *testing.T) {
	args := identityArgs(validTarget())

	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-i /home/alice/.ssh/id_rsa") {
		t.Errorf("identityArgs missing key file: %v", args)
	}
	if !strings.Contains(joined, "StrictHostKeyChecking=no") {
		t.Errorf("identityArgs missing host key policy: %v", args)
	}
	if !strings.Contains(joined, "BatchMode=yes") {
		t.Errorf("identityArgs missing batch mode: %v", args)
	}
}

func TestEndpointArg(t *testing.T) {
	target := validTarget()

	tests := []struct {
		name     string
		endpoint Endpoint
		want     string
	}{
		{
			name:     "local path",
			endpoint: Endpoint{Path: "/tmp/downloads"},
			want:     "/tmp/downloads",
		},
		{
			name:     "remote path qualified",
			endpoint: Endpoint{Path: "/var/log/syslog", Remote: true},
			want:     "alice@10.0.0.5:/var/log/syslog",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := endpointArg(target, tt.endpoint); got != tt.want {
				t.Errorf("endpointArg() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExecRunnerRun(t *testing.T) {
	t.Run("invalid target", func(t *testing.T) {
		runner := NewExecRunner()
		if _, err := runner.Run(context.Background(), Target{}, "ls"); err == nil {
			t.Error("Run() expected error for invalid target")
		}
	})

	t.Run("captures output and exit code", func(t *testing.T) {
		bin := fakeBinary(t, "echo listed\necho denied >&2\nexit 3\n")
		runner := NewExecRunner(WithSSHPath(bin))

		result, err := runner.Run(context.Background(), validTarget(), "ls -la /root")
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if result.ExitCode != 3 {
			t.Errorf("ExitCode = %d, want 3", result.ExitCode)
		}
		if strings.TrimSpace(result.Stdout) != "listed" {
			t.Errorf("Stdout = %q, want %q", result.Stdout, "listed")
		}
		if result.Diagnostic() != "denied" {
			t.Errorf("Diagnostic() = %q, want %q", result.Diagnostic(), "denied")
		}
	})

	t.Run("zero exit", func(t *testing.T) {
		bin := fakeBinary(t, "echo ok\n")
		runner := NewExecRunner(WithSSHPath(bin))

		result, err := runner.Run(context.Background(), validTarget(), "true")
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if result.ExitCode != 0 {
			t.Errorf("ExitCode = %d, want 0", result.ExitCode)
		}
	})

	t.Run("binary not startable", func(t *testing.T) {
		runner := NewExecRunner(WithSSHPath(filepath.Join(t.TempDir(), "missing")))
		if _, err := runner.Run(context.Background(), validTarget(), "ls"); err == nil {
			t.Error("Run() expected error for missing binary")
		}
	})
}

func TestExecCopierCopy(t *testing.T) {
	local := Endpoint{Path: "/tmp/file"}
	remote := Endpoint{Path: "/srv/file", Remote: true}

	t.Run("rejects two local endpoints", func(t *testing.T) {
		copier := NewExecCopier()
		_, err := copier.Copy(context.Background(), validTarget(), local, Endpoint{Path: "/tmp/other"})
		if !errors.Is(err, ErrBadEndpoints) {
			t.Errorf("Copy() error = %v, want ErrBadEndpoints", err)
		}
	})

	t.Run("rejects two remote endpoints", func(t *testing.T) {
		copier := NewExecCopier()
		_, err := copier.Copy(context.Background(), validTarget(), remote, Endpoint{Path: "/srv/other", Remote: true})
		if !errors.Is(err, ErrBadEndpoints) {
			t.Errorf("Copy() error = %v, want ErrBadEndpoints", err)
		}
	})

	t.Run("passes recursive flag and endpoints", func(t *testing.T) {
		bin := fakeBinary(t, `echo "$@"`+"\n")
		copier := NewExecCopier(WithSCPPath(bin))

		result, err := copier.Copy(context.Background(), validTarget(), remote, local)
		if err != nil {
			t.Fatalf("Copy() error = %v", err)
		}
		if result.ExitCode != 0 {
			t.Fatalf("ExitCode = %d, want 0", result.ExitCode)
		}
		if !strings.Contains(result.Stdout, "-r alice@10.0.0.5:/srv/file /tmp/file") {
			t.Errorf("scp argv = %q, missing recursive source/destination", result.Stdout)
		}
	})

	t.Run("non-zero exit reported in result", func(t *testing.T) {
		bin := fakeBinary(t, "echo 'scp: permission denied' >&2\nexit 1\n")
		copier := NewExecCopier(WithSCPPath(bin))

		result, err := copier.Copy(context.Background(), validTarget(), local, remote)
		if err != nil {
			t.Fatalf("Copy() error = %v", err)
		}
		if result.ExitCode != 1 {
			t.Errorf("ExitCode = %d, want 1", result.ExitCode)
		}
		if !strings.Contains(result.Diagnostic(), "permission denied") {
			t.Errorf("Diagnostic() = %q, want scp error text", result.Diagnostic())
		}
	})
}

func TestNativeRunnerNotReachable(t *testing.T) {
	t.Run("invalid target", func(t *testing.T) {
		runner := NewNativeRunner()
		if _, err := runner.Run(context.Background(), Target{}, "ls"); err == nil {
			t.Error("Run() expected error for invalid target")
		}
	})

	t.Run("missing key file", func(t *testing.T) {
		runner := NewNativeRunner()
		target := validTarget()
		target.KeyPath = filepath.Join(t.TempDir(), "no-such-key")
		if _, err := runner.Run(context.Background(), target, "ls"); err == nil {
			t.Error("Run() expected error for missing key file")
		}
	})
}

func TestNativeCopierEndpoints(t *testing.T) {
	copier := NewNativeCopier()
	_, err := copier.Copy(context.Background(), validTarget(),
		Endpoint{Path: "/a"}, Endpoint{Path: "/b"})
	if !errors.Is(err, ErrBadEndpoints) {
		t.Errorf("Copy() error = %v, want ErrBadEndpoints", err)
	}
}
