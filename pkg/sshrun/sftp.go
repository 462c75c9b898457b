package sshrun

import (
	"context"
	"fmt"
	"io"
	iofs "io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/pkg/sftp"
)

// NativeCopier moves files over SFTP, for hosts without an scp binary.
// Directories copy recursively, matching scp -r. Each call dials its own
// connection and tears it down when the copy ends.
type NativeCopier struct {
	logger *slog.Logger
}

// NativeCopierOption is a functional option for configuring the NativeCopier.
type NativeCopierOption func(*NativeCopier)

// WithNativeCopierLogger sets a custom logger for copy operations.
func WithNativeCopierLogger(logger *slog.Logger) NativeCopierOption {
	return func(c *NativeCopier) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewNativeCopier creates a Copier backed by github.com/pkg/sftp.
func NewNativeCopier(opts ...NativeCopierOption) *NativeCopier {
	c := &NativeCopier{
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Copy moves src to dst over a one-shot SFTP session. A copy the remote
// side rejects is folded into the result's exit code and stderr so that
// callers handle exec and native backends identically.
func (c *NativeCopier) Copy(ctx context.Context, target Target, src, dst Endpoint) (*CommandResult, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	if src.Remote == dst.Remote {
		return nil, ErrBadEndpoints
	}

	client, err := dial(ctx, target)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Close() }()

	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		return nil, fmt.Errorf("creating SFTP client: %w", err)
	}
	defer func() { _ = sftpClient.Close() }()

	c.logger.Debug("sftp copy",
		slog.String("host", target.Host),
		slog.String("src", src.Path),
		slog.String("dst", dst.Path),
	)

	var copied int64
	var copyErr error
	if src.Remote {
		copied, copyErr = downloadPath(sftpClient, src.Path, dst.Path)
	} else {
		copied, copyErr = uploadPath(sftpClient, src.Path, dst.Path)
	}

	if copyErr != nil {
		return &CommandResult{ExitCode: 1, Stderr: copyErr.Error()}, nil
	}

	c.logger.Debug("sftp copy finished",
		slog.String("host", target.Host),
		slog.Int64("bytes", copied),
	)

	return &CommandResult{Stdout: fmt.Sprintf("%d bytes copied", copied)}, nil
}

// uploadPath copies a local file or directory tree to the remote side,
// returning the number of file bytes written.
func uploadPath(sc *sftp.Client, local, remote string) (int64, error) {
	info, err := os.Stat(local)
	if err != nil {
		return 0, err
	}

	if !info.IsDir() {
		// Copying a file onto an existing directory drops it inside,
		// matching scp.
		if ri, statErr := sc.Stat(remote); statErr == nil && ri.IsDir() {
			remote = path.Join(remote, filepath.Base(local))
		}
		return uploadFile(sc, local, remote)
	}

	var total int64
	err = filepath.WalkDir(local, func(p string, d iofs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, relErr := filepath.Rel(local, p)
		if relErr != nil {
			return relErr
		}
		rpath := path.Join(remote, filepath.ToSlash(rel))
		if d.IsDir() {
			return sc.MkdirAll(rpath)
		}
		n, copyErr := uploadFile(sc, p, rpath)
		total += n
		return copyErr
	})
	return total, err
}

func uploadFile(sc *sftp.Client, local, remote string) (int64, error) {
	src, err := os.Open(local)
	if err != nil {
		return 0, err
	}
	defer func() { _ = src.Close() }()

	dst, err := sc.OpenFile(remote, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return 0, fmt.Errorf("opening %s for write: %w", remote, err)
	}
	defer func() { _ = dst.Close() }()

	n, err := io.Copy(dst, src)
	if err != nil {
		return n, fmt.Errorf("writing %s: %w", remote, err)
	}
	return n, nil
}

// downloadPath copies a remote file or directory tree to the local side,
// returning the number of file bytes written.
func downloadPath(sc *sftp.Client, remote, local string) (int64, error) {
	info, err := sc.Stat(remote)
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", remote, err)
	}

	if !info.IsDir() {
		if li, statErr := os.Stat(local); statErr == nil && li.IsDir() {
			local = filepath.Join(local, path.Base(remote))
		}
		return downloadFile(sc, remote, local)
	}

	var total int64
	walker := sc.Walk(remote)
	for walker.Step() {
		if walkErr := walker.Err(); walkErr != nil {
			return total, walkErr
		}
		rel, relErr := filepath.Rel(remote, walker.Path())
		if relErr != nil {
			return total, relErr
		}
		lpath := filepath.Join(local, rel)
		if walker.Stat().IsDir() {
			if mkErr := os.MkdirAll(lpath, 0o755); mkErr != nil {
				return total, mkErr
			}
			continue
		}
		n, copyErr := downloadFile(sc, walker.Path(), lpath)
		total += n
		if copyErr != nil {
			return total, copyErr
		}
	}
	return total, nil
}

func downloadFile(sc *sftp.Client, remote, local string) (int64, error) {
	src, err := sc.Open(remote)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", remote, err)
	}
	defer func() { _ = src.Close() }()

	dst, err := os.OpenFile(local, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, err
	}
	defer func() { _ = dst.Close() }()

	n, err := io.Copy(dst, src)
	if err != nil {
		return n, fmt.Errorf("reading %s: %w", remote, err)
	}
	return n, nil
}
