// Package transfer moves single paths between the local machine and a
// remote host. Copies are recursive; a directory path transfers the
// whole tree in one call. There are no retries and no resume support:
// a failed transfer reports its diagnostic and stops.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"gitlab.bluewillows.net/root/sshdeck/internal/metrics"
	"gitlab.bluewillows.net/root/sshdeck/internal/platform"
	"gitlab.bluewillows.net/root/sshdeck/internal/profile"
	"gitlab.bluewillows.net/root/sshdeck/pkg/sshrun"
)

// Sentinel errors for transfers.
var (
	// ErrInvalidPath is returned when the local side of a transfer is
	// known bad before any remote process is spawned.
	ErrInvalidPath = errors.New("invalid local path")

	// ErrTransfer wraps a copy that started but did not complete. The
	// wrapped text carries the copier's diagnostic output.
	ErrTransfer = errors.New("transfer failed")
)

// Result reports the outcome of one transfer.
type Result struct {
	// Success is true when the copier finished with a zero exit code.
	Success bool

	// BytesHint is the local size of the transferred tree, summed over
	// regular files. Zero when the size could not be determined.
	BytesHint int64

	// Message carries the copier's diagnostic output on failure.
	Message string
}

// Engine orchestrates recursive file copies through a Copier. The
// platform gate runs once at construction; an Engine never exists on an
// unsupported platform.
type Engine struct {
	copier sshrun.Copier
	family platform.Family
	logger *slog.Logger
}

// Option is a functional option for configuring the Engine.
type Option func(*Engine)

// WithLogger sets a custom logger for transfer operations.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an Engine copying through copier on the given platform
// family. The family comes from platform.Detect at startup; an unknown
// family fails construction.
func New(copier sshrun.Copier, family platform.Family, opts ...Option) (*Engine, error) {
	if family == platform.FamilyUnknown {
		return nil, platform.ErrUnsupported
	}

	e := &Engine{
		copier: copier,
		family: family,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// Download copies remotePath to localPath recursively. The remote side
// is not probed first; a missing or unreadable remote path surfaces as
// ErrTransfer with the copier's diagnostic.
func (e *Engine) Download(ctx context.Context, p profile.Profile, remotePath, localPath string) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if remotePath == "" || localPath == "" {
		return nil, fmt.Errorf("%w: both paths must be set", ErrInvalidPath)
	}

	src := sshrun.Endpoint{Path: remotePath, Remote: true}
	dst := sshrun.Endpoint{Path: localPath}

	res, err := e.copy(ctx, p, src, dst, metrics.DirectionDownload)
	if err != nil {
		return res, err
	}

	// Best effort: size up what actually landed locally.
	res.BytesHint = localTreeSize(localPath)
	metrics.TransferBytes.WithLabelValues(metrics.DirectionDownload).Add(float64(res.BytesHint))

	e.logger.Info("download complete",
		slog.String("remote", remotePath),
		slog.String("local", localPath),
		slog.Int64("bytes", res.BytesHint),
	)

	return res, nil
}

// Upload copies localPath to remotePath recursively. The local source
// is checked before any process is spawned; a missing source is
// ErrInvalidPath and the copier is never invoked.
func (e *Engine) Upload(ctx context.Context, p profile.Profile, localPath, remotePath string) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if remotePath == "" || localPath == "" {
		return nil, fmt.Errorf("%w: both paths must be set", ErrInvalidPath)
	}
	if _, err := os.Stat(localPath); err != nil {
		metrics.TransfersTotal.WithLabelValues(metrics.DirectionUpload, metrics.ResultError).Inc()
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPath, localPath, err)
	}

	src := sshrun.Endpoint{Path: localPath}
	dst := sshrun.Endpoint{Path: remotePath, Remote: true}

	res, err := e.copy(ctx, p, src, dst, metrics.DirectionUpload)
	if err != nil {
		return res, err
	}

	res.BytesHint = localTreeSize(localPath)
	metrics.TransferBytes.WithLabelValues(metrics.DirectionUpload).Add(float64(res.BytesHint))

	e.logger.Info("upload complete",
		slog.String("local", localPath),
		slog.String("remote", remotePath),
		slog.Int64("bytes", res.BytesHint),
	)

	return res, nil
}

// copy runs the copier once and folds failures into ErrTransfer.
func (e *Engine) copy(ctx context.Context, p profile.Profile, src, dst sshrun.Endpoint, direction string) (*Result, error) {
	out, err := e.copier.Copy(ctx, p.Target(), src, dst)
	if err != nil {
		metrics.TransfersTotal.WithLabelValues(direction, metrics.ResultError).Inc()
		return nil, fmt.Errorf("%w: %v", ErrTransfer, err)
	}
	if out.ExitCode != 0 {
		metrics.TransfersTotal.WithLabelValues(direction, metrics.ResultError).Inc()
		diag := out.Diagnostic()
		return &Result{Message: diag}, fmt.Errorf("%w: exit code %d: %s", ErrTransfer, out.ExitCode, diag)
	}

	metrics.TransfersTotal.WithLabelValues(direction, metrics.ResultSuccess).Inc()
	return &Result{Success: true}, nil
}

// localTreeSize sums the sizes of regular files under root. A file path
// returns its own size. Unreadable trees count as zero.
func localTreeSize(root string) int64 {
	var total int64
	_ = filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		total += info.Size()
		return nil
	})
	return total
}
