package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"

	"gitlab.bluewillows.net/root/sshdeck/internal/metrics"
	"gitlab.bluewillows.net/root/sshdeck/internal/profile"
	"gitlab.bluewillows.net/root/sshdeck/pkg/sshrun"
)

// Sentinel errors for browsing.
var (
	// ErrRemoteAccess wraps listing failures on the remote side:
	// authentication, unreachable host, permission denied, timeout.
	ErrRemoteAccess = errors.New("remote access failed")

	// ErrParse indicates listing output that does not match the long
	// directory format. The caller's browse state is left unchanged.
	ErrParse = errors.New("unexpected listing format")
)

// ParentTarget is the pseudo-target that navigates one level up.
const ParentTarget = ".."

// State is the browse position of one open browser dialog: the current
// remote path and its listed entries. Navigation replaces a State
// wholesale; two dialogs never share one.
type State struct {
	Path    string
	Entries []Entry
}

// Browser lists remote directories over a CommandRunner. Every call
// authenticates from scratch; no remote session outlives a listing.
type Browser struct {
	runner sshrun.CommandRunner
	logger *slog.Logger
}

// Option is a functional option for configuring the Browser.
type Option func(*Browser)

// WithLogger sets a custom logger for browse operations.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Browser) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// New creates a Browser that lists directories through runner.
func New(runner sshrun.CommandRunner, opts ...Option) *Browser {
	b := &Browser{
		runner: runner,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// List executes one long-format listing against dirPath and parses it
// into ordered entries: directories first, then files and links, each
// group case-insensitively ascending. "." and ".." are suppressed.
func (b *Browser) List(ctx context.Context, p profile.Profile, dirPath string) ([]Entry, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	command := "ls -la " + quotePath(dirPath)
	result, err := b.runner.Run(ctx, p.Target(), command)
	if err != nil {
		metrics.ListingsTotal.WithLabelValues(metrics.ResultError).Inc()
		return nil, fmt.Errorf("%w: %v", ErrRemoteAccess, err)
	}
	if result.ExitCode != 0 {
		metrics.ListingsTotal.WithLabelValues(metrics.ResultError).Inc()
		return nil, fmt.Errorf("%w: exit code %d: %s", ErrRemoteAccess, result.ExitCode, result.Diagnostic())
	}

	entries, err := parseListing(result.Stdout, dirPath)
	if err != nil {
		metrics.ListingsTotal.WithLabelValues(metrics.ResultError).Inc()
		return nil, err
	}

	sortEntries(entries)
	metrics.ListingsTotal.WithLabelValues(metrics.ResultSuccess).Inc()

	b.logger.Debug("listed remote directory",
		slog.String("path", dirPath),
		slog.Int("entries", len(entries)),
	)

	return entries, nil
}

// Navigate moves the browse state into target, or to the parent directory
// when target is ParentTarget. The returned state carries the new path
// and entries; on any failure the passed state comes back unchanged.
func (b *Browser) Navigate(ctx context.Context, p profile.Profile, state State, target string) (State, error) {
	var newPath string
	if target == ParentTarget || target == "" {
		newPath = parentPath(state.Path)
	} else {
		newPath = joinRemote(state.Path, target)
	}

	entries, err := b.List(ctx, p, newPath)
	if err != nil {
		return state, err
	}

	return State{Path: newPath, Entries: entries}, nil
}

// Refresh re-lists the state's current path.
func (b *Browser) Refresh(ctx context.Context, p profile.Profile, state State) (State, error) {
	entries, err := b.List(ctx, p, state.Path)
	if err != nil {
		return state, err
	}
	return State{Path: state.Path, Entries: entries}, nil
}

// parentPath computes one level up, with "/" as its own parent.
func parentPath(p string) string {
	parent := path.Dir(path.Clean(p))
	if parent == "." || parent == "" {
		return "/"
	}
	return parent
}

// joinRemote joins a directory and an entry name with "/", collapsing
// any "." and ".." components.
func joinRemote(base, name string) string {
	return path.Join(base, name)
}

// quotePath single-quotes a remote path for the listing command, so
// names with spaces or shell metacharacters survive the remote shell.
func quotePath(p string) string {
	return "'" + strings.ReplaceAll(p, "'", `'"'"'`) + "'"
}

// parseListing converts ls -la output into entries. The leading "total"
// header and blank lines are skipped; any other line that is not a
// long-format entry aborts the whole listing.
func parseListing(out, parent string) ([]Entry, error) {
	var entries []Entry

	for i, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if i == 0 && strings.HasPrefix(line, "total") {
			continue
		}

		entry, err := parseLine(line, parent)
		if err != nil {
			return nil, err
		}
		if entry.Name == "." || entry.Name == ".." {
			continue
		}

		entries = append(entries, entry)
	}

	return entries, nil
}

// parseLine parses one long-format line:
//
//	drwxr-xr-x 2 alice alice 4096 Mar  1 10:00 docs
//
// The name is everything from the ninth field on, so names containing
// spaces stay intact.
func parseLine(line, parent string) (Entry, error) {
	fields := strings.Fields(line)
	if len(fields) < 9 {
		return Entry{}, fmt.Errorf("%w: %q", ErrParse, line)
	}

	mode := fields[0]
	name := strings.Join(fields[8:], " ")

	entry := Entry{
		Name:        name,
		ParentPath:  parent,
		Permissions: mode,
	}

	switch mode[0] {
	case 'd':
		entry.Kind = KindDirectory
	case 'l':
		entry.Kind = KindSymlink
		// Links list as "name -> destination"; keep the link's own name.
		if idx := strings.Index(name, " -> "); idx >= 0 {
			entry.Name = name[:idx]
		}
	case '-':
		entry.Kind = KindFile
		size, err := strconv.ParseInt(fields[4], 10, 64)
		if err != nil {
			return Entry{}, fmt.Errorf("%w: size field %q in %q", ErrParse, fields[4], line)
		}
		entry.Size = size
	default:
		// Sockets, pipes and devices browse like plain files.
		entry.Kind = KindFile
	}

	if strings.Contains(entry.Name, "/") {
		return Entry{}, fmt.Errorf("%w: name %q contains a separator", ErrParse, entry.Name)
	}

	return entry, nil
}

// sortEntries orders directories before everything else, each partition
// case-insensitively ascending by name.
func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		di := entries[i].Kind == KindDirectory
		dj := entries[j].Kind == KindDirectory
		if di != dj {
			return di
		}
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})
}
