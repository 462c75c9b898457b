package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gitlab.bluewillows.net/root/sshdeck/internal/metrics"
)

// Sentinel errors for store operations.
var (
	// ErrNotFound is returned when a configuration file does not exist.
	ErrNotFound = errors.New("configuration file not found")

	// ErrMalformed is returned when a configuration file cannot be parsed
	// or is missing required fields.
	ErrMalformed = errors.New("malformed configuration file")

	// ErrPersistence is returned when the configurations directory cannot
	// be created or written.
	ErrPersistence = errors.New("cannot write configuration")
)

const (
	// DefaultFileName is the unsuffixed configuration file. New saves are
	// compared against it for deduplication.
	DefaultFileName = "config.json"

	numberedPrefix = "config_"
	fileExt        = ".json"
)

// StoredFile describes one configuration file on disk. Files are written
// once and never mutated or deleted by the store.
type StoredFile struct {
	Path      string
	Profile   Profile
	IsDefault bool
}

// Store persists profiles as JSON files under a configurations directory,
// allocating collision-free names for profiles that differ from the
// default. Single-process use only; nothing synchronizes against outside
// writers.
type Store struct {
	dir    string
	logger *slog.Logger
}

// StoreOption is a functional option for configuring the Store.
type StoreOption func(*Store)

// WithStoreLogger sets a custom logger for store operations.
func WithStoreLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore creates a store rooted at dir, creating the directory when
// missing.
func NewStore(dir string, opts ...StoreOption) (*Store, error) {
	s := &Store{
		dir:    dir,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	return s, nil
}

// Dir returns the configurations directory.
func (s *Store) Dir() string {
	return s.dir
}

// Save persists p. The first profile ever saved becomes the default
// config.json; saving a profile identical to the default is a no-op that
// returns the existing file. A profile that differs from the default is
// written to config_<n>.json, with n the smallest unused positive
// integer. Existing files are never overwritten.
func (s *Store) Save(p Profile) (StoredFile, error) {
	if err := p.Validate(); err != nil {
		return StoredFile{}, err
	}

	defaultPath := filepath.Join(s.dir, DefaultFileName)
	existing, err := Load(defaultPath)

	switch {
	case errors.Is(err, ErrNotFound):
		if writeErr := s.write(defaultPath, p); writeErr != nil {
			metrics.ProfileSavesTotal.WithLabelValues(metrics.SaveError).Inc()
			return StoredFile{}, writeErr
		}
		metrics.ProfileSavesTotal.WithLabelValues(metrics.SaveWritten).Inc()
		s.logger.Info("saved default configuration", slog.String("path", defaultPath))
		return StoredFile{Path: defaultPath, Profile: p, IsDefault: true}, nil

	case err == nil && existing.Equal(p):
		metrics.ProfileSavesTotal.WithLabelValues(metrics.SaveUnchanged).Inc()
		s.logger.Debug("profile unchanged, keeping default", slog.String("path", defaultPath))
		return StoredFile{Path: defaultPath, Profile: p, IsDefault: true}, nil

	case err != nil:
		// A corrupt default still anchors the naming scheme; the new
		// profile goes to a numbered file alongside it.
		s.logger.Warn("default configuration unreadable",
			slog.String("path", defaultPath),
			slog.String("error", err.Error()),
		)
	}

	n, err := s.nextSuffix()
	if err != nil {
		metrics.ProfileSavesTotal.WithLabelValues(metrics.SaveError).Inc()
		return StoredFile{}, err
	}

	path := filepath.Join(s.dir, fmt.Sprintf("%s%d%s", numberedPrefix, n, fileExt))
	if err := s.write(path, p); err != nil {
		metrics.ProfileSavesTotal.WithLabelValues(metrics.SaveError).Inc()
		return StoredFile{}, err
	}

	metrics.ProfileSavesTotal.WithLabelValues(metrics.SaveWritten).Inc()
	s.logger.Info("saved configuration",
		slog.String("path", path),
		slog.Int("suffix", n),
	)

	return StoredFile{Path: path, Profile: p}, nil
}

// List returns every readable configuration in the directory: the default
// first, then numbered files in ascending suffix order. Unreadable files
// are skipped with a warning rather than failing the whole listing.
func (s *Store) List() ([]StoredFile, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading configurations directory: %w", err)
	}

	var files []StoredFile
	for _, e := range entries {
		name := e.Name()
		if name != DefaultFileName && suffixOf(name) == 0 {
			continue
		}

		path := filepath.Join(s.dir, name)
		p, loadErr := Load(path)
		if loadErr != nil {
			s.logger.Warn("skipping unreadable configuration",
				slog.String("path", path),
				slog.String("error", loadErr.Error()),
			)
			continue
		}

		files = append(files, StoredFile{
			Path:      path,
			Profile:   p,
			IsDefault: name == DefaultFileName,
		})
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].IsDefault != files[j].IsDefault {
			return files[i].IsDefault
		}
		return suffixOf(filepath.Base(files[i].Path)) < suffixOf(filepath.Base(files[j].Path))
	})

	return files, nil
}

// Load reads and validates a configuration file into a Profile.
func Load(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Profile{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return Profile{}, fmt.Errorf("reading %s: %w", path, err)
	}

	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("%w: %s: %v", ErrMalformed, path, err)
	}

	if err := p.Validate(); err != nil {
		return Profile{}, fmt.Errorf("%w: %s: %v", ErrMalformed, path, err)
	}

	return p, nil
}

func (s *Store) write(path string, p Profile) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}

	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	return nil
}

// nextSuffix scans the directory for config_<n>.json names and returns
// the smallest positive integer not already used.
func (s *Store) nextSuffix() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	used := make(map[int]bool)
	for _, e := range entries {
		if n := suffixOf(e.Name()); n > 0 {
			used[n] = true
		}
	}

	n := 1
	for used[n] {
		n++
	}
	return n, nil
}

// suffixOf extracts n from a config_<n>.json file name, or 0 when the
// name does not match.
func suffixOf(name string) int {
	if !strings.HasPrefix(name, numberedPrefix) || !strings.HasSuffix(name, fileExt) {
		return 0
	}
	num := strings.TrimSuffix(strings.TrimPrefix(name, numberedPrefix), fileExt)
	n, err := strconv.Atoi(num)
	if err != nil || n < 1 {
		return 0
	}
	return n
}
