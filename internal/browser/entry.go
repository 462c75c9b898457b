// Package browser presents a navigable view of a remote filesystem, one
// directory level at a time.
package browser

import "fmt"

// Kind classifies a directory entry.
type Kind int

const (
	KindFile Kind = iota
	KindDirectory
	KindSymlink
)

func (k Kind) String() string {
	switch k {
	case KindDirectory:
		return "directory"
	case KindSymlink:
		return "symlink"
	default:
		return "file"
	}
}

// Entry is one name within a listed directory. Name never contains a
// path separator; ParentPath is the absolute remote path it was listed
// under. Entries are transient: each listing produces a fresh set.
type Entry struct {
	Name        string
	Kind        Kind
	ParentPath  string
	Permissions string
	Size        int64 // bytes; meaningful for files only
}

// HumanSize renders the entry size for display. Directories and symlinks
// show no size, matching the long listing they came from.
func (e Entry) HumanSize() string {
	if e.Kind != KindFile {
		return ""
	}
	return FormatSize(e.Size)
}

// FormatSize renders a byte count with base-10 units (1 KB = 1000 bytes).
func FormatSize(n int64) string {
	units := []string{"Bytes", "KB", "MB", "GB", "TB", "PB"}

	size := float64(n)
	idx := 0
	for size >= 1000 && idx < len(units)-1 {
		size /= 1000
		idx++
	}

	if idx == 0 {
		return fmt.Sprintf("%d %s", n, units[0])
	}
	return fmt.Sprintf("%.1f %s", size, units[idx])
}
