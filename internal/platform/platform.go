// Package platform gates remote operations on supported operating-system
// families.
package platform

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrUnsupported is returned when the running operating system is not a
// supported family. Surfaced before any remote operation is attempted.
var ErrUnsupported = errors.New("unsupported operating system")

// Family identifies a supported operating-system family.
type Family int

const (
	FamilyUnknown Family = iota
	FamilyDarwin
	FamilyLinux
)

func (f Family) String() string {
	switch f {
	case FamilyDarwin:
		return "darwin"
	case FamilyLinux:
		return "linux"
	default:
		return "unknown"
	}
}

// Detect maps the running operating system to a supported Family.
// Called once at startup; components receive the result by value rather
// than re-detecting per call.
func Detect() (Family, error) {
	return detect(runtime.GOOS)
}

func detect(goos string) (Family, error) {
	switch goos {
	case "darwin":
		return FamilyDarwin, nil
	case "linux":
		return FamilyLinux, nil
	default:
		return FamilyUnknown, fmt.Errorf("%w: %s", ErrUnsupported, goos)
	}
}
