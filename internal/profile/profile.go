// Package profile holds SSH connection profiles and their on-disk store.
package profile

import (
	"fmt"
	"strings"

	"gitlab.bluewillows.net/root/sshdeck/pkg/sshrun"
)

// Profile identifies an SSH identity: who connects where, with which key.
// A Profile is built from current form state for each operation and is
// not mutated afterwards.
type Profile struct {
	Username string `json:"username"`
	Host     string `json:"host"`
	KeyPath  string `json:"key_path"`
}

// Validate checks that every field required for a remote operation is set.
func (p Profile) Validate() error {
	var missing []string

	if p.Username == "" {
		missing = append(missing, "username")
	}
	if p.Host == "" {
		missing = append(missing, "host")
	}
	if p.KeyPath == "" {
		missing = append(missing, "key_path")
	}

	if len(missing) > 0 {
		return fmt.Errorf("profile validation failed: %s required", strings.Join(missing, ", "))
	}

	return nil
}

// Equal reports field-for-field equality.
func (p Profile) Equal(other Profile) bool {
	return p == other
}

// Target converts the profile into the identity used by remote runners
// and copiers.
func (p Profile) Target() sshrun.Target {
	return sshrun.Target{
		User:    p.Username,
		Host:    p.Host,
		KeyPath: p.KeyPath,
	}
}
