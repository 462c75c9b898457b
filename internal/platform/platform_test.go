package platform

import (
	"errors"
	"testing"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		goos    string
		want    Family
		wantErr bool
	}{
		{goos: "darwin", want: FamilyDarwin},
		{goos: "linux", want: FamilyLinux},
		{goos: "windows", want: FamilyUnknown, wantErr: true},
		{goos: "plan9", want: FamilyUnknown, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			got, err := detect(tt.goos)
			if got != tt.want {
				t.Errorf("detect(%q) = %v, want %v", tt.goos, got, tt.want)
			}
			if (err != nil) != tt.wantErr {
				t.Errorf("detect(%q) error = %v, wantErr %v", tt.goos, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrUnsupported) {
				t.Errorf("detect(%q) error = %v, want ErrUnsupported", tt.goos, err)
			}
		})
	}
}

func TestFamilyString(t *testing.T) {
	tests := []struct {
		family Family
		want   string
	}{
		{FamilyDarwin, "darwin"},
		{FamilyLinux, "linux"},
		{FamilyUnknown, "unknown"},
	}

	for _, tt := range tests {
		if got := tt.family.String(); got != tt.want {
			t.Errorf("Family(%d).String() = %q, want %q", tt.family, got, tt.want)
		}
	}
}
