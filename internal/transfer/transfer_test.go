package transfer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"gitlab.bluewillows.net/root/sshdeck/internal/platform"
	"gitlab.bluewillows.net/root/sshdeck/internal/profile"
	"gitlab.bluewillows.net/root/sshdeck/pkg/sshrun"
)

// fakeCopier records the copy it was asked to make and returns a
// scripted result.
type fakeCopier struct {
	result  *sshrun.CommandResult
	err     error
	calls   int
	lastSrc sshrun.Endpoint
	lastDst sshrun.Endpoint
}

func (f *fakeCopier) Copy(_ context.Context, _ sshrun.Target, src, dst sshrun.Endpoint) (*sshrun.CommandResult, error) {
	f.calls++
	f.lastSrc = src
	f.lastDst = dst
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func testProfile() profile.Profile {
	return profile.Profile{
		Username: "alice",
		Host:     "10.0.0.5",
		KeyPath:  "/home/alice/.ssh/id_rsa",
	}
}

func newEngine(t *testing.T, c sshrun.Copier) *Engine {
	t.Helper()
	e, err := New(c, platform.FamilyLinux)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return e
}

func TestNewUnsupportedPlatform(t *testing.T) {
	_, err := New(&fakeCopier{}, platform.FamilyUnknown)
	if !errors.Is(err, platform.ErrUnsupported) {
		t.Errorf("New() error = %v, want ErrUnsupported", err)
	}
}

func TestUpload(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "payload.bin")
	if err := os.WriteFile(src, make([]byte, 1234), 0o644); err != nil {
		t.Fatal(err)
	}

	copier := &fakeCopier{result: &sshrun.CommandResult{}}
	e := newEngine(t, copier)

	res, err := e.Upload(context.Background(), testProfile(), src, "/srv/payload.bin")
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if !res.Success {
		t.Error("Upload() result not successful")
	}
	if res.BytesHint != 1234 {
		t.Errorf("BytesHint = %d, want 1234", res.BytesHint)
	}
	if copier.lastSrc.Remote || !copier.lastDst.Remote {
		t.Errorf("endpoints src=%+v dst=%+v, want local source and remote destination", copier.lastSrc, copier.lastDst)
	}
}

func TestUploadDirectorySizesTree(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a"), make([]byte, 100), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "b"), make([]byte, 250), 0o644); err != nil {
		t.Fatal(err)
	}

	e := newEngine(t, &fakeCopier{result: &sshrun.CommandResult{}})

	res, err := e.Upload(context.Background(), testProfile(), dir, "/srv/tree")
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if res.BytesHint != 350 {
		t.Errorf("BytesHint = %d, want 350", res.BytesHint)
	}
}

func TestUploadMissingSource(t *testing.T) {
	copier := &fakeCopier{result: &sshrun.CommandResult{}}
	e := newEngine(t, copier)

	_, err := e.Upload(context.Background(), testProfile(), filepath.Join(t.TempDir(), "absent"), "/srv/absent")
	if !errors.Is(err, ErrInvalidPath) {
		t.Fatalf("Upload() error = %v, want ErrInvalidPath", err)
	}
	if copier.calls != 0 {
		t.Error("copier should not run for a missing local source")
	}
}

func TestUploadCopierFailure(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "payload")
	if err := os.WriteFile(src, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	e := newEngine(t, &fakeCopier{result: &sshrun.CommandResult{
		ExitCode: 1,
		Stderr:   "scp: /srv/payload: Permission denied",
	}})

	res, err := e.Upload(context.Background(), testProfile(), src, "/srv/payload")
	if !errors.Is(err, ErrTransfer) {
		t.Fatalf("Upload() error = %v, want ErrTransfer", err)
	}
	if res == nil || res.Success {
		t.Errorf("Upload() result = %+v, want unsuccessful result", res)
	}
	if res.Message == "" {
		t.Error("Upload() result carries no diagnostic message")
	}
}

func TestDownload(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "fetched.txt")

	// The fake copier writes nothing; simulate the landed file so the
	// size hint has something to measure.
	copier := &fakeCopier{result: &sshrun.CommandResult{}}
	e := newEngine(t, copier)
	if err := os.WriteFile(dst, make([]byte, 42), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := e.Download(context.Background(), testProfile(), "/srv/fetched.txt", dst)
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if !res.Success {
		t.Error("Download() result not successful")
	}
	if res.BytesHint != 42 {
		t.Errorf("BytesHint = %d, want 42", res.BytesHint)
	}
	if !copier.lastSrc.Remote || copier.lastDst.Remote {
		t.Errorf("endpoints src=%+v dst=%+v, want remote source and local destination", copier.lastSrc, copier.lastDst)
	}
}

func TestDownloadRemoteFailure(t *testing.T) {
	e := newEngine(t, &fakeCopier{result: &sshrun.CommandResult{
		ExitCode: 1,
		Stderr:   "scp: /srv/missing: No such file or directory",
	}})

	_, err := e.Download(context.Background(), testProfile(), "/srv/missing", filepath.Join(t.TempDir(), "out"))
	if !errors.Is(err, ErrTransfer) {
		t.Errorf("Download() error = %v, want ErrTransfer", err)
	}
}

func TestTransferValidation(t *testing.T) {
	e := newEngine(t, &fakeCopier{result: &sshrun.CommandResult{}})

	t.Run("empty profile", func(t *testing.T) {
		if _, err := e.Download(context.Background(), profile.Profile{}, "/a", "/b"); err == nil {
			t.Error("Download() expected error for empty profile")
		}
	})

	t.Run("empty paths", func(t *testing.T) {
		if _, err := e.Download(context.Background(), testProfile(), "", "/b"); !errors.Is(err, ErrInvalidPath) {
			t.Error("Download() expected ErrInvalidPath for empty remote path")
		}
		if _, err := e.Upload(context.Background(), testProfile(), "", "/b"); !errors.Is(err, ErrInvalidPath) {
			t.Error("Upload() expected ErrInvalidPath for empty local path")
		}
	})
}

func TestLocalTreeSize(t *testing.T) {
	t.Run("missing path is zero", func(t *testing.T) {
		if got := localTreeSize(filepath.Join(t.TempDir(), "nope")); got != 0 {
			t.Errorf("localTreeSize() = %d, want 0", got)
		}
	})

	t.Run("single file", func(t *testing.T) {
		p := filepath.Join(t.TempDir(), "f")
		if err := os.WriteFile(p, make([]byte, 7), 0o644); err != nil {
			t.Fatal(err)
		}
		if got := localTreeSize(p); got != 7 {
			t.Errorf("localTreeSize() = %d, want 7", got)
		}
	})
}
