package gitx

import (
	"context"
	"runtime"
	"testing"
)

func TestRealRunner(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("tests rely on POSIX shell utilities")
	}
	r := NewRealRunner()
	ctx := context.Background()

	t.Run("captures stdout and exit code", func(t *testing.T) {
		res := r.Run(ctx, t.TempDir(), "sh", "-c", "echo hello")
		if !res.Ok() {
			t.Fatalf("expected success, got rc=%d stderr=%q", res.ReturnCode, res.Stderr)
		}
		if res.Stdout != "hello\n" {
			t.Errorf("stdout = %q, want %q", res.Stdout, "hello\n")
		}
	})

	t.Run("reports non-zero exit without error", func(t *testing.T) {
		res := r.Run(ctx, t.TempDir(), "sh", "-c", "echo oops >&2; exit 3")
		if res.ReturnCode != 3 {
			t.Errorf("rc = %d, want 3", res.ReturnCode)
		}
		if res.Stderr != "oops\n" {
			t.Errorf("stderr = %q, want %q", res.Stderr, "oops\n")
		}
	})

	t.Run("reports start failure", func(t *testing.T) {
		res := r.Run(ctx, t.TempDir(), "definitely-not-a-real-binary-xyz")
		if res.Ok() {
			t.Error("expected failure for missing binary")
		}
		if res.Stderr == "" {
			t.Error("expected error text in stderr")
		}
	})
}

func TestFakeRunner(t *testing.T) {
	f := NewFakeRunner()
	f.StubResult([]string{"git", "rev-parse", "HEAD"}, Result{Stdout: "abc123\n"})
	f.StubResult([]string{"git", "am"}, Result{ReturnCode: 1, Stderr: "patch failed"})

	ctx := context.Background()

	res := f.Run(ctx, "/repo", "git", "rev-parse", "HEAD")
	if res.Stdout != "abc123\n" {
		t.Errorf("stdout = %q, want stubbed value", res.Stdout)
	}

	res = f.Run(ctx, "/repo", "git", "am", "0001-fix.patch")
	if res.ReturnCode != 1 || res.Stderr != "patch failed" {
		t.Errorf("unexpected stub result: %+v", res)
	}

	res = f.Run(ctx, "/repo", "git", "status")
	if !res.Ok() {
		t.Error("unmatched call should succeed by default")
	}

	if len(f.Calls) != 3 {
		t.Fatalf("recorded %d calls, want 3", len(f.Calls))
	}
	lines := f.CommandLines()
	if lines[1] != "git am 0001-fix.patch" {
		t.Errorf("line = %q", lines[1])
	}
}

func TestFormat(t *testing.T) {
	got := Format("git", "commit", "-m", "fix the thing")
	want := `git commit -m "fix the thing"`
	if got != want {
		t.Errorf("Format = %q, want %q", got, want)
	}
}
