//go:build unix

package probe

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func sh(script string) Command {
	return Command{Name: "sh", Args: []string{"-c", script}}
}

func TestExecRunnerCapturesOutput(t *testing.T) {
	res, err := NewExecRunner().Run(context.Background(), sh("echo hello; echo oops >&2"), t.TempDir(), 10*time.Second)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.ExitCode != 0 || res.TimedOut {
		t.Errorf("Unexpected result %+v", res)
	}
	if res.Stdout != "hello\n" || res.Stderr != "oops\n" {
		t.Errorf("Unexpected output stdout=%q stderr=%q", res.Stdout, res.Stderr)
	}
	if res.Combined() != "hello\n\noops\n" {
		t.Errorf("Unexpected combined output %q", res.Combined())
	}
}

func TestExecRunnerExitCode(t *testing.T) {
	res, err := NewExecRunner().Run(context.Background(), sh("exit 3"), t.TempDir(), 10*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if res.ExitCode != 3 {
		t.Errorf("Expected exit code 3, got %d", res.ExitCode)
	}
}

func TestExecRunnerEnvAndDir(t *testing.T) {
	dir := t.TempDir()
	cmd := sh(`echo "$HORIZONS_TEST_VALUE"; ls`)
	cmd.Env = []string{"HORIZONS_TEST_VALUE=42"}

	if _, err := NewExecRunner().Run(context.Background(), sh("touch marker"), dir, 10*time.Second); err != nil {
		t.Fatal(err)
	}
	res, err := NewExecRunner().Run(context.Background(), cmd, dir, 10*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if res.Stdout != "42\nmarker\n" {
		t.Errorf("Unexpected output %q", res.Stdout)
	}
}

func TestExecRunnerTimeout(t *testing.T) {
	start := time.Now()
	res, err := NewExecRunner().Run(context.Background(), sh("echo started; sleep 10"), t.TempDir(), 200*time.Millisecond)
	if err != nil {
		t.Fatalf("A timeout must not be an error, got %v", err)
	}
	if !res.TimedOut || res.ExitCode == 0 {
		t.Errorf("Expected timed-out non-zero result, got %+v", res)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Process group was not killed promptly (%v)", elapsed)
	}
	if !strings.Contains(res.Stdout, "started") {
		t.Errorf("Expected partial output to be kept, got %q", res.Stdout)
	}
}

func TestExecRunnerDetachedDescendant(t *testing.T) {
	if _, err := exec.LookPath("setsid"); err != nil {
		t.Skip("setsid not available")
	}
	saved := waitDelay
	waitDelay = 200 * time.Millisecond
	t.Cleanup(func() { waitDelay = saved })

	tests := []struct {
		name     string
		script   string
		exitCode int
	}{
		{"successful command", "setsid sleep 5 & echo done", 0},
		{"failing command", "setsid sleep 5 & echo done; exit 4", 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := time.Now()
			res, err := NewExecRunner().Run(context.Background(), sh(tt.script), t.TempDir(), time.Minute)
			if err != nil {
				t.Fatalf("Run failed: %v", err)
			}
			if elapsed := time.Since(start); elapsed > 3*time.Second {
				t.Errorf("Expected Run to return once the command exited, took %v", elapsed)
			}
			if res.TimedOut {
				t.Error("Expected no timeout")
			}
			if res.ExitCode != tt.exitCode {
				t.Errorf("Expected exit code %d, got %d", tt.exitCode, res.ExitCode)
			}
			if !strings.Contains(res.Stdout, "done") {
				t.Errorf("Expected output before exit to be kept, got %q", res.Stdout)
			}
		})
	}
}

func TestExecRunnerMissingBinary(t *testing.T) {
	res, err := NewExecRunner().Run(context.Background(), Command{Name: "horizons-no-such-binary"}, t.TempDir(), time.Second)
	if err != nil {
		t.Fatalf("A missing binary must not be an error, got %v", err)
	}
	if res.ExitCode != 127 || !strings.Contains(res.Stderr, "horizons-no-such-binary") {
		t.Errorf("Unexpected result %+v", res)
	}
}

func TestExecRunnerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewExecRunner().Run(ctx, sh("true"), t.TempDir(), time.Second); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}

	ctx, cancel = context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := NewExecRunner().Run(ctx, sh("sleep 10"), t.TempDir(), time.Minute)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected context.DeadlineExceeded, got %v", err)
	}
}

func TestLimitedWriter(t *testing.T) {
	var buf bytes.Buffer
	w := &limitedWriter{w: &buf, max: 4}

	n, err := w.Write([]byte("hello"))
	if n != 5 || err != nil {
		t.Errorf("Expected full write to be reported, got %d %v", n, err)
	}
	_, _ = w.Write([]byte("more"))
	if buf.String() != "hell" {
		t.Errorf("Expected truncated output, got %q", buf.String())
	}
}

func TestCommandString(t *testing.T) {
	if got := sh("npm install").String(); got != "sh -c npm install" {
		t.Errorf("Unexpected %q", got)
	}
}
