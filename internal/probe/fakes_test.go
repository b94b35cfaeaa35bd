package probe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// fakeVerifier answers from a function and records every version it was asked about.
type fakeVerifier struct {
	outcome func(v Version, pkg *Package) (TrialOutcome, error)
	calls   []Version
}

func (f *fakeVerifier) Verify(_ context.Context, v Version, pkg *Package) (TrialOutcome, error) {
	f.calls = append(f.calls, v)
	return f.outcome(v, pkg)
}

// compatibleFrom succeeds on versions at or after index k of versions.
func compatibleFrom(versions []Version, k int) *fakeVerifier {
	index := make(map[Version]int, len(versions))
	for i, v := range versions {
		index[v] = i
	}
	return &fakeVerifier{outcome: func(v Version, _ *Package) (TrialOutcome, error) {
		if index[v] >= k {
			return succeeded(), nil
		}
		return failed(ReasonRuntimeBehaviorFailure), nil
	}}
}

// fakeTrialRunner returns canned raw results per phase.
type fakeTrialRunner struct {
	provisionOK bool
	results     map[Phase]RawTrialResult
	err         error
	phases      []Phase
}

func (f *fakeTrialRunner) Engine() string { return "fake" }

func (f *fakeTrialRunner) Provision(context.Context, Version) bool { return f.provisionOK }

func (f *fakeTrialRunner) RunTrial(_ context.Context, _ Version, _ *Package, phase Phase) (RawTrialResult, error) {
	f.phases = append(f.phases, phase)
	if f.err != nil {
		return RawTrialResult{}, f.err
	}
	return f.results[phase], nil
}

// fakeToolchain writes marker files and describes commands named after their step.
type fakeToolchain struct {
	installCmds  int
	manifestErr  error
	strictSeen   []bool
	exerciseSeen bool
}

func (f *fakeToolchain) Name() string { return "fake" }

func (f *fakeToolchain) WriteControl(dir string, _ Version) error {
	return os.WriteFile(filepath.Join(dir, "control"), []byte("ok"), 0o644)
}

func (f *fakeToolchain) ControlCommand(Version) Command { return Command{Name: "control"} }

func (f *fakeToolchain) WriteManifest(dir string, _ Version, _ Package, strict bool) error {
	f.strictSeen = append(f.strictSeen, strict)
	if f.manifestErr != nil {
		return f.manifestErr
	}
	return os.WriteFile(filepath.Join(dir, "manifest"), []byte("{}"), 0o644)
}

func (f *fakeToolchain) InstallCommands(Version, Package, bool) []Command {
	n := f.installCmds
	if n == 0 {
		n = 1
	}
	cmds := make([]Command, n)
	for i := range cmds {
		cmds[i] = Command{Name: "install"}
	}
	return cmds
}

func (f *fakeToolchain) WriteExercise(dir string, _ Package) error {
	f.exerciseSeen = true
	return os.WriteFile(filepath.Join(dir, "exercise"), []byte("ok"), 0o644)
}

func (f *fakeToolchain) ExerciseCommand(Version) Command { return Command{Name: "exercise"} }

func (f *fakeToolchain) Classify(output string) (FailureReason, string) {
	return GenericClassifier(output)
}

// resolvingToolchain also reports the installed release from a "resolve" command.
type resolvingToolchain struct {
	fakeToolchain
}

func (f *resolvingToolchain) ResolveCommand(Version, Package) Command { return Command{Name: "resolve"} }

func (f *resolvingToolchain) ParseResolved(_ Package, output string) string {
	return strings.TrimSpace(output)
}

type fakeProvisioner struct {
	ok    bool
	calls int
}

func (f *fakeProvisioner) EnsureAvailable(context.Context, Version) bool {
	f.calls++
	return f.ok
}

type commandCall struct {
	name    string
	dir     string
	timeout time.Duration
	dirSeen bool
}

// fakeCommands returns a canned result per command name and records each call.
type fakeCommands struct {
	results map[string]CommandResult
	err     error
	panics  bool
	calls   []commandCall
}

func (f *fakeCommands) Run(_ context.Context, cmd Command, dir string, timeout time.Duration) (CommandResult, error) {
	_, statErr := os.Stat(dir)
	f.calls = append(f.calls, commandCall{name: cmd.Name, dir: dir, timeout: timeout, dirSeen: statErr == nil})
	if f.panics {
		panic("command runner exploded")
	}
	if f.err != nil {
		return CommandResult{}, f.err
	}
	if res, ok := f.results[cmd.Name]; ok {
		return res, nil
	}
	return CommandResult{Stdout: SuccessMarker + "\n"}, nil
}

// recordingSink counts saves and can be made to fail.
type recordingSink struct {
	saved []Report
	err   error
}

func (s *recordingSink) Save(_ context.Context, r Report) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, r)
	return nil
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type fixedID string

func (id fixedID) Generate() string { return string(id) }

var errDiskFull = errors.New("disk full")
