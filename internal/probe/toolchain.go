package probe

import (
	"context"
	"strings"
)

// SuccessMarker is printed by control and exercise programs when they work.
const SuccessMarker = "TEST_OK"

// Provisioner makes a runtime version available on this host.
// A false result is terminal for the trial; it is never retried.
type Provisioner interface {
	EnsureAvailable(ctx context.Context, v Version) bool
}

// Toolchain describes how one runtime ecosystem lays out and drives a trial.
// Implementations only write files and describe commands; running them is the
// Runner's job.
type Toolchain interface {
	// Name identifies the engine ("node", "go", "python").
	Name() string

	// WriteControl writes a dependency-free program that prints SuccessMarker.
	WriteControl(dir string, v Version) error
	ControlCommand(v Version) Command

	// WriteManifest writes the dependency manifest pinning pkg to its latest
	// published revision. strict enables declared-constraint enforcement.
	WriteManifest(dir string, v Version, pkg Package, strict bool) error
	// InstallCommands are run in order; the first failing one ends the install.
	InstallCommands(v Version, pkg Package, strict bool) []Command

	// WriteExercise writes a program that uses pkg's primary API and prints
	// SuccessMarker on success.
	WriteExercise(dir string, pkg Package) error
	ExerciseCommand(v Version) Command

	// Classify inspects the output of a failed strict install.
	Classify(output string) (FailureReason, string)
}

// VersionResolver is implemented by toolchains that can report which release
// of a package an install selected. ResolveCommand runs in the behaviour
// workspace once the exercise has passed; ParseResolved returns "" when the
// output names no release.
type VersionResolver interface {
	ResolveCommand(v Version, pkg Package) Command
	ParseResolved(pkg Package, output string) string
}

// Classifier maps the output of a failed strict install to a failure reason and,
// for declared-constraint violations, a best-effort message. It must tolerate
// output that matches nothing by returning ReasonInstallFailedGeneric.
type Classifier func(output string) (FailureReason, string)

// GenericClassifier never recognises a declared constraint.
func GenericClassifier(string) (FailureReason, string) {
	return ReasonInstallFailedGeneric, ""
}

// MarkerClassifier builds a Classifier from violation markers and an extractor.
// When a marker matches but extract finds nothing, fallback is used as the message.
func MarkerClassifier(markers []string, extract func(string) string, fallback string) Classifier {
	return func(output string) (FailureReason, string) {
		for _, m := range markers {
			if !strings.Contains(output, m) {
				continue
			}
			msg := ""
			if extract != nil {
				msg = extract(output)
			}
			if msg == "" {
				msg = fallback
			}
			return ReasonDeclaredConstraintViolation, msg
		}
		return ReasonInstallFailedGeneric, ""
	}
}
