package toolchain

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/TimurManjosov/horizons/internal/probe"
)

// uv explains Requires-Python conflicts in its resolver report; pip (used for
// the unenforced install) has its own wording.
var pythonViolationMarkers = []string{"does not satisfy Python", "Requires-Python", "requires a different Python"}

var pythonWantedPattern = regexp.MustCompile(`Python ?(>=|>|~=|==|!=|<=|<) ?[0-9][0-9.*]*`)

const pythonViolationFallback = "Python version mismatch"

// Each trial gets its own virtual environment inside the workspace.
const venvDir = ".venv"

var venvPython = filepath.Join(venvDir, "bin", "python")

// pythonEnv keeps uv output free of colour codes so markers match.
var pythonEnv = []string{"NO_COLOR=1"}

// Python drives trials with uv-managed interpreters. The strict install goes
// through uv, which refuses releases whose Requires-Python excludes the
// interpreter; the unenforced one goes through pip with --ignore-requires-python.
type Python struct {
	uv       string
	classify probe.Classifier
}

// NewPython creates the Python toolchain around the uv binary.
func NewPython(uv string) *Python {
	return &Python{
		uv:       uv,
		classify: probe.MarkerClassifier(pythonViolationMarkers, pythonWantedPattern.FindString, pythonViolationFallback),
	}
}

func (p *Python) Name() string { return EnginePython }

func (p *Python) WriteControl(dir string, _ probe.Version) error {
	return writeFile(dir, "test.py", fmt.Sprintf("print(%q)\n", probe.SuccessMarker))
}

func (p *Python) ControlCommand(v probe.Version) probe.Command {
	return p.uvCmd("run", "--no-project", "--python", string(v), "python", "test.py")
}

// WriteManifest writes requirements.txt. Enforcement is a property of the
// installer, not the file, so both phases get the same one.
func (p *Python) WriteManifest(dir string, _ probe.Version, pkg probe.Package, _ bool) error {
	return writeFile(dir, "requirements.txt", pkg.Name+pkg.Spec+"\n")
}

func (p *Python) InstallCommands(v probe.Version, _ probe.Package, strict bool) []probe.Command {
	if strict {
		return []probe.Command{
			p.uvCmd("venv", "--python", string(v), venvDir),
			p.uvCmd("pip", "install", "--python", venvPython, "-r", "requirements.txt"),
		}
	}
	return []probe.Command{
		p.uvCmd("venv", "--seed", "--python", string(v), venvDir),
		{
			Name: venvPython,
			Args: []string{"-m", "pip", "install", "--disable-pip-version-check", "--no-input", "--ignore-requires-python", "-r", "requirements.txt"},
			Env:  pythonEnv,
		},
	}
}

func (p *Python) WriteExercise(dir string, pkg probe.Package) error {
	return writeFile(dir, "test.py", PythonExercise(pkg))
}

func (p *Python) ExerciseCommand(probe.Version) probe.Command {
	return probe.Command{Name: venvPython, Args: []string{"test.py"}, Env: pythonEnv}
}

func (p *Python) Classify(output string) (probe.FailureReason, string) {
	return p.classify(output)
}

func (p *Python) ResolveCommand(_ probe.Version, pkg probe.Package) probe.Command {
	return p.uvCmd("pip", "show", "--python", venvPython, pkg.Name)
}

// ParseResolved reads the "Version:" line of pip show output.
func (p *Python) ParseResolved(_ probe.Package, output string) string {
	for _, line := range strings.Split(output, "\n") {
		if v, ok := strings.CutPrefix(line, "Version:"); ok {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func (p *Python) uvCmd(args ...string) probe.Command {
	return probe.Command{Name: p.uv, Args: args, Env: pythonEnv}
}

// PythonModule is the module an exercise imports: Import when set, else the
// distribution name normalised the way most projects name their package.
func PythonModule(pkg probe.Package) string {
	if pkg.Import != "" {
		return pkg.Import
	}
	return strings.ReplaceAll(strings.ToLower(pkg.Name), "-", "_")
}

var pythonExercises = map[string]string{
	"requests": `import requests
req = requests.Request("GET", "https://example.com/search", params={"q": "x"}).prepare()
print("TEST_OK" if req.url.endswith("q=x") else "FAIL")
`,
	"click": `import click

@click.command()
@click.option("--name", default="world")
def hello(name):
    pass

print("TEST_OK" if hello.name == "hello" else "FAIL")
`,
	"pyyaml": `import yaml
print("TEST_OK" if yaml.safe_load(yaml.safe_dump({"a": 1})) == {"a": 1} else "FAIL")
`,
	"packaging": `from packaging.version import Version
print("TEST_OK" if Version("1.10") > Version("1.9") else "FAIL")
`,
	"jinja2": `from jinja2 import Template
print("TEST_OK" if Template("{{ x }}").render(x=1) == "1" else "FAIL")
`,
	"numpy": `import numpy as np
print("TEST_OK" if int(np.arange(4).sum()) == 6 else "FAIL")
`,
	"python-dateutil": `from dateutil import parser
print("TEST_OK" if parser.parse("2024-01-02").day == 2 else "FAIL")
`,
	"six": `import six
print("TEST_OK" if six.PY3 else "FAIL")
`,
}

// PythonExercise returns the exercise program for a package, falling back to
// a plain import.
func PythonExercise(pkg probe.Package) string {
	if src, ok := pythonExercises[pkg.Name]; ok {
		return src
	}
	return fmt.Sprintf("import %s\nprint(%q)\n", PythonModule(pkg), probe.SuccessMarker)
}

// UVProvisioner installs Python versions with "uv python install".
type UVProvisioner struct {
	uv       string
	commands probe.CommandRunner
	timeout  time.Duration
	cache    *provisionCache
	logger   zerolog.Logger
}

// NewUVProvisioner creates a provisioner that shells out to uv.
func NewUVProvisioner(uv string, commands probe.CommandRunner, timeout time.Duration, logger zerolog.Logger) *UVProvisioner {
	return &UVProvisioner{
		uv:       uv,
		commands: commands,
		timeout:  timeout,
		cache:    newProvisionCache(),
		logger:   logger,
	}
}

// EnsureAvailable implements probe.Provisioner.
func (p *UVProvisioner) EnsureAvailable(ctx context.Context, v probe.Version) bool {
	return p.cache.ensure(ctx, v, p.logger, func() bool {
		find := probe.Command{Name: p.uv, Args: []string{"python", "find", string(v)}, Env: pythonEnv}
		if res, err := p.commands.Run(ctx, find, "", 10*time.Second); err == nil && res.ExitCode == 0 && !res.TimedOut {
			return true
		}
		p.logger.Info().Str("version", string(v)).Msgf("Installing Python %s...", v)
		install := probe.Command{Name: p.uv, Args: []string{"python", "install", string(v)}, Env: pythonEnv}
		res, err := p.commands.Run(ctx, install, "", p.timeout)
		if err != nil {
			return false
		}
		if res.ExitCode != 0 || res.TimedOut {
			p.logger.Debug().Str("version", string(v)).Str("output", res.Combined()).Msg("uv python install failed")
			return false
		}
		return true
	})
}
