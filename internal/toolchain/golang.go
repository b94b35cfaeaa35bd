package toolchain

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/rs/zerolog"

	"github.com/TimurManjosov/horizons/internal/probe"
)

// Go 1.21+ refuses modules whose go directive is newer than itself; older
// releases build anyway and only add a note when compilation fails.
var goViolationMarkers = []string{"requires go >=", "module requires Go"}

var goWantedPattern = regexp.MustCompile(`(?i)requires go >?=? ?[0-9][0-9a-z.]*`)

const goViolationFallback = "Go version mismatch"

// goEnv keeps each wrapper on its own toolchain and in module mode.
var goEnv = []string{"GOTOOLCHAIN=local", "GO111MODULE=on"}

// Go drives trials with golang.org/dl wrappers (go1.21.0, go1.13, ...).
type Go struct {
	gopath   string
	classify probe.Classifier
}

// NewGo creates the Go toolchain. Wrappers are looked up in gopath/bin.
func NewGo(gopath string) *Go {
	return &Go{
		gopath:   gopath,
		classify: probe.MarkerClassifier(goViolationMarkers, goWantedPattern.FindString, goViolationFallback),
	}
}

func (g *Go) Name() string { return EngineGo }

func (g *Go) WriteControl(dir string, v probe.Version) error {
	if err := writeFile(dir, "go.mod", goMod("control", v)); err != nil {
		return err
	}
	return writeFile(dir, "main.go", goControlProgram)
}

func (g *Go) ControlCommand(v probe.Version) probe.Command {
	return g.goCmd(v, "run", ".")
}

// WriteManifest writes go.mod; the non-strict manifest also carries the
// exercise program so that tidy can see which package is imported.
func (g *Go) WriteManifest(dir string, v probe.Version, pkg probe.Package, strict bool) error {
	if err := writeFile(dir, "go.mod", goMod("trial", v)); err != nil {
		return err
	}
	if strict {
		return nil
	}
	return g.WriteExercise(dir, pkg)
}

func (g *Go) InstallCommands(v probe.Version, pkg probe.Package, strict bool) []probe.Command {
	if strict {
		return []probe.Command{g.goCmd(v, "get", pkg.ImportPath()+"@latest")}
	}
	return []probe.Command{g.goCmd(v, tidyArgs(v)...)}
}

// tidyErrorsFlagSince is the first release whose "go mod tidy" accepts -e.
var tidyErrorsFlagSince = semver.MustParse("1.16.0")

// tidyArgs keeps tidy going past unresolvable imports where the wrapper
// supports it. Unparseable versions are assumed to be recent.
func tidyArgs(v probe.Version) []string {
	parsed, err := probe.ParseVersion(v)
	if err == nil && parsed.LessThan(tidyErrorsFlagSince) {
		return []string{"mod", "tidy"}
	}
	return []string{"mod", "tidy", "-e"}
}

func (g *Go) WriteExercise(dir string, pkg probe.Package) error {
	return writeFile(dir, "main.go", GoExercise(pkg.ImportPath()))
}

func (g *Go) ExerciseCommand(v probe.Version) probe.Command {
	return g.goCmd(v, "run", ".")
}

func (g *Go) Classify(output string) (probe.FailureReason, string) {
	return g.classify(output)
}

// ResolveCommand lists the module version tidy selected.
func (g *Go) ResolveCommand(v probe.Version, pkg probe.Package) probe.Command {
	return g.goCmd(v, "list", "-m", pkg.Name)
}

// ParseResolved takes the version from "module version [=> replacement]".
func (g *Go) ParseResolved(pkg probe.Package, output string) string {
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[0] == pkg.Name {
			return fields[1]
		}
	}
	return ""
}

func (g *Go) goCmd(v probe.Version, args ...string) probe.Command {
	return probe.Command{Name: goWrapperPath(g.gopath, v), Args: args, Env: goEnv}
}

func goWrapperPath(gopath string, v probe.Version) string {
	return filepath.Join(gopath, "bin", "go"+string(v))
}

func goMod(module string, v probe.Version) string {
	return fmt.Sprintf("module %s\n\ngo %s\n", module, v)
}

const goControlProgram = `package main

import "fmt"

func main() {
	fmt.Println("TEST_OK")
}
`

// goExercises call into each module's API; the rest get a blank import,
// which still proves the package compiles on the runtime under test.
var goExercises = map[string]string{
	"github.com/google/uuid": `package main

import (
	"fmt"

	"github.com/google/uuid"
)

func main() {
	if len(uuid.New().String()) == 36 {
		fmt.Println("TEST_OK")
	}
}
`,
	"gopkg.in/yaml.v3": `package main

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

func main() {
	out, err := yaml.Marshal(map[string]int{"a": 1})
	if err == nil && len(out) > 0 {
		fmt.Println("TEST_OK")
	}
}
`,
	"github.com/pkg/errors": `package main

import (
	"fmt"

	"github.com/pkg/errors"
)

func main() {
	if errors.Wrap(errors.New("inner"), "outer").Error() == "outer: inner" {
		fmt.Println("TEST_OK")
	}
}
`,
	"golang.org/x/sync/errgroup": `package main

import (
	"fmt"

	"golang.org/x/sync/errgroup"
)

func main() {
	var g errgroup.Group
	g.Go(func() error { return nil })
	if g.Wait() == nil {
		fmt.Println("TEST_OK")
	}
}
`,
	"github.com/go-chi/chi/v5": `package main

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func main() {
	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {})
	fmt.Println("TEST_OK")
}
`,
	"github.com/spf13/cobra": `package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func main() {
	cmd := &cobra.Command{Use: "probe", Run: func(*cobra.Command, []string) {}}
	cmd.SetArgs(nil)
	if cmd.Execute() == nil {
		fmt.Println("TEST_OK")
	}
}
`,
}

// GoExercise returns the exercise program for an import path.
func GoExercise(importPath string) string {
	if src, ok := goExercises[importPath]; ok {
		return src
	}
	return fmt.Sprintf(`package main

import (
	"fmt"

	_ %q
)

func main() {
	fmt.Println("TEST_OK")
}
`, importPath)
}

// GoDLProvisioner installs golang.org/dl wrappers and downloads their SDKs.
type GoDLProvisioner struct {
	gopath   string
	hostGo   string
	commands probe.CommandRunner
	timeout  time.Duration
	cache    *provisionCache
	logger   zerolog.Logger
}

// NewGoDLProvisioner creates a provisioner using hostGo to install wrappers.
func NewGoDLProvisioner(gopath, hostGo string, commands probe.CommandRunner, timeout time.Duration, logger zerolog.Logger) *GoDLProvisioner {
	return &GoDLProvisioner{
		gopath:   gopath,
		hostGo:   hostGo,
		commands: commands,
		timeout:  timeout,
		cache:    newProvisionCache(),
		logger:   logger,
	}
}

// EnsureAvailable implements probe.Provisioner.
func (p *GoDLProvisioner) EnsureAvailable(ctx context.Context, v probe.Version) bool {
	return p.cache.ensure(ctx, v, p.logger, func() bool {
		wrapper := goWrapperPath(p.gopath, v)
		if _, err := os.Stat(wrapper); err != nil {
			p.logger.Info().Str("version", string(v)).Msgf("Installing Go %s wrapper...", v)
			install := probe.Command{
				Name: p.hostGo,
				Args: []string{"install", "golang.org/dl/go" + string(v) + "@latest"},
				Env:  []string{"GOPATH=" + p.gopath, "GOBIN=" + filepath.Join(p.gopath, "bin")},
			}
			if !p.run(ctx, v, install) {
				return false
			}
		}
		// download is a no-op when the SDK is already present.
		return p.run(ctx, v, probe.Command{Name: wrapper, Args: []string{"download"}})
	})
}

func (p *GoDLProvisioner) run(ctx context.Context, v probe.Version, cmd probe.Command) bool {
	res, err := p.commands.Run(ctx, cmd, "", p.timeout)
	if err != nil {
		return false
	}
	if res.ExitCode != 0 || res.TimedOut {
		p.logger.Debug().Str("version", string(v)).Str("cmd", cmd.String()).Str("output", res.Combined()).Msg("go provisioning step failed")
		return false
	}
	return true
}
