// Package toolchain implements the engines horizons can drive: Node.js through
// nvm and npm, Go through golang.org/dl wrappers and go modules, and Python
// through uv.
package toolchain

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/TimurManjosov/horizons/internal/probe"
)

const (
	EngineNode   = "node"
	EngineGo     = "go"
	EnginePython = "python"
)

// Engines lists the supported engine names.
var Engines = []string{EngineNode, EngineGo, EnginePython}

// DefaultProvisionTimeout bounds a single runtime download.
const DefaultProvisionTimeout = 300 * time.Second

// Options configures an engine.
type Options struct {
	// NVMDir is the nvm installation directory (node only).
	NVMDir string
	// GOPATH locates golang.org/dl wrappers in $GOPATH/bin (go only).
	GOPATH string
	// HostGo is the go binary used to install wrappers; defaults to "go".
	HostGo string
	// UV is the uv binary (python only); defaults to "uv".
	UV string

	Commands         probe.CommandRunner
	ProvisionTimeout time.Duration
	Logger           zerolog.Logger
}

// Engine bundles what the runner needs for one ecosystem.
type Engine struct {
	Toolchain   probe.Toolchain
	Provisioner probe.Provisioner
}

// New returns the toolchain and provisioner for engine.
func New(engine string, opts Options) (Engine, error) {
	if opts.Commands == nil {
		opts.Commands = probe.NewExecRunner()
	}
	if opts.ProvisionTimeout <= 0 {
		opts.ProvisionTimeout = DefaultProvisionTimeout
	}

	switch engine {
	case EngineNode:
		if opts.NVMDir == "" {
			opts.NVMDir = DefaultNVMDir()
		}
		tc := NewNode(opts.NVMDir)
		return Engine{
			Toolchain:   tc,
			Provisioner: NewNVMProvisioner(opts.NVMDir, opts.Commands, opts.ProvisionTimeout, opts.Logger),
		}, nil
	case EngineGo:
		if opts.GOPATH == "" {
			opts.GOPATH = DefaultGOPATH()
		}
		if opts.HostGo == "" {
			opts.HostGo = "go"
		}
		tc := NewGo(opts.GOPATH)
		return Engine{
			Toolchain:   tc,
			Provisioner: NewGoDLProvisioner(opts.GOPATH, opts.HostGo, opts.Commands, opts.ProvisionTimeout, opts.Logger),
		}, nil
	case EnginePython:
		if opts.UV == "" {
			opts.UV = "uv"
		}
		return Engine{
			Toolchain:   NewPython(opts.UV),
			Provisioner: NewUVProvisioner(opts.UV, opts.Commands, opts.ProvisionTimeout, opts.Logger),
		}, nil
	default:
		return Engine{}, fmt.Errorf("unsupported engine: %s (expected one of %s)", engine, strings.Join(Engines, ", "))
	}
}

// IsSupported reports whether engine names a known toolchain.
func IsSupported(engine string) bool {
	for _, e := range Engines {
		if e == engine {
			return true
		}
	}
	return false
}

// DefaultNVMDir is $NVM_DIR, else ~/.config/nvm.
func DefaultNVMDir() string {
	if dir := os.Getenv("NVM_DIR"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "nvm")
}

// DefaultGOPATH is $GOPATH, else ~/go.
func DefaultGOPATH() string {
	if gopath := os.Getenv("GOPATH"); gopath != "" {
		return gopath
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "go")
}

// shellQuote wraps s in single quotes for bash -c.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// lastLine returns the last non-blank line of output, trimmed.
func lastLine(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

func writeFile(dir, name, content string) error {
	return os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644)
}
