package toolchain

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/TimurManjosov/horizons/internal/probe"
)

// npm reports engine mismatches with either marker depending on its version.
var nodeViolationMarkers = []string{"EBADENGINE", "Unsupported engine"}

var nodeWantedPattern = regexp.MustCompile(`wanted: \{[^}]+node[^}]+\}`)

const nodeViolationFallback = "Engine version mismatch"

// Node drives trials with nvm-managed Node.js and npm.
type Node struct {
	nvmDir   string
	classify probe.Classifier
}

// NewNode creates the Node toolchain. nvmDir must contain nvm.sh.
func NewNode(nvmDir string) *Node {
	return &Node{
		nvmDir:   nvmDir,
		classify: probe.MarkerClassifier(nodeViolationMarkers, nodeWantedPattern.FindString, nodeViolationFallback),
	}
}

func (n *Node) Name() string { return EngineNode }

func (n *Node) WriteControl(dir string, _ probe.Version) error {
	return writeFile(dir, "test.js", fmt.Sprintf("console.log(%q);\n", probe.SuccessMarker))
}

func (n *Node) ControlCommand(v probe.Version) probe.Command {
	return n.withNode(v, "node test.js")
}

func (n *Node) WriteManifest(dir string, _ probe.Version, pkg probe.Package, strict bool) error {
	manifest := map[string]any{
		"name":         "horizons-trial",
		"version":      "1.0.0",
		"private":      true,
		"dependencies": map[string]string{pkg.Name: "latest"},
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}
	if err := writeFile(dir, "package.json", string(data)+"\n"); err != nil {
		return err
	}
	if strict {
		return writeFile(dir, ".npmrc", "engine-strict=true\n")
	}
	return nil
}

func (n *Node) InstallCommands(v probe.Version, _ probe.Package, strict bool) []probe.Command {
	if strict {
		return []probe.Command{n.withNode(v, "npm install --no-audit --no-fund 2>&1")}
	}
	return []probe.Command{n.withNode(v, "npm install --silent --no-audit --no-fund 2>&1")}
}

func (n *Node) WriteExercise(dir string, pkg probe.Package) error {
	return writeFile(dir, "test.js", NodeExercise(pkg.Name))
}

func (n *Node) ExerciseCommand(v probe.Version) probe.Command {
	return n.withNode(v, "node test.js")
}

func (n *Node) Classify(output string) (probe.FailureReason, string) {
	return n.classify(output)
}

// ResolveCommand reads the installed package.json by path, since an exports map
// can hide it from require(name + "/package.json").
func (n *Node) ResolveCommand(v probe.Version, pkg probe.Package) probe.Command {
	script := fmt.Sprintf("require('./node_modules/%s/package.json').version", pkg.Name)
	return n.withNode(v, "node -p "+shellQuote(script))
}

func (n *Node) ParseResolved(_ probe.Package, output string) string {
	return lastLine(output)
}

// withNode runs script under bash after activating v with nvm.
func (n *Node) withNode(v probe.Version, script string) probe.Command {
	return probe.Command{
		Name: "bash",
		Args: []string{"-c", nvmPrelude(n.nvmDir) + " && nvm use " + shellQuote(string(v)) + " >/dev/null && " + script},
		Env:  []string{"NVM_DIR=" + n.nvmDir},
	}
}

func nvmPrelude(nvmDir string) string {
	return "source " + shellQuote(nvmDir+"/nvm.sh")
}

// nodeExercises use each package's primary API rather than only requiring it.
var nodeExercises = map[string]string{
	"express": `const express = require('express');
const app = express();
app.get('/', (req, res) => res.send('ok'));
console.log('TEST_OK');
`,
	"koa": `const Koa = require('koa');
const app = new Koa();
app.use(async ctx => { ctx.body = 'ok'; });
console.log('TEST_OK');
`,
	"lodash": `const _ = require('lodash');
const result = _.chunk(['a', 'b', 'c', 'd'], 2);
console.log(result.length === 2 ? 'TEST_OK' : 'FAIL');
`,
	"axios": `const axios = require('axios');
console.log(typeof axios.get === 'function' ? 'TEST_OK' : 'FAIL');
`,
	"uuid": `const { v4 } = require('uuid');
console.log(v4().length === 36 ? 'TEST_OK' : 'FAIL');
`,
	"chalk": `const chalk = require('chalk');
console.log(chalk.blue ? 'TEST_OK' : 'FAIL');
`,
	"commander": `const { Command } = require('commander');
const program = new Command();
program.option('-d, --debug');
console.log('TEST_OK');
`,
	"winston": `const winston = require('winston');
const logger = winston.createLogger({ transports: [new winston.transports.Console({ silent: true })] });
logger.info('probe');
console.log('TEST_OK');
`,
	"glob": `const { glob } = require('glob');
console.log(typeof glob === 'function' ? 'TEST_OK' : 'FAIL');
`,
	"fs-extra": `const fs = require('fs-extra');
console.log(typeof fs.ensureDir === 'function' ? 'TEST_OK' : 'FAIL');
`,
}

// NodeExercise returns the exercise program for a package, falling back to a
// plain require for packages without a dedicated one.
func NodeExercise(name string) string {
	if src, ok := nodeExercises[name]; ok {
		return src
	}
	return fmt.Sprintf("const pkg = require(%q);\nconsole.log(pkg ? 'TEST_OK' : 'FAIL');\n", name)
}

// NVMProvisioner installs Node versions with nvm on first use.
type NVMProvisioner struct {
	nvmDir   string
	commands probe.CommandRunner
	timeout  time.Duration
	cache    *provisionCache
	logger   zerolog.Logger
}

// NewNVMProvisioner creates a provisioner that shells out to nvm in nvmDir.
func NewNVMProvisioner(nvmDir string, commands probe.CommandRunner, timeout time.Duration, logger zerolog.Logger) *NVMProvisioner {
	return &NVMProvisioner{
		nvmDir:   nvmDir,
		commands: commands,
		timeout:  timeout,
		cache:    newProvisionCache(),
		logger:   logger,
	}
}

// EnsureAvailable implements probe.Provisioner.
func (p *NVMProvisioner) EnsureAvailable(ctx context.Context, v probe.Version) bool {
	return p.cache.ensure(ctx, v, p.logger, func() bool {
		if p.installed(ctx, v) {
			return true
		}
		p.logger.Info().Str("version", string(v)).Msgf("Installing Node %s...", v)
		res, err := p.commands.Run(ctx, p.nvm("nvm install "+shellQuote(string(v))), "", p.timeout)
		if err != nil {
			return false
		}
		if res.ExitCode != 0 || res.TimedOut {
			p.logger.Debug().Str("version", string(v)).Str("output", res.Combined()).Msg("nvm install failed")
			return false
		}
		return true
	})
}

func (p *NVMProvisioner) installed(ctx context.Context, v probe.Version) bool {
	res, err := p.commands.Run(ctx, p.nvm("nvm ls "+shellQuote(string(v))), "", 10*time.Second)
	if err != nil || res.ExitCode != 0 {
		return false
	}
	return strings.Contains(res.Stdout, strings.TrimPrefix(string(v), "v"))
}

func (p *NVMProvisioner) nvm(script string) probe.Command {
	return probe.Command{
		Name: "bash",
		Args: []string{"-c", nvmPrelude(p.nvmDir) + " && " + script},
		Env:  []string{"NVM_DIR=" + p.nvmDir},
	}
}
