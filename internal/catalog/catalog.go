// Package catalog holds the package lists and candidate versions an experiment
// runs against, either compiled in per engine or loaded from a YAML file.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/TimurManjosov/horizons/internal/probe"
	"github.com/TimurManjosov/horizons/internal/toolchain"
	"github.com/TimurManjosov/horizons/internal/validation"
)

// ErrInvalidCatalog wraps every catalog validation failure.
var ErrInvalidCatalog = errors.New("invalid catalog")

// Catalog is what one experiment tests: packages in order, against ascending versions.
type Catalog struct {
	Engine   string          `yaml:"engine" json:"engine"`
	Versions []probe.Version `yaml:"versions" json:"versions"`
	Packages []probe.Package `yaml:"packages" json:"packages"`
}

// Default returns a copy of the compiled-in catalog for engine.
func Default(engine string) (Catalog, error) {
	var c Catalog
	switch engine {
	case toolchain.EngineNode:
		c = Catalog{Engine: engine, Versions: nodeVersions, Packages: nodePackages}
	case toolchain.EngineGo:
		c = Catalog{Engine: engine, Versions: goVersions, Packages: goPackages}
	case toolchain.EnginePython:
		c = Catalog{Engine: engine, Versions: pythonVersions, Packages: pythonPackages}
	default:
		return Catalog{}, fmt.Errorf("%w: no built-in catalog for engine %q", ErrInvalidCatalog, engine)
	}
	return c.clone(), nil
}

// Load reads a catalog file. Versions or packages left out of the file are
// filled from the engine's compiled-in catalog.
func Load(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Catalog{}, fmt.Errorf("failed to parse catalog file: %w", err)
	}
	if c.Engine == "" {
		c.Engine = toolchain.EngineNode
	}

	base, err := Default(c.Engine)
	if err != nil {
		return Catalog{}, err
	}
	if len(c.Versions) == 0 {
		c.Versions = base.Versions
	}
	if len(c.Packages) == 0 {
		c.Packages = base.Packages
	}

	if err := c.Validate(); err != nil {
		return Catalog{}, err
	}
	return c, nil
}

// Resolve returns the catalog at path when set, otherwise the built-in one for engine.
// A file whose engine disagrees with an explicitly requested engine is rejected.
func Resolve(engine, path string) (Catalog, error) {
	if path == "" {
		return Default(engine)
	}
	c, err := Load(path)
	if err != nil {
		return Catalog{}, err
	}
	if engine != "" && c.Engine != engine {
		return Catalog{}, fmt.Errorf("%w: %s is a %s catalog, not %s", ErrInvalidCatalog, path, c.Engine, engine)
	}
	return c, nil
}

// Save writes c as YAML, creating parent directories.
func Save(path string, c Catalog) error {
	if err := c.Validate(); err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create catalog directory: %w", err)
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write catalog file: %w", err)
	}
	return nil
}

// Init writes the built-in catalog for engine to path, refusing to overwrite.
func Init(path, engine string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("catalog file %s already exists", path)
	}
	c, err := Default(engine)
	if err != nil {
		return err
	}
	return Save(path, c)
}

// Validate checks the engine, the version list and every package.
func (c Catalog) Validate() error {
	result := validation.ValidateEngine(c.Engine, toolchain.Engines)
	if result.Valid {
		result.Merge(validation.ValidateVersions(c.Versions))
		result.Merge(validation.ValidatePackages(c.Engine, c.Packages))
	}
	if err := result.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}
	return nil
}

// Find looks a package up by name.
func (c Catalog) Find(name string) (probe.Package, bool) {
	for _, p := range c.Packages {
		if p.Name == name {
			return p, true
		}
	}
	return probe.Package{}, false
}

// Lookup returns the catalog entry for name, or an ad-hoc descriptor with no
// declared constraint when the catalog does not list it.
func (c Catalog) Lookup(name string) (pkg probe.Package, known bool) {
	if p, ok := c.Find(name); ok {
		return p, true
	}
	return probe.Package{Name: name}, false
}

func (c Catalog) clone() Catalog {
	return Catalog{
		Engine:   c.Engine,
		Versions: append([]probe.Version(nil), c.Versions...),
		Packages: append([]probe.Package(nil), c.Packages...),
	}
}
