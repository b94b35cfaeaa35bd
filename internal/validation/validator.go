// Package validation provides validation rules for catalogs and probe settings.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/TimurManjosov/horizons/internal/probe"
)

const (
	// MaxNPMNameLength is npm's limit for package names
	MaxNPMNameLength = 214
	// MaxModulePathLength bounds Go module paths
	MaxModulePathLength = 256
	// MaxDistributionNameLength bounds Python distribution names
	MaxDistributionNameLength = 128
	// MaxCatalogSize bounds how many packages one experiment may test
	MaxCatalogSize = 500
)

// npmNamePattern matches lower-case npm names, optionally scoped (@scope/name)
var npmNamePattern = regexp.MustCompile(`^(@[a-z0-9-~][a-z0-9-._~]*/)?[a-z0-9-~][a-z0-9-._~]*$`)

// modulePathPattern matches Go module and import paths whose first element is a host
var modulePathPattern = regexp.MustCompile(`^[a-z0-9-]+(\.[a-z0-9-]+)+(/[A-Za-z0-9._~+-]+)*$`)

// distributionNamePattern matches PEP 508 distribution names
var distributionNamePattern = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9._-]*[A-Za-z0-9])?$`)

// pythonModulePattern matches dotted Python module names
var pythonModulePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// versionSpecPattern matches a comma-separated PEP 440 specifier set such as ">=2.0,<3"
var versionSpecPattern = regexp.MustCompile(`^(~=|===|==|!=|<=|>=|<|>) ?[A-Za-z0-9.*+!_-]+( ?, ?(~=|===|==|!=|<=|>=|<|>) ?[A-Za-z0-9.*+!_-]+)*$`)

// ValidationResult holds the result of validation
type ValidationResult struct {
	Valid  bool
	Errors map[string]string
}

// NewValidationResult creates a new validation result
func NewValidationResult() *ValidationResult {
	return &ValidationResult{
		Valid:  true,
		Errors: make(map[string]string),
	}
}

// AddError adds a field error and marks the result as invalid
func (v *ValidationResult) AddError(field, message string) {
	v.Valid = false
	v.Errors[field] = message
}

// Merge combines another validation result into this one
func (v *ValidationResult) Merge(other *ValidationResult) {
	if other == nil {
		return
	}
	for field, message := range other.Errors {
		v.AddError(field, message)
	}
}

// Err returns nil for a valid result, otherwise one error listing every field
// in a stable order.
func (v *ValidationResult) Err() error {
	if v.Valid {
		return nil
	}
	fields := make([]string, 0, len(v.Errors))
	for field := range v.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, v.Errors[field]))
	}
	return errors.New(strings.Join(parts, "; "))
}

// ValidateEngine validates an engine name against the supported set
func ValidateEngine(engine string, supported []string) *ValidationResult {
	result := NewValidationResult()
	engine = strings.TrimSpace(engine)

	if engine == "" {
		result.AddError("engine", "Engine is required")
		return result
	}

	for _, s := range supported {
		if s == engine {
			return result
		}
	}
	result.AddError("engine", fmt.Sprintf("Engine must be one of: %s", strings.Join(supported, ", ")))
	return result
}

// ValidatePackageName validates a package name for the given engine
func ValidatePackageName(engine, name string) *ValidationResult {
	result := NewValidationResult()
	name = strings.TrimSpace(name)

	if name == "" {
		result.AddError("name", "Package name is required")
		return result
	}

	if name == probe.ControlName {
		result.AddError("name", "Package name "+probe.ControlName+" is reserved for the control case")
		return result
	}

	switch engine {
	case "node":
		if utf8.RuneCountInString(name) > MaxNPMNameLength {
			result.AddError("name", "Package name must not exceed 214 characters")
			return result
		}
		if !npmNamePattern.MatchString(name) {
			result.AddError("name", "Package name must be a lower-case npm name, optionally scoped")
		}
	case "go":
		if utf8.RuneCountInString(name) > MaxModulePathLength {
			result.AddError("name", "Module path must not exceed 256 characters")
			return result
		}
		if !modulePathPattern.MatchString(name) {
			result.AddError("name", "Module path must start with a host name, e.g. github.com/owner/repo")
		}
	case "python":
		if utf8.RuneCountInString(name) > MaxDistributionNameLength {
			result.AddError("name", "Distribution name must not exceed 128 characters")
			return result
		}
		if !distributionNamePattern.MatchString(name) {
			result.AddError("name", "Distribution name must contain only letters, digits, '.', '_' and '-'")
		}
	}

	return result
}

// ValidateImportPath validates an optional exercise import path
func ValidateImportPath(engine, modulePath, importPath string) *ValidationResult {
	result := NewValidationResult()

	if importPath == "" {
		return result
	}
	if engine == "python" {
		if !pythonModulePattern.MatchString(importPath) {
			result.AddError("import", "Import must be a dotted Python module name")
		}
		return result
	}
	if engine != "go" {
		result.AddError("import", "Import path is only supported for the go and python engines")
		return result
	}
	if !modulePathPattern.MatchString(importPath) {
		result.AddError("import", "Import path must be a valid Go import path")
		return result
	}
	if importPath != modulePath && !strings.HasPrefix(importPath, modulePath+"/") {
		result.AddError("import", "Import path must be inside module "+modulePath)
	}

	return result
}

// ValidateSpec validates an optional version specifier (python only)
func ValidateSpec(engine, spec string) *ValidationResult {
	result := NewValidationResult()

	if spec == "" {
		return result
	}
	if engine != "python" {
		result.AddError("spec", "Version spec is only supported for the python engine")
		return result
	}
	if !versionSpecPattern.MatchString(spec) {
		result.AddError("spec", "Version spec must be a PEP 440 specifier set, e.g. >=2.0,<3")
	}

	return result
}

// ValidatePackages validates a catalog's packages: names, import paths and uniqueness
func ValidatePackages(engine string, packages []probe.Package) *ValidationResult {
	result := NewValidationResult()

	if len(packages) > MaxCatalogSize {
		result.AddError("packages", fmt.Sprintf("Catalog must not exceed %d packages", MaxCatalogSize))
		return result
	}

	seen := make(map[string]bool)
	for i, pkg := range packages {
		field := fmt.Sprintf("packages[%d]", i)

		nameResult := ValidatePackageName(engine, pkg.Name)
		if !nameResult.Valid {
			result.AddError(field, nameResult.Errors["name"])
			continue
		}

		importResult := ValidateImportPath(engine, pkg.Name, pkg.Import)
		if !importResult.Valid {
			result.AddError(field, importResult.Errors["import"])
			continue
		}

		specResult := ValidateSpec(engine, pkg.Spec)
		if !specResult.Valid {
			result.AddError(field, specResult.Errors["spec"])
			continue
		}

		if seen[pkg.Name] {
			result.AddError(field, "Duplicate package: "+pkg.Name)
			continue
		}
		seen[pkg.Name] = true
	}

	return result
}

// ValidateVersions validates that candidate versions parse and ascend strictly
func ValidateVersions(versions []probe.Version) *ValidationResult {
	result := NewValidationResult()

	if err := probe.ValidateVersions(versions); err != nil {
		result.AddError("versions", strings.TrimPrefix(err.Error(), probe.ErrInvalidVersions.Error()+": "))
	}

	return result
}

// ValidateTimeout validates a positive step timeout
func ValidateTimeout(field string, d time.Duration) *ValidationResult {
	result := NewValidationResult()

	if d <= 0 {
		result.AddError(field, "Timeout must be positive")
	}

	return result
}
