package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/TimurManjosov/horizons/internal/probe"
)

func TestValidatePackageName(t *testing.T) {
	tests := []struct {
		name        string
		engine      string
		pkg         string
		wantValid   bool
		wantMessage string
	}{
		{
			name:      "plain npm name",
			engine:    "node",
			pkg:       "express",
			wantValid: true,
		},
		{
			name:      "npm name with hyphen",
			engine:    "node",
			pkg:       "date-fns",
			wantValid: true,
		},
		{
			name:      "scoped npm name",
			engine:    "node",
			pkg:       "@babel/core",
			wantValid: true,
		},
		{
			name:        "empty name",
			engine:      "node",
			pkg:         "",
			wantValid:   false,
			wantMessage: "Package name is required",
		},
		{
			name:        "whitespace only",
			engine:      "go",
			pkg:         "   ",
			wantValid:   false,
			wantMessage: "Package name is required",
		},
		{
			name:        "reserved control name",
			engine:      "node",
			pkg:         "CONTROL",
			wantValid:   false,
			wantMessage: "Package name CONTROL is reserved for the control case",
		},
		{
			name:        "upper-case npm name",
			engine:      "node",
			pkg:         "Express",
			wantValid:   false,
			wantMessage: "Package name must be a lower-case npm name, optionally scoped",
		},
		{
			name:        "npm name too long",
			engine:      "node",
			pkg:         strings.Repeat("a", 215),
			wantValid:   false,
			wantMessage: "Package name must not exceed 214 characters",
		},
		{
			name:      "go module",
			engine:    "go",
			pkg:       "github.com/go-chi/chi/v5",
			wantValid: true,
		},
		{
			name:      "gopkg.in module",
			engine:    "go",
			pkg:       "gopkg.in/yaml.v3",
			wantValid: true,
		},
		{
			name:        "go module without host",
			engine:      "go",
			pkg:         "mux",
			wantValid:   false,
			wantMessage: "Module path must start with a host name, e.g. github.com/owner/repo",
		},
		{
			name:        "go module with spaces",
			engine:      "go",
			pkg:         "github.com/a b",
			wantValid:   false,
			wantMessage: "Module path must start with a host name, e.g. github.com/owner/repo",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidatePackageName(tt.engine, tt.pkg)
			if result.Valid != tt.wantValid {
				t.Errorf("ValidatePackageName(%q) valid = %v, want %v", tt.pkg, result.Valid, tt.wantValid)
			}
			if !tt.wantValid && result.Errors["name"] != tt.wantMessage {
				t.Errorf("ValidatePackageName(%q) message = %q, want %q", tt.pkg, result.Errors["name"], tt.wantMessage)
			}
		})
	}
}

func TestValidateImportPath(t *testing.T) {
	tests := []struct {
		name      string
		engine    string
		module    string
		importP   string
		wantValid bool
	}{
		{"empty import", "go", "github.com/stretchr/testify", "", true},
		{"sub package", "go", "github.com/stretchr/testify", "github.com/stretchr/testify/assert", true},
		{"same as module", "go", "github.com/lib/pq", "github.com/lib/pq", true},
		{"outside module", "go", "github.com/stretchr/testify", "github.com/stretchr/other", false},
		{"prefix but not sub path", "go", "github.com/lib/pq", "github.com/lib/pqx", false},
		{"node engine", "node", "express", "express/lib", false},
		{"python module", "python", "pyyaml", "yaml", true},
		{"python dotted module", "python", "zope.interface", "zope.interface", true},
		{"python path", "python", "pyyaml", "yaml/loader", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateImportPath(tt.engine, tt.module, tt.importP)
			if result.Valid != tt.wantValid {
				t.Errorf("ValidateImportPath valid = %v, want %v (%v)", result.Valid, tt.wantValid, result.Errors)
			}
		})
	}
}

func TestValidatePackages(t *testing.T) {
	valid := []probe.Package{{Name: "express"}, {Name: "koa", DeclaresEngineConstraint: true}}
	if result := ValidatePackages("node", valid); !result.Valid {
		t.Errorf("Expected valid catalog, got %v", result.Errors)
	}

	dup := []probe.Package{{Name: "express"}, {Name: "lodash"}, {Name: "express"}}
	result := ValidatePackages("node", dup)
	if result.Valid {
		t.Fatal("Expected duplicate to be rejected")
	}
	if result.Errors["packages[2]"] != "Duplicate package: express" {
		t.Errorf("Unexpected errors %v", result.Errors)
	}

	bad := []probe.Package{{Name: ""}}
	if result := ValidatePackages("node", bad); result.Errors["packages[0]"] != "Package name is required" {
		t.Errorf("Unexpected errors %v", result.Errors)
	}
}

func TestValidatePythonPackages(t *testing.T) {
	tests := []struct {
		name      string
		pkg       probe.Package
		wantValid bool
		wantError string
	}{
		{"plain name", probe.Package{Name: "requests"}, true, ""},
		{"name with spec", probe.Package{Name: "charset-normalizer", Spec: ">=3.0"}, true, ""},
		{"spec set", probe.Package{Name: "numpy", Spec: ">=1.26,<3"}, true, ""},
		{"compatible release", probe.Package{Name: "six", Spec: "~=1.16"}, true, ""},
		{"dotted name", probe.Package{Name: "zope.interface"}, true, ""},
		{"trailing hyphen", probe.Package{Name: "requests-"}, false, "Distribution name must contain only letters, digits, '.', '_' and '-'"},
		{"bare version", probe.Package{Name: "requests", Spec: "2.32"}, false, "Version spec must be a PEP 440 specifier set, e.g. >=2.0,<3"},
		{"injected line", probe.Package{Name: "requests", Spec: ">=2\nevil"}, false, "Version spec must be a PEP 440 specifier set, e.g. >=2.0,<3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidatePackages("python", []probe.Package{tt.pkg})
			if result.Valid != tt.wantValid {
				t.Errorf("Expected valid=%v, got %v (%v)", tt.wantValid, result.Valid, result.Errors)
			}
			if !tt.wantValid && result.Errors["packages[0]"] != tt.wantError {
				t.Errorf("Expected error %q, got %q", tt.wantError, result.Errors["packages[0]"])
			}
		})
	}
}

func TestValidateSpec(t *testing.T) {
	if result := ValidateSpec("go", ">=1.0"); result.Errors["spec"] != "Version spec is only supported for the python engine" {
		t.Errorf("Expected go spec to be rejected, got %v", result.Errors)
	}
	if result := ValidateSpec("node", ""); !result.Valid {
		t.Errorf("Expected empty spec to be valid, got %v", result.Errors)
	}
}

func TestValidateVersions(t *testing.T) {
	tests := []struct {
		name      string
		versions  []probe.Version
		wantValid bool
	}{
		{"node versions", []probe.Version{"v14.21.3", "v16.20.2", "v18.20.8"}, true},
		{"go versions", []probe.Version{"1.13", "1.20", "1.21.0", "1.24.0"}, true},
		{"single version", []probe.Version{"v20.19.5"}, true},
		{"empty", nil, false},
		{"descending", []probe.Version{"v18.20.8", "v16.20.2"}, false},
		{"duplicate", []probe.Version{"1.20", "1.20.0"}, false},
		{"not a version", []probe.Version{"lts/iron"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateVersions(tt.versions)
			if result.Valid != tt.wantValid {
				t.Errorf("ValidateVersions(%v) valid = %v, want %v (%v)", tt.versions, result.Valid, tt.wantValid, result.Errors)
			}
		})
	}
}

func TestValidateEngine(t *testing.T) {
	supported := []string{"node", "go"}

	if result := ValidateEngine("go", supported); !result.Valid {
		t.Errorf("Expected go to be valid")
	}
	if result := ValidateEngine("", supported); result.Errors["engine"] != "Engine is required" {
		t.Errorf("Unexpected errors %v", result.Errors)
	}
	if result := ValidateEngine("deno", supported); result.Errors["engine"] != "Engine must be one of: node, go" {
		t.Errorf("Unexpected errors %v", result.Errors)
	}
}

func TestValidationResultErr(t *testing.T) {
	result := NewValidationResult()
	if result.Err() != nil {
		t.Fatal("Valid result should have nil Err")
	}

	result.AddError("versions", "bad")
	result.Merge(ValidateTimeout("install_timeout", 0))
	err := result.Err()
	if err == nil {
		t.Fatal("Expected error")
	}
	if err.Error() != "install_timeout: Timeout must be positive; versions: bad" {
		t.Errorf("Unexpected error %q", err)
	}

	if ValidateTimeout("runtime_timeout", time.Second).Err() != nil {
		t.Error("Positive timeout should be valid")
	}
}
