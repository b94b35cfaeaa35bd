package catalog

import "github.com/TimurManjosov/horizons/internal/probe"

// LTS lines plus the current release.
var nodeVersions = []probe.Version{
	"v14.21.3", // Fermium
	"v16.20.2", // Gallium
	"v18.20.8", // Hydrogen
	"v20.19.5", // Iron
	"v22.20.0", // Jod
	"v24.0.2",
}

var nodePackages = []probe.Package{
	// Web frameworks
	{Name: "express", DeclaresEngineConstraint: true},
	{Name: "koa", DeclaresEngineConstraint: true},

	// Utilities
	{Name: "lodash"},
	{Name: "date-fns"},
	{Name: "uuid"},

	// HTTP clients
	{Name: "axios"},
	{Name: "node-fetch", DeclaresEngineConstraint: true},

	// Testing
	{Name: "jest", DeclaresEngineConstraint: true},
	{Name: "mocha", DeclaresEngineConstraint: true},
	{Name: "vitest", DeclaresEngineConstraint: true},

	{Name: "async"},

	// CLI
	{Name: "commander", DeclaresEngineConstraint: true},
	{Name: "yargs", DeclaresEngineConstraint: true},
	{Name: "chalk", DeclaresEngineConstraint: true},

	// Files and paths
	{Name: "fs-extra", DeclaresEngineConstraint: true},
	{Name: "glob", DeclaresEngineConstraint: true},

	// Validation
	{Name: "joi", DeclaresEngineConstraint: true},
	{Name: "zod"},

	{Name: "pg", DeclaresEngineConstraint: true},

	// Logging
	{Name: "winston", DeclaresEngineConstraint: true},
	{Name: "pino"},
}

// golang.org/dl names releases before 1.21 without a patch number.
var goVersions = []probe.Version{
	"1.13", "1.14", "1.15", "1.16", "1.17", "1.18",
	"1.19", "1.20", "1.21.0", "1.22.0", "1.23.0", "1.24.0",
}

// A go directive is a declared constraint; modules without a go.mod declare none.
var goPackages = []probe.Package{
	{Name: "github.com/gorilla/mux", DeclaresEngineConstraint: true},
	{Name: "github.com/gin-gonic/gin", DeclaresEngineConstraint: true},
	{Name: "github.com/stretchr/testify", DeclaresEngineConstraint: true, Import: "github.com/stretchr/testify/assert"},
	{Name: "github.com/spf13/cobra", DeclaresEngineConstraint: true},
	{Name: "github.com/urfave/cli/v2", DeclaresEngineConstraint: true},
	{Name: "github.com/sirupsen/logrus", DeclaresEngineConstraint: true},
	{Name: "go.uber.org/zap", DeclaresEngineConstraint: true},
	{Name: "github.com/go-resty/resty/v2", DeclaresEngineConstraint: true},
	{Name: "gopkg.in/yaml.v3", DeclaresEngineConstraint: true},
	{Name: "github.com/lib/pq", DeclaresEngineConstraint: true},
	{Name: "github.com/go-sql-driver/mysql", DeclaresEngineConstraint: true},
	{Name: "github.com/google/uuid", DeclaresEngineConstraint: true},
	{Name: "github.com/pkg/errors"},
	{Name: "github.com/hashicorp/go-multierror", DeclaresEngineConstraint: true},
	{Name: "github.com/prometheus/client_golang", DeclaresEngineConstraint: true, Import: "github.com/prometheus/client_golang/prometheus"},
	{Name: "github.com/gorilla/websocket", DeclaresEngineConstraint: true},
	{Name: "github.com/julienschmidt/httprouter", DeclaresEngineConstraint: true},
	{Name: "github.com/dgrijalva/jwt-go"},
	{Name: "golang.org/x/sync", DeclaresEngineConstraint: true, Import: "golang.org/x/sync/errgroup"},
	{Name: "golang.org/x/crypto", DeclaresEngineConstraint: true, Import: "golang.org/x/crypto/bcrypt"},
	{Name: "github.com/go-chi/chi/v5", DeclaresEngineConstraint: true},
	{Name: "github.com/labstack/echo/v4", DeclaresEngineConstraint: true},
	{Name: "github.com/gomodule/redigo", DeclaresEngineConstraint: true, Import: "github.com/gomodule/redigo/redis"},
	{Name: "github.com/elastic/go-elasticsearch/v7", DeclaresEngineConstraint: true},
	{Name: "github.com/aws/aws-sdk-go", DeclaresEngineConstraint: true, Import: "github.com/aws/aws-sdk-go/aws"},
	{Name: "google.golang.org/grpc", DeclaresEngineConstraint: true},
}

// uv can install every CPython release from 3.8 on.
var pythonVersions = []probe.Version{
	"3.8", "3.9", "3.10", "3.11", "3.12", "3.13",
}

// Specs keep each package on its current major line. Requires-Python is the
// declared constraint; pytz publishes none.
var pythonPackages = []probe.Package{
	{Name: "certifi", DeclaresEngineConstraint: true, Spec: ">=2024.0"},
	{Name: "charset-normalizer", DeclaresEngineConstraint: true, Spec: ">=3.0"},
	{Name: "click", DeclaresEngineConstraint: true, Spec: ">=8.0"},
	{Name: "idna", DeclaresEngineConstraint: true, Spec: ">=3.0"},
	{Name: "jinja2", DeclaresEngineConstraint: true, Spec: ">=3.0"},
	{Name: "markupsafe", DeclaresEngineConstraint: true, Spec: ">=2.0"},
	{Name: "numpy", DeclaresEngineConstraint: true, Spec: ">=1.26"},
	{Name: "packaging", DeclaresEngineConstraint: true, Spec: ">=24.0"},
	{Name: "pillow", DeclaresEngineConstraint: true, Spec: ">=10.0", Import: "PIL"},
	{Name: "platformdirs", DeclaresEngineConstraint: true, Spec: ">=4.0"},
	{Name: "pluggy", DeclaresEngineConstraint: true, Spec: ">=1.0"},
	{Name: "pytest", DeclaresEngineConstraint: true, Spec: ">=8.0"},
	{Name: "python-dateutil", DeclaresEngineConstraint: true, Spec: ">=2.8", Import: "dateutil"},
	{Name: "pytz", Spec: ">=2024.1"},
	{Name: "pyyaml", DeclaresEngineConstraint: true, Spec: ">=6.0", Import: "yaml"},
	{Name: "requests", DeclaresEngineConstraint: true, Spec: ">=2.32"},
	{Name: "setuptools", DeclaresEngineConstraint: true, Spec: ">=75.0"},
	{Name: "six", DeclaresEngineConstraint: true, Spec: ">=1.16"},
	{Name: "urllib3", DeclaresEngineConstraint: true, Spec: ">=2.0"},
}
