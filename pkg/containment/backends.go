package containment

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
)

// Back-end names.
const (
	BackendIsJSONSchemaSubset      = "npm-is-json-schema-subset"
	BackendJSONSchemaDiffValidator = "npm-json-schema-diff-validator"
	BackendJSONSubschema           = "python-jsonsubschema"
)

// ErrUnknownBackend is returned for a back-end name that is not registered.
var ErrUnknownBackend = errors.New("unknown containment backend")

var defaultCommands = map[string][]string{
	BackendIsJSONSchemaSubset:      {"node", "-r", "esm", "cli.js"},
	BackendJSONSchemaDiffValidator: {"node", "-r", "esm", "cli.js"},
	BackendJSONSubschema:           {"python3", "cli.py"},
}

// Backends returns the registered back-end names, sorted.
func Backends() []string {
	names := make([]string, 0, len(defaultCommands))
	for name := range defaultCommands {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// IsBackend reports whether name is registered.
func IsBackend(name string) bool {
	_, ok := defaultCommands[name]

	return ok
}

// BackendConfig overrides how a back-end is started. Zero fields keep the defaults.
type BackendConfig struct {
	Command []string
	Dir     string
}

// NewChecker builds the checker for a named back-end. By default the tool
// runs from toolsDir/<name>.
func NewChecker(name, toolsDir string, override BackendConfig) (*ExecChecker, error) {
	command, ok := defaultCommands[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownBackend, name, Backends())
	}

	checker := &ExecChecker{
		Command: append([]string{}, command...),
		Dir:     filepath.Join(toolsDir, name),
	}

	if len(override.Command) > 0 {
		checker.Command = append([]string{}, override.Command...)
	}

	if override.Dir != "" {
		checker.Dir = override.Dir
	}

	return checker, nil
}
