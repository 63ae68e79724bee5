package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// envPattern matches ${NAME} and ${NAME:-fallback} references.
var envPattern = regexp.MustCompile(`\$\{(\w+)(?::-([^}]*))?\}`)

// Load reads a YAML configuration file, expands environment variables,
// parses it into a Config, and fills defaults.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	expanded, err := expandEnv(raw)
	if err != nil {
		return nil, fmt.Errorf("config: expanding variables in %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	cfg.Defaults()

	return &cfg, nil
}

// expandEnv substitutes environment references in the raw YAML before it is
// parsed, so credentials never have to live in the file itself. A reference
// with no fallback must resolve; all unresolved names are reported at once.
func expandEnv(raw []byte) ([]byte, error) {
	var unresolved []string

	expanded := envPattern.ReplaceAllFunc(raw, func(ref []byte) []byte {
		groups := envPattern.FindSubmatch(ref)
		if value, ok := os.LookupEnv(string(groups[1])); ok {
			return []byte(value)
		}
		if groups[2] != nil {
			return groups[2]
		}
		unresolved = append(unresolved, string(groups[1]))
		return ref
	})

	if len(unresolved) > 0 {
		return nil, fmt.Errorf("unresolved variables: %s", strings.Join(unresolved, ", "))
	}
	return expanded, nil
}
