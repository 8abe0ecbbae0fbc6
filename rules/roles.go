package rules

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk role table.
type File struct {
	Rules []*Rule `yaml:"rules" json:"rules" jsonschema:"required"`
}

//go:embed default_roles.yaml
var defaultRoles []byte

// Parse decodes a YAML role table. Conditions are compiled by NewEngine.
func Parse(data []byte) ([]*Rule, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing role table: %w", err)
	}
	if len(f.Rules) == 0 {
		return nil, fmt.Errorf("role table has no rules")
	}
	return f.Rules, nil
}

// Load reads a role table from path.
func Load(path string) ([]*Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading role table: %w", err)
	}
	rules, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rules, nil
}

// DefaultRules returns the built-in role table.
func DefaultRules() []*Rule {
	rules, err := Parse(defaultRoles)
	if err != nil {
		panic(err)
	}
	return rules
}
