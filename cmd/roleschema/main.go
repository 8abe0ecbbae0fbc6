// Command roleschema writes the JSON schema of the role table file and can
// check a role table against the preset factory.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/invopop/jsonschema"

	"github.com/nstehr/warren/warren-core/ai"
	"github.com/nstehr/warren/warren-core/rules"
)

func main() {
	var outPath, checkPath string
	flag.StringVar(&outPath, "out", "", "path to write the JSON schema")
	flag.StringVar(&checkPath, "check", "", "role table to compile and report on")
	flag.Parse()

	if outPath == "" && checkPath == "" {
		fmt.Fprintln(os.Stderr, "--out or --check is required")
		os.Exit(1)
	}

	if checkPath != "" {
		if err := check(checkPath); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
	}
	if outPath != "" {
		if err := writeSchema(outPath, buildSchema()); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write schema: %v\n", err)
			os.Exit(1)
		}
	}
}

func buildSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
	}
	schema := reflector.Reflect(new(rules.File))
	schema.Title = "Warren Role Table"
	presets := make([]string, 0, len(ai.Presets()))
	for _, p := range ai.Presets() {
		presets = append(presets, string(p))
	}
	schema.Description = "Maps spawned creatures to behavior presets. Presets: " + strings.Join(presets, ", ")
	return schema
}

func check(path string) error {
	rs, err := rules.Load(path)
	if err != nil {
		return err
	}
	engine, err := rules.NewEngine(rs)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	for _, r := range engine.Rules() {
		fmt.Printf("%4d  %-20s %-22s %s\n", r.Priority, r.Name, r.Preset, r.ConditionSrc)
	}
	return nil
}

func writeSchema(outPath string, schema *jsonschema.Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}

	return nil
}
