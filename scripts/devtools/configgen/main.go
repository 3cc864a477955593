// Command configgen renders per-environment config files from a profile:
// each target starts from a base YAML, gets the profile's shared sections
// merged in, then its own overrides.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Profile describes one environment.
type Profile struct {
	OutputDir string                 `yaml:"outputDir"`
	Shared    map[string]interface{} `yaml:"shared"`
	Targets   map[string]Target      `yaml:"targets"`
}

// Target is one rendered config file.
type Target struct {
	Base      string                 `yaml:"base"`
	Output    string                 `yaml:"output"`
	Sections  []string               `yaml:"sections"`
	Overrides map[string]interface{} `yaml:"overrides"`
}

func main() {
	profilePath := flag.String("profile", "configs/dev-profile.yaml", "Path to config profile")
	outputDir := flag.String("output-dir", "", "Override output directory")
	flag.Parse()

	if err := run(*profilePath, *outputDir); err != nil {
		fmt.Fprintf(os.Stderr, "configgen: %v\n", err)
		os.Exit(1)
	}
}

func run(profilePath, outputDir string) error {
	profilePathAbs, err := filepath.Abs(profilePath)
	if err != nil {
		return fmt.Errorf("resolve profile path failed: %w", err)
	}
	profile, err := loadProfile(profilePathAbs)
	if err != nil {
		return err
	}
	if outputDir != "" {
		profile.OutputDir = outputDir
	}
	if profile.OutputDir == "" {
		return errors.New("output directory is required")
	}
	profileDir := filepath.Dir(profilePathAbs)
	if !filepath.IsAbs(profile.OutputDir) {
		profile.OutputDir = filepath.Join(profileDir, profile.OutputDir)
	}

	names := make([]string, 0, len(profile.Targets))
	for name := range profile.Targets {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		target := profile.Targets[name]
		if target.Base == "" {
			return fmt.Errorf("target %q missing base config", name)
		}
		if !filepath.IsAbs(target.Base) {
			target.Base = filepath.Join(profileDir, target.Base)
		}
		rendered, err := render(profile, target)
		if err != nil {
			return fmt.Errorf("render %q: %w", name, err)
		}
		outputPath, err := resolveOutputPath(profile.OutputDir, target)
		if err != nil {
			return fmt.Errorf("resolve output path for %q: %w", name, err)
		}
		if err := writeYAML(outputPath, rendered); err != nil {
			return fmt.Errorf("write config for %q: %w", name, err)
		}
		fmt.Printf("wrote %s\n", outputPath)
	}
	return nil
}

func render(profile *Profile, target Target) (interface{}, error) {
	config, err := loadYAML(target.Base)
	if err != nil {
		return nil, err
	}
	config = normalizeValue(config)

	if shared := sharedSections(profile.Shared, target.Sections); len(shared) > 0 {
		if config, err = mergeMap(config, normalizeValue(shared)); err != nil {
			return nil, fmt.Errorf("merge shared sections: %w", err)
		}
	}
	if len(target.Overrides) > 0 {
		if config, err = mergeMap(config, normalizeValue(target.Overrides)); err != nil {
			return nil, fmt.Errorf("merge overrides: %w", err)
		}
	}
	return config, nil
}

// sharedSections picks the named top-level sections out of shared.
// An empty names list takes none.
func sharedSections(shared map[string]interface{}, names []string) map[string]interface{} {
	out := make(map[string]interface{}, len(names))
	for _, name := range names {
		if v, ok := shared[name]; ok {
			out[name] = v
		}
	}
	return out
}

func loadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile failed: %w", err)
	}
	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("parse profile failed: %w", err)
	}
	if len(profile.Targets) == 0 {
		return nil, errors.New("profile has no targets")
	}
	return &profile, nil
}

func loadYAML(path string) (interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read yaml failed: %w", err)
	}
	var value interface{}
	if err := yaml.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("parse yaml failed: %w", err)
	}
	return value, nil
}

func writeYAML(path string, value interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir failed: %w", err)
	}
	data, err := yaml.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal yaml failed: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func resolveOutputPath(outputDir string, target Target) (string, error) {
	output := target.Output
	if output == "" {
		output = filepath.Base(target.Base)
	}
	if output == "" || output == "." {
		return "", errors.New("output path is empty")
	}
	if filepath.IsAbs(output) {
		return output, nil
	}
	return filepath.Join(outputDir, output), nil
}
