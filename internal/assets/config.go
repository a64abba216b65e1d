package assets

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Command is an executable and its arguments.
type Command struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

type Config struct {
	// Entry point of the application
	Input string `yaml:"input"`
	// Output bundle path
	OutputFile string `yaml:"output"`
	// Global variable the bundle assigns its exports to
	GlobalName string `yaml:"name"`
	// Stylesheet name, written next to the bundle
	CSSOutput string `yaml:"css"`
	// Path to metafile
	MetafilePath string `yaml:"metafile"`
	// Packages bundled exactly once
	Dedupe []string `yaml:"dedupe"`
	// Directory watched for live reload
	LiveReloadDir string `yaml:"livereloadDir"`
	// Live reload listen address
	LiveReloadAddr string `yaml:"livereloadAddr"`
	// Component compiler invocation
	Compiler Command `yaml:"compiler"`
	// Dev server started after the first write in development mode
	DevServer Command `yaml:"devServer"`
}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() Config {
	return Config{
		Input:          "src/main.js",
		OutputFile:     "public/build/bundle.js",
		GlobalName:     "app",
		CSSOutput:      "bundle.css",
		MetafilePath:   "public/build/meta.json",
		Dedupe:         []string{"svelte"},
		LiveReloadDir:  "public",
		LiveReloadAddr: "0.0.0.0:35729",
		Compiler: Command{
			Command: "node",
			Args:    []string{"scripts/compile-svelte.mjs"},
		},
		DevServer: Command{
			Command: "npm",
			Args:    []string{"run", "start", "--", "--dev", "--host", "0.0.0.0", "--cors"},
		},
	}
}

// LoadFile overlays the YAML project file at path onto base. Keys present in
// the file take precedence, everything else keeps its base value.
func LoadFile(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return base, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return base, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if c.Input == "" {
		return ErrNoEntryPoint
	}
	if c.OutputFile == "" {
		return errors.New("output file is required")
	}
	return nil
}
