package assets

import (
	"slices"

	"github.com/evanw/esbuild/pkg/api"
)

type BuildMetadata struct {
	Inputs  map[string]InputInfo  `json:"inputs"`
	Outputs map[string]OutputInfo `json:"outputs"`
}

// OutputBytes is the combined size of every output file.
func (m *BuildMetadata) OutputBytes() int {
	total := 0
	for _, out := range m.Outputs {
		total += out.Bytes
	}
	return total
}

type InputInfo struct {
	Bytes int `json:"bytes"`
}

type OutputInfo struct {
	Bytes      int          `json:"bytes"`
	EntryPoint string       `json:"entryPoint"`
	Imports    []ImportInfo `json:"imports"`
}

type ImportInfo struct {
	Path string `json:"path"`
}

// OutputOptions describes the bundle file.
type OutputOptions struct {
	Format    api.Format
	Name      string
	File      string
	Sourcemap bool
}

// WatchOptions controls watch mode terminal behaviour.
type WatchOptions struct {
	// ClearScreen clears the terminal before each rebuild.
	ClearScreen bool
}

// BuildConfiguration is emitted once per configuration load and not modified afterwards.
type BuildConfiguration struct {
	Input   string
	Output  OutputOptions
	Plugins []api.Plugin
	Watch   WatchOptions

	// WorkingDir resolves relative paths, the process directory when empty.
	WorkingDir string
	// MetafilePath receives esbuild's metafile after each build.
	MetafilePath string
}

// Emit assembles the build configuration: the IIFE bundle with source maps,
// the realised plugin pipeline, and rebuild logs that stay on screen.
func Emit(cfg Config, plugins []api.Plugin) BuildConfiguration {
	return BuildConfiguration{
		Input: cfg.Input,
		Output: OutputOptions{
			Format:    api.FormatIIFE,
			Name:      cfg.GlobalName,
			File:      cfg.OutputFile,
			Sourcemap: true,
		},
		Plugins:      slices.Clone(plugins),
		Watch:        WatchOptions{ClearScreen: false},
		MetafilePath: cfg.MetafilePath,
	}
}

// BuildOptions converts the configuration into esbuild options. Plugins run
// in configuration order.
func (c BuildConfiguration) BuildOptions() api.BuildOptions {
	return api.BuildOptions{
		EntryPoints:   []string{c.Input},
		AbsWorkingDir: c.WorkingDir,
		Bundle:        true,
		Write:         true,
		Outfile:       c.Output.File,
		Format:        c.Output.Format,
		GlobalName:    c.Output.Name,
		Sourcemap:     cond(c.Output.Sourcemap, api.SourceMapLinked, api.SourceMapNone),
		Metafile:      true,
		LogLevel:      api.LogLevelSilent,
		Plugins:       slices.Clone(c.Plugins),
	}
}

func cond[T any](condition bool, trueVal, falseVal T) T {
	if condition {
		return trueVal
	}
	return falseVal
}
