// Package plugins assembles the ordered esbuild plugin pipeline for a build
// mode. The catalogue is a fixed list of (predicate, factory) pairs. Build
// keeps the enabled entries in catalogue order and drops the rest.
package plugins

import (
	"context"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/wolfeidau/spabundle/internal/mode"
)

// Spec is one catalogue entry.
type Spec struct {
	Name    string
	Enabled func(m mode.Mode) bool
	Factory func() api.Plugin
}

func Always(mode.Mode) bool        { return true }
func Development(m mode.Mode) bool { return m.Development() }
func Production(m mode.Mode) bool  { return m.Production }

// Build returns the plugins whose predicate holds for m. The result is dense,
// disabled entries never appear as placeholders.
func Build(m mode.Mode, specs []Spec) []api.Plugin {
	plugins := make([]api.Plugin, 0, len(specs))
	for _, spec := range specs {
		if spec.Enabled(m) {
			plugins = append(plugins, spec.Factory())
		}
	}
	return plugins
}

// Starter is notified after every successful write.
type Starter interface {
	Start() error
}

// LiveReloader is started on the first build and closed on dispose.
type LiveReloader interface {
	Start(ctx context.Context) error
	Close() error
}

// Options configures the catalogue entries.
type Options struct {
	Mode mode.Mode

	// Compiler turns UI components into JS and CSS.
	Compiler Compiler
	// CSSOutput is the stylesheet name, written next to the JS bundle.
	CSSOutput string
	// Root is the directory deduplicated packages resolve from.
	Root string
	// Dedupe lists packages bundled exactly once.
	Dedupe []string

	// DevServer is started after the first successful write.
	DevServer Starter
	// DevServerFailed receives the first dev server start failure.
	DevServerFailed func(error)

	// LiveReload notifies browsers about changes in LiveReloadDir.
	LiveReload     LiveReloader
	LiveReloadAddr string
}

// Catalogue returns the plugin catalogue in its fixed order: transforms,
// resolution, dev-only tooling, then minification.
func Catalogue(opts Options) []Spec {
	styles := NewComponentStyles()

	return []Spec{
		{
			Name:    SvelteName,
			Enabled: Always,
			Factory: func() api.Plugin {
				return Svelte(opts.Compiler, CompileOptions{Dev: !opts.Mode.Production}, styles)
			},
		},
		{
			Name:    CSSName,
			Enabled: Always,
			Factory: func() api.Plugin { return CSS(opts.CSSOutput, styles) },
		},
		{
			Name:    ResolveName,
			Enabled: Always,
			Factory: func() api.Plugin {
				return Resolve(ResolveOptions{Browser: true, Dedupe: opts.Dedupe, Root: opts.Root})
			},
		},
		{
			Name:    CommonJSName,
			Enabled: Always,
			Factory: CommonJS,
		},
		{
			Name:    DevServerName,
			Enabled: Development,
			Factory: func() api.Plugin { return DevServer(opts.DevServer, opts.DevServerFailed) },
		},
		{
			Name:    LiveReloadName,
			Enabled: Development,
			Factory: func() api.Plugin { return LiveReload(opts.LiveReload, opts.LiveReloadAddr) },
		},
		{
			Name:    MinifyName,
			Enabled: Production,
			Factory: Minify,
		},
	}
}

// Names lists plugin names, handy for logging the realised pipeline.
func Names(plugins []api.Plugin) []string {
	names := make([]string, len(plugins))
	for i, p := range plugins {
		names[i] = p.Name
	}
	return names
}
