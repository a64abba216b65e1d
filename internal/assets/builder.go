package assets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/spabundle/internal/logger"
	"github.com/wolfeidau/spabundle/internal/plugins"
)

var (
	ErrNoEntryPoint = errors.New("no entry point configured")
	ErrBuildFailed  = errors.New("esbuild failed with errors")
)

const clearScreen = "\x1b[2J\x1b[3J\x1b[H"

// Pipeline runs esbuild with a build configuration and keeps the metadata of
// the latest successful build.
type Pipeline struct {
	config   BuildConfiguration
	terminal io.Writer
	metadata *BuildMetadata
	mu       sync.RWMutex
}

// New creates a new asset pipeline with the given configuration
func New(config BuildConfiguration) *Pipeline {
	return &Pipeline{
		config:   config,
		terminal: os.Stderr,
	}
}

// WithTerminal sets where watch mode writes the clear screen sequence.
func (p *Pipeline) WithTerminal(w io.Writer) *Pipeline {
	p.terminal = w
	return p
}

// Build runs a single esbuild build and loads metadata
func (p *Pipeline) Build() error {
	if p.config.Input == "" {
		return ErrNoEntryPoint
	}

	log.Info().
		Str("entrypoint", p.config.Input).
		Strs("plugins", plugins.Names(p.config.Plugins)).
		Msg("Building assets")

	result := api.Build(p.config.BuildOptions())

	return p.handleResult(&result)
}

// Watch builds, then rebuilds on every source change until ctx is done.
// Failed rebuilds are logged and watching continues.
func (p *Pipeline) Watch(ctx context.Context) error {
	if p.config.Input == "" {
		return ErrNoEntryPoint
	}

	opts := p.config.BuildOptions()
	opts.Plugins = append(opts.Plugins, p.reporter())

	log.Info().
		Str("entrypoint", p.config.Input).
		Strs("plugins", plugins.Names(p.config.Plugins)).
		Msg("Watching assets")

	buildCtx, ctxErr := api.Context(opts)
	if ctxErr != nil {
		logger.Messages(log.Logger, zerolog.ErrorLevel, ctxErr.Errors)
		return ErrBuildFailed
	}
	defer buildCtx.Dispose()

	if err := buildCtx.Watch(api.WatchOptions{}); err != nil {
		return fmt.Errorf("failed to start watch mode: %w", err)
	}

	<-ctx.Done()

	log.Info().Msg("Stopped watching")

	return nil
}

// Metadata returns the metafile of the last successful build, nil before one.
func (p *Pipeline) Metadata() *BuildMetadata {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.metadata == nil {
		return nil
	}

	return &BuildMetadata{
		Inputs:  maps.Clone(p.metadata.Inputs),
		Outputs: maps.Clone(p.metadata.Outputs),
	}
}

// reporter logs every watch build and clears the screen first when configured.
func (p *Pipeline) reporter() api.Plugin {
	return api.Plugin{
		Name: "reporter",
		Setup: func(build api.PluginBuild) {
			var started time.Time

			build.OnStart(func() (api.OnStartResult, error) {
				if p.config.Watch.ClearScreen {
					fmt.Fprint(p.terminal, clearScreen)
				}
				started = time.Now()
				return api.OnStartResult{}, nil
			})

			build.OnEnd(func(result *api.BuildResult) (api.OnEndResult, error) {
				if err := p.handleResult(result); err != nil {
					log.Warn().Dur("duration", time.Since(started)).Msg("Rebuild failed, waiting for changes")
					return api.OnEndResult{}, nil
				}
				log.Info().Dur("duration", time.Since(started)).Msg("Rebuild finished")
				return api.OnEndResult{}, nil
			})
		},
	}
}

func (p *Pipeline) handleResult(result *api.BuildResult) error {
	logger.Messages(log.Logger, zerolog.WarnLevel, result.Warnings)

	if len(result.Errors) > 0 {
		logger.Messages(log.Logger, zerolog.ErrorLevel, result.Errors)
		return ErrBuildFailed
	}

	if result.Metafile == "" {
		return nil
	}

	if p.config.MetafilePath != "" {
		path := p.config.MetafilePath
		if !filepath.IsAbs(path) && p.config.WorkingDir != "" {
			path = filepath.Join(p.config.WorkingDir, path)
		}

		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}

		// Write metafile
		if err := os.WriteFile(path, []byte(result.Metafile), 0o600); err != nil {
			return err
		}
	}

	// Parse and cache metadata
	var metadata BuildMetadata
	if err := json.Unmarshal([]byte(result.Metafile), &metadata); err != nil {
		return err
	}

	for _, path := range slices.Sorted(maps.Keys(metadata.Outputs)) {
		out := metadata.Outputs[path]
		log.Info().
			Str("file", path).
			Int("bytes", out.Bytes).
			Str("entrypoint", out.EntryPoint).
			Msg("Built file")
	}

	p.mu.Lock()
	p.metadata = &metadata
	p.mu.Unlock()

	return nil
}
