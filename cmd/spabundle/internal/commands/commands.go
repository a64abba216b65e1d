package commands

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/wolfeidau/spabundle/internal/assets"
	"github.com/wolfeidau/spabundle/internal/livereload"
	"github.com/wolfeidau/spabundle/internal/mode"
	"github.com/wolfeidau/spabundle/internal/plugins"
	"github.com/wolfeidau/spabundle/internal/supervisor"
)

type Globals struct {
	Debug   bool
	Version string
}

// ProjectFlags locate the project and its optional YAML file.
type ProjectFlags struct {
	Dir    string `help:"project directory" default:"." env:"SPABUNDLE_DIR" type:"existingdir"`
	Config string `help:"path to YAML project file" default:"" env:"SPABUNDLE_CONFIG" type:"path"`
}

// load changes into the project directory so relative paths in the
// configuration, the compiler and the dev server all agree.
func (p *ProjectFlags) load() (assets.Config, string, error) {
	root, err := filepath.Abs(p.Dir)
	if err != nil {
		return assets.Config{}, "", fmt.Errorf("failed to resolve project dir: %w", err)
	}

	cfg := assets.DefaultConfig()
	if p.Config != "" {
		cfg, err = assets.LoadFile(p.Config, cfg)
		if err != nil {
			return assets.Config{}, "", err
		}
	}

	if err := os.Chdir(root); err != nil {
		return assets.Config{}, "", fmt.Errorf("failed to enter project dir: %w", err)
	}

	return cfg, root, nil
}

// devTooling holds the development-only collaborators, all nil in production.
type devTooling struct {
	supervisor *supervisor.Supervisor
	reloader   *livereload.Server
}

func newDevTooling(m mode.Mode, cfg assets.Config) devTooling {
	if !m.Development() {
		return devTooling{}
	}

	return devTooling{
		supervisor: supervisor.New(supervisor.WithCommand(cfg.DevServer.Command, cfg.DevServer.Args...)),
		reloader:   livereload.New(cfg.LiveReloadDir, livereload.WithAddr(cfg.LiveReloadAddr)),
	}
}

// stop tears down the dev server on the normal exit path.
func (d devTooling) stop() {
	if d.supervisor != nil {
		d.supervisor.Stop()
	}
}

// newPipeline wires the plugin catalogue for m into a build pipeline. A dev
// server start failure is passed to devServerFailed when set.
func newPipeline(m mode.Mode, cfg assets.Config, root string, dev devTooling, devServerFailed func(error)) *assets.Pipeline {
	opts := plugins.Options{
		Mode: m,
		Compiler: &plugins.CommandCompiler{
			Command: cfg.Compiler.Command,
			Args:    cfg.Compiler.Args,
		},
		CSSOutput: cfg.CSSOutput,
		Root:      root,
		Dedupe:    cfg.Dedupe,
	}

	// nil pointers must not become non-nil interfaces
	if dev.supervisor != nil {
		opts.DevServer = dev.supervisor
		opts.DevServerFailed = devServerFailed
	}
	if dev.reloader != nil {
		opts.LiveReload = dev.reloader
		opts.LiveReloadAddr = cfg.LiveReloadAddr
	}

	bc := assets.Emit(cfg, plugins.Build(m, plugins.Catalogue(opts)))
	bc.WorkingDir = root

	return assets.New(bc)
}

func configureHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       5 * time.Minute,
		MaxHeaderBytes:    8 * 1024, // 8KiB
	}
}
