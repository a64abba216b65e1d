package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/wolfeidau/spabundle/internal/logger"
	"github.com/wolfeidau/spabundle/internal/mode"
	"github.com/wolfeidau/spabundle/internal/plugins"
)

type WatchCmd struct {
	Project ProjectFlags `embed:""`
}

func (c *WatchCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)

	cfg, root, err := c.Project.load()
	if err != nil {
		return err
	}

	// advertise watch mode the same way to anything we spawn
	if err := os.Setenv(mode.WatchEnv, "true"); err != nil {
		return fmt.Errorf("failed to set %s: %w", mode.WatchEnv, err)
	}

	m := mode.FromEnv()
	log.Info().Str("version", globals.Version).Str("mode", m.String()).Str("dir", root).Msg("Starting watch")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// a dev server that fails to start ends the watch
	ctx, fail := context.WithCancelCause(ctx)
	defer fail(nil)

	dev := newDevTooling(m, cfg)
	defer dev.stop()

	if err := newPipeline(m, cfg, root, dev, fail).Watch(ctx); err != nil {
		return err
	}

	if cause := context.Cause(ctx); errors.Is(cause, plugins.ErrDevServer) {
		return cause
	}

	return nil
}
