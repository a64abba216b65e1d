package commands

import (
	"fmt"

	"github.com/wolfeidau/spabundle/internal/logger"
	"github.com/wolfeidau/spabundle/internal/mode"
)

type BuildCmd struct {
	Project ProjectFlags `embed:""`
}

func (c *BuildCmd) Run(globals *Globals) error {
	log := logger.Setup(globals.Debug)

	cfg, root, err := c.Project.load()
	if err != nil {
		return err
	}

	m := mode.FromEnv()
	log.Info().Str("version", globals.Version).Str("mode", m.String()).Str("dir", root).Msg("Starting build")

	dev := newDevTooling(m, cfg)
	defer dev.stop()

	pipeline := newPipeline(m, cfg, root, dev, nil)
	if err := pipeline.Build(); err != nil {
		return fmt.Errorf("failed to build js assets: %w", err)
	}

	if meta := pipeline.Metadata(); meta != nil {
		log.Info().
			Int("outputs", len(meta.Outputs)).
			Int("bytes", meta.OutputBytes()).
			Msg("Build complete")
	}

	return nil
}
