package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/wolfeidau/spabundle/cmd/spabundle/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Debug   bool `help:"Enable debug mode."`
		Version kong.VersionFlag
		Build   commands.BuildCmd `cmd:"" default:"withargs" help:"Build the application bundle"`
		Watch   commands.WatchCmd `cmd:"" help:"Rebuild on change, run the dev server and live reload"`
		Serve   commands.ServeCmd `cmd:"" help:"Serve the build output"`
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("spabundle"),
		kong.Description("Bundle a single page application with esbuild."),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}
