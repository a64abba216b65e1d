package plugins

import (
	"context"
	"fmt"
	"sync"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/spabundle/internal/livereload"
)

const LiveReloadName = "livereload"

// LiveReload prepends the client loader to the JS bundle and starts the
// reloader on the first build. A failed start is not retried and fails every
// later build too. The reloader is closed when the build is disposed.
func LiveReload(reloader LiveReloader, addr string) api.Plugin {
	var (
		once     sync.Once
		startErr error
	)

	return api.Plugin{
		Name: LiveReloadName,
		Setup: func(build api.PluginBuild) {
			if reloader == nil {
				return
			}

			if build.InitialOptions.Banner == nil {
				build.InitialOptions.Banner = map[string]string{}
			}
			banner := livereload.Snippet(addr)
			if existing := build.InitialOptions.Banner["js"]; existing != "" {
				banner = existing + "\n" + banner
			}
			build.InitialOptions.Banner["js"] = banner

			build.OnStart(func() (api.OnStartResult, error) {
				once.Do(func() {
					if err := reloader.Start(context.Background()); err != nil {
						startErr = fmt.Errorf("failed to start live reload: %w", err)
					}
				})
				// every build reports it while live reload is down
				return api.OnStartResult{}, startErr
			})

			build.OnDispose(func() {
				if err := reloader.Close(); err != nil {
					log.Warn().Err(err).Msg("Failed to close live reload")
				}
			})
		},
	}
}
