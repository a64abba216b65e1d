package plugins

import (
	"errors"
	"fmt"

	"github.com/evanw/esbuild/pkg/api"
)

const DevServerName = "dev-server"

// ErrDevServer wraps every dev server start failure.
var ErrDevServer = errors.New("failed to start dev server")

// DevServer notifies starter after every build that wrote its output without
// errors. The starter is expected to ignore calls once its server is running.
// A start failure is reported as a build error and passed to failed, when set,
// so a long running watch can stop.
func DevServer(starter Starter, failed func(error)) api.Plugin {
	return api.Plugin{
		Name: DevServerName,
		Setup: func(build api.PluginBuild) {
			if starter == nil {
				return
			}

			build.OnEnd(func(result *api.BuildResult) (api.OnEndResult, error) {
				if len(result.Errors) > 0 {
					return api.OnEndResult{}, nil
				}
				if err := starter.Start(); err != nil {
					err = fmt.Errorf("%w: %w", ErrDevServer, err)
					if failed != nil {
						failed(err)
					}
					return api.OnEndResult{}, err
				}
				return api.OnEndResult{}, nil
			})
		},
	}
}
