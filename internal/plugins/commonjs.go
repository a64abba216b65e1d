package plugins

import (
	"slices"

	"github.com/evanw/esbuild/pkg/api"
)

const CommonJSName = "commonjs"

// defaultResolveExtensions mirrors esbuild's own list, used when the build
// options leave it empty.
var defaultResolveExtensions = []string{".tsx", ".ts", ".jsx", ".js", ".css", ".json"}

// CommonJS lets non-ESM dependencies be consumed: .cjs files are resolvable and
// loaded as JS, and packages that only declare "main" still resolve.
func CommonJS() api.Plugin {
	return api.Plugin{
		Name: CommonJSName,
		Setup: func(build api.PluginBuild) {
			opts := build.InitialOptions

			if len(opts.ResolveExtensions) == 0 {
				opts.ResolveExtensions = slices.Clone(defaultResolveExtensions)
			}
			for _, ext := range []string{".cjs", ".mjs"} {
				if !slices.Contains(opts.ResolveExtensions, ext) {
					opts.ResolveExtensions = append(opts.ResolveExtensions, ext)
				}
			}

			if opts.Loader == nil {
				opts.Loader = map[string]api.Loader{}
			}
			if _, ok := opts.Loader[".cjs"]; !ok {
				opts.Loader[".cjs"] = api.LoaderJS
			}

			if len(opts.MainFields) > 0 && !slices.Contains(opts.MainFields, "main") {
				opts.MainFields = append(opts.MainFields, "main")
			}
		},
	}
}
