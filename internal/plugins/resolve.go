package plugins

import (
	"path/filepath"
	"regexp"
	"slices"

	"github.com/evanw/esbuild/pkg/api"
)

const ResolveName = "resolve"

// BrowserMainFields prefers browser builds of third-party packages.
var BrowserMainFields = []string{"browser", "module", "main"}

type ResolveOptions struct {
	// Browser targets the browser platform and its package entry points.
	Browser bool
	// Dedupe lists packages that always resolve from Root so only one copy is bundled.
	Dedupe []string
	// Root defaults to the working directory.
	Root string
}

// dedupeMarker tags resolutions issued by the plugin itself so they are not
// intercepted a second time.
type dedupeMarker struct{}

func Resolve(opts ResolveOptions) api.Plugin {
	return api.Plugin{
		Name: ResolveName,
		Setup: func(build api.PluginBuild) {
			if opts.Browser {
				build.InitialOptions.Platform = api.PlatformBrowser
				build.InitialOptions.MainFields = slices.Clone(BrowserMainFields)
				if !slices.Contains(build.InitialOptions.Conditions, "browser") {
					build.InitialOptions.Conditions = append(build.InitialOptions.Conditions, "browser")
				}
			}

			if len(opts.Dedupe) == 0 {
				return
			}

			root := opts.Root
			if root == "" {
				root = build.InitialOptions.AbsWorkingDir
			}
			if abs, err := filepath.Abs(root); err == nil {
				root = abs
			}

			for _, name := range opts.Dedupe {
				filter := "^" + regexp.QuoteMeta(name) + "(/.*)?$"

				build.OnResolve(api.OnResolveOptions{Filter: filter}, func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					if _, ok := args.PluginData.(dedupeMarker); ok || args.Kind == api.ResolveEntryPoint {
						return api.OnResolveResult{}, nil
					}

					res := build.Resolve(args.Path, api.ResolveOptions{
						Importer:   args.Importer,
						ResolveDir: root,
						Kind:       args.Kind,
						PluginData: dedupeMarker{},
					})
					if len(res.Errors) > 0 {
						return api.OnResolveResult{Errors: res.Errors, Warnings: res.Warnings}, nil
					}

					return api.OnResolveResult{
						Path:      res.Path,
						External:  res.External,
						Namespace: res.Namespace,
						Warnings:  res.Warnings,
					}, nil
				})
			}
		},
	}
}
