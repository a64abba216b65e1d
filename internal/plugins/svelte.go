package plugins

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/evanw/esbuild/pkg/api"
)

const SvelteName = "svelte"

var ErrNoCompiler = errors.New("no component compiler configured")

// CompileOptions are passed through to the component compiler.
type CompileOptions struct {
	// Dev enables the compiler's runtime checks.
	Dev bool
}

// CompileResult is the compiled module. CSS is empty when the component has
// no styles.
type CompileResult struct {
	JS       string
	CSS      string
	Warnings []string
}

// Compiler compiles a single component.
type Compiler interface {
	Compile(ctx context.Context, filename string, source []byte, opts CompileOptions) (*CompileResult, error)
}

// Svelte loads .svelte files through the compiler. Component styles are handed
// to the CSS plugin as virtual modules imported by the compiled JS. Compiles
// still running when the build is disposed are cancelled.
func Svelte(compiler Compiler, opts CompileOptions, styles *ComponentStyles) api.Plugin {
	return api.Plugin{
		Name: SvelteName,
		Setup: func(build api.PluginBuild) {
			ctx, cancel := context.WithCancel(context.Background())
			build.OnDispose(cancel)

			build.OnLoad(api.OnLoadOptions{Filter: `\.svelte$`}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
				if compiler == nil {
					return api.OnLoadResult{}, ErrNoCompiler
				}

				source, err := os.ReadFile(args.Path)
				if err != nil {
					return api.OnLoadResult{}, err
				}

				res, err := compiler.Compile(ctx, args.Path, source, opts)
				if err != nil {
					return api.OnLoadResult{}, fmt.Errorf("failed to compile %s: %w", args.Path, err)
				}

				contents := res.JS
				if res.CSS != "" {
					styles.put(args.Path, res.CSS)
					contents += "\nimport " + strconv.Quote(styles.importPath(args.Path)) + ";\n"
				}

				warnings := make([]api.Message, 0, len(res.Warnings))
				for _, w := range res.Warnings {
					warnings = append(warnings, api.Message{Text: w})
				}

				return api.OnLoadResult{
					Contents:   &contents,
					Loader:     api.LoaderJS,
					ResolveDir: filepath.Dir(args.Path),
					Warnings:   warnings,
				}, nil
			})
		},
	}
}
