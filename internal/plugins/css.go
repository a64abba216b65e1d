package plugins

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog/log"
)

const (
	CSSName = "css"

	styleNamespace = "component-css"
	stylePrefix    = styleNamespace + ":"
)

// ComponentStyles holds compiled component CSS between the component load and
// the CSS plugin's virtual module load. It is shared across rebuilds.
type ComponentStyles struct {
	styles sync.Map
}

func NewComponentStyles() *ComponentStyles {
	return &ComponentStyles{}
}

func (c *ComponentStyles) put(component, css string) {
	c.styles.Store(component+".css", css)
}

func (c *ComponentStyles) get(path string) (string, bool) {
	v, ok := c.styles.Load(path)
	if !ok {
		return "", false
	}
	return v.(string), true
}

func (c *ComponentStyles) importPath(component string) string {
	return stylePrefix + component + ".css"
}

// CSS bundles component styles with the CSS loader so esbuild extracts them
// into a stylesheet beside the JS output. The stylesheet is renamed to output
// when that differs from the name esbuild derives from the outfile.
func CSS(output string, styles *ComponentStyles) api.Plugin {
	return api.Plugin{
		Name: CSSName,
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: "^" + stylePrefix}, func(args api.OnResolveArgs) (api.OnResolveResult, error) {
				return api.OnResolveResult{
					Path:      strings.TrimPrefix(args.Path, stylePrefix),
					Namespace: styleNamespace,
				}, nil
			})

			build.OnLoad(api.OnLoadOptions{Filter: ".*", Namespace: styleNamespace}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
				css, ok := styles.get(args.Path)
				if !ok {
					return api.OnLoadResult{}, fmt.Errorf("no styles recorded for %s", args.Path)
				}
				return api.OnLoadResult{
					Contents:   &css,
					Loader:     api.LoaderCSS,
					ResolveDir: filepath.Dir(args.Path),
				}, nil
			})

			outfile := build.InitialOptions.Outfile
			if output == "" || outfile == "" {
				return
			}

			derived := strings.TrimSuffix(outfile, filepath.Ext(outfile)) + ".css"
			target := filepath.Join(filepath.Dir(outfile), output)
			if filepath.Clean(derived) == filepath.Clean(target) {
				return
			}

			build.OnEnd(func(result *api.BuildResult) (api.OnEndResult, error) {
				if len(result.Errors) > 0 {
					return api.OnEndResult{}, nil
				}
				return api.OnEndResult{}, moveStylesheet(derived, target)
			})
		},
	}
}

func moveStylesheet(from, to string) error {
	if _, err := os.Stat(from); err != nil {
		// no styles in this build
		return nil
	}

	if err := os.Rename(from, to); err != nil {
		return fmt.Errorf("failed to move stylesheet: %w", err)
	}

	if _, err := os.Stat(from + ".map"); err == nil {
		if err := os.Rename(from+".map", to+".map"); err != nil {
			return fmt.Errorf("failed to move stylesheet map: %w", err)
		}
	}

	log.Debug().Str("from", from).Str("to", to).Msg("Moved stylesheet")

	return nil
}
