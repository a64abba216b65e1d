package plugins

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/stretchr/testify/require"
)

type resolveHook struct {
	options  api.OnResolveOptions
	callback func(api.OnResolveArgs) (api.OnResolveResult, error)
}

type loadHook struct {
	options  api.OnLoadOptions
	callback func(api.OnLoadArgs) (api.OnLoadResult, error)
}

// hooks records the callbacks a plugin registers so tests can drive them
// without running esbuild.
type hooks struct {
	opts      *api.BuildOptions
	onStart   []func() (api.OnStartResult, error)
	onEnd     []func(*api.BuildResult) (api.OnEndResult, error)
	onResolve []resolveHook
	onLoad    []loadHook
	onDispose []func()
}

func setupPlugin(t *testing.T, p api.Plugin, opts *api.BuildOptions) *hooks {
	t.Helper()

	if opts == nil {
		opts = &api.BuildOptions{}
	}

	h := &hooks{opts: opts}
	p.Setup(api.PluginBuild{
		InitialOptions: opts,
		Resolve: func(path string, options api.ResolveOptions) api.ResolveResult {
			return api.ResolveResult{Path: path}
		},
		OnStart: func(callback func() (api.OnStartResult, error)) {
			h.onStart = append(h.onStart, callback)
		},
		OnEnd: func(callback func(result *api.BuildResult) (api.OnEndResult, error)) {
			h.onEnd = append(h.onEnd, callback)
		},
		OnResolve: func(options api.OnResolveOptions, callback func(api.OnResolveArgs) (api.OnResolveResult, error)) {
			h.onResolve = append(h.onResolve, resolveHook{options, callback})
		},
		OnLoad: func(options api.OnLoadOptions, callback func(api.OnLoadArgs) (api.OnLoadResult, error)) {
			h.onLoad = append(h.onLoad, loadHook{options, callback})
		},
		OnDispose: func(callback func()) {
			h.onDispose = append(h.onDispose, callback)
		},
	})

	return h
}

func (h *hooks) end(t *testing.T, result *api.BuildResult) error {
	t.Helper()
	for _, cb := range h.onEnd {
		if _, err := cb(result); err != nil {
			return err
		}
	}
	return nil
}

func (h *hooks) start(t *testing.T) error {
	t.Helper()
	for _, cb := range h.onStart {
		if _, err := cb(); err != nil {
			return err
		}
	}
	return nil
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, contents := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	}
}

func buildErrors(result api.BuildResult) []string {
	texts := make([]string, 0, len(result.Errors))
	for _, msg := range result.Errors {
		texts = append(texts, msg.Text)
	}
	return texts
}
