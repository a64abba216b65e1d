package assets

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/spabundle/internal/mode"
	"github.com/wolfeidau/spabundle/internal/plugins"
	"github.com/wolfeidau/spabundle/internal/supervisor"
)

func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, contents := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	}
	return root
}

func pipelineFor(root string, m mode.Mode, opts plugins.Options) *Pipeline {
	cfg := DefaultConfig()
	opts.Mode = m
	opts.CSSOutput = cfg.CSSOutput
	opts.Dedupe = cfg.Dedupe
	opts.Root = root

	bc := Emit(cfg, plugins.Build(m, plugins.Catalogue(opts)))
	bc.WorkingDir = root

	return New(bc)
}

func TestPipeline_BuildProduction(t *testing.T) {
	root := writeProject(t, map[string]string{
		"src/main.js":    "import './global.css';\nexport const answer = 40 + 2;\ndocument.title = 'hello ' + answer;\n",
		"src/global.css": "body {\n  margin: 0;\n}\n",
	})

	p := pipelineFor(root, mode.Mode{Production: true}, plugins.Options{})
	require.NoError(t, p.Build())

	build := filepath.Join(root, "public", "build")

	js, err := os.ReadFile(filepath.Join(build, "bundle.js"))
	require.NoError(t, err)
	require.Contains(t, string(js), "var app=")
	require.Contains(t, string(js), "//# sourceMappingURL=bundle.js.map")
	require.NotContains(t, string(js), "\n  ", "production output is minified")

	require.FileExists(t, filepath.Join(build, "bundle.js.map"))

	css, err := os.ReadFile(filepath.Join(build, "bundle.css"))
	require.NoError(t, err)
	require.Contains(t, string(css), "margin:0")

	require.FileExists(t, filepath.Join(build, "meta.json"))

	meta := p.Metadata()
	require.NotNil(t, meta)
	require.Contains(t, meta.Outputs, "public/build/bundle.js")
	require.Equal(t, "src/main.js", meta.Outputs["public/build/bundle.js"].EntryPoint)

	total := 0
	for _, out := range meta.Outputs {
		total += out.Bytes
	}
	require.Positive(t, total)
	require.Equal(t, total, meta.OutputBytes())
}

func TestPipeline_BuildErrors(t *testing.T) {
	root := writeProject(t, map[string]string{
		"src/main.js": "import missing from './missing';\nconsole.log(missing);\n",
	})

	p := pipelineFor(root, mode.Mode{Production: true}, plugins.Options{})
	require.ErrorIs(t, p.Build(), ErrBuildFailed)
	require.Nil(t, p.Metadata())
}

func TestPipeline_NoEntryPoint(t *testing.T) {
	p := New(BuildConfiguration{})
	require.ErrorIs(t, p.Build(), ErrNoEntryPoint)
	require.ErrorIs(t, p.Watch(context.Background()), ErrNoEntryPoint)
}

// countingStarter counts the write notifications reaching the supervisor.
type countingStarter struct {
	next  plugins.Starter
	calls atomic.Int32
}

func (c *countingStarter) Start() error {
	c.calls.Add(1)
	return c.next.Start()
}

type idleProcess struct{}

func (idleProcess) Signal(os.Signal) error { return nil }
func (idleProcess) Pid() int               { return 4242 }

type countingSpawner struct {
	spawns atomic.Int32
}

func (c *countingSpawner) Spawn(string, []string) (supervisor.Process, error) {
	c.spawns.Add(1)
	return idleProcess{}, nil
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func TestPipeline_WatchStartsDevServerOnce(t *testing.T) {
	root := writeProject(t, map[string]string{
		"src/main.js": "console.log('first');\n",
	})

	spawner := &countingSpawner{}
	sup := supervisor.New(
		supervisor.WithSpawner(spawner),
		supervisor.WithNotify(func(chan<- os.Signal, ...os.Signal) {}),
	)
	starter := &countingStarter{next: sup}
	p := pipelineFor(root, mode.Mode{}, plugins.Options{DevServer: starter})

	terminal := &syncBuffer{}
	p.WithTerminal(terminal)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- p.Watch(ctx)
	}()

	bundle := filepath.Join(root, "public", "build", "bundle.js")

	require.Eventually(t, func() bool {
		return starter.calls.Load() == 1 && fileContains(bundle, "first")
	}, 10*time.Second, 20*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "main.js"), []byte("console.log('second');\n"), 0o600))

	require.Eventually(t, func() bool {
		return fileContains(bundle, "second") && starter.calls.Load() >= 2
	}, 20*time.Second, 50*time.Millisecond)

	// the rebuild notified the supervisor again but nothing was respawned
	require.EqualValues(t, 1, spawner.spawns.Load())
	require.True(t, sup.Running())

	// development output is not minified and screen clearing is off
	require.True(t, fileContains(bundle, "console.log(\"second\")"))
	require.Empty(t, terminal.String())

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestPipeline_WatchClearScreen(t *testing.T) {
	root := writeProject(t, map[string]string{
		"src/main.js": "console.log('hello');\n",
	})

	p := pipelineFor(root, mode.Mode{}, plugins.Options{})
	p.config.Watch.ClearScreen = true

	terminal := &syncBuffer{}
	p.WithTerminal(terminal)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- p.Watch(ctx)
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(terminal.String(), clearScreen)
	}, 10*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func fileContains(path, substr string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return strings.Contains(string(data), substr)
}
