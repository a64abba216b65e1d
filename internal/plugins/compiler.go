package plugins

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	consolestream "github.com/wolfeidau/console-stream"
)

var ErrCompileFailed = errors.New("component compile failed")

// CommandCompiler runs an external component compiler once per file. The
// command receives --filename, --js-out, --css-out and, in development, --dev.
// Anything it prints is treated as a warning.
type CommandCompiler struct {
	Command string
	Args    []string
}

func (c *CommandCompiler) Compile(ctx context.Context, filename string, _ []byte, opts CompileOptions) (*CompileResult, error) {
	dir, err := os.MkdirTemp("", "spabundle-compile-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create compile dir: %w", err)
	}
	defer os.RemoveAll(dir)

	jsOut := filepath.Join(dir, "component.js")
	cssOut := filepath.Join(dir, "component.css")

	args := append([]string{}, c.Args...)
	args = append(args, "--filename", filename, "--js-out", jsOut, "--css-out", cssOut)
	if opts.Dev {
		args = append(args, "--dev")
	}

	process := consolestream.NewProcess(c.Command, args,
		consolestream.WithPipeMode(),
		consolestream.WithFlushInterval(100*time.Millisecond),
	)

	var output bytes.Buffer
	for event, err := range process.ExecuteAndStream(ctx) {
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrCompileFailed, filename, err)
		}

		switch e := event.Event.(type) {
		case *consolestream.OutputData:
			output.Write(e.Data)
		case *consolestream.ProcessEnd:
			if e.ExitCode != 0 {
				return nil, fmt.Errorf("%w: %s: exit code %d: %s",
					ErrCompileFailed, filename, e.ExitCode, strings.TrimSpace(output.String()))
			}
		}
	}

	js, err := os.ReadFile(jsOut)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: no output: %w", ErrCompileFailed, filename, err)
	}

	css, err := os.ReadFile(cssOut)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	res := &CompileResult{
		JS:  string(js),
		CSS: string(css),
	}

	for line := range strings.Lines(output.String()) {
		if line = strings.TrimSpace(line); line != "" {
			res.Warnings = append(res.Warnings, line)
		}
	}

	log.Debug().Str("file", filename).Bool("dev", opts.Dev).Int("warnings", len(res.Warnings)).Msg("Compiled component")

	return res, nil
}
