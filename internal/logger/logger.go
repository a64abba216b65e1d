package logger

import (
	"os"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Setup(dev bool) zerolog.Logger {
	var logger zerolog.Logger
	level := zerolog.InfoLevel
	if dev {
		level = zerolog.DebugLevel
	}

	logger = zerolog.New(os.Stderr).Level(level).With().Timestamp().Caller().Logger()

	if dev {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, FormatTimestamp: func(i any) string {
			return time.Now().Format(time.RFC3339)
		}}).Level(level).With().Stack().Logger()
	}

	// packages log through the global logger
	log.Logger = logger

	return logger
}

// Messages writes esbuild diagnostics to the logger at the given level, one event per message.
func Messages(logger zerolog.Logger, level zerolog.Level, msgs []api.Message) {
	for _, msg := range msgs {
		evt := logger.WithLevel(level).Str("text", msg.Text)

		if msg.PluginName != "" {
			evt = evt.Str("plugin", msg.PluginName)
		}

		if loc := msg.Location; loc != nil {
			evt = evt.Str("file", loc.File).Int("line", loc.Line).Int("column", loc.Column)
		}

		for _, note := range msg.Notes {
			evt = evt.Str("note", note.Text)
		}

		evt.Msg(levelMessage(level))
	}
}

func levelMessage(level zerolog.Level) string {
	switch level {
	case zerolog.ErrorLevel:
		return "Build error"
	case zerolog.WarnLevel:
		return "Build warning"
	default:
		return "Build message"
	}
}
