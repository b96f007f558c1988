package logger

import (
	"io"
	"os"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog"
)

func Setup(dev bool) zerolog.Logger {
	return New(os.Stderr, dev)
}

// New builds the process logger writing to w. Development mode lowers the
// level to debug and switches to the console writer.
func New(w io.Writer, dev bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if dev {
		level = zerolog.DebugLevel
	}

	logger := zerolog.New(w).Level(level).With().Timestamp().Logger()

	if dev {
		logger = logger.Output(zerolog.ConsoleWriter{Out: w, FormatTimestamp: func(i any) string {
			return time.Now().Format(time.RFC3339)
		}}).Level(level).With().Stack().Logger()
	}

	return logger
}

// Messages logs esbuild diagnostics at the given level, one event per
// message, with the source location when esbuild reports one.
func Messages(logger zerolog.Logger, level zerolog.Level, msgs []api.Message) {
	for _, msg := range msgs {
		ev := logger.WithLevel(level)
		if msg.PluginName != "" {
			ev = ev.Str("plugin", msg.PluginName)
		}
		if loc := msg.Location; loc != nil {
			ev = ev.Str("file", loc.File).Int("line", loc.Line).Int("column", loc.Column)
		}
		if len(msg.Notes) > 0 {
			notes := make([]string, len(msg.Notes))
			for i, note := range msg.Notes {
				notes[i] = note.Text
			}
			ev = ev.Strs("notes", notes)
		}
		ev.Msg(msg.Text)
	}
}
