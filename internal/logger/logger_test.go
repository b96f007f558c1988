package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestMessages(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, false)

	Messages(log, zerolog.WarnLevel, []api.Message{
		{
			Text:       "Could not resolve \"vue\"",
			PluginName: "spabundle-alias",
			Location:   &api.Location{File: "src/main.js", Line: 1, Column: 7},
			Notes:      []api.Note{{Text: "You can mark the path as external"}},
		},
	})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "warn", entry["level"])
	require.Equal(t, "Could not resolve \"vue\"", entry["message"])
	require.Equal(t, "src/main.js", entry["file"])
	require.EqualValues(t, 1, entry["line"])
	require.Equal(t, "spabundle-alias", entry["plugin"])
	require.Equal(t, []any{"You can mark the path as external"}, entry["notes"])
}

func TestNew_Level(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, false)
	log.Debug().Msg("hidden")
	require.Empty(t, buf.String())

	log.Info().Msg("shown")
	require.Contains(t, buf.String(), "shown")
}
