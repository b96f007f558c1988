package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/spabundle/internal/descriptor"
	"github.com/wolfeidau/spabundle/internal/logger"
)

type Globals struct {
	Debug   bool
	Version string
}

// stdout receives command output.
var stdout io.Writer = os.Stdout

// defaultConfigNames are tried in order when no descriptor file is given.
var defaultConfigNames = []string{"spabundle.yaml", "spabundle.yml", "spabundle.json", "spabundle.jsonc"}

// DescriptorFlags select and adjust the descriptor a command works on.
type DescriptorFlags struct {
	Config    string `help:"descriptor file (YAML or JSON); defaults to spabundle.yaml in the working directory, then the built-in Vue descriptor" short:"c" env:"SPABUNDLE_CONFIG"`
	Mode      string `help:"override the descriptor mode (production or development)" env:"SPABUNDLE_MODE"`
	BuildTime string `help:"build timestamp as RFC3339 or unix seconds; defaults to now" env:"SPABUNDLE_BUILD_TIME,SOURCE_DATE_EPOCH"`
}

// Load resolves the descriptor and the build time it was evaluated with.
func (f *DescriptorFlags) Load() (*descriptor.Descriptor, time.Time, error) {
	buildTime, err := parseBuildTime(f.BuildTime)
	if err != nil {
		return nil, time.Time{}, err
	}

	path := f.Config
	if path == "" {
		path = findConfig(".")
	}

	var d *descriptor.Descriptor
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, time.Time{}, err
		}
		d = descriptor.Default(descriptor.DefaultProjectOptions(buildTime))
		d.Context = wd
		log.Debug().Msg("Using built-in descriptor")
	} else {
		d, err = descriptor.Load(path)
		if err != nil {
			return nil, time.Time{}, err
		}
		log.Debug().Str("config", path).Msg("Loaded descriptor")
	}

	switch descriptor.Mode(f.Mode) {
	case "":
	case descriptor.ModeProduction, descriptor.ModeDevelopment:
		d.Mode = descriptor.Mode(f.Mode)
	default:
		return nil, time.Time{}, fmt.Errorf("%w: mode %q must be production or development", descriptor.ErrInvalidDescriptor, f.Mode)
	}

	return d, buildTime, nil
}

func findConfig(dir string) string {
	for _, name := range defaultConfigNames {
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

// parseBuildTime accepts RFC3339 timestamps and unix seconds, the latter so
// SOURCE_DATE_EPOCH works for reproducible builds.
func parseBuildTime(value string) (time.Time, error) {
	if value == "" {
		return time.Now(), nil
	}
	if secs, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, errors.New("build time must be RFC3339 or unix seconds")
	}
	return t, nil
}

func setupLogger(globals *Globals) zerolog.Logger {
	l := logger.Setup(globals.Debug)
	log.Logger = l
	return l
}
