package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/wolfeidau/spabundle/cmd/spabundle/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Build    commands.BuildCmd    `cmd:"" help:"Build the bundle described by a descriptor"`
		Validate commands.ValidateCmd `cmd:"" help:"Validate a descriptor against the source tree"`
		Inspect  commands.InspectCmd  `cmd:"" help:"Print the resolved descriptor"`
		Init     commands.InitCmd     `cmd:"" help:"Write the default descriptor to a file"`
		Serve    commands.ServeCmd    `cmd:"" help:"Rebuild on change and serve the output directory"`
		Debug    bool                 `help:"Enable debug mode." env:"SPABUNDLE_DEBUG"`
		Version  kong.VersionFlag
	}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := kong.Parse(&cli,
		kong.Name("spabundle"),
		kong.Description("Bundle a Vue single-page application from a build descriptor."),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}
