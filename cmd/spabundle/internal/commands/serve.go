package commands

import (
	"context"
	"fmt"

	"github.com/wolfeidau/spabundle/internal/bundler"
	"github.com/wolfeidau/spabundle/internal/descriptor"
	"github.com/wolfeidau/spabundle/internal/devserver"
	"github.com/wolfeidau/spabundle/internal/htmlgen"
)

type ServeCmd struct {
	DescriptorFlags `embed:""`

	Listen      string   `help:"HTTP server listen address" default:"127.0.0.1:8080" env:"SPABUNDLE_LISTEN"`
	CORSOrigins []string `help:"allowed CORS origins" default:"http://localhost:8080" env:"SPABUNDLE_CORS_ORIGINS"`
	NoWatch     bool     `help:"build once instead of rebuilding on change" default:"false"`
}

func (c *ServeCmd) Run(ctx context.Context, globals *Globals) error {
	log := setupLogger(globals)

	d, buildTime, err := c.Load()
	if err != nil {
		return err
	}
	if c.Mode == "" {
		d.Mode = descriptor.ModeDevelopment
	}

	pipeline, err := bundler.New(d, bundler.Config{BuildTime: buildTime})
	if err != nil {
		return err
	}

	// the first build must succeed so there is something to serve
	if _, err := pipeline.Build(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	watchErr := make(chan error, 1)
	if !c.NoWatch {
		go func() {
			watchErr <- pipeline.Watch(ctx)
		}()
	}

	index := "index.html"
	if act, ok := d.Plugin(descriptor.PluginHTML); ok {
		opts, err := htmlgen.OptionsFrom(act.Options, d.Output.PublicPath)
		if err != nil {
			return err
		}
		index = opts.Filename
	}

	srv := devserver.New(devserver.Config{
		Dir:         pipeline.OutDir(),
		Index:       index,
		Listen:      c.Listen,
		CORSOrigins: c.CORSOrigins,
	}, log)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe(ctx)
	}()

	select {
	case err := <-watchErr:
		cancel()
		<-serveErr
		if err != nil {
			return fmt.Errorf("watching: %w", err)
		}
		return nil
	case err := <-serveErr:
		cancel()
		return err
	}
}
