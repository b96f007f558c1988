package commands

import (
	"context"

	"github.com/wolfeidau/spabundle/internal/descriptor"
)

type InspectCmd struct {
	DescriptorFlags `embed:""`

	Format string `help:"output format" default:"yaml" enum:"yaml,json"`
}

func (c *InspectCmd) Run(ctx context.Context, globals *Globals) error {
	setupLogger(globals)

	d, _, err := c.Load()
	if err != nil {
		return err
	}

	data, err := d.Marshal(descriptor.Format(c.Format))
	if err != nil {
		return err
	}

	_, err = stdout.Write(data)
	return err
}
