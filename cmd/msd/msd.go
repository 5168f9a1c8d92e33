package main

import (
	"context"
	"os"

	"github.com/kpotier/selfdiff/v2/internal/cli"
	"github.com/kpotier/selfdiff/v2/pkg/cfg"
)

func main() {
	os.Exit(cli.Run("msd",
		"Calculates the mean squared displacement of a species from a LAMMPS trajectory.",
		os.Args[1:], os.Stdout, os.Stderr,
		func(ctx context.Context, c *cfg.Cfg) error {
			return c.MSD(ctx)
		}))
}
