// Package cli holds the command line shared by the commands: flag parsing,
// configuration loading and logger setup.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/kpotier/selfdiff/v2/internal/logging"
	"github.com/kpotier/selfdiff/v2/pkg/cfg"
)

// Command is the calculation run once the configuration is loaded.
type Command func(ctx context.Context, c *cfg.Cfg) error

// flags maps the flags to the configuration keys.
var flags = map[string]string{
	"num_processes":   "workers",
	"species":         "species",
	"fold":            "fold",
	"precision":       "precision",
	"start":           "start",
	"end":             "end",
	"step-duration":   "stepDuration",
	"time-conversion": "timeConversion",
	"plot":            "plot",
	"chart":           "chart",
	"log-level":       "logLevel",
}

// Run parses args (without the program name), loads the configuration and
// runs cmd. It returns the exit code of the program. The logs are written into
// stderr and --print-config writes into stdout.
func Run(name, desc string, args []string, stdout, stderr io.Writer, cmd Command) int {
	v := viper.New()
	cfg.SetDefaults(v)

	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "%s\n\nUsage: %s [flags] [input_file [output_file]]\n\n", desc, name)
		fs.PrintDefaults()
	}

	config := fs.String("config", "", "configuration file (yaml, json, toml)")
	printCfg := fs.Bool("print-config", false, "print the resolved configuration and exit")
	jsonLog := fs.Bool("json-log", false, "write the logs as JSON")
	fs.IntP("num_processes", "n", v.GetInt("workers"), "number of goroutines sharing the lags")
	fs.String("species", v.GetString("species"), "species whose displacement is measured")
	fs.Bool("fold", false, "apply the minimum image convention (requires an orthorhombic box)")
	fs.Int("precision", v.GetInt("precision"), "significant figures of the results")
	fs.Int("start", 0, "first configuration read")
	fs.Int("end", 0, "configuration at which the reading stops (0: end of file)")
	fs.Float64("step-duration", v.GetFloat64("stepDuration"), "simulation steps between two configurations")
	fs.Float64("time-conversion", v.GetFloat64("timeConversion"), "physical time of one simulation step")
	fs.String("plot", "", "write a plot of the curve (png, svg, pdf)")
	fs.String("chart", "", "write an interactive HTML chart of the curve")
	fs.String("log-level", v.GetString("logLevel"), "log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	for f, key := range flags {
		if err := v.BindPFlag(key, fs.Lookup(f)); err != nil {
			fmt.Fprintln(stderr, err)
			return 2
		}
	}

	switch fs.NArg() {
	case 2:
		v.Set("out", fs.Arg(1))
		fallthrough
	case 1:
		v.Set("traj", fs.Arg(0))
	case 0:
	default:
		fs.Usage()
		return 2
	}

	// The level must be known before loading the configuration, which may
	// fail.
	level := v.GetString("logLevel")
	log, err := logging.New(stderr, level, *jsonLog)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	if *config != "" {
		log.Info().Str("path", *config).Msg("Reading configuration file")
	}
	c, err := cfg.Load(v, *config)
	if err != nil {
		log.Error().Err(err).Msg("Cannot load the configuration")
		return 1
	}

	if c.LogLevel != level {
		log, err = logging.New(stderr, c.LogLevel, *jsonLog)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 2
		}
	}

	if *printCfg {
		b, err := c.YAML()
		if err != nil {
			log.Error().Err(err).Msg("Cannot encode the configuration")
			return 1
		}
		if _, err := stdout.Write(b); err != nil {
			log.Error().Err(err).Msg("Cannot write the configuration")
			return 1
		}
		return 0
	}

	ctx := log.WithContext(context.Background())
	if err := cmd(ctx, c); err != nil {
		log.Error().Err(err).Msg("Calculation failed")
		return 1
	}

	log.Info().Msg("Done")
	return 0
}
