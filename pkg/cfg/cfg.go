package cfg

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/kpotier/selfdiff/v2/pkg/msd"
	"github.com/kpotier/selfdiff/v2/pkg/output"
	"github.com/kpotier/selfdiff/v2/pkg/traj"
	"github.com/kpotier/selfdiff/v2/pkg/traj/lammpstrj"
	"github.com/kpotier/selfdiff/v2/pkg/vac"
)

// Type is the type of the trajectory
type Type string

// Here are the accepted types. Lammpstrj is a Lammps Trajectory file.
var (
	TLammpstrj Type = "lammpstrj"
)

// EnvPrefix is the prefix of the environment variables overriding the
// configuration (e.g. SELFDIFF_SPECIES).
const EnvPrefix = "SELFDIFF"

// Cfg is a structure containing the parameters of a calculation. It can be
// instanced through the New or Load functions or by "hand". If it is instanced
// by hand, please use the Check method to check if the Cfg meets the
// requirements.
type Cfg struct {
	// Traj is the file containing the configurations
	Traj string `mapstructure:"traj" yaml:"traj"`

	// Out is the CSV file written. If empty, it is derived from Traj.
	Out string `mapstructure:"out" yaml:"out"`

	// Type is the type of trajectory (e.g: lammpstrj)
	Type Type `mapstructure:"type" yaml:"type"`

	// Species is the species studied (e.g: H)
	Species string `mapstructure:"species" yaml:"species"`

	// Types maps the LAMMPS atom types to species. Types that are not listed
	// are read as atomic numbers.
	Types map[string]string `mapstructure:"types" yaml:"types,omitempty"`

	// Start is the first configuration that will be read. It must be greater
	// or equal to 0
	Start int `mapstructure:"start" yaml:"start"`

	// End is the configuration at which the reading stops. It means that if
	// End = 1000, the configurations 0 to 999 are read. 0 means until the end
	End int `mapstructure:"end" yaml:"end"`

	// StepDuration is the number of simulation steps between two
	// configurations
	StepDuration float64 `mapstructure:"stepDuration" yaml:"stepDuration"`

	// TimeConversion is the physical time of one simulation step
	TimeConversion float64 `mapstructure:"timeConversion" yaml:"timeConversion"`

	// Fold applies the minimum image convention to the displacements. The
	// trajectory must contain an orthorhombic box
	Fold bool `mapstructure:"fold" yaml:"fold"`

	// Workers is the number of goroutines sharing the calculation
	Workers int `mapstructure:"workers" yaml:"workers"`

	// Precision is the number of significant figures written for the results
	Precision int `mapstructure:"precision" yaml:"precision"`

	// Plot and Chart are optional PNG and HTML renderings of the curve
	Plot  string `mapstructure:"plot" yaml:"plot,omitempty"`
	Chart string `mapstructure:"chart" yaml:"chart,omitempty"`

	// FitFrom and FitTo delimit the part of the MSD used to compute the
	// diffusion coefficient, as fractions of the number of lags
	FitFrom float64 `mapstructure:"fitFrom" yaml:"fitFrom"`
	FitTo   float64 `mapstructure:"fitTo" yaml:"fitTo"`

	// LogLevel is the level of the logger
	LogLevel string `mapstructure:"logLevel" yaml:"logLevel"`
}

// SetDefaults sets the default values into v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("traj", "")
	v.SetDefault("out", "")
	v.SetDefault("type", string(TLammpstrj))
	v.SetDefault("species", msd.DefaultSpecies)
	v.SetDefault("types", map[string]string{})
	v.SetDefault("start", 0)
	v.SetDefault("end", 0)
	v.SetDefault("stepDuration", msd.DefaultStepDuration)
	v.SetDefault("timeConversion", msd.DefaultTimeConversion)
	v.SetDefault("fold", false)
	v.SetDefault("workers", runtime.NumCPU())
	v.SetDefault("precision", 10)
	v.SetDefault("plot", "")
	v.SetDefault("chart", "")
	v.SetDefault("fitFrom", 0.1)
	v.SetDefault("fitTo", 0.9)
	v.SetDefault("logLevel", "info")
}

// New opens and decodes the specified configuration file (YAML, JSON, TOML or
// any format known by viper). The defaults are used for the missing fields.
// This method automatically calls the Check method to check the integrity of
// Cfg.
func New(path string) (*Cfg, error) {
	v := viper.New()
	SetDefaults(v)
	return Load(v, path)
}

// Load decodes the configuration held by v. If path isn't empty, the file is
// read first. The environment variables prefixed by EnvPrefix override the
// values of the file. SetDefaults must have been called on v.
func Load(v *viper.Viper, path string) (*Cfg, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var c Cfg
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("Unmarshal: %w", err)
	}

	if err := c.Check(); err != nil {
		return nil, fmt.Errorf("Check: %w", err)
	}

	return &c, nil
}

// Check checks if Cfg is correct. It returns an error if a field doesn't meet
// the requirements.
func (c *Cfg) Check() error {
	if c.Traj == "" {
		return fmt.Errorf("Traj must be specified")
	}

	if c.Type != TLammpstrj {
		return fmt.Errorf("unsupported type %q", c.Type)
	}

	if c.Species == "" {
		return fmt.Errorf("Species must be specified")
	}

	if c.Start < 0 {
		return fmt.Errorf("Start must be greater or equal to 0")
	}

	if c.End != 0 && c.End <= c.Start {
		return fmt.Errorf("End cannot be lower or equal to Start")
	}

	if c.End != 0 && (c.End-c.Start) == 1 {
		return fmt.Errorf("End-Start must not be equal to 1")
	}

	if c.StepDuration <= 0 || c.TimeConversion <= 0 {
		return fmt.Errorf("StepDuration and TimeConversion must be greater than 0")
	}

	if c.Workers < 1 {
		return fmt.Errorf("Workers must be greater or equal to 1")
	}

	if c.Precision < 1 || c.Precision > 17 {
		return fmt.Errorf("Precision must be between 1 and 17")
	}

	if c.FitFrom < 0 || c.FitTo > 1 || c.FitFrom >= c.FitTo {
		return fmt.Errorf("FitFrom and FitTo must satisfy 0 <= FitFrom < FitTo <= 1")
	}

	return nil
}

// YAML returns the configuration encoded in YAML.
func (c *Cfg) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// Trajectory reads the trajectory.
func (c *Cfg) Trajectory() (*traj.Trajectory, error) {
	switch c.Type {
	case TLammpstrj:
		return lammpstrj.ReadFile(c.Traj, lammpstrj.Options{Start: c.Start, End: c.End, Types: c.Types})
	default:
		return nil, fmt.Errorf("unsupported type %q", c.Type)
	}
}

// output returns Out or, if empty, the path of the trajectory with the given
// suffix.
func (c *Cfg) output(suffix string) string {
	if c.Out != "" {
		return c.Out
	}
	return fmt.Sprint(c.Traj, suffix)
}

// MSD calculates the mean squared displacement and writes it, with the
// optional plot and chart. The diffusion coefficient is logged.
func (c *Cfg) MSD(ctx context.Context) error {
	log := zerolog.Ctx(ctx)

	log.Info().Str("path", c.Traj).Msg("Reading the trajectory")
	t, err := c.Trajectory()
	if err != nil {
		return err
	}

	opts := msd.DefaultOptions(c.Workers)
	opts.Species = c.Species
	opts.StepDuration = c.StepDuration
	opts.TimeConversion = c.TimeConversion
	opts.Fold = c.Fold
	series, err := msd.Compute(ctx, t, opts)
	if err != nil {
		return err
	}

	out := c.output("_msd.csv")
	table := output.Table{
		Header:  []string{"Time", "Average MSD"},
		Columns: [][]float64{series.Times(), series.Values()},
	}
	if err := output.WriteCSV(out, table, c.Precision); err != nil {
		return fmt.Errorf("WriteCSV: %w", err)
	}
	log.Info().Str("path", out).Msg("Data has been written")

	fit, err := msd.Diffusion(series, c.FitFrom, c.FitTo)
	if err != nil {
		log.Warn().Err(err).Msg("Cannot estimate the diffusion coefficient")
	} else {
		log.Info().
			Float64("D", fit.D).
			Float64("slope", fit.Slope).
			Float64("r2", fit.R2).
			Int("points", fit.Points).
			Msg("Self diffusion coefficient (MSD = 6Dt)")
	}

	return c.render(ctx, output.Curve{
		Title:  "Mean squared displacement of " + c.Species,
		Name:   "MSD",
		XLabel: "Time",
		YLabel: "Average MSD",
		X:      series.Times(),
		Y:      series.Values(),
	})
}

// VAC calculates the velocity autocorrelation function and writes it, with the
// optional plot and chart. The trajectory must contain the velocities.
func (c *Cfg) VAC(ctx context.Context) error {
	log := zerolog.Ctx(ctx)

	log.Info().Str("path", c.Traj).Msg("Reading the trajectory")
	t, err := c.Trajectory()
	if err != nil {
		return err
	}

	res, err := vac.Compute(ctx, t, vac.Options{
		Species:        c.Species,
		StepDuration:   c.StepDuration,
		TimeConversion: c.TimeConversion,
		Workers:        c.Workers,
	})
	if err != nil {
		return err
	}

	times := make([]float64, len(res.Series))
	cs := make([]float64, len(res.Series))
	norm := make([]float64, len(res.Series))
	for i, p := range res.Series {
		times[i], cs[i], norm[i] = p.Time, p.C, p.Normalized
	}

	out := c.output("_vac.csv")
	table := output.Table{
		Header:  []string{"Time", "VAC", "Normalized VAC"},
		Columns: [][]float64{times, cs, norm},
	}
	if err := output.WriteCSV(out, table, c.Precision); err != nil {
		return fmt.Errorf("WriteCSV: %w", err)
	}
	log.Info().Str("path", out).Msg("Data has been written")

	log.Info().
		Float64("integral", res.Integral).
		Float64("D", res.D).
		Float64("c0", res.C0).
		Msg("Self diffusion coefficient (Green-Kubo)")

	return c.render(ctx, output.Curve{
		Title:  "Velocity autocorrelation of " + c.Species,
		Name:   "Normalized VAC",
		XLabel: "Time",
		YLabel: "Normalized VAC",
		X:      times,
		Y:      norm,
	})
}

// render writes the optional plot and chart.
func (c *Cfg) render(ctx context.Context, curve output.Curve) error {
	log := zerolog.Ctx(ctx)

	if c.Plot != "" {
		if err := output.PlotPNG(c.Plot, curve); err != nil {
			return fmt.Errorf("PlotPNG: %w", err)
		}
		log.Info().Str("path", c.Plot).Msg("Plot has been written")
	}

	if c.Chart != "" {
		f, err := os.Create(c.Chart)
		if err != nil {
			return err
		}
		if err := output.ChartHTML(f, curve); err != nil {
			f.Close()
			return fmt.Errorf("ChartHTML: %w", err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		log.Info().Str("path", c.Chart).Msg("Chart has been written")
	}

	return nil
}
