// Package msd computes the mean squared displacement of one species over a
// trajectory. For every lag t, displacements are sampled between
// configurations separated by t (see Sampler), averaged over the atoms of each
// sample and then over the samples.
package msd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/kpotier/selfdiff/v2/pkg/lag"
	"github.com/kpotier/selfdiff/v2/pkg/traj"
)

var (
	// ErrTooShort is returned when the trajectory has less than two
	// configurations: no lag exists.
	ErrTooShort = lag.ErrTooShort

	// ErrNoCell is returned when folding is requested but a configuration
	// doesn't have a box.
	ErrNoCell = errors.New("folding requires a box")

	// ErrTriclinic is returned when folding is requested with a tilted box.
	ErrTriclinic = errors.New("folding requires an orthorhombic box")

	// ErrEmpty is returned when averaging nothing.
	ErrEmpty = errors.New("nothing to average")
)

// Default values of Options.
const (
	DefaultSpecies        = "H"
	DefaultStepDuration   = 100
	DefaultTimeConversion = 0.00025
)

// Options are the parameters of the calculation.
type Options struct {
	// Species is the species whose displacement is measured.
	Species string

	// StepDuration is the number of simulation steps between two
	// configurations.
	StepDuration float64

	// TimeConversion converts one simulation step into a physical time.
	TimeConversion float64

	// Fold enables the minimum image convention on the displacements.
	Fold bool

	// Workers is the number of goroutines sharing the lags. Values lower
	// than 1 mean 1.
	Workers int
}

// DefaultOptions returns the default options with the given number of workers.
func DefaultOptions(workers int) Options {
	return Options{
		Species:        DefaultSpecies,
		StepDuration:   DefaultStepDuration,
		TimeConversion: DefaultTimeConversion,
		Workers:        workers,
	}
}

// Time returns the physical time elapsed during t lags.
func (o Options) Time(t int) float64 {
	return lag.Time(t, o.StepDuration, o.TimeConversion)
}

// Point is the mean squared displacement for one lag.
type Point struct {
	Lag  int
	Time float64
	MSD  float64
}

// Series is the mean squared displacement ordered by increasing lag.
type Series []Point

// Times returns the times of the series.
func (s Series) Times() []float64 {
	x := make([]float64, len(s))
	for i, p := range s {
		x[i] = p.Time
	}
	return x
}

// Values returns the mean squared displacements of the series.
func (s Series) Values() []float64 {
	y := make([]float64, len(s))
	for i, p := range s {
		y[i] = p.MSD
	}
	return y
}

// SampleMSD returns the mean over the atoms of the squared displacement.
func SampleMSD(d Displacement) (float64, error) {
	if len(d) == 0 {
		return 0, ErrEmpty
	}

	sq := make([]float64, len(d))
	for a, v := range d {
		sq[a] = r3.Norm2(v)
	}
	return floats.Sum(sq) / float64(len(sq)), nil
}

// Aggregate returns the mean over the samples of the per-sample mean squared
// displacement. The two means are kept separate.
func Aggregate(samples []Displacement) (float64, error) {
	if len(samples) == 0 {
		return 0, ErrEmpty
	}

	msd := make([]float64, len(samples))
	for k, d := range samples {
		v, err := SampleMSD(d)
		if err != nil {
			return 0, fmt.Errorf("sample %d: %w", k, err)
		}
		msd[k] = v
	}
	return floats.Sum(msd) / float64(len(msd)), nil
}

// Compute performs the mean squared displacement for every lag 1..N-1 of the
// trajectory. The result doesn't depend on the number of workers.
func Compute(ctx context.Context, acc traj.Accessor, opts Options) (Series, error) {
	log := zerolog.Ctx(ctx)

	s, err := NewSampler(acc, opts.Species, opts.Fold)
	if err != nil {
		return nil, fmt.Errorf("NewSampler: %w", err)
	}

	lags, err := lag.Lags(s.Len())
	if err != nil {
		return nil, err
	}
	log.Info().
		Int("configurations", s.Len()).
		Int("atoms", s.Atoms()).
		Str("species", opts.Species).
		Bool("fold", opts.Fold).
		Int("workers", opts.Workers).
		Msg("Calculating the mean squared displacement")

	start := time.Now()
	series, err := lag.Run(ctx, lags, opts.Workers, func(_ context.Context, t int) (Point, error) {
		samples, err := s.Sample(t)
		if err != nil {
			return Point{}, err
		}

		v, err := Aggregate(samples)
		if err != nil {
			return Point{}, err
		}
		return Point{Lag: t, Time: opts.Time(t), MSD: v}, nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Int("lags", lags).Dur("took", time.Since(start)).Msg("Mean squared displacement done")
	return series, nil
}
