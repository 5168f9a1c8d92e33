// Package vac computes the velocity autocorrelation function of one species
// over a trajectory. The lags are sampled and averaged like the mean squared
// displacement.
package vac

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/kpotier/selfdiff/v2/pkg/lag"
	"github.com/kpotier/selfdiff/v2/pkg/traj"
)

// Options are the parameters of the calculation.
type Options struct {
	Species        string
	StepDuration   float64
	TimeConversion float64
	Workers        int
}

// Point is the velocity autocorrelation for one lag. Normalized is C divided by
// the autocorrelation at t = 0.
type Point struct {
	Lag        int
	Time       float64
	C          float64
	Normalized float64
}

// VAC is the result of Compute.
type VAC struct {
	// C0 is the mean squared velocity, i.e. the autocorrelation at t = 0.
	C0     float64
	Series []Point

	// Integral is the integral of C over the time, from t = 0. D is the
	// self diffusion coefficient given by the Green-Kubo relation.
	Integral float64
	D        float64
}

// Compute performs the velocity autocorrelation function for every lag
// 1..N-1 of the trajectory.
func Compute(ctx context.Context, acc traj.Accessor, opts Options) (*VAC, error) {
	log := zerolog.Ctx(ctx)

	n := acc.Len()
	lags, err := lag.Lags(n)
	if err != nil {
		return nil, err
	}

	vel, err := traj.Gather(acc, opts.Species, traj.Velocities)
	if err != nil {
		return nil, fmt.Errorf("Gather: %w", err)
	}

	log.Info().
		Int("configurations", n).
		Int("atoms", len(vel[0])).
		Str("species", opts.Species).
		Int("workers", opts.Workers).
		Msg("Calculating the velocity autocorrelation function")

	var v0 []float64
	for _, v := range vel {
		v0 = append(v0, mean(v, v))
	}
	c0 := floats.Sum(v0) / float64(len(v0))

	start := time.Now()
	series, err := lag.Run(ctx, lags, opts.Workers, func(_ context.Context, t int) (Point, error) {
		starts, err := lag.Starts(n, t)
		if err != nil {
			return Point{}, err
		}

		c := make([]float64, len(starts))
		for k, i := range starts {
			c[k] = mean(vel[i], vel[i+t])
		}

		p := Point{Lag: t, Time: lag.Time(t, opts.StepDuration, opts.TimeConversion)}
		p.C = floats.Sum(c) / float64(len(c))
		if c0 != 0 {
			p.Normalized = p.C / c0
		}
		return p, nil
	})
	if err != nil {
		return nil, err
	}

	x := []float64{0}
	y := []float64{c0}
	for _, p := range series {
		x = append(x, p.Time)
		y = append(y, p.C)
	}
	integral := integrate.Trapezoidal(x, y)

	log.Info().Int("lags", lags).Dur("took", time.Since(start)).Msg("Velocity autocorrelation function done")
	return &VAC{C0: c0, Series: series, Integral: integral, D: integral / 3}, nil
}

// mean returns the mean over the atoms of the dot product a·b.
func mean(a, b []r3.Vec) float64 {
	dot := make([]float64, len(a))
	for i := range a {
		dot[i] = r3.Dot(a[i], b[i])
	}
	return floats.Sum(dot) / float64(len(dot))
}
