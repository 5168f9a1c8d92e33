// Package lag schedules calculations performed for every time lag of a
// trajectory. It contains the adaptive stride used to sample the starting
// configurations and a driver running the lags in parallel.
package lag

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrLag is returned when a lag is outside [1, n-1].
	ErrLag = errors.New("lag out of range")

	// ErrTooShort is returned when the trajectory has less than two
	// configurations: no lag exists.
	ErrTooShort = errors.New("trajectory too short")
)

// Lags returns the number of lags, n-1, of a trajectory of n configurations.
func Lags(n int) (int, error) {
	if n < 2 {
		return 0, fmt.Errorf("%w: %d configuration(s)", ErrTooShort, n)
	}
	return n - 1, nil
}

// Time returns the physical time elapsed during t lags, each lasting
// stepDuration simulation steps of timeConversion.
func Time(t int, stepDuration, timeConversion float64) float64 {
	return float64(t) * stepDuration * timeConversion
}

// Stride returns the spacing between two starting configurations for the lag t
// in a trajectory of n configurations: max(1, 0.1n - 0.1t) truncated. Small
// lags, which have the most starting configurations, are sampled the most
// coarsely.
func Stride(n, t int) int {
	// Both products are rounded before the subtraction. The conversions
	// forbid a fused multiply-add, which truncates differently on some
	// architectures (arm64, ppc64le, s390x).
	s := float64(0.1*float64(n)) - float64(0.1*float64(t))
	if s < 1 {
		return 1
	}
	return int(s)
}

// Starts returns the starting configurations sampled for the lag t. There is
// at least one when 1 <= t < n.
func Starts(n, t int) ([]int, error) {
	if t < 1 || t >= n {
		return nil, fmt.Errorf("%w: %d not in [1, %d]", ErrLag, t, n-1)
	}

	stride := Stride(n, t)
	starts := make([]int, 0, (n-t+stride-1)/stride)
	for i := 0; i+t < n; i += stride {
		starts = append(starts, i)
	}
	return starts, nil
}

// Chunk is a contiguous range of lags [From, To].
type Chunk struct {
	From int
	To   int
}

// Len returns the number of lags in the chunk.
func (c Chunk) Len() int {
	return c.To - c.From + 1
}

// Partition splits the lags 1..lags into at most workers contiguous chunks.
// The chunks are ordered, their sizes differ by at most one and they cover
// every lag exactly once.
func Partition(lags, workers int) []Chunk {
	if lags <= 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}
	if workers > lags {
		workers = lags
	}

	size, rem := lags/workers, lags%workers
	chunks := make([]Chunk, workers)
	from := 1
	for w := range chunks {
		n := size
		if w < rem {
			n++
		}
		chunks[w] = Chunk{From: from, To: from + n - 1}
		from += n
	}
	return chunks
}

// Run calls fn for every lag 1..lags and returns the results ordered by lag:
// the result of the lag t is at index t-1. The lags are split into contiguous
// chunks processed by up to workers goroutines. The first error stops the
// remaining chunks and is returned.
func Run[T any](ctx context.Context, lags, workers int, fn func(ctx context.Context, lag int) (T, error)) ([]T, error) {
	log := zerolog.Ctx(ctx)
	res := make([]T, lags)
	chunks := Partition(lags, workers)

	g, ctx := errgroup.WithContext(ctx)
	for w, c := range chunks {
		g.Go(func() error {
			start := time.Now()
			for t := c.From; t <= c.To; t++ {
				if err := ctx.Err(); err != nil {
					return err
				}

				v, err := fn(ctx, t)
				if err != nil {
					return fmt.Errorf("lag %d: %w", t, err)
				}
				res[t-1] = v
			}

			log.Debug().
				Int("worker", w).
				Int("from", c.From).
				Int("to", c.To).
				Int("lags", c.Len()).
				Dur("took", time.Since(start)).
				Msg("Chunk done")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}
