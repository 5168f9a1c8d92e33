package msd

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/kpotier/selfdiff/v2/pkg/lag"
	"github.com/kpotier/selfdiff/v2/pkg/traj"
)

// Displacement holds the displacement of every atom of the target species
// between two configurations.
type Displacement []r3.Vec

// Sampler computes the displacements of the target species for a given lag.
// It holds the positions of the target species for every configuration and is
// safe for concurrent use once created.
type Sampler struct {
	pos   [][]r3.Vec
	cells []r3.Vec // nil if folding is disabled
}

// NewSampler extracts the positions of the target species. When folding is
// enabled, each configuration must have an orthorhombic box.
func NewSampler(acc traj.Accessor, species string, fold bool) (*Sampler, error) {
	n := acc.Len()
	if _, err := lag.Lags(n); err != nil {
		return nil, err
	}

	pos, err := traj.Gather(acc, species, traj.Positions)
	if err != nil {
		return nil, fmt.Errorf("Gather: %w", err)
	}

	s := &Sampler{pos: pos}
	if !fold {
		return s, nil
	}

	s.cells = make([]r3.Vec, n)
	for c := range s.cells {
		snap, err := acc.At(c)
		if err != nil {
			return nil, fmt.Errorf("configuration %d: %w", c, err)
		}
		switch {
		case snap.Cell == nil:
			return nil, fmt.Errorf("configuration %d: %w", c, ErrNoCell)
		case snap.Cell.Triclinic:
			return nil, fmt.Errorf("configuration %d: %w", c, ErrTriclinic)
		}
		s.cells[c] = snap.Cell.Lengths
	}

	return s, nil
}

// Len returns the number of configurations.
func (s *Sampler) Len() int {
	return len(s.pos)
}

// Atoms returns the number of atoms of the target species.
func (s *Sampler) Atoms() int {
	return len(s.pos[0])
}

// Sample returns one Displacement per starting configuration sampled for the
// lag t (see lag.Starts). Each component is the absolute difference between
// the final and the initial position; it is then folded with the box of the
// initial configuration if folding is enabled.
func (s *Sampler) Sample(t int) ([]Displacement, error) {
	starts, err := lag.Starts(len(s.pos), t)
	if err != nil {
		return nil, err
	}

	samples := make([]Displacement, len(starts))
	for k, i := range starts {
		ini, fin := s.pos[i], s.pos[i+t]

		d := make(Displacement, len(ini))
		for a := range ini {
			v := r3.Vec{
				X: math.Abs(fin[a].X - ini[a].X),
				Y: math.Abs(fin[a].Y - ini[a].Y),
				Z: math.Abs(fin[a].Z - ini[a].Z),
			}
			if s.cells != nil {
				box := s.cells[i]
				v = r3.Vec{X: Fold(v.X, box.X), Y: Fold(v.Y, box.Y), Z: Fold(v.Z, box.Z)}
			}
			d[a] = v
		}
		samples[k] = d
	}

	return samples, nil
}

// Fold applies the minimum image convention to the displacement d along an
// axis of length edge. Displacements equal to half the edge are left
// untouched. The displacements given by Sample are never negative: only the
// first branch applies to them.
func Fold(d, edge float64) float64 {
	half := edge / 2
	switch {
	case d > half:
		return d - edge
	case d < -half:
		return d + edge
	}
	return d
}
