// Package traj holds the in-memory representation of a molecular dynamics
// trajectory. A trajectory is read once and then shared read-only by every
// calculation performed on it.
package traj

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

var (
	// ErrRead wraps every failure of a trajectory reader.
	ErrRead = errors.New("cannot read trajectory")

	// ErrSpeciesAbsent is returned when the target species has no atom in a
	// configuration.
	ErrSpeciesAbsent = errors.New("species absent")

	// ErrAtomMismatch is returned when two configurations don't contain the
	// same atoms of the target species.
	ErrAtomMismatch = errors.New("atoms don't match")

	// ErrInvalid is returned when a configuration is inconsistent, e.g. when
	// it has not one ID per atom.
	ErrInvalid = errors.New("invalid configuration")

	// ErrNoVelocity is returned when velocities are requested but the
	// configuration doesn't carry them.
	ErrNoVelocity = errors.New("no velocities")
)

// Cell is an orthorhombic simulation box. Lengths holds the edge lengths a, b
// and c. Triclinic is set when the box read was tilted: its lengths are then
// only the bounding box and must not be used for periodic folding.
type Cell struct {
	Origin    r3.Vec
	Lengths   r3.Vec
	Triclinic bool
}

// Snapshot is one configuration of the trajectory. The readers store the atoms
// sorted by their ID but Gather doesn't rely on it. Vel is nil when the trajectory doesn't contain velocities and Cell
// is nil when it doesn't contain a box.
type Snapshot struct {
	Step    int64
	IDs     []int
	Species []string
	Pos     []r3.Vec
	Vel     []r3.Vec
	Cell    *Cell
}

// Len returns the number of atoms.
func (s *Snapshot) Len() int {
	return len(s.Species)
}

// Select returns the indexes of the atoms whose species is equal to species.
// The indexes follow the order of the atoms.
func (s *Snapshot) Select(species string) []int {
	var idx []int
	for i, sp := range s.Species {
		if sp == species {
			idx = append(idx, i)
		}
	}
	return idx
}

// Accessor gives an indexed access to the configurations of a trajectory.
type Accessor interface {
	Len() int
	At(int) (*Snapshot, error)
}

// Trajectory is an Accessor holding every configuration in memory.
type Trajectory struct {
	Snapshots []*Snapshot
}

// Len returns the number of configurations.
func (t *Trajectory) Len() int {
	return len(t.Snapshots)
}

// At returns the configuration c.
func (t *Trajectory) At(c int) (*Snapshot, error) {
	if c < 0 || c >= len(t.Snapshots) {
		return nil, fmt.Errorf("configuration %d out of range [0, %d)", c, len(t.Snapshots))
	}
	return t.Snapshots[c], nil
}

// Pick extracts one vector per atom from a configuration.
type Pick func(*Snapshot) ([]r3.Vec, error)

// Positions is a Pick returning the positions.
func Positions(s *Snapshot) ([]r3.Vec, error) {
	return s.Pos, nil
}

// Velocities is a Pick returning the velocities.
func Velocities(s *Snapshot) ([]r3.Vec, error) {
	if s.Vel == nil {
		return nil, ErrNoVelocity
	}
	return s.Vel, nil
}

// Gather extracts, for every configuration, the vectors of the atoms of the
// given species. The atoms are joined on their ID: the k-th vector of every
// configuration belongs to the k-th atom of the first one, whatever the order
// of the atoms in the configuration. Each configuration must contain exactly
// the atoms of the first one.
func Gather(acc Accessor, species string, pick Pick) ([][]r3.Vec, error) {
	var (
		rows map[int]int
		out  = make([][]r3.Vec, acc.Len())
	)

	for c := range out {
		s, err := acc.At(c)
		if err != nil {
			return nil, fmt.Errorf("configuration %d: %w", c, err)
		}
		if len(s.IDs) != len(s.Species) {
			return nil, fmt.Errorf("configuration %d: %w: %d IDs for %d atoms", c, ErrInvalid, len(s.IDs), len(s.Species))
		}

		idx := s.Select(species)
		if len(idx) == 0 {
			return nil, fmt.Errorf("configuration %d: %w: %q", c, ErrSpeciesAbsent, species)
		}

		vecs, err := pick(s)
		if err != nil {
			return nil, fmt.Errorf("configuration %d: %w", c, err)
		}
		if len(vecs) != len(s.Species) {
			return nil, fmt.Errorf("configuration %d: %w: %d vectors for %d atoms", c, ErrInvalid, len(vecs), len(s.Species))
		}

		if c == 0 {
			rows = make(map[int]int, len(idx))
			for k, i := range idx {
				if _, ok := rows[s.IDs[i]]; ok {
					return nil, fmt.Errorf("configuration %d: %w: duplicate ID %d", c, ErrInvalid, s.IDs[i])
				}
				rows[s.IDs[i]] = k
			}
		}

		sel, err := join(rows, s.IDs, idx, vecs)
		if err != nil {
			return nil, fmt.Errorf("configuration %d: %w", c, err)
		}
		out[c] = sel
	}

	return out, nil
}

// join places the vectors of the selected atoms at the row of their ID.
func join(rows map[int]int, ids, idx []int, vecs []r3.Vec) ([]r3.Vec, error) {
	if len(idx) != len(rows) {
		return nil, fmt.Errorf("%w: %d atoms (expected %d)", ErrAtomMismatch, len(idx), len(rows))
	}

	sel := make([]r3.Vec, len(rows))
	seen := make([]bool, len(rows))
	for _, i := range idx {
		k, ok := rows[ids[i]]
		if !ok {
			return nil, fmt.Errorf("%w: unexpected atom %d", ErrAtomMismatch, ids[i])
		}
		if seen[k] {
			return nil, fmt.Errorf("%w: duplicate atom %d", ErrAtomMismatch, ids[i])
		}
		seen[k] = true
		sel[k] = vecs[i]
	}
	return sel, nil
}
