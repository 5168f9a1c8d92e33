package traj

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func snap(ids []int, species []string, x ...float64) *Snapshot {
	s := &Snapshot{IDs: ids, Species: species}
	for _, v := range x {
		s.Pos = append(s.Pos, r3.Vec{X: v})
	}
	return s
}

func TestSelect(t *testing.T) {
	s := snap([]int{1, 2, 3, 4}, []string{"H", "O", "H", "Na"}, 0, 1, 2, 3)
	assert.Equal(t, []int{0, 2}, s.Select("H"))
	assert.Equal(t, []int{3}, s.Select("Na"))
	assert.Empty(t, s.Select("Cl"))
	assert.Equal(t, 4, s.Len())
}

func TestGather(t *testing.T) {
	tr := &Trajectory{Snapshots: []*Snapshot{
		snap([]int{1, 2, 3}, []string{"H", "O", "H"}, 0, 10, 20),
		snap([]int{1, 2, 3}, []string{"H", "O", "H"}, 1, 11, 21),
	}}

	pos, err := Gather(tr, "H", Positions)
	require.NoError(t, err)
	assert.Equal(t, [][]r3.Vec{
		{{X: 0}, {X: 20}},
		{{X: 1}, {X: 21}},
	}, pos)
}

func TestGather_Permuted(t *testing.T) {
	tr := &Trajectory{Snapshots: []*Snapshot{
		snap([]int{1, 2, 3}, []string{"H", "O", "H"}, 0, 10, 20),
		snap([]int{3, 2, 1}, []string{"H", "O", "H"}, 21, 11, 1),
		snap([]int{2, 3, 1}, []string{"O", "H", "H"}, 12, 22, 2),
	}}

	pos, err := Gather(tr, "H", Positions)
	require.NoError(t, err)
	assert.Equal(t, [][]r3.Vec{
		{{X: 0}, {X: 20}},
		{{X: 1}, {X: 21}},
		{{X: 2}, {X: 22}},
	}, pos)
}

func TestGather_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		first *Snapshot
		pick  Pick
	}{
		{"no IDs", snap(nil, []string{"H", "H"}, 0, 1), Positions},
		{"duplicate ID", snap([]int{1, 1}, []string{"H", "H"}, 0, 1), Positions},
		{"short pick", snap([]int{1, 2}, []string{"H", "H"}, 0, 1), func(s *Snapshot) ([]r3.Vec, error) {
			return s.Pos[:1], nil
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &Trajectory{Snapshots: []*Snapshot{tt.first}}
			_, err := Gather(tr, "H", tt.pick)
			require.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), "configuration 0")
		})
	}
}

func TestGather_SpeciesAbsent(t *testing.T) {
	tr := &Trajectory{Snapshots: []*Snapshot{
		snap([]int{1, 2}, []string{"H", "O"}, 0, 1),
		snap([]int{1, 2}, []string{"O", "O"}, 0, 1),
	}}

	_, err := Gather(tr, "H", Positions)
	require.ErrorIs(t, err, ErrSpeciesAbsent)
	assert.Contains(t, err.Error(), "configuration 1")
}

func TestGather_AtomMismatch(t *testing.T) {
	tests := []struct {
		name string
		last *Snapshot
	}{
		{"count", snap([]int{1, 2, 3}, []string{"H", "H", "H"}, 0, 1, 2)},
		{"id", snap([]int{1, 3, 4}, []string{"H", "O", "H"}, 0, 1, 2)},
		{"missing id", snap([]int{3, 2, 4}, []string{"H", "O", "H"}, 0, 1, 2)},
		{"repeated id", snap([]int{3, 2, 3}, []string{"H", "O", "H"}, 0, 1, 2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &Trajectory{Snapshots: []*Snapshot{
				snap([]int{1, 2, 3}, []string{"H", "O", "H"}, 0, 1, 2),
				tt.last,
			}}
			_, err := Gather(tr, "H", Positions)
			require.ErrorIs(t, err, ErrAtomMismatch)
			assert.Contains(t, err.Error(), "configuration 1")
		})
	}
}

func TestGather_NoVelocity(t *testing.T) {
	tr := &Trajectory{Snapshots: []*Snapshot{snap([]int{1}, []string{"H"}, 0)}}

	_, err := Gather(tr, "H", Velocities)
	assert.ErrorIs(t, err, ErrNoVelocity)
}

func TestTrajectory_At(t *testing.T) {
	tr := &Trajectory{Snapshots: []*Snapshot{snap([]int{1}, []string{"H"}, 0)}}

	s, err := tr.At(0)
	require.NoError(t, err)
	assert.Same(t, tr.Snapshots[0], s)

	_, err = tr.At(1)
	assert.Error(t, err)
	_, err = tr.At(-1)
	assert.Error(t, err)
}
