// Package lammpstrj reads LAMMPS text dump files (lammpstrj) into a
// traj.Trajectory.
package lammpstrj

import (
	"bufio"
	"cmp"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/kpotier/selfdiff/v2/pkg/traj"
)

// Options are the options of the reader.
type Options struct {
	// Start is the first configuration that will be kept (0-based).
	Start int

	// End is the configuration at which the reading stops (excluded). Zero
	// means until the end of the file.
	End int

	// Types maps a LAMMPS atom type to a species label. Types missing from
	// the map are read as atomic numbers.
	Types map[string]string
}

// ReadFile opens and reads the trajectory located at path.
func ReadFile(path string, opts Options) (*traj.Trajectory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", traj.ErrRead, err)
	}
	defer f.Close()

	return Read(f, opts)
}

// Read reads every configuration of r within the window given by opts.
func Read(r io.Reader, opts Options) (*traj.Trajectory, error) {
	if opts.Start < 0 || (opts.End != 0 && opts.End <= opts.Start) {
		return nil, fmt.Errorf("%w: invalid window [%d, %d)", traj.ErrRead, opts.Start, opts.End)
	}

	d := &reader{r: bufio.NewReader(r), opts: opts}
	t := &traj.Trajectory{}

	for c := 0; opts.End == 0 || c < opts.End; c++ {
		d.cfg = c
		s, err := d.snapshot(c >= opts.Start)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if s != nil {
			t.Snapshots = append(t.Snapshots, s)
		}
	}

	return t, nil
}

// reader holds the state of the file being read. The line and configuration
// counters are only used for error messages.
type reader struct {
	r    *bufio.Reader
	opts Options

	line int
	cfg  int
}

// columns is the position of the interesting fields of an ITEM: ATOMS line. A
// position of -1 means the column is absent.
type columns struct {
	tot     int
	id      int
	typ     int
	element int
	pos     [3]int
	scaled  bool
	vel     [3]int
}

func (d *reader) errorf(format string, a ...any) error {
	return fmt.Errorf("%w: configuration %d, line %d: %s", traj.ErrRead, d.cfg, d.line, fmt.Sprintf(format, a...))
}

// readLine reads ONE line without its line break. io.EOF is only returned when
// nothing is left to read.
func (d *reader) readLine() (string, error) {
	l, err := d.r.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || len(l) == 0) {
		return "", err
	}
	d.line++
	return strings.TrimRight(l, "\r\n"), nil
}

// mustLine is like readLine but an end of file is an error.
func (d *reader) mustLine() (string, error) {
	l, err := d.readLine()
	if errors.Is(err, io.EOF) {
		return "", d.errorf("unexpected end of file")
	}
	if err != nil {
		return "", d.errorf("%v", err)
	}
	return l, nil
}

// snapshot reads one configuration. When keep is false, the atoms are skipped
// and nil is returned. io.EOF is returned when there is no configuration left.
func (d *reader) snapshot(keep bool) (*traj.Snapshot, error) {
	var (
		s       traj.Snapshot
		atoms   = -1
		started bool
	)

	for {
		l, err := d.readLine()
		if errors.Is(err, io.EOF) {
			if !started {
				return nil, io.EOF
			}
			return nil, d.errorf("unexpected end of file")
		}
		if err != nil {
			return nil, d.errorf("%v", err)
		}

		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}

		item, ok := strings.CutPrefix(l, "ITEM:")
		if !ok {
			return nil, d.errorf("expected ITEM, got %q", l)
		}
		fields := strings.Fields(item)
		if len(fields) == 0 {
			return nil, d.errorf("empty ITEM")
		}
		started = true

		switch fields[0] {
		case "TIMESTEP":
			l, err := d.mustLine()
			if err != nil {
				return nil, err
			}
			s.Step, err = strconv.ParseInt(strings.TrimSpace(l), 10, 64)
			if err != nil {
				return nil, d.errorf("timestep: %v", err)
			}

		case "NUMBER":
			l, err := d.mustLine()
			if err != nil {
				return nil, err
			}
			atoms, err = strconv.Atoi(strings.TrimSpace(l))
			if err != nil || atoms < 0 {
				return nil, d.errorf("number of atoms: %q", l)
			}

		case "BOX":
			s.Cell, err = d.box(fields)
			if err != nil {
				return nil, err
			}

		case "ATOMS":
			if atoms < 0 {
				return nil, d.errorf("ITEM: ATOMS before ITEM: NUMBER OF ATOMS")
			}
			if !keep {
				return nil, d.skip(atoms)
			}
			cols, err := parseColumns(fields[1:])
			if err != nil {
				return nil, d.errorf("%v", err)
			}
			err = d.atoms(&s, cols, atoms)
			if err != nil {
				return nil, err
			}
			return &s, nil

		case "UNITS", "TIME":
			if _, err := d.mustLine(); err != nil {
				return nil, err
			}

		default:
			return nil, d.errorf("unsupported ITEM %q", fields[0])
		}
	}
}

// box reads the three lines of the box bounds. fields is the content of the
// ITEM line (BOX BOUNDS [xy xz yz] [pp pp pp]).
func (d *reader) box(fields []string) (*traj.Cell, error) {
	c := &traj.Cell{Triclinic: slices.Contains(fields, "xy")}

	var lo, hi [3]float64
	for k := 0; k < 3; k++ {
		l, err := d.mustLine()
		if err != nil {
			return nil, err
		}

		f := strings.Fields(l)
		if len(f) != 2 && !(c.Triclinic && len(f) == 3) {
			return nil, d.errorf("unable to get the size of the box")
		}

		lo[k], err = strconv.ParseFloat(f[0], 64)
		if err != nil {
			return nil, d.errorf("box: %v", err)
		}
		hi[k], err = strconv.ParseFloat(f[1], 64)
		if err != nil {
			return nil, d.errorf("box: %v", err)
		}
	}

	c.Origin = r3.Vec{X: lo[0], Y: lo[1], Z: lo[2]}
	c.Lengths = r3.Vec{X: hi[0] - lo[0], Y: hi[1] - lo[1], Z: hi[2] - lo[2]}
	return c, nil
}

func (d *reader) skip(atoms int) error {
	for a := 0; a < atoms; a++ {
		if _, err := d.mustLine(); err != nil {
			return err
		}
	}
	return nil
}

// positions are the accepted position columns, by order of preference.
var positions = [...]struct {
	names  [3]string
	scaled bool
}{
	{[3]string{"x", "y", "z"}, false},
	{[3]string{"xu", "yu", "zu"}, false},
	{[3]string{"xs", "ys", "zs"}, true},
	{[3]string{"xsu", "ysu", "zsu"}, true},
}

// parseColumns finds the interesting fields of an ITEM: ATOMS line (without
// ITEM: ATOMS).
func parseColumns(fields []string) (columns, error) {
	pos := make(map[string]int, len(fields))
	for k, v := range fields {
		pos[v] = k
	}
	find := func(name string) int {
		if k, ok := pos[name]; ok {
			return k
		}
		return -1
	}
	find3 := func(names [3]string) ([3]int, bool) {
		c := [3]int{find(names[0]), find(names[1]), find(names[2])}
		return c, c[0] >= 0 && c[1] >= 0 && c[2] >= 0
	}

	cols := columns{
		tot:     len(fields),
		id:      find("id"),
		typ:     find("type"),
		element: find("element"),
	}

	var found bool
	for _, p := range positions {
		if c, ok := find3(p.names); ok {
			cols.pos, cols.scaled, found = c, p.scaled, true
			break
		}
	}
	if !found {
		return cols, fmt.Errorf("cannot find the position columns in %v", fields)
	}

	if cols.typ < 0 && cols.element < 0 {
		return cols, fmt.Errorf("cannot find the type or element column in %v", fields)
	}

	var ok bool
	cols.vel, ok = find3([3]string{"vx", "vy", "vz"})
	if !ok {
		cols.vel[0] = -1
	}

	return cols, nil
}

// atoms reads the atom lines of a configuration and sorts them by ID.
func (d *reader) atoms(s *traj.Snapshot, cols columns, atoms int) error {
	if cols.scaled && s.Cell == nil {
		return d.errorf("scaled positions without a box")
	}

	var (
		ids     = make([]int, atoms)
		species = make([]string, atoms)
		pos     = make([]r3.Vec, atoms)
		vel     []r3.Vec
	)
	if cols.vel[0] >= 0 {
		vel = make([]r3.Vec, atoms)
	}

	for a := 0; a < atoms; a++ {
		l, err := d.mustLine()
		if err != nil {
			return err
		}

		fields := strings.Fields(l)
		if len(fields) != cols.tot {
			return d.errorf("number of columns don't match: %d (expected %d)", len(fields), cols.tot)
		}

		ids[a] = a + 1
		if cols.id >= 0 {
			ids[a], err = strconv.Atoi(fields[cols.id])
			if err != nil {
				return d.errorf("id: %v", err)
			}
		}

		if cols.element >= 0 {
			species[a] = fields[cols.element]
		} else {
			species[a] = label(fields[cols.typ], d.opts.Types)
		}

		pos[a], err = d.vec(fields, cols.pos)
		if err != nil {
			return err
		}
		if cols.scaled {
			pos[a] = r3.Add(s.Cell.Origin, r3.Vec{
				X: pos[a].X * s.Cell.Lengths.X,
				Y: pos[a].Y * s.Cell.Lengths.Y,
				Z: pos[a].Z * s.Cell.Lengths.Z,
			})
		}

		if vel != nil {
			vel[a], err = d.vec(fields, cols.vel)
			if err != nil {
				return err
			}
		}
	}

	// Sort by ID so that the same atom has the same index in every
	// configuration.
	order := make([]int, atoms)
	for a := range order {
		order[a] = a
	}
	slices.SortStableFunc(order, func(a, b int) int { return cmp.Compare(ids[a], ids[b]) })

	s.IDs = make([]int, atoms)
	s.Species = make([]string, atoms)
	s.Pos = make([]r3.Vec, atoms)
	if vel != nil {
		s.Vel = make([]r3.Vec, atoms)
	}
	for k, a := range order {
		if k > 0 && ids[a] == s.IDs[k-1] {
			return d.errorf("duplicate atom id %d", ids[a])
		}
		s.IDs[k] = ids[a]
		s.Species[k] = species[a]
		s.Pos[k] = pos[a]
		if vel != nil {
			s.Vel[k] = vel[a]
		}
	}

	return nil
}

func (d *reader) vec(fields []string, cols [3]int) (r3.Vec, error) {
	var xyz [3]float64
	for k := 0; k < 3; k++ {
		v, err := strconv.ParseFloat(fields[cols[k]], 64)
		if err != nil {
			return r3.Vec{}, d.errorf("%v", err)
		}
		xyz[k] = v
	}
	return r3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]}, nil
}
