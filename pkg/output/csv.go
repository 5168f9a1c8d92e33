// Package output writes the curves computed on a trajectory: CSV tables,
// PNG plots and HTML charts.
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// TimePrecision is the number of significant figures of the time column.
const TimePrecision = 3

// Table is a set of columns sharing the same length. The first column is the
// time.
type Table struct {
	Header  []string
	Columns [][]float64
}

// Check returns an error if the header and the columns don't match.
func (t Table) Check() error {
	if len(t.Header) == 0 || len(t.Header) != len(t.Columns) {
		return fmt.Errorf("%d header(s) for %d column(s)", len(t.Header), len(t.Columns))
	}
	for k, c := range t.Columns {
		if len(c) != len(t.Columns[0]) {
			return fmt.Errorf("column %q has %d rows (expected %d)", t.Header[k], len(c), len(t.Columns[0]))
		}
	}
	return nil
}

// Format formats v with prec significant figures, like the Python format
// string '{:.<prec>g}'.
func Format(v float64, prec int) string {
	return strconv.FormatFloat(v, 'g', prec, 64)
}

// WriteCSV writes the table in the CSV file located at path. The time column
// has TimePrecision significant figures, the others prec.
func WriteCSV(path string, t Table, prec int) error {
	if err := t.Check(); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	err = Write(f, t, prec)
	if err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Write writes the table as CSV into out.
func Write(out io.Writer, t Table, prec int) error {
	if err := t.Check(); err != nil {
		return err
	}

	w := csv.NewWriter(out)
	if err := w.Write(t.Header); err != nil {
		return err
	}

	row := make([]string, len(t.Columns))
	for i := range t.Columns[0] {
		for k, c := range t.Columns {
			p := prec
			if k == 0 {
				p = TimePrecision
			}
			row[k] = Format(c[i], p)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
