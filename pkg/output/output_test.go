package output

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		v    float64
		prec int
		want string
	}{
		{0.025, 3, "0.025"},
		{0.05, 3, "0.05"},
		{1, 10, "1"},
		{4, 6, "4"},
		{1234.5678, 3, "1.23e+03"},
		{0.00001, 3, "1e-05"},
		{0.123456789, 6, "0.123457"},
		{0.1 + 0.2, 10, "0.3"},
		{2.5e-7, 10, "2.5e-07"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Format(tt.v, tt.prec), "Format(%v, %d)", tt.v, tt.prec)
	}
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, Table{
		Header:  []string{"Time", "Average MSD"},
		Columns: [][]float64{{1 * 100 * 0.00025, 2 * 100 * 0.00025}, {1, 4}},
	}, 10)
	require.NoError(t, err)
	assert.Equal(t, "Time,Average MSD\n0.025,1\n0.05,4\n", buf.String())
}

func TestWrite_Precision(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, Table{
		Header:  []string{"Time", "A", "B"},
		Columns: [][]float64{{0.12345}, {0.123456789}, {1.0 / 3}},
	}, 6)
	require.NoError(t, err)
	assert.Equal(t, "Time,A,B\n0.123,0.123457,0.333333\n", buf.String())
}

func TestTable_Check(t *testing.T) {
	assert.Error(t, Table{}.Check())
	assert.Error(t, Table{Header: []string{"Time"}, Columns: [][]float64{{1}, {2}}}.Check())
	assert.Error(t, Table{Header: []string{"Time", "MSD"}, Columns: [][]float64{{1, 2}, {2}}}.Check())
	assert.NoError(t, Table{Header: []string{"Time", "MSD"}, Columns: [][]float64{{1, 2}, {2, 3}}}.Check())
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "msd.csv")
	err := WriteCSV(path, Table{
		Header:  []string{"Time", "Average MSD"},
		Columns: [][]float64{{0.025}, {1}},
	}, 10)
	require.NoError(t, err)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Time,Average MSD\n0.025,1\n", string(b))

	err = WriteCSV(filepath.Join(t.TempDir(), "missing", "msd.csv"), Table{
		Header:  []string{"Time"},
		Columns: [][]float64{{1}},
	}, 10)
	assert.Error(t, err)
}

var curve = Curve{
	Title:  "Mean squared displacement of H",
	Name:   "MSD",
	XLabel: "Time",
	YLabel: "Average MSD",
	X:      []float64{0.025, 0.05, 0.075},
	Y:      []float64{1, 4, 9},
}

func TestPlotPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "msd.png")
	require.NoError(t, PlotPNG(path, curve))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, []byte("\x89PNG")))

	assert.Error(t, PlotPNG(path, Curve{X: []float64{1}}))
	assert.Error(t, PlotPNG(path, Curve{}))
}

func TestChartHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ChartHTML(&buf, curve))
	assert.Contains(t, buf.String(), "<html")
	assert.Contains(t, buf.String(), curve.Title)

	assert.Error(t, ChartHTML(&buf, Curve{}))
}
