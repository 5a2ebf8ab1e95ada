package ani

import (
	"bufio"
	"fmt"
	"math"
	"os"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// IdentityMatrix holds pairwise identities; Values[i][j] compares
// Names[i] (row) with Names[j] (column).
type IdentityMatrix struct {
	Names  []string
	Values [][]float64
}

// ReadIdentityMatrix parses a tab separated square matrix whose header row
// names the columns and whose first column names the rows.
func ReadIdentityMatrix(path string) (IdentityMatrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return IdentityMatrix{}, err
	}
	defer f.Close()

	df := dataframe.ReadCSV(f,
		dataframe.WithDelimiter('\t'),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String))
	if df.Err != nil {
		return IdentityMatrix{}, fmt.Errorf("reading %s: %w", path, df.Err)
	}
	cols := df.Names()
	if len(cols) < 2 || df.Nrow() != len(cols)-1 {
		return IdentityMatrix{}, fmt.Errorf("%s: want a square matrix, got %d rows and %d columns", path, df.Nrow(), len(cols)-1)
	}

	m := IdentityMatrix{
		Names:  cols[1:],
		Values: make([][]float64, df.Nrow()),
	}
	rowNames := df.Col(cols[0]).Records()
	for i := range m.Values {
		m.Values[i] = make([]float64, len(m.Names))
	}
	for j, name := range m.Names {
		for i, v := range df.Col(name).Float() {
			if math.IsNaN(v) {
				return IdentityMatrix{}, fmt.Errorf("%s: row %s column %s is not a number", path, rowNames[i], name)
			}
			m.Values[i][j] = v
		}
	}
	return m, nil
}

// Summary describes the identities between distinct genomes.
type Summary struct {
	Pairs  int
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
}

// Summarize computes statistics over the off-diagonal entries of m.
func Summarize(m IdentityMatrix) Summary {
	var values []float64
	for i, row := range m.Values {
		for j, v := range row {
			if i != j {
				values = append(values, v)
			}
		}
	}
	if len(values) == 0 {
		return Summary{}
	}
	s := Summary{
		Pairs: len(values),
		Mean:  stat.Mean(values, nil),
		Min:   floats.Min(values),
		Max:   floats.Max(values),
	}
	if len(values) > 1 {
		s.StdDev = stat.StdDev(values, nil)
	}
	return s
}

// WriteSummary writes s as a two column table.
func WriteSummary(s Summary, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "statistic\tvalue\n")
	fmt.Fprintf(w, "pairs\t%d\n", s.Pairs)
	fmt.Fprintf(w, "mean\t%.4f\n", s.Mean)
	fmt.Fprintf(w, "stddev\t%.4f\n", s.StdDev)
	fmt.Fprintf(w, "min\t%.4f\n", s.Min)
	fmt.Fprintf(w, "max\t%.4f\n", s.Max)
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
