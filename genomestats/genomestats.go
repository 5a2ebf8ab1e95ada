// Package genomestats summarises the assemblies entering the pan-genome.
package genomestats

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/seq/linear"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Stats describes one genome FASTA file.
type Stats struct {
	Name        string
	Contigs     int
	TotalLength int
	N50         int
	GC          float64
	// LongContigs counts contigs at least as long as the minimum contig
	// length used when the file is reformatted.
	LongContigs int
}

// Scan reads the FASTA file at path.
func Scan(path string, minContig int) (Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return Stats{}, err
	}
	defer f.Close()
	st, err := Read(f, minContig)
	st.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if err != nil {
		return st, fmt.Errorf("reading %s: %w", path, err)
	}
	return st, nil
}

// Read computes Stats from FASTA formatted r.
func Read(r io.Reader, minContig int) (Stats, error) {
	var (
		st      Stats
		lengths []int
		gc      int
		acgt    int
	)
	sc := seqio.NewScanner(fasta.NewReader(r, linear.NewSeq("", nil, alphabet.DNA)))
	for sc.Next() {
		s := sc.Seq().(*linear.Seq)
		n := s.Len()
		lengths = append(lengths, n)
		st.TotalLength += n
		if n >= minContig {
			st.LongContigs++
		}
		for _, l := range s.Seq {
			switch l {
			case 'G', 'C', 'g', 'c':
				gc++
				acgt++
			case 'A', 'T', 'a', 't':
				acgt++
			}
		}
	}
	if err := sc.Error(); err != nil {
		return st, err
	}
	st.Contigs = len(lengths)
	st.N50 = n50(lengths, st.TotalLength)
	if acgt > 0 {
		st.GC = float64(gc) / float64(acgt)
	}
	return st, nil
}

func n50(lengths []int, total int) int {
	sorted := append([]int(nil), lengths...)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))
	sum := 0
	for _, l := range sorted {
		sum += l
		if 2*sum >= total {
			return l
		}
	}
	return 0
}

// WriteTable writes stats as a tab separated table with a header row.
func WriteTable(stats []Stats, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	fmt.Fprintln(w, "genome\tcontigs\ttotal_length\tN50\tGC\tcontigs_kept")
	for _, s := range stats {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%.4f\t%d\n", s.Name, s.Contigs, s.TotalLength, s.N50, s.GC, s.LongContigs)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// PlotSizes draws a bar chart of genome lengths in megabases. The image
// format follows the extension of path.
func PlotSizes(stats []Stats, path string) error {
	if len(stats) == 0 {
		return nil
	}
	values := make(plotter.Values, len(stats))
	names := make([]string, len(stats))
	for i, s := range stats {
		values[i] = float64(s.TotalLength) / 1e6
		names[i] = s.Name
	}

	p := plot.New()
	p.Title.Text = "Genome sizes"
	p.Y.Label.Text = "Length (Mb)"

	bars, err := plotter.NewBarChart(values, vg.Points(20))
	if err != nil {
		return err
	}
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(names...)
	p.X.Tick.Label.Rotation = 0.8
	p.X.Tick.Label.XAlign = -1.0

	width := vg.Length(len(stats))*vg.Centimeter + 10*vg.Centimeter
	return p.Save(width, 12*vg.Centimeter, path)
}
