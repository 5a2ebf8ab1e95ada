// Package collector moves the artifacts of a finished run into the results
// directory.
package collector

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/braddmg/genflow/utils"
	"github.com/braddmg/genflow/workspace"
)

// AnvioDir holds the contigs, genomes storage and pan-genome databases,
// relative to the results directory.
const AnvioDir = "Anvio"

// ErrNoHeatmap is returned when the ANI step left no heatmap to collect.
var ErrNoHeatmap = errors.New("no heatmap produced")

// Collected lists what Collect moved, as destination paths.
type Collected struct {
	Heatmaps   []string
	Alignments []string
	Databases  []string
	Project    string
}

// Collect moves the heatmaps, alignments, databases and the pan-genome
// project directory of the intermediate workspace into results. Nothing is
// rewritten. A run without any heatmap fails before anything is moved.
func Collect(layout workspace.Layout, project string) (Collected, error) {
	var out Collected
	heatmaps, err := filepath.Glob(filepath.Join(layout.Intermediate, "heatmap*"))
	if err != nil {
		return out, err
	}
	if len(heatmaps) == 0 {
		return out, fmt.Errorf("%w in %s", ErrNoHeatmap, layout.Intermediate)
	}
	if out.Heatmaps, err = utils.MoveGlob(layout.Intermediate, "heatmap*", layout.Results); err != nil {
		return out, err
	}
	if out.Alignments, err = utils.MoveGlob(layout.Intermediate, "*aligned.fasta*", layout.Results); err != nil {
		return out, err
	}

	anvio := filepath.Join(layout.Results, AnvioDir)
	if err := os.MkdirAll(anvio, 0755); err != nil {
		return out, err
	}
	if out.Databases, err = utils.MoveGlob(layout.Intermediate, "*.db", anvio); err != nil {
		return out, err
	}

	src := filepath.Join(layout.Intermediate, project)
	info, err := os.Stat(src)
	switch {
	case os.IsNotExist(err):
		return out, nil
	case err != nil:
		return out, err
	case !info.IsDir():
		return out, fmt.Errorf("pan-genome project %s is not a directory", src)
	}
	dst := filepath.Join(anvio, project)
	if err := os.RemoveAll(dst); err != nil {
		return out, err
	}
	if err := os.Rename(src, dst); err != nil {
		return out, fmt.Errorf("moving %s to %s: %w", src, anvio, err)
	}
	out.Project = dst
	return out, nil
}
