// Package ani drives the average nucleotide identity comparison of the
// reformatted genomes and renders its identity matrix.
package ani

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/braddmg/genflow/pangenome"
	"github.com/braddmg/genflow/utils"
	"github.com/samber/lo"
)

// Manifest and staging names, relative to the intermediate workspace.
const (
	ClassesFile = "classes.txt"
	LabelsFile  = "labels.txt"
	FastaDir    = "fasta_files"
)

// ManifestRow labels one genome file for the ANI tool.
type ManifestRow struct {
	Path string
	Name string
}

// Manifest lists the reformatted genomes (.fa) of dir in name order. Names
// are derived the same way as the genome registry names.
func Manifest(dir string) ([]ManifestRow, error) {
	files, err := utils.ListFiles(dir, ".fa")
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no reformatted genomes (*.fa) in %s", dir)
	}
	return lo.Map(files, func(f string, _ int) ManifestRow {
		return ManifestRow{Path: f, Name: pangenome.LogicalName(f, ".fa")}
	}), nil
}

// BuildManifests writes the classes and labels manifests of dir. Both files
// carry the same rows.
func BuildManifests(dir string) ([]ManifestRow, error) {
	rows, err := Manifest(dir)
	if err != nil {
		return nil, err
	}
	for _, name := range []string{ClassesFile, LabelsFile} {
		if err := writeManifest(rows, filepath.Join(dir, name)); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

func writeManifest(rows []ManifestRow, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\n", r.Path, r.Name)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// StageFasta moves the .fa files of dir into its fasta_files subdirectory.
func StageFasta(dir string) ([]string, error) {
	dest := filepath.Join(dir, FastaDir)
	if err := os.MkdirAll(dest, 0755); err != nil {
		return nil, err
	}
	return utils.MoveGlob(dir, "*.fa", dest)
}
