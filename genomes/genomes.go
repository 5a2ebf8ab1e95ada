// Package genomes fetches assemblies from NCBI and gathers every genome
// sequence file of a run into the intermediate workspace.
package genomes

import (
	"archive/zip"
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/braddmg/genflow/utils"
	"github.com/braddmg/genflow/workspace"
)

const (
	archiveName = "ncbi_dataset.zip"
	scratchName = ".ncbi_dataset"
)

// ReadAccessions returns the accessions listed in path, one per line. Blank
// lines and lines starting with # are ignored.
func ReadAccessions(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var accessions []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		accessions = append(accessions, line)
	}
	return accessions, scanner.Err()
}

// Download asks the NCBI datasets client for every accession in genomeList
// and returns the path of the downloaded archive.
func Download(ctx context.Context, runner utils.Runner, datasets, genomeList string, layout workspace.Layout) (string, error) {
	archive := filepath.Join(layout.Root, archiveName)
	err := runner.Run(ctx, utils.Command{
		Name: datasets,
		Args: []string{"download", "genome", "accession", "--inputfile", genomeList, "--filename", archive},
		Dir:  layout.Root,
		Log:  layout.ToolLog("datasets"),
	})
	if err != nil {
		return "", err
	}
	return archive, nil
}

// Unpack extracts archive into dest.
func Unpack(archive, dest string) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return fmt.Errorf("opening %s: %w", archive, err)
	}
	defer r.Close()

	root, err := filepath.Abs(dest)
	if err != nil {
		return err
	}
	for _, f := range r.File {
		target := filepath.Join(root, f.Name)
		if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
			return fmt.Errorf("%s: entry %q escapes the extraction directory", archive, f.Name)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
			continue
		}
		if err := extractFile(f, target); err != nil {
			return fmt.Errorf("extracting %s: %w", f.Name, err)
		}
	}
	return nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Relocate moves the nucleotide files of every assembly directory
// (ncbi_dataset/data/GC*/) below scratch into intermediate.
func Relocate(scratch, intermediate string) ([]string, error) {
	var moved []string
	dirs, err := filepath.Glob(filepath.Join(scratch, "ncbi_dataset", "data", "GC*"))
	if err != nil {
		return nil, err
	}
	for _, dir := range dirs {
		files, err := utils.MoveGlob(dir, "*.fna", intermediate)
		moved = append(moved, files...)
		if err != nil {
			return moved, err
		}
	}
	if len(moved) == 0 {
		return nil, errors.New("no .fna files found in the downloaded archive")
	}
	return moved, nil
}

// Acquire downloads, unpacks and relocates the genomes listed in
// genomeList, then removes the archive and its scratch content. It returns
// the relocated files. An accession list without accessions downloads
// nothing.
func Acquire(ctx context.Context, runner utils.Runner, datasets, genomeList string, layout workspace.Layout) ([]string, error) {
	accessions, err := ReadAccessions(genomeList)
	if err != nil {
		return nil, err
	}
	if len(accessions) == 0 {
		return nil, nil
	}

	archive, err := Download(ctx, runner, datasets, genomeList, layout)
	if err != nil {
		return nil, err
	}
	scratch := filepath.Join(layout.Root, scratchName)
	if err := os.RemoveAll(scratch); err != nil {
		return nil, err
	}
	if err := Unpack(archive, scratch); err != nil {
		return nil, err
	}
	moved, err := Relocate(scratch, layout.Intermediate)
	if err != nil {
		return moved, err
	}
	if err := os.RemoveAll(scratch); err != nil {
		return moved, err
	}
	if err := os.Remove(archive); err != nil && !os.IsNotExist(err) {
		return moved, err
	}
	return moved, nil
}

// CopyFasta copies the user supplied FASTA files into intermediate. A file
// that cannot be copied stops the run.
func CopyFasta(files []string, intermediate string) ([]string, error) {
	var copied []string
	for _, f := range files {
		dst := filepath.Join(intermediate, filepath.Base(f))
		if err := utils.CopyFile(f, dst); err != nil {
			return copied, fmt.Errorf("copying %s: %w", f, err)
		}
		copied = append(copied, dst)
	}
	return copied, nil
}
