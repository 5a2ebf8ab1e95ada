package pangenome

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/braddmg/genflow/utils"
	"github.com/samber/lo"
)

// ExternalGenomesFile is the registry consumed by anvi-gen-genomes-storage.
const ExternalGenomesFile = "external-genomes.txt"

// Registry header columns.
const (
	NameColumn = "name"
	PathColumn = "contigs_db_path"
)

// GenomeRegistryEntry pairs a genome's logical name with its contigs
// database. Keeping both in one value keeps the two registry columns aligned.
type GenomeRegistryEntry struct {
	Name string
	Path string
}

var nameReplacer = strings.NewReplacer(".", "_", "-", "_", ",", "_", " ", "_")

// LogicalName strips ext from file and replaces . - , and spaces with
// underscores.
func LogicalName(file, ext string) string {
	return nameReplacer.Replace(strings.TrimSuffix(file, ext))
}

// Registry lists the contigs databases of dir in name order. Files named in
// exclude (such as a genomes storage database) are left out.
func Registry(dir string, exclude ...string) ([]GenomeRegistryEntry, error) {
	dbs, err := utils.ListFiles(dir, ".db")
	if err != nil {
		return nil, err
	}
	dbs = lo.Without(dbs, exclude...)
	return lo.Map(dbs, func(db string, _ int) GenomeRegistryEntry {
		return GenomeRegistryEntry{Name: LogicalName(db, ".db"), Path: db}
	}), nil
}

// WriteExternalGenomes writes entries as a header labelled, tab separated
// two column table.
func WriteExternalGenomes(entries []GenomeRegistryEntry, path string) error {
	if dup := lo.FindDuplicatesBy(entries, func(e GenomeRegistryEntry) string { return e.Name }); len(dup) > 0 {
		return fmt.Errorf("duplicate genome name %q in %s", dup[0].Name, path)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "%s\t%s\n", NameColumn, PathColumn)
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\n", e.Name, e.Path)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadExternalGenomes parses a registry written by WriteExternalGenomes.
func ReadExternalGenomes(path string) ([]GenomeRegistryEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []GenomeRegistryEntry
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) != 2 {
			return nil, fmt.Errorf("%s:%d: want 2 columns, got %d", path, line, len(fields))
		}
		if line == 1 {
			if fields[0] != NameColumn || fields[1] != PathColumn {
				return nil, fmt.Errorf("%s: unexpected header %q", path, scanner.Text())
			}
			continue
		}
		entries = append(entries, GenomeRegistryEntry{Name: fields[0], Path: fields[1]})
	}
	return entries, scanner.Err()
}
