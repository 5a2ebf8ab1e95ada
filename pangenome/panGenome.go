// Package pangenome builds the anvi'o contigs databases of a run, registers
// them and computes the pan-genome and its core-gene sequences.
package pangenome

import (
	"context"
	"log/slog"
	"path/filepath"
	"strconv"

	"github.com/braddmg/genflow/config"
	"github.com/braddmg/genflow/utils"
	"github.com/braddmg/genflow/workspace"
)

// StorageDB is the genomes storage database of a project.
func StorageDB(project string) string {
	return project + "-GENOMES.db"
}

// PanDB is the pan-genome database written by anvi-pan-genome, relative to
// the intermediate workspace.
func PanDB(project string) string {
	return filepath.Join(project, project+"-PAN.db")
}

// CoreGeneFile is the concatenated core-gene sequence file for the mode.
func CoreGeneFile(dnaMode bool) string {
	if dnaMode {
		return "dna-sequences.fasta"
	}
	return "proteins-sequences.fasta"
}

// StorageCommand builds the genomes storage from the registry.
func StorageCommand(cfg config.RunConfiguration, layout workspace.Layout) utils.Command {
	return toolCommand(layout, cfg.Tools.GenGenomesStorage,
		"-e", ExternalGenomesFile,
		"-o", StorageDB(cfg.ProjectName))
}

// PanGenomeCommand clusters the genes of every genome in the storage.
func PanGenomeCommand(cfg config.RunConfiguration, layout workspace.Layout) utils.Command {
	return toolCommand(layout, cfg.Tools.PanGenome,
		"-g", StorageDB(cfg.ProjectName),
		"--project-name", cfg.ProjectName,
		"--num-threads", strconv.Itoa(cfg.Threads),
		"--mcl-inflation", strconv.Itoa(cfg.MCLInflation),
		"--minbit", fmtFloat(cfg.MinBit),
		"--min-percent-identity", fmtFloat(cfg.MinPercentIdentity))
}

// CoreGenesCommand extracts the single-copy gene clusters present in all
// genomes genomes, concatenated per genome and filtered on homogeneity.
func CoreGenesCommand(cfg config.RunConfiguration, layout workspace.Layout, genomes int) utils.Command {
	args := []string{
		"-g", StorageDB(cfg.ProjectName),
		"-p", PanDB(cfg.ProjectName),
		"-o", CoreGeneFile(cfg.DNAMode),
		"--max-num-genes-from-each-genome", "1",
		"--min-num-genomes-gene-cluster-occurs", strconv.Itoa(genomes),
		"--concatenate-gene-clusters",
		"--min-geometric-homogeneity-index", fmtFloat(cfg.GeometricIndex),
		"--min-functional-homogeneity-index", fmtFloat(cfg.FunctionalIndex),
	}
	if cfg.DNAMode {
		args = append(args, "--report-DNA-sequences")
	}
	return toolCommand(layout, cfg.Tools.GetSequences, args...)
}

// CountGenomes counts the reformatted genome files (.fa) in dir.
func CountGenomes(dir string) (int, error) {
	files, err := utils.ListFiles(dir, ".fa")
	if err != nil {
		return 0, err
	}
	return len(files), nil
}

// Emit writes the registry of every contigs database in the intermediate
// workspace and returns its entries.
func Emit(cfg config.RunConfiguration, layout workspace.Layout) ([]GenomeRegistryEntry, error) {
	entries, err := Registry(layout.Intermediate, StorageDB(cfg.ProjectName))
	if err != nil {
		return nil, err
	}
	if err := WriteExternalGenomes(entries, filepath.Join(layout.Intermediate, ExternalGenomesFile)); err != nil {
		return nil, err
	}
	return entries, nil
}

// Run computes the pan-genome and extracts its core genes, returning the
// path of the extracted sequences.
func Run(ctx context.Context, runner utils.Runner, cfg config.RunConfiguration, layout workspace.Layout, logger *slog.Logger) (string, error) {
	for _, cmd := range []utils.Command{StorageCommand(cfg, layout), PanGenomeCommand(cfg, layout)} {
		if err := utils.RunLogged(ctx, runner, logger, "", cmd); err != nil {
			return "", err
		}
	}
	genomes, err := CountGenomes(layout.Intermediate)
	if err != nil {
		return "", err
	}
	if err := utils.RunLogged(ctx, runner, logger, "", CoreGenesCommand(cfg, layout, genomes)); err != nil {
		return "", err
	}
	return filepath.Join(layout.Intermediate, CoreGeneFile(cfg.DNAMode)), nil
}
