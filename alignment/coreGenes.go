// Package alignment aligns the concatenated core genes of a pan-genome and
// infers the phylogenomic tree from the alignment.
package alignment

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/braddmg/genflow/config"
	"github.com/braddmg/genflow/utils"
	"github.com/braddmg/genflow/workspace"
)

// TreeFile is the phylogenomic tree, relative to the results directory.
const TreeFile = "phylogenomic-tree.txt"

// AlignedName is the alignment written for a core-gene file:
// dna-sequences.fasta becomes dna-sequences-aligned.fasta.
func AlignedName(coreGenes string) string {
	base := filepath.Base(coreGenes)
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + "-aligned" + ext
}

// AlignCommand aligns coreGenes with a single guide tree pass and no
// iterative refinement.
func AlignCommand(cfg config.RunConfiguration, layout workspace.Layout, coreGenes string) utils.Command {
	return utils.Command{
		Name: cfg.Tools.Mafft,
		Args: []string{
			"--retree", "1",
			"--thread", strconv.Itoa(cfg.Threads),
			"--maxiterate", "0",
			filepath.Base(coreGenes),
		},
		Dir:    layout.Intermediate,
		Stdout: AlignedName(coreGenes),
		Log:    layout.ToolLog("mafft"),
	}
}

// TreeCommand infers the tree from aligned: FastTree under a GTR
// nucleotide model in DNA mode, anvi'o's default protein model otherwise.
func TreeCommand(cfg config.RunConfiguration, layout workspace.Layout, aligned string) utils.Command {
	tree := filepath.Join(layout.Results, TreeFile)
	if cfg.DNAMode {
		return utils.Command{
			Name:   cfg.Tools.FastTree,
			Args:   []string{"-fastest", "-no2nd", "-gtr", "-nt"},
			Dir:    layout.Intermediate,
			Stdin:  aligned,
			Stdout: tree,
			Log:    layout.ToolLog("FastTree"),
		}
	}
	return utils.Command{
		Name: cfg.Tools.GenPhylogenomicTree,
		Args: []string{"-f", aligned, "-o", tree},
		Dir:  layout.Intermediate,
		Log:  layout.ToolLog("anvi-gen-phylogenomic-tree"),
	}
}

// Run aligns coreGenes and builds the tree, returning the path of the tree.
func Run(ctx context.Context, runner utils.Runner, cfg config.RunConfiguration, layout workspace.Layout, coreGenes string, logger *slog.Logger) (string, error) {
	if !utils.FileExists(coreGenes) {
		return "", fmt.Errorf("core gene sequences %s were not produced", coreGenes)
	}
	if err := utils.RunLogged(ctx, runner, logger, "", AlignCommand(cfg, layout, coreGenes)); err != nil {
		return "", err
	}
	if err := utils.RunLogged(ctx, runner, logger, "", TreeCommand(cfg, layout, AlignedName(coreGenes))); err != nil {
		return "", err
	}
	return filepath.Join(layout.Results, TreeFile), nil
}
