package ani

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/braddmg/genflow/config"
	"github.com/braddmg/genflow/utils"
	"github.com/braddmg/genflow/workspace"
)

// Outputs of the ANI step.
const (
	OutputDir          = "pyANI"
	IdentityMatrixFile = "ANIm_percentage_identity.tab"
	SummaryFile        = "ani-summary.tsv"
	HeatmapFile        = "heatmap-ANI.html"
)

// PyANICommand compares every staged genome against every other and plots
// the identity matrices.
func PyANICommand(cfg config.RunConfiguration, layout workspace.Layout) utils.Command {
	return utils.Command{
		Name: cfg.Tools.PyANI,
		Args: []string{
			"-i", FastaDir,
			"-o", OutputDir,
			"--labels", LabelsFile,
			"--classes", ClassesFile,
			"-g",
			"--gmethod", "seaborn",
			"--gformat", "svg,png",
			"-v",
			"-l", "pyANI.log",
			"--workers", strconv.Itoa(cfg.Threads),
		},
		Dir: layout.Intermediate,
		Log: layout.ToolLog("pyANI"),
	}
}

// PostProcessCommand renders the identity matrix through the R heatmap
// script.
func PostProcessCommand(cfg config.RunConfiguration, layout workspace.Layout) utils.Command {
	return utils.Command{
		Name: cfg.Tools.Rscript,
		Args: []string{cfg.Tools.ANIScript, filepath.Join(OutputDir, IdentityMatrixFile)},
		Dir:  layout.Intermediate,
		Log:  layout.ToolLog("Rscript"),
	}
}

// Run builds the manifests, stages the genomes and computes the identity
// matrix and its heatmaps. The external steps are fatal; the native summary
// and interactive heatmap are only warned about when they fail.
func Run(ctx context.Context, runner utils.Runner, cfg config.RunConfiguration, layout workspace.Layout, logger *slog.Logger) error {
	if _, err := BuildManifests(layout.Intermediate); err != nil {
		return err
	}
	if _, err := StageFasta(layout.Intermediate); err != nil {
		return err
	}
	// pyANI refuses to write into an existing output directory.
	if err := os.RemoveAll(filepath.Join(layout.Intermediate, OutputDir)); err != nil {
		return err
	}
	if err := utils.RunLogged(ctx, runner, logger, "", PyANICommand(cfg, layout)); err != nil {
		return err
	}
	if err := utils.RunLogged(ctx, runner, logger, "", PostProcessCommand(cfg, layout)); err != nil {
		return err
	}

	matrixPath := filepath.Join(layout.Intermediate, OutputDir, IdentityMatrixFile)
	if err := Visualize(matrixPath, filepath.Join(layout.Results, SummaryFile), filepath.Join(layout.Intermediate, HeatmapFile)); err != nil {
		logger.Warn("GenFlow", "STEP", "ani-heatmap", "STATUS", utils.StatusSkipped, "error", err)
	}
	return nil
}

// Visualize reads the identity matrix at matrixPath and writes its summary
// table and interactive heatmap.
func Visualize(matrixPath, summaryPath, heatmapPath string) error {
	m, err := ReadIdentityMatrix(matrixPath)
	if err != nil {
		return err
	}
	if err := WriteSummary(Summarize(m), summaryPath); err != nil {
		return err
	}
	return RenderHeatmap(m, heatmapPath)
}
