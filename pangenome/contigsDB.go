package pangenome

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/braddmg/genflow/config"
	"github.com/braddmg/genflow/utils"
	"github.com/braddmg/genflow/workspace"
	"github.com/samber/lo"
)

// GenomeFiles lists the genome FASTA files of dir: renamed .fasta files and
// downloaded .fna files whose taxon lookup failed. Core-gene files left by an
// earlier pangenome run are not genomes.
func GenomeFiles(dir string) ([]string, error) {
	files, err := utils.ListFiles(dir, ".fasta", ".fna")
	if err != nil {
		return nil, err
	}
	files = lo.Without(files, CoreGeneFile(true), CoreGeneFile(false))
	seen := make(map[string]string)
	for _, f := range files {
		stem := strings.TrimSuffix(f, filepath.Ext(f))
		if other, ok := seen[stem]; ok {
			return nil, fmt.Errorf("%s and %s would produce the same contigs database", other, f)
		}
		seen[stem] = f
	}
	return files, nil
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func toolCommand(layout workspace.Layout, tool string, args ...string) utils.Command {
	return utils.Command{
		Name: tool,
		Args: args,
		Dir:  layout.Intermediate,
		Log:  layout.ToolLog(filepath.Base(tool)),
	}
}

// DatabaseCommands returns the three commands turning one genome FASTA into
// an annotated contigs database: reformat, build, HMM search.
func DatabaseCommands(cfg config.RunConfiguration, layout workspace.Layout, fasta string) []utils.Command {
	base := strings.TrimSuffix(fasta, filepath.Ext(fasta))
	threads := strconv.Itoa(cfg.Threads)
	t := cfg.Tools
	return []utils.Command{
		toolCommand(layout, t.ReformatFasta, fasta, "-o", base+".fa", "-l", strconv.Itoa(cfg.MinContigLength), "--simplify-names", "--seq-type", "NT"),
		toolCommand(layout, t.GenContigsDB, "-f", base+".fa", "-o", base+".db", "-T", threads),
		toolCommand(layout, t.RunHMMs, "-c", base+".db", "-T", threads),
	}
}

// BuildDatabases builds a contigs database for every genome file of the
// intermediate workspace. The first failing command stops the build.
//
// A genome whose HMM search finished in an earlier run of the same workspace,
// and whose database is still there, is only reformatted again: the .fa file
// is consumed by the ANI step, the database is reused.
func BuildDatabases(ctx context.Context, runner utils.Runner, cfg config.RunConfiguration, layout workspace.Layout, logger *slog.Logger) ([]string, error) {
	files, err := GenomeFiles(layout.Intermediate)
	if err != nil {
		return nil, err
	}
	previous, err := utils.ParseLogFile(layout.RunLog())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	hmms := filepath.Base(cfg.Tools.RunHMMs)

	var dbs []string
	for _, f := range files {
		db := strings.TrimSuffix(f, filepath.Ext(f)) + ".db"
		cmds := DatabaseCommands(cfg, layout, f)
		if utils.StageHasCompleted(previous, hmms, f) && utils.FileExists(filepath.Join(layout.Intermediate, db)) {
			logger.Info("GenFlow", "STEP", hmms, "GENOME", f, "STATUS", utils.StatusSkipped, "DB", db)
			cmds = cmds[:1]
		}
		for _, cmd := range cmds {
			if err := utils.RunLogged(ctx, runner, logger, f, cmd); err != nil {
				return dbs, err
			}
		}
		dbs = append(dbs, db)
	}
	return dbs, nil
}
