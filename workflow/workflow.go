// Package workflow runs the GenFlow steps in order: acquire the genomes,
// name them after their taxa, build the anvi'o databases, compute the
// pan-genome, align its core genes, infer the tree, compare the genomes by
// ANI and collect the results.
package workflow

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/braddmg/genflow/alignment"
	"github.com/braddmg/genflow/ani"
	"github.com/braddmg/genflow/collector"
	"github.com/braddmg/genflow/config"
	"github.com/braddmg/genflow/genomes"
	"github.com/braddmg/genflow/genomestats"
	"github.com/braddmg/genflow/pangenome"
	"github.com/braddmg/genflow/taxon"
	"github.com/braddmg/genflow/utils"
	"github.com/braddmg/genflow/workspace"
)

// Output files of the genome statistics step, relative to results.
const (
	GenomeSummaryFile = "genome-summary.tsv"
	GenomeSizesPlot   = "genome-sizes.png"
)

// Workflow is one configured run.
type Workflow struct {
	Config config.RunConfiguration
	Runner utils.Runner
	// Lookup overrides the lookup backend selected by Config.
	Lookup taxon.Lookuper
	// Stdout receives the progress banners, Stderr the human readable log.
	Stdout io.Writer
	Stderr io.Writer

	now func() time.Time
}

// Result summarizes a completed run.
type Result struct {
	Genomes   []string
	Renamed   []taxon.SequenceFileRecord
	Registry  []pangenome.GenomeRegistryEntry
	Tree      string
	Collected collector.Collected
	Elapsed   time.Duration
}

func (w *Workflow) clock() time.Time {
	if w.now != nil {
		return w.now()
	}
	return time.Now()
}

func (w *Workflow) stdout() io.Writer {
	if w.Stdout != nil {
		return w.Stdout
	}
	return os.Stdout
}

func (w *Workflow) stderr() io.Writer {
	if w.Stderr != nil {
		return w.Stderr
	}
	return os.Stderr
}

// step logs the start and the outcome of fn under name.
func step(logger *slog.Logger, name string, fn func() error) error {
	logger.Info("GenFlow", "STEP", name, "GENOME", "ALL", "STATUS", utils.StatusStarted)
	if err := fn(); err != nil {
		logger.Error("GenFlow", "STEP", name, "GENOME", "ALL", "STATUS", utils.StatusFailed, "error", err)
		return fmt.Errorf("%s: %w", name, err)
	}
	logger.Info("GenFlow", "STEP", name, "GENOME", "ALL", "STATUS", utils.StatusFinished)
	return nil
}

// Run executes every step in order and stops at the first fatal error.
func (w *Workflow) Run(ctx context.Context) (Result, error) {
	start := w.clock()
	cfg := w.Config
	out := w.stdout()
	var res Result

	layout := workspace.New(cfg.WorkDir)
	if err := layout.Prepare(); err != nil {
		return res, err
	}
	logger, closer, err := utils.NewRunLogger(layout.RunLog(), w.stderr())
	if err != nil {
		return res, err
	}
	defer closer.Close()

	fmt.Fprint(out, cfg.Summary())

	fmt.Fprintln(out, "Downloading genomes...")
	err = step(logger, "acquire", func() error {
		downloaded, err := genomes.Acquire(ctx, w.Runner, cfg.Tools.Datasets, cfg.GenomeList, layout)
		if err != nil {
			return err
		}
		copied, err := genomes.CopyFasta(cfg.FastaFiles, layout.Intermediate)
		if err != nil {
			return err
		}
		res.Genomes = append(downloaded, copied...)
		logger.Info("Genomes acquired", "STEP", "acquire", "downloaded", len(downloaded), "copied", len(copied))
		return nil
	})
	if err != nil {
		return res, err
	}

	fmt.Fprintln(out, "Renaming genomes...")
	err = step(logger, "rename", func() error {
		lookup := w.Lookup
		if lookup == nil {
			lookup = taxon.NewLookuper(cfg, w.Runner)
		}
		renamer := taxon.Renamer{Lookup: lookup, Workers: cfg.Workers, Logger: logger}
		records, err := renamer.Rename(ctx, layout.Intermediate)
		res.Renamed = records
		if err != nil {
			return err
		}
		for _, r := range records {
			if r.Err != nil {
				fmt.Fprintf(out, "Error processing %s: %v\n", r.Original, r.Err)
			}
		}
		renamed, skipped := taxon.Summary(records)
		logger.Info("Genomes renamed", "STEP", "rename", "renamed", renamed, "skipped", skipped)
		return nil
	})
	if err != nil {
		return res, err
	}

	if err := w.genomeStats(layout, logger); err != nil {
		logger.Warn("GenFlow", "STEP", "genome-stats", "STATUS", utils.StatusSkipped, "error", err)
	}

	fmt.Fprintln(out, "Creating  anvi'o databases...")
	err = step(logger, "contigs-db", func() error {
		_, err := pangenome.BuildDatabases(ctx, w.Runner, cfg, layout, logger)
		return err
	})
	if err != nil {
		return res, err
	}

	fmt.Fprintln(out, "Generating pan-genome...")
	var coreGenes string
	err = step(logger, "pangenome", func() error {
		entries, err := pangenome.Emit(cfg, layout)
		if err != nil {
			return err
		}
		res.Registry = entries
		coreGenes, err = pangenome.Run(ctx, w.Runner, cfg, layout, logger)
		return err
	})
	if err != nil {
		return res, err
	}

	fmt.Fprintln(out, "Aligning sequences and creating phylogenomic tree...")
	err = step(logger, "phylogeny", func() error {
		res.Tree, err = alignment.Run(ctx, w.Runner, cfg, layout, coreGenes, logger)
		return err
	})
	if err != nil {
		return res, err
	}

	fmt.Fprintln(out, "Performing ANI analysis...")
	err = step(logger, "ani", func() error {
		return ani.Run(ctx, w.Runner, cfg, layout, logger)
	})
	if err != nil {
		return res, err
	}

	err = step(logger, "collect", func() error {
		res.Collected, err = collector.Collect(layout, cfg.ProjectName)
		return err
	})
	if err != nil {
		return res, err
	}

	res.Elapsed = w.clock().Sub(start)
	fmt.Fprintln(out, "Your analysis is ready, now you have some pretty phylogenomic plots.")
	fmt.Fprintln(out, Elapsed(res.Elapsed))
	return res, nil
}

// genomeStats tabulates and plots the assembly statistics of the genomes
// about to be turned into databases.
func (w *Workflow) genomeStats(layout workspace.Layout, logger *slog.Logger) error {
	return step(logger, "genome-stats", func() error {
		files, err := pangenome.GenomeFiles(layout.Intermediate)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return nil
		}
		var stats []genomestats.Stats
		for _, f := range files {
			st, err := genomestats.Scan(filepath.Join(layout.Intermediate, f), w.Config.MinContigLength)
			if err != nil {
				return err
			}
			stats = append(stats, st)
		}
		if err := genomestats.WriteTable(stats, filepath.Join(layout.Results, GenomeSummaryFile)); err != nil {
			return err
		}
		return genomestats.PlotSizes(stats, filepath.Join(layout.Results, GenomeSizesPlot))
	})
}

// Elapsed formats d in whole hours and minutes.
func Elapsed(d time.Duration) string {
	hours := int(d / time.Hour)
	minutes := int((d % time.Hour) / time.Minute)
	return fmt.Sprintf("Time elapsed: %d hour(s) and %d minute(s).", hours, minutes)
}
