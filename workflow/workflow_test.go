package workflow

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/braddmg/genflow/config"
	"github.com/braddmg/genflow/pangenome"
	"github.com/braddmg/genflow/taxon"
	"github.com/braddmg/genflow/utils"
	check "gopkg.in/check.v1"
)

func Test(t *testing.T) { check.TestingT(t) }

type S struct{}

var _ = check.Suite(&S{})

var accessions = map[string]string{
	"GCF_000005845.2": "Escherichia coli str. K-12 substr. MG1655\tK-12\tGCF_000005845.2",
	"GCF_000009045.1": "Bacillus subtilis subsp. subtilis str. 168\t168\tGCF_000009045.1",
	"GCF_000195955.2": "Mycobacterium tuberculosis H37Rv\tH37Rv\tGCF_000195955.2",
}

const contigs = ">contig_1\nGGGGCCCCAAAATTTT\n>contig_2\nACGTACGT\n"

type fakeLookup map[string]string

func (f fakeLookup) Lookup(ctx context.Context, term string) (string, error) {
	if r, ok := f[term]; ok {
		return r, nil
	}
	return "", taxon.ErrNoRecord
}

func resolve(dir string, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

func write(c *check.C, path, body string) {
	c.Assert(os.MkdirAll(filepath.Dir(path), 0755), check.IsNil)
	c.Assert(os.WriteFile(path, []byte(body), 0644), check.IsNil)
}

// fakeTools stands in for every external program by creating the files it
// would have written.
func fakeTools(c *check.C, cfg config.RunConfiguration, fail string) func(utils.Command) error {
	t := cfg.Tools
	return func(cmd utils.Command) error {
		if cmd.Name == fail {
			return &utils.CommandError{Cmd: cmd.String(), Err: errors.New("exit status 3")}
		}
		arg := func(flag string) string {
			for i, a := range cmd.Args {
				if a == flag && i+1 < len(cmd.Args) {
					return cmd.Args[i+1]
				}
			}
			return ""
		}
		switch cmd.Name {
		case t.Datasets:
			f, err := os.Create(arg("--filename"))
			c.Assert(err, check.IsNil)
			zw := zip.NewWriter(f)
			for acc := range accessions {
				w, err := zw.Create(fmt.Sprintf("ncbi_dataset/data/%s/%s_ASM_genomic.fna", acc, acc))
				c.Assert(err, check.IsNil)
				_, err = w.Write([]byte(contigs))
				c.Assert(err, check.IsNil)
			}
			c.Assert(zw.Close(), check.IsNil)
			c.Assert(f.Close(), check.IsNil)
		case t.ReformatFasta:
			c.Assert(utils.CopyFile(resolve(cmd.Dir, cmd.Args[0]), resolve(cmd.Dir, arg("-o"))), check.IsNil)
		case t.PanGenome:
			write(c, filepath.Join(cmd.Dir, pangenome.PanDB(cfg.ProjectName)), "")
		case t.PyANI:
			var header, rows []string
			files, err := utils.ListFiles(filepath.Join(cmd.Dir, "fasta_files"), ".fa")
			c.Assert(err, check.IsNil)
			for _, f := range files {
				header = append(header, pangenome.LogicalName(f, ".fa"))
			}
			for i, n := range header {
				vals := []string{n}
				for j := range header {
					v := "0.8"
					if i == j {
						v = "1.0"
					}
					vals = append(vals, v)
				}
				rows = append(rows, strings.Join(vals, "\t"))
			}
			write(c, filepath.Join(cmd.Dir, "pyANI", "ANIm_percentage_identity.tab"),
				"\t"+strings.Join(header, "\t")+"\n"+strings.Join(rows, "\n")+"\n")
		case t.Rscript:
			write(c, filepath.Join(cmd.Dir, "heatmap_ANIm.png"), "png")
		default:
			if o := arg("-o"); o != "" {
				write(c, resolve(cmd.Dir, o), "")
			}
		}
		if cmd.Stdout != "" {
			write(c, resolve(cmd.Dir, cmd.Stdout), "")
		}
		return nil
	}
}

func newWorkflow(c *check.C, list string, fasta []string) (*Workflow, *utils.RecordingRunner, *bytes.Buffer) {
	dir := c.MkDir()
	listPath := filepath.Join(dir, "genomes.txt")
	write(c, listPath, list)
	cfg := config.RunConfiguration{
		GenomeList:      listPath,
		FastaFiles:      fasta,
		Threads:         2,
		GeometricIndex:  0.8,
		FunctionalIndex: 0.8,
		MCLInflation:    10,
		MinBit:          0.5,
		WorkDir:         dir,
		ProjectName:     "Filo",
		MinContigLength: 1000,
		Lookup:          config.LookupEdirect,
		Workers:         2,
		Tools:           config.DefaultTools(),
	}
	runner := &utils.RecordingRunner{}
	runner.OnRun = fakeTools(c, cfg, "")
	var out bytes.Buffer
	start := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	calls := 0
	w := &Workflow{
		Config: cfg,
		Runner: runner,
		Lookup: fakeLookup{
			"GCF_000005845.2": accessions["GCF_000005845.2"],
			"GCF_000009045.1": accessions["GCF_000009045.1"],
			"GCF_000195955.2": accessions["GCF_000195955.2"],
		},
		Stdout: &out,
		Stderr: &bytes.Buffer{},
		now: func() time.Time {
			calls++
			if calls == 1 {
				return start
			}
			return start.Add(time.Hour + 5*time.Minute + 30*time.Second)
		},
	}
	return w, runner, &out
}

func (s *S) TestThreeAccessions(c *check.C) {
	w, runner, out := newWorkflow(c, "GCF_000005845.2\nGCF_000009045.1\nGCF_000195955.2\n", nil)
	res, err := w.Run(context.Background())
	c.Assert(err, check.IsNil)

	c.Check(res.Genomes, check.HasLen, 3)
	renamed, skipped := taxon.Summary(res.Renamed)
	c.Check(renamed, check.Equals, 3)
	c.Check(skipped, check.Equals, 0)
	c.Check(res.Registry, check.HasLen, 3)

	root := w.Config.WorkDir
	registry, err := pangenome.ReadExternalGenomes(filepath.Join(root, "Intermediate", pangenome.ExternalGenomesFile))
	c.Assert(err, check.IsNil)
	c.Check(registry, check.HasLen, 3)

	results := filepath.Join(root, "results")
	for _, f := range []string{
		"phylogenomic-tree.txt",
		"proteins-sequences-aligned.fasta",
		"heatmap_ANIm.png",
		"heatmap-ANI.html",
		"ani-summary.tsv",
		"genome-summary.tsv",
		"genome-sizes.png",
		"Anvio/Filo-GENOMES.db",
		"Anvio/Filo/Filo-PAN.db",
	} {
		c.Check(utils.FileExists(filepath.Join(results, f)), check.Equals, true, check.Commentf("missing %s", f))
	}
	dbs, err := utils.ListFiles(filepath.Join(results, "Anvio"), ".db")
	c.Assert(err, check.IsNil)
	c.Check(dbs, check.HasLen, 4)

	names := runner.Names()
	c.Check(names[0], check.Equals, "datasets")
	c.Check(names[len(names)-1], check.Equals, "Rscript")
	c.Check(strings.Contains(strings.Join(names, " "), "FastTree"), check.Equals, false)

	c.Check(out.String(), check.Matches, "(?s)Using genomes file:.*Downloading genomes\\.\\.\\..*Performing ANI analysis\\.\\.\\..*")
	c.Check(strings.HasSuffix(out.String(), "Time elapsed: 1 hour(s) and 5 minute(s).\n"), check.Equals, true)

	entries, err := utils.ParseLogFile(filepath.Join(root, "logs", "genflow.log"))
	c.Assert(err, check.IsNil)
	for _, st := range []string{"acquire", "rename", "contigs-db", "pangenome", "phylogeny", "ani", "collect"} {
		c.Check(utils.StageHasCompleted(entries, st, ""), check.Equals, true, check.Commentf("step %s", st))
	}
}

func (s *S) TestRunTwiceInSameWorkDir(c *check.C) {
	w, _, _ := newWorkflow(c, "GCF_000005845.2\nGCF_000009045.1\nGCF_000195955.2\n", nil)
	for i := 0; i < 2; i++ {
		res, err := w.Run(context.Background())
		c.Assert(err, check.IsNil, check.Commentf("run %d", i+1))
		c.Check(res.Registry, check.HasLen, 3, check.Commentf("run %d", i+1))
		renamed, skipped := taxon.Summary(res.Renamed)
		c.Check(renamed, check.Equals, 3)
		c.Check(skipped, check.Equals, 0)
	}

	intermediate := filepath.Join(w.Config.WorkDir, "Intermediate")
	genomes, err := pangenome.GenomeFiles(intermediate)
	c.Assert(err, check.IsNil)
	c.Check(genomes, check.DeepEquals, []string{
		"Bacillus_subtilis_subsp_subtilis_str_168_168_GCF_000009045_1.fasta",
		"Escherichia_coli_str_K_12_substr_MG1655_K_12_GCF_000005845_2.fasta",
		"Mycobacterium_tuberculosis_H37Rv_H37Rv_GCF_000195955_2.fasta",
	})
	staged, err := utils.ListFiles(filepath.Join(intermediate, "fasta_files"), ".fa")
	c.Assert(err, check.IsNil)
	c.Check(staged, check.HasLen, 3)
	dbs, err := utils.ListFiles(filepath.Join(w.Config.WorkDir, "results", "Anvio"), ".db")
	c.Assert(err, check.IsNil)
	c.Check(dbs, check.HasLen, 4)
}

func (s *S) TestFastaOnly(c *check.C) {
	src := c.MkDir()
	fasta := filepath.Join(src, "Vibrio_cholerae_N16961.fasta")
	write(c, fasta, contigs)

	w, runner, _ := newWorkflow(c, "", []string{fasta})
	w.Config.DNAMode = true
	res, err := w.Run(context.Background())
	c.Assert(err, check.IsNil)
	c.Check(res.Registry, check.DeepEquals, []pangenome.GenomeRegistryEntry{
		{Name: "Vibrio_cholerae_N16961", Path: "Vibrio_cholerae_N16961.db"},
	})
	names := runner.Names()
	c.Check(names[0], check.Equals, "anvi-script-reformat-fasta")
	c.Check(strings.Contains(strings.Join(names, " "), "FastTree"), check.Equals, true)
	c.Check(utils.FileExists(filepath.Join(w.Config.WorkDir, "results", "dna-sequences-aligned.fasta")), check.Equals, true)
}

func (s *S) TestFailedLookupKeepsGenome(c *check.C) {
	w, _, out := newWorkflow(c, "GCF_000005845.2\nGCF_000009045.1\nGCF_000195955.2\n", nil)
	delete(w.Lookup.(fakeLookup), "GCF_000195955.2")
	res, err := w.Run(context.Background())
	c.Assert(err, check.IsNil)
	renamed, skipped := taxon.Summary(res.Renamed)
	c.Check(renamed, check.Equals, 2)
	c.Check(skipped, check.Equals, 1)
	c.Check(res.Registry, check.HasLen, 3)
	c.Check(out.String(), check.Matches, "(?s).*Error processing GCF_000195955.2_ASM_genomic.fna: .*")
}

func (s *S) TestStopsAtFailingTool(c *check.C) {
	w, runner, out := newWorkflow(c, "GCF_000005845.2\n", nil)
	runner.OnRun = fakeTools(c, w.Config, "mafft")
	_, err := w.Run(context.Background())
	var cmdErr *utils.CommandError
	c.Assert(errors.As(err, &cmdErr), check.Equals, true)
	c.Check(cmdErr.Cmd, check.Matches, "mafft .*")
	c.Check(strings.Contains(strings.Join(runner.Names(), " "), "average_nucleotide_identity.py"), check.Equals, false)
	c.Check(strings.Contains(out.String(), "Time elapsed"), check.Equals, false)

	entries, err := utils.ParseLogFile(filepath.Join(w.Config.WorkDir, "logs", "genflow.log"))
	c.Assert(err, check.IsNil)
	c.Check(utils.StageHasCompleted(entries, "pangenome", ""), check.Equals, true)
	c.Check(utils.StageHasCompleted(entries, "phylogeny", ""), check.Equals, false)
	c.Check(utils.StageHasCompleted(entries, "mafft", ""), check.Equals, false)
}

func (s *S) TestElapsed(c *check.C) {
	c.Check(Elapsed(59*time.Second), check.Equals, "Time elapsed: 0 hour(s) and 0 minute(s).")
	c.Check(Elapsed(2*time.Hour+59*time.Minute+59*time.Second), check.Equals, "Time elapsed: 2 hour(s) and 59 minute(s).")
}
