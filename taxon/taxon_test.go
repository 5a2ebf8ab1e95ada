package taxon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"testing/quick"

	"github.com/biogo/ncbi/entrez/summary"
	"github.com/braddmg/genflow/config"
	"github.com/braddmg/genflow/utils"
	check "gopkg.in/check.v1"
)

func Test(t *testing.T) { check.TestingT(t) }

type S struct{}

var _ = check.Suite(&S{})

func (s *S) TestLookupTerm(c *check.C) {
	for _, t := range []struct {
		name string
		want string
	}{
		{"GCF_000005845.2_ASM584v2_genomic.fna", "GCF_000005845.2"},
		{"GCA_000009045.1_ASM904v1_genomic.fna", "GCA_000009045.1"},
		{"/tmp/Intermediate/GCF_000001405.40_GRCh38.p14_genomic.fna", "GCF_000001405.40"},
		{"GCF_000005845.2.fna", "GCF_000005845.2"},
		{"single.fna", "single"},
		{"a_b_c_d_e", "a_b"},
	} {
		c.Check(LookupTerm(t.name), check.Equals, t.want, check.Commentf("%s", t.name))
	}
}

func (s *S) TestLookupTermProperty(c *check.C) {
	segment := regexp.MustCompile(`^[^_/]+$`)
	f := func(a, b, rest string) bool {
		if !segment.MatchString(a) || !segment.MatchString(b) || strings.Contains(rest, "/") {
			return true
		}
		return LookupTerm(a+"_"+b+"_"+rest) == a+"_"+b
	}
	c.Check(quick.Check(f, nil), check.IsNil)
}

func (s *S) TestSanitize(c *check.C) {
	for _, t := range []struct {
		in   string
		want string
	}{
		{"Escherichia coli\tK-12\tGCF_000005845.2\n", "Escherichia_coli_K_12_GCF_000005845_2"},
		{"Escherichia coli str. K-12 substr. MG1655 (E. coli)\tK-12\tGCF_000005845.2", "Escherichia_coli_str_K_12_substr_MG1655_K_12_GCF_000005845_2"},
		{"Bacillus subtilis subsp. subtilis str. 168\tstrain=168\tGCF_000009045.1", "Bacillus_subtilis_subsp_subtilis_str_168_strain168_GCF_000009045_1"},
		{"Salmonella enterica: Typhimurium+LT2, (nested (inner) note);x", "Salmonella_enterica_Typhimurium_LT2_x"},
		{"Vibrio cholerae O1 biovar El Tor str. N16961/ATCC 39315", "Vibrio_cholerae_O1_biovar_El_Tor_str_N16961_ATCC_39315"},
		{"unbalanced (paren", "unbalanced_paren"},
		{"   ", ""},
		{"", ""},
	} {
		c.Check(Sanitize(t.in), check.Equals, t.want, check.Commentf("%q", t.in))
	}
}

func (s *S) TestSanitizeIsIdempotent(c *check.C) {
	f := func(in string) bool {
		once := Sanitize(in)
		return Sanitize(once) == once
	}
	c.Check(quick.Check(f, &quick.Config{MaxCount: 2000}), check.IsNil)

	for _, in := range []string{"a__(b)__c", "((x))", "_a_(b_(c)_d)_e_", "x = y ; z", "a.-.b"} {
		once := Sanitize(in)
		c.Check(Sanitize(once), check.Equals, once, check.Commentf("%q", in))
	}
}

func (s *S) TestSanitizeNeverLeavesUnsafeText(c *check.C) {
	parens := regexp.MustCompile(`\(.*\)`)
	f := func(in string) bool {
		out := Sanitize(in)
		return !strings.ContainsAny(out, "\t :()") && !parens.MatchString(out) && !strings.Contains(out, "__")
	}
	c.Check(quick.Check(f, &quick.Config{MaxCount: 2000}), check.IsNil)
}

func (s *S) TestSingleRecord(c *check.C) {
	rec, err := singleRecord("GCF_1", "Escherichia coli\tK-12\tGCF_1\n\n")
	c.Assert(err, check.IsNil)
	c.Check(rec, check.Equals, "Escherichia coli\tK-12\tGCF_1")

	_, err = singleRecord("GCF_1", "\n  \n")
	c.Check(errors.Is(err, ErrNoRecord), check.Equals, true)

	_, err = singleRecord("GCF_1", "A\tB\tGCF_1\nC\tD\tGCF_1\n")
	var amb *AmbiguousError
	c.Assert(errors.As(err, &amb), check.Equals, true)
	c.Check(amb.Records, check.HasLen, 2)
}

func (s *S) TestEdirectPipeline(c *check.C) {
	runner := &utils.RecordingRunner{OnOutput: func(cmds []utils.Command) ([]byte, error) {
		return []byte("Escherichia coli\tK-12\tGCF_000005845.2\n"), nil
	}}
	e := Edirect{Runner: runner, Esearch: "esearch", Esummary: "esummary", Xtract: "xtract"}
	rec, err := e.Lookup(context.Background(), "GCF_000005845.2")
	c.Assert(err, check.IsNil)
	c.Check(rec, check.Equals, "Escherichia coli\tK-12\tGCF_000005845.2")

	cmds := runner.Commands()
	c.Assert(cmds, check.HasLen, 3)
	c.Check(cmds[0].Args, check.DeepEquals, []string{"-db", "assembly", "-query", "GCF_000005845.2"})
	c.Check(cmds[1].Name, check.Equals, "esummary")
	c.Check(cmds[2].Args, check.DeepEquals, []string{"-pattern", "DocumentSummary", "-element", "Organism,Strain,AssemblyAccession"})
}

func (s *S) TestSummaryRecord(c *check.C) {
	items := []summary.Item{
		{Name: "AssemblyAccession", Type: "String", Value: "GCF_000005845.2"},
		{Name: "Organism", Type: "String", Value: "Escherichia coli str. K-12 substr. MG1655 (E. coli)"},
		{Name: "Biosource", Type: "Structure", Value: "\n\t\t"},
		{Name: "AssemblyAccession", Type: "String", Value: "GCA_000005845.2"},
	}
	c.Check(summaryRecord(items), check.Equals, "Escherichia coli str. K-12 substr. MG1655 (E. coli)\tGCF_000005845.2")

	items = append(items, summary.Item{Name: "Strain", Type: "String", Value: " K-12 "})
	c.Check(summaryRecord(items), check.Equals, "Escherichia coli str. K-12 substr. MG1655 (E. coli)\tK-12\tGCF_000005845.2")
}

type fakeLookup map[string]string

func (f fakeLookup) Lookup(ctx context.Context, term string) (string, error) {
	switch v := f[term]; v {
	case "":
		return "", ErrNoRecord
	case "AMBIGUOUS":
		return "", &AmbiguousError{Term: term, Records: []string{"a", "b"}}
	case "FAIL":
		return "", &utils.CommandError{Cmd: "esearch", Err: errors.New("exit status 1")}
	default:
		return v, nil
	}
}

func populate(c *check.C, dir string, names ...string) {
	for _, n := range names {
		c.Assert(os.WriteFile(filepath.Join(dir, n), []byte(">"+n+"\nACGT\n"), 0644), check.IsNil)
	}
}

func (s *S) TestRenameContinuesPastFailures(c *check.C) {
	dir := c.MkDir()
	populate(c, dir,
		"GCF_000001.1_A_genomic.fna",
		"GCF_000002.1_B_genomic.fna",
		"GCF_000003.1_C_genomic.fna",
		"GCF_000004.1_D_genomic.fna",
		"GCF_000005.1_E_genomic.fna",
		"user.fasta",
	)
	lookup := fakeLookup{
		"GCF_000001.1": "Escherichia coli\tK-12\tGCF_000001.1",
		"GCF_000002.1": "FAIL",
		"GCF_000003.1": "Bacillus subtilis\t168\tGCF_000003.1",
		"GCF_000004.1": "AMBIGUOUS",
		"GCF_000005.1": "( )",
	}

	records, err := Renamer{Lookup: lookup, Workers: 3}.Rename(context.Background(), dir)
	c.Assert(err, check.IsNil)
	c.Assert(records, check.HasLen, 5)

	c.Check(records[0].Final, check.Equals, "Escherichia_coli_K_12_GCF_000001_1.fasta")
	c.Check(records[1].Final, check.Equals, "GCF_000002.1_B_genomic.fna")
	c.Check(records[1].Err, check.NotNil)
	c.Check(records[2].Final, check.Equals, "Bacillus_subtilis_168_GCF_000003_1.fasta")
	var amb *AmbiguousError
	c.Check(errors.As(records[3].Err, &amb), check.Equals, true)
	c.Check(errors.Is(records[4].Err, ErrEmptyToken), check.Equals, true)

	renamed, skipped := Summary(records)
	c.Check(renamed, check.Equals, 2)
	c.Check(skipped, check.Equals, 3)

	names, err := utils.ListFiles(dir, ".fna", ".fasta")
	c.Assert(err, check.IsNil)
	c.Check(names, check.DeepEquals, []string{
		"Bacillus_subtilis_168_GCF_000003_1.fasta",
		"Escherichia_coli_K_12_GCF_000001_1.fasta",
		"GCF_000002.1_B_genomic.fna",
		"GCF_000004.1_D_genomic.fna",
		"GCF_000005.1_E_genomic.fna",
		"user.fasta",
	})
}

func (s *S) TestRenameCollisions(c *check.C) {
	dir := c.MkDir()
	populate(c, dir,
		"GCF_000001.1_A_genomic.fna",
		"GCF_000002.1_B_genomic.fna",
		"GCF_000003.1_C_genomic.fna",
		"Existing.fasta",
	)
	lookup := fakeLookup{
		"GCF_000001.1": "Same name",
		"GCF_000002.1": "Same-name",
		"GCF_000003.1": "Existing",
	}

	records, err := Renamer{Lookup: lookup, Workers: 2}.Rename(context.Background(), dir)
	c.Assert(err, check.IsNil)
	c.Check(records[0].Final, check.Equals, "Same_name.fasta")
	c.Check(records[1].Final, check.Equals, "Same_name_2.fasta")
	c.Check(records[2].Final, check.Equals, "Existing_2.fasta")

	// The pre-existing file is untouched.
	body, err := os.ReadFile(filepath.Join(dir, "Existing.fasta"))
	c.Assert(err, check.IsNil)
	c.Check(string(body), check.Equals, ">Existing.fasta\nACGT\n")
}

func (s *S) TestRenameTwice(c *check.C) {
	dir := c.MkDir()
	lookup := fakeLookup{"GCF_000001.1": "Escherichia coli\tK-12\tGCF_000001.1"}
	for i := 0; i < 2; i++ {
		populate(c, dir, "GCF_000001.1_A_genomic.fna")
		records, err := Renamer{Lookup: lookup}.Rename(context.Background(), dir)
		c.Assert(err, check.IsNil)
		c.Assert(records, check.HasLen, 1)
		c.Check(records[0].Final, check.Equals, "Escherichia_coli_K_12_GCF_000001_1.fasta")
	}
	names, err := utils.ListFiles(dir)
	c.Assert(err, check.IsNil)
	c.Check(names, check.DeepEquals, []string{"Escherichia_coli_K_12_GCF_000001_1.fasta"})
}

func (s *S) TestRenameEmptyDirectory(c *check.C) {
	records, err := Renamer{Lookup: fakeLookup{}}.Rename(context.Background(), c.MkDir())
	c.Assert(err, check.IsNil)
	c.Check(records, check.HasLen, 0)
}

func (s *S) TestRenameCancelled(c *check.C) {
	dir := c.MkDir()
	populate(c, dir, "GCF_000001.1_A_genomic.fna")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Renamer{Lookup: fakeLookup{"GCF_000001.1": "X"}}.Rename(ctx, dir)
	c.Check(errors.Is(err, context.Canceled), check.Equals, true)
}

func (s *S) TestNewLookuper(c *check.C) {
	cfg := config.RunConfiguration{Lookup: config.LookupEdirect, Tools: config.DefaultTools()}
	runner := &utils.RecordingRunner{}
	ed, ok := NewLookuper(cfg, runner).(Edirect)
	c.Assert(ok, check.Equals, true)
	c.Check(ed.Esearch, check.Equals, "esearch")

	cfg.Lookup, cfg.Email = config.LookupEntrez, "someone@example.org"
	ez, ok := NewLookuper(cfg, runner).(*Entrez)
	c.Assert(ok, check.Equals, true)
	c.Check(ez.Email, check.Equals, "someone@example.org")
}
