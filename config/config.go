// Package config resolves GenFlow's invocation parameters into an immutable
// RunConfiguration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Defaults for every numeric parameter. Values are forwarded to the external
// tools unchecked.
const (
	DefaultGenomeList         = "genomes.txt"
	DefaultThreads            = 8
	DefaultGeometricIndex     = 0.8
	DefaultFunctionalIndex    = 0.8
	DefaultMCLInflation       = 10
	DefaultMinBit             = 0.5
	DefaultMinPercentIdentity = 0.0
	DefaultMinContigLength    = 1000
	DefaultProjectName        = "Filo"
	DefaultLookup             = LookupEdirect
)

// Metadata lookup backends for the taxon renaming step.
const (
	LookupEdirect = "edirect"
	LookupEntrez  = "entrez"
)

// Tools holds the program invoked for each external collaborator.
type Tools struct {
	Datasets            string
	Esearch             string
	Esummary            string
	Xtract              string
	ReformatFasta       string
	GenContigsDB        string
	RunHMMs             string
	GenGenomesStorage   string
	PanGenome           string
	GetSequences        string
	GenPhylogenomicTree string
	Mafft               string
	FastTree            string
	PyANI               string
	Rscript             string
	ANIScript           string
}

// DefaultTools looks every program up on $PATH, except the R post-processing
// script which ships with the installation.
func DefaultTools() Tools {
	return Tools{
		Datasets:            "datasets",
		Esearch:             "esearch",
		Esummary:            "esummary",
		Xtract:              "xtract",
		ReformatFasta:       "anvi-script-reformat-fasta",
		GenContigsDB:        "anvi-gen-contigs-database",
		RunHMMs:             "anvi-run-hmms",
		GenGenomesStorage:   "anvi-gen-genomes-storage",
		PanGenome:           "anvi-pan-genome",
		GetSequences:        "anvi-get-sequences-for-gene-clusters",
		GenPhylogenomicTree: "anvi-gen-phylogenomic-tree",
		Mafft:               "mafft",
		FastTree:            "FastTree",
		PyANI:               "average_nucleotide_identity.py",
		Rscript:             "Rscript",
		ANIScript:           "/opt/GenFlow/scripts/ANI.R",
	}
}

// Options is the raw, unresolved input gathered from flags, environment and
// config file.
type Options struct {
	Fasta              string
	GenomeList         string
	Threads            int
	GeometricIndex     float64
	FunctionalIndex    float64
	DNAMode            bool
	MCLInflation       int
	MinBit             float64
	MinPercentIdentity float64

	WorkDir         string
	ProjectName     string
	MinContigLength int
	Lookup          string
	Email           string
	Workers         int
	Verbose         bool
	Tools           Tools
}

// DefaultOptions returns Options populated with every default.
func DefaultOptions() Options {
	return Options{
		GenomeList:         DefaultGenomeList,
		Threads:            DefaultThreads,
		GeometricIndex:     DefaultGeometricIndex,
		FunctionalIndex:    DefaultFunctionalIndex,
		MCLInflation:       DefaultMCLInflation,
		MinBit:             DefaultMinBit,
		MinPercentIdentity: DefaultMinPercentIdentity,
		WorkDir:            ".",
		ProjectName:        DefaultProjectName,
		MinContigLength:    DefaultMinContigLength,
		Lookup:             DefaultLookup,
		Tools:              DefaultTools(),
	}
}

// RunConfiguration is created once by Resolve and never mutated afterwards.
type RunConfiguration struct {
	GenomeList         string
	FastaFiles         []string
	Threads            int
	GeometricIndex     float64
	FunctionalIndex    float64
	DNAMode            bool
	MCLInflation       int
	MinBit             float64
	MinPercentIdentity float64

	WorkDir         string
	ProjectName     string
	MinContigLength int
	Lookup          string
	Email           string
	Workers         int
	Verbose         bool
	Tools           Tools
}

// MissingGenomeListError is returned when the accession list does not exist.
type MissingGenomeListError struct {
	Path string
}

func (e *MissingGenomeListError) Error() string {
	return fmt.Sprintf("Error: File '%s' not found.", e.Path)
}

// Resolve validates opts and produces the RunConfiguration. It performs no
// side effects; a missing genome list is reported before anything is created.
func Resolve(opts Options) (RunConfiguration, error) {
	workDir := opts.WorkDir
	if workDir == "" {
		workDir = "."
	}
	workDir, err := filepath.Abs(workDir)
	if err != nil {
		return RunConfiguration{}, err
	}

	genomeList := opts.GenomeList
	if genomeList == "" {
		genomeList = DefaultGenomeList
	}
	listPath := genomeList
	if !filepath.IsAbs(listPath) {
		listPath = filepath.Join(workDir, listPath)
	}
	info, err := os.Stat(listPath)
	if err != nil || info.IsDir() {
		return RunConfiguration{}, &MissingGenomeListError{Path: genomeList}
	}

	fastas, err := ResolveFasta(opts.Fasta, workDir)
	if err != nil {
		return RunConfiguration{}, err
	}

	switch opts.Lookup {
	case "":
		opts.Lookup = DefaultLookup
	case LookupEdirect, LookupEntrez:
	default:
		return RunConfiguration{}, fmt.Errorf("unknown lookup backend %q (want %s or %s)", opts.Lookup, LookupEdirect, LookupEntrez)
	}
	if opts.Lookup == LookupEntrez && opts.Email == "" {
		return RunConfiguration{}, fmt.Errorf("the %s lookup backend requires --email", LookupEntrez)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = opts.Threads
	}
	if workers <= 0 {
		workers = 1
	}
	projectName := opts.ProjectName
	if projectName == "" {
		projectName = DefaultProjectName
	}

	return RunConfiguration{
		GenomeList:         listPath,
		FastaFiles:         fastas,
		Threads:            opts.Threads,
		GeometricIndex:     opts.GeometricIndex,
		FunctionalIndex:    opts.FunctionalIndex,
		DNAMode:            opts.DNAMode,
		MCLInflation:       opts.MCLInflation,
		MinBit:             opts.MinBit,
		MinPercentIdentity: opts.MinPercentIdentity,
		WorkDir:            workDir,
		ProjectName:        projectName,
		MinContigLength:    opts.MinContigLength,
		Lookup:             opts.Lookup,
		Email:              opts.Email,
		Workers:            workers,
		Verbose:            opts.Verbose,
		Tools:              opts.Tools,
	}, nil
}

// ResolveFasta applies the FASTA selection policy: no argument selects every
// .fasta file in dir, an argument with a wildcard is globbed, anything else
// is a comma separated list. Entries are not checked for existence. Relative
// entries are resolved against dir.
func ResolveFasta(arg, dir string) ([]string, error) {
	arg = strings.TrimSpace(arg)
	switch {
	case arg == "":
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, err
		}
		var files []string
		for _, e := range entries {
			if !e.IsDir() && strings.HasSuffix(e.Name(), ".fasta") {
				files = append(files, filepath.Join(dir, e.Name()))
			}
		}
		return files, nil

	case strings.ContainsAny(arg, "*?["):
		pattern := arg
		if !filepath.IsAbs(pattern) {
			pattern = filepath.Join(dir, pattern)
		}
		files, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad FASTA pattern %q: %w", arg, err)
		}
		sort.Strings(files)
		return files, nil

	default:
		var files []string
		for _, f := range strings.Split(arg, ",") {
			f = strings.TrimSpace(f)
			if f == "" {
				continue
			}
			if !filepath.IsAbs(f) {
				f = filepath.Join(dir, f)
			}
			files = append(files, f)
		}
		return files, nil
	}
}

// RequiredTools lists the programs this configuration will invoke.
func (c RunConfiguration) RequiredTools() []string {
	t := c.Tools
	tools := []string{
		t.Datasets,
		t.ReformatFasta, t.GenContigsDB, t.RunHMMs,
		t.GenGenomesStorage, t.PanGenome, t.GetSequences,
		t.Mafft,
		t.PyANI, t.Rscript,
	}
	if c.Lookup == LookupEdirect {
		tools = append(tools, t.Esearch, t.Esummary, t.Xtract)
	}
	if c.DNAMode {
		tools = append(tools, t.FastTree)
	} else {
		tools = append(tools, t.GenPhylogenomicTree)
	}
	return tools
}

// Summary is the parameter banner printed before a run starts.
func (c RunConfiguration) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Using genomes file: %s\n", c.GenomeList)
	fmt.Fprintf(&b, "Using FASTA files: %v\n", c.FastaFiles)
	fmt.Fprintf(&b, "Geometric Index: %v\n", c.GeometricIndex)
	fmt.Fprintf(&b, "Functional Index: %v\n", c.FunctionalIndex)
	fmt.Fprintf(&b, "Threads: %d\n", c.Threads)
	fmt.Fprintf(&b, "Dna Mode: %v\n", c.DNAMode)
	fmt.Fprintf(&b, "MCL Inflation: %d\n", c.MCLInflation)
	fmt.Fprintf(&b, "Minimum Bit Score: %v\n", c.MinBit)
	fmt.Fprintf(&b, "Minimum Percent Identity: %v\n", c.MinPercentIdentity)
	fmt.Fprintf(&b, "Metadata lookup: %s\n", c.Lookup)
	return b.String()
}
