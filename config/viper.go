package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Flag names, shared by the cobra commands and the viper keys.
const (
	FlagFasta              = "fasta"
	FlagGenomes            = "genomes"
	FlagThreads            = "threads"
	FlagGeometricIndex     = "geometric_index"
	FlagFunctionalIndex    = "functional_index"
	FlagDNAMode            = "dna_mode"
	FlagMCLInflation       = "mcl_inflation"
	FlagMinBit             = "minbit"
	FlagMinPercentIdentity = "min_percent_identity"
	FlagWorkDir            = "workdir"
	FlagProjectName        = "project_name"
	FlagMinContigLength    = "min_contig_length"
	FlagLookup             = "lookup"
	FlagEmail              = "email"
	FlagWorkers            = "workers"
	FlagVerbose            = "verbose"
)

const envPrefix = "GENFLOW"

// AddRunFlags registers the workflow parameters on fs.
func AddRunFlags(fs *pflag.FlagSet) {
	fs.StringP(FlagFasta, "f", "", "FASTA files, separated by commas or as a glob. If you do not specify, all the .fasta files in the folder are used")
	fs.StringP(FlagGenomes, "g", DefaultGenomeList, "Text file containing genome accession numbers")
	fs.IntP(FlagThreads, "t", DefaultThreads, "Number of threads")
	fs.Float64P(FlagGeometricIndex, "G", DefaultGeometricIndex, "Geometric Index value for selecting core genes")
	fs.Float64P(FlagFunctionalIndex, "F", DefaultFunctionalIndex, "Functional Index value for selecting core genes")
	fs.BoolP(FlagDNAMode, "N", false, "Enable DNA mode")
	fs.IntP(FlagMCLInflation, "I", DefaultMCLInflation, "MCL inflation value")
	fs.Float64P(FlagMinBit, "M", DefaultMinBit, "Minimum bit score")
	fs.Float64P(FlagMinPercentIdentity, "P", DefaultMinPercentIdentity, "Minimum percent identity for pan-genome")

	fs.StringP(FlagWorkDir, "w", ".", "Directory the analysis runs in")
	fs.String(FlagProjectName, DefaultProjectName, "Pan-genome project name")
	fs.Int(FlagMinContigLength, DefaultMinContigLength, "Minimum contig length kept when reformatting FASTA files")
	fs.String(FlagLookup, DefaultLookup, "Metadata lookup backend for renaming genomes: edirect or entrez")
	fs.String(FlagEmail, "", "Contact email sent to NCBI by the entrez lookup backend")
	fs.Int(FlagWorkers, 0, "Concurrent metadata lookups (default: --threads)")
	fs.BoolP(FlagVerbose, "v", false, "Print external tool output")
}

// NewViper layers an optional config file and GENFLOW_* environment
// variables under the flags in fs.
func NewViper(fs *pflag.FlagSet, cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for key, value := range toolKeys(DefaultTools()) {
		v.SetDefault(key, value)
	}

	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, err
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", cfgFile, err)
		}
	}
	return v, nil
}

// FromViper reads Options out of v.
func FromViper(v *viper.Viper) Options {
	opts := DefaultOptions()
	opts.Fasta = v.GetString(FlagFasta)
	if s := v.GetString(FlagGenomes); s != "" {
		opts.GenomeList = s
	}
	if v.IsSet(FlagThreads) {
		opts.Threads = v.GetInt(FlagThreads)
	}
	if v.IsSet(FlagGeometricIndex) {
		opts.GeometricIndex = v.GetFloat64(FlagGeometricIndex)
	}
	if v.IsSet(FlagFunctionalIndex) {
		opts.FunctionalIndex = v.GetFloat64(FlagFunctionalIndex)
	}
	opts.DNAMode = v.GetBool(FlagDNAMode)
	if v.IsSet(FlagMCLInflation) {
		opts.MCLInflation = v.GetInt(FlagMCLInflation)
	}
	if v.IsSet(FlagMinBit) {
		opts.MinBit = v.GetFloat64(FlagMinBit)
	}
	if v.IsSet(FlagMinPercentIdentity) {
		opts.MinPercentIdentity = v.GetFloat64(FlagMinPercentIdentity)
	}
	if s := v.GetString(FlagWorkDir); s != "" {
		opts.WorkDir = s
	}
	if s := v.GetString(FlagProjectName); s != "" {
		opts.ProjectName = s
	}
	if v.IsSet(FlagMinContigLength) {
		opts.MinContigLength = v.GetInt(FlagMinContigLength)
	}
	if s := v.GetString(FlagLookup); s != "" {
		opts.Lookup = s
	}
	opts.Email = v.GetString(FlagEmail)
	opts.Workers = v.GetInt(FlagWorkers)
	opts.Verbose = v.GetBool(FlagVerbose)

	t := &opts.Tools
	for key, field := range toolFields(t) {
		if s := v.GetString(key); s != "" {
			*field = s
		}
	}
	return opts
}

func toolFields(t *Tools) map[string]*string {
	return map[string]*string{
		"tools.datasets":              &t.Datasets,
		"tools.esearch":               &t.Esearch,
		"tools.esummary":              &t.Esummary,
		"tools.xtract":                &t.Xtract,
		"tools.reformat_fasta":        &t.ReformatFasta,
		"tools.gen_contigs_database":  &t.GenContigsDB,
		"tools.run_hmms":              &t.RunHMMs,
		"tools.gen_genomes_storage":   &t.GenGenomesStorage,
		"tools.pan_genome":            &t.PanGenome,
		"tools.get_sequences":         &t.GetSequences,
		"tools.gen_phylogenomic_tree": &t.GenPhylogenomicTree,
		"tools.mafft":                 &t.Mafft,
		"tools.fasttree":              &t.FastTree,
		"tools.pyani":                 &t.PyANI,
		"tools.rscript":               &t.Rscript,
		"tools.ani_script":            &t.ANIScript,
	}
}

func toolKeys(t Tools) map[string]string {
	keys := make(map[string]string)
	for key, field := range toolFields(&t) {
		keys[key] = *field
	}
	return keys
}
