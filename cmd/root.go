/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/braddmg/genflow/config"
	"github.com/braddmg/genflow/utils"
	"github.com/braddmg/genflow/workflow"
	"github.com/spf13/cobra"
)

// rootCmd runs the whole workflow when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "genflow",
	Short: "Phylogenomic workflow from genome accessions and FASTA files",
	Long: `GenFlow downloads genomes, names them after their taxa and runs:
1.	anvi'o contigs databases and HMM annotation
2.	Pan-genome and core-gene extraction
3.	Core-gene alignment (mafft) and phylogenomic tree (FastTree or anvi'o)
4.	Average nucleotide identity (pyANI) with heatmaps
`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := resolveConfig(cmd)
		if err != nil {
			return err
		}
		if !noDepCheck {
			fmt.Printf("Checking dependencies ...\n\n")
			if err := utils.CheckDeps(cfg.RequiredTools()...); err != nil {
				return fmt.Errorf("dependency check failed: %w", err)
			}
			fmt.Printf("Dependencies OK\n\n----------------------------------------------------------\n\n")
		}
		w := &workflow.Workflow{
			Config: cfg,
			Runner: utils.ExecRunner{Verbose: cfg.Verbose},
		}
		_, err = w.Run(cmd.Context())
		return err
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}
	var missing *config.MissingGenomeListError
	if errors.As(err, &missing) {
		fmt.Println(missing.Error())
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(exitCode(err))
}

// exitCode mirrors the exit status of a failed external command.
func exitCode(err error) int {
	var cmdErr *utils.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.ExitCode()
	}
	return 1
}

var cfgFile string
var noDepCheck bool

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "path to config file (yaml, toml or json)")
	config.AddRunFlags(rootCmd.PersistentFlags())
	rootCmd.Flags().BoolVar(&noDepCheck, "no-dep-check", false, "skip looking up the external tools on $PATH")
}

// loadOptions layers the config file and environment under the flags of cmd.
func loadOptions(cmd *cobra.Command) (config.Options, error) {
	v, err := config.NewViper(cmd.Flags(), cfgFile)
	if err != nil {
		return config.Options{}, err
	}
	return config.FromViper(v), nil
}

func resolveConfig(cmd *cobra.Command) (config.RunConfiguration, error) {
	opts, err := loadOptions(cmd)
	if err != nil {
		return config.RunConfiguration{}, err
	}
	return config.Resolve(opts)
}
