/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/braddmg/genflow/config"
	"github.com/braddmg/genflow/taxon"
	"github.com/braddmg/genflow/utils"
	"github.com/spf13/cobra"
)

// renameGenomesCmd represents the renameGenomes command
var renameGenomesCmd = &cobra.Command{
	Use:   "renameGenomes <dir>",
	Short: "Renames downloaded .fna genomes after their organism and strain",
	Long: `Looks up the assembly accession of every .fna file in <dir> and renames
the file to <organism_strain_accession>.fasta. Files whose lookup fails keep
their name.`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := loadOptions(cmd)
		if err != nil {
			return err
		}
		if opts.Lookup == config.LookupEntrez && opts.Email == "" {
			return fmt.Errorf("the %s lookup backend requires --email", config.LookupEntrez)
		}
		workers := opts.Workers
		if workers <= 0 {
			workers = opts.Threads
		}
		cfg := config.RunConfiguration{Tools: opts.Tools, Lookup: opts.Lookup, Email: opts.Email}
		r := taxon.Renamer{
			Lookup:  taxon.NewLookuper(cfg, utils.ExecRunner{Verbose: opts.Verbose}),
			Workers: workers,
		}
		records, err := r.Rename(cmd.Context(), args[0])
		for _, rec := range records {
			if rec.Err != nil {
				fmt.Fprintf(os.Stdout, "Error processing %s: %v\n", rec.Original, rec.Err)
				continue
			}
			fmt.Printf("%s\t%s\n", rec.Original, rec.Final)
		}
		if err != nil {
			return err
		}
		renamed, skipped := taxon.Summary(records)
		fmt.Printf("Renamed %d genome(s), %d left unchanged\n", renamed, skipped)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(renameGenomesCmd)
}
