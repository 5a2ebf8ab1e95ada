/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"

	"github.com/braddmg/genflow/pangenome"
	"github.com/spf13/cobra"
)

// externalGenomesCmd represents the externalGenomes command
var externalGenomesCmd = &cobra.Command{
	Use:           "externalGenomes <dir>",
	Short:         "Writes the external genomes registry of the contigs databases in <dir>",
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := loadOptions(cmd)
		if err != nil {
			return err
		}
		return registerGenomes(cmd.OutOrStdout(), args[0], opts.ProjectName)
	},
}

// registerGenomes writes the registry of dir, then reads it back and lists
// what anvi'o will see.
func registerGenomes(w io.Writer, dir, project string) error {
	entries, err := pangenome.Registry(dir, pangenome.StorageDB(project))
	if err != nil {
		return err
	}
	path := filepath.Join(dir, pangenome.ExternalGenomesFile)
	if err := pangenome.WriteExternalGenomes(entries, path); err != nil {
		return err
	}
	written, err := pangenome.ReadExternalGenomes(path)
	if err != nil {
		return fmt.Errorf("reading back %s: %w", path, err)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, e := range written {
		fmt.Fprintf(tw, "%s\t%s\n", e.Name, e.Path)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%d genome(s) registered in %s\n", len(written), path)
	return err
}

func init() {
	rootCmd.AddCommand(externalGenomesCmd)
}
