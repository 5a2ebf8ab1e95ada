/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/braddmg/genflow/utils"
	"github.com/braddmg/genflow/workspace"
	"github.com/spf13/cobra"
	"golang.org/x/exp/maps"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:           "status",
	Short:         "Shows the latest status of every step recorded in the run log",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := loadOptions(cmd)
		if err != nil {
			return err
		}
		entries, err := utils.ParseLogFile(workspace.New(opts.WorkDir).RunLog())
		if err != nil {
			return err
		}
		return printStatus(cmd.OutOrStdout(), entries)
	},
}

type stepKey struct{ step, genome string }

// printStatus prints the last recorded status of each step and genome.
func printStatus(w io.Writer, entries []utils.LogEntry) error {
	latest := make(map[stepKey]utils.LogEntry)
	for _, e := range entries {
		if e.Step == "" || e.Status == "" {
			continue
		}
		latest[stepKey{e.Step, e.Genome}] = e
	}
	keys := maps.Keys(latest)
	slices.SortFunc(keys, func(a, b stepKey) int {
		if c := latest[a].Timestamp.Compare(latest[b].Timestamp); c != 0 {
			return c
		}
		if c := strings.Compare(a.step, b.step); c != 0 {
			return c
		}
		return strings.Compare(a.genome, b.genome)
	})

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STEP\tGENOME\tSTATUS\tTIME")
	for _, k := range keys {
		e := latest[k]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", k.step, k.genome, e.Status, e.Timestamp.Format("2006-01-02 15:04:05"))
	}
	return tw.Flush()
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
