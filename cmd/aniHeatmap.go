/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/braddmg/genflow/ani"
	"github.com/spf13/cobra"
)

// aniHeatmapCmd represents the aniHeatmap command
var aniHeatmapCmd = &cobra.Command{
	Use:   "aniHeatmap <identity.tab>",
	Short: "Renders an ANI identity matrix as an interactive heatmap",
	Long: `Reads a pyANI percentage identity matrix and writes heatmap-ANI.html and
ani-summary.tsv into the output directory.`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		outDir, err := cmd.Flags().GetString("out")
		if err != nil {
			return err
		}
		if err := os.MkdirAll(outDir, 0755); err != nil {
			return err
		}
		summary := filepath.Join(outDir, ani.SummaryFile)
		heatmap := filepath.Join(outDir, ani.HeatmapFile)
		if err := ani.Visualize(args[0], summary, heatmap); err != nil {
			return err
		}
		fmt.Printf("Heatmap saved at: %s\nSummary saved at: %s\n", heatmap, summary)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(aniHeatmapCmd)
	aniHeatmapCmd.Flags().StringP("out", "o", ".", "output directory")
}
