/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/braddmg/genflow/config"
	"github.com/braddmg/genflow/utils"
	"github.com/spf13/cobra"
)

// checkDepsCmd represents the checkDeps command
var checkDepsCmd = &cobra.Command{
	Use:   "checkDeps",
	Short: "Checks that the external tools of a run are installed",
	Long: `Looks up every program the workflow would call with the current flags
(lookup backend and DNA mode included) on $PATH.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := loadOptions(cmd)
		if err != nil {
			return err
		}
		cfg := config.RunConfiguration{Tools: opts.Tools, Lookup: opts.Lookup, DNAMode: opts.DNAMode}
		if err := utils.CheckDeps(cfg.RequiredTools()...); err != nil {
			return err
		}
		fmt.Println("Dependencies OK")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkDepsCmd)
}
