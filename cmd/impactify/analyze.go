package main

import (
	"log"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Classify impacted files and produce per-file impact reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadSettings()
		if err != nil {
			return err
		}
		env, err := newRunEnv(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.pipe.Run(cmd.Context())
		if err != nil {
			return err
		}

		log.Printf("Analysis complete - %d impacted, %d reports, %d still unsure, %d tokens",
			len(res.Sure), len(res.Reports), len(res.StillUnsure), res.Usage.TotalTokens)
		return writeJSON(cfg.Out, "analysis.json", res)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}
