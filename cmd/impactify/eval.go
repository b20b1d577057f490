package main

import (
	"log"

	"github.com/spf13/cobra"

	"impactify/internal/eval"
)

var (
	runsFlag      int
	withFixesFlag bool
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Run the analysis repeatedly and collect evaluation metrics",
	Long: `eval executes the full pipeline N times against the same change, writing
one metrics file per run (timings, per-stage token usage, recommendations,
fixes, final classification) plus an aggregate summary.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadSettings()
		if err != nil {
			return err
		}

		var runs []eval.Metrics
		for i := 0; i < runsFlag; i++ {
			log.Printf("=== Evaluation run %d/%d ===", i+1, runsFlag)

			// Fresh sessions per run; runs are serialized on purpose so
			// they do not contend for the rate limit budget.
			env, err := newRunEnv(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			tracker := eval.NewTracker(i)
			env.pipe.Tracker = tracker

			res, err := env.pipe.Run(cmd.Context())
			if err != nil {
				env.Close()
				log.Printf("[EVAL] run %d failed: %v", i+1, err)
				continue
			}
			tracker.SetResults(res.Sure, res.StillUnsure)

			if withFixesFlag {
				generateFixes(cmd.Context(), env, res, false)
			}
			env.Close()

			m, _, err := tracker.WriteRun(cfg.Out)
			if err != nil {
				return err
			}
			runs = append(runs, m)
		}

		summary := eval.Summarize(runs)
		if _, err := eval.WriteSummary(cfg.Out, summary); err != nil {
			return err
		}
		log.Printf("Evaluation complete - %d/%d runs recorded", len(runs), runsFlag)
		return nil
	},
}

func init() {
	evalCmd.Flags().IntVar(&runsFlag, "runs", 3, "number of evaluation runs")
	evalCmd.Flags().BoolVar(&withFixesFlag, "with-fixes", false, "also generate fixes during each run")
	rootCmd.AddCommand(evalCmd)
}
