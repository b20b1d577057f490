package main

import (
	"context"
	"log"

	"github.com/spf13/cobra"

	"impactify/internal/pipeline"
)

var (
	applyFlag  bool
	targetFlag string
)

var fixCmd = &cobra.Command{
	Use:   "fix",
	Short: "Analyze the repository and generate fixes for files needing updates",
	Long: `fix runs the full impact analysis, then asks the model for a correction
to every file the reports diagnose as needing an update. With --target the
classification is skipped and only the named file is reported and fixed.
Generated fixes are written to the output directory; --apply also writes them
into the repository.`,
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

		var res *pipeline.RunResult
		if targetFlag != "" {
			res = &pipeline.RunResult{Sure: []string{resolveTarget(env.pipe, targetFlag)}}
			res.Reports = env.pipe.ReportFiles(cmd.Context(), res.Sure, res)
		} else if res, err = env.pipe.Run(cmd.Context()); err != nil {
			return err
		}

		fixes := generateFixes(cmd.Context(), env, res, applyFlag)
		log.Printf("Fix generation complete - %d fixes for %d reports", len(fixes), len(res.Reports))

		if err := writeJSON(cfg.Out, "analysis.json", res); err != nil {
			return err
		}
		return writeJSON(cfg.Out, "fixes.json", fixes)
	},
}

func init() {
	fixCmd.Flags().BoolVar(&applyFlag, "apply", false, "write generated fixes back into the repository")
	fixCmd.Flags().StringVar(&targetFlag, "target", "", "fix only this file, skipping classification")
	rootCmd.AddCommand(fixCmd)
}

// resolveTarget maps a user-supplied path onto the repository before any
// report or fix runs against it.
func resolveTarget(p *pipeline.Pipeline, target string) string {
	resolved := p.Resolver.Resolve(target)
	if resolved != target {
		log.Printf("[FIX] Resolved target %s -> %s", target, resolved)
	}
	return resolved
}

// generateFixes produces a fix for every report diagnosed as needing an
// update. A failed generation logs and skips that file.
func generateFixes(ctx context.Context, env *runEnv, res *pipeline.RunResult, apply bool) []*pipeline.FixResult {
	var fixes []*pipeline.FixResult

	for _, entry := range res.Reports {
		report := entry.Parsed
		if report == nil || !report.Diagnosis.NeedsUpdate {
			continue
		}

		fix, err := env.pipe.GenerateFix(ctx, report, env.change)
		if err != nil {
			log.Printf("[FIX] skipping %s: %v", entry.Path, err)
			continue
		}
		res.Usage.Add(fix.Usage)

		applied := ""
		if apply {
			if err := env.pipe.ApplyFix(fix); err != nil {
				log.Printf("[FIX] could not apply fix to %s: %v", fix.Path, err)
			} else {
				log.Printf("[FIX] applied fix to %s", fix.Path)
				applied = fix.Content
			}
		}
		if env.pipe.Tracker != nil {
			env.pipe.Tracker.AddTokens("fix_generation", fix.Usage)
			env.pipe.Tracker.AddFix(fix.Path, fix.Content, fix.Style, applied)
		}
		fixes = append(fixes, fix)
	}
	return fixes
}
