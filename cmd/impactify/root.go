package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"impactify/internal/pipeline"
)

var (
	repoFlag     string
	modelFlag    string
	revFlag      string
	outFlag      string
	fixStyleFlag string

	maxDepthFlag      int
	maxIterationsFlag int
	workersFlag       int
	retriesFlag       int
	rpsFlag           float64
)

var rootCmd = &cobra.Command{
	Use:   "impactify",
	Short: "LLM-driven change impact analysis for git repositories",
	Long: `impactify classifies which files of a repository are impacted by the
latest commit, escalating evidence (tree -> headers -> raw content) over a
bounded refinement loop, then produces per-file impact reports and,
optionally, generated fixes.`,
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&repoFlag, "repo", "", "repository root (default $ROOT_PATH or .)")
	pf.StringVar(&modelFlag, "model", "", "Gemini model id (default $GEMINI_MODEL or gemini-2.5-flash)")
	pf.StringVar(&revFlag, "rev", "HEAD", "commit to analyze")
	pf.StringVar(&outFlag, "out", "out", "output directory")
	pf.IntVar(&maxDepthFlag, "max-depth", 0, "tree scan depth (default $MAX_DEPTH or 3)")
	pf.IntVar(&maxIterationsFlag, "max-iterations", 0, "refinement loop cap (default $MAX_ITERATIONS or 3)")
	pf.IntVar(&workersFlag, "workers", 0, "concurrent model calls (default $LLM_WORKERS or 5)")
	pf.IntVar(&retriesFlag, "retries", 0, "retry attempts per model call (default $MAX_RETRIES or 3)")
	pf.Float64Var(&rpsFlag, "rps", 0, "request rate limit, 0 disables (default $LLM_RPS)")
	pf.StringVar(&fixStyleFlag, "fix-style", "", "fix output style: full_file or diff (default $FIX_STYLE or full_file)")
}

// settings is the effective run configuration after flag > env > default
// resolution.
type settings struct {
	Repo     string
	Model    string
	Rev      string
	Out      string
	FixStyle string
	APIKey   string

	MaxDepth      int
	MaxIterations int
	Workers       int
	Retries       int
	RPS           float64
}

func loadSettings() (settings, error) {
	cfg := settings{
		Repo:          stringOpt(repoFlag, "ROOT_PATH", "."),
		Model:         stringOpt(modelFlag, "GEMINI_MODEL", "gemini-2.5-flash"),
		Rev:           revFlag,
		Out:           outFlag,
		FixStyle:      stringOpt(fixStyleFlag, "FIX_STYLE", pipeline.FixStyleFullFile),
		APIKey:        os.Getenv("GEMINI_API_KEY"),
		MaxDepth:      intOpt(maxDepthFlag, "MAX_DEPTH", pipeline.DefaultMaxDepth),
		MaxIterations: intOpt(maxIterationsFlag, "MAX_ITERATIONS", pipeline.DefaultMaxIterations),
		Workers:       intOpt(workersFlag, "LLM_WORKERS", pipeline.DefaultWorkers),
		Retries:       intOpt(retriesFlag, "MAX_RETRIES", 3),
		RPS:           rpsFlag,
	}
	if cfg.RPS == 0 {
		if v, err := strconv.ParseFloat(os.Getenv("LLM_RPS"), 64); err == nil {
			cfg.RPS = v
		}
	}

	if cfg.APIKey == "" {
		return cfg, fmt.Errorf("GEMINI_API_KEY is not set")
	}
	if cfg.FixStyle != pipeline.FixStyleFullFile && cfg.FixStyle != pipeline.FixStyleDiff {
		return cfg, fmt.Errorf("invalid fix style %q (want %s or %s)",
			cfg.FixStyle, pipeline.FixStyleFullFile, pipeline.FixStyleDiff)
	}
	return cfg, nil
}

// stringOpt resolves flag > env var > default.
func stringOpt(flag, env, def string) string {
	if flag != "" {
		return flag
	}
	if v := os.Getenv(env); v != "" {
		return v
	}
	return def
}

func intOpt(flag int, env string, def int) int {
	if flag > 0 {
		return flag
	}
	if v, err := strconv.Atoi(os.Getenv(env)); err == nil && v > 0 {
		return v
	}
	return def
}
