package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rushteam/artrec/engine"
)

var recommendFormat string

var recommendCmd = &cobra.Command{
	Use:   "recommend [user_id] [count]",
	Short: "Print recommendations for a user as JSON on stdout",
	Long: `Print recommendations for a user. Without a profile the fallback sampler is used.
A user id of "null" (or none) requests anonymous recommendations.`,
	Args: cobra.MaximumNArgs(2),
	RunE: runRecommend,
}

var randomCmd = &cobra.Command{
	Use:   "random [user_id] [count]",
	Short: "Print randomly sampled recommendations scored by the user's interests",
	Args:  cobra.MaximumNArgs(2),
	RunE:  runRandom,
}

func init() {
	recommendCmd.Flags().StringVar(&recommendFormat, "format", "json", "output format: json or simple")
}

var errRecommendFailed = errors.New("recommendation failed")

func parseArgs(args []string) (string, int, error) {
	userID := ""
	if len(args) > 0 && args[0] != "null" {
		userID = args[0]
	}
	count := 0
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 0 {
			return "", 0, fmt.Errorf("invalid count %q", args[1])
		}
		count = n
	}
	return userID, count, nil
}

func runRecommend(cmd *cobra.Command, args []string) error {
	if recommendFormat != "json" && recommendFormat != "simple" {
		return fmt.Errorf("unknown format %q", recommendFormat)
	}
	userID, count, err := parseArgs(args)
	if err != nil {
		return err
	}
	return recommend(cmd, func(r *engine.Recommender) *engine.Result {
		return r.Recommend(cmd.Context(), userID, count)
	})
}

func runRandom(cmd *cobra.Command, args []string) error {
	userID, count, err := parseArgs(args)
	if err != nil {
		return err
	}
	recommendFormat = "json"
	return recommend(cmd, func(r *engine.Recommender) *engine.Result {
		return r.Random(cmd.Context(), userID, count)
	})
}

// recommend 打开后端并输出结果；后端打开失败时同样输出失败结果。
func recommend(cmd *cobra.Command, run func(*engine.Recommender) *engine.Result) error {
	ctx := cmd.Context()
	var res *engine.Result
	app, err := openApp(ctx)
	if err == nil {
		defer app.Close(ctx)
		var r *engine.Recommender
		if r, err = app.Recommender(); err == nil {
			res = run(r)
		}
	}
	if err != nil {
		res = &engine.Result{Error: err.Error(), Recommendations: []engine.Recommendation{}}
	}

	if recommendFormat == "simple" {
		printSimple(res)
	} else if err := res.Encode(cmd.OutOrStdout()); err != nil {
		return err
	}
	if !res.Success {
		return errRecommendFailed
	}
	return nil
}

// printSimple 以可读列表输出到 stderr。
func printSimple(res *engine.Result) {
	if !res.Success {
		fmt.Fprintf(os.Stderr, "recommendation failed: %s\n", res.Error)
		return
	}
	if len(res.Recommendations) == 0 {
		fmt.Fprintln(os.Stderr, "no recommendations found.")
		return
	}
	fmt.Fprintf(os.Stderr, "\n=== TOP %d RECOMMENDATIONS (%s) ===\n", len(res.Recommendations), res.Source)
	for i, rec := range res.Recommendations {
		if res.Source == engine.SourcePersonalized {
			fmt.Fprintf(os.Stderr, "%d. %s (ID: %s, %.1f%%)\n", i+1, rec.Name, rec.ID, rec.Score*100)
		} else {
			fmt.Fprintf(os.Stderr, "%d. %s (ID: %s, score %d) - %s\n", i+1, rec.Name, rec.ID, rec.MatchPercentage, rec.Reason)
		}
	}
}
