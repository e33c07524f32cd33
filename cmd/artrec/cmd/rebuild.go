package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rushteam/artrec/pkg/logging"
	"github.com/rushteam/artrec/profile"
)

var (
	rebuildTrigger string
	rebuildUser    string
)

var rebuildCmd = &cobra.Command{
	Use:   "rebuild-profiles",
	Short: "Recompute user profile vectors from interactions and interests",
	Args:  cobra.NoArgs,
	RunE:  runRebuild,
}

func init() {
	rebuildCmd.Flags().StringVar(&rebuildTrigger, "trigger", profile.TriggerManual,
		"rebuild trigger (manual, user_created, interests_updated, article_read, article_liked, article_favorited)")
	rebuildCmd.Flags().StringVar(&rebuildUser, "user", "", "rebuild a single user only")
}

func runRebuild(cmd *cobra.Command, _ []string) error {
	if !profile.ValidTrigger(rebuildTrigger) {
		return fmt.Errorf("unknown trigger %q", rebuildTrigger)
	}
	ctx := cmd.Context()
	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	r := app.Rebuilder()
	if rebuildUser != "" {
		_, err := r.Rebuild(ctx, rebuildUser, rebuildTrigger)
		return err
	}
	n, err := r.RebuildAll(ctx, rebuildTrigger)
	if err != nil {
		return err
	}
	logging.Info().Int("profiles", n).Str("trigger", rebuildTrigger).Msg("rebuild done")
	return nil
}
