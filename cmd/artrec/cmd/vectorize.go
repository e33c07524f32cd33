package cmd

import (
	"github.com/spf13/cobra"

	"github.com/rushteam/artrec/pkg/logging"
)

var vectorizeCmd = &cobra.Command{
	Use:   "vectorize",
	Short: "Rebuild the item feature matrix from the catalog",
	Args:  cobra.NoArgs,
	RunE:  runVectorize,
}

func runVectorize(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	m, err := app.Vectorize(ctx)
	if err != nil {
		return err
	}
	logging.Info().Int("articles", m.Len()).Int("columns", m.Width()).Msg("vectorize done")
	return nil
}
