package cmd

import (
	"github.com/spf13/cobra"

	"github.com/rushteam/artrec/engine"
)

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "List distinct topics and subtopics of the catalog as JSON",
	Args:  cobra.NoArgs,
	RunE:  runTopics,
}

type topicsReport struct {
	Topics    []string `json:"topics"`
	Subtopics []string `json:"subtopics"`
}

func runTopics(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	topics, subtopics, err := engine.Topics(ctx, app.Catalog)
	if err != nil {
		return err
	}
	return writeJSON(cmd, topicsReport{Topics: topics, Subtopics: subtopics})
}
