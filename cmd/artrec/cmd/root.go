package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rushteam/artrec/config"
	"github.com/rushteam/artrec/engine"
	"github.com/rushteam/artrec/pkg/logging"
)

var (
	configPath string
	logLevel   string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "artrec",
	Short:         "artrec — content-based article recommender",
	Long:          "Vectorize the article catalog, rebuild user profiles and serve ranked recommendations.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			loaded.Log.Level = logLevel
		}
		loaded.Log.Output = os.Stderr
		logging.Init(loaded.Log)
		cfg = loaded
		return nil
	},
}

// Execute runs the root command. 错误写到 stderr，stdout 只输出结果。
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: $ARTREC_CONFIG or ./artrec.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")

	rootCmd.AddCommand(vectorizeCmd)
	rootCmd.AddCommand(rebuildCmd)
	rootCmd.AddCommand(recommendCmd)
	rootCmd.AddCommand(randomCmd)
	rootCmd.AddCommand(topicsCmd)
	rootCmd.AddCommand(serveCmd)
}

// openApp 按全局配置打开后端，调用方负责 Close。
func openApp(ctx context.Context) (*engine.App, error) {
	return engine.Open(ctx, cfg, nil)
}
