package skls

import (
	"fmt"
	"os"

	"github.com/soundprediction/skls/pkg/config"
	"github.com/soundprediction/skls/pkg/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	cfg     *config.Config

	rootCmd = &cobra.Command{
		Use:   "skls",
		Short: "skls: embeddings, vector search and knowledge graphs for news articles",
		Long: `skls embeds text through a llama.cpp server, stores chunks in Chroma,
extracts schema-validated knowledge graphs with Gemini or llama.cpp and
writes them to Neo4j.

Configuration is read from .skls.yaml, a .env file and the environment.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			_, err = logger.Setup(logger.Config{
				Level:         logger.ParseLevel(cfg.Log.Level),
				Format:        cfg.Log.Format,
				File:          cfg.Log.File,
				MaxSizeMB:     cfg.Log.MaxSizeMB,
				MaxBackups:    cfg.Log.MaxBackups,
				MaxAgeDays:    cfg.Log.MaxAgeDays,
				Color:         cfg.Log.Color,
				TelemetryPath: cfg.Log.TelemetryPath,
				Output:        os.Stderr,
			})
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Shutdown()
		},
	}
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.skls.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-file", "", "mirror logs to this file")

	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.file", rootCmd.PersistentFlags().Lookup("log-file"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".skls")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
