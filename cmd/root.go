// Package cmd assembles the command line interface.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/CameronChurchwell/penn/cmd/benchmark"
	"github.com/CameronChurchwell/penn/cmd/evaluate"
	"github.com/CameronChurchwell/penn/cmd/predict"
	"github.com/CameronChurchwell/penn/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "penn",
		Short: "Pitch-estimation model evaluation and threshold calibration",
	}

	// Set up the global flags for the root command.
	setupFlags(rootCmd, settings)

	subcommands := []*cobra.Command{
		evaluate.Command(settings),
		predict.Command(settings),
		benchmark.Command(settings),
	}
	rootCmd.AddCommand(subcommands...)

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().StringVar(&settings.Data.Dir, "data-dir", viper.GetString("data.dir"), "Root directory holding the datasets")
	rootCmd.PersistentFlags().StringVar(&settings.Eval.Dir, "eval-dir", viper.GetString("eval.dir"), "Directory for evaluation artifacts")
	rootCmd.PersistentFlags().StringVar(&settings.Eval.CachePath, "cache", viper.GetString("eval.cachepath"), "Prediction cache database location")
	rootCmd.PersistentFlags().StringVar(&settings.Model.Path, "checkpoint", viper.GetString("model.path"), "Path to the TFLite model file")
	rootCmd.PersistentFlags().StringVar(&settings.Model.Name, "model-name", viper.GetString("model.name"), "Model name for cache keys and artifact naming")
	rootCmd.PersistentFlags().IntVar(&settings.Model.Threads, "threads", viper.GetInt("model.threads"), "Interpreter thread count, 0 for all cores")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}
