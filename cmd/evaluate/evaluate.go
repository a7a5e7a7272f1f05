// Package evaluate implements the evaluate subcommand.
package evaluate

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/CameronChurchwell/penn/internal/cache"
	"github.com/CameronChurchwell/penn/internal/conf"
	"github.com/CameronChurchwell/penn/internal/dataset"
	evalcore "github.com/CameronChurchwell/penn/internal/evaluate"
	"github.com/CameronChurchwell/penn/internal/logging"
	"github.com/CameronChurchwell/penn/internal/observability"
	"github.com/CameronChurchwell/penn/internal/pitchnet"
)

var datasetName string

func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate a pitch model against an annotated dataset",
		Long: "Runs inference (or reuses cached predictions), calibrates the voicing " +
			"threshold on the hyperparameter subset, and scores the selected partition.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluate(cmd.Context(), settings)
		},
	}

	cmd.Flags().StringVarP(&datasetName, "dataset", "D", "", "dataset to evaluate (MDB, PTDB)")
	cmd.Flags().StringVar(&settings.Eval.Partition, "partition", settings.Eval.Partition, "dataset partition to score")
	cmd.Flags().BoolVar(&settings.Eval.SkipPredictions, "skip-predictions", settings.Eval.SkipPredictions, "reuse cached predictions instead of running inference")
	cmd.Flags().BoolVar(&settings.Model.AutoRegressive, "ar", settings.Model.AutoRegressive, "use autoregressive decoding instead of batch inference")
	cmd.Flags().IntVar(&settings.Model.BatchSize, "batch", settings.Model.BatchSize, "frames per inference call in batch mode")
	_ = cmd.MarkFlagRequired("dataset")

	return cmd
}

func runEvaluate(ctx context.Context, settings *conf.Settings) error {
	variant, err := dataset.ByName(datasetName)
	if err != nil {
		return err
	}

	model, err := pitchnet.New(settings)
	if err != nil {
		return err
	}
	defer model.Close()

	store, err := cache.Open(settings.Eval.CachePath)
	if err != nil {
		return err
	}
	defer store.Close()

	metrics, err := observability.NewMetrics()
	if err != nil {
		return err
	}
	model.SetMetrics(metrics.Evaluation)

	evaluator := evalcore.New(settings, variant, model, store)
	evaluator.SetMetrics(metrics)

	result, err := evaluator.Dataset(ctx, settings.Eval.Partition)
	if err != nil {
		return err
	}
	metrics.LogSummary(logging.ForModule("evaluate"))

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}
