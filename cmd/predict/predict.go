// Package predict implements the predict subcommand.
package predict

import (
	"context"

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
		Use:   "predict",
		Short: "Populate the prediction cache without scoring",
		Long: "Runs inference for every stem in the hyperparameter subset and the " +
			"selected partition and stores the predictions, so a later evaluate run " +
			"can reuse them with --skip-predictions.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPredict(cmd.Context(), settings)
		},
	}

	cmd.Flags().StringVarP(&datasetName, "dataset", "D", "", "dataset to predict (MDB, PTDB)")
	cmd.Flags().StringVar(&settings.Eval.Partition, "partition", settings.Eval.Partition, "dataset partition to predict")
	cmd.Flags().BoolVar(&settings.Model.AutoRegressive, "ar", settings.Model.AutoRegressive, "use autoregressive decoding instead of batch inference")
	cmd.Flags().IntVar(&settings.Model.BatchSize, "batch", settings.Model.BatchSize, "frames per inference call in batch mode")
	_ = cmd.MarkFlagRequired("dataset")

	return cmd
}

func runPredict(ctx context.Context, settings *conf.Settings) error {
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

	if err := evaluator.Populate(ctx, settings.Eval.Partition); err != nil {
		return err
	}
	metrics.LogSummary(logging.ForModule("predict"))
	return nil
}
