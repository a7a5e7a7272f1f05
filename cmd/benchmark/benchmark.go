// Package benchmark implements the benchmark subcommand.
package benchmark

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"github.com/CameronChurchwell/penn/internal/conf"
	"github.com/CameronChurchwell/penn/internal/convert"
	"github.com/CameronChurchwell/penn/internal/pitchnet"
)

var (
	batchSize  int
	iterations int
)

func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "benchmark",
		Short: "Run pitch model inference benchmark",
		RunE: func(cmd *cobra.Command, args []string) error {
			if batchSize < 1 || batchSize > 4096 {
				return fmt.Errorf("batch size must be between 1 and 4096, got %d", batchSize)
			}
			if iterations < 1 {
				return fmt.Errorf("iterations must be at least 1, got %d", iterations)
			}
			return runBenchmark(settings, batchSize, iterations)
		},
	}

	cmd.Flags().IntVarP(&batchSize, "batch", "b", 64, "frames per inference call (1-4096)")
	cmd.Flags().IntVarP(&iterations, "iterations", "n", 10, "number of inference calls to time")

	return cmd
}

func runBenchmark(settings *conf.Settings, batch, iterations int) error {
	model, err := pitchnet.New(settings)
	if err != nil {
		return err
	}
	defer model.Close()

	// Deterministic synthetic frames so runs are comparable.
	rng := rand.New(rand.NewSource(42))
	frames := make([][]float32, batch)
	for i := range frames {
		frame := make([]float32, convert.WindowSize)
		for j := range frame {
			frame[j] = rng.Float32()*2 - 1
		}
		frames[i] = frame
	}

	fmt.Printf("Model: %s, batch size %d, %d iterations\n\n", model.Name(), batch, iterations)

	var total time.Duration
	for i := 0; i < iterations; i++ {
		start := time.Now()
		if _, err := model.Infer(frames); err != nil {
			return err
		}
		elapsed := time.Since(start)
		total += elapsed
		fmt.Printf("  run %2d: %8.1f ms (%.3f ms/frame)\n",
			i+1,
			float64(elapsed.Microseconds())/1000,
			float64(elapsed.Microseconds())/1000/float64(batch))
	}

	avg := total / time.Duration(iterations)
	perFrame := float64(avg.Microseconds()) / 1000 / float64(batch)
	framesPerSecond := float64(batch) / avg.Seconds()
	audioRate := framesPerSecond * convert.HopSize / convert.SampleRate

	fmt.Printf("\nAverage        Per-Frame     Throughput\n")
	fmt.Printf("─────────────  ────────────  ──────────────────────\n")
	fmt.Printf("%8.1f ms    %6.3f ms     %6.1fx realtime\n",
		float64(avg.Microseconds())/1000, perFrame, audioRate)
	return nil
}
