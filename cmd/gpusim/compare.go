package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/AlmasAtaman/gpu-compute-simulator/internal/device"
	"github.com/AlmasAtaman/gpu-compute-simulator/internal/metrics"
	"github.com/AlmasAtaman/gpu-compute-simulator/internal/sched"
	"github.com/AlmasAtaman/gpu-compute-simulator/internal/workload"
)

// comparisonMix is the five-kernel workload mix every policy runs.
func comparisonMix() []*workload.Workload {
	smallMatmul := workload.NewMatrixMultiply(256, 256, 256)
	smallMatmul.SetPriority(3)

	largeMatmul := workload.NewMatrixMultiply(1024, 1024, 1024)
	largeMatmul.SetPriority(1)

	conv := workload.NewConvolution(4, 64, 224, 224)
	conv.SetPriority(2)

	vecadd := workload.NewVectorAdd(2 << 20)
	vecadd.SetPriority(2)

	reduction := workload.NewReduction(1 << 20)
	reduction.SetPriority(3)

	return []*workload.Workload{smallMatmul, largeMatmul, conv, vecadd, reduction}
}

func compareCmd() *cli.Command {
	flags := append(deviceFlags(), exportFlags()...)
	flags = append(flags, loggingFlags()...)

	return &cli.Command{
		Name:  "compare",
		Usage: "Run the same workload mix under every scheduling policy",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			fileCfg, err := loadConfig()
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			applyConfig(cmd, fileCfg)
			log := newLogger()

			algorithms := []sched.Algorithm{
				sched.FIFO,
				sched.Priority,
				sched.ShortestJobFirst,
				sched.RoundRobin,
			}

			comparison := metrics.NewComparison()

			for _, algorithm := range algorithms {
				log.Info("testing scheduler", "policy", algorithm.String())

				cfg, err := deviceConfig(16)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}

				gpu := device.New(cfg)
				gpu.SetLogger(log)
				gpu.SetScheduler(sched.New(algorithm))

				for _, w := range comparisonMix() {
					gpu.SubmitWorkload(w)
				}

				gpu.ExecuteWorkloads()
				gpu.WaitForCompletion()

				comparison.AddAnalyzer(algorithm.String(), gpu.Analyzer().Snapshot())
			}

			comparison.WriteComparison(os.Stdout)

			if csvPath != "" {
				if err := comparison.ExportComparisonCSV(csvPath); err != nil {
					log.Error("csv export failed", "err", err)
				} else {
					log.Info("comparison exported", "path", csvPath)
				}
			}
			if jsonPath != "" {
				if err := comparison.ExportComparisonJSON(jsonPath); err != nil {
					log.Error("json export failed", "err", err)
				} else {
					log.Info("comparison exported", "path", jsonPath)
				}
			}
			return nil
		},
	}
}
