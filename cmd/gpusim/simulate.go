package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/AlmasAtaman/gpu-compute-simulator/internal/device"
	"github.com/AlmasAtaman/gpu-compute-simulator/internal/sched"
	"github.com/AlmasAtaman/gpu-compute-simulator/internal/workload"
)

func simulateCmd() *cli.Command {
	flags := append(deviceFlags(), schedulerFlag())
	flags = append(flags, exportFlags()...)
	flags = append(flags, loggingFlags()...)

	return &cli.Command{
		Name:  "simulate",
		Usage: "Run the basic simulation (matmul + vector add + reduction)",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			fileCfg, err := loadConfig()
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			applyConfig(cmd, fileCfg)
			log := newLogger()

			algorithm, err := sched.ParseAlgorithm(schedulerName)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			cfg, err := deviceConfig(16)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			gpu := device.New(cfg)
			gpu.SetLogger(log)
			gpu.SetScheduler(sched.New(algorithm))
			gpu.PrintInfo(os.Stdout)

			gpu.SubmitWorkload(workload.NewMatrixMultiply(512, 512, 512))
			gpu.SubmitWorkload(workload.NewVectorAdd(1 << 20))
			gpu.SubmitWorkload(workload.NewReduction(1 << 20))

			gpu.ExecuteWorkloads()
			gpu.WaitForCompletion()

			analyzer := gpu.Analyzer()
			analyzer.WriteDetailedReport(os.Stdout)
			return exportAnalyzer(analyzer, log)
		},
	}
}
