package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/AlmasAtaman/gpu-compute-simulator/internal/device"
	"github.com/AlmasAtaman/gpu-compute-simulator/internal/workload"
)

func benchCmd() *cli.Command {
	flags := append(deviceFlags(), exportFlags()...)
	flags = append(flags, loggingFlags()...)

	return &cli.Command{
		Name:  "bench",
		Usage: "Run a mixed-size workload benchmark",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			fileCfg, err := loadConfig()
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			applyConfig(cmd, fileCfg)
			log := newLogger()

			cfg, err := deviceConfig(24)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			gpu := device.New(cfg)
			gpu.SetLogger(log)

			var workloads []*workload.Workload
			for i := 0; i < 3; i++ {
				workloads = append(workloads, workload.NewVectorAdd(512*1024))
			}
			for i := 0; i < 3; i++ {
				workloads = append(workloads, workload.NewMatrixMultiply(256, 256, 256))
			}
			for i := 0; i < 2; i++ {
				workloads = append(workloads, workload.NewConvolution(2, 32, 128, 128))
			}
			for i, w := range workloads {
				w.SetPriority(i % 5)
			}

			for _, w := range workloads {
				gpu.SubmitWorkload(w)
			}

			gpu.ExecuteWorkloads()
			gpu.WaitForCompletion()

			analyzer := gpu.Analyzer()
			analyzer.WriteSummary(os.Stdout)

			if fastest, ok := analyzer.FastestWorkload(); ok {
				fmt.Fprintf(os.Stdout, "\nFastest workload: %s\n", fastest.Name)
			}
			if slowest, ok := analyzer.SlowestWorkload(); ok {
				fmt.Fprintf(os.Stdout, "Slowest workload: %s\n", slowest.Name)
			}
			return exportAnalyzer(analyzer, log)
		},
	}
}
