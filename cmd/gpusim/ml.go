package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/AlmasAtaman/gpu-compute-simulator/internal/device"
	"github.com/AlmasAtaman/gpu-compute-simulator/internal/workload"
)

func mlCmd() *cli.Command {
	flags := append(deviceFlags(), exportFlags()...)
	flags = append(flags, loggingFlags()...)

	return &cli.Command{
		Name:  "ml",
		Usage: "Simulate a ResNet-like inference pass layer by layer",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			fileCfg, err := loadConfig()
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			applyConfig(cmd, fileCfg)
			log := newLogger()

			cfg, err := deviceConfig(32)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			cfg.DeviceName = "GPU Simulator - ML Workload Profile"

			gpu := device.New(cfg)
			gpu.SetLogger(log)
			gpu.PrintInfo(os.Stdout)

			// Input convolution, residual blocks, downsampling, and the
			// final fully-connected layer as a matrix multiply.
			conv1 := workload.NewConvolution(1, 64, 224, 224)
			conv1.SetPriority(5)

			fc := workload.NewMatrixMultiply(1, 1000, 2048)
			fc.SetPriority(10)

			layers := []*workload.Workload{
				conv1,
				workload.NewConvolution(1, 64, 112, 112),
				workload.NewConvolution(1, 64, 112, 112),
				workload.NewConvolution(1, 128, 56, 56),
				workload.NewConvolution(1, 128, 56, 56),
				workload.NewConvolution(1, 256, 28, 28),
				fc,
			}
			for _, layer := range layers {
				gpu.SubmitWorkload(layer)
			}

			gpu.ExecuteWorkloads()
			gpu.WaitForCompletion()

			analyzer := gpu.Analyzer()
			analyzer.WriteDetailedReport(os.Stdout)
			return exportAnalyzer(analyzer, log)
		},
	}
}
