package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/AlmasAtaman/gpu-compute-simulator/internal/device"
)

func infoCmd() *cli.Command {
	flags := append(deviceFlags(), loggingFlags()...)

	return &cli.Command{
		Name:  "info",
		Usage: "Print the device configuration",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			fileCfg, err := loadConfig()
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			applyConfig(cmd, fileCfg)

			cfg, err := deviceConfig(0)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			gpu := device.New(cfg)
			gpu.SetLogger(newLogger())
			gpu.PrintInfo(os.Stdout)
			return nil
		},
	}
}
