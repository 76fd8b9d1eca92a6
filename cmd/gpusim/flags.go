package main

import "github.com/urfave/cli/v3"

var (
	computeUnits  int64
	schedulerName string
	profilePath   string
	csvPath       string
	jsonPath      string
	logLevel      string
	logFormat     string
	debug         bool
)

func deviceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Int64Flag{
			Name:        "compute-units",
			Aliases:     []string{"cu"},
			Usage:       "number of compute units (0 uses the scenario default)",
			Destination: &computeUnits,
		},
		&cli.StringFlag{
			Name:        "device-profile",
			Usage:       "path to a device profile YAML file",
			Destination: &profilePath,
		},
	}
}

func schedulerFlag() cli.Flag {
	return &cli.StringFlag{
		Name:        "scheduler",
		Aliases:     []string{"s"},
		Usage:       "scheduling policy (fifo, priority, rr, sjf)",
		Value:       "fifo",
		Destination: &schedulerName,
	}
}

func exportFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "csv",
			Usage:       "export per-workload metrics to a CSV file",
			Destination: &csvPath,
		},
		&cli.StringFlag{
			Name:        "json",
			Usage:       "export metrics to a JSON file",
			Destination: &jsonPath,
		},
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}
