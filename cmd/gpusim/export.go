package main

import (
	"github.com/AlmasAtaman/gpu-compute-simulator/internal/logger"
	"github.com/AlmasAtaman/gpu-compute-simulator/internal/metrics"
)

// exportAnalyzer writes the requested export files. Export failures are
// logged, not fatal: the run itself already succeeded.
func exportAnalyzer(a *metrics.Analyzer, log logger.Logger) error {
	if csvPath != "" {
		if err := a.ExportToCSV(csvPath); err != nil {
			log.Error("csv export failed", "err", err)
		} else {
			log.Info("metrics exported", "path", csvPath)
		}
	}
	if jsonPath != "" {
		if err := a.ExportToJSON(jsonPath); err != nil {
			log.Error("json export failed", "err", err)
		} else {
			log.Info("metrics exported", "path", jsonPath)
		}
	}
	return nil
}
