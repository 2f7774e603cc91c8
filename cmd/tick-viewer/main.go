package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/trade-engine/tick-viewer/internal/config"
)

func main() {
	configPath := flag.String("config", "config.yml", "Path to configuration file")
	mode := flag.String("mode", "serve", "serve | list | data | export | inspect | init-config")
	fileID := flag.String("file-id", "", "Remote file id for data/export modes")
	strategy := flag.String("strategy", "", "Strategy filter for list mode (Bull|Bear)")
	startDate := flag.String("start-date", "", "Inclusive start date for list mode (YYYY-MM-DD)")
	endDate := flag.String("end-date", "", "Inclusive end date for list mode (YYYY-MM-DD)")
	exportPath := flag.String("path", "", "Exported Arrow or Parquet file for inspect mode")
	output := flag.String("output", outputJSON, "Record output for data and inspect modes (json|csv)")
	flag.Parse()

	if *mode == "init-config" {
		if err := config.Default().Save(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(*configPath)
		return
	}

	if *mode == "inspect" {
		if err := inspectExport(os.Stdout, *exportPath, *output); err != nil {
			fmt.Fprintf(os.Stderr, "failed to inspect export: %v\n", err)
			os.Exit(1)
		}
		return
	}

	app, err := NewApplication(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start: %v\n", err)
		os.Exit(1)
	}
	defer app.logger.Sync()

	switch *mode {
	case "serve":
		err = app.Serve()
	case "list":
		err = app.List(*strategy, *startDate, *endDate)
	case "data":
		err = app.Data(*fileID, *output)
	case "export":
		err = app.Export(*fileID)
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}

	if err != nil {
		os.Exit(reportFailure(app.logger, *mode, err))
	}
}

// reportFailure logs err and flushes the logger before the process exits,
// returning the exit code.
func reportFailure(logger *zap.Logger, mode string, err error) int {
	logger.Error("Application failed", zap.String("mode", mode), zap.Error(err))
	_ = logger.Sync()
	return 1
}
