// Command analyzer runs one analysis session end to end: import a folder
// of measurement reports, print the per-item statistics and write the
// statistics report.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"mdacli/internal/config"
	"mdacli/internal/importer"
	"mdacli/internal/infrastructure"
	"mdacli/internal/services"
	"mdacli/internal/session"
	"mdacli/internal/stats"
	"mdacli/pkg/contracts"
)

func main() {
	inDir := flag.String("in", "", "folder of measurement report files (.csv/.txt/.xlsx)")
	outFile := flag.String("out", "", "statistics report CSV to write (optional)")
	yield := flag.Float64("yield", 0, "target yield for suggested tolerances (default from config, 0.90)")
	configFile := flag.String("config", "", "optional YAML config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(contracts.GetFullVersionString())
		return
	}

	if *inDir == "" {
		fmt.Fprintln(os.Stderr, "usage: analyzer -in <folder> [-out report.csv] [-yield 0.90]")
		os.Exit(2)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := infrastructure.MustInitializeLogger(cfg.Logging)
	defer infrastructure.CloseLogFile()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := session.NewStore(stats.NewEngine(cfg.Analysis.MinSamples), logger)
	imp := importer.New(store, logger, importer.Options{
		Workers:           cfg.Import.Workers,
		HeaderScanWindow:  cfg.Import.HeaderScanWindow,
		MaxFailureDetails: cfg.Import.MaxFailureDetails,
	})
	service := services.NewAnalysisService(cfg, store, imp, logger)

	result, err := service.ImportFolder(ctx, *inDir)
	if err != nil {
		logger.Error("import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if result.Canceled {
		logger.Warn("import canceled; results cover the files processed so far")
	}

	fmt.Printf("Imported %d file(s), %d record(s); %d file(s) and %d row(s) skipped\n",
		result.FilesProcessed, result.RecordsMerged, result.FilesFailed, result.RowsFailed)
	for _, failure := range result.FileFailures {
		fmt.Printf("  skipped %s: %s\n", failure.Path, failure.Reason)
	}

	targetYield := *yield
	if targetYield == 0 {
		targetYield = service.DefaultTargetYield()
	}

	printStatistics(ctx, service, targetYield)

	if *outFile != "" {
		if err := service.ExportStatistics(ctx, *outFile, targetYield); err != nil {
			logger.Error("export failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		fmt.Printf("Statistics report written to %s\n", *outFile)
	}
}

func printStatistics(ctx context.Context, service *services.AnalysisService, targetYield float64) {
	items := service.ListItems(ctx)
	if len(items) == 0 {
		fmt.Println("No measurement items accumulated.")
		return
	}

	fmt.Printf("%-24s %8s %6s %10s %12s %10s %8s %12s\n",
		"Item", "Samples", "NG", "FailRate", "Mean", "StdDev", "CPK", "SuggTol")
	for _, item := range items {
		s, err := service.GetStatistics(ctx, item)
		if err != nil {
			continue
		}

		failRate := "---"
		if s.FailRateValid {
			failRate = fmt.Sprintf("%.2f%%", s.FailRate*100)
		}
		cpk := "---"
		if s.CPKValid {
			cpk = fmt.Sprintf("%.3f", s.CPK)
			if s.LowConfidence {
				cpk += "*"
			}
		}
		suggested := "---"
		if sugg, err := service.SuggestTolerance(ctx, item, targetYield); err == nil {
			suggested = fmt.Sprintf("±%.4f", sugg.SuggestedTolerance)
		}

		fmt.Printf("%-24s %8d %6d %10s %12.4f %10.4f %8s %12s\n",
			item, s.SampleCount, s.NGCount, failRate, s.Mean, s.StdDev, cpk, suggested)
	}
	fmt.Println("(* = sample count below the configured confidence minimum)")
}
