package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/snpixel/worldquant/internal/config"
	"github.com/snpixel/worldquant/internal/display"
	"github.com/snpixel/worldquant/internal/model"
	"github.com/snpixel/worldquant/internal/pipeline"
	"github.com/snpixel/worldquant/internal/store"
	"github.com/snpixel/worldquant/internal/worldquant"
	"github.com/snpixel/worldquant/pkg/utils"
	"github.com/spf13/cobra"
)

var (
	genCount    int
	genMode     string
	genOptimize bool
	genTimeout  string
	genDatasets []string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate alpha expressions",
	Long: `Generate alpha expressions in one batch: fetch the catalog,
build candidate expressions, optionally tune their numeric parameters,
validate them against the platform and save the survivors.`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().IntVar(&genCount, "count", 5, "Number of alpha expressions to generate")
	generateCmd.Flags().StringVar(&genMode, "mode", "creative", "Generation mode (basic, creative, optimized)")
	generateCmd.Flags().BoolVar(&genOptimize, "optimize", false, "Optimize generated alphas before validation")
	generateCmd.Flags().StringVar(&genTimeout, "timeout", "5m", "Run timeout, e.g. 5m")
	generateCmd.Flags().StringSliceVar(&genDatasets, "datasets", nil, "Datasets to scan for data fields")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		printError("failed to build logger", err)
		return err
	}
	defer logger.Sync()

	if err := store.InitDB(dbPath); err != nil {
		printError("failed to open run database", err)
		return err
	}

	creds, err := config.LoadCredentials(credentialsPath)
	if err != nil {
		printError("failed to load credentials", err)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := worldquant.NewClient("", creds, logger)
	if err := client.Authenticate(ctx); err != nil {
		printError("authentication failed", err)
		return err
	}

	spec := model.GenerationRunSpec{
		Count:    genCount,
		Mode:     genMode,
		Optimize: genOptimize,
		Timeout:  genTimeout,
		Datasets: genDatasets,
	}

	runID := uuid.New().String()
	if err := store.SaveRun(runID, spec); err != nil {
		printError("failed to save run", err)
		return err
	}

	deps := pipeline.Deps{
		Catalog: client,
		Checker: client,
		Output:  utils.NewOutputManager(outputDir),
		Logger:  logger,
	}

	results, outputFile, err := pipeline.Run(ctx, runID, spec, deps)
	if err != nil {
		printError("run failed", err)
		return err
	}

	display.ShowAlphas(os.Stdout, results, outputFile)
	return nil
}
