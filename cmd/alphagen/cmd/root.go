package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	credentialsPath string
	outputDir       string
	dbPath          string
	verbose         bool
)

var rootCmd = &cobra.Command{
	Use:   "alphagen",
	Short: "Generate alpha expressions for WorldQuant Brain",
	Long: `alphagen generates, optimizes and validates alpha expressions
against the WorldQuant Brain platform, then presents the survivors
for manual submission.

Commands:
  generate - run one generation batch from the command line
  serve    - start the HTTP API server`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&credentialsPath, "credentials", "./data/credentials.json", "Path to credentials file")
	rootCmd.PersistentFlags().StringVar(&outputDir, "output-dir", "./data/generated_alphas", "Directory to save results")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "alphagen.db", "Path to the run database")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
}

// newLogger builds the process logger; verbose enables debug output.
func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	return cfg.Build()
}

func printError(msg string, err error) {
	fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
}
