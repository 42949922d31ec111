package cmd

import (
	"context"

	"github.com/snpixel/worldquant/internal/api"
	"github.com/snpixel/worldquant/internal/api/handler"
	"github.com/snpixel/worldquant/internal/config"
	"github.com/snpixel/worldquant/internal/pipeline"
	"github.com/snpixel/worldquant/internal/store"
	"github.com/snpixel/worldquant/internal/worldquant"
	"github.com/snpixel/worldquant/pkg/router"
	"github.com/snpixel/worldquant/pkg/utils"
	"github.com/spf13/cobra"

	_ "github.com/snpixel/worldquant/docs"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the alpha generation API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address")
}

// @title Alpha Generator API
// @version 1.0
// @description API for generating, optimizing and validating WorldQuant alpha expressions
// @BasePath /api/v1
func runServe(cmd *cobra.Command, args []string) error {
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

	client := worldquant.NewClient("", creds, logger)
	if err := client.Authenticate(context.Background()); err != nil {
		printError("authentication failed", err)
		return err
	}

	handler.Init(pipeline.Deps{
		Catalog: client,
		Checker: client,
		Output:  utils.NewOutputManager(outputDir),
		Logger:  logger,
	})

	r := router.New()
	api.RegisterRoutes(r)
	r.Start(serveAddr)
	return nil
}
