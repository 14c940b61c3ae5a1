package cmd

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/bidwise/rfp-analyzer/internal/logger"
	"github.com/bidwise/rfp-analyzer/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run an HTTP server that accepts document uploads for comparison",
	Run: func(cmd *cobra.Command, _ []string) {
		serve(cmd)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("listen", "l", ":8080", "address to listen on")
}

func serve(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	p, err := buildPipeline(ctx, config, logger)
	if err != nil {
		logger.Fatal("building the pipeline", zap.Error(err))
	}

	addr := cmd.Flag("listen").Value.String()

	srv := &http.Server{
		Addr:              addr,
		Handler:           server.New(p, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("starting the rfp-analyzer server", zap.String("version", version), zap.String("listen", addr))

	if err := srv.ListenAndServe(); err != nil {
		logger.Fatal("serving", zap.Error(err))
	}
}
