package cmd

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/jastley/resume-ranker/internal/logger"
	"github.com/jastley/resume-ranker/internal/ranking"
	"github.com/jastley/resume-ranker/internal/server"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const defaultListen = ":8080"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve ranking runs over websocket",
	Run: func(cmd *cobra.Command, _ []string) {
		serve(cmd)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("listen", "l", defaultListen, "address to listen on")

	viper.BindPFlag("server.listen", serveCmd.Flags().Lookup("listen"))
}

func serve(_ *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the resume-ranker server", zap.String("version", version))

	if config == nil {
		logger.Fatal("config is required")
	}

	store := newStoreClient(ctx, config, logger)

	scorers, err := buildScorers(ctx, config.AI, logger)
	if err != nil {
		logger.Fatal(
			"building scorers",
			zap.Error(err),
			zap.String("hint", "set ai.gemini.api-keys or RANKER_GEMINI_API_KEYS_FILE"),
		)
	}

	runner := ranking.NewRunner(config.Ranking, scorers, logger).WithUpdater(store)

	listen := viper.GetString("server.listen")
	if config.Server != nil && config.Server.Listen != "" {
		listen = config.Server.Listen
	}
	if listen == "" {
		listen = defaultListen
	}

	srv := server.New(logger, store, runner)

	if err := srv.Serve(ctx, listen); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}

	logger.Info("server stopped")
}
