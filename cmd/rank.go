package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jastley/resume-ranker/internal/ai"
	"github.com/jastley/resume-ranker/internal/ai/gemini"
	"github.com/jastley/resume-ranker/internal/logger"
	"github.com/jastley/resume-ranker/internal/ranking"
	"github.com/jastley/resume-ranker/internal/recordstore"
	"github.com/jastley/resume-ranker/internal/secrets"

	"github.com/google/uuid"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"
)

var rankCmd = &cobra.Command{
	Use:   "rank [criterion]",
	Short: "Rank candidate records against a job criterion",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		rank(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(rankCmd)

	rankCmd.Flags().StringSliceP("ids", "i", nil, "rank only the records with these ids")
	rankCmd.Flags().BoolP("auto-approve", "y", false, "do not ask for confirmation before dispatching the run")
	rankCmd.Flags().Bool("dump", false, "dump the fetched candidates to a temporary file before ranking")
}

// rank is the main command for the cli.
func rank(cmd *cobra.Command, criterion string) {
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

	logger.Info("starting the resume-ranker", zap.String("version", version))

	if config == nil {
		logger.Fatal("config is required")
	}

	criterion = strings.TrimSpace(criterion)
	if criterion == "" {
		logger.Fatal("a non-empty job criterion is required")
	}

	store := newStoreClient(ctx, config, logger)

	ids, _ := cmd.Flags().GetStringSlice("ids")

	candidates, err := store.ListCandidates(&recordstore.ListParams{IDs: ids})
	if err != nil {
		logger.Fatal("listing candidate records", zap.Error(err))
	}
	candidates = candidates.FilterByIDs(ids)

	logger.Info("fetched candidate records", zap.Int("count", candidates.Len()))

	if candidates.Len() == 0 {
		logger.Info("exiting", zap.String("reason", "no candidate records found"))
		return
	}

	if dump, _ := cmd.Flags().GetBool("dump"); dump {
		filename, err := candidates.DumpToTmpFile()
		if err != nil {
			logger.Fatal("dumping candidates to file", zap.Error(err))
		}
		logger.Info("dumped candidates to file", zap.String("filename", filename))
	}

	if cmd.Flag("auto-approve").Value.String() == "false" {
		prompt := promptui.Select{
			Label: fmt.Sprintf("Rank %d candidates against %q?", candidates.Len(), criterion),
			Items: []string{PromptYes, PromptNo},
		}

		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}
		if action == PromptNo {
			logger.Info("exiting", zap.String("reason", "got no from prompt"))
			return
		}
	}

	scorers, err := buildScorers(ctx, config.AI, logger)
	if err != nil {
		logger.Fatal(
			"building scorers",
			zap.Error(err),
			zap.String("hint", "set ai.gemini.api-keys or RANKER_GEMINI_API_KEYS_FILE"),
		)
	}

	runner := ranking.NewRunner(config.Ranking, scorers, logger).WithUpdater(store)

	result, err := runner.Run(ctx, criterion, candidates.Items, newStdoutSink())
	if err != nil {
		logger.Fatal("ranking run failed", zap.Error(err))
	}

	logger.Info("ranking run finished",
		zap.String("run_id", result.RunID),
		zap.Int("processed", result.Processed),
		zap.Int("total", result.Total),
		zap.Bool("partial", result.Partial),
	)
}

func newStoreClient(ctx context.Context, config *Config, logger *zap.Logger) *recordstore.Client {
	token, err := resolveStoreToken(config)
	if err != nil {
		logger.Fatal(
			"loading record store token",
			zap.Error(err),
			zap.String("hint", "set RANKER_STORE_TOKEN_FILE environment variable or the 'store.token-file' key in the configuration file"),
		)
	}

	store := recordstore.New(ctx, logger, token)

	if config.Store != nil {
		if config.Store.URL != "" {
			store.APIURL = config.Store.URL
		}
		if config.Store.UserAgent != "" {
			store.UserAgent = config.Store.UserAgent
		}
	}

	return store
}

func resolveStoreToken(config *Config) (string, error) {
	if config == nil {
		return "", errors.New("config is required")
	}

	var value, file string
	if config.Store != nil {
		value = config.Store.Token
		file = strings.TrimSpace(config.Store.TokenFile)
	}
	if file == "" {
		file = strings.TrimSpace(viper.GetString("store.token-file"))
	}

	return secrets.Load(secrets.Source{
		Name:  "record store token",
		Value: value,
		File:  file,
	})
}

// buildScorers resolves the credential pool and builds one scorer per
// credential. Every scorer of a run shares one criterion cache id.
func buildScorers(ctx context.Context, cfg *AIConfig, logger *zap.Logger) ([]ai.BatchScorer, error) {
	if cfg == nil || cfg.Gemini == nil {
		return nil, errors.New("ai.gemini configuration is required")
	}

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	keys, err := secrets.LoadList(secrets.ListSource{
		Name:   "gemini api keys",
		Values: cfg.Gemini.APIKeys,
		File:   cfg.Gemini.APIKeysFile,
	})
	if err != nil {
		return nil, err
	}

	cacheID := uuid.NewString()

	scorers := make([]ai.BatchScorer, 0, len(keys))
	for i, key := range keys {
		generator, err := gemini.NewGenerator(ctx, key, cfg.Gemini.Model)
		if err != nil {
			return nil, fmt.Errorf("building generator for credential %d: %w", i, err)
		}

		scorer := gemini.NewScorer(generator, logger.With(zap.Int("credential", i)), cfg.Gemini.MaxLogLength)
		scorer.UseCriterionCache(cacheID)
		scorers = append(scorers, scorer)
	}

	logger.Info("scoring credential pool ready", zap.Int("credentials", len(scorers)))

	return scorers, nil
}

// stdoutSink prints each run event as one JSON line, so the command's output
// can be piped into jq or another tool.
type stdoutSink struct {
	enc *json.Encoder
}

func newStdoutSink() *stdoutSink {
	return &stdoutSink{enc: json.NewEncoder(os.Stdout)}
}

func (s *stdoutSink) Send(event ranking.Event) error {
	return s.enc.Encode(event)
}
