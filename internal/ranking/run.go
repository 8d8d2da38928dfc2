package ranking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jastley/resume-ranker/internal/ai"
	"github.com/jastley/resume-ranker/internal/recordstore"
	"go.uber.org/zap"
)

var (
	ErrNoCriterion   = errors.New("scoring criterion is required")
	ErrNoCredentials = errors.New("no scoring credentials configured")
)

// Config tunes a ranking run. Zero values fall back to defaults.
type Config struct {
	BatchSize            int           `mapstructure:"batch-size"`
	WorkersPerCredential int           `mapstructure:"workers-per-credential"`
	MaxRetries           int           `mapstructure:"max-retries"`
	BackoffBase          time.Duration `mapstructure:"backoff-base"`
	ScoreTimeout         time.Duration `mapstructure:"score-timeout"`
	MaxTextLength        int           `mapstructure:"max-text-length"`
	RequestsPerMinute    float64       `mapstructure:"requests-per-minute"`
}

const (
	DefaultBatchSize            = 10
	DefaultWorkersPerCredential = 2
	DefaultMaxRetries           = 2
	DefaultBackoffBase          = 500 * time.Millisecond
	DefaultScoreTimeout         = 45 * time.Second
	DefaultMaxTextLength        = 6000
	DefaultRequestsPerMinute    = 8
)

func (c Config) withDefaults() Config {
	if c.BatchSize < 1 {
		c.BatchSize = DefaultBatchSize
	}
	if c.WorkersPerCredential < 1 {
		c.WorkersPerCredential = DefaultWorkersPerCredential
	}
	if c.MaxRetries < 1 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = DefaultBackoffBase
	}
	if c.ScoreTimeout <= 0 {
		c.ScoreTimeout = DefaultScoreTimeout
	}
	if c.MaxTextLength < 1 {
		c.MaxTextLength = DefaultMaxTextLength
	}
	if c.RequestsPerMinute <= 0 {
		c.RequestsPerMinute = DefaultRequestsPerMinute
	}
	return c
}

// Updater persists extracted fields back to the record store. Implemented by
// *recordstore.Client; nil disables the side effect.
type Updater interface {
	UpdateCandidate(id string, fields map[string]any) error
}

// Result is what a finished run produced, mirroring the complete event.
type Result struct {
	RunID     string
	Items     []*RankedCandidate
	Total     int
	Processed int
	Partial   bool
}

// Runner executes ranking runs: partition, concurrent dispatch, aggregation
// and event emission. One scorer per credential; the pool size is
// len(scorers) × WorkersPerCredential.
type Runner struct {
	cfg     Config
	scorers []ai.BatchScorer
	updater Updater
	logger  *zap.Logger
}

func NewRunner(cfg Config, scorers []ai.BatchScorer, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Runner{
		cfg:     cfg.withDefaults(),
		scorers: scorers,
		logger:  logger,
	}
}

// WithUpdater enables persisting changed extracted fields after a run.
func (r *Runner) WithUpdater(updater Updater) *Runner {
	r.updater = updater
	return r
}

// Run ranks the candidates against the criterion, streaming events into the
// sink as the run progresses. The caller always receives a terminal event:
// complete (possibly partial) once any work happened, error on setup failure.
// Cancelling ctx stops new batch claims; the accumulated result is still
// completed and returned.
func (r *Runner) Run(ctx context.Context, criterion string, candidates []*recordstore.Candidate, sink Sink) (*Result, error) {
	events := NewEmitter(sink, r.logger)
	defer events.Close()

	runID := uuid.NewString()
	logger := r.logger.With(zap.String("run_id", runID))

	criterion = strings.TrimSpace(criterion)
	if criterion == "" {
		events.Error("no scoring criterion provided")
		return nil, ErrNoCriterion
	}

	if len(r.scorers) == 0 {
		events.Error("no scoring credentials configured")
		return nil, ErrNoCredentials
	}

	records := BuildRecords(candidates, r.cfg.MaxTextLength)
	total := len(records)

	if total == 0 {
		events.Complete(nil, 0, 0, false, "no candidate records to score")
		return &Result{RunID: runID}, nil
	}

	batches := Partition(records, r.cfg.BatchSize)
	workers := len(r.scorers) * r.cfg.WorkersPerCredential

	logger.Info("starting ranking run",
		zap.Int("candidates", total),
		zap.Int("batches", len(batches)),
		zap.Int("credentials", len(r.scorers)),
		zap.Int("workers", workers),
	)

	events.Progress(0, total)
	events.Log(LogInfo, fmt.Sprintf("scoring %d candidates in %d batches across %d workers", total, len(batches), workers))

	agg := NewAggregator(workers)
	processed, workerErr := r.dispatch(ctx, criterion, batches, total, agg, events)
	items := agg.Finalize()

	if workerErr != nil {
		logger.Error("ranking run aborted", zap.Error(workerErr))
		if len(items) == 0 {
			// Nothing at all was processed; a terminal error is the only
			// honest signal.
			events.Error(fmt.Sprintf("ranking run failed before any batch completed: %v", workerErr))
			return nil, workerErr
		}
	}

	r.persistExtractedFields(logger, items)

	partial := workerErr != nil || processed < total
	message := fmt.Sprintf("ranked %d of %d candidates", processed, total)
	if !partial {
		message = fmt.Sprintf("ranked all %d candidates", total)
		events.Log(LogSuccess, message)
	} else {
		events.Log(LogWarn, message+" (partial run)")
	}

	events.Complete(items, total, processed, partial, message)

	logger.Info("ranking run finished",
		zap.Int("processed", processed),
		zap.Bool("partial", partial),
	)

	return &Result{
		RunID:     runID,
		Items:     items,
		Total:     total,
		Processed: processed,
		Partial:   partial,
	}, nil
}

// persistExtractedFields pushes extracted fields that differ from the stored
// record back to the store. Fallback items never trigger updates, and update
// failures only degrade to warnings.
func (r *Runner) persistExtractedFields(logger *zap.Logger, items []*RankedCandidate) {
	if r.updater == nil {
		return
	}

	updated := 0
	for _, item := range items {
		if item.Fallback || item.source == nil || item.CandidateID == "" {
			continue
		}

		// Merged entries carry the stored value for fields the extraction
		// left empty, so equal fields fall out of the diff naturally.
		changed := item.source.ChangedFields(item.Name, item.Email, item.Experience, item.Skills)
		if changed == nil {
			continue
		}

		if err := r.updater.UpdateCandidate(item.CandidateID, changed); err != nil {
			logger.Warn("updating candidate record failed",
				zap.String("candidate_id", item.CandidateID),
				zap.Error(err),
			)
			continue
		}
		updated++
	}

	if updated > 0 {
		logger.Info("candidate records updated with extracted fields", zap.Int("updated", updated))
	}
}
