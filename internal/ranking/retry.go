package ranking

import (
	"context"
	"fmt"
	"time"

	"github.com/jastley/resume-ranker/internal/ai"
	"github.com/jastley/resume-ranker/internal/utils"
	"go.uber.org/zap"
)

// FallbackReasoning is the fixed explanation attached to synthesized items.
const FallbackReasoning = "analysis failed: the scoring service could not process this candidate"

var waitFor = utils.WaitFor

// attemptState makes the retry flow an explicit machine instead of loop
// fall-through: a batch is attempted until it either succeeds or exhausts its
// budget, and exhaustion always degrades into fallback items.
type attemptState int

const (
	stateAttempting attemptState = iota
	stateSucceeded
	stateExhausted
)

// RetryPolicy wraps a batch scorer with bounded retries. Rate-limited attempts
// back off exponentially (base × 2^attempt); other failures are retried
// immediately. Whatever happens, Score returns exactly one item per record in
// the batch, so a failing backend never makes records disappear.
type RetryPolicy struct {
	scorer      ai.BatchScorer
	maxAttempts int
	backoffBase time.Duration
	timeout     time.Duration
	logger      *zap.Logger
	events      *Emitter
}

func NewRetryPolicy(scorer ai.BatchScorer, maxAttempts int, backoffBase, timeout time.Duration, events *Emitter, logger *zap.Logger) *RetryPolicy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if backoffBase <= 0 {
		backoffBase = 500 * time.Millisecond
	}
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RetryPolicy{
		scorer:      scorer,
		maxAttempts: maxAttempts,
		backoffBase: backoffBase,
		timeout:     timeout,
		logger:      logger,
		events:      events,
	}
}

// Score drives the scoring call for one batch and never fails: on exhaustion
// every record still gets a zero-score fallback item.
func (p *RetryPolicy) Score(ctx context.Context, criterion string, batch Batch) []ScoredItem {
	state := stateAttempting
	var scores []*ai.ItemScore

	for attempt := 0; state == stateAttempting; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, p.timeout)
		result, err := p.scorer.ScoreBatch(attemptCtx, criterion, batchItems(batch))
		cancel()

		if err == nil {
			scores = result
			state = stateSucceeded
			break
		}

		p.reportAttemptFailure(batch, attempt, err)

		if attempt+1 >= p.maxAttempts || ctx.Err() != nil {
			state = stateExhausted
			break
		}

		if ai.IsRateLimited(err) {
			delay := p.backoffBase << attempt
			if waitErr := waitFor(ctx, delay); waitErr != nil {
				state = stateExhausted
			}
		}
	}

	if state != stateSucceeded {
		return fallbackItems(batch)
	}

	return p.align(batch, scores)
}

func (p *RetryPolicy) reportAttemptFailure(batch Batch, attempt int, err error) {
	kind := ai.KindOf(err)

	p.logger.Warn("batch scoring attempt failed",
		zap.Int("batch_start", batch.StartIndex),
		zap.Int("batch_size", batch.Len()),
		zap.Int("attempt", attempt+1),
		zap.String("error_kind", kind.String()),
		zap.Error(err),
	)

	if p.events == nil {
		return
	}

	message := fmt.Sprintf("scoring attempt %d for batch at index %d failed: %s", attempt+1, batch.StartIndex, kind)
	if kind == ai.KindRateLimited {
		// Rate limiting is handled inside the policy; callers only need to
		// know why the run is pausing.
		p.events.Log(LogInfo, message)
		return
	}
	p.events.Log(LogError, message)
}

// align maps the returned scores back onto the batch by global index. A score
// whose index falls outside the batch range, or repeats an index, is a
// protocol violation: it is logged and dropped, never trusted. Records left
// without a score get a fallback item, so output length always equals input
// length.
func (p *RetryPolicy) align(batch Batch, scores []*ai.ItemScore) []ScoredItem {
	byIndex := make(map[int]*ai.ItemScore, len(scores))
	for _, score := range scores {
		if score == nil {
			continue
		}
		local := score.CandidateIndex - batch.StartIndex
		if local < 0 || local >= batch.Len() {
			p.logger.Warn("scored item index outside batch range",
				zap.Int("candidate_index", score.CandidateIndex),
				zap.Int("batch_start", batch.StartIndex),
				zap.Int("batch_size", batch.Len()),
			)
			continue
		}
		if _, dup := byIndex[score.CandidateIndex]; dup {
			p.logger.Warn("duplicate candidate index in scoring response",
				zap.Int("candidate_index", score.CandidateIndex),
			)
			continue
		}
		byIndex[score.CandidateIndex] = score
	}

	items := make([]ScoredItem, 0, batch.Len())
	missing := 0
	for _, record := range batch.Records {
		score, ok := byIndex[record.GlobalIndex]
		if !ok {
			items = append(items, fallbackItem(record))
			missing++
			continue
		}
		items = append(items, ScoredItem{ItemScore: *score})
	}

	if missing > 0 {
		p.logger.Warn("scoring response missed records, fallbacks synthesized",
			zap.Int("batch_start", batch.StartIndex),
			zap.Int("missing", missing),
		)
		if p.events != nil {
			p.events.Log(LogWarn, fmt.Sprintf("%d record(s) in batch at index %d were not scored and degraded to fallbacks", missing, batch.StartIndex))
		}
	}

	return items
}

func batchItems(batch Batch) []ai.Item {
	items := make([]ai.Item, 0, batch.Len())
	for _, record := range batch.Records {
		items = append(items, ai.Item{Index: record.GlobalIndex, Text: record.Text})
	}
	return items
}

func fallbackItem(record SourceRecord) ScoredItem {
	return ScoredItem{
		ItemScore: ai.ItemScore{
			CandidateIndex: record.GlobalIndex,
			Score:          0,
			Reasoning:      FallbackReasoning,
		},
		Fallback: true,
	}
}

func fallbackItems(batch Batch) []ScoredItem {
	items := make([]ScoredItem, 0, batch.Len())
	for _, record := range batch.Records {
		items = append(items, fallbackItem(record))
	}
	return items
}
