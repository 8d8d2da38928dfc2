package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/jastley/resume-ranker/internal/ai"
	"github.com/jastley/resume-ranker/internal/logger"
	"github.com/jastley/resume-ranker/internal/util"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Model() string
}

// criterionCacher is implemented by generators that can park the criterion
// text in a server-side content cache for the duration of a run.
type criterionCacher interface {
	EnsureCriterionCache(ctx context.Context, runID, criterion string) (string, error)
	GenerateContentWithCache(ctx context.Context, prompt, cacheName string) (string, error)
}

// Scorer drives one batch scoring call against Gemini and turns the loosely
// typed model output into validated per-item results. It holds no per-call
// state and is safe for concurrent use.
type Scorer struct {
	generator  contentGenerator
	logger     *zap.Logger
	maxLogLen  int
	cacheRunID string
}

//go:embed prompt.md
var promptTemplate string

const (
	defaultMaxLogLength = 200

	cachedCriterionNote = "(the job description was provided in the cached context above)"
)

func NewScorer(generator contentGenerator, log *zap.Logger, maxLogLength int) *Scorer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Scorer{
		generator: generator,
		logger:    logger.WithScoringFields(log, "gemini", generator.Model()),
		maxLogLen: maxLogLength,
	}
}

// UseCriterionCache makes subsequent calls register the criterion as Gemini
// cached content under the given run id, when the generator supports it.
func (s *Scorer) UseCriterionCache(runID string) {
	s.cacheRunID = strings.TrimSpace(runID)
}

// ScoreBatch implements ai.BatchScorer.
func (s *Scorer) ScoreBatch(ctx context.Context, criterion string, items []ai.Item) ([]*ai.ItemScore, error) {
	criterion = strings.TrimSpace(criterion)
	if criterion == "" {
		return nil, fmt.Errorf("criterion is required")
	}
	if len(items) == 0 {
		return nil, nil
	}

	candidatesJSON, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal candidates payload: %w", err)
	}

	cacheName := s.ensureCache(ctx, criterion)

	promptCriterion := criterion
	if cacheName != "" {
		promptCriterion = cachedCriterionNote
	}
	prompt := buildPrompt(promptCriterion, string(candidatesJSON))

	s.logger.Debug("gemini score batch request",
		zap.Int("batch_size", len(items)),
		zap.Int("first_index", items[0].Index),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", util.TruncateForLog(prompt, s.maxLogLen)),
	)

	var raw string
	if cacher, ok := s.generator.(criterionCacher); ok && cacheName != "" {
		raw, err = cacher.GenerateContentWithCache(ctx, prompt, cacheName)
	} else {
		raw, err = s.generator.GenerateContent(ctx, prompt)
	}
	if err != nil {
		return nil, classifyError(err)
	}

	s.logger.Debug("gemini score batch response",
		zap.Int("batch_size", len(items)),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", util.TruncateForLog(raw, s.maxLogLen)),
	)

	scores, err := parseResponse(raw)
	if err != nil {
		return nil, ai.NewError(ai.KindMalformedResponse, err)
	}

	if len(scores) != len(items) {
		s.logger.Warn("scoring response item count does not match batch size",
			zap.Int("expected", len(items)),
			zap.Int("got", len(scores)),
		)
	}

	return scores, nil
}

func (s *Scorer) ensureCache(ctx context.Context, criterion string) string {
	if s.cacheRunID == "" {
		return ""
	}

	cacher, ok := s.generator.(criterionCacher)
	if !ok {
		return ""
	}

	name, err := cacher.EnsureCriterionCache(ctx, s.cacheRunID, criterion)
	if err != nil {
		s.logger.Debug("criterion cache unavailable, sending criterion inline",
			zap.String("run_id", s.cacheRunID),
			zap.Error(err),
		)
		return ""
	}

	return name
}

func buildPrompt(criterion, candidatesJSON string) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Job description:\n{{CRITERION}}\n\nCandidates:\n{{CANDIDATES_JSON}}\n\nJSON Response:"
	}
	prompt := strings.ReplaceAll(template, "{{CRITERION}}", criterion)
	prompt = strings.ReplaceAll(prompt, "{{CANDIDATES_JSON}}", candidatesJSON)
	return prompt
}

func parseResponse(raw string) ([]*ai.ItemScore, error) {
	cleaned := extractJSON(raw)

	var entries []any
	if err := json.Unmarshal([]byte(cleaned), &entries); err != nil {
		// Some models wrap the array in an envelope object.
		var envelope map[string]any
		if envErr := json.Unmarshal([]byte(cleaned), &envelope); envErr != nil {
			return nil, fmt.Errorf("parse scoring response: %w", err)
		}
		entries = envelopeEntries(envelope)
		if entries == nil {
			return nil, fmt.Errorf("scoring response is not a result list")
		}
	}

	scores := make([]*ai.ItemScore, 0, len(entries))
	for _, entry := range entries {
		data, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		score, ok := coerceItemScore(data)
		if !ok {
			continue
		}
		scores = append(scores, score)
	}

	if len(scores) == 0 && len(entries) > 0 {
		return nil, fmt.Errorf("scoring response contained no valid items")
	}

	return scores, nil
}

func envelopeEntries(envelope map[string]any) []any {
	for _, key := range []string{"results", "candidates", "items"} {
		if list, ok := envelope[key].([]any); ok {
			return list
		}
	}
	return nil
}

func coerceItemScore(data map[string]any) (*ai.ItemScore, bool) {
	index, ok := coerceIndex(data)
	if !ok {
		return nil, false
	}

	score := coerceFloat(firstValue(data, "score"))
	if math.IsNaN(score) {
		score = 0
	}
	score = math.Min(100, math.Max(0, score))

	return &ai.ItemScore{
		CandidateIndex: index,
		Name:           coerceString(firstValue(data, "name")),
		Email:          coerceString(firstValue(data, "email")),
		Skills:         coerceStringSlice(firstValue(data, "skills")),
		Experience:     coerceString(firstValue(data, "experience")),
		Score:          score,
		Reasoning:      coerceString(firstValue(data, "reasoning", "reason")),
		Strengths:      coerceStringSlice(firstValue(data, "strengths")),
		Concerns:       coerceStringSlice(firstValue(data, "concerns")),
	}, true
}

func coerceIndex(data map[string]any) (int, bool) {
	value := firstValue(data, "candidate_index", "candidateIndex", "index")
	if value == nil {
		return 0, false
	}

	f := coerceFloat(value)
	if math.IsNaN(f) || f != math.Trunc(f) || f < 0 {
		return 0, false
	}

	return int(f), true
}

func firstValue(data map[string]any, keys ...string) any {
	for _, key := range keys {
		if value, ok := data[key]; ok {
			return value
		}
	}
	return nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func classifyError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests {
			return ai.NewError(ai.KindRateLimited, err)
		}
		return ai.NewError(ai.KindTransport, err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ai.NewError(ai.KindTimeout, err)
	}

	return ai.NewError(ai.KindTransport, err)
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		if v == nil {
			return ""
		}
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}

func coerceStringSlice(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}

	result := make([]string, 0, len(list))
	for _, entry := range list {
		s := coerceString(entry)
		if s == "" {
			continue
		}
		result = append(result, s)
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
