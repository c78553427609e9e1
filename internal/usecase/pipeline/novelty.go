package pipeline

import (
	"context"
	"log/slog"
	"math"

	"trendpost/internal/domain/entity"
	"trendpost/internal/observability/metrics"
	"trendpost/internal/repository"
)

// NoveltyEvaluator scores each ingested keyword against its previous bucket
// and partitions the set into postable and low-variation keywords.
type NoveltyEvaluator struct {
	metrics repository.MetricRepository
	cutoff  int
	logger  *slog.Logger
}

// NewNoveltyEvaluator creates a NoveltyEvaluator with the given low-variation
// cutoff.
func NewNoveltyEvaluator(metrics repository.MetricRepository, cutoff int, logger *slog.Logger) *NoveltyEvaluator {
	return &NoveltyEvaluator{
		metrics: metrics,
		cutoff:  cutoff,
		logger:  logger,
	}
}

// Evaluate scores every ingested keyword and writes the derived fields back
// onto its current metric row. Keywords seen for the first time are always
// postable and their streak is left untouched. A keyword whose evaluation
// cannot be read or persisted is excluded from the postable set, never from
// the run.
func (n *NoveltyEvaluator) Evaluate(ctx context.Context, ingested *IngestResult) (*EvalResult, error) {
	result := &EvalResult{
		Postable: make([]PostableKeyword, 0, len(ingested.Keywords)),
	}

	for _, kw := range ingested.Keywords {
		history, err := n.metrics.History(ctx, kw.ID, entity.PlatformGoogleTrends, 2)
		if err != nil {
			n.logger.Error("metric history lookup failed, keyword excluded",
				slog.Int64("keyword_id", kw.ID),
				slog.Any("error", err))
			result.Failed++
			continue
		}

		// Fewer than two rows means this bucket is the keyword's first
		// sighting: no previous bucket to compare against, always postable.
		if len(history) < 2 {
			result.FirstSighting++
			result.Postable = append(result.Postable, PostableKeyword{
				ID:     kw.ID,
				Text:   kw.Text,
				Volume: kw.Volume,
			})
			continue
		}

		current, previous := history[0], history[1]
		eval := scoreAgainstPrevious(current, previous)
		eval.LowVariation = eval.noveltyScore < n.cutoff
		if eval.LowVariation {
			current.NoPostStreak = previous.NoPostStreak + 1
		} else {
			current.NoPostStreak = 0
		}

		current.RankDelta = eval.rankDelta
		current.NoveltyRatio = eval.noveltyRatio
		current.WeightedNovelty = eval.weightedNovelty
		current.Score = eval.score
		current.LowVariation = eval.LowVariation

		if err := n.metrics.UpdateEvaluation(ctx, current); err != nil {
			n.logger.Error("evaluation update failed, keyword excluded",
				slog.Int64("keyword_id", kw.ID),
				slog.Any("error", err))
			result.Failed++
			continue
		}

		if eval.LowVariation {
			result.LowVariation++
			n.logger.Debug("keyword below novelty cutoff, skipped this cycle",
				slog.Int64("keyword_id", kw.ID),
				slog.String("text", kw.Text),
				slog.Int("novelty_score", eval.noveltyScore),
				slog.Int("streak", current.NoPostStreak))
			continue
		}

		result.Postable = append(result.Postable, PostableKeyword{
			ID:     kw.ID,
			Text:   kw.Text,
			Volume: kw.Volume,
		})
	}

	metrics.RecordKeywordsPostable(result.FirstSighting, len(result.Postable)-result.FirstSighting)
	metrics.RecordKeywordsSkipped(result.LowVariation, result.Failed)
	n.logger.Info("novelty evaluation completed",
		slog.Int("postable", len(result.Postable)),
		slog.Int("first_sighting", result.FirstSighting),
		slog.Int("low_variation", result.LowVariation),
		slog.Int("failed", result.Failed))

	return result, nil
}

// evaluation holds the derived scoring fields for one keyword bucket.
type evaluation struct {
	rankDelta       int64
	noveltyRatio    float64
	weightedNovelty float64
	noveltyScore    int
	score           int64
	LowVariation    bool
}

// scoreAgainstPrevious computes the novelty scoring of the current bucket
// relative to the previous one. The novelty ratio steps down with the gap
// between the two buckets: the longer a keyword has been quiet, the more
// novel its return.
func scoreAgainstPrevious(current, previous *entity.KeywordMetricHourly) evaluation {
	rankDelta := current.Volume - previous.Volume

	gap := current.BucketAt.Sub(previous.BucketAt)
	var ratio float64
	switch {
	case gap.Hours() > 24:
		ratio = 1.0
	case gap.Hours() > 12:
		ratio = 0.8
	case gap.Hours() > 6:
		ratio = 0.6
	default:
		ratio = 0.3
	}
	weighted := ratio * 10

	noveltyScore := int(math.Floor(float64(rankDelta)/100)) +
		int(math.Floor(weighted)) +
		previous.NoPostStreak

	return evaluation{
		rankDelta:       rankDelta,
		noveltyRatio:    ratio,
		weightedNovelty: weighted,
		noveltyScore:    noveltyScore,
		score:           int64(noveltyScore)*10000 + current.Volume,
	}
}
