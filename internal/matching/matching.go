// Package matching implements rule-based scoring of catalog methods
// against user profiles, and the conditional supplementation stage that
// asks the model to propose methods beyond the catalog when no
// candidate scores well enough.
package matching

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jonathan/method-advisor/internal/batch"
	"github.com/jonathan/method-advisor/internal/catalog"
	"github.com/jonathan/method-advisor/internal/jsonrepair"
	"github.com/jonathan/method-advisor/internal/llm"
	"github.com/jonathan/method-advisor/internal/prompts"
	"github.com/jonathan/method-advisor/internal/types"
)

const promptFile = "recommendation.json"

const (
	scoringTemperature    = 0.3
	supplementTemperature = 0.7
)

// SupplementThreshold is the average rule score at or below which the
// supplementation stage runs: a catalog averaging 9.0 or less leaves
// room for a better method outside it.
const SupplementThreshold = 9.0

// TopCandidateLimit caps the shortlist that advances to semantic analysis
const TopCandidateLimit = 3

// SupplementCount is how many extra methods supplementation proposes
const SupplementCount = 2

// ScoringError reports a rule-matching pass that produced no usable scores
type ScoringError struct {
	Message string
	Cause   error
}

func (e *ScoringError) Error() string {
	if e.Cause != nil {
		return "rule scoring failed: " + e.Message + ": " + e.Cause.Error()
	}
	return "rule scoring failed: " + e.Message
}

func (e *ScoringError) Unwrap() error { return e.Cause }

// scoredBatch is the wire shape of a rule-scoring response
type scoredBatch struct {
	Results []types.RuleScoringResult `json:"ruleScoringResults"`
}

// ScoreCatalog scores every method against the user's profiles. The
// method set is partitioned across the given clients and scored in
// parallel; batches that fail are retried as one batch on the first
// client. Only a total failure returns an error.
func ScoreCatalog(ctx context.Context, clients []llm.Client, userNeeds *types.UserProfile, dataFeatures *types.DataFeatureProfile, methods []catalog.WeightMethod, log *logrus.Entry) (*types.RuleMatchOutcome, error) {
	if len(clients) == 0 {
		return nil, &ScoringError{Message: "no clients available"}
	}
	if len(methods) == 0 {
		return nil, &ScoringError{Message: "no methods to score"}
	}

	start := time.Now()
	groups := batch.Partition(methods, len(clients))

	settled := batch.SettleAll(ctx, len(groups), func(ctx context.Context, i int) ([]types.RuleScoringResult, error) {
		return scoreBatch(ctx, clients[i], userNeeds, dataFeatures, groups[i])
	})
	succeeded, failed := batch.Split(settled)

	var results []types.RuleScoringResult
	for _, s := range succeeded {
		results = append(results, s.Value...)
	}

	// retry everything the parallel pass missed as a single batch
	if len(failed) > 0 {
		var missed []catalog.WeightMethod
		for _, f := range failed {
			log.WithError(f.Err).WithField("batch", f.Index).Warn("rule scoring batch failed")
			missed = append(missed, groups[f.Index]...)
		}
		retried, err := scoreBatch(ctx, clients[0], userNeeds, dataFeatures, missed)
		if err != nil {
			if len(results) == 0 {
				return nil, &ScoringError{Message: "all scoring batches failed", Cause: err}
			}
			log.WithError(err).Warn("single-batch retry failed, continuing with partial scores")
		} else {
			results = append(results, retried...)
		}
	}

	outcome := buildOutcome(results)
	outcome.Batch = &types.BatchDetails{
		BatchCount:   len(groups),
		TotalMethods: len(methods),
		Duration:     time.Since(start).Seconds(),
		FailedCount:  len(failed),
	}
	return outcome, nil
}

// scoreBatch scores one group of methods with one client
func scoreBatch(ctx context.Context, client llm.Client, userNeeds *types.UserProfile, dataFeatures *types.DataFeatureProfile, methods []catalog.WeightMethod) ([]types.RuleScoringResult, error) {
	prompt := prompts.MustGet(promptFile, "rule-based-matching")
	rendered := prompts.Render(prompt, map[string]any{
		"userNeeds":    userNeeds,
		"dataFeatures": dataFeatures,
		"methods":      catalog.FilterForPrompt(methods),
	})

	raw, err := client.Complete(ctx, rendered, scoringTemperature)
	if err != nil {
		return nil, err
	}

	var parsed scoredBatch
	if err := jsonrepair.Unmarshal(raw, &parsed); err != nil {
		return nil, err
	}
	if len(parsed.Results) == 0 {
		return nil, &ScoringError{Message: "response contained no scoring results"}
	}

	for i := range parsed.Results {
		normalizeResult(&parsed.Results[i])
	}
	return parsed.Results, nil
}

// normalizeResult clamps scores into range and recomputes the total
// when the model omitted it.
func normalizeResult(r *types.RuleScoringResult) {
	r.DimensionalScores.TaskDimensionMatch = clamp(r.DimensionalScores.TaskDimensionMatch)
	r.DimensionalScores.DataDimensionMatch = clamp(r.DimensionalScores.DataDimensionMatch)
	r.DimensionalScores.UserDimensionMatch = clamp(r.DimensionalScores.UserDimensionMatch)
	r.DimensionalScores.EnvironmentDimensionMatch = clamp(r.DimensionalScores.EnvironmentDimensionMatch)
	if r.TotalRuleScore == 0 {
		d := r.DimensionalScores
		r.TotalRuleScore = (d.TaskDimensionMatch + d.DataDimensionMatch + d.UserDimensionMatch + d.EnvironmentDimensionMatch) / 4
	}
	r.TotalRuleScore = clamp(r.TotalRuleScore)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}

// buildOutcome sorts results, derives the shortlist, and decides
// whether supplementation is needed. The average covers only the
// shortlist: supplementation is about whether the best available
// candidates fit, not whether the whole catalog does.
func buildOutcome(results []types.RuleScoringResult) *types.RuleMatchOutcome {
	sortResults(results)

	top := make([]string, 0, TopCandidateLimit)
	var sum float64
	for _, r := range results {
		if len(top) == TopCandidateLimit {
			break
		}
		top = append(top, r.MethodName)
		sum += r.TotalRuleScore
	}
	average := sum / float64(len(top))

	return &types.RuleMatchOutcome{
		Results:         results,
		TopCandidates:   top,
		AverageScore:    average,
		NeedsSupplement: average <= SupplementThreshold,
	}
}

// sortResults orders by score descending, name ascending on ties so
// shortlists are deterministic.
func sortResults(results []types.RuleScoringResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].TotalRuleScore != results[j].TotalRuleScore {
			return results[i].TotalRuleScore > results[j].TotalRuleScore
		}
		return results[i].MethodName < results[j].MethodName
	})
}

// SuggestMethods asks the model for methods beyond the current
// candidate set. Suggestions that duplicate existing names are dropped
// and the result is capped at SupplementCount.
func SuggestMethods(ctx context.Context, client llm.Client, userNeeds *types.UserProfile, dataFeatures *types.DataFeatureProfile, existing []string, bestScore float64) ([]types.SuggestedMethod, error) {
	prompt := prompts.MustGet(promptFile, "method-supplement")
	rendered := prompts.Render(prompt, map[string]any{
		"userNeeds":       userNeeds,
		"dataFeatures":    dataFeatures,
		"existingMethods": existing,
		"bestScore":       bestScore,
	})

	raw, err := client.Complete(ctx, rendered, supplementTemperature)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Recommendations []types.SuggestedMethod `json:"recommendations"`
	}
	if err := jsonrepair.Unmarshal(raw, &parsed); err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(existing))
	for _, name := range existing {
		known[name] = true
	}

	suggestions := make([]types.SuggestedMethod, 0, SupplementCount)
	for _, s := range parsed.Recommendations {
		if s.Method == "" || known[s.Method] {
			continue
		}
		known[s.Method] = true
		suggestions = append(suggestions, s)
		if len(suggestions) == SupplementCount {
			break
		}
	}
	if len(suggestions) == 0 {
		return nil, fmt.Errorf("supplementation proposed no usable methods")
	}
	return suggestions, nil
}

// ScoreSuggested rule-scores supplementation proposals with the same
// four-dimension scheme used for the catalog.
func ScoreSuggested(ctx context.Context, client llm.Client, userNeeds *types.UserProfile, dataFeatures *types.DataFeatureProfile, suggested []types.SuggestedMethod) ([]types.RuleScoringResult, error) {
	prompt := prompts.MustGet(promptFile, "supplement-rule-scoring")
	rendered := prompts.Render(prompt, map[string]any{
		"userNeeds":       userNeeds,
		"dataFeatures":    dataFeatures,
		"proposedMethods": suggested,
	})

	raw, err := client.Complete(ctx, rendered, scoringTemperature)
	if err != nil {
		return nil, err
	}

	var parsed scoredBatch
	if err := jsonrepair.Unmarshal(raw, &parsed); err != nil {
		return nil, err
	}
	for i := range parsed.Results {
		normalizeResult(&parsed.Results[i])
	}
	return parsed.Results, nil
}

// Merge folds supplementation scores into a rule-match outcome,
// re-sorting and re-deriving the shortlist. The average keeps its
// pre-supplementation value since it records why supplementation ran.
func Merge(outcome *types.RuleMatchOutcome, supplement []types.RuleScoringResult) *types.RuleMatchOutcome {
	combined := make([]types.RuleScoringResult, 0, len(outcome.Results)+len(supplement))
	combined = append(combined, outcome.Results...)
	combined = append(combined, supplement...)
	sortResults(combined)

	top := make([]string, 0, TopCandidateLimit)
	for _, r := range combined {
		if len(top) == TopCandidateLimit {
			break
		}
		top = append(top, r.MethodName)
	}

	return &types.RuleMatchOutcome{
		Results:         combined,
		TopCandidates:   top,
		AverageScore:    outcome.AverageScore,
		NeedsSupplement: outcome.NeedsSupplement,
		Batch:           outcome.Batch,
	}
}

// FallbackOutcome synthesizes deterministic scores from catalog order
// when every scoring path has failed, so the pipeline can still return
// a ranked answer.
func FallbackOutcome(methods []catalog.WeightMethod) *types.RuleMatchOutcome {
	results := make([]types.RuleScoringResult, 0, len(methods))
	for i, m := range methods {
		score := clamp(7.0 - 0.5*float64(i))
		results = append(results, types.RuleScoringResult{
			MethodName: m.Name,
			DimensionalScores: types.DimensionalScores{
				TaskDimensionMatch:        score,
				DataDimensionMatch:        score,
				UserDimensionMatch:        score,
				EnvironmentDimensionMatch: score,
			},
			TotalRuleScore:       score,
			MatchingExplanation:  "Default ranking applied because model-based scoring was unavailable.",
			RecommendationReason: "Ranked by catalog order; widely applicable method.",
		})
	}
	return buildOutcome(results)
}
