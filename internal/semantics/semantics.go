// Package semantics implements the semantic analysis stage: a
// free-text-reasoning assessment of how well each shortlisted method
// fits the user's needs, beyond what dimensional rule scores capture.
package semantics

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/jonathan/method-advisor/internal/batch"
	"github.com/jonathan/method-advisor/internal/catalog"
	"github.com/jonathan/method-advisor/internal/jsonrepair"
	"github.com/jonathan/method-advisor/internal/llm"
	"github.com/jonathan/method-advisor/internal/prompts"
	"github.com/jonathan/method-advisor/internal/types"
)

const (
	promptFile          = "recommendation.json"
	analysisTemperature = 0.4
)

// defaultScore stands in when a method's analysis fails; midline so a
// failed analysis neither promotes nor buries the method.
const defaultScore = 6.0

// MethodInfo carries whatever description is available for a
// shortlisted method: the catalog entry for catalog methods, or the
// generated detail for supplemented ones.
type MethodInfo struct {
	Name      string
	Catalog   *catalog.WeightMethod
	Detail    *types.MethodDetail
	RuleScore float64
}

// promptPayload picks the richest available description
func (m MethodInfo) promptPayload() any {
	switch {
	case m.Catalog != nil:
		filtered := catalog.FilterForPrompt([]catalog.WeightMethod{*m.Catalog})
		return filtered[0]
	case m.Detail != nil:
		return m.Detail
	default:
		return map[string]string{"name": m.Name}
	}
}

// AnalyzeMethods runs semantic analysis for every method concurrently,
// assigning clients round-robin so shortlist analysis spreads across
// endpoints. A method whose analysis fails gets a neutral default
// verdict rather than sinking the pipeline.
func AnalyzeMethods(ctx context.Context, clients []llm.Client, userNeeds *types.UserProfile, dataFeatures *types.DataFeatureProfile, methods []MethodInfo, log *logrus.Entry) []types.SemanticAnalysisResult {
	if len(methods) == 0 || len(clients) == 0 {
		return nil
	}

	settled := batch.SettleAll(ctx, len(methods), func(ctx context.Context, i int) (types.SemanticAnalysisResult, error) {
		client := clients[i%len(clients)]
		return AnalyzeOne(ctx, client, userNeeds, dataFeatures, methods[i])
	})

	results := make([]types.SemanticAnalysisResult, len(methods))
	for _, r := range settled {
		if r.Err != nil {
			log.WithError(r.Err).WithField("method", methods[r.Index].Name).Warn("semantic analysis failed, using default verdict")
			results[r.Index] = defaultResult(methods[r.Index])
			continue
		}
		results[r.Index] = r.Value
	}
	return results
}

// AnalyzeOne performs semantic analysis for a single method
func AnalyzeOne(ctx context.Context, client llm.Client, userNeeds *types.UserProfile, dataFeatures *types.DataFeatureProfile, method MethodInfo) (types.SemanticAnalysisResult, error) {
	prompt := prompts.MustGet(promptFile, "semantic-analysis")
	rendered := prompts.Render(prompt, map[string]any{
		"userNeeds":    userNeeds,
		"dataFeatures": dataFeatures,
		"method":       method.promptPayload(),
	})

	raw, err := client.Complete(ctx, rendered, analysisTemperature)
	if err != nil {
		return types.SemanticAnalysisResult{}, err
	}

	var result types.SemanticAnalysisResult
	if err := jsonrepair.Unmarshal(raw, &result); err != nil {
		return types.SemanticAnalysisResult{}, err
	}
	if result.SemanticMatchScore == 0 && result.MatchExplanation == "" {
		return types.SemanticAnalysisResult{}, fmt.Errorf("semantic analysis response carried no verdict for %s", method.Name)
	}

	// the model sometimes renames methods; the pipeline keys on ours
	result.MethodName = method.Name
	result.SemanticMatchScore = clamp(result.SemanticMatchScore)
	if result.SuitabilityLevel == "" {
		result.SuitabilityLevel = suitabilityLevel(result.SemanticMatchScore)
	}
	return result, nil
}

func defaultResult(method MethodInfo) types.SemanticAnalysisResult {
	score := defaultScore
	if method.RuleScore > 0 {
		// lean on the rule score when the semantic pass is unavailable
		score = clamp(method.RuleScore)
	}
	return types.SemanticAnalysisResult{
		MethodName:         method.Name,
		SemanticMatchScore: score,
		MatchExplanation:   "Semantic analysis was unavailable for this method; the verdict reflects rule-based scoring only.",
		SuitabilityLevel:   suitabilityLevel(score),
	}
}

func suitabilityLevel(score float64) string {
	switch {
	case score >= 8:
		return "high"
	case score >= 6:
		return "medium"
	default:
		return "low"
	}
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
