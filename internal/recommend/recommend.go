// Package recommend provides the high-level orchestration for the
// method recommendation pipeline: needs profiling, data
// characterization, rule-based matching, conditional supplementation,
// semantic analysis, personalization, and final weighted ranking.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/method-advisor/internal/batch"
	"github.com/jonathan/method-advisor/internal/catalog"
	"github.com/jonathan/method-advisor/internal/guidance"
	"github.com/jonathan/method-advisor/internal/llm"
	"github.com/jonathan/method-advisor/internal/matching"
	"github.com/jonathan/method-advisor/internal/profiling"
	"github.com/jonathan/method-advisor/internal/semantics"
	"github.com/jonathan/method-advisor/internal/types"
)

// Stage identifiers reported through progress callbacks
const (
	StageUserNeeds        = "userNeeds"
	StageDataFeatures     = "dataFeatures"
	StageRuleMatching     = "ruleMatching"
	StageLLMCheck         = "llmCheck"
	StageLLMRuleMatching  = "llmRuleMatching"
	StageLLMDetails       = "llmDetails"
	StageSemanticAnalysis = "semanticAnalysis"
	StagePersonalization  = "personalization"
	StageFinalResult      = "finalResult"
)

// Final score weighting between rule-based and semantic scoring
const (
	RuleWeight     = 0.6
	SemanticWeight = 0.4
)

// scoreEpsilon is the tolerance for treating final scores as tied
const scoreEpsilon = 1e-9

// ErrCancelled is returned when the caller cancels a run between phases
var ErrCancelled = errors.New("recommendation run cancelled")

// ErrEmptyCatalog is returned when no methods are available to rank.
// This is the one condition the pipeline refuses to degrade around.
var ErrEmptyCatalog = errors.New("method catalog is empty")

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
	RunID   string `json:"runId,omitempty"`
	Content any    `json:"content,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// Token allows a caller to cancel a run between phases without
// tearing down the context mid-call.
type Token struct {
	cancelled atomic.Bool
}

// Cancel marks the token; the run stops before its next phase
func (t *Token) Cancel() { t.cancelled.Store(true) }

// Cancelled reports whether Cancel has been called
func (t *Token) Cancelled() bool { return t.cancelled.Load() }

// Options holds the inputs for one recommendation run
type Options struct {
	Questionnaire   types.Questionnaire
	DataDescription string
	Catalog         *catalog.Catalog

	// Precomputed profiles skip the corresponding analysis stage
	UserNeeds    *types.UserProfile
	DataFeatures *types.DataFeatureProfile

	// Provider and credentials used to build clients when none are injected
	Provider   llm.Provider
	UserAPIKey string
	Static     llm.StaticCredentials

	// Clients overrides endpoint construction (used by the server layer
	// and tests); when set, Provider and credentials are ignored.
	Clients []llm.Client

	OnProgress ProgressCallback
	Cancel     *Token
	Logger     *logrus.Entry
}

func (o *Options) emit(stage, message, runID string, content any) {
	if o.OnProgress != nil {
		o.OnProgress(ProgressEvent{Stage: stage, Message: message, RunID: runID, Content: content})
	}
}

func (o *Options) checkCancelled() error {
	if o.Cancel != nil && o.Cancel.Cancelled() {
		return ErrCancelled
	}
	return nil
}

// Run executes the full recommendation pipeline. Stage-level failures
// degrade (mock profiles, fallback scores, generic guidance); only an
// empty catalog, cancellation, or the inability to build any client is
// fatal. A non-fatal catastrophic failure yields a fallback bundle
// built from catalog order.
func Run(ctx context.Context, opts Options) (*types.RecommendationBundle, error) {
	log := opts.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	if opts.Catalog == nil || opts.Catalog.Len() == 0 {
		return nil, ErrEmptyCatalog
	}

	clients := opts.Clients
	if len(clients) == 0 {
		built, err := buildClients(ctx, opts, log)
		if err != nil {
			return nil, err
		}
		clients = built
		defer func() {
			for _, c := range clients {
				_ = c.Close()
			}
		}()
	}

	runID := uuid.NewString()
	bundle, err := run(ctx, opts, clients, runID, log)
	if err != nil {
		if errors.Is(err, ErrCancelled) {
			return nil, err
		}
		log.WithError(err).Error("pipeline failed, returning fallback bundle")
		return FallbackBundle(opts.Catalog, runID, err), nil
	}
	return bundle, nil
}

// buildClients constructs one cached client per default endpoint.
// Endpoints whose credentials cannot be resolved are skipped; at least
// one client must come up.
func buildClients(ctx context.Context, opts Options, log *logrus.Entry) ([]llm.Client, error) {
	provider := opts.Provider
	if provider == "" {
		provider = llm.ProviderDeepSeek
	}
	if !llm.ValidProvider(provider) {
		return nil, &llm.ConfigurationError{Message: fmt.Sprintf("unknown provider %q", provider)}
	}

	var clients []llm.Client
	for _, endpoint := range llm.DefaultEndpoints(provider) {
		client, err := llm.NewClient(ctx, llm.ClientOptions{
			Endpoint: endpoint,
			UserKey:  opts.UserAPIKey,
			Static:   opts.Static,
		})
		if err != nil {
			log.WithError(err).WithField("endpoint", endpoint.ID).Warn("skipping endpoint")
			continue
		}
		cached, err := llm.NewCachedClient(client, 0)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		clients = append(clients, cached)
	}
	if len(clients) == 0 {
		return nil, &llm.ConfigurationError{Message: "no usable endpoints for provider " + string(provider)}
	}
	return clients, nil
}

func run(ctx context.Context, opts Options, clients []llm.Client, runID string, log *logrus.Entry) (*types.RecommendationBundle, error) {
	methods := opts.Catalog.Methods

	if err := opts.checkCancelled(); err != nil {
		return nil, err
	}

	// Phase 1+2: needs and data profiling run as parallel branches;
	// both degrade internally, so neither can fail the group.
	// Caller-supplied profiles skip the model calls entirely.
	userNeeds := opts.UserNeeds
	dataFeatures := opts.DataFeatures

	g, gCtx := errgroup.WithContext(ctx)
	if userNeeds == nil {
		g.Go(func() error {
			userNeeds = profiling.AnalyzeUserNeeds(gCtx, clients[0], opts.Questionnaire, log)
			return nil
		})
	}
	if dataFeatures == nil {
		g.Go(func() error {
			client := clients[len(clients)-1]
			dataFeatures = profiling.AnalyzeDataFeatures(gCtx, client, opts.Questionnaire, opts.DataDescription, log)
			return nil
		})
	}
	_ = g.Wait()

	opts.emit(StageUserNeeds, "Analyzed user needs", runID, userNeeds)
	opts.emit(StageDataFeatures, "Characterized data features", runID, dataFeatures)

	if err := opts.checkCancelled(); err != nil {
		return nil, err
	}

	// Phase 3: rule-based matching across endpoints
	degraded := false
	ruleOutcome, err := matching.ScoreCatalog(ctx, clients, userNeeds, dataFeatures, methods, log)
	if err != nil {
		log.WithError(err).Warn("rule matching unavailable, using fallback ranking")
		ruleOutcome = matching.FallbackOutcome(methods)
		degraded = true
	}
	opts.emit(StageRuleMatching, fmt.Sprintf("Scored %d methods, average %.2f", len(ruleOutcome.Results), ruleOutcome.AverageScore), runID, ruleOutcome)

	if err := opts.checkCancelled(); err != nil {
		return nil, err
	}

	// Phase 4: conditional supplementation
	var supplement *types.SupplementOutcome
	opts.emit(StageLLMCheck, supplementMessage(ruleOutcome), runID, map[string]any{
		"needsLLMSupplement": ruleOutcome.NeedsSupplement,
		"averageScore":       ruleOutcome.AverageScore,
	})
	if ruleOutcome.NeedsSupplement && !degraded {
		supplement = runSupplement(ctx, opts, clients, userNeeds, dataFeatures, ruleOutcome, runID, log)
		if supplement != nil {
			ruleOutcome = matching.Merge(ruleOutcome, supplement.RuleScores)
		}
	}

	if err := opts.checkCancelled(); err != nil {
		return nil, err
	}

	// Phase 5: generated reference entries for supplemented finalists
	details := runDetails(ctx, opts, clients, ruleOutcome, supplement, runID, log)

	if err := opts.checkCancelled(); err != nil {
		return nil, err
	}

	// Phase 6+7: semantic analysis and personalized guidance run as
	// parallel branches over the same finalists; both degrade internally.
	finalists := buildFinalists(opts.Catalog, ruleOutcome, details)

	var semanticResults []types.SemanticAnalysisResult
	var implementations []types.PersonalizedImplementation

	g, gCtx = errgroup.WithContext(ctx)
	g.Go(func() error {
		semanticResults = semantics.AnalyzeMethods(gCtx, clients, userNeeds, dataFeatures, finalists, log)
		return nil
	})
	g.Go(func() error {
		implementations = guidance.PersonalizeAll(gCtx, clients, userNeeds, dataFeatures, personalizeTargets(finalists), log)
		return nil
	})
	_ = g.Wait()

	opts.emit(StageSemanticAnalysis, fmt.Sprintf("Semantic analysis complete for %d methods", len(semanticResults)), runID, semanticResults)
	opts.emit(StagePersonalization, fmt.Sprintf("Generated guidance for %d methods", len(implementations)), runID, nil)

	if err := opts.checkCancelled(); err != nil {
		return nil, err
	}

	// Phase 8: final weighted ranking
	bundle := assembleBundle(runID, userNeeds, dataFeatures, ruleOutcome, supplement, semanticResults, implementations, finalists, details, degraded)
	opts.emit(StageFinalResult, "Recommendation complete", runID, bundle)
	return bundle, nil
}

func supplementMessage(outcome *types.RuleMatchOutcome) string {
	if outcome.NeedsSupplement {
		return fmt.Sprintf("Average score %.2f at or below threshold, proposing additional methods", outcome.AverageScore)
	}
	return fmt.Sprintf("Average score %.2f above threshold, catalog candidates suffice", outcome.AverageScore)
}

// runSupplement proposes and scores extra methods; any failure just
// skips supplementation.
func runSupplement(ctx context.Context, opts Options, clients []llm.Client, userNeeds *types.UserProfile, dataFeatures *types.DataFeatureProfile, outcome *types.RuleMatchOutcome, runID string, log *logrus.Entry) *types.SupplementOutcome {
	existing := make([]string, 0, len(outcome.Results))
	for _, r := range outcome.Results {
		existing = append(existing, r.MethodName)
	}
	bestScore := 0.0
	if len(outcome.Results) > 0 {
		bestScore = outcome.Results[0].TotalRuleScore
	}

	// Race the suggestion call across every endpoint; the proposal is
	// the same either way and the slowest vendor should not gate it.
	suggested, err := batch.First(ctx, len(clients), func(ctx context.Context, i int) ([]types.SuggestedMethod, error) {
		return matching.SuggestMethods(ctx, clients[i], userNeeds, dataFeatures, existing, bestScore)
	})
	if err != nil {
		log.WithError(err).Warn("supplementation failed, continuing with catalog candidates")
		return nil
	}

	scores, err := matching.ScoreSuggested(ctx, clients[0], userNeeds, dataFeatures, suggested)
	if err != nil {
		log.WithError(err).Warn("supplement scoring failed, continuing with catalog candidates")
		return nil
	}

	result := &types.SupplementOutcome{Recommendations: suggested, RuleScores: scores}
	opts.emit(StageLLMRuleMatching, fmt.Sprintf("Scored %d supplemented methods", len(scores)), runID, result)
	return result
}

// runDetails generates reference entries for shortlisted methods that
// came from supplementation and so have no catalog entry.
func runDetails(ctx context.Context, opts Options, clients []llm.Client, outcome *types.RuleMatchOutcome, supplement *types.SupplementOutcome, runID string, log *logrus.Entry) map[string]*types.MethodDetail {
	if supplement == nil {
		return nil
	}

	details := make(map[string]*types.MethodDetail)
	i := 0
	for _, name := range outcome.TopCandidates {
		if !supplement.Suggested(name) {
			continue
		}
		for _, s := range supplement.Recommendations {
			if s.Method != name {
				continue
			}
			client := clients[i%len(clients)]
			i++
			details[name] = guidance.GenerateDetail(ctx, client, s, log)
		}
	}
	if len(details) > 0 {
		opts.emit(StageLLMDetails, fmt.Sprintf("Generated reference entries for %d supplemented methods", len(details)), runID, details)
	}
	return details
}

// buildFinalists resolves each shortlisted name to its best available
// description plus its rule score.
func buildFinalists(cat *catalog.Catalog, outcome *types.RuleMatchOutcome, details map[string]*types.MethodDetail) []semantics.MethodInfo {
	finalists := make([]semantics.MethodInfo, 0, len(outcome.TopCandidates))
	for _, name := range outcome.TopCandidates {
		info := semantics.MethodInfo{Name: name}
		if entry := cat.Find(name); entry != nil {
			info.Catalog = entry
		} else if d, ok := details[name]; ok {
			info.Detail = d
		}
		for _, r := range outcome.Results {
			if r.MethodName == name {
				info.RuleScore = r.TotalRuleScore
				break
			}
		}
		finalists = append(finalists, info)
	}
	return finalists
}

func personalizeTargets(finalists []semantics.MethodInfo) []guidance.PersonalizeTarget {
	targets := make([]guidance.PersonalizeTarget, len(finalists))
	for i, f := range finalists {
		target := guidance.PersonalizeTarget{Name: f.Name}
		switch {
		case f.Catalog != nil:
			filtered := catalog.FilterForPrompt([]catalog.WeightMethod{*f.Catalog})
			target.Payload = filtered[0]
			target.Steps = f.Catalog.ImplementationSteps
		case f.Detail != nil:
			target.Payload = f.Detail
			target.Steps = f.Detail.ImplementationSteps
		default:
			target.Payload = map[string]string{"name": f.Name}
		}
		targets[i] = target
	}
	return targets
}

// assembleBundle computes the weighted final ranking and packages the
// complete run output.
func assembleBundle(runID string, userNeeds *types.UserProfile, dataFeatures *types.DataFeatureProfile, ruleOutcome *types.RuleMatchOutcome, supplement *types.SupplementOutcome, semanticResults []types.SemanticAnalysisResult, implementations []types.PersonalizedImplementation, finalists []semantics.MethodInfo, details map[string]*types.MethodDetail, degraded bool) *types.RecommendationBundle {
	semanticByName := make(map[string]*types.SemanticAnalysisResult, len(semanticResults))
	for i := range semanticResults {
		semanticByName[semanticResults[i].MethodName] = &semanticResults[i]
	}
	implByName := make(map[string]string, len(implementations))
	for _, impl := range implementations {
		implByName[impl.MethodName] = impl.Guidance
	}
	ruleByName := make(map[string]*types.RuleScoringResult, len(ruleOutcome.Results))
	for i := range ruleOutcome.Results {
		ruleByName[ruleOutcome.Results[i].MethodName] = &ruleOutcome.Results[i]
	}

	recommendations := make([]types.FinalRecommendation, 0, len(finalists))
	for _, f := range finalists {
		rec := types.FinalRecommendation{
			MethodName: f.Name,
			RuleScore:  f.RuleScore,
			Source:     types.SourceCatalog,
		}
		if supplement.Suggested(f.Name) {
			rec.Source = types.SourceLLM
		}
		if sem := semanticByName[f.Name]; sem != nil {
			rec.SemanticScore = sem.SemanticMatchScore
			rec.SemanticAnalysis = sem
		}
		if rule := ruleByName[f.Name]; rule != nil {
			rec.RuleAnalysis = rule
		}
		rec.Implementation = implByName[f.Name]
		if d, ok := details[f.Name]; ok {
			rec.GeneratedDetail = d
		}
		rec.FinalScore = RuleWeight*rec.RuleScore + SemanticWeight*rec.SemanticScore
		recommendations = append(recommendations, rec)
	}

	sort.SliceStable(recommendations, func(i, j int) bool {
		di := recommendations[i].FinalScore - recommendations[j].FinalScore
		if di > scoreEpsilon {
			return true
		}
		if di < -scoreEpsilon {
			return false
		}
		// tied final scores fall back to rule score, then name
		if recommendations[i].RuleScore != recommendations[j].RuleScore {
			return recommendations[i].RuleScore > recommendations[j].RuleScore
		}
		return recommendations[i].MethodName < recommendations[j].MethodName
	})

	status := "success"
	if degraded {
		status = "fallback"
	}

	bundle := &types.RecommendationBundle{
		RunID:           runID,
		UserNeeds:       userNeeds,
		DataFeatures:    dataFeatures,
		RuleMatching:    ruleOutcome,
		Supplement:      supplement,
		SemanticResults: semanticResults,
		Implementations: implementations,
		Recommendations: recommendations,
		Summary: types.ProcessingSummary{
			UsedLLMSupplement: supplement != nil,
			AverageRuleScore:  ruleOutcome.AverageScore,
			TotalCandidates:   len(ruleOutcome.Results),
			FinalMethodsCount: len(recommendations),
			CompletionStatus:  status,
			Batch:             ruleOutcome.Batch,
		},
	}
	if len(recommendations) > 0 {
		bundle.TopRecommendation = &bundle.Recommendations[0]
	}
	return bundle
}

// FallbackBundle builds a minimal ranked answer from catalog order
// when the pipeline fails outright.
func FallbackBundle(cat *catalog.Catalog, runID string, cause error) *types.RecommendationBundle {
	limit := matching.TopCandidateLimit
	if cat.Len() < limit {
		limit = cat.Len()
	}
	methods := cat.Methods[:limit]
	outcome := matching.FallbackOutcome(methods)

	recommendations := make([]types.FinalRecommendation, 0, limit)
	for _, r := range outcome.Results {
		rec := types.FinalRecommendation{
			MethodName:    r.MethodName,
			RuleScore:     r.TotalRuleScore,
			SemanticScore: r.TotalRuleScore,
			FinalScore:    r.TotalRuleScore,
			Source:        types.SourceCatalog,
		}
		recommendations = append(recommendations, rec)
	}

	bundle := &types.RecommendationBundle{
		RunID:           runID,
		RuleMatching:    outcome,
		Recommendations: recommendations,
		Summary: types.ProcessingSummary{
			AverageRuleScore:  outcome.AverageScore,
			TotalCandidates:   len(outcome.Results),
			FinalMethodsCount: len(recommendations),
			CompletionStatus:  "fallback",
			Error:             cause.Error(),
		},
	}
	if len(recommendations) > 0 {
		bundle.TopRecommendation = &bundle.Recommendations[0]
	}
	return bundle
}
