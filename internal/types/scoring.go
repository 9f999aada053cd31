// Package types provides type definitions for structured data used throughout the method-advisor system.
//
//nolint:revive // types is a standard Go package name pattern
package types

// MethodSource identifies where a recommended method came from
type MethodSource string

// Method provenance values
const (
	// SourceCatalog marks a method from the built-in catalog
	SourceCatalog MethodSource = "catalog"
	// SourceLLM marks a method proposed by the supplementation stage
	SourceLLM MethodSource = "llm"
)

// DimensionalScores holds the per-dimension rule-match sub-scores (0-10)
type DimensionalScores struct {
	TaskDimensionMatch        float64 `json:"taskDimensionMatch"`
	DataDimensionMatch        float64 `json:"dataDimensionMatch"`
	UserDimensionMatch        float64 `json:"userDimensionMatch"`
	EnvironmentDimensionMatch float64 `json:"environmentDimensionMatch"`
}

// RuleScoringResult is the rule-matching stage's verdict for one method
type RuleScoringResult struct {
	MethodName           string            `json:"methodName"`
	DimensionalScores    DimensionalScores `json:"dimensionalScores"`
	TotalRuleScore       float64           `json:"totalRuleScore"`
	MatchingExplanation  string            `json:"matchingExplanation,omitempty"`
	RecommendationReason string            `json:"recommendationReason,omitempty"`
}

// RuleMatchOutcome aggregates rule scoring across the catalog. TopCandidates
// never exceeds three names.
type RuleMatchOutcome struct {
	Results         []RuleScoringResult `json:"ruleScoringResults"`
	TopCandidates   []string            `json:"topCandidates"`
	AverageScore    float64             `json:"averageScore"`
	NeedsSupplement bool                `json:"needsLLMSupplement"`
	Batch           *BatchDetails       `json:"batchProcessingDetails,omitempty"`
}

// BatchDetails records how a batched stage was dispatched, for diagnostics
type BatchDetails struct {
	BatchCount   int     `json:"batchCount"`
	TotalMethods int     `json:"totalMethods"`
	Duration     float64 `json:"processingTime"` // seconds
	FailedCount  int     `json:"failedCount,omitempty"`
}

// SuggestedMethod is a method proposed by the supplementation stage that is
// not present in the catalog
type SuggestedMethod struct {
	Method         string   `json:"method"`
	Category       string   `json:"category,omitempty"`
	Principle      string   `json:"principle,omitempty"`
	SuitConditions []string `json:"suitConditions,omitempty"`
	Advantages     []string `json:"advantages,omitempty"`
	Limitations    []string `json:"limitations,omitempty"`
	Steps          []string `json:"implementationSteps,omitempty"`
}

// SupplementOutcome bundles the supplementation suggestions with their
// follow-up rule scores
type SupplementOutcome struct {
	Recommendations []SuggestedMethod   `json:"recommendations"`
	RuleScores      []RuleScoringResult `json:"ruleScoringResults"`
}

// Suggested reports whether name is one of the supplementation suggestions
func (o *SupplementOutcome) Suggested(name string) bool {
	if o == nil {
		return false
	}
	for _, r := range o.Recommendations {
		if r.Method == name {
			return true
		}
	}
	return false
}

// SemanticAnalysisResult is the free-text-reasoning verdict for one
// shortlisted method
type SemanticAnalysisResult struct {
	MethodName           string   `json:"methodName"`
	SemanticMatchScore   float64  `json:"semanticMatchScore"`
	MatchExplanation     string   `json:"matchExplanation,omitempty"`
	Advantages           []string `json:"advantages,omitempty"`
	Risks                []string `json:"risks,omitempty"`
	ImplementationAdvice []string `json:"implementationAdvice,omitempty"`
	SuitabilityLevel     string   `json:"suitabilityLevel,omitempty"` // high, medium, low
}

// MethodDetail is the generated extended description for a method that has
// no catalog entry
type MethodDetail struct {
	MethodName          string   `json:"methodName"`
	Detail              string   `json:"detail"`
	Type                string   `json:"type,omitempty"`
	SuitConditions      []string `json:"suitConditions,omitempty"`
	Advantages          []string `json:"advantages,omitempty"`
	Limitations         []string `json:"limitations,omitempty"`
	ImplementationSteps []string `json:"implementationSteps,omitempty"`
	MathematicalModel   string   `json:"mathematicalModel,omitempty"`
	CalculationExample  string   `json:"calculationExample,omitempty"`
}

// PersonalizedImplementation is the per-method implementation guidance text
type PersonalizedImplementation struct {
	MethodName string `json:"methodName"`
	Guidance   string `json:"personalizedImplementation"`
}

// FinalRecommendation combines rule and semantic scoring for one
// shortlisted method
type FinalRecommendation struct {
	MethodName       string                  `json:"methodName"`
	RuleScore        float64                 `json:"ruleScore"`
	SemanticScore    float64                 `json:"semanticScore"`
	FinalScore       float64                 `json:"finalScore"`
	Source           MethodSource            `json:"methodSource"`
	RuleAnalysis     *RuleScoringResult      `json:"ruleAnalysis,omitempty"`
	SemanticAnalysis *SemanticAnalysisResult `json:"semanticAnalysis,omitempty"`
	Implementation   string                  `json:"personalizedImplementation,omitempty"`
	GeneratedDetail  *MethodDetail           `json:"llmMethodDetail,omitempty"`
}

// ProcessingSummary describes how the pipeline run went
type ProcessingSummary struct {
	UsedLLMSupplement bool          `json:"usedLLMSupplement"`
	AverageRuleScore  float64       `json:"averageRuleScore"`
	TotalCandidates   int           `json:"totalCandidates"`
	FinalMethodsCount int           `json:"finalMethodsCount"`
	CompletionStatus  string        `json:"completionStatus"` // success or fallback
	Error             string        `json:"error,omitempty"`
	Batch             *BatchDetails `json:"batchProcessingDetails,omitempty"`
}

// RecommendationBundle is the complete result handed back to callers
type RecommendationBundle struct {
	RunID             string                       `json:"runId,omitempty"`
	UserNeeds         *UserProfile                 `json:"userNeeds,omitempty"`
	DataFeatures      *DataFeatureProfile          `json:"dataAnalysis,omitempty"`
	RuleMatching      *RuleMatchOutcome            `json:"ruleMatchingResults,omitempty"`
	Supplement        *SupplementOutcome           `json:"llmSupplementResults,omitempty"`
	SemanticResults   []SemanticAnalysisResult     `json:"semanticAnalysisResults,omitempty"`
	Implementations   []PersonalizedImplementation `json:"personalizedImplementations,omitempty"`
	Recommendations   []FinalRecommendation        `json:"finalRecommendations"`
	TopRecommendation *FinalRecommendation         `json:"topRecommendation,omitempty"`
	Summary           ProcessingSummary            `json:"processingSummary"`
}
