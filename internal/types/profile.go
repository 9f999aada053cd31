// Package types provides type definitions for structured data used throughout the method-advisor system.
//
//nolint:revive // types is a standard Go package name pattern
package types

// UserProfile represents the structured evaluation requirements extracted
// from the questionnaire. Field names follow the JSON wire contract the
// analysis prompts instruct the model to produce.
type UserProfile struct {
	TaskDimension        TaskDimension        `json:"taskDimension"`
	DataDimension        DataDimension        `json:"dataDimension"`
	UserDimension        UserDimension        `json:"userDimension"`
	EnvironmentDimension EnvironmentDimension `json:"environmentDimension"`
	Requirements         *RequirementScores   `json:"requirements,omitempty"`
	Constraints          []string             `json:"constraints,omitempty"`
	Priorities           []string             `json:"priorities,omitempty"`
	// Mock is true when the profile was synthesized locally because the
	// model response could not be used.
	Mock bool `json:"_isMockResponse,omitempty"`
}

// TaskDimension describes what is being evaluated and why
type TaskDimension struct {
	Domain           string `json:"domain"`
	Purpose          string `json:"purpose"`
	EvaluationNature string `json:"evaluationNature,omitempty"` // descriptive, predictive, or optimizing
	Complexity       string `json:"complexity,omitempty"`       // low, medium, high
	ApplicationScope string `json:"applicationScope,omitempty"`
}

// DataDimension describes the indicator data the user expects to work with
type DataDimension struct {
	IndicatorCount    string   `json:"indicatorCount,omitempty"` // few, moderate, many
	VariableType      string   `json:"variableType,omitempty"`   // quantitative, qualitative, mixed
	DataStructure     string   `json:"dataStructure,omitempty"`
	DataQualityIssues []string `json:"dataQualityIssues,omitempty"`
}

// UserDimension captures the user's own preferences and capabilities
type UserDimension struct {
	Precision             string   `json:"precision,omitempty"`
	Structure             string   `json:"structure,omitempty"`
	Relation              string   `json:"relation,omitempty"`
	MethodPreference      string   `json:"methodPreference,omitempty"` // subjective, objective, combination, none
	KnowledgeLevel        string   `json:"knowledgeLevel,omitempty"`
	RiskTolerance         string   `json:"riskTolerance,omitempty"`
	SpecialRequirements   []string `json:"specialRequirements,omitempty"`
	SupplementaryInsights []string `json:"supplementaryInsights,omitempty"`
}

// EnvironmentDimension captures external constraints on the evaluation exercise
type EnvironmentDimension struct {
	ExpertiseLevel         string   `json:"expertiseLevel,omitempty"` // ample, limited, none
	TimeConstraint         string   `json:"timeConstraint,omitempty"`
	ComputingResource      string   `json:"computingResource,omitempty"`
	EnvironmentConstraints []string `json:"environmentConstraints,omitempty"`
}

// RequirementScores holds the 1-10 requirement intensities inferred by the model
type RequirementScores struct {
	Objectivity      float64 `json:"objectivity,omitempty"`
	Interpretability float64 `json:"interpretability,omitempty"`
	Efficiency       float64 `json:"efficiency,omitempty"`
	Stability        float64 `json:"stability,omitempty"`
}

// DataFeatureProfile describes the evaluation dataset, either measured from
// uploaded data or declared through questionnaire expectations. Exactly one
// source is active per pipeline run.
type DataFeatureProfile struct {
	Structure         DataStructureProfile `json:"dataStructure"`
	Quality           DataQualityProfile   `json:"dataQuality"`
	Distribution      DistributionProfile  `json:"dataDistribution"`
	MethodSuitability SuitabilityScores    `json:"methodSuitability"`
	// Source is "uploaded" when derived from real data, "questionnaire"
	// when derived from declared expectations.
	Source string `json:"source,omitempty"`
	Mock   bool   `json:"_isMockResponse,omitempty"`
}

// DataStructureProfile describes the shape of the indicator data
type DataStructureProfile struct {
	IndicatorCount  int    `json:"indicatorCount,omitempty"`
	SampleSize      int    `json:"sampleSize,omitempty"`
	HierarchyLevels int    `json:"hierarchyLevels,omitempty"`
	VariableTypes   string `json:"variableTypes,omitempty"`
}

// DataQualityProfile holds 1-10 quality scores
type DataQualityProfile struct {
	Completeness float64 `json:"completeness,omitempty"`
	Consistency  float64 `json:"consistency,omitempty"`
	Reliability  float64 `json:"reliability,omitempty"`
}

// DistributionProfile describes distributional characteristics relevant to
// objective weighting methods
type DistributionProfile struct {
	Skewness    string `json:"skewness,omitempty"`
	Correlation string `json:"correlation,omitempty"`
	Variability string `json:"variability,omitempty"`
}

// SuitabilityScores rates how well each method family fits the data (1-10)
type SuitabilityScores struct {
	Objective  float64 `json:"objective,omitempty"`
	Subjective float64 `json:"subjective,omitempty"`
	Hybrid     float64 `json:"hybrid,omitempty"`
}

// Questionnaire holds the raw wizard answers. It is intentionally loose:
// the wizard UI owns validation and the needs-analysis prompt consumes the
// answers as free-form JSON.
type Questionnaire map[string]any
