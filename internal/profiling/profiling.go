// Package profiling implements the first two pipeline stages: turning
// questionnaire answers into a structured user-needs profile and a
// data-feature profile. Both stages degrade to deterministic default
// profiles when the model call or response parsing fails, so the
// pipeline always has something to match against.
package profiling

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/jonathan/method-advisor/internal/jsonrepair"
	"github.com/jonathan/method-advisor/internal/llm"
	"github.com/jonathan/method-advisor/internal/prompts"
	"github.com/jonathan/method-advisor/internal/types"
)

const promptFile = "recommendation.json"

// profiling stages want near-deterministic output
const analysisTemperature = 0.2

// AnalyzeUserNeeds derives a structured needs profile from
// questionnaire answers. On any model or parse failure it returns a
// conservative default profile marked as mock.
func AnalyzeUserNeeds(ctx context.Context, client llm.Client, questionnaire types.Questionnaire, log *logrus.Entry) *types.UserProfile {
	prompt := prompts.MustGet(promptFile, "user-needs-analysis")
	rendered := prompts.Render(prompt, map[string]any{
		"questionnaire": map[string]any(questionnaire),
	})

	raw, err := client.Complete(ctx, rendered, analysisTemperature)
	if err != nil {
		log.WithError(err).Warn("user needs analysis call failed, using default profile")
		return DefaultUserProfile(questionnaire)
	}

	var profile types.UserProfile
	if err := jsonrepair.Unmarshal(raw, &profile); err != nil {
		log.WithError(err).Warn("user needs response unparseable, using default profile")
		return DefaultUserProfile(questionnaire)
	}

	fillNeedsDefaults(&profile, questionnaire)
	return &profile
}

// AnalyzeDataFeatures characterizes the user's data situation from an
// uploaded-data summary or from questionnaire expectations. On any
// model or parse failure it returns a default profile marked as mock.
func AnalyzeDataFeatures(ctx context.Context, client llm.Client, questionnaire types.Questionnaire, dataDescription string, log *logrus.Entry) *types.DataFeatureProfile {
	prompt := prompts.MustGet(promptFile, "data-feature-analysis")
	rendered := prompts.Render(prompt, map[string]any{
		"questionnaire":   map[string]any(questionnaire),
		"dataDescription": dataDescription,
	})

	raw, err := client.Complete(ctx, rendered, analysisTemperature)
	if err != nil {
		log.WithError(err).Warn("data feature analysis call failed, using default profile")
		return DefaultDataProfile(dataDescription)
	}

	var profile types.DataFeatureProfile
	if err := jsonrepair.Unmarshal(raw, &profile); err != nil {
		log.WithError(err).Warn("data feature response unparseable, using default profile")
		return DefaultDataProfile(dataDescription)
	}

	fillDataDefaults(&profile, dataDescription)
	return &profile
}

// DefaultUserProfile is the mock fallback: a midline profile that lets
// rule matching proceed without model input.
func DefaultUserProfile(questionnaire types.Questionnaire) *types.UserProfile {
	profile := &types.UserProfile{
		TaskDimension: types.TaskDimension{
			Domain:           "general",
			Purpose:          "determine indicator weights for a comprehensive evaluation",
			EvaluationNature: "descriptive",
			Complexity:       "medium",
		},
		DataDimension: types.DataDimension{
			IndicatorCount: "moderate",
			VariableType:   "quantitative",
		},
		UserDimension: types.UserDimension{
			MethodPreference: "none",
			KnowledgeLevel:   "intermediate",
			RiskTolerance:    "medium",
		},
		EnvironmentDimension: types.EnvironmentDimension{
			ExpertiseLevel: "limited",
			TimeConstraint: "moderate",
		},
		Requirements: &types.RequirementScores{
			Objectivity:      6,
			Interpretability: 7,
			Efficiency:       6,
			Stability:        6,
		},
		Constraints: []string{"limited expert availability"},
		Priorities:  []string{"interpretability", "ease of use"},
		Mock:        true,
	}
	applyQuestionnaireHints(profile, questionnaire)
	return profile
}

// applyQuestionnaireHints copies recognizable raw answers into the
// default profile so even the mock reflects what the user said.
func applyQuestionnaireHints(profile *types.UserProfile, questionnaire types.Questionnaire) {
	if v, ok := questionnaire["domain"].(string); ok && v != "" {
		profile.TaskDimension.Domain = v
	}
	if v, ok := questionnaire["purpose"].(string); ok && v != "" {
		profile.TaskDimension.Purpose = v
	}
	if v, ok := questionnaire["indicatorCount"].(string); ok && v != "" {
		profile.DataDimension.IndicatorCount = v
	}
	if v, ok := questionnaire["methodPreference"].(string); ok && v != "" {
		profile.UserDimension.MethodPreference = v
	}
	if v, ok := questionnaire["knowledgeLevel"].(string); ok && v != "" {
		profile.UserDimension.KnowledgeLevel = v
	}
	if v, ok := questionnaire["timeConstraint"].(string); ok && v != "" {
		profile.EnvironmentDimension.TimeConstraint = v
	}
}

// DefaultDataProfile is the mock fallback for data characterization
func DefaultDataProfile(dataDescription string) *types.DataFeatureProfile {
	source := "questionnaire"
	if dataDescription != "" {
		source = "uploaded"
	}
	return &types.DataFeatureProfile{
		Structure: types.DataStructureProfile{
			VariableTypes: "quantitative",
		},
		Quality: types.DataQualityProfile{
			Completeness: 5,
			Consistency:  5,
			Reliability:  5,
		},
		Distribution: types.DistributionProfile{
			Skewness:    "unknown",
			Correlation: "unknown",
			Variability: "unknown",
		},
		MethodSuitability: types.SuitabilityScores{
			Objective:  5,
			Subjective: 5,
			Hybrid:     5,
		},
		Source: source,
		Mock:   true,
	}
}

// fillNeedsDefaults backfills fields the model left empty
func fillNeedsDefaults(profile *types.UserProfile, questionnaire types.Questionnaire) {
	defaults := DefaultUserProfile(questionnaire)
	if profile.TaskDimension.Domain == "" {
		profile.TaskDimension.Domain = defaults.TaskDimension.Domain
	}
	if profile.TaskDimension.Purpose == "" {
		profile.TaskDimension.Purpose = defaults.TaskDimension.Purpose
	}
	if profile.UserDimension.KnowledgeLevel == "" {
		profile.UserDimension.KnowledgeLevel = defaults.UserDimension.KnowledgeLevel
	}
	if profile.Requirements == nil {
		profile.Requirements = defaults.Requirements
	}
}

// fillDataDefaults backfills fields the model left empty
func fillDataDefaults(profile *types.DataFeatureProfile, dataDescription string) {
	defaults := DefaultDataProfile(dataDescription)
	if profile.Source == "" {
		profile.Source = defaults.Source
	}
	if profile.Structure.VariableTypes == "" {
		profile.Structure.VariableTypes = defaults.Structure.VariableTypes
	}
	zero := types.SuitabilityScores{}
	if profile.MethodSuitability == zero {
		profile.MethodSuitability = defaults.MethodSuitability
	}
}
