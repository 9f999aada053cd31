package guidance

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/method-advisor/internal/llm"
	"github.com/jonathan/method-advisor/internal/types"
)

type cannedClient struct {
	response string
	err      error
}

func (c *cannedClient) Complete(_ context.Context, _ string, _ float64) (string, error) {
	return c.response, c.err
}

func (c *cannedClient) Endpoint() string { return "canned" }
func (c *cannedClient) Close() error     { return nil }

func testLog() *logrus.Entry {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(logger)
}

func testProfiles() (*types.UserProfile, *types.DataFeatureProfile) {
	return &types.UserProfile{TaskDimension: types.TaskDimension{Domain: "general"}},
		&types.DataFeatureProfile{Source: "questionnaire"}
}

func TestGenerateDetail(t *testing.T) {
	client := &cannedClient{response: `{
		"methodName": "Best-Worst Method",
		"detail": "Compares criteria against the best and worst anchors.",
		"type": "subjective",
		"implementationSteps": ["identify best and worst criterion", "compare", "solve the minmax problem"]
	}`}

	detail := GenerateDetail(context.Background(), client, types.SuggestedMethod{
		Method:    "Best-Worst Method",
		Category:  "subjective",
		Principle: "anchored pairwise comparison",
	}, testLog())
	require.NotNil(t, detail)

	assert.Equal(t, "Best-Worst Method", detail.MethodName)
	assert.Contains(t, detail.Detail, "anchors")
	assert.Len(t, detail.ImplementationSteps, 3)
}

func TestGenerateDetail_FallsBackToSuggestionFields(t *testing.T) {
	client := &cannedClient{err: errors.New("down")}

	detail := GenerateDetail(context.Background(), client, types.SuggestedMethod{
		Method:     "Mystery Method",
		Category:   "objective",
		Principle:  "some principle",
		Advantages: []string{"a1"},
		Steps:      []string{"s1", "s2"},
	}, testLog())
	require.NotNil(t, detail)

	assert.Equal(t, "Mystery Method", detail.MethodName)
	assert.Equal(t, "some principle", detail.Detail)
	assert.Equal(t, "objective", detail.Type)
	assert.Equal(t, []string{"s1", "s2"}, detail.ImplementationSteps)
}

func TestPersonalize_StructuredPhasesFlattened(t *testing.T) {
	client := &cannedClient{response: `{
		"methodName": "AHP",
		"personalizedImplementation": {
			"preparationPhase": ["recruit 5 experts", "define the hierarchy"],
			"executionPhase": ["collect pairwise judgments"],
			"validationPhase": ["check CR < 0.1"],
			"riskMitigation": ["re-run inconsistent matrices"],
			"toolRecommendations": ["spreadsheet template"]
		}
	}`}
	needs, data := testProfiles()

	result, err := Personalize(context.Background(), client, needs, data, map[string]string{"name": "AHP"}, "AHP")
	require.NoError(t, err)

	assert.Equal(t, "AHP", result.MethodName)
	assert.Contains(t, result.Guidance, "Preparation:")
	assert.Contains(t, result.Guidance, "- recruit 5 experts")
	assert.Contains(t, result.Guidance, "Validation:")
	assert.Contains(t, result.Guidance, "Recommended tools:")
}

func TestPersonalize_PlainStringGuidance(t *testing.T) {
	client := &cannedClient{response: `{"methodName": "AHP", "personalizedImplementation": "Just follow the standard AHP workflow with your panel."}`}
	needs, data := testProfiles()

	result, err := Personalize(context.Background(), client, needs, data, nil, "AHP")
	require.NoError(t, err)
	assert.Equal(t, "Just follow the standard AHP workflow with your panel.", result.Guidance)
}

func TestPersonalize_EmptyGuidanceIsError(t *testing.T) {
	client := &cannedClient{response: `{"methodName": "AHP"}`}
	needs, data := testProfiles()

	_, err := Personalize(context.Background(), client, needs, data, nil, "AHP")
	require.Error(t, err)
}

func TestPersonalizeAll_FallbackUsesSteps(t *testing.T) {
	broken := &cannedClient{err: errors.New("down")}
	needs, data := testProfiles()

	targets := []PersonalizeTarget{
		{Name: "A", Steps: []string{"step one", "step two"}},
		{Name: "B"},
	}
	results := PersonalizeAll(context.Background(), []llm.Client{broken}, needs, data, targets, testLog())
	require.Len(t, results, 2)

	assert.Equal(t, "A", results[0].MethodName)
	assert.Contains(t, results[0].Guidance, "step one")
	assert.Contains(t, results[0].Guidance, "step two")

	assert.Equal(t, "B", results[1].MethodName)
	assert.Contains(t, results[1].Guidance, "reference entry")
}
