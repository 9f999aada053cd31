package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_ValidPrompt(t *testing.T) {
	ClearCache()

	prompt, err := Get("recommendation.json", "rule-based-matching")
	require.NoError(t, err)
	assert.NotEmpty(t, prompt)
	assert.Contains(t, prompt, "ruleScoringResults")
}

func TestGet_InvalidFile(t *testing.T) {
	ClearCache()

	_, err := Get("nonexistent.json", "some-key")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read prompt file")
}

func TestGet_InvalidKey(t *testing.T) {
	ClearCache()

	_, err := Get("recommendation.json", "nonexistent-key")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestMustGet_Panics(t *testing.T) {
	ClearCache()

	assert.Panics(t, func() {
		MustGet("recommendation.json", "nonexistent-key")
	})
}

func TestAllStagePromptsPresent(t *testing.T) {
	ClearCache()

	required := []string{
		"user-needs-analysis",
		"data-feature-analysis",
		"rule-based-matching",
		"method-supplement",
		"supplement-rule-scoring",
		"semantic-analysis",
		"method-detail",
		"personalized-implementation",
	}

	keys, err := List("recommendation.json")
	require.NoError(t, err)
	for _, key := range required {
		assert.Contains(t, keys, key)
	}
}

func TestRender(t *testing.T) {
	tests := []struct {
		name     string
		template string
		vars     map[string]any
		want     string
	}{
		{
			name:     "scalar string",
			template: "Method name: {{methodName}}",
			vars:     map[string]any{"methodName": "AHP"},
			want:     "Method name: AHP",
		},
		{
			name:     "numeric value",
			template: "Best score: {{bestScore}} out of 10.",
			vars:     map[string]any{"bestScore": 7.5},
			want:     "Best score: 7.5 out of 10.",
		},
		{
			name:     "dotted path into nested map",
			template: "Domain: {{profile.taskDimension.domain}}",
			vars: map[string]any{
				"profile": map[string]any{
					"taskDimension": map[string]any{"domain": "healthcare"},
				},
			},
			want: "Domain: healthcare",
		},
		{
			name:     "missing variable renders empty",
			template: "before {{missing}} after",
			vars:     map[string]any{},
			want:     "before  after",
		},
		{
			name:     "missing nested path renders empty",
			template: "x={{a.b.c}}",
			vars:     map[string]any{"a": map[string]any{"b": "scalar"}},
			want:     "x=",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.template, tt.vars))
		})
	}
}

func TestRender_StructuredValueSerializesToJSON(t *testing.T) {
	type profile struct {
		Domain string `json:"domain"`
		Scale  string `json:"scale"`
	}

	out := Render("Profile:\n{{profile}}", map[string]any{
		"profile": profile{Domain: "finance", Scale: "large"},
	})

	assert.Contains(t, out, `"domain": "finance"`)
	assert.Contains(t, out, `"scale": "large"`)
}

func TestRender_StructFieldAccess(t *testing.T) {
	type dims struct {
		TaskType string `json:"taskType"`
	}
	type profile struct {
		Task dims `json:"taskDimension"`
	}

	out := Render("task={{p.taskDimension.taskType}}", map[string]any{
		"p": profile{Task: dims{TaskType: "evaluation"}},
	})
	assert.Equal(t, "task=evaluation", out)
}

func TestRender_NoTemplateSyntaxLeaks(t *testing.T) {
	prompt, err := Get("recommendation.json", "semantic-analysis")
	require.NoError(t, err)

	out := Render(prompt, map[string]any{
		"userNeeds":    map[string]any{"a": 1},
		"dataFeatures": map[string]any{"b": 2},
		"method":       map[string]any{"name": "AHP"},
	})
	assert.False(t, strings.Contains(out, "{{"), "rendered prompt still contains placeholder syntax")
}
