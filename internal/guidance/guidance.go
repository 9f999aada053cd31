// Package guidance implements the detail-generation and
// personalization stages: reference entries for methods that have no
// catalog entry, and per-user implementation guidance for every
// finalist method.
package guidance

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/jonathan/method-advisor/internal/batch"
	"github.com/jonathan/method-advisor/internal/jsonrepair"
	"github.com/jonathan/method-advisor/internal/llm"
	"github.com/jonathan/method-advisor/internal/prompts"
	"github.com/jonathan/method-advisor/internal/types"
)

const (
	promptFile          = "recommendation.json"
	guidanceTemperature = 0.4
)

// GenerateDetail writes a reference entry for a supplemented method.
// On failure the suggestion's own fields become the entry, so finalists
// from supplementation always carry a description.
func GenerateDetail(ctx context.Context, client llm.Client, suggested types.SuggestedMethod, log *logrus.Entry) *types.MethodDetail {
	prompt := prompts.MustGet(promptFile, "method-detail")
	rendered := prompts.Render(prompt, map[string]any{
		"methodName": suggested.Method,
		"category":   suggested.Category,
		"principle":  suggested.Principle,
	})

	raw, err := client.Complete(ctx, rendered, guidanceTemperature)
	if err != nil {
		log.WithError(err).WithField("method", suggested.Method).Warn("method detail generation failed, using suggestion fields")
		return detailFromSuggestion(suggested)
	}

	var detail types.MethodDetail
	if err := jsonrepair.Unmarshal(raw, &detail); err != nil || detail.Detail == "" {
		log.WithField("method", suggested.Method).Warn("method detail response unusable, using suggestion fields")
		return detailFromSuggestion(suggested)
	}

	detail.MethodName = suggested.Method
	if detail.Type == "" {
		detail.Type = suggested.Category
	}
	return &detail
}

func detailFromSuggestion(s types.SuggestedMethod) *types.MethodDetail {
	detail := s.Principle
	if detail == "" {
		detail = "Proposed by model-based supplementation; no extended description is available."
	}
	return &types.MethodDetail{
		MethodName:          s.Method,
		Detail:              detail,
		Type:                s.Category,
		SuitConditions:      s.SuitConditions,
		Advantages:          s.Advantages,
		Limitations:         s.Limitations,
		ImplementationSteps: s.Steps,
	}
}

// guidanceWire is the structured response shape for personalization
type guidanceWire struct {
	MethodName string          `json:"methodName"`
	Guidance   json.RawMessage `json:"personalizedImplementation"`
}

// guidancePhases is the structured form of the guidance payload
type guidancePhases struct {
	Preparation []string `json:"preparationPhase"`
	Execution   []string `json:"executionPhase"`
	Validation  []string `json:"validationPhase"`
	Risks       []string `json:"riskMitigation"`
	Tools       []string `json:"toolRecommendations"`
}

// Personalize generates implementation guidance for one method,
// tailored to the user's profiles. Structured phase responses are
// flattened into readable text.
func Personalize(ctx context.Context, client llm.Client, userNeeds *types.UserProfile, dataFeatures *types.DataFeatureProfile, method any, name string) (types.PersonalizedImplementation, error) {
	prompt := prompts.MustGet(promptFile, "personalized-implementation")
	rendered := prompts.Render(prompt, map[string]any{
		"userNeeds":    userNeeds,
		"dataFeatures": dataFeatures,
		"method":       method,
	})

	raw, err := client.Complete(ctx, rendered, guidanceTemperature)
	if err != nil {
		return types.PersonalizedImplementation{}, err
	}

	var wire guidanceWire
	if err := jsonrepair.Unmarshal(raw, &wire); err != nil {
		return types.PersonalizedImplementation{}, err
	}

	text := flattenGuidance(wire.Guidance)
	if text == "" {
		return types.PersonalizedImplementation{}, &jsonrepair.RecoveryError{Raw: raw}
	}
	return types.PersonalizedImplementation{MethodName: name, Guidance: text}, nil
}

// flattenGuidance renders the guidance payload as text. The payload is
// either a plain string or the structured five-phase object.
func flattenGuidance(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil {
		return strings.TrimSpace(plain)
	}

	var phases guidancePhases
	if err := json.Unmarshal(raw, &phases); err != nil {
		return ""
	}

	var sb strings.Builder
	writeSection(&sb, "Preparation", phases.Preparation)
	writeSection(&sb, "Execution", phases.Execution)
	writeSection(&sb, "Validation", phases.Validation)
	writeSection(&sb, "Risk mitigation", phases.Risks)
	writeSection(&sb, "Recommended tools", phases.Tools)
	return strings.TrimSpace(sb.String())
}

func writeSection(sb *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString(heading)
	sb.WriteString(":\n")
	for _, item := range items {
		sb.WriteString("- ")
		sb.WriteString(item)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
}

// PersonalizeAll generates guidance for every finalist concurrently
// with round-robin client assignment. Failures fall back to generic
// guidance assembled from the method's own implementation steps.
func PersonalizeAll(ctx context.Context, clients []llm.Client, userNeeds *types.UserProfile, dataFeatures *types.DataFeatureProfile, methods []PersonalizeTarget, log *logrus.Entry) []types.PersonalizedImplementation {
	if len(methods) == 0 || len(clients) == 0 {
		return nil
	}

	settled := batch.SettleAll(ctx, len(methods), func(ctx context.Context, i int) (types.PersonalizedImplementation, error) {
		client := clients[i%len(clients)]
		return Personalize(ctx, client, userNeeds, dataFeatures, methods[i].Payload, methods[i].Name)
	})

	results := make([]types.PersonalizedImplementation, len(methods))
	for _, r := range settled {
		if r.Err != nil {
			log.WithError(r.Err).WithField("method", methods[r.Index].Name).Warn("personalization failed, using generic guidance")
			results[r.Index] = fallbackGuidance(methods[r.Index])
			continue
		}
		results[r.Index] = r.Value
	}
	return results
}

// PersonalizeTarget names a finalist and carries its description for
// the personalization prompt.
type PersonalizeTarget struct {
	Name    string
	Payload any
	Steps   []string
}

func fallbackGuidance(target PersonalizeTarget) types.PersonalizedImplementation {
	var sb strings.Builder
	sb.WriteString("Follow the method's standard procedure")
	if len(target.Steps) > 0 {
		sb.WriteString(":\n")
		for i, step := range target.Steps {
			sb.WriteString(strings.TrimSpace(step))
			if i < len(target.Steps)-1 {
				sb.WriteString("\n")
			}
		}
	} else {
		sb.WriteString(" as described in its reference entry.")
	}
	return types.PersonalizedImplementation{
		MethodName: target.Name,
		Guidance:   sb.String(),
	}
}
