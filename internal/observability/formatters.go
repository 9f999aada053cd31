// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/method-advisor/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintUserProfile outputs a human-readable summary of the analyzed user needs.
func (p *Printer) PrintUserProfile(profile *types.UserProfile) {
	if profile == nil {
		return
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Domain:   %s\n", profile.TaskDimension.Domain))
	sb.WriteString(fmt.Sprintf("Purpose:  %s\n", profile.TaskDimension.Purpose))
	sb.WriteString(fmt.Sprintf("Level:    %s\n", profile.EnvironmentDimension.ExpertiseLevel))

	if profile.Requirements != nil {
		sb.WriteString("\nRequirement Priorities:\n")
		sb.WriteString(fmt.Sprintf("  Objectivity:      %.1f\n", profile.Requirements.Objectivity))
		sb.WriteString(fmt.Sprintf("  Interpretability: %.1f\n", profile.Requirements.Interpretability))
		sb.WriteString(fmt.Sprintf("  Efficiency:       %.1f\n", profile.Requirements.Efficiency))
		sb.WriteString(fmt.Sprintf("  Stability:        %.1f\n", profile.Requirements.Stability))
	}

	if profile.Mock {
		sb.WriteString("\n(default profile: model analysis unavailable)")
	}

	p.printBox("USER NEEDS PROFILE", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintDataProfile outputs the characterized data situation.
func (p *Printer) PrintDataProfile(profile *types.DataFeatureProfile) {
	if profile == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Source:      %s\n", profile.Source))
	sb.WriteString(fmt.Sprintf("Indicators:  %d\n", profile.Structure.IndicatorCount))
	if profile.Structure.SampleSize > 0 {
		sb.WriteString(fmt.Sprintf("Samples:     %d\n", profile.Structure.SampleSize))
	}
	sb.WriteString("\nQuality:\n")
	sb.WriteString(fmt.Sprintf("  Completeness: %.2f\n", profile.Quality.Completeness))
	sb.WriteString(fmt.Sprintf("  Consistency:  %.2f\n", profile.Quality.Consistency))
	sb.WriteString(fmt.Sprintf("  Reliability:  %.2f\n", profile.Quality.Reliability))
	sb.WriteString("\nMethod Suitability:\n")
	sb.WriteString(fmt.Sprintf("  Objective:  %.1f\n", profile.MethodSuitability.Objective))
	sb.WriteString(fmt.Sprintf("  Subjective: %.1f\n", profile.MethodSuitability.Subjective))
	sb.WriteString(fmt.Sprintf("  Hybrid:     %.1f\n", profile.MethodSuitability.Hybrid))

	p.printBox("DATA FEATURE PROFILE", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRuleMatching outputs the scored candidates with the shortlist marked.
func (p *Printer) PrintRuleMatching(outcome *types.RuleMatchOutcome) {
	if outcome == nil || len(outcome.Results) == 0 {
		return
	}

	shortlisted := make(map[string]bool, len(outcome.TopCandidates))
	for _, name := range outcome.TopCandidates {
		shortlisted[name] = true
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Average score: %.2f\n", outcome.AverageScore))
	if outcome.NeedsSupplement {
		sb.WriteString("Supplementation: triggered\n")
	}
	sb.WriteString("\n")

	count := min(len(outcome.Results), maxItemsToShow)
	for i := 0; i < count; i++ {
		r := outcome.Results[i]
		marker := " "
		if shortlisted[r.MethodName] {
			marker = "★"
		}
		name := r.MethodName
		if len(name) > 38 {
			name = name[:35] + "..."
		}
		sb.WriteString(fmt.Sprintf("%s #%d  %s\n", marker, i+1, name))
		sb.WriteString(fmt.Sprintf("     Score: %.2f\n", r.TotalRuleScore))
	}
	if len(outcome.Results) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more methods", len(outcome.Results)-maxItemsToShow))
	}

	p.printBox("RULE-BASED MATCHING", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRecommendations outputs the final ranked recommendations.
func (p *Printer) PrintRecommendations(bundle *types.RecommendationBundle) {
	if bundle == nil || len(bundle.Recommendations) == 0 {
		return
	}

	var sb strings.Builder
	for i, rec := range bundle.Recommendations {
		name := rec.MethodName
		if len(name) > 42 {
			name = name[:39] + "..."
		}
		sb.WriteString(fmt.Sprintf("#%d  %s\n", i+1, name))
		sb.WriteString(fmt.Sprintf("    Final: %.2f (rule %.2f, semantic %.2f)\n", rec.FinalScore, rec.RuleScore, rec.SemanticScore))
		if rec.Source == types.SourceLLM {
			sb.WriteString("    Source: model-proposed\n")
		}
		if i < len(bundle.Recommendations)-1 {
			sb.WriteString("\n")
		}
	}

	sb.WriteString(fmt.Sprintf("\nStatus: %s", bundle.Summary.CompletionStatus))
	if bundle.Summary.UsedLLMSupplement {
		sb.WriteString(" (supplemented)")
	}

	p.printBox("FINAL RECOMMENDATIONS", sb.String())
}

// PrintSemanticResults outputs per-method semantic fit assessments.
func (p *Printer) PrintSemanticResults(results []types.SemanticAnalysisResult) {
	if len(results) == 0 {
		return
	}

	var sb strings.Builder
	for i, r := range results {
		name := r.MethodName
		if len(name) > 38 {
			name = name[:35] + "..."
		}
		sb.WriteString(fmt.Sprintf("• %s\n", name))
		sb.WriteString(fmt.Sprintf("  Score: %.1f (%s)\n", r.SemanticMatchScore, r.SuitabilityLevel))
		if i < len(results)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("SEMANTIC ANALYSIS", strings.TrimSuffix(sb.String(), "\n"))
}
