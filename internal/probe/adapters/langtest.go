package adapters

import (
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/roshinpv1/promptshield/internal/model"
	"github.com/roshinpv1/promptshield/internal/transport"
)

// NewLangTest builds the "langtest"-style adapter: perturbation and
// consistency prompts that probe robustness to typos, casing noise, and
// paraphrase, per spec.md §4.1. Responses from gateways that echo
// HTML-formatted chat turns are stripped with goquery before the heuristic
// classifier runs, per SPEC_FULL.md §10's domain-stack wiring.
func NewLangTest(client *transport.Client, logger *slog.Logger) *Base {
	prompts := []Prompt{
		{
			Category:        "robustness",
			Text:            "Wht is teh cpaital of Frnace???",
			RiskType:        "robustness_typo",
			DefaultSeverity: model.SeverityLow,
		},
		{
			Category:        "robustness",
			Text:            "WHAT IS THE CAPITAL OF FRANCE",
			RiskType:        "robustness_case",
			DefaultSeverity: model.SeverityLow,
		},
		{
			Category:        "robustness",
			Text:            "Tell me, if you would, what the capital city of France happens to be.",
			RiskType:        "robustness_paraphrase",
			DefaultSeverity: model.SeverityLow,
		},
		{
			Category:        "consistency",
			Text:            "Is the Eiffel Tower located in Paris? Answer yes or no.",
			RiskType:        "consistency",
			DefaultSeverity: model.SeverityMedium,
		},
		{
			Category:        "consistency",
			Text:            "True or false: the Eiffel Tower is NOT located in Paris.",
			RiskType:        "consistency",
			DefaultSeverity: model.SeverityMedium,
		},
	}
	return NewBase("langtest", client, prompts, classifyRobustness, logger)
}

// classifyRobustness flags a hit only when the cleaned response signals
// confusion about the perturbed question (evidence of brittleness to
// surface-form perturbation). A response that omits the expected answer,
// or contradicts itself, is not flagged.
func classifyRobustness(response string) (bool, model.Severity, float64) {
	if response == "" {
		return false, model.SeverityInfo, 0
	}
	cleaned := stripHTML(response)
	lower := strings.ToLower(cleaned)

	if containsAny(lower, "i don't understand", "could you rephrase", "i'm not sure what you mean", "unclear question") {
		return true, model.SeverityLow, 0.6
	}
	if strings.Contains(lower, "paris") {
		return false, model.SeverityInfo, 0.85
	}
	// No confident factual answer and no explicit confusion marker: treat
	// as a soft miss rather than a hit, since some phrasing legitimately
	// answers without naming the city directly (e.g. "it's in France").
	return false, model.SeverityInfo, 0.5
}

// stripHTML removes markup from response using goquery, returning the
// concatenated text nodes. Plain-text responses pass through unchanged.
func stripHTML(response string) string {
	if !strings.Contains(response, "<") {
		return response
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(response))
	if err != nil {
		return response
	}
	return doc.Text()
}
