// Package scoring turns a FeatureSet into a risk score, verdict, confidence tier and explanations.
package scoring

import (
	"math"
	"strings"

	"github.com/opensource-finance/veritas/internal/domain"
)

// Fixed scores for the paths that bypass aggregation.
const (
	KnownThreatScore = 99
	FallbackScore    = 50
)

// Processor aggregates a FeatureSet and rule matches into a final result.
type Processor struct {
	// Verdict cutoffs on the 0-100 score
	HighCutoff   int
	MediumCutoff int

	// Points added to the score per confidence tier
	ConfidenceBonus map[domain.ConfidenceTier]int
}

// NewProcessor creates a processor with default cutoffs and bonuses.
func NewProcessor() *Processor {
	return &Processor{
		HighCutoff:   65,
		MediumCutoff: 40,
		ConfidenceBonus: map[domain.ConfidenceTier]int{
			domain.ConfidenceCritical: 20,
			domain.ConfidenceVeryHigh: 15,
			domain.ConfidenceHigh:     10,
			domain.ConfidenceVeryLow:  -10,
		},
	}
}

// DecisionInput contains all data needed for a decision.
type DecisionInput struct {
	Features    *domain.FeatureSet
	RuleMatches []domain.RuleMatch
}

// Process scores a successfully extracted FeatureSet. A FeatureSet carrying an
// extraction error is routed to InvalidInput.
func (p *Processor) Process(input *DecisionInput) *domain.AnalysisResult {
	fs := input.Features
	if fs.HasError() {
		return p.InvalidInput(fs)
	}

	confidence := Classify(fs)

	score := clampScore(int(math.Round(fs.BaseScore*100)) + p.ConfidenceBonus[confidence])
	if len(input.RuleMatches) > 0 {
		for _, m := range input.RuleMatches {
			score += m.Adjustment
		}
		score = clampScore(score)
	}

	return &domain.AnalysisResult{
		RiskScore:    score,
		Verdict:      p.Verdict(score),
		Confidence:   confidence,
		Explanations: Explain(fs, confidence, input.RuleMatches),
		Features:     fs,
	}
}

// Verdict maps a score to its verdict using the processor cutoffs.
func (p *Processor) Verdict(score int) domain.Verdict {
	switch {
	case score >= p.HighCutoff:
		return domain.VerdictHigh
	case score >= p.MediumCutoff:
		return domain.VerdictMedium
	default:
		return domain.VerdictLow
	}
}

// InvalidInput returns the fixed low result for input that is not a URL.
func (p *Processor) InvalidInput(fs *domain.FeatureSet) *domain.AnalysisResult {
	return &domain.AnalysisResult{
		RiskScore:    clampScore(int(math.Round(fs.BaseScore * 100))),
		Verdict:      domain.VerdictLow,
		Confidence:   domain.ConfidenceLow,
		Explanations: []string{"Input is not a valid URL; only a baseline score was assigned"},
		Features:     fs,
	}
}

// KnownThreat returns the short-circuit result for a curated threat match.
func (p *Processor) KnownThreat(rec *domain.KnownThreatRecord) *domain.AnalysisResult {
	category := strings.ToUpper(rec.Category)
	if category == "" {
		category = "MALWARE/PHISHING"
	}
	severity := strings.ToUpper(rec.Severity)
	if severity == "" {
		severity = "HIGH"
	}

	explanations := []string{
		"Known malicious website found in threat database",
		"Category: " + category,
		"Severity: " + severity,
	}
	if rec.Reason != "" {
		explanations = append(explanations, "Threat description: "+rec.Reason)
	}
	if !rec.AddedDate.IsZero() {
		explanations = append(explanations, "Reported: "+rec.AddedDate.UTC().Format("2006-01-02"))
	}

	return &domain.AnalysisResult{
		RiskScore:     KnownThreatScore,
		Verdict:       domain.VerdictHigh,
		Confidence:    domain.ConfidenceCritical,
		Explanations:  explanations,
		DatabaseMatch: rec,
	}
}

// Fallback returns the neutral result used when analysis fails internally.
func Fallback() *domain.AnalysisResult {
	return &domain.AnalysisResult{
		RiskScore:    FallbackScore,
		Verdict:      domain.VerdictMedium,
		Confidence:   domain.ConfidenceMedium,
		Explanations: []string{"Analysis error - please try again"},
	}
}

// ShouldAlert returns true if the result should trigger an alert.
func ShouldAlert(result *domain.AnalysisResult) bool {
	return result.Verdict == domain.VerdictHigh
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
