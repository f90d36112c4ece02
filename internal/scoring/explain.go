package scoring

import (
	"fmt"
	"strings"

	"github.com/opensource-finance/veritas/internal/domain"
)

// NoRedFlags is reported when nothing besides the transport line was flagged.
const NoRedFlags = "No significant security red flags detected"

// Explain renders the ordered explanation lines for fs.
func Explain(fs *domain.FeatureSet, confidence domain.ConfidenceTier, matches []domain.RuleMatch) []string {
	lines := make([]string, 0, 8)

	if fs.HasHTTPS {
		lines = append(lines, "Uses HTTPS encryption")
	} else {
		lines = append(lines, "Missing HTTPS encryption")
	}

	switch {
	case fs.IsKnownPiracySite:
		lines = append(lines, "Known piracy website distributing illegal content")
	case fs.IllegalContentKeywords > 0:
		lines = append(lines, fmt.Sprintf("Illegal or pirated content indicators (%d found)", fs.IllegalContentKeywords))
	}
	if fs.PhishingPatterns > 0 {
		lines = append(lines, fmt.Sprintf("Lookalike brand spelling detected (%d patterns)", fs.PhishingPatterns))
	}
	if fs.HasSuspiciousTLD {
		lines = append(lines, "Suspicious top-level domain")
	}
	if fs.FinancialKeywords > 0 {
		lines = append(lines, fmt.Sprintf("Financial terms present (%d found)", fs.FinancialKeywords))
	}
	switch {
	case fs.UrgencyKeywords > 1:
		lines = append(lines, fmt.Sprintf("Multiple urgency tactics (%d found)", fs.UrgencyKeywords))
	case fs.UrgencyKeywords == 1:
		lines = append(lines, "Urgency language detected")
	}
	if fs.SecurityThreatKeywords > 0 {
		lines = append(lines, fmt.Sprintf("Security scare language (%d found)", fs.SecurityThreatKeywords))
	}
	if fs.IsIPAddress {
		lines = append(lines, "Uses a raw IP address instead of a domain name")
	}
	if fs.IsHomograph {
		line := "Possible homograph or lookalike characters in domain"
		if fs.DisplayHost != "" && fs.DisplayHost != fs.Host {
			line += " (displays as " + fs.DisplayHost + ")"
		}
		lines = append(lines, line)
	}
	if fs.HasShortener {
		lines = append(lines, "URL shortener hides the real destination")
	}
	if fs.HasAtSymbol {
		lines = append(lines, "Contains @ symbol that can disguise the real host")
	}
	if fs.SpecialCharCount > 8 {
		lines = append(lines, fmt.Sprintf("Excessive special characters (%d)", fs.SpecialCharCount))
	}
	if fs.SubdomainCount > 4 {
		lines = append(lines, fmt.Sprintf("Unusually deep subdomain structure (%d levels)", fs.SubdomainCount))
	}
	if fs.PathDepth > 5 {
		lines = append(lines, fmt.Sprintf("Deeply nested path (%d segments)", fs.PathDepth))
	}
	if fs.HasSuspiciousParams {
		lines = append(lines, "Suspicious redirect or login parameters in query")
	}
	if fs.HasSuspiciousSubdomain {
		lines = append(lines, "Security-themed words in an untrusted domain")
	}
	if fs.HasRedirectChain {
		lines = append(lines, "Possible redirect chain")
	}
	if fs.IsRecentlyRegisteredIndicator && !fs.IsIPAddress {
		lines = append(lines, "Domain shows signs of recent registration")
	}
	if fs.InternationalThreatMatch {
		lines = append(lines, fmt.Sprintf("Regional fraud pattern detected: %s (%d keywords)", fs.DetectedRegion, fs.RegionalKeywords))
	}
	if fs.DetectedScamType != "" {
		lines = append(lines, fmt.Sprintf("Matches %s pattern (%d keywords)", fs.DetectedScamType, fs.ScamTypeMatches))
	}

	if len(lines) == 1 {
		lines = append(lines, NoRedFlags)
	}

	for _, m := range matches {
		if m.Explanation != "" {
			lines = append(lines, m.Explanation)
		} else {
			lines = append(lines, "Custom rule "+m.RuleID+" matched")
		}
	}

	return append(lines, "Assessment confidence: "+strings.ToUpper(string(confidence)))
}
