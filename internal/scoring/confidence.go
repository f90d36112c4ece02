package scoring

import "github.com/opensource-finance/veritas/internal/domain"

// Indicators holds the two weighted tallies behind a confidence tier.
type Indicators struct {
	Critical int `json:"critical"`
	Risk     int `json:"risk"`
}

// CountIndicators tallies critical and risk indicators for fs.
func CountIndicators(fs *domain.FeatureSet) Indicators {
	var ind Indicators

	if fs.IsIPAddress {
		ind.Critical += 2
	}
	if fs.PhishingPatterns > 0 {
		ind.Critical += 2
	}
	if fs.HasAtSymbol {
		ind.Critical += 2
	}
	if fs.SecurityThreatKeywords > 1 {
		ind.Critical++
	}
	if fs.IsKnownPiracySite {
		ind.Critical += 4
	}
	if fs.IsRecentlyRegisteredIndicator {
		ind.Critical++
	}
	if fs.HasSuspiciousParams {
		ind.Critical++
	}

	if fs.HasShortener {
		ind.Risk += 2
	}
	if fs.IsHomograph {
		ind.Risk += 2
	}
	if fs.HasSuspiciousSubdomain {
		ind.Risk += 2
	}
	if fs.HasRedirectChain {
		ind.Risk += 2
	}
	if fs.UrgencyKeywords > 1 {
		ind.Risk++
	}
	if fs.FinancialKeywords > 0 {
		ind.Risk++
	}
	if !fs.HasHTTPS {
		ind.Risk++
	}
	if fs.SpecialCharCount > 8 {
		ind.Risk++
	}
	if fs.SubdomainCount > 4 {
		ind.Risk++
	}
	if fs.InternationalThreatMatch {
		ind.Risk += 2
	}
	if !fs.IsKnownPiracySite && fs.IllegalContentKeywords > 0 {
		ind.Risk += 2
	}

	return ind
}

// Classify maps the indicator tallies of fs to a confidence tier. First match wins.
func Classify(fs *domain.FeatureSet) domain.ConfidenceTier {
	return tierFor(CountIndicators(fs))
}

func tierFor(ind Indicators) domain.ConfidenceTier {
	switch {
	case ind.Critical >= 6:
		return domain.ConfidenceCritical
	case ind.Critical >= 4 || ind.Risk >= 8:
		return domain.ConfidenceVeryHigh
	case ind.Critical >= 2 || ind.Risk >= 5:
		return domain.ConfidenceHigh
	case ind.Risk >= 3:
		return domain.ConfidenceMedium
	case ind.Risk >= 1:
		return domain.ConfidenceLow
	default:
		return domain.ConfidenceVeryLow
	}
}
