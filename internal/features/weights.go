package features

import "github.com/opensource-finance/veritas/internal/domain"

const (
	// Normalization divides the weighted sum of partial scores before clamping to [0,1].
	Normalization = 0.6

	// InvalidBaseScore is the base score assigned when the candidate is not a URL.
	InvalidBaseScore = 0.2
)

// Weights is the importance of each partial score in the base score.
var Weights = domain.FeatureScores{
	HTTPS:            0.18,
	PlainHTTP:        0.12,
	DomainReputation: 0.22,
	DomainAge:        0.15,
	Length:           0.12,
	Financial:        0.30,
	Urgency:          0.32,
	SecurityThreat:   0.35,
	Phishing:         0.40,
	SpecialChars:     0.15,
	Homograph:        0.38,
	Subdomain:        0.18,
	Shortener:        0.28,
	IPAddress:        0.45,
	AtSymbol:         0.42,
	ScamType:         0.25,
	PathDepth:        0.10,
	SuspiciousParams: 0.25,
	SuspiciousSub:    0.25,
	RedirectChain:    0.20,
	IllegalContent:   0.45,
	RegionalThreat:   0.30,
}

// weightedSum returns the dot product of scores and w.
func weightedSum(s, w domain.FeatureScores) float64 {
	return s.HTTPS*w.HTTPS +
		s.PlainHTTP*w.PlainHTTP +
		s.DomainReputation*w.DomainReputation +
		s.DomainAge*w.DomainAge +
		s.Length*w.Length +
		s.Financial*w.Financial +
		s.Urgency*w.Urgency +
		s.SecurityThreat*w.SecurityThreat +
		s.Phishing*w.Phishing +
		s.SpecialChars*w.SpecialChars +
		s.Homograph*w.Homograph +
		s.Subdomain*w.Subdomain +
		s.Shortener*w.Shortener +
		s.IPAddress*w.IPAddress +
		s.AtSymbol*w.AtSymbol +
		s.ScamType*w.ScamType +
		s.PathDepth*w.PathDepth +
		s.SuspiciousParams*w.SuspiciousParams +
		s.SuspiciousSub*w.SuspiciousSub +
		s.RedirectChain*w.RedirectChain +
		s.IllegalContent*w.IllegalContent +
		s.RegionalThreat*w.RegionalThreat
}

// capped returns min(n*step, limit).
func capped(n int, step, limit float64) float64 {
	v := float64(n) * step
	if v > limit {
		return limit
	}
	return v
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
