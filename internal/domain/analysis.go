package domain

// Verdict is the coarse risk bucket derived from the final risk score.
type Verdict string

const (
	VerdictLow    Verdict = "low"
	VerdictMedium Verdict = "medium"
	VerdictHigh   Verdict = "high"
)

// ConfidenceTier expresses how strongly the evidence supports the verdict.
// Tiers are ordered: very-low < low < medium < high < very-high < critical.
type ConfidenceTier string

const (
	ConfidenceVeryLow  ConfidenceTier = "very-low"
	ConfidenceLow      ConfidenceTier = "low"
	ConfidenceMedium   ConfidenceTier = "medium"
	ConfidenceHigh     ConfidenceTier = "high"
	ConfidenceVeryHigh ConfidenceTier = "very-high"
	ConfidenceCritical ConfidenceTier = "critical"
)

var confidenceRank = map[ConfidenceTier]int{
	ConfidenceVeryLow:  0,
	ConfidenceLow:      1,
	ConfidenceMedium:   2,
	ConfidenceHigh:     3,
	ConfidenceVeryHigh: 4,
	ConfidenceCritical: 5,
}

// Rank returns the ordinal position of the tier, or -1 for unknown values.
func (c ConfidenceTier) Rank() int {
	if r, ok := confidenceRank[c]; ok {
		return r
	}
	return -1
}

// AtLeast reports whether c is the same as or stronger than other.
func (c ConfidenceTier) AtLeast(other ConfidenceTier) bool {
	return c.Rank() >= other.Rank()
}

// AnalysisResult is the output of a single analysis.
// It carries no timestamps or identifiers so identical inputs produce identical results.
type AnalysisResult struct {
	RiskScore     int                `json:"riskScore"`
	Verdict       Verdict            `json:"verdict"`
	Confidence    ConfidenceTier     `json:"confidence"`
	Explanations  []string           `json:"explanations"`
	Features      *FeatureSet        `json:"features"`
	DatabaseMatch *KnownThreatRecord `json:"databaseMatch"`
}

// FeatureScores holds the capped per-category partial scores.
type FeatureScores struct {
	HTTPS            float64 `json:"httpsScore"`
	PlainHTTP        float64 `json:"plainHttpScore"`
	DomainReputation float64 `json:"domainReputationScore"`
	DomainAge        float64 `json:"domainAgeScore"`
	Length           float64 `json:"lengthScore"`
	Financial        float64 `json:"financialScore"`
	Urgency          float64 `json:"urgencyScore"`
	SecurityThreat   float64 `json:"securityThreatScore"`
	Phishing         float64 `json:"phishingScore"`
	SpecialChars     float64 `json:"specialCharScore"`
	Homograph        float64 `json:"homographScore"`
	Subdomain        float64 `json:"subdomainScore"`
	Shortener        float64 `json:"shortenerScore"`
	IPAddress        float64 `json:"ipScore"`
	AtSymbol         float64 `json:"atSymbolScore"`
	ScamType         float64 `json:"scamTypeScore"`
	PathDepth        float64 `json:"pathDepthScore"`
	SuspiciousParams float64 `json:"suspiciousParamsScore"`
	SuspiciousSub    float64 `json:"suspiciousSubdomainScore"`
	RedirectChain    float64 `json:"redirectChainScore"`
	IllegalContent   float64 `json:"illegalContentScore"`
	RegionalThreat   float64 `json:"regionalThreatScore"`
}

// FeatureSet is the fixed-shape record of lexical signals extracted from one candidate.
type FeatureSet struct {
	URLLength                     int    `json:"urlLength"`
	HasHTTPS                      bool   `json:"hasHttps"`
	IsHTTPOnly                    bool   `json:"isHttpOnly"`
	Host                          string `json:"host"`
	DisplayHost                   string `json:"displayHost,omitempty"`
	RegisteredDomain              string `json:"registeredDomain,omitempty"`
	IsTrustedDomain               bool   `json:"isTrustedDomain"`
	HasSuspiciousTLD              bool   `json:"hasSuspiciousTld"`
	IsRecentlyRegisteredIndicator bool   `json:"isRecentlyRegisteredIndicator"`
	IsIPAddress                   bool   `json:"isIpAddress"`
	IsHomograph                   bool   `json:"isHomograph"`
	HasShortener                  bool   `json:"hasRedirect"`
	HasAtSymbol                   bool   `json:"hasAtSymbol"`
	FinancialKeywords             int    `json:"financialKeywords"`
	UrgencyKeywords               int    `json:"urgencyKeywords"`
	SecurityThreatKeywords        int    `json:"securityThreatKeywords"`
	PhishingPatterns              int    `json:"phishingPatterns"`
	SpecialCharCount              int    `json:"specialCharCount"`
	SubdomainCount                int    `json:"subdomainCount"`
	PathDepth                     int    `json:"pathDepth"`
	DetectedScamType              string `json:"detectedScamType,omitempty"`
	ScamTypeMatches               int    `json:"scamTypeMatches"`
	HasSuspiciousParams           bool   `json:"hasSuspiciousParams"`
	HasSuspiciousSubdomain        bool   `json:"hasSuspiciousSubdomain"`
	HasRedirectChain              bool   `json:"hasRedirectChain"`
	IsKnownPiracySite             bool   `json:"isKnownPiracySite"`
	IllegalContentKeywords        int    `json:"illegalContentKeywords"`
	InternationalThreatMatch      bool   `json:"internationalThreatMatch"`
	DetectedRegion                string `json:"detectedRegion,omitempty"`
	RegionalKeywords              int    `json:"regionalKeywords"`

	Scores    FeatureScores `json:"scores"`
	BaseScore float64       `json:"baseScore"`

	// Error is set when the candidate could not be parsed as a URL.
	Error string `json:"error,omitempty"`
}

// HasError reports whether extraction failed.
func (f *FeatureSet) HasError() bool {
	return f != nil && f.Error != ""
}

// HasIllegalContent reports whether piracy or other illegal-content signals fired.
func (f *FeatureSet) HasIllegalContent() bool {
	return f.IsKnownPiracySite || f.IllegalContentKeywords > 0
}
