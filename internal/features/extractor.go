// Package features turns a candidate URL into a FeatureSet of lexical risk signals.
package features

import (
	"errors"
	"net/netip"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"

	"github.com/opensource-finance/veritas/internal/domain"
	"github.com/opensource-finance/veritas/internal/threatintel"
)

// ErrInvalidURL is reported in FeatureSet.Error when the candidate cannot be parsed.
var ErrInvalidURL = errors.New("invalid URL format")

const specialChars = `!@#$%^&*()-_=+[]{};:'",.<>?/\`

var (
	ipv4Prefix     = regexp.MustCompile(`^\d+\.\d+\.\d+\.\d+`)
	trailingDigits = regexp.MustCompile(`\d{1,4}$`)
	digitThenOL    = regexp.MustCompile(`(?i)[0-9]+[ol]`)

	// Matches any host containing "m", including every .com host.
	confusableRun = regexp.MustCompile(`(?i)rn|m|cl|1l|0o|5s`)
)

// Extractor computes FeatureSets against a fixed set of threat tables.
// It holds no mutable state and is safe for concurrent use.
type Extractor struct {
	lists *threatintel.Lists
}

// NewExtractor creates an extractor. A nil lists uses the built-in tables.
func NewExtractor(lists *threatintel.Lists) *Extractor {
	if lists == nil {
		lists = threatintel.Default()
	}
	return &Extractor{lists: lists}
}

// Lists returns the tables the extractor matches against.
func (e *Extractor) Lists() *threatintel.Lists {
	return e.lists
}

// Extract computes the FeatureSet for candidate. It never fails: unparseable input
// yields a FeatureSet with Error set and BaseScore = InvalidBaseScore.
func (e *Extractor) Extract(candidate string) *domain.FeatureSet {
	u, host, err := parse(candidate)
	if err != nil {
		return &domain.FeatureSet{
			URLLength: utf8.RuneCountInString(candidate),
			Error:     ErrInvalidURL.Error(),
			BaseScore: InvalidBaseScore,
		}
	}

	lower := strings.ToLower(candidate)
	labels := strings.Split(host, ".")
	l := e.lists

	fs := &domain.FeatureSet{
		URLLength:   utf8.RuneCountInString(candidate),
		HasHTTPS:    u.Scheme == "https",
		IsHTTPOnly:  u.Scheme == "http",
		Host:        host,
		DisplayHost: displayHost(host),
	}
	if reg, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		fs.RegisteredDomain = reg
	}

	fs.IsTrustedDomain = matchesDomain(host, l.TrustedDomains)
	fs.HasSuspiciousTLD = hasSuffix(host, l.SuspiciousTLDs)
	fs.IsRecentlyRegisteredIndicator = fs.HasSuspiciousTLD ||
		trailingDigits.MatchString(labels[0]) ||
		len(host) < 8
	fs.IsIPAddress = isIPAddress(host)
	fs.IsHomograph = strings.Contains(host, "xn--") ||
		digitThenOL.MatchString(host) ||
		confusableRun.MatchString(host)
	fs.HasShortener = matchesDomain(host, l.URLShorteners)
	fs.HasAtSymbol = strings.Contains(candidate, "@")

	fs.FinancialKeywords = countMatches(lower, l.FinancialKeywords)
	fs.UrgencyKeywords = countMatches(lower, l.UrgencyKeywords)
	fs.SecurityThreatKeywords = countMatches(lower, l.SecurityThreatKeywords)
	fs.PhishingPatterns = countMatches(lower, l.PhishingPatterns)
	fs.SpecialCharCount = countSpecialChars(candidate)
	fs.SubdomainCount = len(labels)
	fs.PathDepth = pathDepth(u.Path)

	if g, n := bestGroup(lower, l.ScamPatterns); n > 0 {
		fs.DetectedScamType = g.Label
		fs.ScamTypeMatches = n
	}

	if u.RawQuery != "" {
		fs.HasSuspiciousParams = containsAny(strings.ToLower(u.RawQuery), l.SuspiciousParams)
	}
	fs.HasSuspiciousSubdomain = !fs.IsTrustedDomain && containsAny(host, l.SuspiciousSubdomains)
	fs.HasRedirectChain = strings.Count(u.Path, "/") > 5 && strings.Contains(lower, "redirect")

	fs.IsKnownPiracySite = isPiracySite(host, lower, l.PiracyDomains)
	fs.IllegalContentKeywords = countMatches(lower, l.PiracyKeywords) + countMatches(lower, l.IllegalKeywords)

	if g, n := bestGroup(lower, l.RegionalPatterns); n > 0 {
		fs.InternationalThreatMatch = true
		fs.DetectedRegion = g.Label
		fs.RegionalKeywords = n
	}

	fs.Scores = score(fs)
	fs.BaseScore = clamp01(weightedSum(fs.Scores, Weights) / Normalization)

	return fs
}

// score computes the capped partial score of every category.
func score(fs *domain.FeatureSet) domain.FeatureScores {
	var s domain.FeatureScores

	if !fs.HasHTTPS {
		s.HTTPS = 0.3
	}
	if fs.IsHTTPOnly {
		s.PlainHTTP = 0.15
	}

	switch {
	case fs.IsTrustedDomain:
		s.DomainReputation = 0
	case fs.HasSuspiciousTLD:
		s.DomainReputation = 0.35
	default:
		s.DomainReputation = 0.15
	}

	if fs.IsRecentlyRegisteredIndicator {
		s.DomainAge = 0.15
	}

	switch {
	case fs.URLLength < 10:
		s.Length = 0.12
	case fs.URLLength > 200:
		s.Length = 0.18
	case fs.URLLength > 150:
		s.Length = 0.12
	}

	s.Financial = capped(fs.FinancialKeywords, 0.2, 0.7)
	s.Urgency = capped(fs.UrgencyKeywords, 0.18, 0.65)
	s.SecurityThreat = capped(fs.SecurityThreatKeywords, 0.22, 0.75)
	s.Phishing = capped(fs.PhishingPatterns, 0.25, 0.8)
	s.SpecialChars = capped(fs.SpecialCharCount, 0.08, 0.4)

	if fs.IsHomograph {
		s.Homograph = 0.4
	}

	switch {
	case fs.SubdomainCount > 5:
		s.Subdomain = 0.2
	case fs.SubdomainCount > 3:
		s.Subdomain = 0.1
	}

	if fs.HasShortener {
		s.Shortener = 0.3
	}
	if fs.IsIPAddress {
		s.IPAddress = 0.5
	}
	if fs.HasAtSymbol {
		s.AtSymbol = 0.4
	}

	s.ScamType = capped(fs.ScamTypeMatches, 0.15, 0.5)

	switch {
	case fs.PathDepth > 8:
		s.PathDepth = 0.12
	case fs.PathDepth > 5:
		s.PathDepth = 0.08
	}

	if fs.HasSuspiciousParams {
		s.SuspiciousParams = 0.3
	}
	if fs.HasSuspiciousSubdomain {
		s.SuspiciousSub = 0.3
	}
	if fs.HasRedirectChain {
		s.RedirectChain = 0.35
	}

	switch {
	case fs.IsKnownPiracySite:
		s.IllegalContent = 0.95
	case fs.IllegalContentKeywords > 0:
		s.IllegalContent = 0.65
	}

	s.RegionalThreat = capped(fs.RegionalKeywords, 0.25, 0.75)

	return s
}

// parse accepts only absolute URLs with a host, mirroring what a browser URL bar accepts.
func parse(candidate string) (*url.URL, string, error) {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return nil, "", ErrInvalidURL
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, "", ErrInvalidURL
	}

	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" {
		return nil, "", ErrInvalidURL
	}
	u.Scheme = strings.ToLower(u.Scheme)

	return u, host, nil
}

func displayHost(host string) string {
	if !strings.Contains(host, "xn--") {
		return host
	}
	unicode, err := idna.ToUnicode(host)
	if err != nil {
		return host
	}
	return unicode
}

func isIPAddress(host string) bool {
	if ipv4Prefix.MatchString(host) {
		return true
	}
	_, err := netip.ParseAddr(host)
	return err == nil
}

// matchesDomain reports whether host equals an entry or is a subdomain of one.
func matchesDomain(host string, domains []string) bool {
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func hasSuffix(host string, suffixes []string) bool {
	for _, s := range suffixes {
		if strings.HasSuffix(host, s) {
			return true
		}
	}
	return false
}

// countMatches returns how many distinct entries occur as substrings of s.
func countMatches(s string, entries []string) int {
	n := 0
	for _, e := range entries {
		if e != "" && strings.Contains(s, e) {
			n++
		}
	}
	return n
}

func containsAny(s string, entries []string) bool {
	return countMatches(s, entries) > 0
}

func countSpecialChars(s string) int {
	n := 0
	for _, r := range s {
		if strings.ContainsRune(specialChars, r) {
			n++
		}
	}
	return n
}

func pathDepth(path string) int {
	n := 0
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			n++
		}
	}
	return n
}

// bestGroup returns the group with the most keyword hits. Ties go to the earlier group.
func bestGroup(s string, groups []threatintel.Group) (threatintel.Group, int) {
	var best threatintel.Group
	bestN := 0
	for _, g := range groups {
		if n := countMatches(s, g.Keywords); n > bestN {
			best, bestN = g, n
		}
	}
	return best, bestN
}

// isPiracySite matches a blacklisted piracy domain by its name label in the host
// or by the full domain anywhere in the candidate.
func isPiracySite(host, lower string, domains []string) bool {
	for _, d := range domains {
		name, _, _ := strings.Cut(d, ".")
		if (name != "" && strings.Contains(host, name)) || strings.Contains(lower, d) {
			return true
		}
	}
	return false
}
