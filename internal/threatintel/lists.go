// Package threatintel holds the categorized keyword and domain tables used by feature extraction.
// Tables are built once at process start and are read-only afterwards.
package threatintel

import (
	"strings"
	"sync"
)

// Group is a named keyword list, such as one scam type or one region.
type Group struct {
	Name     string   `yaml:"name"`
	Label    string   `yaml:"label"`
	Keywords []string `yaml:"keywords"`
}

// Lists is the full set of threat intelligence tables.
// All entries are lowercase. Callers must treat a *Lists as immutable.
type Lists struct {
	TrustedDomains         []string `yaml:"trustedDomains"`
	FinancialKeywords      []string `yaml:"financialKeywords"`
	UrgencyKeywords        []string `yaml:"urgencyKeywords"`
	SecurityThreatKeywords []string `yaml:"securityThreatKeywords"`
	PhishingPatterns       []string `yaml:"phishingPatterns"`
	SuspiciousTLDs         []string `yaml:"suspiciousTlds"`
	URLShorteners          []string `yaml:"urlShorteners"`
	SuspiciousParams       []string `yaml:"suspiciousParams"`
	SuspiciousSubdomains   []string `yaml:"suspiciousSubdomains"`
	PiracyDomains          []string `yaml:"piracyDomains"`
	PiracyKeywords         []string `yaml:"piracyKeywords"`
	IllegalKeywords        []string `yaml:"illegalKeywords"`
	ScamPatterns           []Group  `yaml:"scamPatterns"`
	RegionalPatterns       []Group  `yaml:"regionalPatterns"`
}

var (
	defaultOnce  sync.Once
	defaultLists *Lists
)

// Default returns the built-in tables.
func Default() *Lists {
	defaultOnce.Do(func() {
		defaultLists = builtin()
	})
	return defaultLists
}

// Clone returns a deep copy of l.
func (l *Lists) Clone() *Lists {
	return &Lists{
		TrustedDomains:         cloneStrings(l.TrustedDomains),
		FinancialKeywords:      cloneStrings(l.FinancialKeywords),
		UrgencyKeywords:        cloneStrings(l.UrgencyKeywords),
		SecurityThreatKeywords: cloneStrings(l.SecurityThreatKeywords),
		PhishingPatterns:       cloneStrings(l.PhishingPatterns),
		SuspiciousTLDs:         cloneStrings(l.SuspiciousTLDs),
		URLShorteners:          cloneStrings(l.URLShorteners),
		SuspiciousParams:       cloneStrings(l.SuspiciousParams),
		SuspiciousSubdomains:   cloneStrings(l.SuspiciousSubdomains),
		PiracyDomains:          cloneStrings(l.PiracyDomains),
		PiracyKeywords:         cloneStrings(l.PiracyKeywords),
		IllegalKeywords:        cloneStrings(l.IllegalKeywords),
		ScamPatterns:           cloneGroups(l.ScamPatterns),
		RegionalPatterns:       cloneGroups(l.RegionalPatterns),
	}
}

// Merge returns a new Lists holding the entries of l followed by the entries of extra
// that l does not already contain. Groups with the same name are merged keyword-wise;
// unknown groups are appended.
func (l *Lists) Merge(extra *Lists) *Lists {
	out := l.Clone()
	if extra == nil {
		return out
	}

	out.TrustedDomains = mergeStrings(out.TrustedDomains, extra.TrustedDomains)
	out.FinancialKeywords = mergeStrings(out.FinancialKeywords, extra.FinancialKeywords)
	out.UrgencyKeywords = mergeStrings(out.UrgencyKeywords, extra.UrgencyKeywords)
	out.SecurityThreatKeywords = mergeStrings(out.SecurityThreatKeywords, extra.SecurityThreatKeywords)
	out.PhishingPatterns = mergeStrings(out.PhishingPatterns, extra.PhishingPatterns)
	out.SuspiciousTLDs = mergeStrings(out.SuspiciousTLDs, normalizeTLDs(extra.SuspiciousTLDs))
	out.URLShorteners = mergeStrings(out.URLShorteners, extra.URLShorteners)
	out.SuspiciousParams = mergeStrings(out.SuspiciousParams, extra.SuspiciousParams)
	out.SuspiciousSubdomains = mergeStrings(out.SuspiciousSubdomains, extra.SuspiciousSubdomains)
	out.PiracyDomains = mergeStrings(out.PiracyDomains, extra.PiracyDomains)
	out.PiracyKeywords = mergeStrings(out.PiracyKeywords, extra.PiracyKeywords)
	out.IllegalKeywords = mergeStrings(out.IllegalKeywords, extra.IllegalKeywords)
	out.ScamPatterns = mergeGroups(out.ScamPatterns, extra.ScamPatterns)
	out.RegionalPatterns = mergeGroups(out.RegionalPatterns, extra.RegionalPatterns)

	return out
}

// Size returns the total number of entries across all tables.
func (l *Lists) Size() int {
	n := len(l.TrustedDomains) + len(l.FinancialKeywords) + len(l.UrgencyKeywords) +
		len(l.SecurityThreatKeywords) + len(l.PhishingPatterns) + len(l.SuspiciousTLDs) +
		len(l.URLShorteners) + len(l.SuspiciousParams) + len(l.SuspiciousSubdomains) +
		len(l.PiracyDomains) + len(l.PiracyKeywords) + len(l.IllegalKeywords)
	for _, g := range l.ScamPatterns {
		n += len(g.Keywords)
	}
	for _, g := range l.RegionalPatterns {
		n += len(g.Keywords)
	}
	return n
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneGroups(in []Group) []Group {
	if in == nil {
		return nil
	}
	out := make([]Group, len(in))
	for i, g := range in {
		out[i] = Group{Name: g.Name, Label: g.Label, Keywords: cloneStrings(g.Keywords)}
	}
	return out
}

func mergeStrings(base, extra []string) []string {
	seen := make(map[string]struct{}, len(base))
	for _, s := range base {
		seen[s] = struct{}{}
	}
	for _, s := range extra {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		base = append(base, s)
	}
	return base
}

func mergeGroups(base, extra []Group) []Group {
	for _, g := range extra {
		name := strings.ToLower(strings.TrimSpace(g.Name))
		if name == "" {
			continue
		}
		merged := false
		for i := range base {
			if base[i].Name == name {
				base[i].Keywords = mergeStrings(base[i].Keywords, g.Keywords)
				merged = true
				break
			}
		}
		if !merged {
			label := g.Label
			if label == "" {
				label = g.Name
			}
			base = append(base, Group{Name: name, Label: label, Keywords: mergeStrings(nil, g.Keywords)})
		}
	}
	return base
}

func normalizeTLDs(in []string) []string {
	out := make([]string, 0, len(in))
	for _, tld := range in {
		tld = strings.TrimSpace(tld)
		if tld == "" {
			continue
		}
		if !strings.HasPrefix(tld, ".") {
			tld = "." + tld
		}
		out = append(out, tld)
	}
	return out
}
