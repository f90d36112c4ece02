package threatintel

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	lists := Default()

	t.Run("SameInstance", func(t *testing.T) {
		if Default() != lists {
			t.Error("Default should return the same tables on every call")
		}
	})

	t.Run("EntriesLowercase", func(t *testing.T) {
		all := [][]string{
			lists.TrustedDomains, lists.FinancialKeywords, lists.UrgencyKeywords,
			lists.SecurityThreatKeywords, lists.PhishingPatterns, lists.SuspiciousTLDs,
			lists.URLShorteners, lists.SuspiciousParams, lists.SuspiciousSubdomains,
			lists.PiracyDomains, lists.PiracyKeywords, lists.IllegalKeywords,
		}
		for _, list := range all {
			for _, entry := range list {
				if entry != strings.ToLower(entry) {
					t.Errorf("entry %q is not lowercase", entry)
				}
			}
		}
	})

	t.Run("TLDsHaveDot", func(t *testing.T) {
		for _, tld := range lists.SuspiciousTLDs {
			if !strings.HasPrefix(tld, ".") {
				t.Errorf("TLD %q should start with a dot", tld)
			}
		}
	})

	t.Run("ScamGroupOrder", func(t *testing.T) {
		want := []string{"romance", "lottery", "job", "tech", "government"}
		if len(lists.ScamPatterns) != len(want) {
			t.Fatalf("expected %d scam groups, got %d", len(want), len(lists.ScamPatterns))
		}
		for i, g := range lists.ScamPatterns {
			if g.Name != want[i] {
				t.Errorf("group %d: expected %s, got %s", i, want[i], g.Name)
			}
			if g.Label == "" {
				t.Errorf("group %s has no label", g.Name)
			}
		}
	})
}

func TestMerge(t *testing.T) {
	base := Default()
	before := len(base.PhishingPatterns)

	extra := &Lists{
		PhishingPatterns: []string{"PAYPA1", "netfl1x", " "},
		SuspiciousTLDs:   []string{"zip"},
		ScamPatterns: []Group{
			{Name: "lottery", Keywords: []string{"jackpot"}},
			{Name: "investment", Label: "Investment Scam", Keywords: []string{"guaranteed-returns"}},
		},
	}

	merged := base.Merge(extra)

	t.Run("DoesNotMutateBase", func(t *testing.T) {
		if len(base.PhishingPatterns) != before {
			t.Error("base tables were mutated")
		}
		if slices.Contains(base.ScamPatterns[1].Keywords, "jackpot") {
			t.Error("base scam group was mutated")
		}
	})

	t.Run("Deduplicates", func(t *testing.T) {
		if len(merged.PhishingPatterns) != before+1 {
			t.Errorf("expected %d phishing patterns, got %d", before+1, len(merged.PhishingPatterns))
		}
		if !slices.Contains(merged.PhishingPatterns, "netfl1x") {
			t.Error("new pattern missing")
		}
	})

	t.Run("NormalizesTLD", func(t *testing.T) {
		if !slices.Contains(merged.SuspiciousTLDs, ".zip") {
			t.Error("expected .zip in suspicious TLDs")
		}
	})

	t.Run("Groups", func(t *testing.T) {
		if !slices.Contains(merged.ScamPatterns[1].Keywords, "jackpot") {
			t.Error("existing group not extended")
		}
		last := merged.ScamPatterns[len(merged.ScamPatterns)-1]
		if last.Name != "investment" || last.Label != "Investment Scam" {
			t.Errorf("new group not appended: %+v", last)
		}
	})

	t.Run("Size", func(t *testing.T) {
		if merged.Size() != base.Size()+4 {
			t.Errorf("expected size %d, got %d", base.Size()+4, merged.Size())
		}
	})
}

func TestLoad(t *testing.T) {
	t.Run("EmptyPath", func(t *testing.T) {
		lists, err := Load("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if lists != Default() {
			t.Error("expected built-in tables")
		}
	})

	t.Run("File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "lists.yaml")
		doc := `
trustedDomains:
  - example.org
regionalPatterns:
  - name: brazil
    label: Brazil
    keywords: [pix, boleto]
`
		if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
			t.Fatalf("failed to write file: %v", err)
		}

		lists, err := Load(path)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if !slices.Contains(lists.TrustedDomains, "example.org") {
			t.Error("trusted domain not merged")
		}
		last := lists.RegionalPatterns[len(lists.RegionalPatterns)-1]
		if last.Name != "brazil" || len(last.Keywords) != 2 {
			t.Errorf("regional group not merged: %+v", last)
		}
	})

	t.Run("MissingFile", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("InvalidYAML", func(t *testing.T) {
		if _, err := Parse([]byte("trustedDomains: [unterminated")); err == nil {
			t.Error("expected parse error")
		}
	})
}
