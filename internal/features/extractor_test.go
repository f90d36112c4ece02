package features

import (
	"math"
	"strings"
	"testing"

	"github.com/opensource-finance/veritas/internal/threatintel"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestExtractScenarios(t *testing.T) {
	ex := NewExtractor(nil)

	t.Run("TrustedHTTPS", func(t *testing.T) {
		fs := ex.Extract("https://google.com")

		if fs.HasError() {
			t.Fatalf("unexpected error: %s", fs.Error)
		}
		if !fs.HasHTTPS || fs.IsHTTPOnly {
			t.Error("expected https without plain http")
		}
		if !fs.IsTrustedDomain {
			t.Error("google.com should be trusted")
		}
		if fs.RegisteredDomain != "google.com" {
			t.Errorf("expected registered domain google.com, got %q", fs.RegisteredDomain)
		}
		// The confusable-run heuristic matches the "m" in ".com".
		if !fs.IsHomograph {
			t.Error("expected homograph heuristic to fire on .com host")
		}
		if fs.SpecialCharCount != 4 {
			t.Errorf("expected 4 special chars, got %d", fs.SpecialCharCount)
		}
		if !approx(fs.BaseScore, 0.2/Normalization) {
			t.Errorf("expected base score %.4f, got %.4f", 0.2/Normalization, fs.BaseScore)
		}
	})

	t.Run("IPLiteralWithUrgency", func(t *testing.T) {
		fs := ex.Extract("http://192.168.1.1/login?verify=confirm")

		if !fs.IsIPAddress {
			t.Error("expected IP address flag")
		}
		if fs.UrgencyKeywords != 2 {
			t.Errorf("expected 2 urgency keywords, got %d", fs.UrgencyKeywords)
		}
		if fs.HasHTTPS || !fs.IsHTTPOnly {
			t.Error("expected plain http")
		}
		if fs.Scores.HTTPS != 0.3 || fs.Scores.PlainHTTP != 0.15 {
			t.Errorf("unexpected transport scores %+v", fs.Scores)
		}
		if fs.SpecialCharCount != 9 {
			t.Errorf("expected 9 special chars, got %d", fs.SpecialCharCount)
		}
		if fs.SubdomainCount != 4 {
			t.Errorf("expected 4 labels, got %d", fs.SubdomainCount)
		}
		if !fs.IsRecentlyRegisteredIndicator {
			t.Error("numeric first label should count as recently registered")
		}
		if fs.HasSuspiciousParams {
			t.Error("verify=confirm is not a suspicious parameter")
		}
		if !approx(fs.BaseScore, 0.5457/Normalization) {
			t.Errorf("expected base score %.4f, got %.4f", 0.5457/Normalization, fs.BaseScore)
		}
	})

	t.Run("LookalikeOnSuspiciousTLD", func(t *testing.T) {
		fs := ex.Extract("https://paypa1-secure-login.xyz/confirm")

		if fs.PhishingPatterns != 1 {
			t.Errorf("expected 1 phishing pattern, got %d", fs.PhishingPatterns)
		}
		if !fs.HasSuspiciousTLD {
			t.Error("expected suspicious TLD")
		}
		if fs.UrgencyKeywords != 1 {
			t.Errorf("expected 1 urgency keyword, got %d", fs.UrgencyKeywords)
		}
		if !fs.HasSuspiciousSubdomain {
			t.Error("expected suspicious subdomain keyword")
		}
		if fs.FinancialKeywords != 0 || fs.SecurityThreatKeywords != 0 {
			t.Errorf("unexpected keyword counts: financial=%d security=%d", fs.FinancialKeywords, fs.SecurityThreatKeywords)
		}
		if fs.IsHomograph {
			t.Error("host has no confusable runs")
		}
		if !approx(fs.BaseScore, 0.3921/Normalization) {
			t.Errorf("expected base score %.4f, got %.4f", 0.3921/Normalization, fs.BaseScore)
		}
	})
}

func TestExtractInvalid(t *testing.T) {
	ex := NewExtractor(nil)

	inputs := []string{
		"just some random text",
		"",
		"   ",
		"javascript:alert(1)",
		"http://exa mple.com",
		"/relative/path",
		"mailto:someone@example.com",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			fs := ex.Extract(in)
			if !fs.HasError() {
				t.Fatalf("expected error for %q", in)
			}
			if fs.BaseScore != InvalidBaseScore {
				t.Errorf("expected base score %.2f, got %.2f", InvalidBaseScore, fs.BaseScore)
			}
		})
	}
}

func TestExtractSignals(t *testing.T) {
	ex := NewExtractor(nil)

	t.Run("Punycode", func(t *testing.T) {
		fs := ex.Extract("https://xn--80ak6aa92e.com/")
		if !fs.IsHomograph {
			t.Error("punycode host should be flagged")
		}
		if strings.HasPrefix(fs.DisplayHost, "xn--") {
			t.Errorf("expected decoded display host, got %q", fs.DisplayHost)
		}
	})

	t.Run("Shortener", func(t *testing.T) {
		if !ex.Extract("https://bit.ly/3xYz").HasShortener {
			t.Error("bit.ly should be a shortener")
		}
		if ex.Extract("https://fedex.com/track").HasShortener {
			t.Error("fedex.com must not match x.co")
		}
		if ex.Extract("https://microsoft.com/login").HasShortener {
			t.Error("microsoft.com must not match t.co")
		}
		if !ex.Extract("https://www.bit.ly/3xYz").HasShortener {
			t.Error("subdomains of a shortener should match")
		}
	})

	t.Run("AtSymbolHidesHost", func(t *testing.T) {
		fs := ex.Extract("https://google.com@evil.tk/")
		if !fs.HasAtSymbol {
			t.Error("expected @ flag")
		}
		if fs.Host != "evil.tk" {
			t.Errorf("expected host evil.tk, got %s", fs.Host)
		}
		if fs.IsTrustedDomain {
			t.Error("userinfo must not make the host trusted")
		}
		if !fs.HasSuspiciousTLD {
			t.Error("expected suspicious TLD")
		}
	})

	t.Run("PiracySite", func(t *testing.T) {
		fs := ex.Extract("https://www.movierulz.wtf/telugu-2025")
		if !fs.IsKnownPiracySite {
			t.Fatal("expected known piracy site")
		}
		if fs.Scores.IllegalContent != 0.95 {
			t.Errorf("expected 0.95, got %.2f", fs.Scores.IllegalContent)
		}

		fs = ex.Extract("https://example.org/free-movies/torrent")
		if fs.IsKnownPiracySite {
			t.Error("generic keywords are not a known site")
		}
		if fs.IllegalContentKeywords != 2 || fs.Scores.IllegalContent != 0.65 {
			t.Errorf("expected 2 keywords scoring 0.65, got %d / %.2f", fs.IllegalContentKeywords, fs.Scores.IllegalContent)
		}
	})

	t.Run("ScamType", func(t *testing.T) {
		fs := ex.Extract("https://win-prize-cash.example/claim")
		if fs.DetectedScamType != "Lottery/Prize Scam" {
			t.Errorf("expected lottery scam, got %q", fs.DetectedScamType)
		}
		if fs.ScamTypeMatches != 3 {
			t.Errorf("expected 3 matches, got %d", fs.ScamTypeMatches)
		}
		if !approx(fs.Scores.ScamType, 0.45) {
			t.Errorf("expected 0.45, got %.4f", fs.Scores.ScamType)
		}
	})

	t.Run("RedirectChain", func(t *testing.T) {
		fs := ex.Extract("https://a.example/1/2/3/4/5/6?redirect=x")
		if !fs.HasRedirectChain {
			t.Error("expected redirect chain")
		}
		if !fs.HasSuspiciousParams {
			t.Error("expected suspicious params")
		}
		if fs.PathDepth != 6 {
			t.Errorf("expected depth 6, got %d", fs.PathDepth)
		}
	})

	t.Run("Regional", func(t *testing.T) {
		fs := ex.Extract("https://sbi-kyc-update.top/aadhaar")
		if !fs.InternationalThreatMatch || fs.DetectedRegion != "India" {
			t.Errorf("expected India match, got %q", fs.DetectedRegion)
		}
		if fs.RegionalKeywords != 3 {
			t.Errorf("expected 3 regional keywords, got %d", fs.RegionalKeywords)
		}
		if !approx(fs.Scores.RegionalThreat, 0.75) {
			t.Errorf("expected capped 0.75, got %.4f", fs.Scores.RegionalThreat)
		}
	})

	t.Run("ShortURL", func(t *testing.T) {
		fs := ex.Extract("http://a")
		if fs.Scores.Length != 0.12 {
			t.Errorf("expected short length score, got %.2f", fs.Scores.Length)
		}
		if !fs.IsRecentlyRegisteredIndicator {
			t.Error("short host should count as recently registered")
		}
	})

	t.Run("LongURL", func(t *testing.T) {
		fs := ex.Extract("https://example.org/" + strings.Repeat("a", 200))
		if fs.Scores.Length != 0.18 {
			t.Errorf("expected long length score, got %.2f", fs.Scores.Length)
		}
	})

	t.Run("HugeInput", func(t *testing.T) {
		fs := ex.Extract("https://example.org/?q=" + strings.Repeat("bank-", 200000))
		if fs.BaseScore < 0 || fs.BaseScore > 1 {
			t.Errorf("base score out of range: %f", fs.BaseScore)
		}
	})
}

func TestCappedScoresMonotonic(t *testing.T) {
	ex := NewExtractor(nil)
	keywords := threatintel.Default().FinancialKeywords

	prev := -1.0
	for i := 0; i <= len(keywords); i++ {
		fs := ex.Extract("https://example.org/" + strings.Join(keywords[:i], "/"))
		if fs.Scores.Financial < prev {
			t.Fatalf("financial score decreased at %d keywords: %.2f < %.2f", i, fs.Scores.Financial, prev)
		}
		if fs.Scores.Financial > 0.7 {
			t.Fatalf("financial score exceeded cap: %.2f", fs.Scores.Financial)
		}
		prev = fs.Scores.Financial
	}
	if prev != 0.7 {
		t.Errorf("expected cap to be reached, got %.2f", prev)
	}
}

func TestCustomLists(t *testing.T) {
	lists := threatintel.Default().Merge(&threatintel.Lists{PhishingPatterns: []string{"netfl1x"}})
	ex := NewExtractor(lists)

	if ex.Extract("https://netfl1x-billing.example/").PhishingPatterns != 1 {
		t.Error("merged pattern not used")
	}
	if NewExtractor(nil).Extract("https://netfl1x-billing.example/").PhishingPatterns != 0 {
		t.Error("built-in tables should not contain the custom pattern")
	}
}
