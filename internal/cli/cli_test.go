package cli

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/opensource-finance/veritas/internal/analyzer"
	"github.com/opensource-finance/veritas/internal/api"
	"github.com/opensource-finance/veritas/internal/domain"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := api.NewServer(domain.ServerConfig{}, api.Options{
		Analyzer: analyzer.New(analyzer.Dependencies{}, domain.AnalyzerConfig{}),
	})
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRoot("test")
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func decodeLines(t *testing.T, s string) []scanOutput {
	t.Helper()
	var outs []scanOutput
	dec := json.NewDecoder(strings.NewReader(s))
	for dec.More() {
		var o scanOutput
		if err := dec.Decode(&o); err != nil {
			t.Fatalf("failed to decode output: %v\n%s", err, s)
		}
		outs = append(outs, o)
	}
	return outs
}

func TestScanCommand(t *testing.T) {
	t.Run("MultipleInputs", func(t *testing.T) {
		out, err := run(t, "scan", "https://google.com", "https://paypa1-secure-login.xyz/confirm")
		if err != nil {
			t.Fatalf("scan failed: %v", err)
		}

		results := decodeLines(t, out)
		if len(results) != 2 {
			t.Fatalf("expected 2 results, got %d", len(results))
		}
		if results[0].Result.RiskScore != 33 || results[0].Result.Verdict != domain.VerdictLow {
			t.Errorf("google.com: got %d/%s", results[0].Result.RiskScore, results[0].Result.Verdict)
		}
		if results[1].Input != "https://paypa1-secure-login.xyz/confirm" || results[1].Result.RiskScore != 75 {
			t.Errorf("lookalike: got %s %d", results[1].Input, results[1].Result.RiskScore)
		}
	})

	t.Run("RequiresInput", func(t *testing.T) {
		if _, err := run(t, "scan"); err == nil {
			t.Error("expected error without arguments")
		}
	})

	t.Run("MissingListsFile", func(t *testing.T) {
		_, err := run(t, "scan", "--lists", filepath.Join(t.TempDir(), "missing.yaml"), "https://google.com")
		if err == nil {
			t.Error("expected error for missing lists file")
		}
	})
}

func TestRemoteCommand(t *testing.T) {
	ts := newTestServer(t)

	t.Run("URL", func(t *testing.T) {
		out, err := run(t, "--server", ts.URL, "remote", "http://192.168.1.1/login?verify=confirm")
		if err != nil {
			t.Fatalf("remote failed: %v", err)
		}
		results := decodeLines(t, out)
		if len(results) != 1 || results[0].Result.RiskScore != 100 {
			t.Errorf("unexpected output: %s", out)
		}
	})

	t.Run("Message", func(t *testing.T) {
		out, err := run(t, "--server", ts.URL, "remote", "--message", "just", "some", "random", "text")
		if err != nil {
			t.Fatalf("remote failed: %v", err)
		}
		results := decodeLines(t, out)
		if len(results) != 1 || results[0].Input != "just some random text" || results[0].Result.RiskScore != 20 {
			t.Errorf("unexpected output: %s", out)
		}
	})

	t.Run("ServerError", func(t *testing.T) {
		_, err := run(t, "--server", ts.URL, "remote", " ")
		if err == nil || !strings.Contains(err.Error(), "400") {
			t.Errorf("expected 400 error, got %v", err)
		}
	})
}

func TestReadSamples(t *testing.T) {
	input := strings.Join([]string{
		"url,label",
		"https://google.com,benign",
		"http://192.168.1.1/login, PHISHING",
		"https://example.org,unknown",
		",phishing",
		"https://only-one-column.example",
		"https://bank.example,1",
	}, "\n")

	samples, skipped, err := readSamples(strings.NewReader(input), 0)
	if err != nil {
		t.Fatalf("readSamples failed: %v", err)
	}
	if len(samples) != 3 {
		t.Fatalf("expected 3 samples, got %d: %+v", len(samples), samples)
	}
	if skipped != 3 {
		t.Errorf("expected 3 skipped rows, got %d", skipped)
	}
	if samples[0].Phishing || !samples[1].Phishing || !samples[2].Phishing {
		t.Errorf("unexpected labels: %+v", samples)
	}
	if samples[1].URL != "http://192.168.1.1/login" {
		t.Errorf("unexpected URL %q", samples[1].URL)
	}

	t.Run("NoHeader", func(t *testing.T) {
		samples, _, _ := readSamples(strings.NewReader("https://a.example,benign\nhttps://b.example,phishing\n"), 0)
		if len(samples) != 2 {
			t.Errorf("expected 2 samples, got %d", len(samples))
		}
	})

	t.Run("Limit", func(t *testing.T) {
		samples, _, _ := readSamples(strings.NewReader(input), 1)
		if len(samples) != 1 {
			t.Errorf("expected 1 sample, got %d", len(samples))
		}
	})
}

func TestBenchResultMetrics(t *testing.T) {
	r := &benchResult{TruePositives: 8, FalsePositives: 2, TrueNegatives: 85, FalseNegatives: 5}

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"Precision", r.Precision(), 0.8},
		{"Recall", r.Recall(), 8.0 / 13.0},
		{"F1", r.F1(), 2 * 0.8 * (8.0 / 13.0) / (0.8 + 8.0/13.0)},
		{"Accuracy", r.Accuracy(), 0.93},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if math.Abs(tt.got-tt.want) > 1e-9 {
				t.Errorf("expected %.6f, got %.6f", tt.want, tt.got)
			}
		})
	}

	t.Run("Empty", func(t *testing.T) {
		empty := &benchResult{}
		if empty.Precision() != 0 || empty.Recall() != 0 || empty.F1() != 0 || empty.Accuracy() != 0 {
			t.Error("expected zero metrics for empty result")
		}
	})
}

func TestFlagged(t *testing.T) {
	tests := []struct {
		name    string
		score   int
		verdict domain.Verdict
		cutoff  int
		want    bool
	}{
		{"HighVerdict", 70, domain.VerdictHigh, 0, true},
		{"MediumVerdict", 50, domain.VerdictMedium, 0, false},
		{"CutoffReached", 50, domain.VerdictMedium, 50, true},
		{"BelowCutoff", 70, domain.VerdictHigh, 80, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := flagged(&domain.AnalysisResult{RiskScore: tt.score, Verdict: tt.verdict}, tt.cutoff)
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestBenchCommand(t *testing.T) {
	ts := newTestServer(t)

	file := filepath.Join(t.TempDir(), "urls.csv")
	csvData := strings.Join([]string{
		"url,label",
		"https://google.com,benign",
		"http://192.168.1.1/login?verify=confirm,phishing",
		"https://paypa1-secure-login.xyz/confirm,phishing",
		"just some random text,phishing",
	}, "\n")
	if err := os.WriteFile(file, []byte(csvData), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "--server", ts.URL, "bench", "--file", file, "--workers", "2")
	if err != nil {
		t.Fatalf("bench failed: %v\n%s", err, out)
	}

	for _, want := range []string{
		"Loaded 4 samples",
		"Actual  phishing        2         1   (TP, FN)",
		"benign          0         1   (FP, TN)",
		"Precision:  1.0000",
		"Accuracy:   0.7500",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q\n%s", want, out)
		}
	}

	t.Run("RequiresFile", func(t *testing.T) {
		if _, err := run(t, "--server", ts.URL, "bench"); err == nil {
			t.Error("expected error without --file")
		}
	})

	t.Run("ServerDown", func(t *testing.T) {
		if _, err := run(t, "--server", "http://127.0.0.1:1", "bench", "--file", file); err == nil {
			t.Error("expected error when server is unreachable")
		}
	})
}
