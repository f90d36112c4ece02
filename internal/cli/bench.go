package cli

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/opensource-finance/veritas/internal/domain"
)

// sample is one labelled row of a benchmark CSV.
type sample struct {
	URL      string
	Phishing bool
}

// benchResult tracks benchmark outcomes. Positive means phishing.
type benchResult struct {
	TruePositives  int64
	FalsePositives int64
	TrueNegatives  int64
	FalseNegatives int64

	TotalProcessed int64
	TotalErrors    int64

	ProcessingTimeMs int64
}

func (r *benchResult) Precision() float64 {
	return ratio(r.TruePositives, r.TruePositives+r.FalsePositives)
}

func (r *benchResult) Recall() float64 {
	return ratio(r.TruePositives, r.TruePositives+r.FalseNegatives)
}

func (r *benchResult) F1() float64 {
	p, rc := r.Precision(), r.Recall()
	if p+rc == 0 {
		return 0
	}
	return 2 * p * rc / (p + rc)
}

func (r *benchResult) Accuracy() float64 {
	total := r.TruePositives + r.TrueNegatives + r.FalsePositives + r.FalseNegatives
	return ratio(r.TruePositives+r.TrueNegatives, total)
}

func (r *benchResult) record(predicted, actual bool) {
	switch {
	case predicted && actual:
		atomic.AddInt64(&r.TruePositives, 1)
	case predicted && !actual:
		atomic.AddInt64(&r.FalsePositives, 1)
	case !predicted && !actual:
		atomic.AddInt64(&r.TrueNegatives, 1)
	default:
		atomic.AddInt64(&r.FalseNegatives, 1)
	}
}

func ratio(n, d int64) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}

func newBenchCmd() *cobra.Command {
	var (
		file    string
		workers int
		limit   int
		cutoff  int
		verbose bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "bench --file urls.csv",
		Short: "Measure detection quality against a labelled URL list",
		Long: `Send every URL in a labelled CSV to a running server and report the
confusion matrix, precision, recall and F1.

The CSV has two columns, url and label, where label is phishing or benign.
A header row is optional. A URL counts as flagged when its verdict is high,
or when --cutoff is set and its score reaches the cutoff.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return errors.New("--file is required")
			}
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			samples, skipped, err := readSamples(f, limit)
			if err != nil {
				return err
			}
			if len(samples) == 0 {
				return fmt.Errorf("no labelled rows in %s", file)
			}

			out := cmd.OutOrStdout()
			c := newClient(serverAddr(cmd), timeout)
			if err := c.health(cmd.Context()); err != nil {
				return fmt.Errorf("veritas not reachable at %s: %w", c.baseURL, err)
			}

			fmt.Fprintf(out, "Loaded %d samples (%d rows skipped), running with %d workers\n", len(samples), skipped, workers)

			start := time.Now()
			res := runBench(cmd.Context(), c, samples, workers, cutoff, verboseWriter(out, verbose))
			printResults(out, res, time.Since(start))
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "CSV file with url,label rows")
	cmd.Flags().IntVar(&workers, "workers", 10, "Number of concurrent workers")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum rows to process (0 = all)")
	cmd.Flags().IntVar(&cutoff, "cutoff", 0, "Flag URLs whose score is at least this value (0 = high verdict only)")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Print each result")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "HTTP request timeout")
	return cmd
}

func verboseWriter(w io.Writer, verbose bool) io.Writer {
	if verbose {
		return w
	}
	return nil
}

// readSamples parses url,label rows. Rows with an unknown label or an empty
// URL are skipped and counted.
func readSamples(r io.Reader, limit int) ([]sample, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var (
		samples []sample
		skipped int
		first   = true
	)

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				skipped++
				continue
			}
			return nil, skipped, fmt.Errorf("failed to read samples: %w", err)
		}

		isHeader := first && len(record) > 0 && strings.EqualFold(strings.TrimSpace(record[0]), "url")
		first = false
		if isHeader {
			continue
		}

		if len(record) < 2 || strings.TrimSpace(record[0]) == "" {
			skipped++
			continue
		}

		phishing, ok := parseLabel(record[1])
		if !ok {
			skipped++
			continue
		}

		samples = append(samples, sample{URL: strings.TrimSpace(record[0]), Phishing: phishing})
		if limit > 0 && len(samples) >= limit {
			break
		}
	}

	return samples, skipped, nil
}

func parseLabel(s string) (phishing bool, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "phishing", "malicious", "scam", "1":
		return true, true
	case "benign", "legitimate", "safe", "0":
		return false, true
	}
	return false, false
}

// flagged reports whether result counts as a positive prediction.
func flagged(result *domain.AnalysisResult, cutoff int) bool {
	if cutoff > 0 {
		return result.RiskScore >= cutoff
	}
	return result.Verdict == domain.VerdictHigh
}

func runBench(ctx context.Context, c *client, samples []sample, numWorkers, cutoff int, verbose io.Writer) *benchResult {
	if numWorkers < 1 {
		numWorkers = 1
	}
	res := &benchResult{}

	var printMu sync.Mutex
	work := make(chan sample, 100)
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for s := range work {
				start := time.Now()
				result, err := c.analyze(ctx, analyzeRequest{URL: s.URL})
				atomic.AddInt64(&res.ProcessingTimeMs, time.Since(start).Milliseconds())
				atomic.AddInt64(&res.TotalProcessed, 1)

				if err != nil {
					atomic.AddInt64(&res.TotalErrors, 1)
					if verbose != nil {
						printMu.Lock()
						fmt.Fprintf(verbose, "ERROR: %s -> %v\n", s.URL, err)
						printMu.Unlock()
					}
					continue
				}

				predicted := flagged(result, cutoff)
				res.record(predicted, s.Phishing)

				if verbose != nil {
					mark := "ok "
					if predicted != s.Phishing {
						mark = "MISS"
					}
					printMu.Lock()
					fmt.Fprintf(verbose, "%-4s %3d %-6s phishing=%-5v %s\n", mark, result.RiskScore, result.Verdict, s.Phishing, s.URL)
					printMu.Unlock()
				}
			}
		}()
	}

	for _, s := range samples {
		work <- s
	}
	close(work)
	wg.Wait()

	return res
}

func printResults(w io.Writer, r *benchResult, duration time.Duration) {
	fmt.Fprintln(w, "\nBENCHMARK RESULTS")
	fmt.Fprintf(w, "   Total Processed:  %d\n", r.TotalProcessed)
	fmt.Fprintf(w, "   Phishing:         %d\n", r.TruePositives+r.FalseNegatives)
	fmt.Fprintf(w, "   Benign:           %d\n", r.TrueNegatives+r.FalsePositives)
	fmt.Fprintf(w, "   Errors:           %d\n", r.TotalErrors)

	fmt.Fprintln(w, "\nCONFUSION MATRIX")
	fmt.Fprintln(w, "                         Predicted")
	fmt.Fprintln(w, "                    flagged     clean")
	fmt.Fprintf(w, "   Actual  phishing %8d  %8d   (TP, FN)\n", r.TruePositives, r.FalseNegatives)
	fmt.Fprintf(w, "           benign   %8d  %8d   (FP, TN)\n", r.FalsePositives, r.TrueNegatives)

	fmt.Fprintln(w, "\nDETECTION METRICS")
	fmt.Fprintf(w, "   Precision:  %.4f\n", r.Precision())
	fmt.Fprintf(w, "   Recall:     %.4f\n", r.Recall())
	fmt.Fprintf(w, "   F1-Score:   %.4f\n", r.F1())
	fmt.Fprintf(w, "   Accuracy:   %.4f\n", r.Accuracy())

	fmt.Fprintln(w, "\nPERFORMANCE")
	fmt.Fprintf(w, "   Total Duration:   %v\n", duration.Round(time.Millisecond))
	if r.TotalProcessed > 0 && duration > 0 {
		fmt.Fprintf(w, "   Avg Latency:      %.2f ms\n", float64(r.ProcessingTimeMs)/float64(r.TotalProcessed))
		fmt.Fprintf(w, "   Throughput:       %.2f req/sec\n", float64(r.TotalProcessed)/duration.Seconds())
	}
}
