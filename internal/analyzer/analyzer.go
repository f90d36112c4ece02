// Package analyzer implements the Analyze pipeline: known-threat lookup,
// feature extraction, scoring, signal rules and the scan log.
package analyzer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/opensource-finance/veritas/internal/domain"
	"github.com/opensource-finance/veritas/internal/features"
	"github.com/opensource-finance/veritas/internal/metrics"
	"github.com/opensource-finance/veritas/internal/rules"
	"github.com/opensource-finance/veritas/internal/scoring"
)

const defaultLookupTimeout = 2 * time.Second

// Dependencies are the collaborators of an Analyzer. Only Extractor and
// Processor are required; any other field may be nil.
type Dependencies struct {
	Extractor *features.Extractor
	Processor *scoring.Processor
	Engine    *rules.Engine
	Threats   domain.ThreatStore
	ScanLog   domain.ScanLog
	Cache     domain.Cache
	Metrics   *metrics.Metrics
}

// Analyzer scores candidates. It is safe for concurrent use.
type Analyzer struct {
	extractor *features.Extractor
	processor *scoring.Processor
	engine    *rules.Engine
	threats   domain.ThreatStore
	scanLog   domain.ScanLog
	cache     domain.Cache
	metrics   *metrics.Metrics

	breaker       *gobreaker.CircuitBreaker
	lookupTimeout time.Duration
	cacheTTL      time.Duration
	cacheGen      atomic.Uint64
	tracer        trace.Tracer
}

// New creates an Analyzer.
func New(deps Dependencies, cfg domain.AnalyzerConfig) *Analyzer {
	if deps.Extractor == nil {
		deps.Extractor = features.NewExtractor(nil)
	}
	if deps.Processor == nil {
		deps.Processor = scoring.NewProcessor()
	}
	if cfg.HighCutoff > 0 {
		deps.Processor.HighCutoff = cfg.HighCutoff
	}
	if cfg.MediumCutoff > 0 {
		deps.Processor.MediumCutoff = cfg.MediumCutoff
	}

	lookupTimeout := cfg.LookupTimeout
	if lookupTimeout <= 0 {
		lookupTimeout = defaultLookupTimeout
	}

	return &Analyzer{
		extractor:     deps.Extractor,
		processor:     deps.Processor,
		engine:        deps.Engine,
		threats:       deps.Threats,
		scanLog:       deps.ScanLog,
		cache:         deps.Cache,
		metrics:       deps.Metrics,
		breaker:       newBreaker("threat-store"),
		lookupTimeout: lookupTimeout,
		cacheTTL:      cfg.ResultCacheTTL,
		tracer:        otel.Tracer("veritas/analyzer"),
	}
}

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
		// The caller giving up says nothing about the store's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})
}

// Analyze scores candidate. It never fails: collaborator errors degrade to a
// feature-only analysis and internal faults to the neutral fallback result.
func (a *Analyzer) Analyze(ctx context.Context, candidate string) (result *domain.AnalysisResult) {
	start := time.Now()
	ctx, span := a.tracer.Start(ctx, "analyzer.Analyze")
	defer span.End()

	path := metrics.PathFeatures

	defer func() {
		if r := recover(); r != nil {
			slog.Error("analysis failed", "panic", fmt.Sprint(r))
			result = scoring.Fallback()
			path = metrics.PathFallback
		}

		span.SetAttributes(
			attribute.String("analysis.path", path),
			attribute.Int("analysis.risk_score", result.RiskScore),
			attribute.String("analysis.verdict", string(result.Verdict)),
		)
		a.metrics.ObserveAnalysis(path, string(result.Verdict), result.RiskScore, time.Since(start))
		a.appendScanLog(ctx, candidate, result)
	}()

	if rec := a.lookup(ctx, candidate); rec != nil {
		path = metrics.PathKnownThreat
		return a.processor.KnownThreat(rec)
	}

	key := a.cacheKey(candidate)
	if cached := a.cached(ctx, key); cached != nil {
		path = metrics.PathCached
		return cached
	}

	fs := a.extractor.Extract(candidate)
	if fs.HasError() {
		path = metrics.PathInvalid
		return a.processor.InvalidInput(fs)
	}

	var matches []domain.RuleMatch
	complete := true
	if a.engine != nil {
		var err error
		matches, err = a.engine.Evaluate(ctx, candidate, fs)
		if err != nil {
			slog.Debug("signal rules not fully evaluated", "error", err)
			complete = false
		}
	}

	result = a.processor.Process(&scoring.DecisionInput{
		Features:    fs,
		RuleMatches: matches,
	})

	// A cancelled caller may have skipped rules or the lookup; only
	// complete analyses are cached.
	if complete && ctx.Err() == nil {
		a.store(ctx, key, result)
	}

	return result
}

// InvalidateCache makes every previously cached result unreachable.
func (a *Analyzer) InvalidateCache() {
	a.cacheGen.Add(1)
}

// Extractor returns the feature extractor used by the analyzer.
func (a *Analyzer) Extractor() *features.Extractor {
	return a.extractor
}

// lookup queries the ThreatStore. Errors, timeouts and an open breaker count as no match.
func (a *Analyzer) lookup(ctx context.Context, candidate string) *domain.KnownThreatRecord {
	trimmed := strings.TrimSpace(candidate)
	if a.threats == nil || trimmed == "" {
		return nil
	}

	if ctx.Err() != nil {
		return nil
	}

	lookupCtx, cancel := context.WithTimeout(ctx, a.lookupTimeout)
	defer cancel()

	out, err := a.breaker.Execute(func() (interface{}, error) {
		rec, err := a.threats.FindThreat(lookupCtx, trimmed)
		if err != nil && ctx.Err() != nil {
			// Report the caller's cancellation, not the store's failure.
			return nil, context.Canceled
		}
		return rec, err
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		slog.Warn("threat lookup failed", "error", err)
		a.metrics.LookupFailed()
		return nil
	}

	rec, _ := out.(*domain.KnownThreatRecord)
	return rec
}

func (a *Analyzer) appendScanLog(ctx context.Context, candidate string, result *domain.AnalysisResult) {
	if a.scanLog == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Warn("scan log write panicked", "panic", fmt.Sprint(r))
			a.metrics.ScanLogFailed()
		}
	}()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.lookupTimeout)
	defer cancel()

	entry := &domain.ScanLogEntry{
		ID:        uuid.New().String(),
		URL:       candidate,
		RiskScore: result.RiskScore,
		Verdict:   result.Verdict,
		Timestamp: time.Now().UTC(),
	}
	if err := a.scanLog.AppendScanLog(ctx, entry); err != nil {
		slog.Warn("failed to append scan log", "error", err)
		a.metrics.ScanLogFailed()
	}
}

func (a *Analyzer) cacheKey(candidate string) string {
	var ruleGen uint64
	if a.engine != nil {
		ruleGen = a.engine.Generation()
	}
	sum := sha256.Sum256([]byte(candidate))
	return fmt.Sprintf("analysis:%d:%d:%s", a.cacheGen.Load(), ruleGen, hex.EncodeToString(sum[:]))
}

func (a *Analyzer) cached(ctx context.Context, key string) *domain.AnalysisResult {
	if a.cache == nil || a.cacheTTL <= 0 {
		return nil
	}

	data, err := a.cache.Get(ctx, key)
	if err != nil || data == nil {
		return nil
	}

	var result domain.AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		slog.Debug("discarding unreadable cached result", "error", err)
		return nil
	}
	return &result
}

func (a *Analyzer) store(ctx context.Context, key string, result *domain.AnalysisResult) {
	if a.cache == nil || a.cacheTTL <= 0 {
		return
	}

	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := a.cache.Set(ctx, key, data, a.cacheTTL); err != nil {
		slog.Debug("failed to cache analysis result", "error", err)
	}
}
