// Package worker provides async scan processing over the event bus.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opensource-finance/veritas/internal/bus"
	"github.com/opensource-finance/veritas/internal/domain"
	"github.com/opensource-finance/veritas/internal/scoring"
)

// ErrEmptyCandidate is returned for scan requests with nothing to analyze.
var ErrEmptyCandidate = errors.New("scan request has no candidate")

// Scanner analyzes one candidate. *analyzer.Analyzer satisfies it.
type Scanner interface {
	Analyze(ctx context.Context, candidate string) *domain.AnalysisResult
}

// Worker consumes scan requests from the EventBus, analyzes them and
// publishes completed scans and alerts.
type Worker struct {
	bus     domain.EventBus
	scanner Scanner

	mu            sync.Mutex
	subscriptions []domain.Subscription
	sem           chan struct{}
	stopped       bool
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc

	processed atomic.Int64
	alerts    atomic.Int64
	failed    atomic.Int64
}

// Config holds worker configuration.
type Config struct {
	// Concurrency bounds in-flight scans. Defaults to 10.
	Concurrency int
}

// NewWorker creates a new async worker.
func NewWorker(eventBus domain.EventBus, scanner Scanner) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:     eventBus,
		scanner: scanner,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start subscribes to scan requests.
func (w *Worker) Start(cfg Config) error {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 10
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.sem = make(chan struct{}, cfg.Concurrency)

	sub, err := w.bus.Subscribe(w.ctx, domain.TopicScanRequested, w.handleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", domain.TopicScanRequested, err)
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("scan worker started",
		"topic", domain.TopicScanRequested,
		"concurrency", cfg.Concurrency,
	)
	return nil
}

// handleMessage hands the request to a bounded pool so a slow scan does
// not stall the subscription.
func (w *Worker) handleMessage(ctx context.Context, msg *domain.Message) error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.wg.Add(1)
	w.mu.Unlock()

	select {
	case w.sem <- struct{}{}:
	case <-w.ctx.Done():
		w.wg.Done()
		return w.ctx.Err()
	}

	go func() {
		defer func() {
			<-w.sem
			w.wg.Done()
		}()
		if err := w.processScan(w.ctx, msg); err != nil {
			w.failed.Add(1)
			slog.Error("scan failed",
				"message_id", msg.ID,
				"error", err,
			)
		}
	}()
	return nil
}

// processScan analyzes one request and publishes the outcome.
func (w *Worker) processScan(ctx context.Context, msg *domain.Message) error {
	start := time.Now()

	var req domain.ScanRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		return fmt.Errorf("failed to parse scan request: %w", err)
	}
	if strings.TrimSpace(req.Candidate) == "" {
		return ErrEmptyCandidate
	}
	if req.ScanID == "" {
		req.ScanID = msg.ID
	}

	result := w.scanner.Analyze(ctx, req.Candidate)
	w.processed.Add(1)

	payload, err := json.Marshal(&domain.ScanCompleted{
		ScanID:    req.ScanID,
		Candidate: req.Candidate,
		Result:    result,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal scan result: %w", err)
	}

	if err := bus.Reply(ctx, w.bus, msg, payload); err != nil {
		slog.Error("failed to reply to scan request",
			"scan_id", req.ScanID,
			"error", err,
		)
	}

	if err := w.bus.Publish(ctx, domain.TopicScanCompleted, payload); err != nil {
		slog.Error("failed to publish scan result",
			"scan_id", req.ScanID,
			"error", err,
		)
	}

	if scoring.ShouldAlert(result) {
		w.alerts.Add(1)
		if err := w.bus.Publish(ctx, domain.TopicAlert, payload); err != nil {
			slog.Error("failed to publish alert",
				"scan_id", req.ScanID,
				"error", err,
			)
		}
	}

	slog.Info("scan processed",
		"scan_id", req.ScanID,
		"source", req.Source,
		"verdict", result.Verdict,
		"score", result.RiskScore,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// Stop unsubscribes and waits for in-flight scans.
func (w *Worker) Stop() error {
	w.mu.Lock()
	w.stopped = true
	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil
	w.mu.Unlock()

	w.wg.Wait()
	w.cancel()

	slog.Info("scan worker stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
	Processed         int64    `json:"processed"`
	Alerts            int64    `json:"alerts"`
	Failed            int64    `json:"failed"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()

	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
		Processed:         w.processed.Load(),
		Alerts:            w.alerts.Load(),
		Failed:            w.failed.Load(),
	}
}
