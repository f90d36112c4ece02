package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/opensource-finance/veritas/internal/analyzer"
	"github.com/opensource-finance/veritas/internal/domain"
	"github.com/opensource-finance/veritas/internal/repository"
	"github.com/opensource-finance/veritas/internal/rules"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	analyzer *analyzer.Analyzer
	repo     domain.Repository
	cache    domain.Cache
	bus      domain.EventBus
	engine   *rules.Engine
	version  string
}

// NewHandler creates a new API handler.
func NewHandler(opts Options) *Handler {
	a := opts.Analyzer
	if a == nil {
		a = analyzer.New(analyzer.Dependencies{}, domain.AnalyzerConfig{})
	}
	return &Handler{
		analyzer: a,
		repo:     opts.Repo,
		cache:    opts.Cache,
		bus:      opts.Bus,
		engine:   opts.Engine,
		version:  opts.Version,
	}
}

// AnalyzeRequest is the request body for POST /api/analyze and POST /api/scans.
// URL takes precedence over Message.
type AnalyzeRequest struct {
	URL     string `json:"url"`
	Message string `json:"message"`
}

func (req AnalyzeRequest) candidate() string {
	if strings.TrimSpace(req.URL) != "" {
		return req.URL
	}
	return req.Message
}

// Analyze handles POST /api/analyze.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	candidate := req.candidate()
	if strings.TrimSpace(candidate) == "" {
		writeError(w, http.StatusBadRequest, "URL or message required")
		return
	}

	writeJSON(w, http.StatusOK, h.analyzer.Analyze(r.Context(), candidate))
}

// SubmitScanResponse is the response for POST /api/scans.
type SubmitScanResponse struct {
	ScanID string `json:"scanId"`
}

// SubmitScan handles POST /api/scans: the request is queued for the scan worker.
func (h *Handler) SubmitScan(w http.ResponseWriter, r *http.Request) {
	if h.bus == nil {
		writeError(w, http.StatusServiceUnavailable, "event bus not available")
		return
	}

	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	candidate := req.candidate()
	if strings.TrimSpace(candidate) == "" {
		writeError(w, http.StatusBadRequest, "URL or message required")
		return
	}

	scan := domain.ScanRequest{
		ScanID:    uuid.New().String(),
		Candidate: candidate,
		Source:    "api",
	}
	payload, _ := json.Marshal(scan)

	if err := h.bus.Publish(r.Context(), domain.TopicScanRequested, payload); err != nil {
		slog.Error("failed to queue scan", "scan_id", scan.ScanID, "error", err)
		writeError(w, http.StatusServiceUnavailable, "failed to queue scan")
		return
	}

	writeJSON(w, http.StatusAccepted, SubmitScanResponse{ScanID: scan.ScanID})
}

// ReportRequest is the request body for POST /api/report.
type ReportRequest struct {
	URL       string `json:"url"`
	Message   string `json:"message"`
	UserEmail string `json:"userEmail"`
	Category  string `json:"category"`
}

// SubmitReport handles POST /api/report.
func (h *Handler) SubmitReport(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "repository not available")
		return
	}

	var req ReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	if strings.TrimSpace(req.URL) == "" || strings.TrimSpace(req.UserEmail) == "" {
		writeError(w, http.StatusBadRequest, "URL and email required")
		return
	}
	if req.Category != "" && !slices.Contains(domain.ReportCategories, req.Category) {
		writeError(w, http.StatusBadRequest, "unknown category")
		return
	}

	report := &domain.Report{
		URL:       req.URL,
		Message:   req.Message,
		UserEmail: strings.TrimSpace(req.UserEmail),
		Category:  req.Category,
	}

	ctx := r.Context()
	if err := h.repo.SaveReport(ctx, report); err != nil {
		writeRepoError(w, "failed to submit report", err)
		return
	}

	if h.bus != nil {
		payload, _ := json.Marshal(report)
		if err := h.bus.Publish(ctx, domain.TopicReportSubmitted, payload); err != nil {
			slog.Warn("failed to publish report", "report_id", report.ID, "error", err)
		}
	}

	slog.Info("report submitted", "report_id", report.ID, "category", report.Category)
	writeJSON(w, http.StatusCreated, map[string]string{
		"message":  "Report submitted successfully",
		"reportId": report.ID,
	})
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	ctx := r.Context()

	if h.repo != nil {
		if err := h.repo.Ping(ctx); err != nil {
			status = "degraded"
		}
	}
	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			status = "degraded"
		}
	}
	if h.bus != nil {
		if err := h.bus.Ping(ctx); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready reports whether the server can serve analyses backed by its store.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"ready": "false",
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// ============================================================================
// ADMIN: REPORTS, SCAMS, STATS
// ============================================================================

// ListReports returns the latest 100 user reports.
func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	if !h.requireRepo(w) {
		return
	}

	reports, err := h.repo.ListReports(r.Context(), 100)
	if err != nil {
		writeRepoError(w, "failed to fetch reports", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(reports))
}

// AddScamRequest is the request body for POST /api/admin/add-scam.
type AddScamRequest struct {
	URL      string `json:"url"`
	Reason   string `json:"reason"`
	Category string `json:"category"`
	Severity string `json:"severity"`
}

// AddScam stores a curated threat and marks matching reports verified.
func (h *Handler) AddScam(w http.ResponseWriter, r *http.Request) {
	if !h.requireRepo(w) {
		return
	}

	var req AddScamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, "URL required")
		return
	}

	threat := &domain.KnownThreatRecord{
		URL:      req.URL,
		Domain:   hostOf(req.URL),
		Reason:   defaultString(req.Reason, "Added by admin"),
		Category: defaultString(req.Category, "other"),
		Severity: defaultString(req.Severity, domain.SeverityHigh),
		Source:   domain.SourceAdmin,
	}

	ctx := r.Context()
	if err := h.repo.SaveThreat(ctx, threat); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			writeError(w, http.StatusBadRequest, "URL already in database")
			return
		}
		writeRepoError(w, "failed to add scam entry", err)
		return
	}

	if n, err := h.repo.MarkReportsVerified(ctx, req.URL); err != nil {
		slog.Warn("failed to verify reports", "url", req.URL, "error", err)
	} else if n > 0 {
		slog.Info("reports verified", "url", req.URL, "count", n)
	}

	h.analyzer.InvalidateCache()

	slog.Info("scam entry added", "id", threat.ID, "domain", threat.Domain)
	writeJSON(w, http.StatusCreated, map[string]string{
		"message": "Scam entry added",
		"scamId":  threat.ID,
	})
}

// ListScams returns the latest 200 curated threats.
func (h *Handler) ListScams(w http.ResponseWriter, r *http.Request) {
	if !h.requireRepo(w) {
		return
	}

	threats, err := h.repo.ListThreats(r.Context(), 200)
	if err != nil {
		writeRepoError(w, "failed to fetch scam database", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(threats))
}

// DeleteScam removes a curated threat by ID.
func (h *Handler) DeleteScam(w http.ResponseWriter, r *http.Request) {
	if !h.requireRepo(w) {
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.repo.DeleteThreat(r.Context(), id); err != nil {
		writeRepoError(w, "failed to delete entry", err)
		return
	}

	h.analyzer.InvalidateCache()

	slog.Info("scam entry deleted", "id", id)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Scam entry deleted",
	})
}

// Stats returns aggregate counters for the dashboard.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	if !h.requireRepo(w) {
		return
	}

	stats, err := h.repo.Stats(r.Context())
	if err != nil {
		writeRepoError(w, "failed to fetch stats", err)
		return
	}
	if stats.RecentScans == nil {
		stats.RecentScans = []*domain.ScanLogEntry{}
	}
	writeJSON(w, http.StatusOK, stats)
}

// ============================================================================
// ADMIN: SIGNAL RULES
// ============================================================================

// ListRules returns stored rules, or the loaded rules when no repository is configured.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		writeError(w, http.StatusServiceUnavailable, "rule engine not available")
		return
	}

	list := h.engine.GetLoadedRules()
	if h.repo != nil {
		stored, err := h.repo.ListSignalRules(r.Context())
		if err != nil {
			writeRepoError(w, "failed to fetch rules", err)
			return
		}
		list = stored
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"rules":  nonNil(list),
		"count":  len(list),
		"loaded": h.engine.RulesCount(),
	})
}

// CreateRule validates, stores and loads a signal rule.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		writeError(w, http.StatusServiceUnavailable, "rule engine not available")
		return
	}

	var rule domain.SignalRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	if err := h.engine.ValidateRule(&rule); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now().UTC()
	}

	ctx := r.Context()
	if h.repo != nil {
		if err := h.repo.SaveSignalRule(ctx, &rule); err != nil {
			writeRepoError(w, "failed to save rule", err)
			return
		}
	}

	if rule.Enabled {
		if err := h.engine.LoadRule(&rule); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	} else {
		h.engine.RemoveRule(rule.ID)
	}
	h.analyzer.InvalidateCache()

	slog.Info("rule saved", "id", rule.ID, "name", rule.Name, "enabled", rule.Enabled)
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "rule saved",
		"rule":    rule,
	})
}

// DeleteRule removes a signal rule from storage and the engine.
func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		writeError(w, http.StatusServiceUnavailable, "rule engine not available")
		return
	}

	id := chi.URLParam(r, "id")
	if h.repo != nil {
		if err := h.repo.DeleteSignalRule(r.Context(), id); err != nil {
			writeRepoError(w, "failed to delete rule", err)
			return
		}
		h.engine.RemoveRule(id)
	} else if !h.engine.RemoveRule(id) {
		writeError(w, http.StatusNotFound, "rule not found")
		return
	}
	h.analyzer.InvalidateCache()

	slog.Info("rule deleted", "id", id)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "rule deleted",
	})
}

// ReloadRules reloads all rules from the repository into the engine.
func (h *Handler) ReloadRules(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		writeError(w, http.StatusServiceUnavailable, "rule engine not available")
		return
	}
	if !h.requireRepo(w) {
		return
	}

	stored, err := h.repo.ListSignalRules(r.Context())
	if err != nil {
		writeRepoError(w, "failed to load rules from database", err)
		return
	}

	if err := h.engine.ReloadRules(stored); err != nil {
		slog.Error("failed to reload rules into engine", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to reload rules: "+err.Error())
		return
	}
	h.analyzer.InvalidateCache()

	slog.Info("rules reloaded from database", "stored", len(stored), "loaded", h.engine.RulesCount())
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "rules reloaded successfully",
		"count":   h.engine.RulesCount(),
	})
}

func (h *Handler) requireRepo(w http.ResponseWriter) bool {
	if h.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "repository not available")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeRepoError maps repository sentinel errors to status codes.
func writeRepoError(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, repository.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrDuplicate):
		writeError(w, http.StatusConflict, err.Error())
	default:
		slog.Error(msg, "error", err)
		writeError(w, http.StatusInternalServerError, msg)
	}
}

// hostOf returns the lowercased hostname of raw, or "" if it does not parse.
func hostOf(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

func defaultString(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
