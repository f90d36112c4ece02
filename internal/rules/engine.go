// Package rules provides the CEL-Go based signal rule engine.
package rules

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/opensource-finance/veritas/internal/domain"
)

// ErrInvalidRule is returned when a signal rule fails validation.
var ErrInvalidRule = errors.New("invalid signal rule")

// ErrEvaluationIncomplete is returned when evaluation stopped before every rule ran.
var ErrEvaluationIncomplete = errors.New("signal rule evaluation incomplete")

// Engine evaluates admin-authored CEL signal rules against FeatureSets.
type Engine struct {
	mu            sync.RWMutex
	env           *cel.Env
	compiledRules map[string]*CompiledRule
	maxWorkers    int
	generation    atomic.Uint64
}

// CompiledRule holds a pre-compiled CEL program.
type CompiledRule struct {
	Rule    *domain.SignalRule
	Program cel.Program
}

// NewEngine creates a new rule evaluation engine.
func NewEngine(maxWorkers int) (*Engine, error) {
	if maxWorkers <= 0 {
		maxWorkers = 10
	}

	// Every FeatureSet signal is exposed as a top-level variable
	env, err := cel.NewEnv(
		cel.Variable("url", cel.StringType),
		cel.Variable("host", cel.StringType),
		cel.Variable("registered_domain", cel.StringType),
		cel.Variable("url_length", cel.IntType),
		cel.Variable("has_https", cel.BoolType),
		cel.Variable("is_http_only", cel.BoolType),
		cel.Variable("is_trusted_domain", cel.BoolType),
		cel.Variable("has_suspicious_tld", cel.BoolType),
		cel.Variable("is_recently_registered", cel.BoolType),
		cel.Variable("is_ip_address", cel.BoolType),
		cel.Variable("is_homograph", cel.BoolType),
		cel.Variable("has_shortener", cel.BoolType),
		cel.Variable("has_at_symbol", cel.BoolType),
		cel.Variable("financial_keywords", cel.IntType),
		cel.Variable("urgency_keywords", cel.IntType),
		cel.Variable("security_keywords", cel.IntType),
		cel.Variable("phishing_patterns", cel.IntType),
		cel.Variable("special_chars", cel.IntType),
		cel.Variable("subdomain_count", cel.IntType),
		cel.Variable("path_depth", cel.IntType),
		cel.Variable("scam_type", cel.StringType),
		cel.Variable("has_suspicious_params", cel.BoolType),
		cel.Variable("has_suspicious_subdomain", cel.BoolType),
		cel.Variable("has_redirect_chain", cel.BoolType),
		cel.Variable("is_piracy_site", cel.BoolType),
		cel.Variable("illegal_keywords", cel.IntType),
		cel.Variable("region", cel.StringType),
		cel.Variable("regional_keywords", cel.IntType),
		cel.Variable("base_score", cel.DoubleType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Engine{
		env:           env,
		compiledRules: make(map[string]*CompiledRule),
		maxWorkers:    maxWorkers,
	}, nil
}

// ValidateRule compiles and validates a rule without mutating loaded engine rules.
func (e *Engine) ValidateRule(rule *domain.SignalRule) error {
	if rule == nil {
		return fmt.Errorf("%w: rule is required", ErrInvalidRule)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	_, err := e.compileRule(rule)
	return err
}

// LoadRule compiles and loads a rule into the engine.
func (e *Engine) LoadRule(rule *domain.SignalRule) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	compiled, err := e.compileRule(rule)
	if err != nil {
		return err
	}

	e.compiledRules[rule.ID] = compiled
	e.generation.Add(1)

	return nil
}

// RemoveRule unloads a rule. It reports whether the rule was loaded.
func (e *Engine) RemoveRule(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.compiledRules[id]; !ok {
		return false
	}
	delete(e.compiledRules, id)
	e.generation.Add(1)
	return true
}

// ReloadRules clears all existing rules and loads the enabled ones from rules.
// On error the previously loaded set is kept.
func (e *Engine) ReloadRules(rules []*domain.SignalRule) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	newRules := make(map[string]*CompiledRule)
	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}

		compiled, err := e.compileRule(rule)
		if err != nil {
			return err
		}
		newRules[rule.ID] = compiled
	}

	e.compiledRules = newRules
	e.generation.Add(1)

	return nil
}

// Generation changes every time the loaded rule set changes.
func (e *Engine) Generation() uint64 {
	return e.generation.Load()
}

// Evaluate runs all loaded rules against fs in parallel and returns the matches
// sorted by rule ID. Rules that fail at evaluation time do not match.
// If ctx is done before every rule ran, the matches found so far are returned
// with an error wrapping ErrEvaluationIncomplete and the context error.
func (e *Engine) Evaluate(ctx context.Context, candidate string, fs *domain.FeatureSet) ([]domain.RuleMatch, error) {
	e.mu.RLock()
	rules := make([]*CompiledRule, 0, len(e.compiledRules))
	for _, rule := range e.compiledRules {
		rules = append(rules, rule)
	}
	e.mu.RUnlock()

	if len(rules) == 0 || fs == nil || fs.HasError() {
		return nil, nil
	}

	activation := Activation(candidate, fs)

	// Parallel evaluation using worker pool pattern
	matched := make([]bool, len(rules))
	var skipped atomic.Bool
	var wg sync.WaitGroup
	sem := make(chan struct{}, e.maxWorkers)

	for i, rule := range rules {
		wg.Add(1)
		go func(idx int, r *CompiledRule) {
			defer wg.Done()

			sem <- struct{}{}        // Acquire
			defer func() { <-sem }() // Release

			if ctx.Err() != nil {
				skipped.Store(true)
				return
			}
			out, _, err := r.Program.Eval(activation)
			if err != nil {
				return
			}
			matched[idx] = out == types.True
		}(i, rule)
	}

	wg.Wait()

	var matches []domain.RuleMatch
	for i, r := range rules {
		if !matched[i] {
			continue
		}
		matches = append(matches, domain.RuleMatch{
			RuleID:      r.Rule.ID,
			Adjustment:  r.Rule.Adjustment,
			Explanation: r.Rule.Explanation,
		})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].RuleID < matches[j].RuleID })

	if skipped.Load() {
		return matches, fmt.Errorf("%w: %w", ErrEvaluationIncomplete, context.Cause(ctx))
	}
	return matches, nil
}

// Activation builds the CEL variable bindings for fs.
func Activation(candidate string, fs *domain.FeatureSet) map[string]any {
	return map[string]any{
		"url":                      candidate,
		"host":                     fs.Host,
		"registered_domain":        fs.RegisteredDomain,
		"url_length":               int64(fs.URLLength),
		"has_https":                fs.HasHTTPS,
		"is_http_only":             fs.IsHTTPOnly,
		"is_trusted_domain":        fs.IsTrustedDomain,
		"has_suspicious_tld":       fs.HasSuspiciousTLD,
		"is_recently_registered":   fs.IsRecentlyRegisteredIndicator,
		"is_ip_address":            fs.IsIPAddress,
		"is_homograph":             fs.IsHomograph,
		"has_shortener":            fs.HasShortener,
		"has_at_symbol":            fs.HasAtSymbol,
		"financial_keywords":       int64(fs.FinancialKeywords),
		"urgency_keywords":         int64(fs.UrgencyKeywords),
		"security_keywords":        int64(fs.SecurityThreatKeywords),
		"phishing_patterns":        int64(fs.PhishingPatterns),
		"special_chars":            int64(fs.SpecialCharCount),
		"subdomain_count":          int64(fs.SubdomainCount),
		"path_depth":               int64(fs.PathDepth),
		"scam_type":                fs.DetectedScamType,
		"has_suspicious_params":    fs.HasSuspiciousParams,
		"has_suspicious_subdomain": fs.HasSuspiciousSubdomain,
		"has_redirect_chain":       fs.HasRedirectChain,
		"is_piracy_site":           fs.IsKnownPiracySite,
		"illegal_keywords":         int64(fs.IllegalContentKeywords),
		"region":                   fs.DetectedRegion,
		"regional_keywords":        int64(fs.RegionalKeywords),
		"base_score":               fs.BaseScore,
	}
}

// RulesCount returns the number of loaded rules.
func (e *Engine) RulesCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.compiledRules)
}

// GetLoadedRules returns the currently loaded rules sorted by ID.
func (e *Engine) GetLoadedRules() []*domain.SignalRule {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rules := make([]*domain.SignalRule, 0, len(e.compiledRules))
	for _, compiled := range e.compiledRules {
		rules = append(rules, compiled.Rule)
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].ID < rules[j].ID })
	return rules
}

// Close cleans up the engine.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.compiledRules = make(map[string]*CompiledRule)
	e.generation.Add(1)
	return nil
}

func (e *Engine) compileRule(rule *domain.SignalRule) (*CompiledRule, error) {
	if rule.ID == "" {
		return nil, fmt.Errorf("%w: id is required", ErrInvalidRule)
	}
	if rule.Adjustment < domain.MinRuleAdjustment || rule.Adjustment > domain.MaxRuleAdjustment {
		return nil, fmt.Errorf("%w: rule %s adjustment %d outside [%d, %d]",
			ErrInvalidRule, rule.ID, rule.Adjustment, domain.MinRuleAdjustment, domain.MaxRuleAdjustment)
	}

	ast, issues := e.env.Compile(rule.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: failed to compile rule %s: %v", ErrInvalidRule, rule.ID, issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("%w: rule %s expression must return bool, got %s", ErrInvalidRule, rule.ID, ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for rule %s: %w", rule.ID, err)
	}

	return &CompiledRule{
		Rule:    rule,
		Program: program,
	}, nil
}
