//go:build integration
// +build integration

// Package integration provides end-to-end tests against a running Veritas server.
//
// These tests exercise the complete scoring pipeline over HTTP:
//
//	Candidate -> Known-threat lookup -> Features -> Score -> Signal rules -> Verdict
//
// Run with: go test -tags=integration -v ./tests/integration/...
//
// The server must run with the built-in threat tables and no signal rules
// loaded. Admin scenarios need VERITAS_TEST_ADMIN_KEY to match the server's
// VERITAS_ADMIN_KEY and are skipped otherwise.
package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"
)

type TestConfig struct {
	BaseURL  string
	AdminKey string
}

func getTestConfig() TestConfig {
	baseURL := os.Getenv("VERITAS_TEST_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return TestConfig{
		BaseURL:  baseURL,
		AdminKey: os.Getenv("VERITAS_TEST_ADMIN_KEY"),
	}
}

// ============================================================================
// API types (matching the Veritas API contract)
// ============================================================================

type AnalyzeRequest struct {
	URL     string `json:"url,omitempty"`
	Message string `json:"message,omitempty"`
}

type AnalyzeResponse struct {
	RiskScore     int              `json:"riskScore"`
	Verdict       string           `json:"verdict"`
	Confidence    string           `json:"confidence"`
	Explanations  []string         `json:"explanations"`
	DatabaseMatch *json.RawMessage `json:"databaseMatch"`
}

// ============================================================================
// Helpers
// ============================================================================

func do(t *testing.T, config TestConfig, method, path string, body any, admin bool) (int, []byte, http.Header) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, config.BaseURL+path, reader)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if admin {
		req.Header.Set("X-Admin-Key", config.AdminKey)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response: %v", err)
	}
	return resp.StatusCode, respBody, resp.Header
}

func analyze(t *testing.T, config TestConfig, req AnalyzeRequest) AnalyzeResponse {
	t.Helper()

	status, body, _ := do(t, config, http.MethodPost, "/api/analyze", req, false)
	if status != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", status, string(body))
	}

	var result AnalyzeResponse
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("Failed to unmarshal response: %v (body: %s)", err, string(body))
	}
	return result
}

func requireAdmin(t *testing.T, config TestConfig) {
	t.Helper()
	if config.AdminKey == "" {
		t.Skip("VERITAS_TEST_ADMIN_KEY not set")
	}
}

// ============================================================================
// SCENARIO 1: Trusted HTTPS domain
// ============================================================================

func TestTrustedDomain_LowRisk(t *testing.T) {
	config := getTestConfig()

	result := analyze(t, config, AnalyzeRequest{URL: "https://google.com"})

	if result.RiskScore != 33 {
		t.Errorf("Expected score 33, got %d", result.RiskScore)
	}
	if result.Verdict != "low" || result.Confidence != "low" {
		t.Errorf("Expected low/low, got %s/%s", result.Verdict, result.Confidence)
	}
	if result.DatabaseMatch != nil {
		t.Errorf("Expected no database match")
	}

	t.Logf("Trusted domain: score=%d verdict=%s", result.RiskScore, result.Verdict)
}

// ============================================================================
// SCENARIO 2: Private IP literal with credential keywords
// ============================================================================

func TestIPAddressLogin_HighRisk(t *testing.T) {
	config := getTestConfig()

	result := analyze(t, config, AnalyzeRequest{URL: "http://192.168.1.1/login?verify=confirm"})

	if result.RiskScore != 100 || result.Verdict != "high" {
		t.Errorf("Expected 100/high, got %d/%s", result.RiskScore, result.Verdict)
	}
	if len(result.Explanations) == 0 {
		t.Errorf("Expected explanations for a high-risk URL")
	}
}

// ============================================================================
// SCENARIO 3: Brand lookalike on a suspicious TLD
// ============================================================================

func TestLookalikeDomain_HighRisk(t *testing.T) {
	config := getTestConfig()

	result := analyze(t, config, AnalyzeRequest{URL: "https://paypa1-secure-login.xyz/confirm"})

	if result.RiskScore != 75 || result.Verdict != "high" || result.Confidence != "high" {
		t.Errorf("Expected 75/high/high, got %d/%s/%s", result.RiskScore, result.Verdict, result.Confidence)
	}
}

// ============================================================================
// SCENARIO 4: Free text that is not a URL
// ============================================================================

func TestPlainMessage_InvalidInput(t *testing.T) {
	config := getTestConfig()

	result := analyze(t, config, AnalyzeRequest{Message: "just some random text"})

	if result.RiskScore != 20 || result.Verdict != "low" {
		t.Errorf("Expected 20/low, got %d/%s", result.RiskScore, result.Verdict)
	}
	if len(result.Explanations) != 1 {
		t.Errorf("Expected a single explanation, got %v", result.Explanations)
	}
}

func TestMissingInput_Error(t *testing.T) {
	config := getTestConfig()

	status, body, _ := do(t, config, http.MethodPost, "/api/analyze", AnalyzeRequest{}, false)
	if status != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d: %s", status, string(body))
	}
}

// ============================================================================
// SCENARIO 5: Admin adds a known threat, analysis short-circuits, admin deletes it
// ============================================================================

func TestKnownThreatLifecycle(t *testing.T) {
	config := getTestConfig()
	requireAdmin(t, config)

	scamURL := fmt.Sprintf("http://integration-%d.example/login", time.Now().UnixNano())

	status, body, _ := do(t, config, http.MethodPost, "/api/admin/add-scam", map[string]string{
		"url":      scamURL,
		"reason":   "integration test",
		"category": "phishing",
	}, true)
	if status != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", status, string(body))
	}

	var created struct {
		ScamID string `json:"scamId"`
	}
	if err := json.Unmarshal(body, &created); err != nil || created.ScamID == "" {
		t.Fatalf("Expected scamId in response: %s", string(body))
	}

	result := analyze(t, config, AnalyzeRequest{URL: scamURL})
	if result.RiskScore != 99 || result.Verdict != "high" || result.Confidence != "critical" {
		t.Errorf("Expected 99/high/critical, got %d/%s/%s", result.RiskScore, result.Verdict, result.Confidence)
	}
	if result.DatabaseMatch == nil {
		t.Errorf("Expected database match")
	}

	status, body, _ = do(t, config, http.MethodDelete, "/api/admin/scams/"+created.ScamID, nil, true)
	if status != http.StatusOK {
		t.Errorf("Expected 200 on delete, got %d: %s", status, string(body))
	}

	if after := analyze(t, config, AnalyzeRequest{URL: scamURL}); after.DatabaseMatch != nil {
		t.Errorf("Expected no database match after delete")
	}
}

func TestAdminWithoutKey_Unauthorized(t *testing.T) {
	config := getTestConfig()

	status, _, _ := do(t, config, http.MethodGet, "/api/admin/stats", nil, false)
	if status != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", status)
	}
}

// ============================================================================
// SCENARIO 6: User report submission
// ============================================================================

func TestSubmitReport(t *testing.T) {
	config := getTestConfig()

	status, body, _ := do(t, config, http.MethodPost, "/api/report", map[string]string{
		"url":       "http://suspicious.example/win",
		"userEmail": "reporter@example.com",
		"category":  "phishing",
		"message":   "integration test",
	}, false)
	if status != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", status, string(body))
	}

	status, _, _ = do(t, config, http.MethodPost, "/api/report", map[string]string{"url": "http://x.example"}, false)
	if status != http.StatusBadRequest {
		t.Errorf("Expected 400 without email, got %d", status)
	}
}

// ============================================================================
// SCENARIO 7: Response metadata
// ============================================================================

func TestResponseHeaders(t *testing.T) {
	config := getTestConfig()

	status, _, headers := do(t, config, http.MethodPost, "/api/analyze", AnalyzeRequest{URL: "https://example.com"}, false)
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	if headers.Get("X-Request-ID") == "" || headers.Get("X-Trace-ID") == "" {
		t.Errorf("Expected request and trace ID headers")
	}
}
