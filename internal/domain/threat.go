package domain

import (
	"time"
)

// KnownThreatRecord is a curated malicious URL or domain pattern.
type KnownThreatRecord struct {
	ID        string    `json:"id" bson:"id"`
	URL       string    `json:"url" bson:"url"`
	Domain    string    `json:"domain,omitempty" bson:"domain,omitempty"`
	Category  string    `json:"category" bson:"category"`
	Severity  string    `json:"severity" bson:"severity"`
	Reason    string    `json:"reason,omitempty" bson:"reason,omitempty"`
	Source    string    `json:"source" bson:"source"`
	AddedDate time.Time `json:"addedDate" bson:"added_date"`
}

// Threat severities.
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
)

// Threat sources.
const (
	SourceCommunity = "community"
	SourceAdmin     = "admin"
	SourceCERTIn    = "cert-in"
	SourceRBI       = "rbi"
)

// ScanLogEntry records one completed analysis.
type ScanLogEntry struct {
	ID        string    `json:"id" bson:"id"`
	URL       string    `json:"url" bson:"url"`
	RiskScore int       `json:"riskScore" bson:"risk_score"`
	Verdict   Verdict   `json:"verdict" bson:"verdict"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// Report is a user-submitted suspicious URL or message awaiting review.
type Report struct {
	ID         string    `json:"id" bson:"id"`
	URL        string    `json:"url" bson:"url"`
	Message    string    `json:"message,omitempty" bson:"message,omitempty"`
	UserEmail  string    `json:"userEmail" bson:"user_email"`
	Category   string    `json:"category" bson:"category"`
	Status     string    `json:"status" bson:"status"`
	ReportedAt time.Time `json:"reportedAt" bson:"reported_at"`
}

// Report statuses.
const (
	ReportPending  = "pending"
	ReportVerified = "verified"
	ReportRejected = "rejected"
)

// ReportCategories lists the accepted report categories.
var ReportCategories = []string{"phishing", "malware", "fake-bank", "job-scam", "payment-fraud", "other"}

// Stats summarizes stored activity for the admin dashboard.
type Stats struct {
	TotalScans    int64           `json:"totalScans"`
	TotalReports  int64           `json:"totalReports"`
	TotalScams    int64           `json:"totalScams"`
	HighRiskScans int64           `json:"highRiskScans"`
	RecentScans   []*ScanLogEntry `json:"recentScans"`
}
