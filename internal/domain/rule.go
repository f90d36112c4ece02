package domain

import "time"

// SignalRule is an admin-authored CEL expression evaluated against a FeatureSet.
// When it matches, Adjustment is added to the risk score and Explanation is reported.
type SignalRule struct {
	ID          string `json:"id" bson:"id"`
	Name        string `json:"name" bson:"name"`
	Description string `json:"description,omitempty" bson:"description,omitempty"`

	// CEL expression; must return bool
	Expression string `json:"expression" bson:"expression"`

	// Points added to the risk score on match, -50..50
	Adjustment int `json:"adjustment" bson:"adjustment"`

	Explanation string    `json:"explanation" bson:"explanation"`
	Enabled     bool      `json:"enabled" bson:"enabled"`
	CreatedAt   time.Time `json:"createdAt" bson:"created_at"`
}

// Adjustment bounds for signal rules.
const (
	MinRuleAdjustment = -50
	MaxRuleAdjustment = 50
)

// RuleMatch is a signal rule that fired for a given FeatureSet.
type RuleMatch struct {
	RuleID      string `json:"ruleId"`
	Adjustment  int    `json:"adjustment"`
	Explanation string `json:"explanation"`
}
