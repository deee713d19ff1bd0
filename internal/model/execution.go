package model

import (
	"time"
	"unicode/utf8"
)

// ExecutionStatus marks whether a recorded execution succeeded.
type ExecutionStatus string

const (
	ExecutionSuccess ExecutionStatus = "success"
	ExecutionError   ExecutionStatus = "error"
)

// ExecutionRecord is an immutable audit row created once per completed
// (or failed) task. It is never mutated after creation and feeds cost
// aggregation and analytics.
type ExecutionRecord struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	ClientID      string          `json:"client_id,omitempty"`
	ModelID       string          `json:"model_id"`
	TaskType      TaskType        `json:"task_type"`
	Complexity    Complexity      `json:"complexity"`
	InputSummary  string          `json:"input_summary"`
	OutputSummary string          `json:"output_summary"`
	InputTokens   int64           `json:"input_tokens"`
	OutputTokens  int64           `json:"output_tokens"`
	CostUSD       float64         `json:"cost_usd"`
	DurationMS    int64           `json:"duration_ms"`
	Status        ExecutionStatus `json:"status"`
	UsedFallback  bool            `json:"used_fallback"`

	// ContentAssetID links the execution to a persisted asset so later
	// owner reassignment can cascade. Empty for plain generations.
	ContentAssetID string `json:"content_asset_id,omitempty"`

	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Summarize truncates a payload for storage in an execution record.
// Full prompts and responses stay out of the audit table.
func Summarize(payload string, max int) string {
	if max <= 0 {
		max = 500
	}
	if len(payload) <= max {
		return payload
	}
	// Back up to a rune boundary so the cut never stores invalid UTF-8.
	for max > 0 && !utf8.RuneStart(payload[max]) {
		max--
	}
	return payload[:max] + "..."
}
