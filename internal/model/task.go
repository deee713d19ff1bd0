package model

// TaskType identifies the kind of content generation being requested.
type TaskType string

const (
	TaskContentGeneration TaskType = "content_generation"
	TaskContentRewrite    TaskType = "content_rewrite"
	TaskIdeaGeneration    TaskType = "idea_generation"
	TaskResearchReport    TaskType = "research_report"
	TaskResearchPlan      TaskType = "research_plan"
	TaskIntakeSummary     TaskType = "intake_summary"
)

// Label returns a human-readable label for the task type, used in
// activity events. Unknown types fall back to the raw value.
func (t TaskType) Label() string {
	switch t {
	case TaskContentGeneration:
		return "Content Generation"
	case TaskContentRewrite:
		return "Content Rewrite"
	case TaskIdeaGeneration:
		return "Idea Generation"
	case TaskResearchReport:
		return "Research Report"
	case TaskResearchPlan:
		return "Research Plan"
	case TaskIntakeSummary:
		return "Intake Summary"
	default:
		return string(t)
	}
}

// Complexity is a hint describing how hard a task is. Complex tasks are
// always routed to the best available model regardless of priority.
type Complexity string

const (
	ComplexitySimple  Complexity = "simple"
	ComplexityMedium  Complexity = "medium"
	ComplexityComplex Complexity = "complex"
)

// Priority is a hint describing what the caller cares about most when
// the orchestrator picks a model for a simple or medium task.
type Priority string

const (
	PriorityCost    Priority = "cost"
	PrioritySpeed   Priority = "speed"
	PriorityQuality Priority = "quality"
)

// Message is a single conversational turn passed to a provider adapter.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Task describes one generation request handed to the orchestrator.
type Task struct {
	Type       TaskType   `json:"type"`
	Complexity Complexity `json:"complexity"`
	Priority   Priority   `json:"priority"`

	// ForceModel bypasses selection entirely. If the named model is
	// missing or inactive the task fails with no fallback.
	ForceModel string `json:"force_model,omitempty"`

	UserID   string `json:"user_id"`
	ClientID string `json:"client_id,omitempty"`

	System      string    `json:"system,omitempty"`
	Messages    []Message `json:"messages"`
	MaxTokens   int64     `json:"max_tokens,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
}
