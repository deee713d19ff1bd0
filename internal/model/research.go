package model

import "time"

// Depth controls research thoroughness: plan size, framework count,
// model choice and therefore cost.
type Depth string

const (
	DepthQuick         Depth = "quick"
	DepthStandard      Depth = "standard"
	DepthComprehensive Depth = "comprehensive"
)

// Valid reports whether d is a known depth tier.
func (d Depth) Valid() bool {
	switch d {
	case DepthQuick, DepthStandard, DepthComprehensive:
		return true
	}
	return false
}

// WebSource is one web page that grounded part of a research report.
type WebSource struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// ResearchPlan is the structured outline shown to the user before a
// research run. Ephemeral: regenerated per request, never persisted.
type ResearchPlan struct {
	Items            []string `json:"items"`
	EstimatedTime    string   `json:"estimated_time"`
	EstimatedSources int      `json:"estimated_sources"`
}

// ResearchResult is a completed research report plus its provenance.
// Immutable once saved; "save to library" creates a separate copy.
type ResearchResult struct {
	Report           string      `json:"report"`
	ModelUsed        string      `json:"model_used"`
	CostUSD          float64     `json:"cost_usd"`
	InputTokens      int64       `json:"input_tokens"`
	OutputTokens     int64       `json:"output_tokens"`
	FrameworksUsed   []string    `json:"frameworks_used"`
	WebSources       []WebSource `json:"web_sources,omitempty"`
	SearchQueries    []string    `json:"search_queries,omitempty"`
	GroundingSupport float64     `json:"grounding_support,omitempty"` // 0..1
	SavedAssetID     string      `json:"saved_asset_id,omitempty"`
	GeneratedAt      time.Time   `json:"generated_at"`
}

// ContentAsset is the persisted form of generated content, including
// research reports. Metadata captures the full provenance of a report.
type ContentAsset struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	ClientID  string         `json:"client_id,omitempty"`
	AssetType string         `json:"asset_type"`
	Title     string         `json:"title"`
	Body      string         `json:"body"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// AssetTypeResearchReport is the asset_type for persisted research reports.
const AssetTypeResearchReport = "research_report"
