// Package research composes framework retrieval, client context,
// prompt templates, and web-grounded generation into research reports.
package research

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/atelier-labs/campaign-engine/internal/model"
	"github.com/atelier-labs/campaign-engine/pkg/gemini"
)

// planModel is the single fixed fast model used for plan generation.
// Plans bypass the orchestrator by design: latency-sensitive and
// low-stakes, they never need model selection or fallback.
const planModel = "gemini-2.5-flash-lite"

// planSpec fixes item count, tone, and estimates per mode.
type planSpec struct {
	items    int
	tone     string
	time     string
	sources  int
	fallback []string
}

var planSpecs = map[model.Depth]planSpec{
	model.DepthQuick: {
		items: 3, tone: "concise", time: "1-2 minutes", sources: 5,
		fallback: []string{
			"Market overview and key trends",
			"Competitive landscape",
			"Actionable recommendations",
		},
	},
	model.DepthStandard: {
		items: 5, tone: "balanced", time: "2-4 minutes", sources: 10,
		fallback: []string{
			"Market overview and key trends",
			"Target audience insights",
			"Competitive landscape",
			"Channel and messaging strategy",
			"Actionable recommendations",
		},
	},
	model.DepthComprehensive: {
		items: 7, tone: "exhaustive", time: "4-8 minutes", sources: 20,
		fallback: []string{
			"Market overview and key trends",
			"Target audience insights",
			"Competitive landscape",
			"Channel and messaging strategy",
			"Risks and challenges",
			"Measurement and KPIs",
			"Actionable recommendations",
		},
	},
}

// ClientSource loads client records for context derivation.
type ClientSource interface {
	GetClient(ctx context.Context, id string) (*model.Client, error)
}

// TemplateSource loads prompt templates by ID.
type TemplateSource interface {
	GetPromptTemplates(ctx context.Context, ids []string) ([]model.PromptTemplate, error)
}

// Planner generates research plans.
type Planner struct {
	gem       gemini.Client
	clients   ClientSource
	templates TemplateSource
}

// NewPlanner creates a research planner.
func NewPlanner(gem gemini.Client, clients ClientSource, templates TemplateSource) *Planner {
	return &Planner{gem: gem, clients: clients, templates: templates}
}

// GeneratePlan produces the subtopic outline for a research run. The
// plan step must never block the user from proceeding: when the model
// ignores the numbered-list format, the mode's fixed fallback list is
// returned instead of an error.
func (p *Planner) GeneratePlan(ctx context.Context, topic string, mode model.Depth, templateIDs []string, clientID string) (*model.ResearchPlan, error) {
	spec, ok := planSpecs[mode]
	if !ok {
		spec = planSpecs[model.DepthStandard]
	}

	prompt := p.buildPrompt(ctx, topic, spec, templateIDs, clientID)

	temp := 0.7
	resp, err := p.gem.GenerateText(ctx, gemini.TextRequest{
		Model:       planModel,
		Prompt:      prompt,
		MaxTokens:   1024,
		Temperature: &temp,
	})

	items := []string{}
	if err != nil {
		zap.L().Warn("research: plan generation failed, using fallback outline",
			zap.String("topic", topic),
			zap.Error(err),
		)
	} else {
		items = ParseNumberedList(resp.Content)
	}

	items = normalizeItems(items, spec)

	return &model.ResearchPlan{
		Items:            items,
		EstimatedTime:    spec.time,
		EstimatedSources: spec.sources,
	}, nil
}

func (p *Planner) buildPrompt(ctx context.Context, topic string, spec planSpec, templateIDs []string, clientID string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Plan a %s research report on the following topic:\n\n%s\n", spec.tone, topic)

	if clientID != "" && p.clients != nil {
		if client, err := p.clients.GetClient(ctx, clientID); err != nil {
			zap.L().Warn("research: plan client lookup failed",
				zap.String("client_id", clientID),
				zap.Error(err),
			)
		} else {
			b.WriteString("\n")
			b.WriteString(formatClientBlock(client.DeriveContext()))
		}
	}

	if len(templateIDs) > 0 && p.templates != nil {
		if templates, err := p.templates.GetPromptTemplates(ctx, templateIDs); err != nil {
			zap.L().Warn("research: plan template lookup failed", zap.Error(err))
		} else if block := mergeTemplates(templates); block != "" {
			b.WriteString("\nADDITIONAL INSTRUCTIONS:\n")
			b.WriteString(block)
			b.WriteString("\n")
		}
	}

	fmt.Fprintf(&b, "\nRespond with a numbered list of exactly %d research subtopics, one per line, and nothing else.", spec.items)
	return b.String()
}

var numberedLine = regexp.MustCompile(`^\s*\d+[.)]\s+(.+)$`)

// ParseNumberedList extracts items from a numbered-list response,
// stripping markdown emphasis markers.
func ParseNumberedList(text string) []string {
	var items []string
	for _, line := range strings.Split(text, "\n") {
		m := numberedLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		item := strings.TrimSpace(m[1])
		item = strings.Trim(item, "*_")
		item = strings.ReplaceAll(item, "**", "")
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}

// normalizeItems guarantees exactly spec.items entries: zero parsed
// items yields the fallback list outright, surplus is truncated, and a
// short list is padded from the fallback outline.
func normalizeItems(items []string, spec planSpec) []string {
	if len(items) == 0 {
		return append([]string(nil), spec.fallback...)
	}
	if len(items) >= spec.items {
		return items[:spec.items]
	}

	have := make(map[string]bool, len(items))
	for _, it := range items {
		have[strings.ToLower(it)] = true
	}
	for _, fb := range spec.fallback {
		if len(items) == spec.items {
			break
		}
		if !have[strings.ToLower(fb)] {
			items = append(items, fb)
		}
	}
	return items
}
