package model

import (
	"encoding/json"
	"time"
)

// Client is an agency client record. Intake and Brand hold the nested
// JSON captured by the intake questionnaire and brand profile tools.
type Client struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Name      string          `json:"name"`
	Industry  string          `json:"industry,omitempty"`
	Intake    json.RawMessage `json:"intake,omitempty"`
	Brand     json.RawMessage `json:"brand,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// ClientContext is a read-only view over a client record used to ground
// prompts for one research or generation call. It is derived per call
// and never persisted.
type ClientContext struct {
	Name             string `json:"name"`
	Industry         string `json:"industry,omitempty"`
	TargetAudience   string `json:"target_audience,omitempty"`
	BusinessGoals    string `json:"business_goals,omitempty"`
	BrandVoice       string `json:"brand_voice,omitempty"`
	ValueProposition string `json:"value_proposition,omitempty"`
}

// intakePayload mirrors the subset of the intake questionnaire JSON the
// context derivation reads.
type intakePayload struct {
	TargetAudience string   `json:"target_audience"`
	BusinessGoals  []string `json:"business_goals"`
	Industry       string   `json:"industry"`
}

// brandPayload mirrors the subset of the brand profile JSON the context
// derivation reads.
type brandPayload struct {
	Voice            string `json:"voice"`
	ValueProposition string `json:"value_proposition"`
}

// DeriveContext extracts a ClientContext from a client record's nested
// intake and brand JSON. Malformed or missing JSON leaves the affected
// fields empty rather than failing; a context with just the client name
// is still useful for prompt grounding.
func (c *Client) DeriveContext() *ClientContext {
	cc := &ClientContext{
		Name:     c.Name,
		Industry: c.Industry,
	}

	if len(c.Intake) > 0 {
		var in intakePayload
		if err := json.Unmarshal(c.Intake, &in); err == nil {
			cc.TargetAudience = in.TargetAudience
			if cc.Industry == "" {
				cc.Industry = in.Industry
			}
			cc.BusinessGoals = joinGoals(in.BusinessGoals)
		}
	}

	if len(c.Brand) > 0 {
		var b brandPayload
		if err := json.Unmarshal(c.Brand, &b); err == nil {
			cc.BrandVoice = b.Voice
			cc.ValueProposition = b.ValueProposition
		}
	}

	return cc
}

func joinGoals(goals []string) string {
	out := ""
	for i, g := range goals {
		if g == "" {
			continue
		}
		if i > 0 && out != "" {
			out += "; "
		}
		out += g
	}
	return out
}
