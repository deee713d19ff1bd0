// Package gemini wraps the Google Generative AI API for plain text
// generation and web-search-grounded generation.
package gemini

import (
	"context"
	"errors"
	"net/http"
	"sort"

	"github.com/rotisserie/eris"
	"google.golang.org/genai"

	"github.com/atelier-labs/campaign-engine/internal/resilience"
)

// Client defines the Gemini operations used by the research pipeline
// and the orchestrator.
type Client interface {
	// GenerateText runs a plain, non-grounded generation.
	GenerateText(ctx context.Context, req TextRequest) (*TextResponse, error)

	// GenerateGrounded runs a generation with the Google Search tool
	// enabled, returning grounding provenance alongside the text.
	GenerateGrounded(ctx context.Context, req TextRequest) (*GroundedResponse, error)
}

// TextRequest is our own request type for Gemini generations.
type TextRequest struct {
	Model       string
	Prompt      string
	System      string
	MaxTokens   int32
	Temperature *float64
}

// TextResponse is the plain generation response.
type TextResponse struct {
	Content      string
	Model        string
	InputTokens  int64
	OutputTokens int64
}

// Source is one web page the grounded response cites.
type Source struct {
	Title string
	URL   string
}

// GroundedResponse carries the generated text plus its web provenance.
// GroundingSupport is the fraction (0..1) of the response text covered
// by grounding support segments, taken from the vendor metadata.
type GroundedResponse struct {
	TextResponse
	Sources          []Source
	SearchQueries    []string
	GroundingSupport float64
}

type genaiClient struct {
	client *genai.Client
}

// NewClient creates a Gemini client backed by the genai SDK.
func NewClient(ctx context.Context, apiKey string) (Client, error) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, eris.Wrap(err, "gemini: create client")
	}
	return &genaiClient{client: c}, nil
}

func (c *genaiClient) GenerateText(ctx context.Context, req TextRequest) (*TextResponse, error) {
	resp, err := c.generate(ctx, req, nil)
	if err != nil {
		return nil, err
	}
	return textResponse(resp, req.Model), nil
}

func (c *genaiClient) GenerateGrounded(ctx context.Context, req TextRequest) (*GroundedResponse, error) {
	tools := []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	resp, err := c.generate(ctx, req, tools)
	if err != nil {
		return nil, err
	}

	out := &GroundedResponse{TextResponse: *textResponse(resp, req.Model)}
	if len(resp.Candidates) == 0 || resp.Candidates[0].GroundingMetadata == nil {
		return out, nil
	}

	gm := resp.Candidates[0].GroundingMetadata
	out.SearchQueries = gm.WebSearchQueries
	for _, ch := range gm.GroundingChunks {
		if ch.Web == nil {
			continue
		}
		out.Sources = append(out.Sources, Source{Title: ch.Web.Title, URL: ch.Web.URI})
	}
	out.GroundingSupport = supportFraction(out.Content, gm.GroundingSupports)

	return out, nil
}

func (c *genaiClient) generate(ctx context.Context, req TextRequest, tools []*genai.Tool) (*genai.GenerateContentResponse, error) {
	cfg := &genai.GenerateContentConfig{Tools: tools}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = req.MaxTokens
	}
	if req.Temperature != nil {
		cfg.Temperature = genai.Ptr(float32(*req.Temperature))
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	resp, err := c.client.Models.GenerateContent(ctx, req.Model, genai.Text(req.Prompt), cfg)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
			return nil, resilience.NewRateLimitError("google", err)
		}
		return nil, eris.Wrap(err, "gemini: generate content")
	}
	return resp, nil
}

func textResponse(resp *genai.GenerateContentResponse, model string) *TextResponse {
	out := &TextResponse{
		Content: resp.Text(),
		Model:   model,
	}
	if resp.UsageMetadata != nil {
		out.InputTokens = int64(resp.UsageMetadata.PromptTokenCount)
		out.OutputTokens = int64(resp.UsageMetadata.CandidatesTokenCount)
	}
	return out
}

// supportFraction computes how much of the generated text falls inside
// grounding support segments. Overlapping segments are merged so the
// result stays within 0..1.
func supportFraction(text string, supports []*genai.GroundingSupport) float64 {
	if len(text) == 0 || len(supports) == 0 {
		return 0
	}

	type span struct{ start, end int }
	spans := make([]span, 0, len(supports))
	for _, s := range supports {
		if s == nil || s.Segment == nil {
			continue
		}
		start, end := int(s.Segment.StartIndex), int(s.Segment.EndIndex)
		if start < 0 {
			start = 0
		}
		if end > len(text) {
			end = len(text)
		}
		if end > start {
			spans = append(spans, span{start, end})
		}
	}
	if len(spans) == 0 {
		return 0
	}

	// Sort by start, then merge in one linear pass.
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	covered := 0
	curStart, curEnd := spans[0].start, spans[0].end
	for _, s := range spans[1:] {
		if s.start <= curEnd {
			if s.end > curEnd {
				curEnd = s.end
			}
			continue
		}
		covered += curEnd - curStart
		curStart, curEnd = s.start, s.end
	}
	covered += curEnd - curStart

	f := float64(covered) / float64(len(text))
	if f > 1 {
		f = 1
	}
	return f
}
