package retrieval

import (
	"strings"

	"github.com/atelier-labs/campaign-engine/internal/model"
)

// Placeholder tokens recognized in framework text. Tokens without a
// corresponding client-context value are left verbatim.
const (
	tokenClientName       = "[CLIENT NAME]"
	tokenIndustry         = "[INDUSTRY]"
	tokenTargetAudience   = "[TARGET AUDIENCE]"
	tokenBusinessGoals    = "[BUSINESS GOALS]"
	tokenBrandVoice       = "[BRAND VOICE]"
	tokenValueProposition = "[VALUE PROPOSITION]"
)

// FormatForPrompt renders matched frameworks as a prompt block,
// substituting client-context values for placeholder tokens. With a
// nil context all tokens stay verbatim.
func FormatForPrompt(frameworks []model.Framework, cc *model.ClientContext) string {
	if len(frameworks) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("RELEVANT MARKETING FRAMEWORKS:\n\n")
	for i, f := range frameworks {
		if i > 0 {
			b.WriteString("\n---\n\n")
		}
		b.WriteString("## ")
		b.WriteString(f.Name)
		if f.Category != "" {
			b.WriteString(" (")
			b.WriteString(f.Category)
			b.WriteString(")")
		}
		b.WriteString("\n\n")
		b.WriteString(substitute(f.Content, cc))
		b.WriteString("\n")
	}
	return b.String()
}

func substitute(text string, cc *model.ClientContext) string {
	if cc == nil {
		return text
	}

	pairs := []struct {
		token string
		value string
	}{
		{tokenClientName, cc.Name},
		{tokenIndustry, cc.Industry},
		{tokenTargetAudience, cc.TargetAudience},
		{tokenBusinessGoals, cc.BusinessGoals},
		{tokenBrandVoice, cc.BrandVoice},
		{tokenValueProposition, cc.ValueProposition},
	}

	for _, p := range pairs {
		if p.value == "" {
			continue
		}
		text = strings.ReplaceAll(text, p.token, p.value)
	}
	return text
}
