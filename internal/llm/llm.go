package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/aimcr/aimcr/internal/models"
	"github.com/aimcr/aimcr/internal/risk"
)

// Suggestion is drafted reviewer text. The reviewer edits it before use; it
// never sets the final decision.
type Suggestion struct {
	Observations   string `json:"observations"`
	Recommendation string `json:"recommendation"`
}

// Client wraps the Anthropic API for review drafting.
type Client struct {
	api   *anthropic.Client
	model anthropic.Model
}

// NewClient creates an LLM client with the given API key and model.
func NewClient(apiKey, model string) *Client {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	client := anthropic.NewClient(opts...)
	return &Client{
		api:   &client,
		model: anthropic.Model(model),
	}
}

// buildSuggestPrompt constructs the system and user prompts from a review and its scores.
func buildSuggestPrompt(doc *models.ReviewDocument, a *risk.Assessment) (system string, user string) {
	system = `You assist a reviewer completing an AI Model Control Review of a computational project. Risk is scored per check from 1 (no risk) to 5 (critical). Section totals below 10 are green, 10-14 yellow, 15-20 orange, 21 and above red. Any single score of 5 is critical regardless of totals.

Return ONLY a JSON object with exactly two fields:
- "observations": 2-6 sentences summarizing the notable risks, naming the artifacts and checks that drive them
- "recommendation": 1-3 sentences recommending an outcome and any conditions (monitoring, escalation, rejection)

Rules:
- Base every statement on the scores and notes provided; do not invent findings
- Mention every critical check by artifact and check name
- If model compute exceeds 1e27 FLOPs, recommend escalation
- Return valid JSON only, no markdown fencing or explanation`

	var sb strings.Builder
	m := doc.Metadata
	fmt.Fprintf(&sb, "Proposal: %s\nProject ID: %s\n", m.ProposalTitle, m.ProjectID)
	if m.PrincipalInvestigator != "" {
		fmt.Fprintf(&sb, "Principal investigator: %s\n", m.PrincipalInvestigator)
	}
	fmt.Fprintf(&sb, "\nHighest tier: %s\nAdvisory decision: %s\n", a.HighestTier, a.Advisory)

	for _, ss := range a.Sections {
		artifacts := doc.Artifacts(ss.Section)
		if len(artifacts) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "\n## %s (section max total %d, %s)\n", ss.Section.Title(), ss.SectionMaxTotal, ss.Tier)
		for _, art := range artifacts {
			fmt.Fprintf(&sb, "- %s (raw total %d)\n", art.DisplayName(), risk.ArtifactRawTotal(art))
			for _, c := range art.Checks {
				if c.Score < models.ScoreModerateRisk && c.Notes == "" {
					continue
				}
				fmt.Fprintf(&sb, "  - %s: %d (%s)", c.Name, c.Score, c.Score.Label())
				if c.Notes != "" {
					fmt.Fprintf(&sb, " notes: %s", c.Notes)
				}
				if c.Score == models.ScoreCritical {
					sb.WriteString(" [CRITICAL]")
				}
				sb.WriteString("\n")
			}
		}
	}

	if md := doc.ModelDetails; md != nil {
		fmt.Fprintf(&sb, "\nModel: %s, training FLOPs %s, planned FLOPs %s, exceeds 1e27: %t\n",
			md.ModelName, md.TrainingFLOPs, md.EstimatedFLOPs, md.ExceedsThreshold)
	}
	if doc.Observations != "" {
		fmt.Fprintf(&sb, "\nReviewer draft observations: %s\n", doc.Observations)
	}
	user = sb.String()
	return
}

// parseReply strips optional markdown fencing and decodes the JSON reply.
func parseReply(text string) (*Suggestion, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		lines := strings.SplitN(text, "\n", 2)
		if len(lines) > 1 {
			text = lines[1]
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	var s Suggestion
	if err := json.Unmarshal([]byte(text), &s); err != nil {
		return nil, fmt.Errorf("parse LLM response as JSON: %w\nraw response: %s", err, text)
	}
	return &s, nil
}

// SuggestRecommendation drafts observations and a recommendation for doc.
func (c *Client) SuggestRecommendation(ctx context.Context, doc *models.ReviewDocument, a *risk.Assessment) (*Suggestion, error) {
	systemPrompt, userPrompt := buildSuggestPrompt(doc, a)

	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 2048,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic API call: %w", err)
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		return nil, fmt.Errorf("no text content in API response")
	}

	return parseReply(text)
}
