// Package oracle calls a Gemini model to refine an account's trend
// category. The oracle is optional enrichment on top of the deterministic
// decision list: every failure here is reported to the caller, which falls
// back to the rule-based category, so classification never blocks on it.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/bevdash/salesblitz/internal/domain"
)

// DefaultModel is the Gemini model used for classification.
const DefaultModel = "gemini-2.5-flash"

// Client classifies account summaries with a Gemini model.
type Client struct {
	model string
}

// NewClient creates a Client. An empty model selects DefaultModel.
func NewClient(model string) *Client {
	if model == "" {
		model = DefaultModel
	}
	return &Client{model: model}
}

// Classify sends the account summary to the model and returns the category
// it chose plus its confidence (0 when the model omitted one). The model's
// answer is validated against the taxonomy; anything else is an error.
func (c *Client) Classify(ctx context.Context, agg *domain.AccountAggregate) (domain.Category, float64, error) {
	prompt := buildClassificationPrompt(agg)

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return "", 0, fmt.Errorf("oracle.Classify: create genai client: %w", err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: prompt},
			},
		},
	}

	resp, err := client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return "", 0, fmt.Errorf("oracle.Classify: generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return "", 0, fmt.Errorf("oracle.Classify: empty response from model")
	}

	category, confidence, err := decodeResponse(rawText)
	if err != nil {
		return "", 0, fmt.Errorf("oracle.Classify: %w", err)
	}
	return category, confidence, nil
}

// buildClassificationPrompt renders the account summary plus the taxonomy
// and the strict-JSON output contract.
func buildClassificationPrompt(agg *domain.AccountAggregate) string {
	var b strings.Builder

	b.WriteString("You are a sales trend analyst for a beverage distributor.\n\n")
	b.WriteString("Task:\n")
	b.WriteString("- Classify the customer account below into exactly one trend category.\n")
	b.WriteString("- Output STRICT JSON only (no comments, no extra text).\n")
	b.WriteString("- Output a single JSON object with these fields:\n")
	b.WriteString("  - \"category\": string, one of the categories listed below\n")
	b.WriteString("  - \"confidence\": number between 0 and 1\n\n")

	b.WriteString("Categories:\n")
	for _, c := range domain.AllCategories {
		b.WriteString("  - " + string(c) + "\n")
	}
	b.WriteString("\n")

	b.WriteString("Account summary:\n")
	fmt.Fprintf(&b, "  - account name: %s\n", agg.AccountName)
	fmt.Fprintf(&b, "  - baseline monthly volume (case-equivalents): %.3f\n", agg.BaselineAverage)
	fmt.Fprintf(&b, "  - recent monthly volume (case-equivalents): %.3f\n", agg.RecentAverage)
	fmt.Fprintf(&b, "  - trend percent: %.1f\n", agg.TrendPercent)
	fmt.Fprintf(&b, "  - total orders: %d\n", agg.TotalOrders)
	fmt.Fprintf(&b, "  - days since last order: %d\n", agg.DaysSinceLastActivity)
	fmt.Fprintf(&b, "  - lifetime volume (case-equivalents): %.3f\n", agg.LifetimeVolume)
	b.WriteString("\n")

	b.WriteString("Return ONLY valid raw JSON.\n")
	b.WriteString("Do NOT wrap the response in code fences.\n")
	b.WriteString("Do NOT use ```json or any Markdown.\n")
	b.WriteString("Output must begin with \"{\" and end with \"}\".\n")

	return b.String()
}

// decodeResponse parses the model output into a validated category.
func decodeResponse(raw string) (domain.Category, float64, error) {
	clean := cleanModelJSON(raw)

	var parsed struct {
		Category   string   `json:"category"`
		Confidence *float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(clean), &parsed); err != nil {
		return "", 0, fmt.Errorf("unmarshal JSON: %w\nraw response: %s", err, raw)
	}

	category, err := domain.ParseCategory(parsed.Category)
	if err != nil {
		return "", 0, err
	}

	confidence := 0.0
	if parsed.Confidence != nil {
		confidence = *parsed.Confidence
		if confidence < 0 || confidence > 1 {
			return "", 0, fmt.Errorf("confidence %v out of range", confidence)
		}
	}

	return category, confidence, nil
}

// cleanModelJSON strips Markdown fences and surrounding junk when the model
// ignores the formatting instructions.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		// Drop the first line (``` or ```json).
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	// Keep only from the first '{' to the last '}' if junk remains.
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}
