package extractor

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/crestline-labs/fincompare/internal/cost"
	"github.com/crestline-labs/fincompare/internal/kpinorm"
	"github.com/crestline-labs/fincompare/internal/resilience"
	"github.com/crestline-labs/fincompare/pkg/anthropic"
)

const anthropicProvider = "anthropic"

// AnthropicExtractor extracts metrics with an Anthropic model.
type AnthropicExtractor struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	synonyms  *kpinorm.SynonymTable
}

// NewAnthropicExtractor wires an Anthropic-backed extractor. A zero
// maxTokens defaults to 2048.
func NewAnthropicExtractor(client anthropic.Client, modelID string, maxTokens int64, synonyms *kpinorm.SynonymTable) *AnthropicExtractor {
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	return &AnthropicExtractor{
		client:    client,
		model:     modelID,
		maxTokens: maxTokens,
		synonyms:  synonyms,
	}
}

func (e *AnthropicExtractor) Name() string { return anthropicProvider }

func (e *AnthropicExtractor) Extract(ctx context.Context, text string) (*Extraction, error) {
	temp := 0.0
	resp, err := e.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       e.model,
		MaxTokens:   e.maxTokens,
		System:      systemPrompt,
		Temperature: &temp,
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf("Extract the financial metrics from this document:\n\n%s", text)},
		},
	})
	if err != nil {
		code := anthropic.StatusCode(err)
		if resilience.AuthStatus(code) {
			return nil, resilience.InvalidAuth(anthropicProvider, code, err)
		}
		if resilience.RetryableStatus(code) || resilience.IsRetryable(err) {
			return nil, resilience.Unavailable(anthropicProvider, code, err)
		}
		return nil, err
	}

	resp.Usage.Log(e.model, "metric extraction")

	extraction, err := parseExtraction(resp.Text, e.synonyms)
	if err != nil {
		return nil, err
	}
	extraction.Provider = anthropicProvider

	zap.L().Debug("anthropic extraction complete",
		zap.String("model", e.model),
		zap.Int("metrics", len(extraction.Metrics)),
		zap.String("company", extraction.CompanyName),
		zap.Float64("estimated_cost_usd", cost.Anthropic(e.model, resp.Usage.InputTokens, resp.Usage.OutputTokens)),
	)
	return extraction, nil
}
