package extractor

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/crestline-labs/fincompare/internal/cost"
	"github.com/crestline-labs/fincompare/internal/kpinorm"
	"github.com/crestline-labs/fincompare/internal/resilience"
	"github.com/crestline-labs/fincompare/pkg/gemini"
)

const geminiProvider = "gemini"

// GeminiExtractor extracts metrics with a Gemini model.
type GeminiExtractor struct {
	client   gemini.Client
	model    string
	synonyms *kpinorm.SynonymTable
}

// NewGeminiExtractor wires a Gemini-backed extractor.
func NewGeminiExtractor(client gemini.Client, modelID string, synonyms *kpinorm.SynonymTable) *GeminiExtractor {
	return &GeminiExtractor{client: client, model: modelID, synonyms: synonyms}
}

func (e *GeminiExtractor) Name() string { return geminiProvider }

func (e *GeminiExtractor) Extract(ctx context.Context, text string) (*Extraction, error) {
	temp := float32(0)
	resp, err := e.client.GenerateContent(ctx, gemini.GenerateRequest{
		Model:       e.model,
		System:      systemPrompt,
		Prompt:      fmt.Sprintf("Extract the financial metrics from this document:\n\n%s", text),
		Temperature: &temp,
		JSONOutput:  true,
	})
	if err != nil {
		code := gemini.StatusCode(err)
		if resilience.AuthStatus(code) {
			return nil, resilience.InvalidAuth(geminiProvider, code, err)
		}
		if resilience.RetryableStatus(code) || resilience.IsRetryable(err) {
			return nil, resilience.Unavailable(geminiProvider, code, err)
		}
		return nil, err
	}

	resp.Usage.Log(e.model, "metric extraction")

	extraction, err := parseExtraction(resp.Text, e.synonyms)
	if err != nil {
		return nil, err
	}
	extraction.Provider = geminiProvider

	zap.L().Debug("gemini extraction complete",
		zap.String("model", e.model),
		zap.Int("metrics", len(extraction.Metrics)),
		zap.String("company", extraction.CompanyName),
		zap.Float64("estimated_cost_usd", cost.Gemini(e.model, int64(resp.Usage.InputTokens), int64(resp.Usage.OutputTokens))),
	)
	return extraction, nil
}
