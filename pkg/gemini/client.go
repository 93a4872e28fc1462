// Package gemini wraps the official google.golang.org/genai SDK behind a
// small interface mirroring pkg/anthropic, so the extraction layer treats
// both model providers uniformly.
package gemini

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// Client defines the Gemini API operations used by the extraction layer.
type Client interface {
	GenerateContent(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// GenerateRequest is our own request type for GenerateContent.
type GenerateRequest struct {
	Model       string
	System      string
	Prompt      string
	Temperature *float32
	// JSONOutput asks the model for an application/json response body.
	JSONOutput bool
}

// GenerateResponse is our own response type from GenerateContent.
type GenerateResponse struct {
	Text  string
	Usage TokenUsage
}

// TokenUsage tracks token consumption for cost logging.
type TokenUsage struct {
	InputTokens  int32
	OutputTokens int32
}

// Log emits token usage with structured fields.
func (u TokenUsage) Log(model, phase string) {
	zap.L().Info("token usage",
		zap.String("model", model),
		zap.String("phase", phase),
		zap.Int32("input_tokens", u.InputTokens),
		zap.Int32("output_tokens", u.OutputTokens),
	)
}

// StatusCode extracts the HTTP status from an API error in err's chain.
// Returns 0 when no HTTP response was involved.
func StatusCode(err error) int {
	var apiErr *genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return 0
}

type sdkClient struct {
	client *genai.Client
}

// NewClient creates a Gemini client backed by the official SDK.
func NewClient(ctx context.Context, apiKey string) (Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, eris.Wrap(err, "gemini: create client")
	}
	return &sdkClient{client: client}, nil
}

func (c *sdkClient) GenerateContent(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	config := &genai.GenerateContentConfig{}
	if req.Temperature != nil {
		config.Temperature = genai.Ptr(*req.Temperature)
	}
	if req.JSONOutput {
		config.ResponseMIMEType = "application/json"
	}
	if req.System != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.System}},
		}
	}

	result, err := c.client.Models.GenerateContent(ctx, req.Model, genai.Text(req.Prompt), config)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: generate content")
	}

	resp := &GenerateResponse{Text: result.Text()}
	if result.UsageMetadata != nil {
		resp.Usage = TokenUsage{
			InputTokens:  result.UsageMetadata.PromptTokenCount,
			OutputTokens: result.UsageMetadata.CandidatesTokenCount,
		}
	}
	return resp, nil
}
