// File: internal/modelclient/google_client.go
package modelclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/circuitscope-cli/api/schemas"
	"github.com/xkilldash9x/circuitscope-cli/internal/config"
)

// GoogleClient implements schemas.ModelClient against the Gemini
// generateContent REST API. One invocation, one HTTP call: failures are not
// retried; the caller decides whether to re-run. The configured timeout is
// the client-side deadline for the whole call.
type GoogleClient struct {
	apiKey     string
	endpoint   string // fixed override; empty means the per-model default
	httpClient *http.Client
	logger     *zap.Logger
	cfg        config.BackendConfig
}

// -- Wire structures (internal to this file) --

type googlePart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *googleInlineData `json:"inlineData,omitempty"`
}

type googleInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"` // base64
}

type googleContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []googlePart `json:"parts"`
}

type googleSearchTool struct{}

type googleTool struct {
	GoogleSearch *googleSearchTool `json:"googleSearch,omitempty"`
}

type googleThinkingConfig struct {
	ThinkingBudget int `json:"thinkingBudget"`
}

type googleGenerationConfig struct {
	Temperature      float64               `json:"temperature,omitempty"`
	TopP             float32               `json:"topP,omitempty"`
	TopK             int                   `json:"topK,omitempty"`
	MaxOutputTokens  int                   `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string                `json:"response_mime_type,omitempty"`
	ResponseSchema   map[string]any        `json:"response_schema,omitempty"`
	ThinkingConfig   *googleThinkingConfig `json:"thinkingConfig,omitempty"`
}

type googleRequestPayload struct {
	Contents         []googleContent         `json:"contents"`
	Tools            []googleTool            `json:"tools,omitempty"`
	GenerationConfig *googleGenerationConfig `json:"generationConfig,omitempty"`
}

type googleGroundingMetadata struct {
	GroundingChunks []schemas.GroundingChunk `json:"groundingChunks"`
}

type googleCandidate struct {
	Content           googleContent            `json:"content"`
	FinishReason      string                   `json:"finishReason"`
	GroundingMetadata *googleGroundingMetadata `json:"groundingMetadata,omitempty"`
}

type googleResponsePayload struct {
	Candidates    []googleCandidate `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// InvocationError describes a failed backend call. The orchestrator collapses
// it into the generic failed outcome; the status code and body stay in logs.
type InvocationError struct {
	StatusCode int
	Body       string
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("backend returned status %d", e.StatusCode)
}

// NewGoogleClient initializes the client. The API key is required.
func NewGoogleClient(cfg config.BackendConfig, logger *zap.Logger) (*GoogleClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("backend API key is required")
	}

	return &GoogleClient{
		apiKey:   cfg.APIKey,
		endpoint: cfg.Endpoint,
		cfg:      cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger.Named("modelclient.google"),
	}, nil
}

// Invoke sends one multimodal request. The model is selected by capability
// mode: the search model carries the Google Search tool, the reasoning model
// enforces the response schema.
func (c *GoogleClient) Invoke(ctx context.Context, req schemas.InvokeRequest) (*schemas.ModelReply, error) {
	payload := c.buildRequestPayload(req)

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	model := c.modelFor(req.Mode)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpointFor(model), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	startTime := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	duration := time.Since(startTime)
	if err != nil {
		return nil, fmt.Errorf("failed to execute HTTP request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("Backend returned error status",
			zap.Int("status", resp.StatusCode),
			zap.String("model", model),
			zap.ByteString("response", respBody),
		)
		return nil, &InvocationError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var responsePayload googleResponsePayload
	if err := json.Unmarshal(respBody, &responsePayload); err != nil {
		return nil, fmt.Errorf("failed to decode response payload: %w", err)
	}
	if responsePayload.Error != nil {
		return nil, fmt.Errorf("backend error: %s (status %s)", responsePayload.Error.Message, responsePayload.Error.Status)
	}
	if len(responsePayload.Candidates) == 0 {
		return nil, fmt.Errorf("backend returned no candidates")
	}

	candidate := responsePayload.Candidates[0]
	text := joinTextParts(candidate.Content.Parts)
	if text == "" {
		if candidate.FinishReason == "SAFETY" || candidate.FinishReason == "BLOCKLIST" {
			return nil, fmt.Errorf("backend blocked the request (reason: %s)", candidate.FinishReason)
		}
		return nil, fmt.Errorf("backend returned empty content parts (reason: %s)", candidate.FinishReason)
	}

	reply := &schemas.ModelReply{Text: text}
	if candidate.GroundingMetadata != nil {
		reply.GroundingChunks = candidate.GroundingMetadata.GroundingChunks
	}

	c.logger.Info("Backend generation complete",
		zap.String("model", model),
		zap.String("mode", string(req.Mode)),
		zap.Bool("schema_enforced", req.EnforceSchema),
		zap.Duration("duration", duration),
		zap.Int("prompt_tokens", responsePayload.UsageMetadata.PromptTokenCount),
		zap.Int("completion_tokens", responsePayload.UsageMetadata.CandidatesTokenCount),
		zap.Int("total_tokens", responsePayload.UsageMetadata.TotalTokenCount),
		zap.Int("grounding_chunks", len(reply.GroundingChunks)),
	)

	return reply, nil
}

// Close releases idle connections.
func (c *GoogleClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *GoogleClient) modelFor(mode schemas.CapabilityMode) string {
	if mode == schemas.ModeGroundedSearch {
		return c.cfg.SearchModel
	}
	return c.cfg.ReasoningModel
}

func (c *GoogleClient) endpointFor(model string) string {
	if c.endpoint != "" {
		return c.endpoint
	}
	return fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent", model)
}

func (c *GoogleClient) buildRequestPayload(req schemas.InvokeRequest) googleRequestPayload {
	parts := make([]googlePart, 0, len(req.Parts))
	for _, p := range req.Parts {
		if p.Attachment != nil {
			parts = append(parts, googlePart{InlineData: &googleInlineData{
				MimeType: p.Attachment.MediaType,
				Data:     base64.StdEncoding.EncodeToString(p.Attachment.Data),
			}})
			continue
		}
		parts = append(parts, googlePart{Text: p.Text})
	}

	genConfig := &googleGenerationConfig{
		Temperature:     c.cfg.Temperature,
		TopP:            c.cfg.TopP,
		TopK:            c.cfg.TopK,
		MaxOutputTokens: c.cfg.MaxOutputTokens,
	}

	payload := googleRequestPayload{
		Contents: []googleContent{
			{Role: "user", Parts: parts},
		},
		GenerationConfig: genConfig,
	}

	if req.Mode == schemas.ModeGroundedSearch {
		// response_mime_type and response_schema are not supported together
		// with the search tool; the prompt carries the shape instead.
		payload.Tools = []googleTool{{GoogleSearch: &googleSearchTool{}}}
		return payload
	}

	if req.EnforceSchema {
		genConfig.ResponseMimeType = "application/json"
		genConfig.ResponseSchema = req.SchemaSpec
		if c.cfg.ThinkingBudget > 0 {
			genConfig.ThinkingConfig = &googleThinkingConfig{ThinkingBudget: c.cfg.ThinkingBudget}
		}
	}
	return payload
}

func joinTextParts(parts []googlePart) string {
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(p.Text)
	}
	return strings.TrimSpace(b.String())
}
