package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"labreport-backend/internal/llm"
)

const defaultAPIURL = "https://api.openai.com/v1/chat/completions"

// Client implements llm.Client using OpenAI Chat Completions.
type Client struct {
	apiKey     string
	model      string
	apiURL     string
	httpClient *http.Client
}

// NewClient constructs a new OpenAI client.
func NewClient(apiKey, model string) (*Client, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required for OpenAI")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	timeout := 120 * time.Second
	if raw := strings.TrimSpace(os.Getenv("OPENAI_TIMEOUT_SECONDS")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			timeout = time.Duration(parsed) * time.Second
		}
	}
	return &Client{
		apiKey: apiKey,
		model:  model,
		apiURL: defaultAPIURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    *float32       `json:"temperature,omitempty"`
	ResponseFormat responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage *chatUsage `json:"usage,omitempty"`
	Error *apiError `json:"error,omitempty"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"`
}

// AnalyzeReport sends the report text to the completion API and returns
// the raw JSON payload from the model.
func (c *Client) AnalyzeReport(ctx context.Context, input llm.AnalyzeInput) (json.RawMessage, error) {
	messages := BuildPrompt(input.ReportText, input.ReportType, input.Profile)

	reqMessages := make([]chatMessage, 0, len(messages))
	for _, m := range messages {
		reqMessages = append(reqMessages, chatMessage{Role: m.Role, Content: m.Content})
	}
	temp := float32(0)
	reqBody := chatRequest{
		Model:    c.model,
		Messages: reqMessages,
		ResponseFormat: responseFormat{
			Type: "json_object",
		},
	}
	reqBody.Temperature = &temp
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return nil, &llm.Error{Kind: llm.KindTimeout, Message: "openai request timeout", Err: err}
		}
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("openai response parse: %w", err)
	}
	if parsed.Error != nil {
		return nil, classifyAPIError(resp.StatusCode, parsed.Error)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &llm.Error{Kind: llm.KindRateLimited, Message: "openai rate limited"}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &llm.Error{Kind: llm.KindProvider, Message: fmt.Sprintf("openai status %d", resp.StatusCode)}
	}
	if len(parsed.Choices) == 0 {
		return nil, &llm.Error{Kind: llm.KindProvider, Message: "openai response missing choices"}
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return nil, &llm.Error{Kind: llm.KindProvider, Message: "openai response empty content"}
	}
	logUsage(c.model, parsed.Usage)
	return json.RawMessage(content), nil
}

func classifyAPIError(status int, apiErr *apiError) error {
	code := ""
	if s, ok := apiErr.Code.(string); ok {
		code = s
	}
	msg := fmt.Sprintf("openai error: %s (%s)", apiErr.Message, apiErr.Type)
	switch {
	case status == http.StatusTooManyRequests,
		apiErr.Type == "rate_limit_exceeded",
		code == "rate_limit_exceeded",
		apiErr.Type == "insufficient_quota",
		code == "insufficient_quota":
		return &llm.Error{Kind: llm.KindRateLimited, Message: msg}
	case code == "context_length_exceeded",
		apiErr.Type == "context_length_exceeded",
		strings.Contains(strings.ToLower(apiErr.Message), "maximum context length"):
		return &llm.Error{Kind: llm.KindInputTooLarge, Message: msg}
	default:
		return &llm.Error{Kind: llm.KindProvider, Message: msg}
	}
}

func logUsage(model string, usage *chatUsage) {
	if usage == nil {
		log.Printf("llm response model=%s", model)
		return
	}
	log.Printf("llm response model=%s prompt_tokens=%d completion_tokens=%d total_tokens=%d",
		model, usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens)
}

var _ llm.Client = (*Client)(nil)
