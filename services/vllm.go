package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// VLLMService talks to a self-hosted OpenAI-compatible inference server.
// Used instead of Gemini when LLM_BASE_URL is configured.
type VLLMService struct {
	baseURL   string
	apiSecret string
	model     string
	client    *http.Client
}

type VLLMMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type VLLMRequest struct {
	Model       string        `json:"model"`
	Messages    []VLLMMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type VLLMResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// NewVLLMService creates a client for the self-hosted model endpoint.
// apiSecret, when non-empty, is sent as a shared-secret header.
func NewVLLMService(baseURL, apiSecret, model string) *VLLMService {
	return &VLLMService{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiSecret: apiSecret,
		model:     model,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Generate sends the assembled prompt to the self-hosted model and
// returns the first choice's text
func (s *VLLMService) Generate(ctx context.Context, systemPrompt, prompt string) (string, error) {
	messages := make([]VLLMMessage, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, VLLMMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, VLLMMessage{Role: "user", Content: prompt})

	reqBody := VLLMRequest{
		Model:       s.model,
		Messages:    messages,
		MaxTokens:   2000,
		Temperature: 0.7,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/chat/completions", s.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if s.apiSecret != "" {
		req.Header.Set("X-API-Secret", s.apiSecret)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request to vLLM: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("vLLM API error (status %d): %s", resp.StatusCode, string(body))
	}

	var vllmResp VLLMResponse
	if err := json.Unmarshal(body, &vllmResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if len(vllmResp.Choices) == 0 {
		return "", fmt.Errorf("no response from vLLM")
	}

	return vllmResp.Choices[0].Message.Content, nil
}
