// Package providers holds thin REST clients for the model providers. Only
// request shape lives here; retries, streaming and richer options belong to
// the callers.
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TextClient produces a completion for a system prompt plus message history.
type TextClient interface {
	Complete(ctx context.Context, model, system string, messages []Message) (string, error)
}

// ImageClient generates count images and returns them base64-encoded.
type ImageClient interface {
	Generate(ctx context.Context, model, prompt string, count int, quality string) ([]string, error)
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 120 * time.Second}
}

// postJSON sends the request and decodes a 2xx response into out.
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("provider returned %d: %s", resp.StatusCode, snippet)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

//
// OpenAI
//

type OpenAIClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

func NewOpenAIClient(apiKey string) *OpenAIClient {
	return &OpenAIClient{apiKey: apiKey, baseURL: "https://api.openai.com/v1", http: newHTTPClient()}
}

func (c *OpenAIClient) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + c.apiKey}
}

func (c *OpenAIClient) Complete(ctx context.Context, model, system string, messages []Message) (string, error) {
	msgs := make([]Message, 0, len(messages)+1)
	if system != "" {
		msgs = append(msgs, Message{Role: "system", Content: system})
	}
	msgs = append(msgs, messages...)

	var resp struct {
		Choices []struct {
			Message Message `json:"message"`
		} `json:"choices"`
	}
	err := postJSON(ctx, c.http, c.baseURL+"/chat/completions", c.headers(), map[string]any{
		"model":    model,
		"messages": msgs,
	}, &resp)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: empty completion for model %s", model)
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) Generate(ctx context.Context, model, prompt string, count int, quality string) ([]string, error) {
	var resp struct {
		Data []struct {
			B64JSON string `json:"b64_json"`
		} `json:"data"`
	}
	err := postJSON(ctx, c.http, c.baseURL+"/images/generations", c.headers(), map[string]any{
		"model":   model,
		"prompt":  prompt,
		"n":       count,
		"quality": quality,
	}, &resp)
	if err != nil {
		return nil, err
	}
	images := make([]string, 0, len(resp.Data))
	for _, d := range resp.Data {
		images = append(images, d.B64JSON)
	}
	return images, nil
}

//
// Anthropic
//

type AnthropicClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

func NewAnthropicClient(apiKey string) *AnthropicClient {
	return &AnthropicClient{apiKey: apiKey, baseURL: "https://api.anthropic.com/v1", http: newHTTPClient()}
}

func (c *AnthropicClient) Complete(ctx context.Context, model, system string, messages []Message) (string, error) {
	var resp struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	err := postJSON(ctx, c.http, c.baseURL+"/messages", map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": "2023-06-01",
	}, map[string]any{
		"model":      model,
		"system":     system,
		"messages":   messages,
		"max_tokens": 4096,
	}, &resp)
	if err != nil {
		return "", err
	}
	if len(resp.Content) == 0 {
		return "", fmt.Errorf("anthropic: empty completion for model %s", model)
	}
	return resp.Content[0].Text, nil
}

//
// Google
//

type GoogleClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

func NewGoogleClient(apiKey string) *GoogleClient {
	return &GoogleClient{apiKey: apiKey, baseURL: "https://generativelanguage.googleapis.com/v1beta", http: newHTTPClient()}
}

func (c *GoogleClient) Complete(ctx context.Context, model, system string, messages []Message) (string, error) {
	contents := make([]map[string]any, 0, len(messages))
	for _, m := range messages {
		role := m.Role
		if role == "assistant" {
			role = "model"
		}
		contents = append(contents, map[string]any{
			"role":  role,
			"parts": []map[string]string{{"text": m.Content}},
		})
	}
	body := map[string]any{"contents": contents}
	if system != "" {
		body["systemInstruction"] = map[string]any{
			"parts": []map[string]string{{"text": system}},
		}
	}

	var resp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, model, c.apiKey)
	if err := postJSON(ctx, c.http, url, nil, body, &resp); err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("google: empty completion for model %s", model)
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}

func (c *GoogleClient) Generate(ctx context.Context, model, prompt string, count int, quality string) ([]string, error) {
	var resp struct {
		Predictions []struct {
			BytesBase64Encoded string `json:"bytesBase64Encoded"`
		} `json:"predictions"`
	}
	url := fmt.Sprintf("%s/models/%s:predict?key=%s", c.baseURL, model, c.apiKey)
	err := postJSON(ctx, c.http, url, nil, map[string]any{
		"instances":  []map[string]string{{"prompt": prompt}},
		"parameters": map[string]any{"sampleCount": count},
	}, &resp)
	if err != nil {
		return nil, err
	}
	images := make([]string, 0, len(resp.Predictions))
	for _, p := range resp.Predictions {
		images = append(images, p.BytesBase64Encoded)
	}
	return images, nil
}
