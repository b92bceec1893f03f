package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const groqDefaultBaseURL = "https://api.groq.com/openai/v1"

// Groq is the fallback provider, speaking the OpenAI chat-completions shape.
// No retry here: by the time Groq is asked the user has already waited
// through the primary's attempts.
type Groq struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

func NewGroq(apiKey string, httpClient *http.Client) *Groq {
	return &Groq{
		apiKey:     apiKey,
		model:      "llama-3.2-90b-vision-preview",
		baseURL:    groqDefaultBaseURL,
		httpClient: httpClient,
	}
}

func (g *Groq) Name() string { return "groq" }

type groqRequest struct {
	Messages    []groqMessage `json:"messages"`
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type groqMessage struct {
	Role    string        `json:"role"`
	Content []groqContent `json:"content"`
}

type groqContent struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *groqImageURL `json:"image_url,omitempty"`
}

type groqImageURL struct {
	URL string `json:"url"`
}

type groqResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (g *Groq) Analyze(ctx context.Context, imageURL string) (*Analysis, error) {
	imageData, err := fetchImage(ctx, g.httpClient, imageURL)
	if err != nil {
		return nil, fmt.Errorf("groq: %w", err)
	}

	content, err := g.complete(ctx, []groqContent{
		{Type: "text", Text: analysisPrompt},
		{Type: "image_url", ImageURL: &groqImageURL{
			URL: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(imageData),
		}},
	}, 0.5, 1024)
	if err != nil {
		return nil, fmt.Errorf("groq: %w", err)
	}
	analysis, err := parseAnalysis(content)
	if err != nil {
		return nil, fmt.Errorf("groq: %w", err)
	}
	return analysis, nil
}

// Complete sends a plain text prompt and returns the raw completion. The
// urlcheck classifier rides on this too, so the page-match call shares one
// provider client with image analysis.
func (g *Groq) Complete(ctx context.Context, prompt string) (string, error) {
	return g.complete(ctx, []groqContent{{Type: "text", Text: prompt}}, 0.1, 500)
}

func (g *Groq) complete(ctx context.Context, content []groqContent, temperature float64, maxTokens int) (string, error) {
	body, err := json.Marshal(groqRequest{
		Messages:    []groqMessage{{Role: "user", Content: content}},
		Model:       g.model,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("request encoding: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, payload)
	}
	var decoded groqResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return "", fmt.Errorf("response decoding: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return decoded.Choices[0].Message.Content, nil
}
