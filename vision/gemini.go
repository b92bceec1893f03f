package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
)

const geminiDefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Gemini is the primary vision provider. Transient upstream failures (5xx,
// 429) are retried with exponential backoff; a malformed response is final.
type Gemini struct {
	apiKey      string
	model       string
	baseURL     string
	backoffBase time.Duration
	httpClient  *http.Client
}

func NewGemini(apiKey string, httpClient *http.Client) *Gemini {
	return &Gemini{
		apiKey:      apiKey,
		model:       "gemini-1.5-pro",
		baseURL:     geminiDefaultBaseURL,
		backoffBase: 2 * time.Second,
		httpClient:  httpClient,
	}
}

func (g *Gemini) Name() string { return "gemini" }

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

const maxProviderAttempts = 3

func (g *Gemini) Analyze(ctx context.Context, imageURL string) (*Analysis, error) {
	imageData, err := fetchImage(ctx, g.httpClient, imageURL)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}

	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{
			Parts: []geminiPart{
				{InlineData: &geminiInlineData{
					MimeType: "image/jpeg",
					Data:     base64.StdEncoding.EncodeToString(imageData),
				}},
				{Text: analysisPrompt},
			},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini request encoding: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)

	var analysis *Analysis
	backoff := retry.WithMaxRetries(maxProviderAttempts-1, retry.NewExponential(g.backoffBase))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := g.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()
		payload, err := io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(err)
		}
		if transientStatus(resp.StatusCode) {
			return retry.RetryableError(fmt.Errorf("gemini status %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("gemini status %d: %s", resp.StatusCode, payload)
		}
		var decoded geminiResponse
		if err := json.Unmarshal(payload, &decoded); err != nil {
			return fmt.Errorf("gemini response decoding: %w", err)
		}
		if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
			return fmt.Errorf("gemini returned no candidates")
		}
		analysis, err = parseAnalysis(decoded.Candidates[0].Content.Parts[0].Text)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	return analysis, nil
}

func transientStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

func fetchImage(ctx context.Context, client *http.Client, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching image: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading image body: %w", err)
	}
	return data, nil
}
