package urlcheck

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

var listingPathMarkers = []string{"/listing", "/inmueble", "/property", "/propiedad", "/ficha", "/anuncio"}

// ListingPattern reports whether a URL looks like a single-property listing
// or a QR short link rather than an agency's own site.
func ListingPattern(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if isShortLinkHost(parsed.Host) {
		return true
	}
	path := strings.ToLower(parsed.Path)
	for _, marker := range listingPathMarkers {
		if strings.Contains(path, marker) {
			return true
		}
	}
	return false
}

func isYouTubeHost(host string) bool {
	host = strings.ToLower(host)
	return host == "youtube.com" || strings.HasSuffix(host, ".youtube.com") || host == "youtu.be"
}

// ValidatePage fetches a candidate website and asks the classifier whether
// its content belongs to the named business. Video and listing hosts are
// short-circuited to fixed confidences: a YouTube watch page is supporting
// media, a listing link is weak evidence, and neither says anything about
// page ownership that content analysis could sharpen.
func (c *Checker) ValidatePage(ctx context.Context, rawURL, businessName string) PageMatch {
	formatted := rawURL
	if !strings.HasPrefix(formatted, "http://") && !strings.HasPrefix(formatted, "https://") {
		formatted = "https://" + formatted
	}
	parsed, err := url.Parse(formatted)
	if err != nil || parsed.Host == "" {
		return PageMatch{IsValid: false, Error: "malformed URL"}
	}

	if isYouTubeHost(parsed.Host) {
		return PageMatch{IsValid: true, MatchesBusiness: false, Confidence: 0.7,
			WebSummary: &WebSummary{Type: "video"}}
	}
	if ListingPattern(formatted) {
		return PageMatch{IsValid: true, MatchesBusiness: false, Confidence: 0.3,
			WebSummary: &WebSummary{Type: "listing"}}
	}

	page, err := c.fetchPage(ctx, formatted)
	if err != nil {
		c.log.Warn("page fetch failed", zap.String("url", formatted), zap.Error(err))
		return PageMatch{IsValid: false, Error: err.Error()}
	}

	text := extractPageText(page)
	match, err := c.classify(ctx, text, businessName)
	if err != nil {
		c.log.Warn("page classification failed", zap.String("url", formatted), zap.Error(err))
		return PageMatch{IsValid: false, Error: err.Error()}
	}
	return match
}

// fetchPage retries with a growing timeout; slow agency sites are common
// and the first attempt's budget is deliberately tight.
func (c *Checker) fetchPage(ctx context.Context, pageURL string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, time.Duration(attempt)*5*time.Second)
		body, err := c.fetchPageOnce(attemptCtx, pageURL)
		cancel()
		if err == nil {
			return body, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return "", fmt.Errorf("fetching %s: %w", pageURL, lastErr)
}

func (c *Checker) fetchPageOnce(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "text/html") {
		return "", fmt.Errorf("unexpected content type %q", ct)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

type pageText struct {
	Title       string
	Description string
	Headings    string
	Body        string
}

func extractPageText(page string) pageText {
	var text pageText
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return text
	}
	var bodyBuilder strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.ElementNode && n.Data == "title":
			text.Title = nodeText(n)
		case n.Type == html.ElementNode && n.Data == "meta":
			var name, content string
			for _, attr := range n.Attr {
				switch strings.ToLower(attr.Key) {
				case "name":
					name = strings.ToLower(attr.Val)
				case "content":
					content = attr.Val
				}
			}
			if name == "description" {
				text.Description = content
			}
		case n.Type == html.ElementNode && n.Data == "h1":
			if text.Headings != "" {
				text.Headings += " "
			}
			text.Headings += nodeText(n)
		case n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style"):
			return
		case n.Type == html.TextNode:
			bodyBuilder.WriteString(n.Data)
			bodyBuilder.WriteString(" ")
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	body := strings.Join(strings.Fields(bodyBuilder.String()), " ")
	if len(body) > 500 {
		body = body[:500]
	}
	text.Body = body
	return text
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return strings.TrimSpace(sb.String())
}

const classifyPromptFormat = `Analyze whether this web content belongs to the real estate agency "%s".

Web content:
Title: %s
Description: %s
Headings: %s
Main content: %s

Respond ONLY with a JSON object in this exact format:
{
    "isValid": boolean,
    "matchesBusiness": boolean,
    "confidence": number (0-1),
    "webSummary": {
        "title": string,
        "description": string,
        "location": string,
        "type": string
    },
    "validationDetails": {
        "nameMatch": boolean,
        "addressMatch": boolean,
        "isRealEstateSite": boolean,
        "foundEvidence": ["evidence", "strings"]
    }
}`

func (c *Checker) classify(ctx context.Context, text pageText, businessName string) (PageMatch, error) {
	prompt := fmt.Sprintf(classifyPromptFormat, businessName, text.Title, text.Description, text.Headings, text.Body)
	answer, err := c.classifier.Complete(ctx, prompt)
	if err != nil {
		return PageMatch{}, fmt.Errorf("classifier: %w", err)
	}
	raw := answer
	if start := strings.Index(answer, "{"); start >= 0 {
		if end := strings.LastIndex(answer, "}"); end > start {
			raw = answer[start : end+1]
		}
	}
	var match PageMatch
	if err := json.Unmarshal([]byte(raw), &match); err != nil {
		return PageMatch{}, fmt.Errorf("classifier returned malformed JSON: %w", err)
	}
	return match, nil
}
