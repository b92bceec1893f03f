package urlcheck

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/net/html"
)

var shortLinkHosts = []string{
	"eqrco.de",
	"bit.ly",
	"goo.gl",
	"tinyurl.com",
	"t.co",
	"cutt.ly",
}

func isShortLinkHost(host string) bool {
	host = strings.ToLower(host)
	for _, known := range shortLinkHosts {
		if host == known || strings.HasSuffix(host, "."+known) {
			return true
		}
	}
	return false
}

var trackingParams = []string{"fbclid", "gclid", "_ga", "feature"}

// CleanURL strips tracking query parameters and collapses YouTube watch
// URLs to their canonical ?v= form.
func CleanURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if isYouTubeWatch(parsed) {
		if id := parsed.Query().Get("v"); id != "" {
			return fmt.Sprintf("%s://%s/watch?v=%s", parsed.Scheme, parsed.Host, id)
		}
	}
	query := parsed.Query()
	for key := range query {
		if strings.HasPrefix(key, "utm_") {
			query.Del(key)
			continue
		}
		for _, tracked := range trackingParams {
			if key == tracked {
				query.Del(key)
			}
		}
	}
	parsed.RawQuery = query.Encode()
	return parsed.String()
}

func isYouTubeWatch(u *url.URL) bool {
	host := strings.ToLower(u.Host)
	return (host == "youtube.com" || strings.HasSuffix(host, ".youtube.com")) && u.Path == "/watch"
}

var jsRedirectRe = regexp.MustCompile(`(?i)(?:window\.location(?:\.href)?|location\.replace)\s*[=(]\s*['"]([^'"]+)['"]`)

// resolveShortURL follows a short link to its destination. GET rather than
// HEAD: several shortener hosts answer HEAD with 405. When no HTTP redirect
// fires, the landing HTML is scanned for meta-refresh and JS redirects.
func (c *Checker) resolveShortURL(ctx context.Context, shortURL string) (string, error) {
	var finalURL string
	backoff := retry.WithMaxRetries(2, retry.NewExponential(time.Second))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, shortURL, nil)
		if err != nil {
			return err
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()
		if transient(resp.StatusCode) {
			return retry.RetryableError(fmt.Errorf("short-link status %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("short-link status %d", resp.StatusCode)
		}
		finalURL = resp.Request.URL.String()
		if finalURL == shortURL {
			// No HTTP redirect happened; some shorteners redirect in-page.
			body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
			if err != nil {
				return retry.RetryableError(err)
			}
			if target := findHTMLRedirect(string(body)); target != "" {
				finalURL = target
			}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", shortURL, err)
	}
	return CleanURL(finalURL), nil
}

func transient(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// findHTMLRedirect looks for a meta-refresh tag or a trivial JS location
// assignment in landing HTML and returns the target URL, if any.
func findHTMLRedirect(page string) string {
	doc, err := html.Parse(strings.NewReader(page))
	if err == nil {
		if target := findMetaRefresh(doc); target != "" {
			return target
		}
	}
	if m := jsRedirectRe.FindStringSubmatch(page); m != nil {
		return m[1]
	}
	return ""
}

func findMetaRefresh(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "meta" {
		var equiv, content string
		for _, attr := range n.Attr {
			switch strings.ToLower(attr.Key) {
			case "http-equiv":
				equiv = strings.ToLower(attr.Val)
			case "content":
				content = attr.Val
			}
		}
		if equiv == "refresh" {
			if idx := strings.Index(strings.ToLower(content), "url="); idx >= 0 {
				return strings.TrimSpace(content[idx+len("url="):])
			}
		}
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if target := findMetaRefresh(child); target != "" {
			return target
		}
	}
	return ""
}
