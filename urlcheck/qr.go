package urlcheck

import (
	"context"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// ValidateQR grades one raw QR payload. URLs are normalized (scheme default,
// short links resolved, tracking stripped); anything that does not look like
// a URL survives as opaque text when long enough.
func (c *Checker) ValidateQR(ctx context.Context, payload string) QRResult {
	cleaned := strings.TrimSpace(payload)
	cleaned = strings.NewReplacer("\n", "", "\r", "", "\t", "").Replace(cleaned)
	if len(cleaned) < c.minQRLength {
		return QRResult{IsValid: false, Confidence: 0}
	}

	candidate, ok := asURL(cleaned)
	if !ok {
		return QRResult{IsValid: true, URL: cleaned, Source: SourceText, Confidence: 0.6}
	}

	if isShortLinkHost(candidate.Host) {
		resolved, err := c.resolveShortURL(ctx, candidate.String())
		if err != nil {
			c.log.Warn("short-link resolution failed, keeping original", zap.String("url", candidate.String()), zap.Error(err))
			return QRResult{IsValid: true, URL: CleanURL(candidate.String()), Source: SourceQR, Confidence: 0.9}
		}
		return QRResult{IsValid: true, URL: resolved, Source: SourceQR, Confidence: 0.9}
	}

	return QRResult{IsValid: true, URL: CleanURL(candidate.String()), Source: SourceQR, Confidence: 0.9}
}

// asURL decides whether a payload is a web address. A bare domain gets an
// https scheme; payloads with spaces or without a dot stay opaque text.
func asURL(payload string) (*url.URL, bool) {
	if !strings.Contains(payload, ".") || strings.Contains(payload, " ") {
		return nil, false
	}
	raw := payload
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return nil, false
	}
	return parsed, true
}
