// Package urlcheck resolves and validates the QR payloads and website URLs
// pulled off storefront photos. A payload travels trim → URL parse →
// short-link resolution → tracking cleanup, and candidate websites are
// cross-checked against the detected business name with an LLM classifier.
package urlcheck

import (
	"context"
	"net/http"

	"go.uber.org/zap"
)

type Source string

const (
	SourceQR   Source = "qr"
	SourceText Source = "text"
)

// QRResult grades a raw QR payload. Resolvable URLs score 0.9, opaque text
// long enough to be meaningful scores 0.6, everything shorter is rejected.
type QRResult struct {
	IsValid    bool
	URL        string
	Source     Source
	Confidence float64
}

type WebSummary struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Type        string `json:"type"`
}

type MatchDetails struct {
	NameMatch        bool     `json:"nameMatch"`
	AddressMatch     bool     `json:"addressMatch"`
	IsRealEstateSite bool     `json:"isRealEstateSite"`
	FoundEvidence    []string `json:"foundEvidence"`
}

// PageMatch is the verbatim JSON contract the classifier must return.
type PageMatch struct {
	IsValid           bool          `json:"isValid"`
	MatchesBusiness   bool          `json:"matchesBusiness"`
	Confidence        float64       `json:"confidence"`
	Error             string        `json:"error,omitempty"`
	WebSummary        *WebSummary   `json:"webSummary,omitempty"`
	ValidationDetails *MatchDetails `json:"validationDetails,omitempty"`
}

// Classifier answers whether a page's text belongs to a named business.
type Classifier interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type Checker struct {
	httpClient  *http.Client
	classifier  Classifier
	minQRLength int
	log         *zap.Logger
}

func New(httpClient *http.Client, classifier Classifier, minQRLength int, log *zap.Logger) *Checker {
	return &Checker{
		httpClient:  httpClient,
		classifier:  classifier,
		minQRLength: minQRLength,
		log:         log,
	}
}
