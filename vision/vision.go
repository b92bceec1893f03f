// Package vision wraps the image-understanding providers behind one
// contract: give it a photo URL, get back a uniform Analysis. The primary
// provider is tried first; any failure falls through to the fallback; if
// both fail the Analysis carries the error instead of returning one, so the
// conversation layer never has to distinguish provider failures.
package vision

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Analysis is the JSON contract both providers are prompted to emit.
type Analysis struct {
	Name              string   `json:"name,omitempty"`
	QRData            string   `json:"qr_data,omitempty"`
	WebURL            string   `json:"web_url,omitempty"`
	ValidationScore   float64  `json:"validation_score,omitempty"`
	ValidationReasons []string `json:"validation_reasons,omitempty"`
	ConditionScore    float64  `json:"condition_score,omitempty"`
	ObjectsDetected   []string `json:"objects_detected,omitempty"`
	PhoneNumbers      []string `json:"phone_numbers,omitempty"`
	Emails            []string `json:"emails,omitempty"`
	BusinessHours     string   `json:"business_hours,omitempty"`
	Confidence        float64  `json:"confidence,omitempty"`

	Provider   string `json:"-"`
	Err        bool   `json:"-"`
	ErrMessage string `json:"-"`
}

const analysisPrompt = `Analyze this real estate agency image and provide ONLY a JSON object with this exact format:
{
    "name": "the business name if visible (be very specific, this is critical)",
    "qr_data": "any QR code content if present",
    "web_url": "any website URL visible in the image",
    "validation_score": number from 0-100 indicating how clearly this is a real estate agency,
    "validation_reasons": ["list", "of", "reasons"],
    "condition_score": number from 0-100 indicating the condition of the property,
    "objects_detected": ["list", "of", "objects", "like", "storefront", "sign", "etc"],
    "phone_numbers": ["list", "of", "phone", "numbers", "found"],
    "emails": ["list", "of", "email", "addresses", "found"],
    "business_hours": "business hours if visible (in text format)",
    "confidence": number from 0-1 indicating confidence in business name detection
}`

type Provider interface {
	Name() string
	Analyze(ctx context.Context, imageURL string) (*Analysis, error)
}

type Analyzer struct {
	primary  Provider
	fallback Provider
	log      *zap.Logger
}

func NewAnalyzer(primary, fallback Provider, log *zap.Logger) *Analyzer {
	return &Analyzer{primary: primary, fallback: fallback, log: log}
}

// Analyze never returns an error: a result with Err=true is the terminal
// failure shape after both providers gave up.
func (a *Analyzer) Analyze(ctx context.Context, imageURL string) Analysis {
	res, err := a.primary.Analyze(ctx, imageURL)
	if err == nil {
		res.Provider = a.primary.Name()
		return *res
	}
	a.log.Warn("primary vision provider failed, falling back",
		zap.String("primary", a.primary.Name()),
		zap.String("fallback", a.fallback.Name()),
		zap.Error(err))

	res, err = a.fallback.Analyze(ctx, imageURL)
	if err == nil {
		res.Provider = a.fallback.Name()
		return *res
	}
	a.log.Error("all vision providers failed", zap.Error(err))
	return Analysis{Err: true, ErrMessage: err.Error()}
}

const analyzeFanOut = 3

// AnalyzeAll runs Analyze over a photo set with bounded fan-out. Results are
// written into a slice indexed by the input order, so callers see a
// deterministic pairing no matter which call finishes first.
func (a *Analyzer) AnalyzeAll(ctx context.Context, imageURLs []string) []Analysis {
	results := make([]Analysis, len(imageURLs))
	sem := make(chan struct{}, analyzeFanOut)
	var wg sync.WaitGroup
	for i, url := range imageURLs {
		wg.Add(1)
		go func(i int, url string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = a.Analyze(ctx, url)
		}(i, url)
	}
	wg.Wait()
	return results
}
