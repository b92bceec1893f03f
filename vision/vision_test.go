package vision

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/StartupEmbassy/AgencyAtlas/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	name   string
	result *Analysis
	err    error
	calls  atomic.Int64
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Analyze(ctx context.Context, imageURL string) (*Analysis, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	res := *f.result
	return &res, nil
}

func TestAnalyzerPrimaryWins(t *testing.T) {
	log, err := logger.ForTests()
	require.NoError(t, err)
	primary := &fakeProvider{name: "gemini", result: &Analysis{Name: "Acme"}}
	fallback := &fakeProvider{name: "groq", result: &Analysis{Name: "Other"}}
	a := NewAnalyzer(primary, fallback, log)

	got := a.Analyze(context.Background(), "http://img")
	assert.False(t, got.Err)
	assert.Equal(t, "Acme", got.Name)
	assert.Equal(t, "gemini", got.Provider)
	assert.EqualValues(t, 0, fallback.calls.Load())
}

func TestAnalyzerFallsBackOnce(t *testing.T) {
	log, err := logger.ForTests()
	require.NoError(t, err)
	primary := &fakeProvider{name: "gemini", err: errors.New("quota exhausted")}
	fallback := &fakeProvider{name: "groq", result: &Analysis{Name: "Acme"}}
	a := NewAnalyzer(primary, fallback, log)

	got := a.Analyze(context.Background(), "http://img")
	assert.False(t, got.Err)
	assert.Equal(t, "groq", got.Provider)
	assert.EqualValues(t, 1, fallback.calls.Load())
}

func TestAnalyzerBothFail(t *testing.T) {
	log, err := logger.ForTests()
	require.NoError(t, err)
	primary := &fakeProvider{name: "gemini", err: errors.New("boom")}
	fallback := &fakeProvider{name: "groq", err: errors.New("also down")}
	a := NewAnalyzer(primary, fallback, log)

	got := a.Analyze(context.Background(), "http://img")
	assert.True(t, got.Err)
	assert.NotEmpty(t, got.ErrMessage)
}

func TestAnalyzeAllKeepsOrder(t *testing.T) {
	log, err := logger.ForTests()
	require.NoError(t, err)
	primary := &orderedProvider{}
	fallback := &fakeProvider{name: "groq", err: errors.New("unused")}
	a := NewAnalyzer(primary, fallback, log)

	urls := []string{"u0", "u1", "u2", "u3", "u4"}
	results := a.AnalyzeAll(context.Background(), urls)
	require.Len(t, results, len(urls))
	for i, res := range results {
		assert.Equal(t, urls[i], res.Name, "result %d paired with wrong photo", i)
	}
}

type orderedProvider struct{}

func (o *orderedProvider) Name() string { return "ordered" }

func (o *orderedProvider) Analyze(ctx context.Context, imageURL string) (*Analysis, error) {
	return &Analysis{Name: imageURL}, nil
}
