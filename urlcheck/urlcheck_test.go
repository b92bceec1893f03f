package urlcheck

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClassifier struct {
	answer string
	err    error
	prompt string
}

func (f *fakeClassifier) Complete(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.answer, f.err
}

func newTestChecker(classifier Classifier) *Checker {
	return New(http.DefaultClient, classifier, 8, zap.NewNop())
}

func TestCleanURL(t *testing.T) {
	for _, tt := range []struct {
		name string
		in   string
		want string
	}{
		{"utm stripped", "https://agencia.es/?utm_source=qr&utm_medium=print", "https://agencia.es/"},
		{"fbclid stripped", "https://agencia.es/contacto?fbclid=abc123", "https://agencia.es/contacto"},
		{"plain kept", "https://agencia.es/equipo", "https://agencia.es/equipo"},
		{"youtube collapsed", "https://www.youtube.com/watch?v=abc123&feature=share&t=10", "https://www.youtube.com/watch?v=abc123"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanURL(tt.in))
		})
	}
}

func TestValidateQR(t *testing.T) {
	checker := newTestChecker(nil)
	ctx := context.Background()

	t.Run("too short rejected", func(t *testing.T) {
		res := checker.ValidateQR(ctx, "abc")
		assert.False(t, res.IsValid)
		assert.Zero(t, res.Confidence)
	})

	t.Run("whitespace trimmed before length check", func(t *testing.T) {
		res := checker.ValidateQR(ctx, "  a\nb\t  ")
		assert.False(t, res.IsValid)
	})

	t.Run("opaque text accepted", func(t *testing.T) {
		res := checker.ValidateQR(ctx, "REF AGENCIA 44210")
		require.True(t, res.IsValid)
		assert.Equal(t, SourceText, res.Source)
		assert.InDelta(t, 0.6, res.Confidence, 1e-9)
		assert.Equal(t, "REF AGENCIA 44210", res.URL)
	})

	t.Run("bare domain gets scheme", func(t *testing.T) {
		res := checker.ValidateQR(ctx, "agencia-dupont.fr")
		require.True(t, res.IsValid)
		assert.Equal(t, SourceQR, res.Source)
		assert.Equal(t, "https://agencia-dupont.fr", res.URL)
		assert.InDelta(t, 0.9, res.Confidence, 1e-9)
	})

	t.Run("tracking stripped from direct URL", func(t *testing.T) {
		res := checker.ValidateQR(ctx, "https://agencia.es/?utm_source=qr")
		require.True(t, res.IsValid)
		assert.Equal(t, "https://agencia.es/", res.URL)
	})
}

// A short link must land on the same cleaned URL whether the shortener
// answers with an HTTP redirect or with an in-page meta refresh.
func TestShortLinkResolutionConverges(t *testing.T) {
	final := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>agencia</body></html>")
	}))
	defer final.Close()

	target := final.URL + "/?utm_source=qr&fbclid=zzz"
	want := final.URL + "/"

	httpRedirect := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target, http.StatusMovedPermanently)
	}))
	defer httpRedirect.Close()

	metaRefresh := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><head><meta http-equiv="refresh" content="0;url=%s"></head></html>`, target)
	}))
	defer metaRefresh.Close()

	checker := newTestChecker(nil)
	ctx := context.Background()

	viaRedirect, err := checker.resolveShortURL(ctx, httpRedirect.URL)
	require.NoError(t, err)
	viaMeta, err := checker.resolveShortURL(ctx, metaRefresh.URL)
	require.NoError(t, err)

	assert.Equal(t, want, viaRedirect)
	assert.Equal(t, want, viaMeta)
	assert.Equal(t, viaRedirect, viaMeta)
}

func TestResolveShortURLRetriesTransient(t *testing.T) {
	final := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>agencia</body></html>")
	}))
	defer final.Close()

	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		http.Redirect(w, r, final.URL+"/agencia", http.StatusFound)
	}))
	defer server.Close()

	checker := newTestChecker(nil)
	resolved, err := checker.resolveShortURL(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, final.URL+"/agencia", resolved)
	assert.Equal(t, 2, attempts)
}

func TestListingPattern(t *testing.T) {
	assert.True(t, ListingPattern("https://portal.es/inmueble/12345"))
	assert.True(t, ListingPattern("https://site.com/listing/99"))
	assert.True(t, ListingPattern("https://bit.ly/3abcde"))
	assert.False(t, ListingPattern("https://agencia-dupont.fr/contacto"))
}

func TestValidatePage(t *testing.T) {
	ctx := context.Background()

	t.Run("malformed URL rejected", func(t *testing.T) {
		checker := newTestChecker(nil)
		res := checker.ValidatePage(ctx, "ht tp://///", "Agence Dupont")
		assert.False(t, res.IsValid)
		assert.NotEmpty(t, res.Error)
	})

	t.Run("youtube short-circuits", func(t *testing.T) {
		checker := newTestChecker(nil)
		res := checker.ValidatePage(ctx, "https://www.youtube.com/watch?v=abc", "Agence Dupont")
		require.True(t, res.IsValid)
		assert.InDelta(t, 0.7, res.Confidence, 1e-9)
		require.NotNil(t, res.WebSummary)
		assert.Equal(t, "video", res.WebSummary.Type)
	})

	t.Run("listing pattern short-circuits", func(t *testing.T) {
		checker := newTestChecker(nil)
		res := checker.ValidatePage(ctx, "https://portal.es/inmueble/12345", "Agence Dupont")
		require.True(t, res.IsValid)
		assert.InDelta(t, 0.3, res.Confidence, 1e-9)
	})

	t.Run("classifier verdict returned", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, `<html><head><title>Agence Dupont Immobilier</title>`+
				`<meta name="description" content="Agencia inmobiliaria en Lyon"></head>`+
				`<body><h1>Agence Dupont</h1><p>Venta y alquiler.</p></body></html>`)
		}))
		defer server.Close()

		classifier := &fakeClassifier{answer: `{
			"isValid": true, "matchesBusiness": true, "confidence": 0.92,
			"webSummary": {"title": "Agence Dupont Immobilier", "type": "agency"},
			"validationDetails": {"nameMatch": true, "isRealEstateSite": true, "foundEvidence": ["title"]}
		}`}
		checker := newTestChecker(classifier)

		res := checker.ValidatePage(ctx, server.URL, "Agence Dupont")
		require.True(t, res.IsValid)
		assert.True(t, res.MatchesBusiness)
		assert.InDelta(t, 0.92, res.Confidence, 1e-9)
		require.NotNil(t, res.ValidationDetails)
		assert.True(t, res.ValidationDetails.NameMatch)

		assert.Contains(t, classifier.prompt, "Agence Dupont Immobilier")
		assert.Contains(t, classifier.prompt, "Agencia inmobiliaria en Lyon")
	})

	t.Run("malformed classifier JSON rejected", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, "<html><head><title>x</title></head><body>y</body></html>")
		}))
		defer server.Close()

		checker := newTestChecker(&fakeClassifier{answer: "I cannot answer that."})
		res := checker.ValidatePage(ctx, server.URL, "Agence Dupont")
		assert.False(t, res.IsValid)
		assert.NotEmpty(t, res.Error)
	})

	t.Run("non-html content rejected", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/pdf")
			fmt.Fprint(w, "%PDF-1.4")
		}))
		defer server.Close()

		checker := newTestChecker(&fakeClassifier{})
		res := checker.ValidatePage(ctx, server.URL, "Agence Dupont")
		assert.False(t, res.IsValid)
		assert.True(t, strings.Contains(res.Error, "content type"))
	})
}
