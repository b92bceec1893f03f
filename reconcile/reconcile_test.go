package reconcile

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StartupEmbassy/AgencyAtlas/session"
	"github.com/StartupEmbassy/AgencyAtlas/urlcheck"
	"github.com/StartupEmbassy/AgencyAtlas/vision"
)

var testRules = Rules{QRMinLength: 8, PhoneMinDigits: 9}

func photo(a *vision.Analysis) session.Photo {
	return session.Photo{FileID: "file", Analysis: a}
}

func TestMergePicksNameByConfidence(t *testing.T) {
	photos := []session.Photo{
		photo(&vision.Analysis{Name: "Inmobiliaria Sol", Confidence: 0.4, ObjectsDetected: []string{"sign"}}),
		photo(&vision.Analysis{Name: "Agence Dupont", Confidence: 0.9, ObjectsDetected: []string{"storefront"}}),
		photo(&vision.Analysis{Name: "Dupont", Confidence: 0.9, ObjectsDetected: []string{"door"}}),
	}
	res, err := Merge(photos, testRules)
	require.NoError(t, err)
	assert.Equal(t, "Agence Dupont", res.Name)
	assert.InDelta(t, 0.9, res.NameConfidence, 1e-9)
}

func TestMergeDesignatesOneMainPhoto(t *testing.T) {
	photos := []session.Photo{
		photo(&vision.Analysis{ObjectsDetected: []string{"sign", "window"}}),
		photo(&vision.Analysis{ObjectsDetected: []string{"glass storefront"}}),
		photo(&vision.Analysis{ObjectsDetected: []string{"office building"}}),
	}
	_, err := Merge(photos, testRules)
	require.NoError(t, err)

	mains := 0
	for i, p := range photos {
		require.NotNil(t, p.IsMain, "photo %d must carry an explicit verdict", i)
		if *p.IsMain {
			mains++
		}
	}
	assert.Equal(t, 1, mains)
	assert.True(t, *photos[1].IsMain, "first marker match wins")
}

func TestMergeNoMainPhoto(t *testing.T) {
	photos := []session.Photo{
		photo(&vision.Analysis{ObjectsDetected: []string{"sign", "poster"}}),
		photo(&vision.Analysis{Err: true, ErrMessage: "both providers failed"}),
	}
	_, err := Merge(photos, testRules)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoMainPhoto))
	for i, p := range photos {
		require.NotNil(t, p.IsMain, "photo %d", i)
		assert.False(t, *p.IsMain)
	}
}

func TestMergeDedupesPhones(t *testing.T) {
	photos := []session.Photo{
		photo(&vision.Analysis{
			ObjectsDetected: []string{"storefront"},
			PhoneNumbers:    []string{"06 12 34 56 78", "12345"},
		}),
		photo(&vision.Analysis{
			PhoneNumbers: []string{"+33612345678", "00 33 7 00 11 22 33"},
		}),
	}
	res, err := Merge(photos, testRules)
	require.NoError(t, err)
	assert.Equal(t, []string{"+33612345678", "+33700112233"}, res.Contact.Phones)
}

func TestMergeDedupesPhonesAcrossPrefixes(t *testing.T) {
	photos := []session.Photo{
		photo(&vision.Analysis{
			ObjectsDetected: []string{"storefront"},
			PhoneNumbers:    []string{"+34 912 345 678", "912 345 678"},
		}),
	}
	res, err := Merge(photos, testRules)
	require.NoError(t, err)
	assert.Equal(t, []string{"+34912345678"}, res.Contact.Phones)
}

func TestSimilarPhones(t *testing.T) {
	for _, tt := range []struct {
		a, b string
		want bool
	}{
		{"+34912345678", "+34 912 345 678", true},
		{"+34912345678", "912345678", true},
		{"06 12 34 56 78", "+33612345678", true},
		{"+34912345678", "+33912345678", true},
		{"+34912345678", "+34912345679", false},
		{"912345678", "812345678", false},
	} {
		assert.Equal(t, tt.want, SimilarPhones(tt.a, tt.b), "%s vs %s", tt.a, tt.b)
	}
}

func TestMergeContactFields(t *testing.T) {
	photos := []session.Photo{
		photo(&vision.Analysis{
			ObjectsDetected: []string{"storefront"},
			Emails:          []string{"Info@Agencia.es", "not-an-email"},
			BusinessHours:   "L-V 9-18",
		}),
		{FileID: "secondary", Analysis: &vision.Analysis{
			Emails:        []string{"info@agencia.es"},
			BusinessHours: "Lunes a Viernes 9:00-18:00, Sabado 10:00-14:00",
			QRData:        "https://agencia.es/qr/1",
		}},
		{FileID: "another", Analysis: &vision.Analysis{QRData: "https://agencia.es/qr/1"}},
		photo(&vision.Analysis{QRData: "short"}),
	}
	res, err := Merge(photos, testRules)
	require.NoError(t, err)
	assert.Equal(t, []string{"info@agencia.es"}, res.Contact.Emails)
	assert.Equal(t, "Lunes a Viernes 9:00-18:00, Sabado 10:00-14:00", res.Contact.BusinessHours)
	assert.Equal(t, []QR{{Data: "https://agencia.es/qr/1", FileID: "secondary"}}, res.QRs)
}

func TestMergeQRsOnlyFromSecondaryPhotos(t *testing.T) {
	photos := []session.Photo{
		{FileID: "front", Analysis: &vision.Analysis{
			ObjectsDetected: []string{"storefront"},
			QRData:          "https://agencia.es/qr/front",
		}},
		{FileID: "window", Analysis: &vision.Analysis{QRData: "https://agencia.es/qr/window"}},
	}
	res, err := Merge(photos, testRules)
	require.NoError(t, err)
	assert.Equal(t, []QR{{Data: "https://agencia.es/qr/window", FileID: "window"}}, res.QRs)
}

func TestMergeTrimsQRBeforeLengthCheck(t *testing.T) {
	photos := []session.Photo{
		photo(&vision.Analysis{ObjectsDetected: []string{"storefront"}}),
		{FileID: "pad", Analysis: &vision.Analysis{QRData: "  abcd  "}},
	}
	res, err := Merge(photos, testRules)
	require.NoError(t, err)
	assert.Empty(t, res.QRs, "whitespace padding must not satisfy the minimum length")
}

func TestNormalizePhone(t *testing.T) {
	for _, tt := range []struct{ in, want string }{
		{"06 12 34 56 78", "+33612345678"},
		{"+33 6 12 34 56 78", "+33612345678"},
		{"0033612345678", "+33612345678"},
		{"(555) 123-4567", "5551234567"},
		{"912 345 678", "912345678"},
	} {
		assert.Equal(t, tt.want, NormalizePhone(tt.in), tt.in)
	}
}

func TestBestURL(t *testing.T) {
	matchPage := &urlcheck.PageMatch{
		IsValid:           true,
		WebSummary:        &urlcheck.WebSummary{Title: "Agence Dupont Immobilier"},
		ValidationDetails: &urlcheck.MatchDetails{IsRealEstateSite: true},
	}

	t.Run("validated site beats raw confidence", func(t *testing.T) {
		got := BestURL([]URLCandidate{
			{URL: "https://portal.es", Confidence: 1.0},
			{URL: "https://agencia-dupont.fr", Confidence: 0.5, Page: matchPage},
		}, "Agence Dupont")
		assert.Equal(t, "https://agencia-dupont.fr", got)
	})

	t.Run("listing pattern halves the score", func(t *testing.T) {
		got := BestURL([]URLCandidate{
			{URL: "https://portal.es/inmueble/9", Confidence: 1.0, Page: matchPage},
			{URL: "https://agencia-dupont.fr", Confidence: 1.0, Page: matchPage},
		}, "Agence Dupont")
		assert.Equal(t, "https://agencia-dupont.fr", got)
	})

	t.Run("partial title match", func(t *testing.T) {
		page := &urlcheck.PageMatch{WebSummary: &urlcheck.WebSummary{Title: "Dupont y asociados"}}
		got := BestURL([]URLCandidate{
			{URL: "https://other.es", Confidence: 0.9},
			{URL: "https://dupont.fr", Confidence: 0.5, Page: page},
		}, "Agence Dupont")
		assert.Equal(t, "https://dupont.fr", got)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, BestURL(nil, "Agence Dupont"))
	})
}
