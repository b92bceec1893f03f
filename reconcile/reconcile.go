// Package reconcile folds the per-photo analyses of one registration into a
// single coherent picture of the agency: one name, one main photo, deduped
// contact details and QR payloads, and the most credible website.
package reconcile

import (
	"errors"
	"regexp"
	"strings"

	"github.com/StartupEmbassy/AgencyAtlas/session"
	"github.com/StartupEmbassy/AgencyAtlas/urlcheck"
)

// ErrNoMainPhoto means none of the photos shows the agency exterior.
var ErrNoMainPhoto = errors.New("no storefront photo among the analyses")

// Rules are the tunable thresholds of the merge.
type Rules struct {
	QRMinLength    int
	PhoneMinDigits int
}

// QR ties a payload to the photo it was read from, so a listing can later
// carry that photo.
type QR struct {
	Data   string
	FileID string
}

// Result is the merged view of every successfully analyzed photo.
type Result struct {
	Name           string
	NameConfidence float64
	QRs            []QR
	Contact        session.ContactInfo
}

var mainPhotoMarkers = []string{"storefront", "facade", "building", "office"}

// Merge combines the analyses of a draft's photos. It designates exactly one
// main photo, writing IsMain on every photo so later passes can tell
// "considered and rejected" from "never analyzed". Photos whose analysis
// failed contribute nothing but still get an explicit IsMain=false.
func Merge(photos []session.Photo, rules Rules) (*Result, error) {
	res := &Result{NameConfidence: -1}

	mainIdx := -1
	for i := range photos {
		isMain := false
		a := photos[i].Analysis
		if a != nil && !a.Err && mainIdx < 0 && hasMainMarker(a.ObjectsDetected) {
			mainIdx = i
			isMain = true
		}
		photos[i].IsMain = &isMain

		if a == nil || a.Err {
			continue
		}
		if a.Name != "" && a.Confidence > res.NameConfidence {
			res.Name = a.Name
			res.NameConfidence = a.Confidence
		}
		// only secondary photos feed listings, the main photo shows the
		// agency itself
		if qr := strings.TrimSpace(a.QRData); !isMain && len(qr) >= rules.QRMinLength {
			res.QRs = appendQR(res.QRs, QR{Data: qr, FileID: photos[i].FileID})
		}
		for _, phone := range a.PhoneNumbers {
			normalized := NormalizePhone(phone)
			if digitCount(normalized) >= rules.PhoneMinDigits {
				res.Contact.Phones = appendPhone(res.Contact.Phones, normalized)
			}
		}
		for _, email := range a.Emails {
			email = strings.ToLower(strings.TrimSpace(email))
			if emailRe.MatchString(email) {
				res.Contact.Emails = appendUnique(res.Contact.Emails, email)
			}
		}
		if len(a.BusinessHours) > len(res.Contact.BusinessHours) {
			res.Contact.BusinessHours = a.BusinessHours
		}
	}

	if mainIdx < 0 {
		return nil, ErrNoMainPhoto
	}
	if res.NameConfidence < 0 {
		res.NameConfidence = 0
	}
	return res, nil
}

func hasMainMarker(objects []string) bool {
	for _, obj := range objects {
		lower := strings.ToLower(obj)
		for _, marker := range mainPhotoMarkers {
			if strings.Contains(lower, marker) {
				return true
			}
		}
	}
	return false
}

func appendUnique(list []string, value string) []string {
	for _, known := range list {
		if known == value {
			return list
		}
	}
	return append(list, value)
}

// appendPhone keeps the first of any group of similar numbers.
func appendPhone(list []string, value string) []string {
	for _, known := range list {
		if SimilarPhones(known, value) {
			return list
		}
	}
	return append(list, value)
}

func appendQR(list []QR, value QR) []QR {
	for _, known := range list {
		if known.Data == value.Data {
			return list
		}
	}
	return append(list, value)
}

var emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// URLCandidate is one website suggestion with whatever validation evidence
// was gathered for it.
type URLCandidate struct {
	URL        string
	Confidence float64
	Page       *urlcheck.PageMatch
}

// BestURL picks the candidate most likely to be the agency's own site.
// Detection confidence contributes up to 30 points, crawl evidence of a
// real-estate site 40, a title matching the business name 30 (15 when only
// half the words match), and listing-shaped URLs lose half their score.
// Ties keep the earliest candidate.
func BestURL(candidates []URLCandidate, businessName string) string {
	best := ""
	bestScore := -1.0
	for _, cand := range candidates {
		if cand.URL == "" {
			continue
		}
		score := cand.Confidence * 30
		if score > 30 {
			score = 30
		}
		if cand.Page != nil {
			if cand.Page.ValidationDetails != nil && cand.Page.ValidationDetails.IsRealEstateSite {
				score += 40
			}
			if cand.Page.WebSummary != nil {
				score += titleScore(cand.Page.WebSummary.Title, businessName)
			}
		}
		if urlcheck.ListingPattern(cand.URL) {
			score *= 0.5
		}
		if score > bestScore {
			bestScore = score
			best = cand.URL
		}
	}
	return best
}

func titleScore(title, businessName string) float64 {
	title = strings.ToLower(title)
	name := strings.ToLower(strings.TrimSpace(businessName))
	if name == "" || title == "" {
		return 0
	}
	if strings.Contains(title, name) {
		return 30
	}
	words := strings.Fields(name)
	matched := 0
	for _, word := range words {
		if strings.Contains(title, word) {
			matched++
		}
	}
	if len(words) > 0 && matched*2 >= len(words) {
		return 15
	}
	return 0
}
