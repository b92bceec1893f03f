package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/StartupEmbassy/AgencyAtlas/repository"
	"github.com/StartupEmbassy/AgencyAtlas/session"
)

type persistReport struct {
	EstateID   string
	Listings   int
	Duplicates int
	// Warnings holds the failures that did not abort the save: the agency
	// row exists, some satellite rows may not.
	Warnings error
}

// persistDraft writes one confirmed registration. The agency row is the
// anchor: if it cannot be created nothing else is attempted, while listing
// and contact failures degrade to warnings.
func (b *TBot) persistDraft(ctx context.Context, creator int64, draft *session.Draft) (*persistReport, error) {
	main := draft.MainPhoto()
	if main == nil {
		if len(draft.Photos) == 0 {
			return nil, errors.New("draft has no photos")
		}
		main = &draft.Photos[0]
	}

	uploaded := make(map[string]string)
	uploadPhoto := func(fileID string) (string, error) {
		if url, ok := uploaded[fileID]; ok {
			return url, nil
		}
		data, err := b.fetchPhoto(fileID)
		if err != nil {
			return "", fmt.Errorf("photo %s: %w", fileID, err)
		}
		url, err := b.photos.UploadPhoto(ctx, data)
		if err != nil {
			return "", fmt.Errorf("uploading photo %s: %w", fileID, err)
		}
		uploaded[fileID] = url
		return url, nil
	}

	photoURL, err := uploadPhoto(main.FileID)
	if err != nil {
		return nil, fmt.Errorf("main photo: %w", err)
	}

	now := time.Now()
	estate := &repository.RealEstate{
		ID:        uuid.NewString(),
		Name:      draft.Name,
		PhotoURL:  photoURL,
		WebURL:    draft.WebURL,
		IsActive:  true,
		CreatedBy: creator,
		UpdatedBy: creator,
		CreatedAt: now,
	}
	if main.Analysis != nil {
		estate.ValidationScore = main.Analysis.ValidationScore
		estate.ValidationReasons = main.Analysis.ValidationReasons
		estate.ConditionScore = main.Analysis.ConditionScore
		estate.ObjectsDetected = main.Analysis.ObjectsDetected
	}
	if draft.Location != nil {
		estate.Latitude = draft.Location.Latitude
		estate.Longitude = draft.Location.Longitude
	}
	if err := b.estates.CreateRealEstate(ctx, estate); err != nil {
		return nil, fmt.Errorf("real estate: %w", err)
	}

	report := &persistReport{EstateID: estate.ID}
	var warnings error
	for _, qr := range draft.QRs {
		fileID := qr.FileID
		if fileID == "" {
			fileID = main.FileID
		}
		listingPhotoURL, err := uploadPhoto(fileID)
		if err != nil {
			warnings = multierr.Append(warnings, fmt.Errorf("listing %q: %w", qr.Data, err))
			continue
		}
		listing := &repository.Listing{
			ID:           uuid.NewString(),
			RealEstateID: estate.ID,
			PhotoURL:     listingPhotoURL,
			QRData:       qr.Data,
			URL:          qr.URL,
			CreatedAt:    now,
		}
		switch err := b.estates.CreateListing(ctx, listing); {
		case err == nil:
			report.Listings++
		case errors.Is(err, repository.ErrAlreadyExists):
			report.Duplicates++
		default:
			warnings = multierr.Append(warnings, fmt.Errorf("listing %q: %w", qr.Data, err))
		}
	}

	contact := draft.Contact
	if len(contact.Phones) > 0 || len(contact.Emails) > 0 || contact.BusinessHours != "" {
		row := &repository.ContactInfo{
			ID:            uuid.NewString(),
			RealEstateID:  estate.ID,
			Phones:        contact.Phones,
			Emails:        contact.Emails,
			BusinessHours: contact.BusinessHours,
			CreatedAt:     now,
		}
		if err := b.estates.CreateContactInfo(ctx, row); err != nil {
			warnings = multierr.Append(warnings, fmt.Errorf("contact info: %w", err))
		}
	}
	report.Warnings = warnings
	return report, nil
}
