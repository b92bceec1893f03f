package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ydb-platform/ydb-go-sdk/v3"
	"github.com/ydb-platform/ydb-go-sdk/v3/table"
	"github.com/ydb-platform/ydb-go-sdk/v3/table/types"
	"go.uber.org/zap"
)

type RealEstate struct {
	ID                string
	Name              string
	PhotoURL          string
	WebURL            string
	Latitude          float64
	Longitude         float64
	ValidationScore   float64
	ValidationReasons []string
	ConditionScore    float64
	ObjectsDetected   []string
	IsActive          bool
	CreatedBy         int64
	UpdatedBy         int64
	CreatedAt         time.Time
}

// Listing is one QR payload seen on a secondary photo, together with the
// photo it was read from. The key is (real_estate_id, qr_data), so the same
// code photographed twice stays a single row.
type Listing struct {
	ID           string
	RealEstateID string
	PhotoURL     string
	QRData       string
	URL          string
	CreatedAt    time.Time
}

type ContactInfo struct {
	ID            string
	RealEstateID  string
	Phones        []string
	Emails        []string
	BusinessHours string
	CreatedAt     time.Time
}

type RealEstateRepository struct {
	DB  *ydb.Driver
	log *zap.Logger
}

func NewRealEstateRepository(driver *ydb.Driver, log *zap.Logger) *RealEstateRepository {
	return &RealEstateRepository{DB: driver, log: log}
}

func (r *RealEstateRepository) CreateRealEstate(ctx context.Context, estate *RealEstate) error {
	reasons, err := json.Marshal(estate.ValidationReasons)
	if err != nil {
		return fmt.Errorf("encode validation reasons: %w", err)
	}
	objects, err := json.Marshal(estate.ObjectsDetected)
	if err != nil {
		return fmt.Errorf("encode detected objects: %w", err)
	}
	if err := r.DB.Table().Do(ctx, func(ctx context.Context, s table.Session) error {
		_, _, err := s.Execute(ctx, table.DefaultTxControl(),
			`DECLARE $id AS Utf8;
DECLARE $name AS Utf8;
DECLARE $photo_url AS Utf8;
DECLARE $web_url AS Utf8;
DECLARE $latitude AS Double;
DECLARE $longitude AS Double;
DECLARE $validation_score AS Double;
DECLARE $validation_reasons AS Json;
DECLARE $condition_score AS Double;
DECLARE $objects_detected AS Json;
DECLARE $is_active AS Bool;
DECLARE $created_by AS Int64;
DECLARE $updated_by AS Int64;
DECLARE $created_at AS Timestamp;
UPSERT INTO real_estate (id, name, photo_url, web_url, latitude, longitude, validation_score, validation_reasons, condition_score, objects_detected, is_active, created_by, updated_by, created_at)
VALUES ($id, $name, $photo_url, $web_url, $latitude, $longitude, $validation_score, $validation_reasons, $condition_score, $objects_detected, $is_active, $created_by, $updated_by, $created_at);`,
			table.NewQueryParameters(
				table.ValueParam("$id", types.UTF8Value(estate.ID)),
				table.ValueParam("$name", types.UTF8Value(estate.Name)),
				table.ValueParam("$photo_url", types.UTF8Value(estate.PhotoURL)),
				table.ValueParam("$web_url", types.UTF8Value(estate.WebURL)),
				table.ValueParam("$latitude", types.DoubleValue(estate.Latitude)),
				table.ValueParam("$longitude", types.DoubleValue(estate.Longitude)),
				table.ValueParam("$validation_score", types.DoubleValue(estate.ValidationScore)),
				table.ValueParam("$validation_reasons", types.JSONValue(string(reasons))),
				table.ValueParam("$condition_score", types.DoubleValue(estate.ConditionScore)),
				table.ValueParam("$objects_detected", types.JSONValue(string(objects))),
				table.ValueParam("$is_active", types.BoolValue(estate.IsActive)),
				table.ValueParam("$created_by", types.Int64Value(estate.CreatedBy)),
				table.ValueParam("$updated_by", types.Int64Value(estate.UpdatedBy)),
				table.ValueParam("$created_at", types.TimestampValueFromTime(estate.CreatedAt)),
			),
		)
		return err
	}, table.WithIdempotent()); err != nil {
		return fmt.Errorf("UPSERT INTO real_estate [id=%s]: %w", estate.ID, err)
	}
	return nil
}

// CreateListing inserts one QR listing. A repeated (real_estate_id, qr_data)
// pair returns ErrAlreadyExists without touching the stored row.
func (r *RealEstateRepository) CreateListing(ctx context.Context, listing *Listing) error {
	err := r.DB.Table().Do(ctx, func(ctx context.Context, s table.Session) error {
		_, _, err := s.Execute(ctx, table.DefaultTxControl(),
			`DECLARE $id AS Utf8;
DECLARE $real_estate_id AS Utf8;
DECLARE $photo_url AS Utf8;
DECLARE $qr_data AS Utf8;
DECLARE $url AS Utf8;
DECLARE $created_at AS Timestamp;
INSERT INTO listing (real_estate_id, qr_data, id, photo_url, url, created_at)
VALUES ($real_estate_id, $qr_data, $id, $photo_url, $url, $created_at);`,
			table.NewQueryParameters(
				table.ValueParam("$id", types.UTF8Value(listing.ID)),
				table.ValueParam("$real_estate_id", types.UTF8Value(listing.RealEstateID)),
				table.ValueParam("$photo_url", types.UTF8Value(listing.PhotoURL)),
				table.ValueParam("$qr_data", types.UTF8Value(listing.QRData)),
				table.ValueParam("$url", types.UTF8Value(listing.URL)),
				table.ValueParam("$created_at", types.TimestampValueFromTime(listing.CreatedAt)),
			),
		)
		return err
	})
	if err != nil {
		if isKeyConflict(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("INSERT INTO listing [real_estate_id=%s]: %w", listing.RealEstateID, err)
	}
	return nil
}

func (r *RealEstateRepository) CreateContactInfo(ctx context.Context, contact *ContactInfo) error {
	phones, err := json.Marshal(contact.Phones)
	if err != nil {
		return fmt.Errorf("encode phones: %w", err)
	}
	emails, err := json.Marshal(contact.Emails)
	if err != nil {
		return fmt.Errorf("encode emails: %w", err)
	}
	if err := r.DB.Table().Do(ctx, func(ctx context.Context, s table.Session) error {
		_, _, err := s.Execute(ctx, table.DefaultTxControl(),
			`DECLARE $id AS Utf8;
DECLARE $real_estate_id AS Utf8;
DECLARE $phones AS Json;
DECLARE $emails AS Json;
DECLARE $business_hours AS Utf8;
DECLARE $created_at AS Timestamp;
UPSERT INTO contact_info (id, real_estate_id, phones, emails, business_hours, created_at)
VALUES ($id, $real_estate_id, $phones, $emails, $business_hours, $created_at);`,
			table.NewQueryParameters(
				table.ValueParam("$id", types.UTF8Value(contact.ID)),
				table.ValueParam("$real_estate_id", types.UTF8Value(contact.RealEstateID)),
				table.ValueParam("$phones", types.JSONValue(string(phones))),
				table.ValueParam("$emails", types.JSONValue(string(emails))),
				table.ValueParam("$business_hours", types.UTF8Value(contact.BusinessHours)),
				table.ValueParam("$created_at", types.TimestampValueFromTime(contact.CreatedAt)),
			),
		)
		return err
	}, table.WithIdempotent()); err != nil {
		return fmt.Errorf("UPSERT INTO contact_info [real_estate_id=%s]: %w", contact.RealEstateID, err)
	}
	return nil
}
