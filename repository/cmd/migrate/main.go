package main

import (
	"context"

	"github.com/joho/godotenv"
	"github.com/ydb-platform/ydb-go-sdk/v3/table"
	"go.uber.org/zap"

	"github.com/StartupEmbassy/AgencyAtlas/config"
	"github.com/StartupEmbassy/AgencyAtlas/logger"
	"github.com/StartupEmbassy/AgencyAtlas/repository/ydb"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS user (
	telegram_id Int64,
	id Utf8,
	username Utf8,
	role Utf8,
	status Utf8,
	created_at Timestamp,
	PRIMARY KEY (telegram_id)
);`,
	`CREATE TABLE IF NOT EXISTS real_estate (
	id Utf8,
	name Utf8,
	photo_url Utf8,
	web_url Utf8,
	latitude Double,
	longitude Double,
	validation_score Double,
	validation_reasons Json,
	condition_score Double,
	objects_detected Json,
	is_active Bool,
	created_by Int64,
	updated_by Int64,
	created_at Timestamp,
	PRIMARY KEY (id)
);`,
	`CREATE TABLE IF NOT EXISTS listing (
	real_estate_id Utf8,
	qr_data Utf8,
	id Utf8,
	photo_url Utf8,
	url Utf8,
	created_at Timestamp,
	PRIMARY KEY (real_estate_id, qr_data)
);`,
	`CREATE TABLE IF NOT EXISTS contact_info (
	id Utf8,
	real_estate_id Utf8,
	phones Json,
	emails Json,
	business_hours Utf8,
	created_at Timestamp,
	PRIMARY KEY (id)
);`,
}

func main() {
	ctx := context.Background()
	_ = godotenv.Load()
	log, err := logger.New()
	if err != nil {
		panic(err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config", zap.Error(err))
	}
	driver, err := ydb.NewDriver(ctx, cfg.YDB.Endpoint, log)
	if err != nil {
		log.Fatal("ydb", zap.Error(err))
	}
	defer driver.Close(ctx)

	for _, query := range schema {
		if err := driver.Table().Do(ctx, func(ctx context.Context, s table.Session) error {
			return s.ExecuteSchemeQuery(ctx, query)
		}); err != nil {
			log.Fatal("migration failed", zap.String("query", query), zap.Error(err))
		}
	}
	log.Info("schema up to date")
}
