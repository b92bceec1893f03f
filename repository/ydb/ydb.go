// Package ydb opens the database driver with Yandex Cloud credentials.
package ydb

import (
	"context"
	"fmt"
	"os"

	"github.com/ydb-platform/ydb-go-sdk/v3"
	yc "github.com/ydb-platform/ydb-go-yc"
	"go.uber.org/zap"
)

// NewDriver connects to the endpoint. A service-account key in YDB_SA_KEY
// takes precedence over VM metadata credentials.
func NewDriver(ctx context.Context, endpoint string, log *zap.Logger) (*ydb.Driver, error) {
	log.Info("opening YDB connection", zap.String("endpoint", endpoint))
	var credOption = yc.WithMetadataCredentials()
	if saKey := os.Getenv("YDB_SA_KEY"); len(saKey) > 0 {
		log.Info("using YDB access token from environment")
		credOption = ydb.WithAccessTokenCredentials(saKey)
	}
	driver, err := ydb.Open(ctx, endpoint,
		yc.WithInternalCA(),
		credOption,
	)
	if err != nil {
		return nil, fmt.Errorf("ydb open: %w", err)
	}
	return driver, nil
}
