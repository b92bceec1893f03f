// Package repository persists users, agencies and their listings in YDB.
package repository

import (
	"errors"

	"github.com/ydb-platform/ydb-go-genproto/protos/Ydb"
	"github.com/ydb-platform/ydb-go-sdk/v3"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// isKeyConflict recognizes an INSERT that lost to an existing primary key.
func isKeyConflict(err error) bool {
	return ydb.IsOperationError(err, Ydb.StatusIds_PRECONDITION_FAILED)
}
