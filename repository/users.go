package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/ydb-platform/ydb-go-sdk/v3"
	"github.com/ydb-platform/ydb-go-sdk/v3/table"
	"github.com/ydb-platform/ydb-go-sdk/v3/table/result"
	"github.com/ydb-platform/ydb-go-sdk/v3/table/result/named"
	"github.com/ydb-platform/ydb-go-sdk/v3/table/types"
	"go.uber.org/zap"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

type User struct {
	ID         string
	TelegramID int64
	Username   string
	Role       Role
	Status     Status
	CreatedAt  time.Time
}

func (u *User) Scan(res result.Result) error {
	var role, status string
	if err := res.ScanNamed(
		named.Required("telegram_id", &u.TelegramID),
		named.OptionalWithDefault("id", &u.ID),
		named.OptionalWithDefault("username", &u.Username),
		named.OptionalWithDefault("role", &role),
		named.OptionalWithDefault("status", &status),
		named.OptionalWithDefault("created_at", &u.CreatedAt),
	); err != nil {
		return fmt.Errorf("scan user: %w", err)
	}
	u.Role = Role(role)
	u.Status = Status(status)
	return nil
}

func (u *User) IsAdmin() bool    { return u.Role == RoleAdmin }
func (u *User) IsApproved() bool { return u.Status == StatusApproved }

type UserRepository struct {
	DB  *ydb.Driver
	log *zap.Logger
}

func NewUserRepository(driver *ydb.Driver, log *zap.Logger) *UserRepository {
	return &UserRepository{DB: driver, log: log}
}

func (r *UserRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*User, error) {
	var user User
	found := false
	if err := r.DB.Table().Do(ctx, func(ctx context.Context, s table.Session) error {
		_, res, err := s.Execute(ctx, table.DefaultTxControl(),
			`DECLARE $telegram_id AS Int64;
SELECT * FROM user WHERE telegram_id = $telegram_id LIMIT 1;`,
			table.NewQueryParameters(table.ValueParam("$telegram_id", types.Int64Value(telegramID))),
		)
		if err != nil {
			return fmt.Errorf("SELECT user [telegram_id=%d]: %w", telegramID, err)
		}
		defer res.Close()
		if !res.NextResultSet(ctx) {
			return fmt.Errorf("no result set for user")
		}
		if !res.NextRow() {
			found = false
			return res.Err()
		}
		if err := user.Scan(res); err != nil {
			return err
		}
		found = true
		return res.Err()
	}, table.WithIdempotent()); err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return &user, nil
}

// Create inserts a new user row. A concurrent insert for the same telegram
// id surfaces as ErrAlreadyExists; callers re-fetch in that case.
func (r *UserRepository) Create(ctx context.Context, user *User) error {
	err := r.DB.Table().Do(ctx, func(ctx context.Context, s table.Session) error {
		_, _, err := s.Execute(ctx, table.DefaultTxControl(),
			`DECLARE $id AS Utf8;
DECLARE $telegram_id AS Int64;
DECLARE $username AS Utf8;
DECLARE $role AS Utf8;
DECLARE $status AS Utf8;
DECLARE $created_at AS Timestamp;
INSERT INTO user (telegram_id, id, username, role, status, created_at)
VALUES ($telegram_id, $id, $username, $role, $status, $created_at);`,
			table.NewQueryParameters(
				table.ValueParam("$id", types.UTF8Value(user.ID)),
				table.ValueParam("$telegram_id", types.Int64Value(user.TelegramID)),
				table.ValueParam("$username", types.UTF8Value(user.Username)),
				table.ValueParam("$role", types.UTF8Value(string(user.Role))),
				table.ValueParam("$status", types.UTF8Value(string(user.Status))),
				table.ValueParam("$created_at", types.TimestampValueFromTime(user.CreatedAt)),
			),
		)
		return err
	})
	if err != nil {
		if isKeyConflict(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("INSERT INTO user [telegram_id=%d]: %w", user.TelegramID, err)
	}
	return nil
}

func (r *UserRepository) SetStatus(ctx context.Context, telegramID int64, status Status) error {
	if err := r.DB.Table().Do(ctx, func(ctx context.Context, s table.Session) error {
		_, _, err := s.Execute(ctx, table.DefaultTxControl(),
			`DECLARE $telegram_id AS Int64;
DECLARE $status AS Utf8;
UPDATE user SET status = $status WHERE telegram_id = $telegram_id;`,
			table.NewQueryParameters(
				table.ValueParam("$telegram_id", types.Int64Value(telegramID)),
				table.ValueParam("$status", types.UTF8Value(string(status))),
			),
		)
		return err
	}, table.WithIdempotent()); err != nil {
		return fmt.Errorf("UPDATE user status [telegram_id=%d]: %w", telegramID, err)
	}
	return nil
}

// ListAdmins returns every admin account, approval notifications go to all
// of them.
func (r *UserRepository) ListAdmins(ctx context.Context) ([]User, error) {
	var admins []User
	if err := r.DB.Table().Do(ctx, func(ctx context.Context, s table.Session) error {
		admins = admins[:0]
		_, res, err := s.Execute(ctx, table.DefaultTxControl(),
			`DECLARE $role AS Utf8;
SELECT * FROM user WHERE role = $role;`,
			table.NewQueryParameters(table.ValueParam("$role", types.UTF8Value(string(RoleAdmin)))),
		)
		if err != nil {
			return fmt.Errorf("SELECT admins: %w", err)
		}
		defer res.Close()
		for res.NextResultSet(ctx) {
			for res.NextRow() {
				var user User
				if err := user.Scan(res); err != nil {
					return err
				}
				admins = append(admins, user)
			}
		}
		return res.Err()
	}, table.WithIdempotent()); err != nil {
		return nil, err
	}
	return admins, nil
}
