// Package postgres is a PostgreSQL user directory on pgx/pgxpool.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrEthical07/credguard"
)

//go:embed schema.sql
var schema string

// Open parses dsn, connects and pings.
func Open(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return pool, nil
}

type Directory struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Directory {
	return &Directory{pool: pool}
}

// Migrate creates the users table when it does not exist.
func (d *Directory) Migrate(ctx context.Context) error {
	if _, err := d.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply users schema: %w", err)
	}
	return nil
}

func (d *Directory) FindByUsername(ctx context.Context, username string) (credguard.User, error) {
	const q = `
		SELECT id, username, password_hash, created_at, updated_at
		FROM credguard_users
		WHERE username = $1
	`

	var (
		u      credguard.User
		idUUID pgtype.UUID
	)
	err := d.pool.QueryRow(ctx, q, username).Scan(
		&idUUID,
		&u.Username,
		&u.PasswordHash,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return credguard.User{}, credguard.ErrUserNotFound
		}
		return credguard.User{}, fmt.Errorf("find user by username: %w", err)
	}

	u.ID = uuidOrEmpty(idUUID)
	return u, nil
}

func (d *Directory) Insert(ctx context.Context, user credguard.User) (credguard.User, error) {
	const q = `
		INSERT INTO credguard_users (id, username, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, username, password_hash, created_at, updated_at
	`

	var (
		u      credguard.User
		idUUID pgtype.UUID
	)
	err := d.pool.QueryRow(ctx, q,
		uuid.New(),
		user.Username,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(
		&idUUID,
		&u.Username,
		&u.PasswordHash,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return credguard.User{}, mapUserWriteError(err)
	}

	u.ID = uuidOrEmpty(idUUID)
	return u, nil
}

func (d *Directory) UpdateByID(ctx context.Context, id string, update credguard.UserUpdate) error {
	const q = `
		UPDATE credguard_users
		SET password_hash = COALESCE(NULLIF($2, ''), password_hash),
		    updated_at = COALESCE($3, now())
		WHERE id = $1
	`

	parsed, err := uuid.Parse(id)
	if err != nil {
		return credguard.ErrUserNotFound
	}

	var updatedAt pgtype.Timestamptz
	if !update.UpdatedAt.IsZero() {
		updatedAt = pgtype.Timestamptz{Time: update.UpdatedAt, Valid: true}
	}

	tag, err := d.pool.Exec(ctx, q, parsed, update.PasswordHash, updatedAt)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return credguard.ErrUserNotFound
	}
	return nil
}

func mapUserWriteError(err error) error {
	var pgerr *pgconn.PgError
	if errors.As(err, &pgerr) && pgerr.Code == "23505" {
		if pgerr.ConstraintName == "credguard_users_username_uq" {
			return credguard.ErrUserExists
		}
		return fmt.Errorf("unique violation (%s): %w", pgerr.ConstraintName, err)
	}
	return fmt.Errorf("insert user: %w", err)
}

func uuidOrEmpty(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}
