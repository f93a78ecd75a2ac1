// Package repository persists form submissions to Supabase Postgres.
package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/posentia/posentia/internal/clock"
	"github.com/posentia/posentia/internal/domain"
	apperrors "github.com/posentia/posentia/internal/errors"
)

// execer is the subset of pgxpool.Pool used for inserts.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// ContactRepository implements domain.ContactRepository using PostgreSQL.
type ContactRepository struct {
	db    execer
	clock clock.Clock
}

// NewContactRepository creates a new ContactRepository.
func NewContactRepository(pool *pgxpool.Pool, c clock.Clock) *ContactRepository {
	return newContactRepository(pool, c)
}

func newContactRepository(db execer, c clock.Clock) *ContactRepository {
	if c == nil {
		c = clock.New()
	}
	return &ContactRepository{db: db, clock: c}
}

// Create inserts a contact submission. Name, company and message are
// trimmed; empty phone and call volume are stored as NULL. ID and CreatedAt
// are filled in when unset.
func (r *ContactRepository) Create(ctx context.Context, c *domain.ContactSubmission) error {
	if c == nil {
		return apperrors.MissingField("contact")
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = r.clock.NowUTC()
	}
	c.Name = strings.TrimSpace(c.Name)
	c.Company = strings.TrimSpace(c.Company)
	c.Message = strings.TrimSpace(c.Message)

	ctx, cancel := WithWriteTimeout(ctx)
	defer cancel()

	_, err := r.db.Exec(ctx, ContactColumns.InsertSQL(),
		c.ID,
		c.Name,
		c.Email,
		nullable(c.Phone),
		c.Company,
		c.Industry,
		nullable(c.CallVolume),
		c.Message,
		c.CreatedAt,
	)
	if err != nil {
		return apperrors.DatabaseError("insert contact submission", err)
	}
	return nil
}
