package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/posentia/posentia/internal/clock"
	"github.com/posentia/posentia/internal/domain"
	apperrors "github.com/posentia/posentia/internal/errors"
)

// DemoLeadRepository implements domain.DemoLeadRepository using PostgreSQL.
type DemoLeadRepository struct {
	db    execer
	clock clock.Clock
}

// NewDemoLeadRepository creates a new DemoLeadRepository.
func NewDemoLeadRepository(pool *pgxpool.Pool, c clock.Clock) *DemoLeadRepository {
	return newDemoLeadRepository(pool, c)
}

func newDemoLeadRepository(db execer, c clock.Clock) *DemoLeadRepository {
	if c == nil {
		c = clock.New()
	}
	return &DemoLeadRepository{db: db, clock: c}
}

// Create inserts a demo lead. Missing email or phone is stored as ''.
func (r *DemoLeadRepository) Create(ctx context.Context, l *domain.DemoLead) error {
	if l == nil {
		return apperrors.MissingField("lead")
	}
	if l.Email == "" && l.Phone == "" {
		return apperrors.MissingField("email")
	}
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = r.clock.NowUTC()
	}
	serviceType := l.Product
	if serviceType == "" {
		serviceType = "demo"
	}

	ctx, cancel := WithWriteTimeout(ctx)
	defer cancel()

	_, err := r.db.Exec(ctx, DemoSubmissionColumns.InsertSQL(),
		l.ID,
		l.BusinessName(),
		l.Email,
		l.Phone,
		serviceType,
		l.CreatedAt,
	)
	if err != nil {
		return apperrors.DatabaseError("insert demo submission", err)
	}
	return nil
}
