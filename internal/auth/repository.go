package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ideamesh/backend/internal/credits"
	"github.com/ideamesh/backend/internal/models"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new user with free-tier credit defaults.
func (r *Repository) Create(ctx context.Context, email, passwordHash, name string) (*models.User, error) {
	now := time.Now()
	periodEnd := credits.NextPeriodEnd(now)
	allowance := credits.PlanCredits(models.PlanFree)
	u := &models.User{
		Email:          email,
		Name:           name,
		Plan:           models.PlanFree,
		AllowanceTotal: allowance,
		PeriodStart:    &now,
		PeriodEnd:      &periodEnd,
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, name, plan, allowance_total, bonus_credits, used_credits, period_start, period_end)
		VALUES ($1, $2, $3, $4, $5, 0, 0, $6, $7)
		RETURNING id, created_at, updated_at
	`, email, passwordHash, name, models.PlanFree, allowance, now, periodEnd).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetByEmail returns the user and password hash for login. Returns nil when
// not found.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, string, error) {
	var u models.User
	var passwordHash string
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, name, plan, password_hash
		FROM users WHERE email = $1
	`, email).Scan(&u.ID, &u.Email, &u.Name, &u.Plan, &passwordHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", err
	}
	return &u, passwordHash, nil
}
