package aih

import (
	"context"

	"github.com/shopspring/decimal"
)

// Repository defines persistence for AIHs, their attendances and movements.
// Lookups return apperr.NotFoundError when the AIH is missing.
type Repository interface {
	Create(ctx context.Context, a *AIH, attendances []string) error
	GetByID(ctx context.Context, id int64) (*AIH, error)
	GetByNumber(ctx context.Context, number string) (*AIH, error)
	ListAttendances(ctx context.Context, aihID int64) ([]string, error)

	// ListMovements returns the history newest first.
	ListMovements(ctx context.Context, aihID int64) ([]*Movement, error)
	// LatestMovementType returns nil when the AIH has no movement.
	LatestMovementType(ctx context.Context, aihID int64) (*MovementType, error)
	// LatestWithProfessionals returns nil when no movement names any professional.
	LatestWithProfessionals(ctx context.Context, aihID int64) (*Movement, error)
	InsertMovement(ctx context.Context, m *Movement) error
	UpdateState(ctx context.Context, aihID int64, status Status, value decimal.Decimal) error

	Dashboard(ctx context.Context, competence string) (*Dashboard, error)
	Search(ctx context.Context, f SearchFilters) ([]*SearchResult, error)
}
