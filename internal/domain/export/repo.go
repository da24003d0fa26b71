package export

import (
	"context"

	"github.com/aihaudit/aih/internal/platform/db"
)

type Repository interface {
	AIHs(ctx context.Context) ([]*AIHRecord, error)
	Movements(ctx context.Context, aihID int64) ([]*MovementRecord, error)
	Table(ctx context.Context, query string) ([]db.Row, error)
	AIHNumber(ctx context.Context, aihID int64) (string, error)
}
