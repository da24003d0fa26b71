package deletion

import (
	"context"

	"github.com/aihaudit/aih/internal/platform/db"
)

// Repository reads the rows to snapshot and performs the hard deletes.
// Snapshots are raw rows so the log keeps every column as stored.
type Repository interface {
	// FindMovement returns the movement row joined with numero_aih.
	FindMovement(ctx context.Context, id int64) (db.Row, error)
	FindAIH(ctx context.Context, number string) (db.Row, error)
	Children(ctx context.Context, aihID int64) (movements, glosas, attendances []db.Row, err error)

	InsertLog(ctx context.Context, l *Log) error
	DeleteMovement(ctx context.Context, id int64) error
	// DeleteAIH removes glosas, movements, attendances and then the AIH row.
	DeleteAIH(ctx context.Context, aihID int64) error

	ListLogs(ctx context.Context, limit, offset int) ([]*Log, int, error)
}
