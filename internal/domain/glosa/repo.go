package glosa

import "context"

// Repository defines the persistence interface for glosas and glosa types.
type Repository interface {
	AIHExists(ctx context.Context, aihID int64) (bool, error)
	Create(ctx context.Context, g *Glosa) error
	ListActive(ctx context.Context, aihID int64) ([]*Glosa, error)
	// Deactivate reports false when no glosa has the id.
	Deactivate(ctx context.Context, id int64) (bool, error)

	ListTypes(ctx context.Context) ([]*GlosaType, error)
	CreateType(ctx context.Context, t *GlosaType) error
	DeleteType(ctx context.Context, id int64) (bool, error)
}
