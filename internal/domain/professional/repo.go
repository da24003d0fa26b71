package professional

import (
	"context"
)

type Repository interface {
	List(ctx context.Context) ([]*Professional, error)
	Create(ctx context.Context, p *Professional) error
	Delete(ctx context.Context, id int64) (bool, error)
}
