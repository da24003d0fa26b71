package professional

import (
	"context"
	"fmt"

	"github.com/aihaudit/aih/internal/platform/apperr"
	"github.com/aihaudit/aih/internal/platform/middleware"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context) ([]*Professional, error) {
	return s.repo.List(ctx)
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*Professional, error) {
	p := &Professional{
		Name:      middleware.SanitizeString(in.Name),
		Specialty: middleware.SanitizeString(in.Specialty),
	}
	if p.Name == "" || p.Specialty == "" {
		return nil, apperr.NewValidation("Nome e especialidade são obrigatórios")
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create professional: %w", err)
	}
	return p, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("Profissional não encontrado")
	}
	return nil
}
