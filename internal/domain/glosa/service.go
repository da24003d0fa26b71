package glosa

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aihaudit/aih/internal/platform/apperr"
	"github.com/aihaudit/aih/internal/platform/auth"
	"github.com/aihaudit/aih/internal/platform/db"
	"github.com/aihaudit/aih/internal/platform/middleware"
)

type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Create adds an active glosa to an existing AIH. Quantity defaults to 1.
func (s *Service) Create(ctx context.Context, aihID int64, in CreateInput) (*Glosa, error) {
	g := &Glosa{
		AIHID:        aihID,
		Line:         middleware.SanitizeString(in.Line),
		Type:         middleware.SanitizeString(in.Type),
		Professional: middleware.SanitizeString(in.Professional),
		Quantity:     in.Quantity,
	}
	if g.Line == "" || g.Type == "" || g.Professional == "" {
		return nil, apperr.NewValidation("Linha, tipo e profissional são obrigatórios")
	}
	if g.Quantity == 0 {
		g.Quantity = 1
	}
	if g.Quantity < 1 {
		return nil, apperr.NewValidation("Quantidade deve ser pelo menos 1")
	}

	ok, err := s.repo.AIHExists(ctx, aihID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound("AIH não encontrada")
	}
	if err := s.repo.Create(ctx, g); err != nil {
		return nil, fmt.Errorf("create glosa: %w", err)
	}

	s.logger.Info().
		Int64("glosa_id", g.ID).
		Int64("aih_id", aihID).
		Str("tipo", g.Type).
		Int("quantidade", g.Quantity).
		Int64("user_id", auth.UserIDFromContext(ctx)).
		Msg("glosa created")
	return g, nil
}

func (s *Service) ListActive(ctx context.Context, aihID int64) ([]*Glosa, error) {
	return s.repo.ListActive(ctx, aihID)
}

// Deactivate soft-deletes a glosa; the row is kept.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	ok, err := s.repo.Deactivate(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("Glosa não encontrada")
	}
	s.logger.Info().
		Int64("glosa_id", id).
		Int64("user_id", auth.UserIDFromContext(ctx)).
		Msg("glosa deactivated")
	return nil
}

func (s *Service) ListTypes(ctx context.Context) ([]*GlosaType, error) {
	return s.repo.ListTypes(ctx)
}

func (s *Service) CreateType(ctx context.Context, in TypeInput) (*GlosaType, error) {
	t := &GlosaType{Description: middleware.SanitizeString(in.Description)}
	if t.Description == "" {
		return nil, apperr.NewValidation("Descrição é obrigatória")
	}
	if err := s.repo.CreateType(ctx, t); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, apperr.Conflict("Tipo de glosa já cadastrado")
		}
		return nil, err
	}
	return t, nil
}

func (s *Service) DeleteType(ctx context.Context, id int64) error {
	ok, err := s.repo.DeleteType(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("Tipo de glosa não encontrado")
	}
	return nil
}
