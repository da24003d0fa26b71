package export

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aihaudit/aih/internal/platform/apperr"
)

const (
	glosasQuery = `SELECT g.*, COALESCE(a.numero_aih, '') AS numero_aih FROM glosas g
		LEFT JOIN aihs a ON a.id = g.aih_id WHERE g.ativa = 1 ORDER BY g.criado_em DESC, g.id DESC`
	usersQuery         = `SELECT id, nome, matricula, criado_em FROM usuarios ORDER BY criado_em DESC, id DESC`
	professionalsQuery = `SELECT id, nome, especialidade FROM profissionais ORDER BY nome`
	glosaTypesQuery    = `SELECT id, descricao FROM tipos_glosa ORDER BY descricao`
)

type Service struct {
	repo   Repository
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// Dataset reads every exported table. exportedBy names the requester in the
// metadata.
func (s *Service) Dataset(ctx context.Context, exportedBy string) (*Dataset, error) {
	d := &Dataset{}
	var err error
	if d.AIHs, err = s.repo.AIHs(ctx); err != nil {
		return nil, fmt.Errorf("export aihs: %w", err)
	}
	if d.Movements, err = s.repo.Movements(ctx, 0); err != nil {
		return nil, fmt.Errorf("export movements: %w", err)
	}
	if d.Glosas, err = s.repo.Table(ctx, glosasQuery); err != nil {
		return nil, fmt.Errorf("export glosas: %w", err)
	}
	if d.Users, err = s.repo.Table(ctx, usersQuery); err != nil {
		return nil, fmt.Errorf("export users: %w", err)
	}
	if d.Professionals, err = s.repo.Table(ctx, professionalsQuery); err != nil {
		return nil, fmt.Errorf("export professionals: %w", err)
	}
	if d.GlosaTypes, err = s.repo.Table(ctx, glosaTypesQuery); err != nil {
		return nil, fmt.Errorf("export glosa types: %w", err)
	}
	d.Metadata = Metadata{
		ExportedAt:        s.now().UTC(),
		ExportedBy:        exportedBy,
		Version:           systemVersion,
		TotalAIHs:         len(d.AIHs),
		TotalMovements:    len(d.Movements),
		TotalActiveGlosas: len(d.Glosas),
		TotalUsers:        len(d.Users),
		TotalProfessional: len(d.Professionals),
	}
	s.logger.Info().Int("aihs", len(d.AIHs)).Str("user", exportedBy).Msg("full export")
	return d, nil
}

// AIHs reads only the AIH records, for the tabular formats.
func (s *Service) AIHs(ctx context.Context) ([]*AIHRecord, error) {
	return s.repo.AIHs(ctx)
}

// History returns the movements of one AIH. An AIH without movements is
// reported as not found.
func (s *Service) History(ctx context.Context, aihID int64) (*History, error) {
	number, err := s.repo.AIHNumber(ctx, aihID)
	if err != nil {
		return nil, err
	}
	movements, err := s.repo.Movements(ctx, aihID)
	if err != nil {
		return nil, err
	}
	if len(movements) == 0 {
		return nil, apperr.NotFound("Nenhuma movimentação encontrada para esta AIH")
	}
	return &History{Number: number, Movements: movements}, nil
}

// today is the date stamp used in file names.
func (s *Service) today() string {
	return s.now().UTC().Format(time.DateOnly)
}
