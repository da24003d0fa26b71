package aih

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aihaudit/aih/internal/domain/glosa"
	"github.com/aihaudit/aih/internal/platform/apperr"
	"github.com/aihaudit/aih/internal/platform/db"
	"github.com/aihaudit/aih/internal/platform/middleware"
)

// Transactor runs fn in one database transaction carried by ctx and drops
// cached reads once the writes are committed. *db.Store satisfies it.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
	Invalidate(patterns ...string)
}

// GlosaLister lists the active glosas of an AIH.
type GlosaLister interface {
	ListActive(ctx context.Context, aihID int64) ([]*glosa.Glosa, error)
}

// Service implements the AIH lifecycle: registration, lookup, the
// alternating movement workflow, dashboard and search.
type Service struct {
	repo   Repository
	tx     Transactor
	glosas GlosaLister
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(repo Repository, tx Transactor, glosas GlosaLister, logger zerolog.Logger) *Service {
	return &Service{repo: repo, tx: tx, glosas: glosas, logger: logger, now: time.Now}
}

// Register creates an AIH in status 3 with its attendances. No movement is
// recorded; the first one must be an explicit entry.
func (s *Service) Register(ctx context.Context, userID int64, in RegisterInput) (*Registered, error) {
	if problems := ValidateAIH(in); len(problems) > 0 {
		return nil, apperr.NewValidation(problems...)
	}
	attendances := in.Attendances.Normalized()
	if len(attendances) == 0 {
		return nil, apperr.NewValidation("Pelo menos um número de atendimento válido deve ser informado")
	}
	if len(attendances) > maxAttendances {
		return nil, apperr.NewValidation(fmt.Sprintf("Muitos atendimentos informados (máximo %d)", maxAttendances))
	}

	a := &AIH{
		Number:       middleware.SanitizeString(in.Number),
		InitialValue: in.InitialValue,
		CurrentValue: in.InitialValue,
		Status:       StatusInDiscussion,
		Competence:   in.Competence,
	}
	if userID > 0 {
		a.CreatedBy = &userID
	}

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, a, attendances)
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, apperr.Conflict("AIH já cadastrada")
		}
		return nil, fmt.Errorf("register aih: %w", err)
	}
	s.tx.Invalidate("aihs", "atendimentos")

	s.logger.Info().
		Int64("aih_id", a.ID).
		Str("numero_aih", a.Number).
		Int("atendimentos", len(attendances)).
		Int64("user_id", userID).
		Msg("aih registered")

	return &Registered{
		Success:      true,
		ID:           a.ID,
		Number:       a.Number,
		Inserted:     len(attendances),
		InitialValue: a.InitialValue,
		Competence:   a.Competence,
	}, nil
}

// Get returns the AIH with the given number plus attendances, movements
// newest first and active glosas.
func (s *Service) Get(ctx context.Context, number string) (*Detail, error) {
	a, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	d := &Detail{AIH: a}
	if d.Attendances, err = s.repo.ListAttendances(ctx, a.ID); err != nil {
		return nil, err
	}
	if d.Movements, err = s.repo.ListMovements(ctx, a.ID); err != nil {
		return nil, err
	}
	if d.Glosas, err = s.glosas.ListActive(ctx, a.ID); err != nil {
		return nil, err
	}
	return d, nil
}

// NextMovement reports the only movement type the AIH accepts next.
func (s *Service) NextMovement(ctx context.Context, aihID int64) (*NextMovement, error) {
	if _, err := s.repo.GetByID(ctx, aihID); err != nil {
		return nil, err
	}
	last, err := s.repo.LatestMovementType(ctx, aihID)
	if err != nil {
		return nil, err
	}
	next := NextLegalType(last)
	return &NextMovement{
		Type:        next,
		Description: next.Label(),
		Explanation: explainNext(last),
		Last:        last,
	}, nil
}

// RecordMovement validates and appends a movement, then overwrites the AIH
// status and current value with the movement's. Every broken rule is
// reported in one error; nothing is written when any rule fails. An out of
// sequence type makes the error a ConflictError.
func (s *Service) RecordMovement(ctx context.Context, aihID, userID int64, in MovementInput) (*Movement, error) {
	var m *Movement
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		a, err := s.repo.GetByID(ctx, aihID)
		if err != nil {
			return err
		}
		last, err := s.repo.LatestMovementType(ctx, aihID)
		if err != nil {
			return err
		}

		expected := NextLegalType(last)
		var problems []string
		for _, p := range ValidateMovement(in) {
			// the sequence message below names the expected type
			if p == msgInvalidType && in.Type != expected {
				continue
			}
			problems = append(problems, p)
		}
		if staff := CheckProfessionals(in); len(staff) > 0 {
			problems = append(problems, "Profissionais obrigatórios não informados: "+strings.Join(staff, "; "))
		}
		if in.Type != expected {
			problems = append(problems, fmt.Sprintf("%s. Esperado: %s, recebido: %s", msgInvalidType, expected, in.Type))
			return apperr.Conflict(strings.Join(problems, ", "))
		}
		if len(problems) > 0 {
			return apperr.NewValidation(problems...)
		}

		m = newMovement(a, userID, in)
		if err := s.repo.InsertMovement(ctx, m); err != nil {
			return err
		}
		return s.repo.UpdateState(ctx, a.ID, m.Status, *m.Value)
	})
	if err != nil {
		return nil, err
	}
	s.tx.Invalidate("aihs", "movimentacoes")

	s.logger.Info().
		Int64("aih_id", aihID).
		Str("tipo", string(m.Type)).
		Int("status", int(m.Status)).
		Str("valor", m.Value.StringFixed(2)).
		Int64("user_id", userID).
		Msg("movement recorded")
	return m, nil
}

// newMovement fills value and competence from the AIH when the input
// leaves them out.
func newMovement(a *AIH, userID int64, in MovementInput) *Movement {
	value := a.CurrentValue
	if in.Value != nil {
		value = *in.Value
	}
	competence := strings.TrimSpace(in.Competence)
	if competence == "" {
		competence = a.Competence
	}
	return &Movement{
		AIHID:             a.ID,
		Type:              in.Type,
		UserID:            userID,
		Value:             &value,
		Competence:        &competence,
		ProfMedicine:      optional(in.ProfMedicine),
		ProfNursing:       optional(in.ProfNursing),
		ProfPhysiotherapy: optional(in.ProfPhysiotherapy),
		ProfMaxillofacial: optional(in.ProfMaxillofacial),
		Status:            in.Status,
		Notes:             optional(in.Notes),
	}
}

func optional(s string) *string {
	s = middleware.SanitizeString(s)
	if s == "" {
		return nil
	}
	return &s
}

// LastProfessionals returns the staff of the latest movement that named
// any, or nil. It is used to pre-fill the next movement form.
func (s *Service) LastProfessionals(ctx context.Context, aihID int64) (*Professionals, error) {
	m, err := s.repo.LatestWithProfessionals(ctx, aihID)
	if err != nil || m == nil {
		return nil, err
	}
	return &Professionals{
		Medicine:      m.ProfMedicine,
		Nursing:       m.ProfNursing,
		Physiotherapy: m.ProfPhysiotherapy,
		Maxillofacial: m.ProfMaxillofacial,
		Date:          m.Date,
		Type:          m.Type,
	}, nil
}

// Dashboard aggregates the given competence, the current month when empty.
func (s *Service) Dashboard(ctx context.Context, competence string) (*Dashboard, error) {
	competence = strings.TrimSpace(competence)
	if competence == "" {
		competence = s.now().Format("01/2006")
	}
	if !ValidCompetence(competence) {
		return nil, apperr.NewValidation("Competência deve estar no formato MM/AAAA")
	}
	return s.repo.Dashboard(ctx, competence)
}

func (s *Service) Search(ctx context.Context, f SearchFilters) ([]*SearchResult, error) {
	for _, st := range f.Status {
		if !st.Valid() {
			return nil, apperr.NewValidation("Status da AIH inválido")
		}
	}
	if f.InProcessingCompetence != "" && !ValidCompetence(f.InProcessingCompetence) {
		return nil, apperr.NewValidation("Competência deve estar no formato MM/AAAA")
	}
	return s.repo.Search(ctx, f)
}
