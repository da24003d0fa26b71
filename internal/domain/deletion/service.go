package deletion

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/aihaudit/aih/internal/platform/apperr"
)

// Transactor runs fn in one database transaction carried by ctx and drops
// cached reads after commit.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
	Invalidate(patterns ...string)
}

// Reauth hands out the one-shot grant left by a recent password check.
type Reauth interface {
	Valid(userID int64) bool
	Consume(userID int64) bool
}

// Service performs justified, logged hard deletes. The deletion log and
// the deletes commit together or not at all.
type Service struct {
	repo   Repository
	tx     Transactor
	reauth Reauth
	logger zerolog.Logger

	// afterLog runs between the log insert and the deletes. Tests set it
	// to simulate a crash at that point.
	afterLog func(ctx context.Context) error
}

func NewService(repo Repository, tx Transactor, reauth Reauth, logger zerolog.Logger) *Service {
	return &Service{repo: repo, tx: tx, reauth: reauth, logger: logger}
}

func checkJustification(missing bool, justification, missingMsg string) (string, error) {
	j := strings.TrimSpace(justification)
	if missing || j == "" {
		return "", apperr.NewValidation(missingMsg)
	}
	if utf8.RuneCountInString(j) < minJustification {
		return "", apperr.NewValidation(fmt.Sprintf("Justificativa deve ter pelo menos %d caracteres", minJustification))
	}
	return j, nil
}

var errReauth = apperr.Forbidden("Confirmação de senha necessária para esta operação")

// checkReauth rejects callers without a live grant. The grant itself is
// used up by consumeReauth once the target row has been found.
func (s *Service) checkReauth(userID int64) error {
	if !s.reauth.Valid(userID) {
		return errReauth
	}
	return nil
}

func (s *Service) consumeReauth(userID int64) error {
	if !s.reauth.Consume(userID) {
		return errReauth
	}
	return nil
}

func (s *Service) hook(ctx context.Context) error {
	if s.afterLog == nil {
		return nil
	}
	return s.afterLog(ctx)
}

// DeleteMovement removes one movement after logging its snapshot. The AIH
// keeps the status and value the movement left.
func (s *Service) DeleteMovement(ctx context.Context, userID int64, origin Origin, in MovementRequest) (*MovementDeleted, error) {
	justification, err := checkJustification(in.MovementID <= 0, in.Justification,
		"ID da movimentação e justificativa são obrigatórios")
	if err != nil {
		return nil, err
	}
	if err := s.checkReauth(userID); err != nil {
		return nil, err
	}

	var out *MovementDeleted
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		row, err := s.repo.FindMovement(ctx, in.MovementID)
		if err != nil {
			return err
		}
		if err := s.consumeReauth(userID); err != nil {
			return err
		}
		snapshot, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("snapshot movement: %w", err)
		}
		l := &Log{
			Kind:          KindMovement,
			UserID:        userID,
			Snapshot:      snapshot,
			Justification: justification,
			IP:            origin.IP,
			UserAgent:     origin.UserAgent,
		}
		if err := s.repo.InsertLog(ctx, l); err != nil {
			return err
		}
		if err := s.hook(ctx); err != nil {
			return err
		}
		if err := s.repo.DeleteMovement(ctx, in.MovementID); err != nil {
			return err
		}
		out = &MovementDeleted{ID: in.MovementID, AIH: row.String("numero_aih"), Type: row.String("tipo")}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.tx.Invalidate("movimentacoes", "aihs")

	s.logger.Warn().
		Int64("user_id", userID).
		Str("kind", string(KindMovement)).
		Int64("movimentacao_id", out.ID).
		Str("numero_aih", out.AIH).
		Msg("movement deleted")
	return out, nil
}

// DeleteAIH removes an AIH with all its glosas, movements and attendances
// after logging a snapshot of every row.
func (s *Service) DeleteAIH(ctx context.Context, userID int64, origin Origin, in AIHRequest) (*AIHDeleted, error) {
	number := strings.TrimSpace(in.Number)
	justification, err := checkJustification(number == "", in.Justification,
		"Número da AIH e justificativa são obrigatórios")
	if err != nil {
		return nil, err
	}
	if err := s.checkReauth(userID); err != nil {
		return nil, err
	}

	var out *AIHDeleted
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		aih, err := s.repo.FindAIH(ctx, number)
		if err != nil {
			return err
		}
		if err := s.consumeReauth(userID); err != nil {
			return err
		}
		aihID := aih.Int64("id")
		movements, glosas, attendances, err := s.repo.Children(ctx, aihID)
		if err != nil {
			return err
		}
		snap := aihSnapshot{
			AIH:         aih,
			Movements:   movements,
			Glosas:      glosas,
			Attendances: attendances,
			Totals: snapshotTotals{
				Movements:   len(movements),
				Glosas:      len(glosas),
				Attendances: len(attendances),
			},
		}
		snapshot, err := json.Marshal(snap)
		if err != nil {
			return fmt.Errorf("snapshot aih: %w", err)
		}
		l := &Log{
			Kind:          KindAIH,
			UserID:        userID,
			Snapshot:      snapshot,
			Justification: justification,
			IP:            origin.IP,
			UserAgent:     origin.UserAgent,
		}
		if err := s.repo.InsertLog(ctx, l); err != nil {
			return err
		}
		if err := s.hook(ctx); err != nil {
			return err
		}
		if err := s.repo.DeleteAIH(ctx, aihID); err != nil {
			return err
		}
		out = &AIHDeleted{
			Number:      number,
			Movements:   snap.Totals.Movements,
			Glosas:      snap.Totals.Glosas,
			Attendances: snap.Totals.Attendances,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.tx.Invalidate("aihs", "movimentacoes", "glosas", "atendimentos")

	s.logger.Warn().
		Int64("user_id", userID).
		Str("kind", string(KindAIH)).
		Str("numero_aih", out.Number).
		Int("movimentacoes", out.Movements).
		Int("glosas", out.Glosas).
		Int("atendimentos", out.Attendances).
		Msg("aih deleted")
	return out, nil
}

func (s *Service) ListLogs(ctx context.Context, limit, offset int) ([]*Log, int, error) {
	return s.repo.ListLogs(ctx, limit, offset)
}
