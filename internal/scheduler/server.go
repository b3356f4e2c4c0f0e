package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/neuroqbank/qbank_server/config"
	"github.com/neuroqbank/qbank_server/internal/auth"
	"github.com/neuroqbank/qbank_server/internal/stores/models"
)

type nower interface {
	Now() time.Time
}

type RealNower struct{}

func (r RealNower) Now() time.Time {
	return time.Now()
}

// cardStore is the slice of the queries layer this server touches.
type cardStore interface {
	InsertFlashcard(ctx context.Context, arg models.InsertFlashcardParams) (models.Flashcard, error)
	GetFlashcard(ctx context.Context, arg models.GetFlashcardParams) (models.Flashcard, error)
	GetDueFlashcards(ctx context.Context, arg models.GetDueFlashcardsParams) ([]models.Flashcard, error)
	UpdateFlashcardScheduling(ctx context.Context, arg models.UpdateFlashcardSchedulingParams) (int64, error)
	GetDueBreakdown(ctx context.Context, arg models.GetDueBreakdownParams) ([]models.GetDueBreakdownRow, error)
	DeleteFlashcard(ctx context.Context, arg models.DeleteFlashcardParams) (int64, error)
}

// cardTx runs fn against a store bound to a single transaction.
type cardTx interface {
	RunTx(ctx context.Context, fn func(store cardStore) error) error
}

// PoolTx is the pgx-backed cardTx used in production.
type PoolTx struct {
	Pool    *pgxpool.Pool
	Queries *models.Queries
}

func (p PoolTx) RunTx(ctx context.Context, fn func(store cardStore) error) error {
	tx, err := p.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if err := fn(p.Queries.WithTx(tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type Server struct {
	Config *config.Config
	Store  cardStore
	Tx     cardTx
	Nower  nower
}

func NewServer(cfg *config.Config, store cardStore, tx cardTx) *Server {
	return &Server{cfg, store, tx, RealNower{}}
}

// AddFlashcard creates a card with default scheduling state, due immediately.
func (s *Server) AddFlashcard(ctx context.Context, front, back string) (models.Flashcard, error) {
	user, err := auth.RequireUser(ctx)
	if err != nil {
		return models.Flashcard{}, err
	}
	state := NewCardState(s.Nower.Now())
	return s.Store.InsertFlashcard(ctx, models.InsertFlashcardParams{
		UserID:       user.DBID,
		Front:        front,
		Back:         back,
		EaseFactor:   state.EaseFactor,
		IntervalDays: int32(state.IntervalDays),
		Repetitions:  int32(state.Repetitions),
		NextReviewAt: toPGTimestamp(state.NextReviewAt),
	})
}

// ReviewCard applies an SM-2 update to the identified card and persists the
// new state. Load and update run in one transaction. A card that cannot be
// found is a no-op, not an error.
func (s *Server) ReviewCard(ctx context.Context, cardID int64, q Quality) (*CardState, error) {
	user, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	now := s.Nower.Now()

	var state *CardState
	err = s.Tx.RunTx(ctx, func(store cardStore) error {
		card, err := store.GetFlashcard(ctx, models.GetFlashcardParams{
			UserID: user.DBID,
			ID:     cardID,
		})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				log.Ctx(ctx).Warn().Int64("cardID", cardID).Msg("review-card-not-found")
				return nil
			}
			return err
		}

		next := Review(CardState{
			EaseFactor:   card.EaseFactor,
			IntervalDays: int(card.IntervalDays),
			Repetitions:  int(card.Repetitions),
		}, q, now)

		_, err = store.UpdateFlashcardScheduling(ctx, models.UpdateFlashcardSchedulingParams{
			EaseFactor:   next.EaseFactor,
			IntervalDays: int32(next.IntervalDays),
			Repetitions:  int32(next.Repetitions),
			NextReviewAt: toPGTimestamp(next.NextReviewAt),
			UserID:       user.DBID,
			ID:           cardID,
		})
		if err != nil {
			return err
		}
		state = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, nil
	}

	log.Ctx(ctx).Info().Int64("cardID", cardID).Int("quality", int(q)).
		Float64("ease", state.EaseFactor).Int("interval", state.IntervalDays).
		Str("next-scheduled", state.NextReviewAt.String()).Msg("card-reviewed")
	return state, nil
}

// DueFlashcards returns cards due at or before now, soonest first.
func (s *Server) DueFlashcards(ctx context.Context, limit int) ([]models.Flashcard, error) {
	user, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	return s.Store.GetDueFlashcards(ctx, models.GetDueFlashcardsParams{
		UserID: user.DBID,
		Now:    toPGTimestamp(s.Nower.Now()),
		Limit:  int32(limit),
	})
}

// DueBreakdown returns a per-day count of upcoming cards, with everything
// already due bucketed under "overdue".
func (s *Server) DueBreakdown(ctx context.Context, tz string) (map[string]uint32, error) {
	user, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	if tz == "" {
		tz = "UTC"
	}
	rows, err := s.Store.GetDueBreakdown(ctx, models.GetDueBreakdownParams{
		UserID: user.DBID,
		Now:    toPGTimestamp(s.Nower.Now()),
		Tz:     tz,
	})
	if err != nil {
		return nil, err
	}
	breakdown := map[string]uint32{}
	for i := range rows {
		var key string
		switch rows[i].ScheduledDate.InfinityModifier {
		case pgtype.Finite:
			key = rows[i].ScheduledDate.Time.Format("2006-01-02")
		case pgtype.NegativeInfinity:
			key = "overdue"
		case pgtype.Infinity:
			key = "infinity"
		}
		breakdown[key] += uint32(rows[i].CardCount)
	}
	return breakdown, nil
}

// DeleteFlashcard removes a card. Reports how many rows went away.
func (s *Server) DeleteFlashcard(ctx context.Context, cardID int64) (int64, error) {
	user, err := auth.RequireUser(ctx)
	if err != nil {
		return 0, err
	}
	return s.Store.DeleteFlashcard(ctx, models.DeleteFlashcardParams{
		UserID: user.DBID,
		ID:     cardID,
	})
}
