// Package qbank holds the question bank itself: authoring, attempt
// recording, and the aggregate statistics the dashboards read.
package qbank

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog/log"

	"github.com/neuroqbank/qbank_server/config"
	"github.com/neuroqbank/qbank_server/internal/auth"
	"github.com/neuroqbank/qbank_server/internal/review"
	"github.com/neuroqbank/qbank_server/internal/stores/cache"
	"github.com/neuroqbank/qbank_server/internal/stores/models"
)

type questionStore interface {
	InsertQuestion(ctx context.Context, arg models.InsertQuestionParams) (models.Question, error)
	ListQuestions(ctx context.Context, arg models.ListQuestionsParams) ([]models.Question, error)
	InsertAttempt(ctx context.Context, arg models.InsertAttemptParams) (models.Attempt, error)
	GetCategoryStats(ctx context.Context, userID int64) ([]models.GetCategoryStatsRow, error)
}

type Server struct {
	Config *config.Config
	Store  questionStore
	Cache  *cache.Cache
}

func NewServer(cfg *config.Config, store questionStore, c *cache.Cache) *Server {
	return &Server{cfg, store, c}
}

func validDifficulty(d string) bool {
	switch d {
	case models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard:
		return true
	}
	return false
}

type AddQuestionArgs struct {
	QuestionText  string
	Options       []string
	CorrectOption int
	Category      string
	Difficulty    string
}

func (s *Server) AddQuestion(ctx context.Context, args AddQuestionArgs) (models.Question, error) {
	user, err := auth.RequireUser(ctx)
	if err != nil {
		return models.Question{}, err
	}
	if args.QuestionText == "" {
		return models.Question{}, fmt.Errorf("question text is required")
	}
	if len(args.Options) < 2 {
		return models.Question{}, fmt.Errorf("need at least two options")
	}
	if args.CorrectOption < 0 || args.CorrectOption >= len(args.Options) {
		return models.Question{}, fmt.Errorf("correct option out of range")
	}
	if !validDifficulty(args.Difficulty) {
		return models.Question{}, fmt.Errorf("unknown difficulty %q", args.Difficulty)
	}
	return s.Store.InsertQuestion(ctx, models.InsertQuestionParams{
		UserID:        user.DBID,
		QuestionText:  args.QuestionText,
		Options:       args.Options,
		CorrectOption: int32(args.CorrectOption),
		Category:      args.Category,
		Difficulty:    args.Difficulty,
	})
}

// Questions lists the user's questions, optionally filtered by category and
// difficulty.
func (s *Server) Questions(ctx context.Context, category, difficulty string) ([]models.Question, error) {
	user, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	return s.Store.ListQuestions(ctx, models.ListQuestionsParams{
		UserID:     user.DBID,
		Category:   optionalText(category),
		Difficulty: optionalText(difficulty),
	})
}

// RecordAttempt appends one attempt record. Attempts are immutable once
// written; every aggregate is derived from them at read time.
func (s *Server) RecordAttempt(ctx context.Context, questionID int64, isCorrect bool, attemptTimeMs int) (models.Attempt, error) {
	user, err := auth.RequireUser(ctx)
	if err != nil {
		return models.Attempt{}, err
	}
	var att pgtype.Int4
	if attemptTimeMs > 0 {
		att = pgtype.Int4{Int32: int32(attemptTimeMs), Valid: true}
	}
	a, err := s.Store.InsertAttempt(ctx, models.InsertAttemptParams{
		UserID:        user.DBID,
		QuestionID:    questionID,
		IsCorrect:     isCorrect,
		AttemptTimeMs: att,
	})
	if err != nil {
		return models.Attempt{}, err
	}
	// A new attempt can change how many questions need review, under any
	// category filter.
	if s.Cache != nil {
		s.Cache.DeletePrefix(ctx, review.CountCachePrefix(user.DBID))
	}
	log.Ctx(ctx).Debug().Int64("questionID", questionID).Bool("correct", isCorrect).
		Msg("attempt-recorded")
	return a, nil
}

// CategoryStat is the dashboard row for one category.
type CategoryStat struct {
	Category  string  `json:"category"`
	Attempts  int64   `json:"attempts"`
	Correct   int64   `json:"correct"`
	Incorrect int64   `json:"incorrect"`
	Accuracy  float64 `json:"accuracy"`
}

// Stats aggregates per-category attempt counts and accuracy percentages.
func (s *Server) Stats(ctx context.Context) ([]CategoryStat, error) {
	user, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.Store.GetCategoryStats(ctx, user.DBID)
	if err != nil {
		return nil, err
	}
	stats := make([]CategoryStat, len(rows))
	for i, r := range rows {
		stats[i] = CategoryStat{
			Category:  r.Category,
			Attempts:  r.Attempts,
			Correct:   r.Correct,
			Incorrect: r.Attempts - r.Correct,
		}
		if r.Attempts > 0 {
			stats[i].Accuracy = float64(r.Correct) / float64(r.Attempts) * 100
		}
	}
	return stats, nil
}

func optionalText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}
