package models

import (
	"github.com/jackc/pgx/v5/pgtype"
)

const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

type Flashcard struct {
	ID           int64
	UserID       int64
	Front        string
	Back         string
	EaseFactor   float64
	IntervalDays int32
	Repetitions  int32
	NextReviewAt pgtype.Timestamptz
	CreatedAt    pgtype.Timestamptz
}

type Question struct {
	ID            int64
	UserID        int64
	QuestionText  string
	Options       []string
	CorrectOption int32
	Category      string
	Difficulty    string
	CreatedAt     pgtype.Timestamptz
}

// Attempt rows are append-only. Aggregates (counts, last attempt time) are
// always derived from them, never stored.
type Attempt struct {
	ID            int64
	UserID        int64
	QuestionID    int64
	IsCorrect     bool
	AttemptTimeMs pgtype.Int4
	CreatedAt     pgtype.Timestamptz
}

type DailyReview struct {
	ID          int64
	UserID      int64
	ReviewDate  pgtype.Date
	QuestionIDs []int64
	CreatedAt   pgtype.Timestamptz
}
