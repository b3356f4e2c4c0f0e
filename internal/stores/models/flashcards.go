package models

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const insertFlashcard = `
INSERT INTO flashcards (user_id, front, back, ease_factor, interval_days, repetitions, next_review_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, user_id, front, back, ease_factor, interval_days, repetitions, next_review_at, created_at
`

type InsertFlashcardParams struct {
	UserID       int64
	Front        string
	Back         string
	EaseFactor   float64
	IntervalDays int32
	Repetitions  int32
	NextReviewAt pgtype.Timestamptz
}

func (q *Queries) InsertFlashcard(ctx context.Context, arg InsertFlashcardParams) (Flashcard, error) {
	row := q.db.QueryRow(ctx, insertFlashcard,
		arg.UserID, arg.Front, arg.Back, arg.EaseFactor, arg.IntervalDays,
		arg.Repetitions, arg.NextReviewAt)
	var f Flashcard
	err := row.Scan(&f.ID, &f.UserID, &f.Front, &f.Back, &f.EaseFactor,
		&f.IntervalDays, &f.Repetitions, &f.NextReviewAt, &f.CreatedAt)
	return f, err
}

const getFlashcard = `
SELECT id, user_id, front, back, ease_factor, interval_days, repetitions, next_review_at, created_at
FROM flashcards
WHERE user_id = $1 AND id = $2
`

type GetFlashcardParams struct {
	UserID int64
	ID     int64
}

func (q *Queries) GetFlashcard(ctx context.Context, arg GetFlashcardParams) (Flashcard, error) {
	row := q.db.QueryRow(ctx, getFlashcard, arg.UserID, arg.ID)
	var f Flashcard
	err := row.Scan(&f.ID, &f.UserID, &f.Front, &f.Back, &f.EaseFactor,
		&f.IntervalDays, &f.Repetitions, &f.NextReviewAt, &f.CreatedAt)
	return f, err
}

const getDueFlashcards = `
SELECT id, user_id, front, back, ease_factor, interval_days, repetitions, next_review_at, created_at
FROM flashcards
WHERE user_id = $1 AND next_review_at <= $2
ORDER BY next_review_at ASC
LIMIT $3
`

type GetDueFlashcardsParams struct {
	UserID int64
	Now    pgtype.Timestamptz
	Limit  int32
}

func (q *Queries) GetDueFlashcards(ctx context.Context, arg GetDueFlashcardsParams) ([]Flashcard, error) {
	rows, err := q.db.Query(ctx, getDueFlashcards, arg.UserID, arg.Now, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Flashcard
	for rows.Next() {
		var f Flashcard
		if err := rows.Scan(&f.ID, &f.UserID, &f.Front, &f.Back, &f.EaseFactor,
			&f.IntervalDays, &f.Repetitions, &f.NextReviewAt, &f.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	return items, rows.Err()
}

const updateFlashcardScheduling = `
UPDATE flashcards
SET ease_factor = $1, interval_days = $2, repetitions = $3, next_review_at = $4
WHERE user_id = $5 AND id = $6
`

type UpdateFlashcardSchedulingParams struct {
	EaseFactor   float64
	IntervalDays int32
	Repetitions  int32
	NextReviewAt pgtype.Timestamptz
	UserID       int64
	ID           int64
}

func (q *Queries) UpdateFlashcardScheduling(ctx context.Context, arg UpdateFlashcardSchedulingParams) (int64, error) {
	tag, err := q.db.Exec(ctx, updateFlashcardScheduling,
		arg.EaseFactor, arg.IntervalDays, arg.Repetitions, arg.NextReviewAt,
		arg.UserID, arg.ID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const getDueBreakdown = `
SELECT
    CASE WHEN next_review_at <= $2 THEN '-infinity'::date
         ELSE (next_review_at AT TIME ZONE $3)::date
    END AS scheduled_date,
    COUNT(*) AS card_count
FROM flashcards
WHERE user_id = $1
GROUP BY 1
ORDER BY 1
`

type GetDueBreakdownParams struct {
	UserID int64
	Now    pgtype.Timestamptz
	Tz     string
}

type GetDueBreakdownRow struct {
	ScheduledDate pgtype.Date
	CardCount     int64
}

func (q *Queries) GetDueBreakdown(ctx context.Context, arg GetDueBreakdownParams) ([]GetDueBreakdownRow, error) {
	rows, err := q.db.Query(ctx, getDueBreakdown, arg.UserID, arg.Now, arg.Tz)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GetDueBreakdownRow
	for rows.Next() {
		var r GetDueBreakdownRow
		if err := rows.Scan(&r.ScheduledDate, &r.CardCount); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const deleteFlashcard = `
DELETE FROM flashcards WHERE user_id = $1 AND id = $2
`

type DeleteFlashcardParams struct {
	UserID int64
	ID     int64
}

func (q *Queries) DeleteFlashcard(ctx context.Context, arg DeleteFlashcardParams) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteFlashcard, arg.UserID, arg.ID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
