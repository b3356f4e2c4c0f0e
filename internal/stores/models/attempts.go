package models

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const insertAttempt = `
INSERT INTO attempts (user_id, question_id, is_correct, attempt_time_ms)
VALUES ($1, $2, $3, $4)
RETURNING id, user_id, question_id, is_correct, attempt_time_ms, created_at
`

type InsertAttemptParams struct {
	UserID        int64
	QuestionID    int64
	IsCorrect     bool
	AttemptTimeMs pgtype.Int4
}

func (q *Queries) InsertAttempt(ctx context.Context, arg InsertAttemptParams) (Attempt, error) {
	row := q.db.QueryRow(ctx, insertAttempt,
		arg.UserID, arg.QuestionID, arg.IsCorrect, arg.AttemptTimeMs)
	var a Attempt
	err := row.Scan(&a.ID, &a.UserID, &a.QuestionID, &a.IsCorrect,
		&a.AttemptTimeMs, &a.CreatedAt)
	return a, err
}

const listAttempts = `
SELECT id, user_id, question_id, is_correct, attempt_time_ms, created_at
FROM attempts
WHERE user_id = $1
ORDER BY created_at
`

func (q *Queries) ListAttempts(ctx context.Context, userID int64) ([]Attempt, error) {
	rows, err := q.db.Query(ctx, listAttempts, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAttempts(rows)
}

const listAttemptsSince = `
SELECT id, user_id, question_id, is_correct, attempt_time_ms, created_at
FROM attempts
WHERE user_id = $1 AND created_at >= $2
ORDER BY created_at
`

type ListAttemptsSinceParams struct {
	UserID int64
	Since  pgtype.Timestamptz
}

func (q *Queries) ListAttemptsSince(ctx context.Context, arg ListAttemptsSinceParams) ([]Attempt, error) {
	rows, err := q.db.Query(ctx, listAttemptsSince, arg.UserID, arg.Since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAttempts(rows)
}

const getCategoryStats = `
SELECT q.category,
       COUNT(*) AS attempts,
       COUNT(*) FILTER (WHERE a.is_correct) AS correct
FROM attempts a
JOIN questions q ON q.id = a.question_id AND q.user_id = a.user_id
WHERE a.user_id = $1
GROUP BY q.category
ORDER BY q.category
`

func scanAttempts(rows pgx.Rows) ([]Attempt, error) {
	var items []Attempt
	for rows.Next() {
		var a Attempt
		if err := rows.Scan(&a.ID, &a.UserID, &a.QuestionID, &a.IsCorrect,
			&a.AttemptTimeMs, &a.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

type GetCategoryStatsRow struct {
	Category string
	Attempts int64
	Correct  int64
}

func (q *Queries) GetCategoryStats(ctx context.Context, userID int64) ([]GetCategoryStatsRow, error) {
	rows, err := q.db.Query(ctx, getCategoryStats, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GetCategoryStatsRow
	for rows.Next() {
		var r GetCategoryStatsRow
		if err := rows.Scan(&r.Category, &r.Attempts, &r.Correct); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}
