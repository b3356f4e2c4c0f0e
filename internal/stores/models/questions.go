package models

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const insertQuestion = `
INSERT INTO questions (user_id, question_text, options, correct_option, category, difficulty)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, user_id, question_text, options, correct_option, category, difficulty, created_at
`

type InsertQuestionParams struct {
	UserID        int64
	QuestionText  string
	Options       []string
	CorrectOption int32
	Category      string
	Difficulty    string
}

func (q *Queries) InsertQuestion(ctx context.Context, arg InsertQuestionParams) (Question, error) {
	row := q.db.QueryRow(ctx, insertQuestion,
		arg.UserID, arg.QuestionText, arg.Options, arg.CorrectOption,
		arg.Category, arg.Difficulty)
	var qu Question
	err := row.Scan(&qu.ID, &qu.UserID, &qu.QuestionText, &qu.Options,
		&qu.CorrectOption, &qu.Category, &qu.Difficulty, &qu.CreatedAt)
	return qu, err
}

const listQuestions = `
SELECT id, user_id, question_text, options, correct_option, category, difficulty, created_at
FROM questions
WHERE user_id = $1
  AND ($2::text IS NULL OR category = $2)
  AND ($3::text IS NULL OR difficulty = $3)
ORDER BY id
`

type ListQuestionsParams struct {
	UserID     int64
	Category   pgtype.Text
	Difficulty pgtype.Text
}

func (q *Queries) ListQuestions(ctx context.Context, arg ListQuestionsParams) ([]Question, error) {
	rows, err := q.db.Query(ctx, listQuestions, arg.UserID, arg.Category, arg.Difficulty)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Question
	for rows.Next() {
		var qu Question
		if err := rows.Scan(&qu.ID, &qu.UserID, &qu.QuestionText, &qu.Options,
			&qu.CorrectOption, &qu.Category, &qu.Difficulty, &qu.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, qu)
	}
	return items, rows.Err()
}

const getQuestionsByIDs = `
SELECT id, user_id, question_text, options, correct_option, category, difficulty, created_at
FROM questions
WHERE user_id = $1 AND id = ANY($2::bigint[])
`

type GetQuestionsByIDsParams struct {
	UserID int64
	IDs    []int64
}

func (q *Queries) GetQuestionsByIDs(ctx context.Context, arg GetQuestionsByIDsParams) ([]Question, error) {
	rows, err := q.db.Query(ctx, getQuestionsByIDs, arg.UserID, arg.IDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Question
	for rows.Next() {
		var qu Question
		if err := rows.Scan(&qu.ID, &qu.UserID, &qu.QuestionText, &qu.Options,
			&qu.CorrectOption, &qu.Category, &qu.Difficulty, &qu.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, qu)
	}
	return items, rows.Err()
}
