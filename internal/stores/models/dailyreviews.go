package models

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const getDailyReview = `
SELECT id, user_id, review_date, question_ids, created_at
FROM daily_reviews
WHERE user_id = $1 AND review_date = $2
`

type GetDailyReviewParams struct {
	UserID     int64
	ReviewDate pgtype.Date
}

func (q *Queries) GetDailyReview(ctx context.Context, arg GetDailyReviewParams) (DailyReview, error) {
	row := q.db.QueryRow(ctx, getDailyReview, arg.UserID, arg.ReviewDate)
	var d DailyReview
	err := row.Scan(&d.ID, &d.UserID, &d.ReviewDate, &d.QuestionIDs, &d.CreatedAt)
	return d, err
}

// The unique constraint on (user_id, review_date) is the only duplicate-
// generation guard; on conflict this returns no rows and the caller re-reads
// the winning record.
const insertDailyReview = `
INSERT INTO daily_reviews (user_id, review_date, question_ids)
VALUES ($1, $2, $3)
ON CONFLICT (user_id, review_date) DO NOTHING
RETURNING id, user_id, review_date, question_ids, created_at
`

type InsertDailyReviewParams struct {
	UserID      int64
	ReviewDate  pgtype.Date
	QuestionIDs []int64
}

func (q *Queries) InsertDailyReview(ctx context.Context, arg InsertDailyReviewParams) (DailyReview, error) {
	row := q.db.QueryRow(ctx, insertDailyReview, arg.UserID, arg.ReviewDate, arg.QuestionIDs)
	var d DailyReview
	err := row.Scan(&d.ID, &d.UserID, &d.ReviewDate, &d.QuestionIDs, &d.CreatedAt)
	return d, err
}

const recentDailyReviewQuestionIDs = `
SELECT DISTINCT unnest(question_ids)
FROM daily_reviews
WHERE user_id = $1 AND review_date >= $2
`

type RecentDailyReviewQuestionIDsParams struct {
	UserID int64
	Since  pgtype.Date
}

func (q *Queries) RecentDailyReviewQuestionIDs(ctx context.Context, arg RecentDailyReviewQuestionIDsParams) ([]int64, error) {
	rows, err := q.db.Query(ctx, recentDailyReviewQuestionIDs, arg.UserID, arg.Since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
