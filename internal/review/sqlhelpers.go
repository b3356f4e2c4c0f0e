package review

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

func toPGTimestamp(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Valid: true, Time: t}
}

func toPGDate(t time.Time) pgtype.Date {
	y, m, d := t.UTC().Date()
	return pgtype.Date{Valid: true, Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}
