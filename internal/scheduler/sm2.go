// Package scheduler implements SM-2 spaced-repetition scheduling for
// flashcards.
package scheduler

import (
	"fmt"
	"math"
	"time"
)

// Quality is the user's rating of a review, on the SM-2 numeric scale.
type Quality int

const (
	QualityAgain Quality = 0
	QualityHard  Quality = 2
	QualityGood  Quality = 3
	QualityEasy  Quality = 5
)

func ParseQuality(s string) (Quality, error) {
	switch s {
	case "again":
		return QualityAgain, nil
	case "hard":
		return QualityHard, nil
	case "good":
		return QualityGood, nil
	case "easy":
		return QualityEasy, nil
	}
	return 0, fmt.Errorf("unknown quality %q", s)
}

const (
	DefaultEaseFactor = 2.5
	MinEaseFactor     = 1.3

	// Ratings below this numeric value lapse the card. Note that hard (2)
	// falls below it and resets progress exactly like again.
	successThreshold = 3
)

// CardState is the scheduling state of a single card for a single user.
type CardState struct {
	EaseFactor   float64
	IntervalDays int
	Repetitions  int
	NextReviewAt time.Time
}

// NewCardState is the state a freshly authored card starts in: due
// immediately, default ease.
func NewCardState(now time.Time) CardState {
	return CardState{
		EaseFactor:   DefaultEaseFactor,
		IntervalDays: 1,
		Repetitions:  0,
		NextReviewAt: now,
	}
}

// Review computes the next scheduling state from the current one and a
// rating. Pure function; the caller persists the result.
//
// The ease factor adjustment is the standard SM-2 one and applies on both
// success and lapse, with a floor of MinEaseFactor. A lapse resets
// repetitions to 0 and the interval to 1 day. Successful reviews walk the
// 1/6/round(interval*ease) ladder.
func Review(state CardState, q Quality, now time.Time) CardState {
	qf := float64(q)
	ease := state.EaseFactor + (0.1 - (5-qf)*(0.08+(5-qf)*0.02))
	if ease < MinEaseFactor {
		ease = MinEaseFactor
	}

	next := CardState{EaseFactor: ease}
	if int(q) < successThreshold {
		next.Repetitions = 0
		next.IntervalDays = 1
	} else {
		next.Repetitions = state.Repetitions + 1
		switch state.Repetitions {
		case 0:
			next.IntervalDays = 1
		case 1:
			next.IntervalDays = 6
		default:
			next.IntervalDays = int(math.Round(float64(state.IntervalDays) * ease))
		}
	}
	next.NextReviewAt = now.AddDate(0, 0, next.IntervalDays)
	return next
}
