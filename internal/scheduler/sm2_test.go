package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 9, 22, 23, 0, 0, 0, time.UTC)

func TestReviewLapseResetsProgress(t *testing.T) {
	testcases := []struct {
		name    string
		quality Quality
	}{
		{"again", QualityAgain},
		{"hard", QualityHard},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			state := CardState{EaseFactor: 2.5, IntervalDays: 40, Repetitions: 7}
			next := Review(state, tc.quality, testNow)
			assert.Equal(t, 0, next.Repetitions)
			assert.Equal(t, 1, next.IntervalDays)
			assert.Equal(t, testNow.AddDate(0, 0, 1), next.NextReviewAt)
		})
	}
}

func TestReviewAgainEaseDrop(t *testing.T) {
	// q=0: ease moves by 0.1 - 5*(0.08 + 5*0.02) = -0.8
	next := Review(CardState{EaseFactor: 2.5, IntervalDays: 10, Repetitions: 3}, QualityAgain, testNow)
	assert.InDelta(t, 1.7, next.EaseFactor, 1e-9)

	// and the floor holds no matter how low the prior ease was
	next = Review(CardState{EaseFactor: 1.35, IntervalDays: 1, Repetitions: 0}, QualityAgain, testNow)
	assert.InDelta(t, 1.3, next.EaseFactor, 1e-9)
}

func TestReviewSuccessLadder(t *testing.T) {
	state := CardState{EaseFactor: 2.5, IntervalDays: 1, Repetitions: 0}

	// first success: 1 day
	state = Review(state, QualityGood, testNow)
	require.Equal(t, 1, state.Repetitions)
	require.Equal(t, 1, state.IntervalDays)

	// second success: 6 days
	state = Review(state, QualityGood, testNow)
	require.Equal(t, 2, state.Repetitions)
	require.Equal(t, 6, state.IntervalDays)

	// third and later: round(interval * new ease)
	prevInterval := state.IntervalDays
	next := Review(state, QualityGood, testNow)
	require.Equal(t, 3, next.Repetitions)
	expected := int(float64(prevInterval)*next.EaseFactor + 0.5)
	require.Equal(t, expected, next.IntervalDays)
}

func TestReviewGoodFromSecondRepetition(t *testing.T) {
	// q=3: ease moves by 0.1 - 2*(0.08 + 2*0.02) = -0.14
	state := CardState{EaseFactor: 2.5, IntervalDays: 6, Repetitions: 1}
	next := Review(state, QualityGood, testNow)
	assert.Equal(t, 2, next.Repetitions)
	assert.InDelta(t, 2.36, next.EaseFactor, 1e-9)
	// interval uses the updated ease: round(6 * 2.36) = 14
	assert.Equal(t, 14, next.IntervalDays)
	assert.Equal(t, testNow.AddDate(0, 0, 14), next.NextReviewAt)
}

func TestReviewEasyGrowsEase(t *testing.T) {
	// q=5: ease moves by +0.1
	next := Review(CardState{EaseFactor: 2.5, IntervalDays: 6, Repetitions: 2}, QualityEasy, testNow)
	assert.InDelta(t, 2.6, next.EaseFactor, 1e-9)
	assert.Equal(t, 3, next.Repetitions)
	assert.Equal(t, 16, next.IntervalDays) // round(6 * 2.6)
}

func TestReviewEaseNeverBelowFloor(t *testing.T) {
	for _, q := range []Quality{QualityAgain, QualityHard, QualityGood, QualityEasy} {
		state := CardState{EaseFactor: 1.3, IntervalDays: 1, Repetitions: 0}
		for i := 0; i < 10; i++ {
			state = Review(state, q, testNow)
			require.GreaterOrEqual(t, state.EaseFactor, 1.3)
		}
	}
}

func TestNewCardState(t *testing.T) {
	state := NewCardState(testNow)
	assert.Equal(t, 2.5, state.EaseFactor)
	assert.Equal(t, 1, state.IntervalDays)
	assert.Equal(t, 0, state.Repetitions)
	assert.Equal(t, testNow, state.NextReviewAt)
}

func TestParseQuality(t *testing.T) {
	testcases := []struct {
		in   string
		want Quality
	}{
		{"again", QualityAgain},
		{"hard", QualityHard},
		{"good", QualityGood},
		{"easy", QualityEasy},
	}
	for _, tc := range testcases {
		got, err := ParseQuality(tc.in)
		require.NoError(t, err)
		require.Equal(t, tc.want, got)
	}
	_, err := ParseQuality("meh")
	require.Error(t, err)
}
