// Package review selects and orders the questions most worth reviewing,
// either on demand ("smart review") or as a persisted once-per-day set
// ("daily review"). Both run on the same ranking core with different
// windows, exclusions and scoring weights.
package review

import (
	"sort"
	"time"

	"github.com/neuroqbank/qbank_server/internal/stores/models"
)

// questionHistory aggregates a user's attempt records for one question.
type questionHistory struct {
	correct     int
	incorrect   int
	lastAttempt time.Time
}

func (h questionHistory) total() int {
	return h.correct + h.incorrect
}

// errorRate is the percentage of attempts that were wrong.
func (h questionHistory) errorRate() float64 {
	t := h.total()
	if t == 0 {
		return 0
	}
	return float64(h.incorrect) / float64(t) * 100
}

func aggregateAttempts(attempts []models.Attempt) map[int64]questionHistory {
	byQuestion := make(map[int64]questionHistory)
	for _, a := range attempts {
		h := byQuestion[a.QuestionID]
		if a.IsCorrect {
			h.correct++
		} else {
			h.incorrect++
		}
		if a.CreatedAt.Time.After(h.lastAttempt) {
			h.lastAttempt = a.CreatedAt.Time
		}
		byQuestion[a.QuestionID] = h
	}
	return byQuestion
}

func daysSince(t, now time.Time) int {
	d := int(now.Sub(t).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}

// ScoredQuestion is one ranked candidate with its score breakdown.
type ScoredQuestion struct {
	QuestionID int64   `json:"question_id"`
	Score      float64 `json:"score"`
	ErrorRate  float64 `json:"error_rate"`
	Recency    float64 `json:"recency_score"`
}

// rankConfig parameterizes the ranking core. The two call sites differ in
// window, exclusion semantics and scoring; both flow through rank.
type rankConfig struct {
	cap      int
	exclude  func(qid int64, h questionHistory) bool
	score    func(qid int64, h questionHistory) ScoredQuestion
	eligible func(s ScoredQuestion, h questionHistory) bool
}

// rank scores every attempted candidate, drops excluded and ineligible ones,
// and returns at most cfg.cap items in non-increasing score order. Candidates
// with no history are never eligible.
func rank(candidateIDs []int64, history map[int64]questionHistory, cfg rankConfig) []ScoredQuestion {
	scored := make([]ScoredQuestion, 0, len(candidateIDs))
	for _, qid := range candidateIDs {
		h, attempted := history[qid]
		if !attempted {
			continue
		}
		if cfg.exclude != nil && cfg.exclude(qid, h) {
			continue
		}
		s := cfg.score(qid, h)
		if cfg.eligible != nil && !cfg.eligible(s, h) {
			continue
		}
		scored = append(scored, s)
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > cfg.cap {
		scored = scored[:cfg.cap]
	}
	return scored
}

// smartConfig builds the on-demand variant: all-time history, skip anything
// attempted in the trailing exclusion window, additive error/difficulty/
// staleness score, and only positive scores qualify.
func smartConfig(difficulty map[int64]string, now time.Time, exclusionDays, cap int) rankConfig {
	cutoff := now.AddDate(0, 0, -exclusionDays)
	return rankConfig{
		cap: cap,
		exclude: func(qid int64, h questionHistory) bool {
			return h.lastAttempt.After(cutoff)
		},
		score: func(qid int64, h questionHistory) ScoredQuestion {
			score := 0.0
			if h.incorrect > h.correct {
				score += 10 + 2*float64(h.incorrect-h.correct)
			}
			if difficulty[qid] == models.DifficultyHard {
				score += 5
			}
			if h.errorRate() > 50 {
				score += 5
			}
			stale := daysSince(h.lastAttempt, now)
			if stale > 10 {
				stale = 10
			}
			score += float64(stale)
			return ScoredQuestion{QuestionID: qid, Score: score, ErrorRate: h.errorRate()}
		},
		eligible: func(s ScoredQuestion, h questionHistory) bool {
			return s.Score > 0
		},
	}
}

// dailyConfig builds the persisted variant: 30-day attempt window (applied by
// the caller when loading attempts), exclusion of questions already selected
// by a recent daily review, weighted error-rate/recency score, and a minimum
// error rate for candidacy.
func dailyConfig(recentlySelected map[int64]bool, now time.Time, minErrorRate float64, cap int) rankConfig {
	return rankConfig{
		cap: cap,
		exclude: func(qid int64, h questionHistory) bool {
			return recentlySelected[qid]
		},
		score: func(qid int64, h questionHistory) ScoredQuestion {
			er := h.errorRate()
			recency := 100 - float64(daysSince(h.lastAttempt, now))*10
			if recency < 0 {
				recency = 0
			}
			return ScoredQuestion{
				QuestionID: qid,
				Score:      er*0.6 + recency*0.4,
				ErrorRate:  er,
				Recency:    recency,
			}
		},
		eligible: func(s ScoredQuestion, h questionHistory) bool {
			return s.ErrorRate > minErrorRate
		},
	}
}

// countEligible is the cheap estimate behind the smart-review badge. It is
// deliberately a reduced test (more wrong than right, or labeled hard), not
// the full scoring formula.
func countEligible(candidateIDs []int64, difficulty map[int64]string, history map[int64]questionHistory, now time.Time, exclusionDays int) int {
	cutoff := now.AddDate(0, 0, -exclusionDays)
	n := 0
	for _, qid := range candidateIDs {
		h, attempted := history[qid]
		if !attempted || h.lastAttempt.After(cutoff) {
			continue
		}
		if h.incorrect > h.correct || difficulty[qid] == models.DifficultyHard {
			n++
		}
	}
	return n
}
