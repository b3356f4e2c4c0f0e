package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"github.com/neuroqbank/qbank_server/config"
	"github.com/neuroqbank/qbank_server/internal/auth"
	"github.com/neuroqbank/qbank_server/internal/stores/cache"
	"github.com/neuroqbank/qbank_server/internal/stores/models"
)

// Advisory is a non-error terminal outcome. "Nothing to do" is a successful
// result with an explanatory payload, never an error; only store failures
// propagate as errors.
type Advisory int

const (
	AdvisoryNone Advisory = iota
	// AdvisoryNoHistory: the user has no attempt history to rank.
	AdvisoryNoHistory
	// AdvisoryNothingToReview: history exists but no question qualifies.
	AdvisoryNothingToReview
)

type nower interface {
	Now() time.Time
}

type RealNower struct{}

func (r RealNower) Now() time.Time {
	return time.Now()
}

// reviewStore is the slice of the queries layer this server touches.
type reviewStore interface {
	ListAttempts(ctx context.Context, userID int64) ([]models.Attempt, error)
	ListAttemptsSince(ctx context.Context, arg models.ListAttemptsSinceParams) ([]models.Attempt, error)
	GetQuestionsByIDs(ctx context.Context, arg models.GetQuestionsByIDsParams) ([]models.Question, error)
	GetDailyReview(ctx context.Context, arg models.GetDailyReviewParams) (models.DailyReview, error)
	InsertDailyReview(ctx context.Context, arg models.InsertDailyReviewParams) (models.DailyReview, error)
	RecentDailyReviewQuestionIDs(ctx context.Context, arg models.RecentDailyReviewQuestionIDsParams) ([]int64, error)
}

type Server struct {
	Config *config.Config
	Store  reviewStore
	Cache  *cache.Cache
	Nower  nower
}

func NewServer(cfg *config.Config, store reviewStore, c *cache.Cache) *Server {
	return &Server{cfg, store, c, RealNower{}}
}

// SmartItem pairs a ranked question with its score.
type SmartItem struct {
	Question models.Question `json:"question"`
	Score    float64         `json:"score"`
}

type SmartReviewResult struct {
	Items    []SmartItem
	Advisory Advisory
}

// SmartReview ranks the candidate questions by how much they need reviewing
// right now, using the user's full attempt history. Pure read; nothing is
// persisted.
func (s *Server) SmartReview(ctx context.Context, candidates []models.Question) (*SmartReviewResult, error) {
	user, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	now := s.Nower.Now()

	attempts, err := s.Store.ListAttempts(ctx, user.DBID)
	if err != nil {
		return nil, err
	}
	if len(attempts) == 0 {
		return &SmartReviewResult{Advisory: AdvisoryNoHistory}, nil
	}

	history := aggregateAttempts(attempts)
	ids, difficulty, byID := indexCandidates(candidates)
	cfg := smartConfig(difficulty, now, s.Config.RecentExclusionDays, s.Config.MaxReviewQuestions)
	scored := rank(ids, history, cfg)
	if len(scored) == 0 {
		return &SmartReviewResult{Advisory: AdvisoryNothingToReview}, nil
	}

	items := make([]SmartItem, len(scored))
	for i, sq := range scored {
		items[i] = SmartItem{Question: byID[sq.QuestionID], Score: sq.Score}
	}
	log.Ctx(ctx).Info().Int("candidates", len(candidates)).Int("selected", len(items)).
		Msg("smart-review-selected")
	return &SmartReviewResult{Items: items}, nil
}

// CountCacheKey is the cache key under which a user's smart review count is
// memoized, per candidate category filter. Writers of new attempts invalidate
// every variant via CountCachePrefix.
func CountCacheKey(userID int64, category string) string {
	return fmt.Sprintf("smartcount:%d:%s", userID, category)
}

// CountCachePrefix covers all of a user's cached counts regardless of filter.
func CountCachePrefix(userID int64) string {
	return fmt.Sprintf("smartcount:%d:", userID)
}

// SmartReviewCount estimates how many of the candidates qualify for a smart
// review. It is a cheaper eligibility test than the full scorer and is
// memoized with a short TTL since it backs a badge, not a selection. The
// category is whatever filter produced the candidates; it scopes the cache
// entry so differently filtered counts never collide.
func (s *Server) SmartReviewCount(ctx context.Context, candidates []models.Question, category string) (int, error) {
	user, err := auth.RequireUser(ctx)
	if err != nil {
		return 0, err
	}
	key := CountCacheKey(user.DBID, category)
	if s.Cache != nil {
		if v, ok := s.Cache.Get(ctx, key); ok {
			if n, ok := v.(int); ok {
				return n, nil
			}
		}
	}

	attempts, err := s.Store.ListAttempts(ctx, user.DBID)
	if err != nil {
		return 0, err
	}
	history := aggregateAttempts(attempts)
	ids, difficulty, _ := indexCandidates(candidates)
	n := countEligible(ids, difficulty, history, s.Nower.Now(), s.Config.RecentExclusionDays)

	if s.Cache != nil {
		s.Cache.SetWithTTL(ctx, key, n, time.Duration(s.Config.SmartCountCacheTTL)*time.Second)
	}
	return n, nil
}

type DailyReviewResult struct {
	ReviewID         int64
	QuestionCount    int
	Items            []ScoredQuestion
	Advisory         Advisory
	AlreadyGenerated bool
}

// GenerateDailyReview computes and persists today's prioritized question set.
// Idempotent: if a record already exists for (user, today) it is returned
// untouched. Only attempts from the lookback window count, and questions
// already selected by a daily review in the trailing exclusion window are
// skipped.
func (s *Server) GenerateDailyReview(ctx context.Context) (*DailyReviewResult, error) {
	user, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	now := s.Nower.Now()
	today := toPGDate(now)

	existing, err := s.Store.GetDailyReview(ctx, models.GetDailyReviewParams{
		UserID:     user.DBID,
		ReviewDate: today,
	})
	if err == nil {
		return &DailyReviewResult{
			ReviewID:         existing.ID,
			QuestionCount:    len(existing.QuestionIDs),
			AlreadyGenerated: true,
		}, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	attempts, err := s.Store.ListAttemptsSince(ctx, models.ListAttemptsSinceParams{
		UserID: user.DBID,
		Since:  toPGTimestamp(now.AddDate(0, 0, -s.Config.DailyLookbackDays)),
	})
	if err != nil {
		return nil, err
	}
	if len(attempts) == 0 {
		return &DailyReviewResult{Advisory: AdvisoryNoHistory}, nil
	}

	recentIDs, err := s.Store.RecentDailyReviewQuestionIDs(ctx, models.RecentDailyReviewQuestionIDsParams{
		UserID: user.DBID,
		Since:  toPGDate(now.AddDate(0, 0, -s.Config.RecentExclusionDays)),
	})
	if err != nil {
		return nil, err
	}
	recentlySelected := make(map[int64]bool, len(recentIDs))
	for _, id := range recentIDs {
		recentlySelected[id] = true
	}

	history := aggregateAttempts(attempts)
	candidateIDs := make([]int64, 0, len(history))
	for qid := range history {
		candidateIDs = append(candidateIDs, qid)
	}
	cfg := dailyConfig(recentlySelected, now, s.Config.MinDailyErrorRate, s.Config.MaxReviewQuestions)
	scored := rank(candidateIDs, history, cfg)
	if len(scored) == 0 {
		return &DailyReviewResult{Advisory: AdvisoryNothingToReview}, nil
	}

	questionIDs := make([]int64, len(scored))
	for i := range scored {
		questionIDs[i] = scored[i].QuestionID
	}
	inserted, err := s.Store.InsertDailyReview(ctx, models.InsertDailyReviewParams{
		UserID:      user.DBID,
		ReviewDate:  today,
		QuestionIDs: questionIDs,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Lost the insert race; the winning record is the answer.
			winner, err := s.Store.GetDailyReview(ctx, models.GetDailyReviewParams{
				UserID:     user.DBID,
				ReviewDate: today,
			})
			if err != nil {
				return nil, err
			}
			return &DailyReviewResult{
				ReviewID:         winner.ID,
				QuestionCount:    len(winner.QuestionIDs),
				AlreadyGenerated: true,
			}, nil
		}
		return nil, err
	}

	log.Ctx(ctx).Info().Int("selected", len(scored)).
		Str("review-date", now.UTC().Format("2006-01-02")).Msg("daily-review-generated")
	return &DailyReviewResult{
		ReviewID:      inserted.ID,
		QuestionCount: len(scored),
		Items:         scored,
	}, nil
}

// ReviewQuestions resolves today's persisted daily review into full question
// records, preserving the stored order. No record for today yields an empty
// list, not an error.
func (s *Server) ReviewQuestions(ctx context.Context) ([]models.Question, error) {
	user, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	rec, err := s.Store.GetDailyReview(ctx, models.GetDailyReviewParams{
		UserID:     user.DBID,
		ReviewDate: toPGDate(s.Nower.Now()),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []models.Question{}, nil
		}
		return nil, err
	}
	if len(rec.QuestionIDs) == 0 {
		return []models.Question{}, nil
	}
	questions, err := s.Store.GetQuestionsByIDs(ctx, models.GetQuestionsByIDsParams{
		UserID: user.DBID,
		IDs:    rec.QuestionIDs,
	})
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]models.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	ordered := make([]models.Question, 0, len(rec.QuestionIDs))
	for _, id := range rec.QuestionIDs {
		if q, ok := byID[id]; ok {
			ordered = append(ordered, q)
		}
	}
	return ordered, nil
}

func indexCandidates(candidates []models.Question) ([]int64, map[int64]string, map[int64]models.Question) {
	ids := make([]int64, len(candidates))
	difficulty := make(map[int64]string, len(candidates))
	byID := make(map[int64]models.Question, len(candidates))
	for i, q := range candidates {
		ids[i] = q.ID
		difficulty[q.ID] = q.Difficulty
		byID[q.ID] = q
	}
	return ids, difficulty, byID
}
