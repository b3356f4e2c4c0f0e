package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/matryer/is"

	"github.com/neuroqbank/qbank_server/config"
	"github.com/neuroqbank/qbank_server/internal/auth"
	"github.com/neuroqbank/qbank_server/internal/stores/models"
)

type FakeNower struct{ fakenow time.Time }

func (f FakeNower) Now() time.Time {
	return f.fakenow
}

type fakeCardStore struct {
	cards  map[int64]models.Flashcard
	nextID int64
}

func newFakeCardStore() *fakeCardStore {
	return &fakeCardStore{cards: map[int64]models.Flashcard{}, nextID: 1}
}

func (f *fakeCardStore) InsertFlashcard(ctx context.Context, arg models.InsertFlashcardParams) (models.Flashcard, error) {
	card := models.Flashcard{
		ID:           f.nextID,
		UserID:       arg.UserID,
		Front:        arg.Front,
		Back:         arg.Back,
		EaseFactor:   arg.EaseFactor,
		IntervalDays: arg.IntervalDays,
		Repetitions:  arg.Repetitions,
		NextReviewAt: arg.NextReviewAt,
	}
	f.cards[f.nextID] = card
	f.nextID++
	return card, nil
}

func (f *fakeCardStore) GetFlashcard(ctx context.Context, arg models.GetFlashcardParams) (models.Flashcard, error) {
	card, ok := f.cards[arg.ID]
	if !ok || card.UserID != arg.UserID {
		return models.Flashcard{}, pgx.ErrNoRows
	}
	return card, nil
}

func (f *fakeCardStore) GetDueFlashcards(ctx context.Context, arg models.GetDueFlashcardsParams) ([]models.Flashcard, error) {
	var due []models.Flashcard
	for _, c := range f.cards {
		if c.UserID == arg.UserID && !c.NextReviewAt.Time.After(arg.Now.Time) {
			due = append(due, c)
		}
	}
	return due, nil
}

func (f *fakeCardStore) UpdateFlashcardScheduling(ctx context.Context, arg models.UpdateFlashcardSchedulingParams) (int64, error) {
	card, ok := f.cards[arg.ID]
	if !ok || card.UserID != arg.UserID {
		return 0, nil
	}
	card.EaseFactor = arg.EaseFactor
	card.IntervalDays = arg.IntervalDays
	card.Repetitions = arg.Repetitions
	card.NextReviewAt = arg.NextReviewAt
	f.cards[arg.ID] = card
	return 1, nil
}

func (f *fakeCardStore) GetDueBreakdown(ctx context.Context, arg models.GetDueBreakdownParams) ([]models.GetDueBreakdownRow, error) {
	counts := map[time.Time]int64{}
	var overdue int64
	for _, c := range f.cards {
		if c.UserID != arg.UserID {
			continue
		}
		if !c.NextReviewAt.Time.After(arg.Now.Time) {
			overdue++
			continue
		}
		day := c.NextReviewAt.Time.UTC().Truncate(24 * time.Hour)
		counts[day]++
	}
	var rows []models.GetDueBreakdownRow
	if overdue > 0 {
		rows = append(rows, models.GetDueBreakdownRow{
			ScheduledDate: pgtype.Date{InfinityModifier: pgtype.NegativeInfinity, Valid: true},
			CardCount:     overdue,
		})
	}
	for day, n := range counts {
		rows = append(rows, models.GetDueBreakdownRow{
			ScheduledDate: pgtype.Date{Time: day, Valid: true},
			CardCount:     n,
		})
	}
	return rows, nil
}

func (f *fakeCardStore) DeleteFlashcard(ctx context.Context, arg models.DeleteFlashcardParams) (int64, error) {
	card, ok := f.cards[arg.ID]
	if !ok || card.UserID != arg.UserID {
		return 0, nil
	}
	delete(f.cards, arg.ID)
	return 1, nil
}

// fakeTx hands the store straight to fn and counts invocations.
type fakeTx struct {
	store *fakeCardStore
	calls int
}

func (f *fakeTx) RunTx(ctx context.Context, fn func(store cardStore) error) error {
	f.calls++
	return fn(f.store)
}

var testConfig = &config.Config{
	MaxReviewQuestions:  20,
	DailyLookbackDays:   30,
	RecentExclusionDays: 3,
}

func ctxForTests() context.Context {
	return auth.StoreUserInContext(context.Background(), 42, "cesar")
}

func newTestServer(store *fakeCardStore, now time.Time) *Server {
	s := NewServer(testConfig, store, &fakeTx{store: store})
	s.Nower = FakeNower{fakenow: now}
	return s
}

func TestAddFlashcardDefaults(t *testing.T) {
	is := is.New(t)
	store := newFakeCardStore()
	s := newTestServer(store, testNow)

	card, err := s.AddFlashcard(ctxForTests(), "mesial temporal sclerosis", "most common cause of refractory TLE")
	is.NoErr(err)
	is.Equal(card.EaseFactor, 2.5)
	is.Equal(card.IntervalDays, int32(1))
	is.Equal(card.Repetitions, int32(0))
	is.Equal(card.NextReviewAt.Time, testNow) // new cards are due immediately
}

func TestReviewCardPersistsNewState(t *testing.T) {
	is := is.New(t)
	store := newFakeCardStore()
	s := newTestServer(store, testNow)
	ctx := ctxForTests()

	card, err := s.AddFlashcard(ctx, "front", "back")
	is.NoErr(err)

	state, err := s.ReviewCard(ctx, card.ID, QualityGood)
	is.NoErr(err)
	is.True(state != nil)
	is.Equal(state.Repetitions, 1)
	is.Equal(state.IntervalDays, 1)

	stored := store.cards[card.ID]
	is.Equal(stored.Repetitions, int32(1))
	is.Equal(stored.NextReviewAt.Time, testNow.AddDate(0, 0, 1))
}

func TestReviewCardMissingIsNoop(t *testing.T) {
	is := is.New(t)
	s := newTestServer(newFakeCardStore(), testNow)

	state, err := s.ReviewCard(ctxForTests(), 999, QualityGood)
	is.NoErr(err) // a missing card must not be an error
	is.True(state == nil)
}

func TestReviewCardScopedToUser(t *testing.T) {
	is := is.New(t)
	store := newFakeCardStore()
	s := newTestServer(store, testNow)

	card, err := s.AddFlashcard(ctxForTests(), "front", "back")
	is.NoErr(err)

	otherCtx := auth.StoreUserInContext(context.Background(), 43, "someone-else")
	state, err := s.ReviewCard(otherCtx, card.ID, QualityEasy)
	is.NoErr(err)
	is.True(state == nil)
	is.Equal(store.cards[card.ID].Repetitions, int32(0))
}

func TestReviewCardRunsInTransaction(t *testing.T) {
	is := is.New(t)
	store := newFakeCardStore()
	tx := &fakeTx{store: store}
	s := NewServer(testConfig, store, tx)
	s.Nower = FakeNower{fakenow: testNow}
	ctx := ctxForTests()

	card, err := s.AddFlashcard(ctx, "front", "back")
	is.NoErr(err)
	is.Equal(tx.calls, 0) // plain inserts don't need one

	_, err = s.ReviewCard(ctx, card.ID, QualityGood)
	is.NoErr(err)
	is.Equal(tx.calls, 1) // load and update share a transaction

	_, err = s.DueFlashcards(ctx, 10)
	is.NoErr(err)
	is.Equal(tx.calls, 1)
}

func TestReviewCardRequiresUser(t *testing.T) {
	is := is.New(t)
	s := newTestServer(newFakeCardStore(), testNow)

	_, err := s.ReviewCard(context.Background(), 1, QualityGood)
	is.Equal(err, auth.ErrNotAuthenticated)
}

func TestDueBreakdown(t *testing.T) {
	is := is.New(t)
	store := newFakeCardStore()
	s := newTestServer(store, testNow)
	ctx := ctxForTests()

	_, err := s.AddFlashcard(ctx, "a", "b")
	is.NoErr(err)
	_, err = s.AddFlashcard(ctx, "c", "d")
	is.NoErr(err)

	future := models.Flashcard{
		ID: 100, UserID: 42, EaseFactor: 2.5, IntervalDays: 3,
		NextReviewAt: pgtype.Timestamptz{Time: testNow.AddDate(0, 0, 3), Valid: true},
	}
	store.cards[100] = future

	breakdown, err := s.DueBreakdown(ctx, "")
	is.NoErr(err)
	is.Equal(breakdown["overdue"], uint32(2))
	is.Equal(breakdown[testNow.AddDate(0, 0, 3).UTC().Truncate(24*time.Hour).Format("2006-01-02")], uint32(1))
}
