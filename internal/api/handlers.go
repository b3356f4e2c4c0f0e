// Package api exposes the question bank, scheduler and review services over
// a JSON HTTP API.
package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/neuroqbank/qbank_server/config"
	"github.com/neuroqbank/qbank_server/internal/auth"
	"github.com/neuroqbank/qbank_server/internal/qbank"
	"github.com/neuroqbank/qbank_server/internal/review"
	"github.com/neuroqbank/qbank_server/internal/scheduler"
	"github.com/neuroqbank/qbank_server/internal/stores/models"
)

const (
	msgNoHistory       = "answer some questions first to build a review"
	msgNothingToReview = "congratulations, nothing needs review right now"
)

type Handler struct {
	Config    *config.Config
	Scheduler *scheduler.Server
	Review    *review.Server
	QBank     *qbank.Server
}

// Register wires routes and middleware into the echo instance.
func (h *Handler) Register(e *echo.Echo) {
	g := e.Group("/api",
		RequestLogger(),
		JWTAuth([]byte(h.Config.SecretKey), h.Config.JWTIssuer))

	g.POST("/flashcards", h.addFlashcard)
	g.GET("/flashcards/due", h.dueFlashcards)
	g.GET("/flashcards/counts", h.dueBreakdown)
	g.POST("/flashcards/:id/review", h.reviewFlashcard)
	g.DELETE("/flashcards/:id", h.deleteFlashcard)

	g.POST("/questions", h.addQuestion)
	g.GET("/questions", h.listQuestions)
	g.POST("/attempts", h.recordAttempt)
	g.GET("/stats", h.stats)

	g.GET("/review/smart", h.smartReview)
	g.GET("/review/smart/count", h.smartReviewCount)
	g.POST("/review/daily", h.generateDailyReview)
	g.GET("/review/daily/questions", h.dailyReviewQuestions)
}

// httpError maps service errors onto HTTP statuses.
func httpError(err error) error {
	if errors.Is(err, auth.ErrNotAuthenticated) {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	return err
}

type flashcardJSON struct {
	ID           int64     `json:"id"`
	Front        string    `json:"front"`
	Back         string    `json:"back"`
	EaseFactor   float64   `json:"ease_factor"`
	IntervalDays int32     `json:"interval_days"`
	Repetitions  int32     `json:"repetitions"`
	NextReviewAt time.Time `json:"next_review_at"`
}

func toFlashcardJSON(f models.Flashcard) flashcardJSON {
	return flashcardJSON{
		ID:           f.ID,
		Front:        f.Front,
		Back:         f.Back,
		EaseFactor:   f.EaseFactor,
		IntervalDays: f.IntervalDays,
		Repetitions:  f.Repetitions,
		NextReviewAt: f.NextReviewAt.Time,
	}
}

type questionJSON struct {
	ID            int64    `json:"id"`
	QuestionText  string   `json:"question_text"`
	Options       []string `json:"options"`
	CorrectOption int32    `json:"correct_option"`
	Category      string   `json:"category"`
	Difficulty    string   `json:"difficulty"`
}

func toQuestionJSON(q models.Question) questionJSON {
	return questionJSON{
		ID:            q.ID,
		QuestionText:  q.QuestionText,
		Options:       q.Options,
		CorrectOption: q.CorrectOption,
		Category:      q.Category,
		Difficulty:    q.Difficulty,
	}
}

func toQuestionsJSON(qs []models.Question) []questionJSON {
	out := make([]questionJSON, len(qs))
	for i := range qs {
		out[i] = toQuestionJSON(qs[i])
	}
	return out
}

func (h *Handler) addFlashcard(c echo.Context) error {
	var req struct {
		Front string `json:"front"`
		Back  string `json:"back"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Front == "" || req.Back == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "front and back are required")
	}
	f, err := h.Scheduler.AddFlashcard(c.Request().Context(), req.Front, req.Back)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, toFlashcardJSON(f))
}

func (h *Handler) dueFlashcards(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	cards, err := h.Scheduler.DueFlashcards(c.Request().Context(), limit)
	if err != nil {
		return httpError(err)
	}
	out := make([]flashcardJSON, len(cards))
	for i := range cards {
		out[i] = toFlashcardJSON(cards[i])
	}
	return c.JSON(http.StatusOK, echo.Map{"cards": out})
}

func (h *Handler) dueBreakdown(c echo.Context) error {
	breakdown, err := h.Scheduler.DueBreakdown(c.Request().Context(), c.QueryParam("tz"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"breakdown": breakdown})
}

func (h *Handler) reviewFlashcard(c echo.Context) error {
	cardID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid card id")
	}
	var req struct {
		Quality string `json:"quality"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	q, err := scheduler.ParseQuality(req.Quality)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	state, err := h.Scheduler.ReviewCard(c.Request().Context(), cardID, q)
	if err != nil {
		return httpError(err)
	}
	if state == nil {
		// Unknown card is a no-op, not an error.
		return c.JSON(http.StatusOK, echo.Map{"updated": false})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"updated":        true,
		"ease_factor":    state.EaseFactor,
		"interval_days":  state.IntervalDays,
		"repetitions":    state.Repetitions,
		"next_review_at": state.NextReviewAt,
	})
}

func (h *Handler) deleteFlashcard(c echo.Context) error {
	cardID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid card id")
	}
	n, err := h.Scheduler.DeleteFlashcard(c.Request().Context(), cardID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"num_deleted": n})
}

func (h *Handler) addQuestion(c echo.Context) error {
	var req struct {
		QuestionText  string   `json:"question_text"`
		Options       []string `json:"options"`
		CorrectOption int      `json:"correct_option"`
		Category      string   `json:"category"`
		Difficulty    string   `json:"difficulty"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	q, err := h.QBank.AddQuestion(c.Request().Context(), qbank.AddQuestionArgs{
		QuestionText:  req.QuestionText,
		Options:       req.Options,
		CorrectOption: req.CorrectOption,
		Category:      req.Category,
		Difficulty:    req.Difficulty,
	})
	if err != nil {
		if errors.Is(err, auth.ErrNotAuthenticated) {
			return httpError(err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, toQuestionJSON(q))
}

func (h *Handler) listQuestions(c echo.Context) error {
	qs, err := h.QBank.Questions(c.Request().Context(),
		c.QueryParam("category"), c.QueryParam("difficulty"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"questions": toQuestionsJSON(qs)})
}

func (h *Handler) recordAttempt(c echo.Context) error {
	var req struct {
		QuestionID    int64 `json:"question_id"`
		IsCorrect     bool  `json:"is_correct"`
		AttemptTimeMs int   `json:"attempt_time_ms"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.QuestionID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "question_id is required")
	}
	a, err := h.QBank.RecordAttempt(c.Request().Context(), req.QuestionID, req.IsCorrect, req.AttemptTimeMs)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": a.ID})
}

func (h *Handler) stats(c echo.Context) error {
	stats, err := h.QBank.Stats(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"categories": stats})
}

func (h *Handler) smartReview(c echo.Context) error {
	ctx := c.Request().Context()
	candidates, err := h.QBank.Questions(ctx, c.QueryParam("category"), "")
	if err != nil {
		return httpError(err)
	}
	res, err := h.Review.SmartReview(ctx, candidates)
	if err != nil {
		return httpError(err)
	}
	switch res.Advisory {
	case review.AdvisoryNoHistory:
		return c.JSON(http.StatusOK, echo.Map{"questions": []questionJSON{}, "message": msgNoHistory})
	case review.AdvisoryNothingToReview:
		return c.JSON(http.StatusOK, echo.Map{"questions": []questionJSON{}, "message": msgNothingToReview})
	}
	type itemJSON struct {
		Question questionJSON `json:"question"`
		Score    float64      `json:"score"`
	}
	items := make([]itemJSON, len(res.Items))
	for i, it := range res.Items {
		items[i] = itemJSON{Question: toQuestionJSON(it.Question), Score: it.Score}
	}
	return c.JSON(http.StatusOK, echo.Map{"questions": items})
}

func (h *Handler) smartReviewCount(c echo.Context) error {
	ctx := c.Request().Context()
	category := c.QueryParam("category")
	candidates, err := h.QBank.Questions(ctx, category, "")
	if err != nil {
		return httpError(err)
	}
	n, err := h.Review.SmartReviewCount(ctx, candidates, category)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"count": n})
}

func (h *Handler) generateDailyReview(c echo.Context) error {
	res, err := h.Review.GenerateDailyReview(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	switch res.Advisory {
	case review.AdvisoryNoHistory:
		return c.JSON(http.StatusBadRequest, echo.Map{"message": msgNoHistory})
	case review.AdvisoryNothingToReview:
		return c.JSON(http.StatusOK, echo.Map{"success": true, "question_count": 0, "message": msgNothingToReview})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":        true,
		"review_id":      res.ReviewID,
		"question_count": res.QuestionCount,
		"questions":      res.Items,
	})
}

func (h *Handler) dailyReviewQuestions(c echo.Context) error {
	qs, err := h.Review.ReviewQuestions(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"questions": toQuestionsJSON(qs)})
}
