package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
)

/* ─── Request / Response types ───────────────────────────────────────── */

// inlineProfile lets POST /api/forecast run without a stored profile row —
// the caller (e.g. the cleaning pipeline's session runner) supplies the
// anthropometrics alongside the records.
type inlineProfile struct {
	Sex         string   `json:"sex"`
	DateOfBirth string   `json:"date_of_birth"` // YYYY-MM-DD
	HeightCM    float64  `json:"height_cm"`
	BodyFatPct  *float64 `json:"body_fat_pct"`
}

// forecastRequest is the request body for POST /api/forecast. Records are
// the cleaned daily series, ascending by date. Exactly one of horizon_days
// or offsets selects the output shape.
type forecastRequest struct {
	Records     []dailyRecord  `json:"records"`
	Profile     *inlineProfile `json:"profile"`
	Goal        *Goal          `json:"goal"`
	HorizonDays int            `json:"horizon_days"`
	Offsets     []int          `json:"offsets"`
}

// forecastResponse bundles the three core outputs: the trajectory, the goal
// evaluation (nil when no goal was supplied), and the watchdog verdict.
type forecastResponse struct {
	Points       []ForecastPoint `json:"points"`
	FloorReached bool            `json:"floor_reached"`
	Plan         Plan            `json:"plan"`
	StartDate    DateOnly        `json:"start_date"`
	StartWeight  float64         `json:"start_weight_kg"`
	Goal         *GoalEvaluation `json:"goal_evaluation,omitempty"`
	Verdict      Verdict         `json:"verdict"`
}

/* ─── Core pipeline ──────────────────────────────────────────────────── */

// planWindowDays is how many trailing records set the forward plan's daily
// intake and activity.
const planWindowDays = 30

// ErrInvalidSeries rejects record series that violate the ordering invariant
// the whole pipeline assumes.
var ErrInvalidSeries = errors.New("invalid record series")

// runForecast is the full pipeline: records → plan → adaptive simulation →
// goal evaluation → watchdog verdict. Pure computation over the inputs; all
// I/O stays in the handlers.
func (h *Handler) runForecast(ctx context.Context, records []dailyRecord, profile simProfile, goal *Goal, horizon Horizon, now time.Time) (forecastResponse, error) {
	if err := validateSeries(records); err != nil {
		return forecastResponse{}, err
	}
	startWeight, ok := latestWeight(records)
	if !ok {
		return forecastResponse{}, fmt.Errorf("%w: no weight readings in the record series", ErrInsufficientProfile)
	}
	startDate := records[len(records)-1].Date.Time
	plan := planFromRecords(records, planWindowDays)

	var predictor PointPredictor
	if h.predictorBaseURL != "" {
		predictor = newRemotePredictor(h.predictorBaseURL)
	}
	sim := newSimulator(h.sim, profile, predictor)

	res, err := sim.Simulate(ctx, newMetabolicState(startWeight), startDate, plan, horizon)
	if err != nil {
		return forecastResponse{}, err
	}

	resp := forecastResponse{
		Points:       res.Points,
		FloorReached: res.FloorReached,
		Plan:         plan,
		StartDate:    DateOnly{startDate},
		StartWeight:  startWeight,
	}

	// Baseline compliance from the goal evaluation; the watchdog may only
	// hold or escalate it, never soften it.
	baseline := ComplianceOnTrack
	var evalPtr *GoalEvaluation
	if goal != nil {
		eval, err := newGoalEvaluator(h.sim, h.safety, profile).Evaluate(res, startDate, startWeight, plan, *goal)
		if err != nil {
			return forecastResponse{}, err
		}
		evalPtr = &eval
		resp.Goal = evalPtr
		if !eval.OnPace {
			baseline = ComplianceAtRisk
		}
	}

	facts := buildFacts(records, profile, evalPtr, h.safety.SafeWeeklyLossPctBW*startWeight, now)
	resp.Verdict = h.rules.Evaluate(facts, baseline)
	return resp, nil
}

// validateSeries enforces the record-series invariant: non-empty, ascending
// by date, one row per day.
func validateSeries(records []dailyRecord) error {
	if len(records) == 0 {
		return fmt.Errorf("%w: records are required", ErrInvalidSeries)
	}
	for i := 1; i < len(records); i++ {
		if !records[i].Date.Time.After(records[i-1].Date.Time) {
			return fmt.Errorf("%w: records must be sorted ascending by unique date (violation at index %d)", ErrInvalidSeries, i)
		}
	}
	return nil
}

/* ─── Handlers ───────────────────────────────────────────────────────── */

// postForecast runs the forecast pipeline on records supplied inline.
// POST /api/forecast. No database access — the cleaned series, profile, and
// goal all ride in the request body (profile falls back to the stored row
// when omitted and a DB is available).
func (h *Handler) postForecast(c *gin.Context) {
	var body forecastRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	profile, err := h.resolveProfile(c, body.Profile)
	if err != nil {
		apiError(c, http.StatusUnprocessableEntity, "profile is incomplete: sex, date_of_birth, and height_cm are required")
		return
	}

	horizon, err := horizonFrom(body.HorizonDays, body.Offsets)
	if err != nil {
		apiError(c, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.runForecast(c.Request.Context(), body.Records, profile, body.Goal, horizon, time.Now().UTC())
	if err != nil {
		h.forecastError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// getForecast runs the forecast pipeline on the user's stored records,
// profile, and goal.
// GET /api/forecast?days=N or ?offsets=7,14,30,90 (defaults to 90 days).
func (h *Handler) getForecast(c *gin.Context) {
	userID := c.GetInt("user_id")

	p, err := queryOne[userProfile](h.db, c,
		"SELECT * FROM user_profiles WHERE user_id = @userID",
		pgx.NamedArgs{"userID": userID})
	if err != nil {
		apiError(c, http.StatusNotFound, "profile not found")
		return
	}
	profile, err := simProfileFrom(p)
	if err != nil {
		apiError(c, http.StatusUnprocessableEntity, "profile is incomplete: sex, date_of_birth, and height_cm are required")
		return
	}

	records, err := queryMany[dailyRecord](h.db, c,
		`SELECT * FROM metric_log WHERE user_id = @userID ORDER BY date ASC`,
		pgx.NamedArgs{"userID": userID})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch metric log")
		return
	}

	horizon, err := horizonFromQuery(c.Query("days"), c.Query("offsets"))
	if err != nil {
		apiError(c, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.runForecast(c.Request.Context(), records, profile, goalFrom(p), horizon, time.Now().UTC())
	if err != nil {
		h.forecastError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// resolveProfile prefers the inline profile, falling back to the stored row.
func (h *Handler) resolveProfile(c *gin.Context, inline *inlineProfile) (simProfile, error) {
	if inline != nil {
		dob, err := time.Parse("2006-01-02", inline.DateOfBirth)
		if err != nil {
			return simProfile{}, ErrInsufficientProfile
		}
		if !validSexes[inline.Sex] || inline.HeightCM <= 0 {
			return simProfile{}, ErrInsufficientProfile
		}
		return simProfile{
			Sex:         inline.Sex,
			DateOfBirth: dob,
			HeightCM:    inline.HeightCM,
			BodyFatPct:  inline.BodyFatPct,
		}, nil
	}
	if h.db == nil {
		return simProfile{}, ErrInsufficientProfile
	}
	p, err := queryOne[userProfile](h.db, c,
		"SELECT * FROM user_profiles WHERE user_id = @userID",
		pgx.NamedArgs{"userID": c.GetInt("user_id")})
	if err != nil {
		return simProfile{}, ErrInsufficientProfile
	}
	return simProfileFrom(p)
}

// forecastError maps pipeline errors onto HTTP statuses: validation problems
// are the caller's (400/422), anything else is ours (500).
func (h *Handler) forecastError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrMalformedGoal), errors.Is(err, ErrInvalidHorizon), errors.Is(err, ErrInvalidSeries):
		apiError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrInsufficientProfile):
		apiError(c, http.StatusUnprocessableEntity, err.Error())
	default:
		log.Printf("[forecast] pipeline error: %v", err)
		apiError(c, http.StatusInternalServerError, "forecast failed")
	}
}

// horizonFrom builds a Horizon from a day count or explicit offsets.
// Offsets win when both are present; neither defaults to 90 days.
func horizonFrom(days int, offsets []int) (Horizon, error) {
	if len(offsets) > 0 {
		return HorizonOffsets(offsets...), nil
	}
	if days > 0 {
		return HorizonDays(days), nil
	}
	return HorizonDays(90), nil
}

// horizonFromQuery parses the GET variant: ?days=N or ?offsets=7,14,30.
func horizonFromQuery(daysStr, offsetsStr string) (Horizon, error) {
	if offsetsStr != "" {
		parts := strings.Split(offsetsStr, ",")
		offsets := make([]int, 0, len(parts))
		for _, p := range parts {
			n, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil {
				return Horizon{}, fmt.Errorf("invalid offsets, expected comma-separated day numbers")
			}
			offsets = append(offsets, n)
		}
		return HorizonOffsets(offsets...), nil
	}
	if daysStr != "" {
		n, err := strconv.Atoi(daysStr)
		if err != nil {
			return Horizon{}, fmt.Errorf("invalid days, expected an integer")
		}
		return HorizonDays(n), nil
	}
	return HorizonDays(90), nil
}
