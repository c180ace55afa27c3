package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
)

// getMetricLog returns daily records for the authenticated user within [start, end].
// GET /api/metrics?start=YYYY-MM-DD&end=YYYY-MM-DD. Both params required.
// Returns an empty array (not null) if no records exist in the range.
func (h *Handler) getMetricLog(c *gin.Context) {
	userID := c.GetInt("user_id")
	start := c.Query("start")
	end := c.Query("end")

	if start == "" || end == "" {
		apiError(c, http.StatusBadRequest, "start and end query params are required")
		return
	}
	if _, err := time.Parse("2006-01-02", start); err != nil {
		apiError(c, http.StatusBadRequest, "invalid start, expected YYYY-MM-DD")
		return
	}
	if _, err := time.Parse("2006-01-02", end); err != nil {
		apiError(c, http.StatusBadRequest, "invalid end, expected YYYY-MM-DD")
		return
	}
	if start > end {
		apiError(c, http.StatusBadRequest, "start must not be after end")
		return
	}

	records, err := queryMany[dailyRecord](h.db, c,
		`SELECT * FROM metric_log
		 WHERE user_id = @userID AND date >= @start AND date <= @end
		 ORDER BY date ASC`,
		pgx.NamedArgs{"userID": userID, "start": start, "end": end})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch metric log")
		return
	}
	// Ensure empty array (not null) in JSON
	if records == nil {
		records = []dailyRecord{}
	}

	c.JSON(http.StatusOK, records)
}

// upsertMetricRecord creates or replaces the daily record for the given date.
// POST /api/metrics. The UNIQUE(user_id, date) constraint means posting the
// same date updates in place, which is how re-runs of the cleaning pipeline
// refresh a day.
func (h *Handler) upsertMetricRecord(c *gin.Context) {
	userID := c.GetInt("user_id")

	var body upsertRecordRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Date == "" {
		apiError(c, http.StatusBadRequest, "date is required")
		return
	}
	if _, err := time.Parse("2006-01-02", body.Date); err != nil {
		apiError(c, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}
	if body.WeightKg != nil && (*body.WeightKg <= 0 || *body.WeightKg > 500) {
		apiError(c, http.StatusBadRequest, "weight_kg must be between 0 and 500")
		return
	}
	if body.CaloriesIn < 0 || body.ActiveKcal < 0 {
		apiError(c, http.StatusBadRequest, "calories_in and active_kcal must be non-negative")
		return
	}

	record, err := queryOne[dailyRecord](h.db, c,
		`INSERT INTO metric_log (user_id, date, weight_kg, calories_in, active_kcal, steps, fat_mass_kg, lean_mass_kg)
		 VALUES (@userID, @date, @weightKg, @caloriesIn, @activeKcal, @steps, @fatMassKg, @leanMassKg)
		 ON CONFLICT (user_id, date) DO UPDATE SET
			weight_kg    = EXCLUDED.weight_kg,
			calories_in  = EXCLUDED.calories_in,
			active_kcal  = EXCLUDED.active_kcal,
			steps        = EXCLUDED.steps,
			fat_mass_kg  = EXCLUDED.fat_mass_kg,
			lean_mass_kg = EXCLUDED.lean_mass_kg,
			updated_at   = now()
		 RETURNING *`,
		pgx.NamedArgs{
			"userID": userID, "date": body.Date, "weightKg": body.WeightKg,
			"caloriesIn": body.CaloriesIn, "activeKcal": body.ActiveKcal,
			"steps": body.Steps, "fatMassKg": body.FatMassKg, "leanMassKg": body.LeanMassKg,
		})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to upsert record")
		return
	}

	c.JSON(http.StatusCreated, record)
}

// updateMetricRecord partially updates an existing daily record.
// PUT /api/metrics/:id. Uses COALESCE so omitted fields keep their current values.
func (h *Handler) updateMetricRecord(c *gin.Context) {
	userID := c.GetInt("user_id")
	id := c.Param("id")

	var body struct {
		WeightKg   *float64 `json:"weight_kg"`
		CaloriesIn *float64 `json:"calories_in"`
		ActiveKcal *float64 `json:"active_kcal"`
		Steps      *int     `json:"steps"`
		FatMassKg  *float64 `json:"fat_mass_kg"`
		LeanMassKg *float64 `json:"lean_mass_kg"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.WeightKg != nil && (*body.WeightKg <= 0 || *body.WeightKg > 500) {
		apiError(c, http.StatusBadRequest, "weight_kg must be between 0 and 500")
		return
	}

	record, err := queryOne[dailyRecord](h.db, c,
		`UPDATE metric_log SET
			weight_kg    = COALESCE(@weightKg, weight_kg),
			calories_in  = COALESCE(@caloriesIn, calories_in),
			active_kcal  = COALESCE(@activeKcal, active_kcal),
			steps        = COALESCE(@steps, steps),
			fat_mass_kg  = COALESCE(@fatMassKg, fat_mass_kg),
			lean_mass_kg = COALESCE(@leanMassKg, lean_mass_kg),
			updated_at   = now()
		 WHERE id = @id AND user_id = @userID
		 RETURNING *`,
		pgx.NamedArgs{
			"id": id, "userID": userID,
			"weightKg": body.WeightKg, "caloriesIn": body.CaloriesIn,
			"activeKcal": body.ActiveKcal, "steps": body.Steps,
			"fatMassKg": body.FatMassKg, "leanMassKg": body.LeanMassKg,
		})
	if err != nil {
		// Distinguish a missing row from a real DB failure so callers get an
		// actionable status code rather than a misleading 404.
		if errors.Is(err, pgx.ErrNoRows) {
			apiError(c, http.StatusNotFound, "record not found")
		} else {
			apiError(c, http.StatusInternalServerError, "failed to update record")
		}
		return
	}

	c.JSON(http.StatusOK, record)
}

// deleteMetricRecord removes a daily record by ID.
// DELETE /api/metrics/:id. Returns 204 on success, 404 if not found.
// Ownership is enforced by requiring both id and user_id to match.
func (h *Handler) deleteMetricRecord(c *gin.Context) {
	userID := c.GetInt("user_id")
	id := c.Param("id")

	result, err := h.db.Exec(c,
		"DELETE FROM metric_log WHERE id = @id AND user_id = @userID",
		pgx.NamedArgs{"id": id, "userID": userID})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to delete record")
		return
	}
	if result.RowsAffected() == 0 {
		apiError(c, http.StatusNotFound, "record not found")
		return
	}

	c.Status(http.StatusNoContent)
}
