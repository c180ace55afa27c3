package main

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
)

// validSexes is the set of accepted values for the sex profile field — also
// the single source of truth for validation in patchProfile. The energy
// model's regression constants are only defined for these.
var validSexes = map[string]bool{
	"male":   true,
	"female": true,
}

// getProfile returns the anthropometric profile and goal for the
// authenticated user.
// GET /api/profile.
func (h *Handler) getProfile(c *gin.Context) {
	userID := c.GetInt("user_id")

	p, err := queryOne[userProfile](h.db, c,
		"SELECT * FROM user_profiles WHERE user_id = @userID",
		pgx.NamedArgs{"userID": userID})
	if err != nil {
		apiError(c, http.StatusNotFound, "profile not found")
		return
	}

	c.JSON(http.StatusOK, p)
}

// patchProfile updates only the provided profile fields.
// PATCH /api/profile. Uses pointer fields in the request body to distinguish
// "not provided" from zero — only non-nil fields get updated.
func (h *Handler) patchProfile(c *gin.Context) {
	userID := c.GetInt("user_id")

	var body patchProfileRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	// Validate up front — a bad sex or date silently breaks every future
	// forecast with no visible error.
	if body.Sex != nil && !validSexes[*body.Sex] {
		apiError(c, http.StatusBadRequest, "sex must be one of: male, female")
		return
	}
	if body.DateOfBirth != nil {
		if _, err := time.Parse("2006-01-02", *body.DateOfBirth); err != nil {
			apiError(c, http.StatusBadRequest, "invalid date_of_birth, expected YYYY-MM-DD")
			return
		}
	}
	if body.TargetDate != nil {
		if _, err := time.Parse("2006-01-02", *body.TargetDate); err != nil {
			apiError(c, http.StatusBadRequest, "invalid target_date, expected YYYY-MM-DD")
			return
		}
	}
	if body.HeightCM != nil && (*body.HeightCM <= 0 || *body.HeightCM > 300) {
		apiError(c, http.StatusBadRequest, "height_cm must be between 0 and 300")
		return
	}
	if body.BodyFatPct != nil && (*body.BodyFatPct < 0.03 || *body.BodyFatPct > 0.60) {
		apiError(c, http.StatusBadRequest, "body_fat_pct must be a fraction between 0.03 and 0.60")
		return
	}
	if body.TargetWeightKg != nil && *body.TargetWeightKg <= 0 {
		apiError(c, http.StatusBadRequest, "target_weight_kg must be positive")
		return
	}

	// Build SET clause dynamically — only update fields the client actually sent
	setClauses := []string{}
	args := pgx.NamedArgs{"userID": userID}

	if body.Sex != nil {
		setClauses = append(setClauses, "sex = @sex")
		args["sex"] = *body.Sex
	}
	if body.DateOfBirth != nil {
		setClauses = append(setClauses, "date_of_birth = @dateOfBirth")
		args["dateOfBirth"] = *body.DateOfBirth
	}
	if body.HeightCM != nil {
		setClauses = append(setClauses, "height_cm = @heightCM")
		args["heightCM"] = *body.HeightCM
	}
	if body.BodyFatPct != nil {
		setClauses = append(setClauses, "body_fat_pct = @bodyFatPct")
		args["bodyFatPct"] = *body.BodyFatPct
	}
	if body.TargetWeightKg != nil {
		setClauses = append(setClauses, "target_weight_kg = @targetWeightKg")
		args["targetWeightKg"] = *body.TargetWeightKg
	}
	if body.TargetDate != nil {
		setClauses = append(setClauses, "target_date = @targetDate")
		args["targetDate"] = *body.TargetDate
	}
	if body.TargetRateKgWk != nil {
		setClauses = append(setClauses, "target_rate_kg_wk = @targetRateKgWk")
		args["targetRateKgWk"] = *body.TargetRateKgWk
	}
	if body.SetupComplete != nil {
		setClauses = append(setClauses, "setup_complete = @setupComplete")
		args["setupComplete"] = *body.SetupComplete
	}

	if len(setClauses) == 0 {
		apiError(c, http.StatusBadRequest, "no fields to update")
		return
	}

	query := "UPDATE user_profiles SET " +
		strings.Join(setClauses, ", ") +
		" WHERE user_id = @userID RETURNING *"

	p, err := queryOne[userProfile](h.db, c, query, args)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to update profile")
		return
	}

	c.JSON(http.StatusOK, p)
}

// simProfileFrom converts a stored userProfile into the simulator's input,
// reporting ErrInsufficientProfile when required anthropometrics are missing.
func simProfileFrom(p userProfile) (simProfile, error) {
	if p.Sex == nil || p.DateOfBirth == nil || p.HeightCM == nil {
		return simProfile{}, ErrInsufficientProfile
	}
	return simProfile{
		Sex:         *p.Sex,
		DateOfBirth: p.DateOfBirth.Time,
		HeightCM:    *p.HeightCM,
		BodyFatPct:  p.BodyFatPct,
	}, nil
}

// goalFrom extracts the declared goal from a profile, or nil when the user
// has not set one.
func goalFrom(p userProfile) *Goal {
	if p.TargetWeightKg == nil || p.TargetDate == nil {
		return nil
	}
	return &Goal{
		TargetWeightKg: *p.TargetWeightKg,
		TargetDate:     *p.TargetDate,
		TargetRateKgWk: p.TargetRateKgWk,
	}
}
