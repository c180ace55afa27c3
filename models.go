package main

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// DateOnly wraps time.Time to serialize as "YYYY-MM-DD" in JSON.
type DateOnly struct{ time.Time }

func (d DateOnly) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Time.Format("2006-01-02") + `"`), nil
}

func (d *DateOnly) UnmarshalJSON(b []byte) error {
	t, err := time.Parse(`"2006-01-02"`, string(b))
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// ScanDate implements pgtype.DateScanner so pgx can scan PostgreSQL date
// columns (OID 1082) into DateOnly. NULL values zero the time and return nil
// so that *DateOnly pointer fields can be set to nil by pgx's NULL handling.
func (d *DateOnly) ScanDate(v pgtype.Date) error {
	if !v.Valid {
		d.Time = time.Time{}
		return nil
	}
	d.Time = v.Time
	return nil
}

/* ─── Domain structs ─────────────────────────────────────────────────── */

// user maps to the users table. AuthToken and Password are hidden from JSON responses.
type user struct {
	ID        int        `json:"id" db:"id"`
	Username  string     `json:"username" db:"username"`
	Email     string     `json:"email" db:"email"`
	AuthToken string     `json:"-" db:"auth_token"`
	Password  string     `json:"-" db:"password"`
	CreatedAt *time.Time `json:"created_at" db:"created_at"`
}

// dailyRecord maps to metric_log: one row per user per day of cleaned health
// metrics. Weight and body-composition fields use pointers because a scale
// reading may be missing on any given day; energy fields default to zero.
// UNIQUE(user_id, date) keeps the series one row per day.
type dailyRecord struct {
	ID         int        `json:"id" db:"id"`
	UserID     int        `json:"user_id" db:"user_id"`
	Date       DateOnly   `json:"date" db:"date"`
	WeightKg   *float64   `json:"weight_kg" db:"weight_kg"`
	CaloriesIn float64    `json:"calories_in" db:"calories_in"`
	ActiveKcal float64    `json:"active_kcal" db:"active_kcal"`
	Steps      *int       `json:"steps" db:"steps"`
	FatMassKg  *float64   `json:"fat_mass_kg" db:"fat_mass_kg"`
	LeanMassKg *float64   `json:"lean_mass_kg" db:"lean_mass_kg"`
	CreatedAt  *time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at" db:"updated_at"`
}

// userProfile maps to user_profiles. One row per user with the anthropometric
// fields the energy model needs plus the declared goal. Profile fields are
// nullable so a freshly created row still scans; the forecast endpoints reject
// incomplete profiles with a clear error instead of computing garbage.
type userProfile struct {
	UserID         int       `json:"user_id" db:"user_id"`
	Sex            *string   `json:"sex" db:"sex"`
	DateOfBirth    *DateOnly `json:"date_of_birth" db:"date_of_birth"`
	HeightCM       *float64  `json:"height_cm" db:"height_cm"`
	BodyFatPct     *float64  `json:"body_fat_pct" db:"body_fat_pct"`
	TargetWeightKg *float64  `json:"target_weight_kg" db:"target_weight_kg"`
	TargetDate     *DateOnly `json:"target_date" db:"target_date"`
	TargetRateKgWk *float64  `json:"target_rate_kg_wk" db:"target_rate_kg_wk"`
	SetupComplete  bool      `json:"setup_complete" db:"setup_complete"`
}

/* ─── Request bodies ─────────────────────────────────────────────────── */

// upsertRecordRequest is the request body for POST /api/metrics.
type upsertRecordRequest struct {
	Date       string   `json:"date"`
	WeightKg   *float64 `json:"weight_kg"`
	CaloriesIn float64  `json:"calories_in"`
	ActiveKcal float64  `json:"active_kcal"`
	Steps      *int     `json:"steps"`
	FatMassKg  *float64 `json:"fat_mass_kg"`
	LeanMassKg *float64 `json:"lean_mass_kg"`
}

// patchProfileRequest is the request body for PATCH /api/profile.
// All fields are pointers — only non-nil fields get written to the database.
type patchProfileRequest struct {
	Sex            *string  `json:"sex"`
	DateOfBirth    *string  `json:"date_of_birth"` // YYYY-MM-DD string, stored as date
	HeightCM       *float64 `json:"height_cm"`
	BodyFatPct     *float64 `json:"body_fat_pct"`
	TargetWeightKg *float64 `json:"target_weight_kg"`
	TargetDate     *string  `json:"target_date"` // YYYY-MM-DD string, stored as date
	TargetRateKgWk *float64 `json:"target_rate_kg_wk"`
	SetupComplete  *bool    `json:"setup_complete"`
}
