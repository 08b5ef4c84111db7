package service

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"

	apperrors "focusflow/backend/internal/errors"
	"focusflow/backend/internal/repository"
	"focusflow/backend/internal/session"
	"focusflow/backend/internal/stats"
)

// StatsService answers the analytics endpoints. All aggregation is done by
// the pure functions in the stats package over record snapshots; this layer
// only parses the query, picks the window and fetches the records.
type StatsService struct {
	records   *repository.RecordStore
	clk       clock.Clock
	defaultTZ *time.Location
}

// StreaksView pairs the two streak figures the client shows together.
type StreaksView struct {
	Current int `json:"current"`
	Longest int `json:"longest"`
}

func NewStatsService(records *repository.RecordStore, clk clock.Clock, defaultTZ *time.Location) *StatsService {
	if defaultTZ == nil {
		defaultTZ = time.UTC
	}
	return &StatsService{records: records, clk: clk, defaultTZ: defaultTZ}
}

// Weekly summarizes the seven calendar days ending at the reference date.
func (s *StatsService) Weekly(ctx context.Context, userID, dateStr, tzStr string) (*stats.Summary, *apperrors.APIError) {
	ref, loc, apiErr := s.resolveQuery(dateStr, tzStr)
	if apiErr != nil {
		return nil, apiErr
	}

	day := startOfDay(ref, loc)
	records, err := s.records.ListSessionRecordsRange(ctx, userID, day.AddDate(0, 0, -6), day.AddDate(0, 0, 1))
	if err != nil {
		return nil, apperrors.Internal("failed to get records")
	}

	summary := stats.Weekly(records, ref, loc)
	return &summary, nil
}

// Monthly summarizes the calendar month holding the reference date.
func (s *StatsService) Monthly(ctx context.Context, userID, dateStr, tzStr string) (*stats.Summary, *apperrors.APIError) {
	ref, loc, apiErr := s.resolveQuery(dateStr, tzStr)
	if apiErr != nil {
		return nil, apiErr
	}

	first := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, loc)
	records, err := s.records.ListSessionRecordsRange(ctx, userID, first, first.AddDate(0, 1, 0))
	if err != nil {
		return nil, apperrors.Internal("failed to get records")
	}

	summary := stats.Monthly(records, ref, loc)
	return &summary, nil
}

// TypeStats reports completion odds for one session type.
func (s *StatsService) TypeStats(ctx context.Context, userID, typeStr string) (*stats.TypeSuccess, *apperrors.APIError) {
	t := session.Type(typeStr)
	if !t.Valid() {
		return nil, apperrors.BadRequest("invalid_session_type", "unknown session type")
	}

	records, err := s.records.ListSessionRecordsByType(ctx, userID, t)
	if err != nil {
		return nil, apperrors.Internal("failed to get records")
	}

	success := stats.SuccessRateByType(records, t)
	return &success, nil
}

// Streaks reports the trailing and the longest run of consecutive completed
// days, counted in the requested timezone.
func (s *StatsService) Streaks(ctx context.Context, userID, tzStr string) (*StreaksView, *apperrors.APIError) {
	_, loc, apiErr := s.resolveQuery("", tzStr)
	if apiErr != nil {
		return nil, apiErr
	}

	records, err := s.records.AllSessionRecords(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("failed to get records")
	}

	return &StreaksView{
		Current: stats.CurrentStreak(records, loc),
		Longest: stats.LongestStreak(records, loc),
	}, nil
}

// PeakHour reports the local hour of day with the best average focus rating.
func (s *StatsService) PeakHour(ctx context.Context, userID, tzStr string) (*stats.HourQuality, *apperrors.APIError) {
	_, loc, apiErr := s.resolveQuery("", tzStr)
	if apiErr != nil {
		return nil, apiErr
	}

	records, err := s.records.AllSessionRecords(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("failed to get records")
	}

	peak := stats.PeakProductivityHour(records, loc)
	return &peak, nil
}

// Recommendation suggests the session type with the best completion history.
func (s *StatsService) Recommendation(ctx context.Context, userID string) (*stats.Recommendation, *apperrors.APIError) {
	records, err := s.records.AllSessionRecords(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("failed to get records")
	}

	rec := stats.Recommend(records)
	return &rec, nil
}

// resolveQuery turns the optional date and tz query parameters into a
// reference time and location, defaulting to today in the server's configured
// timezone.
func (s *StatsService) resolveQuery(dateStr, tzStr string) (time.Time, *time.Location, *apperrors.APIError) {
	loc := s.defaultTZ
	if tzStr != "" {
		parsed, err := time.LoadLocation(tzStr)
		if err != nil {
			return time.Time{}, nil, apperrors.BadRequest("invalid_timezone", "tz must be an IANA timezone name")
		}
		loc = parsed
	}

	ref := s.clk.Now().In(loc)
	if dateStr != "" {
		parsed, err := time.ParseInLocation("2006-01-02", dateStr, loc)
		if err != nil {
			return time.Time{}, nil, apperrors.BadRequest("invalid_date", "date must be YYYY-MM-DD")
		}
		ref = parsed
	}
	return ref, loc, nil
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}
