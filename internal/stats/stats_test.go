package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"focusflow/backend/internal/session"
)

func completedAt(t session.Type, ts time.Time, durationSeconds int, quality *int) session.Record {
	return session.Record{
		ID:              ts.Format(time.RFC3339Nano),
		Type:            t,
		DurationSeconds: durationSeconds,
		Completed:       true,
		FocusQuality:    quality,
		Timestamp:       ts,
	}
}

func cancelledAt(t session.Type, ts time.Time, durationSeconds int) session.Record {
	return session.Record{
		ID:              ts.Format(time.RFC3339Nano),
		Type:            t,
		DurationSeconds: durationSeconds,
		Timestamp:       ts,
	}
}

func quality(q int) *int { return &q }

// marchDay returns 10:00 UTC on the given day of March 2025.
func marchDay(day int) time.Time {
	return time.Date(2025, 3, day, 10, 0, 0, 0, time.UTC)
}

func TestStreaks(t *testing.T) {
	records := []session.Record{
		completedAt(session.TypeClassic, marchDay(1), 1500, nil),
		completedAt(session.TypeClassic, marchDay(2), 1500, nil),
		completedAt(session.TypeDeepFocus, marchDay(2), 3000, nil),
		completedAt(session.TypeClassic, marchDay(3), 1500, nil),
		cancelledAt(session.TypeClassic, marchDay(4), 200),
		completedAt(session.TypeQuickTask, marchDay(5), 600, nil),
		completedAt(session.TypeClassic, marchDay(6), 1500, nil),
	}

	assert.Equal(t, 2, CurrentStreak(records, time.UTC))
	assert.Equal(t, 3, LongestStreak(records, time.UTC))
}

func TestStreaksEdgeCases(t *testing.T) {
	assert.Equal(t, 0, CurrentStreak(nil, time.UTC))
	assert.Equal(t, 0, LongestStreak(nil, time.UTC))

	// Cancelled sessions never hold a day.
	cancelled := []session.Record{cancelledAt(session.TypeClassic, marchDay(1), 100)}
	assert.Equal(t, 0, CurrentStreak(cancelled, time.UTC))

	single := []session.Record{completedAt(session.TypeClassic, marchDay(1), 1500, nil)}
	assert.Equal(t, 1, CurrentStreak(single, time.UTC))
	assert.Equal(t, 1, LongestStreak(single, time.UTC))
}

func TestStreaksUseLocalCalendarDays(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	records := []session.Record{
		completedAt(session.TypeClassic, time.Date(2025, 3, 10, 23, 30, 0, 0, est), 1500, nil),
		completedAt(session.TypeClassic, time.Date(2025, 3, 11, 0, 30, 0, 0, est), 1500, nil),
	}

	// Locally these land on two consecutive days; in UTC both fall on
	// March 11.
	assert.Equal(t, 2, CurrentStreak(records, est))
	assert.Equal(t, 1, CurrentStreak(records, time.UTC))
}

func TestSuccessRateByType(t *testing.T) {
	records := []session.Record{
		completedAt(session.TypeClassic, marchDay(1), 1500, nil),
		completedAt(session.TypeClassic, marchDay(2), 1500, nil),
		completedAt(session.TypeClassic, marchDay(3), 1500, nil),
		cancelledAt(session.TypeClassic, marchDay(4), 300),
		cancelledAt(session.TypeClassic, marchDay(5), 120),
		completedAt(session.TypeDeepFocus, marchDay(5), 3000, nil),
	}

	s := SuccessRateByType(records, session.TypeClassic)
	assert.Equal(t, 5, s.TotalSessions)
	assert.Equal(t, 3, s.CompletedSessions)
	assert.InDelta(t, 0.6, s.SuccessRate, 1e-9)

	empty := SuccessRateByType(records, session.TypeQuickTask)
	assert.Equal(t, 0, empty.TotalSessions)
	assert.Equal(t, 0.0, empty.SuccessRate)
}

func TestWeekly(t *testing.T) {
	ref := marchDay(10)
	records := []session.Record{
		completedAt(session.TypeClassic, marchDay(3), 1500, quality(9)),  // outside the window
		completedAt(session.TypeClassic, marchDay(4), 1500, quality(8)),  // first day of the window
		cancelledAt(session.TypeClassic, marchDay(8), 400),               // cancelled, ignored
		completedAt(session.TypeDeepFocus, marchDay(10), 3000, quality(7)),
		completedAt(session.TypeShortBreak, marchDay(10), 300, nil),
	}

	summary := Weekly(records, ref, time.UTC)
	assert.Equal(t, "2025-03-04", summary.From)
	assert.Equal(t, "2025-03-10", summary.To)
	assert.Equal(t, 3, summary.SessionsCompleted)
	// Breaks count as sessions but never as focus time.
	assert.Equal(t, 1500+3000, summary.TotalFocusSeconds)
	assert.InDelta(t, 7.5, summary.AverageFocusQuality, 1e-9)

	require.Len(t, summary.DailyBreakdown, 7)
	assert.Equal(t, "2025-03-04", summary.DailyBreakdown[0].Date)
	assert.Equal(t, 1, summary.DailyBreakdown[0].SessionsCompleted)
	last := summary.DailyBreakdown[6]
	assert.Equal(t, "2025-03-10", last.Date)
	assert.Equal(t, 2, last.SessionsCompleted)
	assert.Equal(t, 3000, last.FocusSeconds)
	// Days without completions still appear, zeroed.
	assert.Equal(t, 0, summary.DailyBreakdown[1].SessionsCompleted)
}

func TestWeeklyEmptyHistory(t *testing.T) {
	summary := Weekly(nil, marchDay(10), time.UTC)
	assert.Equal(t, 0, summary.SessionsCompleted)
	assert.Equal(t, 0, summary.TotalFocusSeconds)
	assert.Equal(t, 0.0, summary.AverageFocusQuality)
	assert.Len(t, summary.DailyBreakdown, 7)
}

func TestMonthly(t *testing.T) {
	records := []session.Record{
		completedAt(session.TypeClassic, marchDay(1), 1500, nil),
		completedAt(session.TypeClassic, marchDay(31), 1500, nil),
		completedAt(session.TypeClassic, time.Date(2025, 2, 28, 10, 0, 0, 0, time.UTC), 1500, nil),
	}

	summary := Monthly(records, marchDay(15), time.UTC)
	assert.Equal(t, "2025-03-01", summary.From)
	assert.Equal(t, "2025-03-31", summary.To)
	assert.Len(t, summary.DailyBreakdown, 31)
	assert.Equal(t, 2, summary.SessionsCompleted)
}

func TestPeakProductivityHour(t *testing.T) {
	at := func(hour, min, q int) session.Record {
		return completedAt(session.TypeClassic, time.Date(2025, 3, 10, hour, min, 0, 0, time.UTC), 1500, quality(q))
	}

	// Hours 9 and 14 tie on average; the earlier hour wins.
	tied := []session.Record{at(9, 0, 7), at(9, 30, 9), at(14, 0, 8)}
	peak := PeakProductivityHour(tied, time.UTC)
	assert.Equal(t, 9, peak.Hour)
	assert.InDelta(t, 8.0, peak.AverageQuality, 1e-9)
	assert.Equal(t, 2, peak.SampleCount)

	// A later hour with a strictly better average takes over.
	better := append(tied, at(20, 0, 9))
	peak = PeakProductivityHour(better, time.UTC)
	assert.Equal(t, 20, peak.Hour)
	assert.InDelta(t, 9.0, peak.AverageQuality, 1e-9)

	// Unrated completions contribute nothing.
	unrated := []session.Record{completedAt(session.TypeClassic, marchDay(10), 1500, nil)}
	peak = PeakProductivityHour(unrated, time.UTC)
	assert.Equal(t, 0, peak.SampleCount)
	assert.Equal(t, 0.0, peak.AverageQuality)
}

func TestRecommend(t *testing.T) {
	records := []session.Record{
		completedAt(session.TypeClassic, marchDay(1), 1500, nil),
		completedAt(session.TypeClassic, marchDay(2), 1500, nil),
		cancelledAt(session.TypeClassic, marchDay(3), 300),
		completedAt(session.TypeDeepFocus, marchDay(1), 3000, nil),
		completedAt(session.TypeDeepFocus, marchDay(2), 3000, nil),
		completedAt(session.TypeDeepFocus, marchDay(3), 3000, nil),
		completedAt(session.TypeDeepFocus, marchDay(4), 3000, nil),
		completedAt(session.TypeQuickTask, marchDay(1), 600, nil),
		completedAt(session.TypeQuickTask, marchDay(2), 600, nil),
	}

	r := Recommend(records)
	assert.Equal(t, session.TypeDeepFocus, r.Type)
	assert.InDelta(t, 1.0, r.SuccessRate, 1e-9)
	assert.Equal(t, 4, r.SampleCount)
	assert.NotEmpty(t, r.Reason)
}

func TestRecommendFallsBackOnThinHistory(t *testing.T) {
	records := []session.Record{
		completedAt(session.TypeClassic, marchDay(1), 1500, nil),
		completedAt(session.TypeDeepFocus, marchDay(2), 3000, nil),
	}

	r := Recommend(records)
	assert.Equal(t, session.TypeClassic, r.Type)
	assert.Equal(t, 0, r.SampleCount)
	assert.Contains(t, r.Reason, "not enough history")
}

func TestRecommendIgnoresBreaks(t *testing.T) {
	records := []session.Record{
		completedAt(session.TypeShortBreak, marchDay(1), 300, nil),
		completedAt(session.TypeShortBreak, marchDay(2), 300, nil),
		completedAt(session.TypeShortBreak, marchDay(3), 300, nil),
		completedAt(session.TypeShortBreak, marchDay(4), 300, nil),
	}

	r := Recommend(records)
	assert.Equal(t, session.TypeClassic, r.Type)
	assert.Equal(t, 0, r.SampleCount)
}
