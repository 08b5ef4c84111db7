// Package stats computes aggregates over immutable session records. Every
// function is pure and total: it takes a snapshot slice plus an explicit
// reference time and location, holds no state, and returns zero values
// instead of errors on empty history.
package stats

import (
	"fmt"
	"sort"
	"time"

	"focusflow/backend/internal/session"
)

const dayFormat = "2006-01-02"

// minRecommendSamples is the smallest per-type history considered
// representative enough to recommend from.
const minRecommendSamples = 3

// DayBucket is one calendar day of a summary breakdown.
type DayBucket struct {
	Date              string `json:"date"`
	SessionsCompleted int    `json:"sessionsCompleted"`
	FocusSeconds      int    `json:"focusSeconds"`
}

// Summary aggregates completed records over an inclusive day window.
// SessionsCompleted counts every completed record; focus seconds exclude
// breaks; the quality average covers rated records only.
type Summary struct {
	From                string      `json:"from"`
	To                  string      `json:"to"`
	SessionsCompleted   int         `json:"sessionsCompleted"`
	TotalFocusSeconds   int         `json:"totalFocusSeconds"`
	AverageFocusQuality float64     `json:"averageFocusQuality"`
	DailyBreakdown      []DayBucket `json:"dailyBreakdown"`
}

// TypeSuccess reports completion odds for one session type. TotalSessions
// zero means no history for the type; SuccessRate stays zero then.
type TypeSuccess struct {
	Type              session.Type `json:"type"`
	TotalSessions     int          `json:"totalSessions"`
	CompletedSessions int          `json:"completedSessions"`
	SuccessRate       float64      `json:"successRate"`
}

// HourQuality is the rating profile of one local hour of day.
type HourQuality struct {
	Hour           int     `json:"hour"`
	AverageQuality float64 `json:"averageQuality"`
	SampleCount    int     `json:"sampleCount"`
}

// Recommendation names the session type the history suggests trying next.
type Recommendation struct {
	Type        session.Type `json:"type"`
	SuccessRate float64      `json:"successRate"`
	SampleCount int          `json:"sampleCount"`
	Reason      string       `json:"reason"`
}

// Weekly summarizes the seven calendar days ending at ref.
func Weekly(records []session.Record, ref time.Time, loc *time.Location) Summary {
	end := dayOf(ref, loc)
	return summarize(records, end.AddDate(0, 0, -6), end, loc)
}

// Monthly summarizes the calendar month containing ref.
func Monthly(records []session.Record, ref time.Time, loc *time.Location) Summary {
	local := ref.In(loc)
	start := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
	return summarize(records, start, start.AddDate(0, 1, -1), loc)
}

func summarize(records []session.Record, start, end time.Time, loc *time.Location) Summary {
	summary := Summary{
		From:           start.Format(dayFormat),
		To:             end.Format(dayFormat),
		DailyBreakdown: make([]DayBucket, 0, 31),
	}
	index := make(map[string]int)
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		key := day.Format(dayFormat)
		index[key] = len(summary.DailyBreakdown)
		summary.DailyBreakdown = append(summary.DailyBreakdown, DayBucket{Date: key})
	}

	qualitySum, qualityCount := 0, 0
	for _, r := range records {
		if !r.Completed {
			continue
		}
		day := dayOf(r.Timestamp, loc)
		if day.Before(start) || day.After(end) {
			continue
		}
		bucket := &summary.DailyBreakdown[index[day.Format(dayFormat)]]
		summary.SessionsCompleted++
		bucket.SessionsCompleted++
		if !r.Type.IsBreak() {
			summary.TotalFocusSeconds += r.DurationSeconds
			bucket.FocusSeconds += r.DurationSeconds
		}
		if r.FocusQuality != nil {
			qualitySum += *r.FocusQuality
			qualityCount++
		}
	}
	if qualityCount > 0 {
		summary.AverageFocusQuality = float64(qualitySum) / float64(qualityCount)
	}
	return summary
}

// SuccessRateByType reports how often sessions of type t were completed
// rather than cancelled.
func SuccessRateByType(records []session.Record, t session.Type) TypeSuccess {
	out := TypeSuccess{Type: t}
	for _, r := range records {
		if r.Type != t {
			continue
		}
		out.TotalSessions++
		if r.Completed {
			out.CompletedSessions++
		}
	}
	if out.TotalSessions > 0 {
		out.SuccessRate = float64(out.CompletedSessions) / float64(out.TotalSessions)
	}
	return out
}

// CurrentStreak is the trailing run of consecutive calendar days, ending at
// the most recent completed day, each holding at least one completed
// session. Days consecutive means the dates differ by exactly one calendar
// day in loc; hour-level gaps never matter.
func CurrentStreak(records []session.Record, loc *time.Location) int {
	days := completedDays(records, loc)
	if len(days) == 0 {
		return 0
	}
	streak := 1
	for i := len(days) - 1; i > 0; i-- {
		if !days[i-1].AddDate(0, 0, 1).Equal(days[i]) {
			break
		}
		streak++
	}
	return streak
}

// LongestStreak is the longest run of consecutive completed days anywhere in
// the history.
func LongestStreak(records []session.Record, loc *time.Location) int {
	days := completedDays(records, loc)
	if len(days) == 0 {
		return 0
	}
	longest, run := 1, 1
	for i := 1; i < len(days); i++ {
		if days[i-1].AddDate(0, 0, 1).Equal(days[i]) {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}

// PeakProductivityHour buckets rated completions by local hour of day and
// returns the hour with the best average rating. Ties go to the earliest
// hour; with no rated history the zero value (SampleCount 0) comes back.
func PeakProductivityHour(records []session.Record, loc *time.Location) HourQuality {
	var sums, counts [24]int
	for _, r := range records {
		if !r.Completed || r.FocusQuality == nil {
			continue
		}
		hour := r.Timestamp.In(loc).Hour()
		sums[hour] += *r.FocusQuality
		counts[hour]++
	}

	var best HourQuality
	for hour := 0; hour < 24; hour++ {
		if counts[hour] == 0 {
			continue
		}
		avg := float64(sums[hour]) / float64(counts[hour])
		if best.SampleCount == 0 || avg > best.AverageQuality {
			best = HourQuality{Hour: hour, AverageQuality: avg, SampleCount: counts[hour]}
		}
	}
	return best
}

// Recommend picks the focus type with the best completion rate among types
// holding at least minRecommendSamples records. Rate ties go to the larger
// sample, then to the canonical type order. Too little history falls back to
// the classic session.
func Recommend(records []session.Record) Recommendation {
	var best Recommendation
	for _, t := range session.Types() {
		if t.IsBreak() {
			continue
		}
		s := SuccessRateByType(records, t)
		if s.TotalSessions < minRecommendSamples {
			continue
		}
		better := best.SampleCount == 0 ||
			s.SuccessRate > best.SuccessRate ||
			(s.SuccessRate == best.SuccessRate && s.TotalSessions > best.SampleCount)
		if better {
			best = Recommendation{Type: t, SuccessRate: s.SuccessRate, SampleCount: s.TotalSessions}
		}
	}
	if best.SampleCount == 0 {
		return Recommendation{
			Type:   session.TypeClassic,
			Reason: "not enough history to compare session types yet",
		}
	}
	best.Reason = fmt.Sprintf("completed %d%% of your last %d %s sessions", int(best.SuccessRate*100+0.5), best.SampleCount, best.Type)
	return best
}

func dayOf(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

func completedDays(records []session.Record, loc *time.Location) []time.Time {
	seen := make(map[string]time.Time)
	for _, r := range records {
		if !r.Completed {
			continue
		}
		day := dayOf(r.Timestamp, loc)
		seen[day.Format(dayFormat)] = day
	}
	days := make([]time.Time, 0, len(seen))
	for _, day := range seen {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}
