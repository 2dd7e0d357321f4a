package progress

import (
	"sort"
	"time"
)

const dayFormat = "2006-01-02"

// MaxCalendarDays caps the span of a calendar query, measured back from its end.
const MaxCalendarDays = 400

// DefaultCalendarDays is the window used when no range is given (~6 months).
const DefaultCalendarDays = 180

// DayBucket is one heatmap cell: a calendar day and its event count.
type DayBucket struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Summary aggregates a user's study history into streak statistics.
type Summary struct {
	CurrentStreak  int    `json:"currentStreak"`
	LongestStreak  int    `json:"longestStreak"`
	TotalStudyDays int    `json:"totalStudyDays"`
	TodayStudied   bool   `json:"todayStudied"`
	LastStudyDate  string `json:"lastStudyDate,omitempty"`
}

// DayKey reduces an instant to its calendar day in loc as YYYY-MM-DD.
func DayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dayFormat)
}

// ParseDay parses a YYYY-MM-DD string as midnight in loc.
func ParseDay(s string, loc *time.Location) (time.Time, bool) {
	t, err := time.ParseInLocation(dayFormat, s, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// StartOfDay returns midnight of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// EndOfDay returns the last instant of t's calendar day in loc.
func EndOfDay(t time.Time, loc *time.Location) time.Time {
	return StartOfDay(t, loc).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// Summarize computes streak statistics from raw event timestamps. It is a pure
// function of its inputs: now is supplied by the caller, never read from a clock.
func Summarize(events []time.Time, now time.Time, loc *time.Location) Summary {
	seen := make(map[string]struct{}, len(events))
	for _, e := range events {
		seen[DayKey(e, loc)] = struct{}{}
	}
	days := make([]string, 0, len(seen))
	for d := range seen {
		days = append(days, d)
	}
	sort.Strings(days)

	// Longest streak: one pass over the sorted days, run resets when the gap
	// to the previous day is not exactly one calendar day.
	longest, run := 0, 0
	var prev time.Time
	for i, d := range days {
		day, _ := ParseDay(d, loc)
		if i > 0 && prev.AddDate(0, 0, 1).Equal(day) {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
		prev = day
	}

	// Current streak: walk backward from today. A streak that does not include
	// today is not current, so a gap at today reports zero.
	current := 0
	for cursor := StartOfDay(now, loc); ; cursor = cursor.AddDate(0, 0, -1) {
		if _, ok := seen[cursor.Format(dayFormat)]; !ok {
			break
		}
		current++
	}

	sum := Summary{
		CurrentStreak:  current,
		LongestStreak:  longest,
		TotalStudyDays: len(seen),
	}
	if _, ok := seen[DayKey(now, loc)]; ok {
		sum.TodayStudied = true
	}
	if len(days) > 0 {
		sum.LastStudyDate = days[len(days)-1]
	}
	return sum
}

// Buckets groups event timestamps by calendar day, one bucket per day that has
// at least one event, sorted ascending by date.
func Buckets(events []time.Time, loc *time.Location) []DayBucket {
	counts := make(map[string]int, len(events))
	for _, e := range events {
		counts[DayKey(e, loc)]++
	}
	buckets := make([]DayBucket, 0, len(counts))
	for day, n := range counts {
		buckets = append(buckets, DayBucket{Date: day, Count: n})
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Date < buckets[j].Date })
	return buckets
}

// ClampRange truncates from so the range spans at most maxDays calendar days
// ending at to. Oversized ranges never fail, they shrink.
func ClampRange(from, to time.Time, maxDays int) (time.Time, time.Time) {
	earliest := to.AddDate(0, 0, -(maxDays - 1))
	if from.Before(earliest) {
		from = earliest
	}
	return from, to
}
