package progress

import (
	"context"
	"errors"
	"time"
)

// ErrNotEnrolled is returned when the caller has no active enrollment in the
// referenced course.
var ErrNotEnrolled = errors.New("not enrolled in this course")

// EventStore is the persistence contract the streak service runs against. The
// store, not the service, must guarantee at most one event per enrollment per
// calendar day; InsertEvent reports a conflict instead of writing a duplicate.
type EventStore interface {
	ActiveEnrollment(ctx context.Context, userID, courseID string) (string, error)
	ActiveEnrollments(ctx context.Context, userID string) ([]string, error)
	InsertEvent(ctx context.Context, enrollmentID string, at time.Time, day string) (id string, inserted bool, err error)
	EventTimes(ctx context.Context, enrollmentIDs []string, from, to time.Time) ([]time.Time, error)
}

// Service answers streak and calendar queries over an EventStore. It holds no
// state of its own; every result is recomputed from the event log.
type Service struct {
	store EventStore
	loc   *time.Location
	now   func() time.Time
}

// NewService creates a service. loc fixes the calendar-day time zone; now is
// the injected clock (nil means time.Now).
func NewService(store EventStore, loc *time.Location, now func() time.Time) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, loc: loc, now: now}
}

// RecordResult reports the outcome of a study ping.
type RecordResult struct {
	AlreadyRecorded bool
	EventID         string
	Day             string
	CourseID        string
}

// RecordStudy records one study event for today on the user's enrollment in
// the course. Calling it twice in the same calendar day is a no-op the second
// time.
func (s *Service) RecordStudy(ctx context.Context, userID, courseID string) (RecordResult, error) {
	enrollmentID, err := s.store.ActiveEnrollment(ctx, userID, courseID)
	if err != nil {
		return RecordResult{}, err
	}
	if enrollmentID == "" {
		return RecordResult{}, ErrNotEnrolled
	}

	now := s.now()
	day := DayKey(now, s.loc)
	id, inserted, err := s.store.InsertEvent(ctx, enrollmentID, now, day)
	if err != nil {
		return RecordResult{}, err
	}
	if !inserted {
		return RecordResult{AlreadyRecorded: true, Day: day, CourseID: courseID}, nil
	}
	return RecordResult{EventID: id, Day: day, CourseID: courseID}, nil
}

// Streak computes the user's streak summary across all active enrollments.
// Streaks are user-level: events from every enrolled course count.
func (s *Service) Streak(ctx context.Context, userID string) (Summary, error) {
	ids, err := s.store.ActiveEnrollments(ctx, userID)
	if err != nil {
		return Summary{}, err
	}
	if len(ids) == 0 {
		return Summary{}, nil
	}
	events, err := s.store.EventTimes(ctx, ids, time.Time{}, time.Time{})
	if err != nil {
		return Summary{}, err
	}
	return Summarize(events, s.now(), s.loc), nil
}

// CalendarResult is the heatmap payload: the effective range and the non-empty
// day buckets inside it.
type CalendarResult struct {
	From string      `json:"from"`
	To   string      `json:"to"`
	Days []DayBucket `json:"days"`
}

// Calendar returns the per-day activity histogram for the requested range.
// Malformed or missing bounds fall back to the default window; oversized
// ranges are clamped, never rejected.
func (s *Service) Calendar(ctx context.Context, userID, fromStr, toStr string) (CalendarResult, error) {
	ids, err := s.store.ActiveEnrollments(ctx, userID)
	if err != nil {
		return CalendarResult{}, err
	}

	now := s.now()
	to, ok := ParseDay(toStr, s.loc)
	if !ok {
		to = StartOfDay(now, s.loc)
	}
	from, ok := ParseDay(fromStr, s.loc)
	if !ok {
		from = StartOfDay(now, s.loc).AddDate(0, 0, -(DefaultCalendarDays - 1))
	}
	from, to = ClampRange(from, to, MaxCalendarDays)

	if len(ids) == 0 {
		return CalendarResult{From: DayKey(from, s.loc), To: DayKey(to, s.loc), Days: []DayBucket{}}, nil
	}

	events, err := s.store.EventTimes(ctx, ids, from, EndOfDay(to, s.loc))
	if err != nil {
		return CalendarResult{}, err
	}
	return CalendarResult{
		From: DayKey(from, s.loc),
		To:   DayKey(to, s.loc),
		Days: Buckets(events, s.loc),
	}, nil
}
