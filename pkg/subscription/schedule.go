package subscription

import (
	"fmt"
	"time"
)

// Schedule determines when the next billing cycle should run.
type Schedule interface {
	Next(from time.Time) time.Time
	String() string
}

// intervalSchedule runs at fixed intervals
type intervalSchedule struct {
	every time.Duration
}

func (s intervalSchedule) Next(from time.Time) time.Time {
	return from.Add(s.every)
}

func (s intervalSchedule) String() string {
	return fmt.Sprintf("every %v", s.every)
}

// dailySchedule runs once per day at specified time
type dailySchedule struct {
	hour   int
	minute int
}

func (s dailySchedule) Next(from time.Time) time.Time {
	next := time.Date(
		from.Year(), from.Month(), from.Day(),
		s.hour, s.minute, 0, 0, from.Location(),
	)
	if !next.After(from) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (s dailySchedule) String() string {
	return fmt.Sprintf("daily at %02d:%02d", s.hour, s.minute)
}

// EveryInterval creates a schedule that runs at the given fixed interval.
func EveryInterval(d time.Duration) Schedule {
	if d <= 0 {
		panic("subscription: schedule interval must be positive")
	}
	return intervalSchedule{every: d}
}

// DailyAt creates a schedule that runs once a day at the given time.
func DailyAt(hour, minute int) Schedule {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		panic("subscription: invalid daily schedule time")
	}
	return dailySchedule{hour: hour, minute: minute}
}
