// Package dates maps free-text deadline phrases ("tomorrow at 2pm",
// "next friday") to absolute timestamps relative to an injected clock.
package dates

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	clockRe    = regexp.MustCompile(`(\d{1,2}):?(\d{2})?\s*(am|pm|a\.m\.|p\.m\.)?`)
	durationRe = regexp.MustCompile(`in\s+(\d+)\s+(hour|day|week)s?`)
)

// Ordered monday first so a phrase naming several weekdays always
// resolves to the same one.
var weekdays = []struct {
	name string
	day  time.Weekday
}{
	{"monday", time.Monday},
	{"tuesday", time.Tuesday},
	{"wednesday", time.Wednesday},
	{"thursday", time.Thursday},
	{"friday", time.Friday},
	{"saturday", time.Saturday},
	{"sunday", time.Sunday},
}

// Resolve maps a relative-date phrase to an absolute time. The second
// return value is false when no pattern matches; callers must treat that
// as "no deadline", not an error. Deterministic given now.
func Resolve(text string, now time.Time) (time.Time, bool) {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return time.Time{}, false
	}

	// Named anchors, checked before the weekday rule so "end of week"
	// resolves here rather than via "friday".
	anchors := []struct {
		phrase string
		base   func() time.Time
	}{
		{"tomorrow", func() time.Time { return now.Add(24 * time.Hour) }},
		{"today", func() time.Time { return now }},
		{"next week", func() time.Time { return now.Add(7 * 24 * time.Hour) }},
		{"next month", func() time.Time { return now.Add(30 * 24 * time.Hour) }},
		{"end of week", func() time.Time { return at(nextFriday(now), 17, 0) }},
		{"end of day", func() time.Time { return at(now, 17, 0) }},
	}
	for _, a := range anchors {
		if strings.Contains(t, a.phrase) {
			return applyClock(a.base(), t), true
		}
	}

	if m := durationRe.FindStringSubmatch(t); m != nil {
		n, _ := strconv.Atoi(m[1])
		var unit time.Duration
		switch m[2] {
		case "hour":
			unit = time.Hour
		case "day":
			unit = 24 * time.Hour
		case "week":
			unit = 7 * 24 * time.Hour
		}
		return now.Add(time.Duration(n) * unit), true
	}

	// Weekday names resolve to the next occurrence strictly after today,
	// at end of business unless the text carries a clock time.
	for _, w := range weekdays {
		if strings.Contains(t, w.name) {
			ahead := (int(w.day) - int(now.Weekday()) + 7) % 7
			if ahead == 0 {
				ahead = 7
			}
			return applyClock(at(now.Add(time.Duration(ahead)*24*time.Hour), 17, 0), t), true
		}
	}

	return time.Time{}, false
}

// applyClock overwrites the time-of-day of base when text carries a clock
// time. "pm" adds 12 hours unless the hour is already >= 12; "am" with
// hour 12 becomes 0.
func applyClock(base time.Time, text string) time.Time {
	m := clockRe.FindStringSubmatch(text)
	if m == nil {
		return base
	}
	hour, _ := strconv.Atoi(m[1])
	minute := 0
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	switch {
	case strings.HasPrefix(m[3], "p") && hour < 12:
		hour += 12
	case strings.HasPrefix(m[3], "a") && hour == 12:
		hour = 0
	}
	if hour > 23 || minute > 59 {
		return base
	}
	return at(base, hour, minute)
}

func at(d time.Time, hour, minute int) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), hour, minute, 0, 0, d.Location())
}

func nextFriday(now time.Time) time.Time {
	ahead := (int(time.Friday) - int(now.Weekday()) + 7) % 7
	return now.Add(time.Duration(ahead) * 24 * time.Hour)
}
