package control

import (
	"fmt"
	"time"

	"liyu1981.xyz/envctl-daemon/pkg/config"
)

const (
	WindowDay   = "day"
	WindowNight = "night"
)

// ParseClock turns "HH:MM" into minutes since midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func minuteOfDay(now time.Time) int {
	return now.Hour()*60 + now.Minute()
}

// WindowMatches tests minute against [start, end). A window whose start is after
// its end spans midnight. Disabled or unparsable windows never match.
func WindowMatches(w config.ScheduleWindow, minute int) bool {
	if !w.Enabled {
		return false
	}
	start, err := ParseClock(w.StartTime)
	if err != nil {
		return false
	}
	end, err := ParseClock(w.EndTime)
	if err != nil {
		return false
	}

	if start <= end {
		return start <= minute && minute < end
	}
	return minute >= start || minute < end
}

// ActiveWindow resolves the schedule in force at now, day window first.
func ActiveWindow(zone config.MistZoneConfig, now time.Time) (config.ScheduleWindow, string, bool) {
	minute := minuteOfDay(now)
	if WindowMatches(zone.DaySchedule, minute) {
		return zone.DaySchedule, WindowDay, true
	}
	if WindowMatches(zone.NightSchedule, minute) {
		return zone.NightSchedule, WindowNight, true
	}
	return config.ScheduleWindow{}, "", false
}
