package control

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"liyu1981.xyz/envctl-daemon/pkg/config"
)

func TestParseClock(t *testing.T) {
	m, err := ParseClock("06:30")
	require.NoError(t, err)
	assert.Equal(t, 390, m)

	m, err = ParseClock("00:00")
	require.NoError(t, err)
	assert.Equal(t, 0, m)

	for _, bad := range []string{"", "24:00", "6:3", "noon"} {
		_, err := ParseClock(bad)
		assert.Error(t, err, bad)
	}
}

func TestWindowMatches(t *testing.T) {
	day := config.ScheduleWindow{StartTime: "06:00", EndTime: "18:00", Enabled: true}
	night := config.ScheduleWindow{StartTime: "18:00", EndTime: "06:00", Enabled: true}

	tests := []struct {
		name   string
		window config.ScheduleWindow
		minute int
		want   bool
	}{
		{"day start inclusive", day, 6 * 60, true},
		{"day noon", day, 12 * 60, true},
		{"day end exclusive", day, 18 * 60, false},
		{"day before start", day, 5*60 + 59, false},
		{"night late evening", night, 23*60 + 59, true},
		{"night early morning", night, 5*60 + 59, true},
		{"night start inclusive", night, 18 * 60, true},
		{"night end exclusive", night, 6 * 60, false},
		{"night noon", night, 12 * 60, false},
		{"disabled", config.ScheduleWindow{StartTime: "00:00", EndTime: "23:59"}, 12 * 60, false},
		{"unparsable", config.ScheduleWindow{StartTime: "", EndTime: "23:59", Enabled: true}, 12 * 60, false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WindowMatches(tt.window, tt.minute))
		})
	}
}

func TestActiveWindowPrefersDay(t *testing.T) {
	zone := config.MistZoneConfig{
		DaySchedule:   config.ScheduleWindow{StartTime: "06:00", EndTime: "20:00", Enabled: true},
		NightSchedule: config.ScheduleWindow{StartTime: "18:00", EndTime: "06:00", Enabled: true},
	}

	_, name, ok := ActiveWindow(zone, at(19, 0, 0))
	assert.True(t, ok)
	assert.Equal(t, WindowDay, name)

	_, name, ok = ActiveWindow(zone, at(2, 0, 0))
	assert.True(t, ok)
	assert.Equal(t, WindowNight, name)

	zone.NightSchedule.Enabled = false
	_, _, ok = ActiveWindow(zone, at(2, 0, 0))
	assert.False(t, ok)
}
