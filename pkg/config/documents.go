// Package config holds the configuration documents the daemon reads but never writes:
// the device document (fans, mist zones), the alert document and the YAML site file.
package config

import (
	"regexp"
	"time"

	z "github.com/Oudwins/zog"
	"liyu1981.xyz/envctl-daemon/pkg/common"
)

const (
	ModeOff    = "OFF"
	ModeManual = "MANUAL"
	// ModeAuto on a fan is accepted but not yet actuated.
	ModeAuto = "AUTO"

	PowerOn  = "ON"
	PowerOff = "OFF"
)

type ScheduleWindow struct {
	SprayDurationSeconds int    `json:"spray_duration_seconds"`
	StopDurationSeconds  int    `json:"stop_duration_seconds"`
	StartTime            string `json:"start_time"`
	EndTime              string `json:"end_time"`
	Enabled              bool   `json:"enabled"`
}

type FanConfig struct {
	ID           string `json:"id"`
	Mode         string `json:"mode"`
	ControllerID string `json:"controller_id"`
	DeviceID     string `json:"device_id"`
	Power        string `json:"power"`
}

type MistZoneConfig struct {
	ID            string         `json:"id"`
	Mode          string         `json:"mode"`
	ControllerID  string         `json:"controller_id"`
	DeviceID      string         `json:"device_id"`
	IsRunning     bool           `json:"is_running"`
	DaySchedule   ScheduleWindow `json:"day_schedule"`
	NightSchedule ScheduleWindow `json:"night_schedule"`
}

type DeviceConfig struct {
	Fans      []FanConfig      `json:"fans"`
	MistZones []MistZoneConfig `json:"mist_zones"`
}

// ControllerIDs lists every controller a fan or zone is bound to.
func (d *DeviceConfig) ControllerIDs() []string {
	seen := map[string]bool{}
	var ids []string
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, f := range d.Fans {
		add(f.ControllerID)
	}
	for _, m := range d.MistZones {
		add(m.ControllerID)
	}
	return ids
}

// BacksRunningAutoZone reports whether controllerID drives a zone in AUTO that is running.
func (d *DeviceConfig) BacksRunningAutoZone(controllerID string) (string, bool) {
	if d == nil {
		return "", false
	}
	for _, m := range d.MistZones {
		if m.ControllerID == controllerID && m.Mode == ModeAuto && m.IsRunning {
			return m.ID, true
		}
	}
	return "", false
}

type TemperatureAlert struct {
	Enabled bool    `json:"enabled"`
	Low     float64 `json:"low"`
	High    float64 `json:"high"`
}

type StuckValveAlert struct {
	Enabled          bool `json:"enabled"`
	ThresholdMinutes int  `json:"threshold_minutes"`
}

type TelegramChannel struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"bot_token"`
	ChatID   string `json:"chat_id"`
	// APIBase overrides https://api.telegram.org
	APIBase string `json:"api_base"`
}

type EmailChannel struct {
	Enabled  bool     `json:"enabled"`
	SMTPHost string   `json:"smtp_host"`
	SMTPPort int      `json:"smtp_port"`
	Username string   `json:"username"`
	Password string   `json:"password"`
	From     string   `json:"from"`
	To       []string `json:"to"`
}

type AlertConfig struct {
	CooldownMinutes     int              `json:"cooldown_minutes"`
	NotifyOnRestart     bool             `json:"notify_on_restart"`
	OfflineAlertEnabled bool             `json:"offline_alert_enabled"`
	Temperature         TemperatureAlert `json:"temperature"`
	StuckValve          StuckValveAlert  `json:"stuck_valve"`
	Telegram            TelegramChannel  `json:"telegram"`
	Email               EmailChannel     `json:"email"`
}

func (a *AlertConfig) Cooldown() time.Duration {
	if a == nil || a.CooldownMinutes <= 0 {
		return common.DefaultAlertCooldown
	}
	return time.Duration(a.CooldownMinutes) * time.Minute
}

func (a *AlertConfig) StuckValveAfter() time.Duration {
	if a == nil || a.StuckValve.ThresholdMinutes <= 0 {
		return common.DefaultStuckValveAfter
	}
	return time.Duration(a.StuckValve.ThresholdMinutes) * time.Minute
}

var clockPattern = regexp.MustCompile(`^(([01]\d|2[0-3]):[0-5]\d)?$`)

var scheduleSchema = z.Struct(z.Shape{
	"SprayDurationSeconds": z.Int().GTE(0),
	"StopDurationSeconds":  z.Int().GTE(0),
	"StartTime":            z.String().Match(clockPattern),
	"EndTime":              z.String().Match(clockPattern),
	"Enabled":              z.Bool(),
})

var fanSchema = z.Struct(z.Shape{
	"ID":           z.String(),
	"Mode":         z.String().Required().OneOf([]string{ModeOff, ModeManual, ModeAuto}),
	"ControllerID": z.String().Required(),
	"DeviceID":     z.String().Required(),
	"Power":        z.String().OneOf([]string{PowerOn, PowerOff}),
})

var mistZoneSchema = z.Struct(z.Shape{
	"ID":            z.String().Required(),
	"Mode":          z.String().Required().OneOf([]string{ModeOff, ModeManual, ModeAuto}),
	"ControllerID":  z.String().Required(),
	"DeviceID":      z.String().Required(),
	"IsRunning":     z.Bool(),
	"DaySchedule":   scheduleSchema,
	"NightSchedule": scheduleSchema,
})

var deviceConfigSchema = z.Struct(z.Shape{
	"Fans":      z.Slice(fanSchema),
	"MistZones": z.Slice(mistZoneSchema),
})

var alertConfigSchema = z.Struct(z.Shape{
	"CooldownMinutes":     z.Int().GTE(0),
	"NotifyOnRestart":     z.Bool(),
	"OfflineAlertEnabled": z.Bool(),
	"Temperature": z.Struct(z.Shape{
		"Enabled": z.Bool(),
		"Low":     z.Float64(),
		"High":    z.Float64(),
	}),
	"StuckValve": z.Struct(z.Shape{
		"Enabled":          z.Bool(),
		"ThresholdMinutes": z.Int().GTE(0),
	}),
	"Telegram": z.Struct(z.Shape{
		"Enabled":  z.Bool(),
		"BotToken": z.String(),
		"ChatID":   z.String(),
		"APIBase":  z.String(),
	}),
	"Email": z.Struct(z.Shape{
		"Enabled":  z.Bool(),
		"SMTPHost": z.String(),
		"SMTPPort": z.Int().GTE(0).LTE(65535),
		"Username": z.String(),
		"Password": z.String(),
		"From":     z.String(),
		"To":       z.Slice(z.String().Email()),
	}),
})
