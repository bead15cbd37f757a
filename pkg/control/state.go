// Package control is the daemon core. Every type here is owned by the single
// control loop goroutine and takes the current time as an argument.
package control

import (
	"time"

	"liyu1981.xyz/envctl-daemon/pkg/alert"
	"liyu1981.xyz/envctl-daemon/pkg/bus"
	"liyu1981.xyz/envctl-daemon/pkg/config"
)

// ValveState is the last commanded position of a zone valve. The zero value
// means nothing was commanded yet, so the first decision is always published.
type ValveState int

const (
	ValveUnknown ValveState = iota
	ValveClose
	ValveOpen
)

func (v ValveState) String() string {
	switch v {
	case ValveOpen:
		return "OPEN"
	case ValveClose:
		return "CLOSE"
	default:
		return "UNKNOWN"
	}
}

func (v ValveState) Directive() bus.Directive {
	if v == ValveOpen {
		return bus.DirectiveOpen
	}
	return bus.DirectiveClose
}

// ZoneCycle is what the daemon remembers about one irrigation zone.
// Zero CycleStartedAt means no cycle is anchored, zero OpenedAt means the valve is not open.
type ZoneCycle struct {
	Valve          ValveState
	CycleStartedAt time.Time
	OpenedAt       time.Time
}

type ZoneStates map[string]ZoneCycle

// CommandStates tracks the last directive handed to the bus per actuator.
type CommandStates map[string]bus.Directive

func actuatorKey(controllerID, deviceID string) string {
	return controllerID + "/" + deviceID
}

// MissedPings counts consecutive stale sweeps per controller.
type MissedPings map[string]int

type throttleKey struct {
	controllerID string
	sensorType   string
	metric       string
}

// ThrottleState holds the last storage attempt per (controller, sensor, metric).
type ThrottleState map[throttleKey]time.Time

// Alerter is the part of the alert dispatcher the controllers use.
type Alerter interface {
	Send(now time.Time, cfg *config.AlertConfig, a alert.Alert) bool
}
