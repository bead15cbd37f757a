package control

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"liyu1981.xyz/envctl-daemon/pkg/alert"
	"liyu1981.xyz/envctl-daemon/pkg/bus"
	"liyu1981.xyz/envctl-daemon/pkg/common"
	"liyu1981.xyz/envctl-daemon/pkg/config"
	"liyu1981.xyz/envctl-daemon/pkg/metrics"
	"liyu1981.xyz/envctl-daemon/pkg/models"
)

// Effects is what one evaluation asks the caller to do.
type Effects struct {
	// Directive is empty when nothing has to be published.
	Directive bus.Directive
	Window    string
	// Skipped marks a matched window whose cycle length is not positive.
	Skipped bool
	// StuckOpenFor is set once the valve has been open longer than the threshold.
	StuckOpenFor time.Duration
}

// NextValveState evaluates one zone at now. It has no side effects.
func NextValveState(now time.Time, zone config.MistZoneConfig, state ZoneCycle, stuckAfter time.Duration) (ZoneCycle, Effects) {
	switch {
	case zone.Mode == config.ModeManual:
		// externally driven, forget the anchor so a return to AUTO starts a fresh cycle
		state.CycleStartedAt = time.Time{}
		state.OpenedAt = time.Time{}
		return state, Effects{}
	case zone.Mode == config.ModeAuto && zone.IsRunning:
		return nextAutoState(now, zone, state, stuckAfter)
	default:
		return closedState(state, Effects{})
	}
}

func closedState(state ZoneCycle, eff Effects) (ZoneCycle, Effects) {
	if state.Valve != ValveClose {
		eff.Directive = bus.DirectiveClose
	}
	return ZoneCycle{Valve: ValveClose}, eff
}

func nextAutoState(now time.Time, zone config.MistZoneConfig, state ZoneCycle, stuckAfter time.Duration) (ZoneCycle, Effects) {
	window, name, ok := ActiveWindow(zone, now)
	if !ok {
		return closedState(state, Effects{})
	}

	eff := Effects{Window: name}
	spray := time.Duration(window.SprayDurationSeconds) * time.Second
	total := spray + time.Duration(window.StopDurationSeconds)*time.Second
	if total <= 0 {
		eff.Skipped = true
		return state, eff
	}

	switch {
	case state.CycleStartedAt.IsZero():
		state.CycleStartedAt = now
		if state.Valve != ValveUnknown {
			state.Valve = ValveClose
		}
		state.OpenedAt = time.Time{}
	case now.Before(state.CycleStartedAt):
		// wall clock moved backwards
		state.CycleStartedAt = now
	}

	phase := now.Sub(state.CycleStartedAt) % total
	if phase < spray {
		if state.Valve != ValveOpen {
			eff.Directive = bus.DirectiveOpen
			state.Valve = ValveOpen
			state.OpenedAt = now
		} else if state.OpenedAt.IsZero() {
			state.OpenedAt = now
		}
		if open := now.Sub(state.OpenedAt); stuckAfter > 0 && open > stuckAfter {
			eff.StuckOpenFor = open
		}
		return state, eff
	}

	if state.Valve != ValveClose {
		eff.Directive = bus.DirectiveClose
		state.Valve = ValveClose
	}
	state.OpenedAt = time.Time{}
	return state, eff
}

type MistController struct {
	commander
	alerter Alerter
	zones   ZoneStates
}

func NewMistController(namespace string, publisher bus.Publisher, alerter Alerter, m *metrics.Metrics) *MistController {
	if m == nil {
		m = metrics.NewNop()
	}
	return &MistController{
		commander: commander{
			namespace: namespace,
			publisher: publisher,
			metrics:   m,
			logger:    common.GetCoreLogger(common.LoggerCategoryMist),
		},
		alerter: alerter,
		zones:   ZoneStates{},
	}
}

// Run evaluates every zone once. State of zones no longer configured is dropped.
func (c *MistController) Run(now time.Time, zones []config.MistZoneConfig, alerts *config.AlertConfig) {
	stuckAfter := alerts.StuckValveAfter()
	configured := make(map[string]bool, len(zones))

	for _, zone := range zones {
		configured[zone.ID] = true
		prev := c.zones[zone.ID]
		next, eff := NextValveState(now, zone, prev, stuckAfter)

		if eff.Skipped {
			c.logger.Warn("Zone cycle length is not positive, skipping",
				zap.String("zone", zone.ID), zap.String("window", eff.Window))
		}

		if eff.Directive != "" {
			if err := c.command(zone.ControllerID, zone.DeviceID, eff.Directive); err != nil {
				// keep the old valve so the next heartbeat retries
				next.Valve = prev.Valve
				next.OpenedAt = prev.OpenedAt
			} else {
				c.logger.Debug("Valve state changed", zap.String("zone", zone.ID),
					zap.String("mode", zone.Mode), zap.String("window", eff.Window),
					zap.Stringer("from", prev.Valve), zap.Stringer("to", next.Valve))
			}
		}

		if eff.StuckOpenFor > 0 && alerts != nil && alerts.StuckValve.Enabled && c.alerter != nil {
			c.alerter.Send(now, alerts, alert.Alert{
				Key:   alert.StuckKey(zone.ID),
				Type:  models.AlertTypeStuckValve,
				Title: "Valve stuck open",
				Body: fmt.Sprintf("Zone %s (%s/%s) has been open for %s, threshold %s.",
					zone.ID, zone.ControllerID, zone.DeviceID,
					eff.StuckOpenFor.Truncate(time.Second), stuckAfter),
			})
		}

		c.zones[zone.ID] = next
	}

	for id := range c.zones {
		if !configured[id] {
			delete(c.zones, id)
		}
	}
}

func (c *MistController) State(zoneID string) (ZoneCycle, bool) {
	s, ok := c.zones[zoneID]
	return s, ok
}
