package control

import (
	"go.uber.org/zap"
	"liyu1981.xyz/envctl-daemon/pkg/bus"
	"liyu1981.xyz/envctl-daemon/pkg/common"
	"liyu1981.xyz/envctl-daemon/pkg/config"
	"liyu1981.xyz/envctl-daemon/pkg/metrics"
)

type FanController struct {
	commander
	commanded CommandStates
}

func NewFanController(namespace string, publisher bus.Publisher, m *metrics.Metrics) *FanController {
	if m == nil {
		m = metrics.NewNop()
	}
	return &FanController{
		commander: commander{
			namespace: namespace,
			publisher: publisher,
			metrics:   m,
			logger:    common.GetCoreLogger(common.LoggerCategoryFan),
		},
		commanded: CommandStates{},
	}
}

// DesiredFanPower returns the directive a fan should hold, false when the
// daemon leaves the fan alone (AUTO, unknown modes).
func DesiredFanPower(fan config.FanConfig) (bus.Directive, bool) {
	switch fan.Mode {
	case config.ModeOff:
		return bus.DirectiveOff, true
	case config.ModeManual:
		if fan.Power == config.PowerOn {
			return bus.DirectiveOn, true
		}
		return bus.DirectiveOff, true
	default:
		return "", false
	}
}

// Run applies every fan once, publishing only when the desired power differs
// from what was last commanded.
func (f *FanController) Run(fans []config.FanConfig) {
	for _, fan := range fans {
		desired, ok := DesiredFanPower(fan)
		if !ok {
			continue
		}

		key := actuatorKey(fan.ControllerID, fan.DeviceID)
		if f.commanded[key] == desired {
			continue
		}
		if err := f.command(fan.ControllerID, fan.DeviceID, desired); err != nil {
			continue
		}
		f.logger.Debug("Fan state changed", zap.String("fan", fan.ID), zap.String("mode", fan.Mode),
			zap.String("from", string(f.commanded[key])), zap.String("to", string(desired)))
		f.commanded[key] = desired
	}
}

// Commanded returns the last directive sent to the fan actuator.
func (f *FanController) Commanded(controllerID, deviceID string) (bus.Directive, bool) {
	d, ok := f.commanded[actuatorKey(controllerID, deviceID)]
	return d, ok
}
