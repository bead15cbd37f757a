package control

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"liyu1981.xyz/envctl-daemon/pkg/bus"
	"liyu1981.xyz/envctl-daemon/pkg/bus/mocks"
	"liyu1981.xyz/envctl-daemon/pkg/common"
	"liyu1981.xyz/envctl-daemon/pkg/config"
)

func TestDesiredFanPower(t *testing.T) {
	d, ok := DesiredFanPower(config.FanConfig{Mode: config.ModeOff, Power: config.PowerOn})
	assert.True(t, ok)
	assert.Equal(t, bus.DirectiveOff, d)

	d, ok = DesiredFanPower(config.FanConfig{Mode: config.ModeManual, Power: config.PowerOn})
	assert.True(t, ok)
	assert.Equal(t, bus.DirectiveOn, d)

	d, ok = DesiredFanPower(config.FanConfig{Mode: config.ModeManual})
	assert.True(t, ok)
	assert.Equal(t, bus.DirectiveOff, d)

	_, ok = DesiredFanPower(config.FanConfig{Mode: config.ModeAuto, Power: config.PowerOn})
	assert.False(t, ok)
}

func TestFanControllerPublishesOnChangeOnly(t *testing.T) {
	common.SetTestLoggerNop()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	fans := loadTestDevices(t).Fans
	north := bus.CommandTopic(testNamespace, "esp32_a", "fan1")
	south := bus.CommandTopic(testNamespace, "esp32_b", "fan1")

	pub := mocks.NewMockPublisher(ctrl)
	pub.EXPECT().Publish(north, bus.QoSReliable, "ON").Return(nil).Times(1)
	pub.EXPECT().Publish(south, bus.QoSReliable, "OFF").Return(nil).Times(1)

	fc := NewFanController(testNamespace, pub, nil)
	for i := 0; i < 5; i++ {
		fc.Run(fans)
	}

	d, ok := fc.Commanded("esp32_a", "fan1")
	assert.True(t, ok)
	assert.Equal(t, bus.DirectiveOn, d)

	// AUTO fans are accepted but never actuated
	_, ok = fc.Commanded("esp32_b", "fan2")
	assert.False(t, ok)

	// switching the manual fan off publishes once more
	pub.EXPECT().Publish(north, bus.QoSReliable, "OFF").Return(nil).Times(1)
	fans[0].Power = config.PowerOff
	fc.Run(fans)
	fc.Run(fans)
}

func TestFanControllerRetriesFailedPublish(t *testing.T) {
	common.SetTestLoggerNop()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	fans := []config.FanConfig{{ID: "f", Mode: config.ModeOff, ControllerID: "esp32_a", DeviceID: "fan9"}}
	topic := bus.CommandTopic(testNamespace, "esp32_a", "fan9")

	pub := mocks.NewMockPublisher(ctrl)
	gomock.InOrder(
		pub.EXPECT().Publish(topic, bus.QoSReliable, "OFF").Return(bus.ErrNotConnected).Times(1),
		pub.EXPECT().Publish(topic, bus.QoSReliable, "OFF").Return(nil).Times(1),
	)

	fc := NewFanController(testNamespace, pub, nil)
	fc.Run(fans)
	_, ok := fc.Commanded("esp32_a", "fan9")
	assert.False(t, ok)

	fc.Run(fans)
	fc.Run(fans)
	d, _ := fc.Commanded("esp32_a", "fan9")
	assert.Equal(t, bus.DirectiveOff, d)
}
