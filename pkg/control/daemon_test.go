package control

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"liyu1981.xyz/envctl-daemon/pkg/alert"
	"liyu1981.xyz/envctl-daemon/pkg/bus"
	busMocks "liyu1981.xyz/envctl-daemon/pkg/bus/mocks"
	"liyu1981.xyz/envctl-daemon/pkg/cache"
	"liyu1981.xyz/envctl-daemon/pkg/common"
	"liyu1981.xyz/envctl-daemon/pkg/config"
	"liyu1981.xyz/envctl-daemon/pkg/metrics"
	"liyu1981.xyz/envctl-daemon/pkg/models"
)

type staticConfig struct {
	snap config.Snapshot
}

func (s staticConfig) Load() config.Snapshot { return s.snap }

func statusMessage(controllerID, payload string) bus.Message {
	return bus.Message{
		Kind:         bus.KindStatus,
		Topic:        testNamespace + "/" + controllerID + "/status",
		ControllerID: controllerID,
		Payload:      payload,
	}
}

func TestDaemonStartupGrace(t *testing.T) {
	common.SetTestLoggerNop()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	start := time.Now()
	iotObj := getMemoryIOT()
	d := New(Options{
		IOT:       iotObj,
		Publisher: busMocks.NewMockPublisher(ctrl),
		Grace:     5 * time.Second,
		Now:       func() time.Time { return start },
	})

	id := uuid.NewString()
	d.Process(start.Add(2*time.Second), statusMessage(id, "online"))
	_, err := iotObj.Status.GetDeviceStatus(context.Background(), id)
	assert.Error(t, err, "status inside the grace window must not be stored")
	assert.Equal(t, 0, d.Liveness().Missed(id))

	d.Process(start.Add(6*time.Second), statusMessage(id, "online"))
	s, err := iotObj.Status.GetDeviceStatus(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOnline, s.Status)
	assert.True(t, s.LastSeenAt.Equal(start.Add(6*time.Second)))
}

func pongMessage(controllerID string, receivedAt time.Time) bus.Message {
	return bus.Message{
		Kind:         bus.KindPong,
		Topic:        testNamespace + "/" + controllerID + "/pong",
		ControllerID: controllerID,
		ReceivedAt:   receivedAt,
	}
}

// drain processes everything queued so far, in queue order, the way Run does.
func drain(d *Daemon) {
	for {
		select {
		case msg := <-d.events:
			d.Process(msg.ReceivedAt, msg)
		default:
			return
		}
	}
}

func TestDaemonZeroGraceAcceptsAcrossReconnect(t *testing.T) {
	common.SetTestLoggerNop()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	start := time.Now()
	iotObj := getMemoryIOT()
	d := New(Options{
		IOT:       iotObj,
		Publisher: busMocks.NewMockPublisher(ctrl),
		Grace:     0,
		Now:       func() time.Time { return start },
	})

	id := uuid.NewString()
	d.Process(start.Add(time.Millisecond), bus.ConnectionEvent(true, start.Add(time.Millisecond)))
	d.Process(start, pongMessage(id, start))

	s, err := iotObj.Status.GetDeviceStatus(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOnline, s.Status)
}

func TestDaemonSignalStampedBeforeReconnectIsAccepted(t *testing.T) {
	common.SetTestLoggerNop()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	start := time.Now()
	iotObj := getMemoryIOT()
	d := New(Options{
		IOT:       iotObj,
		Publisher: busMocks.NewMockPublisher(ctrl),
		Grace:     5 * time.Second,
		Now:       func() time.Time { return start },
	})

	id := uuid.NewString()
	// received on the old connection, dequeued after the reconnect
	d.HandleMessage(pongMessage(id, start.Add(59*time.Second)))
	d.Process(start.Add(60*time.Second), bus.ConnectionEvent(true, start.Add(60*time.Second)))
	drain(d)

	s, err := iotObj.Status.GetDeviceStatus(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, s.LastSeenAt.Equal(start.Add(59*time.Second)))

	// a live signal right after the reconnect is still inside the new window
	d.Process(start.Add(61*time.Second), pongMessage(id, start.Add(61*time.Second)))
	s, err = iotObj.Status.GetDeviceStatus(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, s.LastSeenAt.Equal(start.Add(59*time.Second)))
}

func TestDaemonRetainedReplayAfterReconnectIsIgnored(t *testing.T) {
	common.SetTestLoggerNop()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	start := time.Now()
	iotObj := getMemoryIOT()
	m := metrics.NewNop()
	d := New(Options{
		IOT:       iotObj,
		Publisher: busMocks.NewMockPublisher(ctrl),
		Metrics:   m,
		Grace:     5 * time.Second,
		Now:       func() time.Time { return start },
	})

	id := uuid.NewString()
	d.Process(start.Add(10*time.Second), statusMessage(id, "online"))

	// the client signals the reconnect before resubscribing, the broker then
	// replays the retained status while the loop is still busy
	d.HandleConnectionChange(true, start.Add(60*time.Second))
	retained := statusMessage(id, "offline")
	retained.Retained = true
	retained.ReceivedAt = start.Add(60*time.Second + 100*time.Millisecond)
	d.HandleMessage(retained)
	drain(d)

	s, err := iotObj.Status.GetDeviceStatus(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOnline, s.Status)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GraceIgnored))

	// the same payload once the window has passed is a real report
	d.Process(start.Add(66*time.Second), statusMessage(id, "offline"))
	s, err = iotObj.Status.GetDeviceStatus(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOffline, s.Status)
}

func TestDaemonConnectionEventsAreNotCountedAsMessages(t *testing.T) {
	common.SetTestLoggerNop()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	m := metrics.NewNop()
	d := New(Options{IOT: getMemoryIOT(), Publisher: busMocks.NewMockPublisher(ctrl), Metrics: m})
	d.HandleConnectionChange(false, time.Now())
	d.HandleConnectionChange(true, time.Now())
	drain(d)

	assert.Equal(t, 0, testutil.CollectAndCount(m.BusMessages))
}

func TestDaemonTelemetryDuringGrace(t *testing.T) {
	common.SetTestLoggerNop()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	start := time.Now()
	iotObj := getMemoryIOT()
	realtime := cache.NewRealtime()
	d := New(Options{
		Site:      &config.Site{Controllers: []config.SiteController{{ID: "esp32_grace", Location: "nursery"}}},
		IOT:       iotObj,
		Publisher: busMocks.NewMockPublisher(ctrl),
		Cache:     realtime,
		Grace:     5 * time.Second,
		Now:       func() time.Time { return start },
	})

	d.Process(start.Add(time.Second), telemetry("esp32_grace", "sht31", "humidity", "55"))

	assert.Equal(t, 55.0, realtime.Snapshot()["nursery"].Metrics["humidity"])
	readings, err := iotObj.Reading.GetDeviceReadings(context.Background(), "esp32_grace", 0)
	require.NoError(t, err)
	assert.NotEmpty(t, readings)
	_, err = iotObj.Status.GetDeviceStatus(context.Background(), "esp32_grace")
	assert.Error(t, err)
}

func TestDaemonIgnoresOwnCommands(t *testing.T) {
	common.SetTestLoggerNop()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	iotObj := getMemoryIOT()
	m := metrics.NewNop()
	d := New(Options{IOT: iotObj, Publisher: busMocks.NewMockPublisher(ctrl), Metrics: m})

	id := uuid.NewString()
	d.Process(time.Now(), bus.Message{Kind: bus.KindCommand, ControllerID: id, DeviceID: "fan1", Payload: "ON"})
	_, err := iotObj.Status.GetDeviceStatus(context.Background(), id)
	assert.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BusMessages.WithLabelValues(string(bus.KindCommand))))

	d.Process(time.Now(), bus.Message{Kind: bus.KindPong, ControllerID: id})
	_, err = iotObj.Status.GetDeviceStatus(context.Background(), id)
	assert.NoError(t, err)
}

func TestDaemonQueueDropsWhenFull(t *testing.T) {
	common.SetTestLoggerNop()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	m := metrics.NewNop()
	d := New(Options{IOT: getMemoryIOT(), Publisher: busMocks.NewMockPublisher(ctrl), Metrics: m, QueueSize: 2})

	for i := 0; i < 3; i++ {
		d.HandleMessage(statusMessage("esp32_a", "online"))
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsDropped))
}

func TestDaemonHeartbeat(t *testing.T) {
	common.SetTestLoggerNop()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	pub := busMocks.NewMockPublisher(ctrl)
	d := New(Options{IOT: getMemoryIOT(), Publisher: pub})

	// without a device document nothing is actuated
	d.Heartbeat(at(10, 0, 0))

	pub.EXPECT().Publish(bus.CommandTopic(testNamespace, "esp32_a", "fan1"), bus.QoSReliable, "ON").Return(nil).Times(1)
	pub.EXPECT().Publish(bus.CommandTopic(testNamespace, "esp32_b", "fan1"), bus.QoSReliable, "OFF").Return(nil).Times(1)
	pub.EXPECT().Publish(bus.CommandTopic(testNamespace, "esp32_a", "valve1"), bus.QoSReliable, "OPEN").Return(nil).Times(1)

	d.opts.Config = staticConfig{snap: config.Snapshot{Devices: loadTestDevices(t)}}
	d.ReloadConfig()
	d.Heartbeat(at(10, 0, 0))
	d.Heartbeat(at(10, 0, 0).Add(500 * time.Millisecond))
	d.Heartbeat(at(10, 0, 1))
}

func TestDaemonSweepUsesKnownControllers(t *testing.T) {
	common.SetTestLoggerNop()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	pub := busMocks.NewMockPublisher(ctrl)
	pub.EXPECT().Publish("greenhouse/esp32_a/ping", bus.QoSReliable, bus.PingPayload).Return(nil).Times(1)
	pub.EXPECT().Publish("greenhouse/esp32_c/ping", bus.QoSReliable, bus.PingPayload).Return(nil).Times(1)
	// controllers stored by other tests are pinged too
	pub.EXPECT().Publish(gomock.Any(), bus.QoSReliable, bus.PingPayload).Return(nil).AnyTimes()

	d := New(Options{Site: loadTestSite(t), IOT: getMemoryIOT(), Publisher: pub})
	d.Sweep(time.Now())
}

func TestDaemonRun(t *testing.T) {
	common.SetTestLoggerNop()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	pub := busMocks.NewMockPublisher(ctrl)
	pub.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	iotObj := getMemoryIOT()
	alerter := &recordingAlerter{}
	loader := config.NewLoader("testdata/config/devices.json", "testdata/config/alerts.json")
	d := New(Options{
		Site:               loadTestSite(t),
		Config:             loader,
		IOT:                iotObj,
		Publisher:          pub,
		Alerter:            alerter,
		Heartbeat:          10 * time.Millisecond,
		ConfigPollInterval: 20 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	id := uuid.NewString()
	d.HandleConnectionChange(true, time.Now())
	d.HandleMessage(bus.Message{Kind: bus.KindPong, ControllerID: id, ReceivedAt: time.Now()})

	assert.Eventually(t, func() bool {
		_, err := iotObj.Status.GetDeviceStatus(context.Background(), id)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("control loop did not stop")
	}

	assert.Equal(t, []string{alert.KeyRestart}, alerter.keys())
	assert.NotNil(t, d.Snapshot().Devices)
}
