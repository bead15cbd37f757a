package control

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"liyu1981.xyz/envctl-daemon/pkg/alert"
	"liyu1981.xyz/envctl-daemon/pkg/bus"
	"liyu1981.xyz/envctl-daemon/pkg/cache"
	"liyu1981.xyz/envctl-daemon/pkg/common"
	"liyu1981.xyz/envctl-daemon/pkg/config"
	"liyu1981.xyz/envctl-daemon/pkg/iot"
	"liyu1981.xyz/envctl-daemon/pkg/metrics"
	"liyu1981.xyz/envctl-daemon/pkg/models"
)

const DefaultQueueSize = 1024

const connectionEnqueueTimeout = time.Second

// ConfigSource yields the configuration for the next cycles, see config.Loader.
type ConfigSource interface {
	Load() config.Snapshot
}

type Options struct {
	Namespace string
	Site      *config.Site
	Config    ConfigSource
	IOT       *iot.IOT
	Publisher bus.Publisher
	Cache     *cache.Realtime
	Alerter   Alerter
	Metrics   *metrics.Metrics

	Heartbeat time.Duration
	// Grace zero disables the startup grace filter.
	Grace              time.Duration
	LivenessInterval   time.Duration
	ConfigPollInterval time.Duration
	QueueSize          int
	// Now defaults to time.Now.
	Now func() time.Time
}

// Daemon is the control loop. Bus callbacks only enqueue, everything else
// runs on the goroutine calling Run.
type Daemon struct {
	opts     Options
	snapshot config.Snapshot

	ingest   *Ingest
	liveness *Liveness
	fans     *FanController
	mist     *MistController
	grace    *GraceFilter

	// events carries bus messages and connection changes in arrival order
	events  chan bus.Message
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func New(opts Options) *Daemon {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Namespace == "" {
		opts.Namespace = common.DefaultNamespace
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewNop()
	}
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = common.DefaultHeartbeat
	}
	if opts.Grace < 0 {
		opts.Grace = 0
	}
	if opts.LivenessInterval <= 0 {
		opts.LivenessInterval = common.LivenessInterval
	}
	if opts.ConfigPollInterval <= 0 {
		opts.ConfigPollInterval = common.ConfigPollInterval
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}

	return &Daemon{
		opts: opts,
		ingest: NewIngest(IngestOpts{
			Site:     opts.Site,
			Cache:    opts.Cache,
			Readings: opts.IOT.Reading,
			Alerter:  opts.Alerter,
			Metrics:  opts.Metrics,
		}),
		liveness: NewLiveness(LivenessOpts{
			Namespace: opts.Namespace,
			Status:    opts.IOT.Status,
			Publisher: opts.Publisher,
			Alerter:   opts.Alerter,
			Metrics:   opts.Metrics,
		}),
		fans:    NewFanController(opts.Namespace, opts.Publisher, opts.Metrics),
		mist:    NewMistController(opts.Namespace, opts.Publisher, opts.Alerter, opts.Metrics),
		grace:   NewGraceFilter(opts.Now(), opts.Grace, opts.Metrics),
		events:  make(chan bus.Message, opts.QueueSize),
		metrics: opts.Metrics,
		logger:  common.GetCoreLogger(common.LoggerCategoryLoop),
	}
}

// HandleMessage is the bus callback. It never blocks: a full queue drops the message.
func (d *Daemon) HandleMessage(msg bus.Message) {
	select {
	case d.events <- msg:
	default:
		d.metrics.EventsDropped.Inc()
		d.logger.Warn("Event queue full, message dropped", zap.String("topic", msg.Topic))
	}
}

// HandleConnectionChange is the bus connection callback. The event shares the
// message queue so a reconnect stays ahead of the retained replay behind it.
// Unlike messages it waits for room, up to connectionEnqueueTimeout.
func (d *Daemon) HandleConnectionChange(connected bool, at time.Time) {
	select {
	case d.events <- bus.ConnectionEvent(connected, at):
	case <-time.After(connectionEnqueueTimeout):
		d.metrics.EventsDropped.Inc()
		d.logger.Warn("Connection event dropped", zap.Bool("connected", connected))
	}
}

func (d *Daemon) Run(ctx context.Context) error {
	d.ReloadConfig()
	d.AnnounceRestart(d.opts.Now())

	heartbeat := time.NewTicker(d.opts.Heartbeat)
	defer heartbeat.Stop()
	liveness := time.NewTicker(d.opts.LivenessInterval)
	defer liveness.Stop()
	poll := time.NewTicker(d.opts.ConfigPollInterval)
	defer poll.Stop()

	d.logger.Info("Control loop started",
		zap.String("namespace", d.opts.Namespace),
		zap.Duration("heartbeat", d.opts.Heartbeat),
		zap.Duration("grace", d.opts.Grace))

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Control loop stopped", zap.Error(ctx.Err()))
			return nil
		case msg := <-d.events:
			at := msg.ReceivedAt
			if at.IsZero() {
				at = d.opts.Now()
			}
			d.Process(at, msg)
		case <-heartbeat.C:
			d.Heartbeat(d.opts.Now())
		case <-liveness.C:
			d.Sweep(d.opts.Now())
		case <-poll.C:
			d.ReloadConfig()
		}
	}
}

func (d *Daemon) onConnectionChange(now time.Time, connected bool) {
	if !connected {
		d.logger.Warn("Bus disconnected")
		return
	}
	// a resubscribe replays retained topics again
	d.grace.Restart(now)
	d.logger.Info("Bus connected, grace window opened", zap.Duration("grace", d.opts.Grace))
}

// Process routes one inbound message or connection event.
func (d *Daemon) Process(now time.Time, msg bus.Message) {
	switch msg.Kind {
	case bus.KindConnected, bus.KindDisconnected:
		d.onConnectionChange(now, msg.Kind == bus.KindConnected)
		return
	}
	d.metrics.BusMessages.WithLabelValues(string(msg.Kind)).Inc()

	switch msg.Kind {
	case bus.KindTelemetry:
		d.ingest.Handle(now, msg, d.snapshot.Alerts)
		if d.grace.Accept(now, msg) {
			d.liveness.Observe(now, msg.ControllerID)
		}
	case bus.KindStatus:
		if d.grace.Accept(now, msg) {
			d.liveness.ObserveStatus(now, msg.ControllerID, msg.Payload)
		}
	case bus.KindPong, bus.KindState:
		if d.grace.Accept(now, msg) {
			d.liveness.Observe(now, msg.ControllerID)
		}
	case bus.KindCommand, bus.KindPing:
		// our own publishes echoed back by the wildcard subscription
	default:
		d.logger.Debug("Unhandled message kind", zap.String("topic", msg.Topic))
	}
}

// Heartbeat runs the actuation cycle. Without a device document nothing is actuated.
func (d *Daemon) Heartbeat(now time.Time) {
	devices := d.snapshot.Devices
	if devices == nil {
		return
	}
	d.fans.Run(devices.Fans)
	d.mist.Run(now, devices.MistZones, d.snapshot.Alerts)
}

// Sweep runs the liveness cycle.
func (d *Daemon) Sweep(now time.Time) {
	known := d.liveness.KnownControllers(d.opts.Site, d.snapshot.Devices)
	d.liveness.Sweep(now, known, d.snapshot)
}

func (d *Daemon) ReloadConfig() {
	if d.opts.Config == nil {
		return
	}
	d.snapshot = d.opts.Config.Load()
}

// AnnounceRestart sends the restart alert when the alert document asks for it.
func (d *Daemon) AnnounceRestart(now time.Time) {
	alerts := d.snapshot.Alerts
	if alerts == nil || !alerts.NotifyOnRestart || d.opts.Alerter == nil {
		return
	}
	host, _ := os.Hostname()
	d.opts.Alerter.Send(now, alerts, alert.Alert{
		Key:   alert.KeyRestart,
		Type:  models.AlertTypeRestart,
		Title: "Daemon restarted",
		Body:  fmt.Sprintf("envctld started on %s at %s.", host, now.Format(time.DateTime)),
	})
}

func (d *Daemon) Snapshot() config.Snapshot { return d.snapshot }
func (d *Daemon) Fans() *FanController      { return d.fans }
func (d *Daemon) Mist() *MistController     { return d.mist }
func (d *Daemon) Liveness() *Liveness       { return d.liveness }
func (d *Daemon) Ingest() *Ingest           { return d.ingest }
