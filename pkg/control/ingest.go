package control

import (
	"context"
	"fmt"
	"strconv"
	"strings"
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

const MetricTemperature = "temperature"

type IngestOpts struct {
	Site     *config.Site
	Cache    *cache.Realtime
	Readings iot.IReading
	Alerter  Alerter
	Metrics  *metrics.Metrics
	// Interval defaults to common.SensorThrottleInterval.
	Interval time.Duration
}

// Ingest handles telemetry samples: cache, temperature band and throttled storage.
type Ingest struct {
	site     *config.Site
	cache    *cache.Realtime
	readings iot.IReading
	alerter  Alerter
	metrics  *metrics.Metrics
	interval time.Duration

	throttle     ThrottleState
	temperatures map[string]float64
	logger       *zap.Logger
}

func NewIngest(opts IngestOpts) *Ingest {
	if opts.Interval == 0 {
		opts.Interval = common.SensorThrottleInterval
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewNop()
	}
	return &Ingest{
		site:         opts.Site,
		cache:        opts.Cache,
		readings:     opts.Readings,
		alerter:      opts.Alerter,
		metrics:      opts.Metrics,
		interval:     opts.Interval,
		throttle:     ThrottleState{},
		temperatures: map[string]float64{},
		logger:       common.GetCoreLogger(common.LoggerCategoryIngest),
	}
}

// Handle processes one telemetry message. It returns false when the payload is
// not a number, in which case nothing was recorded.
func (in *Ingest) Handle(now time.Time, msg bus.Message, alerts *config.AlertConfig) bool {
	value, err := strconv.ParseFloat(strings.TrimSpace(msg.Payload), 64)
	if err != nil {
		in.logger.Warn("Dropped non numeric telemetry", zap.String("topic", msg.Topic),
			zap.String("payload", msg.Payload))
		return false
	}

	in.updateCache(now, msg, value)

	if msg.Metric == MetricTemperature {
		in.temperatures[msg.ControllerID] = value
		in.checkTemperature(now, alerts)
	}

	in.store(now, msg, value)
	return true
}

func (in *Ingest) updateCache(now time.Time, msg bus.Message, value float64) {
	if in.cache == nil {
		return
	}
	location, ok := in.site.Location(msg.ControllerID)
	if !ok {
		in.logger.Debug("No location for controller, cache not updated", zap.String("controller_id", msg.ControllerID))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), common.StorageTimeout)
	defer cancel()
	if err := in.cache.Update(ctx, location, msg.Metric, value, now); err != nil {
		in.logger.Warn("Failed to write realtime cache", zap.String("location", location), zap.Error(err))
	}
}

func (in *Ingest) store(now time.Time, msg bus.Message, value float64) {
	key := throttleKey{controllerID: msg.ControllerID, sensorType: msg.SensorType, metric: msg.Metric}
	if last, ok := in.throttle[key]; ok && now.Sub(last) < in.interval {
		in.metrics.SensorWrites.WithLabelValues("throttled").Inc()
		return
	}
	// the attempt opens a new window even when the write fails
	in.throttle[key] = now

	ctx, cancel := context.WithTimeout(context.Background(), common.StorageTimeout)
	defer cancel()
	err := in.readings.InsertReading(ctx, &models.SensorReading{
		ControllerID: msg.ControllerID,
		SensorType:   msg.SensorType,
		Metric:       msg.Metric,
		Value:        value,
		Timestamp:    now,
	})
	if err != nil {
		in.metrics.SensorWrites.WithLabelValues("failed").Inc()
		in.logger.Error("Failed to store sensor reading", zap.String("topic", msg.Topic), zap.Error(err))
		return
	}
	in.metrics.SensorWrites.WithLabelValues("stored").Inc()
}

// MeanTemperature averages the latest sample of every controller that ever reported one.
func (in *Ingest) MeanTemperature() (float64, bool) {
	if len(in.temperatures) == 0 {
		return 0, false
	}
	values := make([]float64, 0, len(in.temperatures))
	for _, v := range in.temperatures {
		values = append(values, v)
	}
	sum := common.Reducer(values, func(acc float64, v float64) float64 { return acc + v }, 0.0)
	return sum / float64(len(values)), true
}

func (in *Ingest) checkTemperature(now time.Time, alerts *config.AlertConfig) {
	if alerts == nil || !alerts.Temperature.Enabled || in.alerter == nil {
		return
	}
	mean, ok := in.MeanTemperature()
	if !ok {
		return
	}

	band := alerts.Temperature
	switch {
	case mean < band.Low:
		in.alerter.Send(now, alerts, alert.Alert{
			Key:   alert.KeyTempLow,
			Type:  models.AlertTypeTemperature,
			Title: "Temperature low",
			Body:  fmt.Sprintf("Mean temperature %.2f is below %.2f across %d controllers.", mean, band.Low, len(in.temperatures)),
		})
	case mean > band.High:
		in.alerter.Send(now, alerts, alert.Alert{
			Key:   alert.KeyTempHigh,
			Type:  models.AlertTypeTemperature,
			Title: "Temperature high",
			Body:  fmt.Sprintf("Mean temperature %.2f is above %.2f across %d controllers.", mean, band.High, len(in.temperatures)),
		})
	}
}
