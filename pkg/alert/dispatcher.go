// Package alert is the cooldown gated, multi channel alert dispatcher.
package alert

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"liyu1981.xyz/envctl-daemon/pkg/common"
	"liyu1981.xyz/envctl-daemon/pkg/config"
	"liyu1981.xyz/envctl-daemon/pkg/iot"
	"liyu1981.xyz/envctl-daemon/pkg/metrics"
	"liyu1981.xyz/envctl-daemon/pkg/models"
)

type Alert struct {
	Key   string
	Type  models.AlertType
	Title string
	Body  string
}

func OfflineKey(controllerID string) string { return "offline_" + controllerID }
func StuckKey(zoneID string) string         { return "stuck_" + zoneID }

// DefaultConcurrency bounds background deliveries when DispatcherOpts leaves it unset.
const DefaultConcurrency = 8

const (
	KeyTempLow  = "temp_low"
	KeyTempHigh = "temp_high"
	KeyRestart  = "daemon_restart"
)

type DispatcherOpts struct {
	Notifiers []Notifier
	// History is optional, nil skips recording.
	History     iot.IAlertLog
	Metrics     *metrics.Metrics
	Timeout     time.Duration
	Concurrency int
}

// Dispatcher must be driven from one goroutine: the cooldown table is not locked.
// At most Concurrency deliveries run in the background; Send never waits for a slot.
type Dispatcher struct {
	notifiers []Notifier
	history   iot.IAlertLog
	metrics   *metrics.Metrics
	timeout   time.Duration

	cooldown   map[string]time.Time
	deliveries errgroup.Group
	logger     *zap.Logger
}

func NewDispatcher(opts DispatcherOpts) *Dispatcher {
	if opts.Timeout == 0 {
		opts.Timeout = common.AlertHTTPTimeout
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewNop()
	}
	d := &Dispatcher{
		notifiers: opts.Notifiers,
		history:   opts.History,
		metrics:   opts.Metrics,
		timeout:   opts.Timeout,
		cooldown:  map[string]time.Time{},
		logger:    common.GetCoreLogger(common.LoggerCategoryAlert),
	}
	d.deliveries.SetLimit(opts.Concurrency)
	return d
}

// Send dispatches alert unless its key is cooling down. It returns whether a
// delivery was started. The cooldown timestamp is taken before delivery begins.
func (d *Dispatcher) Send(now time.Time, cfg *config.AlertConfig, alert Alert) bool {
	if cfg == nil {
		d.logger.Warn("Alert dropped, no alert configuration available", zap.String("key", alert.Key))
		d.metrics.Alerts.WithLabelValues("dropped").Inc()
		return false
	}

	cooldown := cfg.Cooldown()
	if last, ok := d.cooldown[alert.Key]; ok && now.Sub(last) < cooldown {
		d.logger.Info("Alert suppressed by cooldown",
			zap.String("key", alert.Key),
			zap.Time("last_sent_at", last),
			zap.Duration("cooldown", cooldown))
		d.metrics.Alerts.WithLabelValues("suppressed").Inc()
		return false
	}
	previous, hadPrevious := d.cooldown[alert.Key]
	d.cooldown[alert.Key] = now

	var channels []Notifier
	for _, n := range d.notifiers {
		if n.Enabled(cfg) {
			channels = append(channels, n)
		}
	}

	// deliver against a private copy, the loop may swap the document meanwhile
	cfgCopy := *cfg
	started := d.deliveries.TryGo(func() error {
		d.deliver(now, &cfgCopy, alert, channels)
		return nil
	})
	if !started {
		// every slot is busy: drop, and let the next occurrence try again
		if hadPrevious {
			d.cooldown[alert.Key] = previous
		} else {
			delete(d.cooldown, alert.Key)
		}
		d.logger.Warn("Alert dropped, all delivery slots busy", zap.String("key", alert.Key))
		d.metrics.Alerts.WithLabelValues("dropped").Inc()
		return false
	}

	d.logger.Info("Alert found", zap.String("key", alert.Key), zap.String("title", alert.Title),
		zap.Int("channels", len(channels)))
	d.metrics.Alerts.WithLabelValues("dispatched").Inc()
	return true
}

func (d *Dispatcher) deliver(at time.Time, cfg *config.AlertConfig, alert Alert, channels []Notifier) {
	var names, failures []string
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, n := range channels {
		names = append(names, n.Name())
		wg.Add(1)
		go func(n Notifier) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
			defer cancel()

			if err := n.Notify(ctx, cfg, alert); err != nil {
				d.logger.Error("Alert channel failed", zap.String("key", alert.Key),
					zap.String("channel", n.Name()), zap.Error(err))
				d.metrics.Alerts.WithLabelValues("failed").Inc()
				mu.Lock()
				failures = append(failures, n.Name()+": "+err.Error())
				mu.Unlock()
				return
			}
			d.logger.Info("Alert delivered", zap.String("key", alert.Key), zap.String("channel", n.Name()))
		}(n)
	}
	wg.Wait()

	if d.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), common.StorageTimeout)
	defer cancel()
	record := &models.Alert{
		Key:       alert.Key,
		Type:      alert.Type,
		Title:     alert.Title,
		Message:   alert.Body,
		Channels:  strings.Join(names, ","),
		Failures:  strings.Join(failures, "; "),
		Timestamp: at,
	}
	if err := d.history.RecordAlert(ctx, record); err != nil {
		d.logger.Error("Failed to record alert history", zap.String("key", alert.Key), zap.Error(err))
	}
}

// Wait blocks until every started delivery has finished.
func (d *Dispatcher) Wait() {
	_ = d.deliveries.Wait()
}

// LastSentAt exposes the cooldown table entry for key.
func (d *Dispatcher) LastSentAt(key string) (time.Time, bool) {
	t, ok := d.cooldown[key]
	return t, ok
}
