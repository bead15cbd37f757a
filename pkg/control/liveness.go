package control

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
	"liyu1981.xyz/envctl-daemon/pkg/alert"
	"liyu1981.xyz/envctl-daemon/pkg/bus"
	"liyu1981.xyz/envctl-daemon/pkg/common"
	"liyu1981.xyz/envctl-daemon/pkg/config"
	"liyu1981.xyz/envctl-daemon/pkg/iot"
	"liyu1981.xyz/envctl-daemon/pkg/metrics"
	"liyu1981.xyz/envctl-daemon/pkg/models"
)

var offlineWords = map[string]bool{
	"offline": true, "off": true, "0": true, "dead": true,
	"disconnected": true, "down": true, "lwt": true,
}

// NormalizeStatus maps a free text status payload onto online/offline.
// Anything not recognised as offline counts as online since the device is talking.
func NormalizeStatus(payload string) models.Status {
	if offlineWords[strings.ToLower(strings.TrimSpace(payload))] {
		return models.StatusOffline
	}
	return models.StatusOnline
}

type LivenessOpts struct {
	Namespace string
	Status    iot.IStatus
	Publisher bus.Publisher
	Alerter   Alerter
	Metrics   *metrics.Metrics
	// StaleAfter defaults to common.StaleAfter.
	StaleAfter time.Duration
	// MissedForOffline defaults to common.MissedPingsForOffline.
	MissedForOffline int
}

// Liveness supervises controllers: UNKNOWN -> ONLINE <-> OFFLINE, with a
// consecutive stale sweep count before going offline.
type Liveness struct {
	namespace        string
	status           iot.IStatus
	publisher        bus.Publisher
	alerter          Alerter
	metrics          *metrics.Metrics
	staleAfter       time.Duration
	missedForOffline int

	missed MissedPings
	logger *zap.Logger
}

func NewLiveness(opts LivenessOpts) *Liveness {
	if opts.StaleAfter == 0 {
		opts.StaleAfter = common.StaleAfter
	}
	if opts.MissedForOffline <= 0 {
		opts.MissedForOffline = common.MissedPingsForOffline
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewNop()
	}
	return &Liveness{
		namespace:        opts.Namespace,
		status:           opts.Status,
		publisher:        opts.Publisher,
		alerter:          opts.Alerter,
		metrics:          opts.Metrics,
		staleAfter:       opts.StaleAfter,
		missedForOffline: opts.MissedForOffline,
		missed:           MissedPings{},
		logger:           common.GetCoreLogger(common.LoggerCategoryLiveness),
	}
}

// Observe records an accepted signal from controllerID.
func (l *Liveness) Observe(now time.Time, controllerID string) {
	l.missed[controllerID] = 0

	ctx, cancel := context.WithTimeout(context.Background(), common.StorageTimeout)
	defer cancel()
	if err := l.status.MarkOnline(ctx, controllerID, now); err != nil {
		l.logger.Error("Failed to mark controller online", zap.String("controller_id", controllerID), zap.Error(err))
	}
}

// ObserveStatus handles a status topic payload. An explicit offline payload
// takes the controller offline at once.
func (l *Liveness) ObserveStatus(now time.Time, controllerID, payload string) {
	if NormalizeStatus(payload) == models.StatusOnline {
		l.Observe(now, controllerID)
		return
	}

	l.missed[controllerID] = 0
	ctx, cancel := context.WithTimeout(context.Background(), common.StorageTimeout)
	defer cancel()
	if err := l.status.MarkOffline(ctx, controllerID); err != nil {
		l.logger.Error("Failed to mark controller offline", zap.String("controller_id", controllerID), zap.Error(err))
		return
	}
	l.logger.Info("Controller reported offline", zap.String("controller_id", controllerID), zap.String("payload", payload))
}

// KnownControllers is the union of the site file, stored statuses and
// controller bindings of the device document, sorted.
func (l *Liveness) KnownControllers(site *config.Site, devices *config.DeviceConfig) []string {
	seen := map[string]bool{}
	for _, id := range site.ControllerIDs() {
		seen[id] = true
	}
	if devices != nil {
		for _, id := range devices.ControllerIDs() {
			seen[id] = true
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), common.StorageTimeout)
	defer cancel()
	statuses, err := l.status.ListDeviceStatuses(ctx)
	if err != nil {
		l.logger.Error("Failed to list device statuses", zap.Error(err))
	}
	for _, s := range statuses {
		seen[s.ControllerID] = true
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Sweep runs one liveness cycle: ping fan-out, stale detection, recovery reset.
func (l *Liveness) Sweep(now time.Time, known []string, snap config.Snapshot) {
	for _, id := range known {
		topic := bus.PingTopic(l.namespace, id)
		if err := l.publisher.Publish(topic, bus.QoSReliable, bus.PingPayload); err != nil {
			l.metrics.PublishFailures.Inc()
			l.logger.Warn("Failed to publish ping", zap.String("topic", topic), zap.Error(err))
		}
	}

	cutoff := now.Add(-l.staleAfter)

	ctx, cancel := context.WithTimeout(context.Background(), common.StorageTimeout)
	stale, err := l.status.GetStaleControllers(ctx, cutoff)
	cancel()
	if err != nil {
		l.logger.Error("Failed to query stale controllers", zap.Error(err))
	}
	for _, s := range stale {
		l.missed[s.ControllerID]++
		count := l.missed[s.ControllerID]
		l.logger.Info("Controller stale", zap.String("controller_id", s.ControllerID),
			zap.Time("last_seen_at", s.LastSeenAt), zap.Int("missed", count))
		if count >= l.missedForOffline {
			l.goOffline(now, s, snap)
		}
	}

	ctx, cancel = context.WithTimeout(context.Background(), common.StorageTimeout)
	fresh, err := l.status.GetFreshControllers(ctx, cutoff)
	cancel()
	if err != nil {
		l.logger.Error("Failed to query fresh controllers", zap.Error(err))
	}
	for _, s := range fresh {
		l.missed[s.ControllerID] = 0
	}
}

func (l *Liveness) goOffline(now time.Time, s models.DeviceStatus, snap config.Snapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), common.StorageTimeout)
	defer cancel()
	if err := l.status.MarkOffline(ctx, s.ControllerID); err != nil {
		// counter kept, the next sweep tries again
		l.logger.Error("Failed to mark controller offline", zap.String("controller_id", s.ControllerID), zap.Error(err))
		return
	}
	l.missed[s.ControllerID] = 0
	l.metrics.OfflineTransitions.Inc()
	l.logger.Warn("Controller marked offline", zap.String("controller_id", s.ControllerID),
		zap.Time("last_seen_at", s.LastSeenAt))

	zoneID, backs := snap.Devices.BacksRunningAutoZone(s.ControllerID)
	if !backs || snap.Alerts == nil || !snap.Alerts.OfflineAlertEnabled || l.alerter == nil {
		return
	}
	l.alerter.Send(now, snap.Alerts, alert.Alert{
		Key:   alert.OfflineKey(s.ControllerID),
		Type:  models.AlertTypeOffline,
		Title: "Controller offline",
		Body: fmt.Sprintf("Controller %s has not been seen since %s and drives running zone %s.",
			s.ControllerID, s.LastSeenAt.Local().Format(time.DateTime), zoneID),
	})
}

// Missed returns the current stale sweep count for controllerID.
func (l *Liveness) Missed(controllerID string) int {
	return l.missed[controllerID]
}
