package control

import (
	"time"

	"go.uber.org/zap"
	"liyu1981.xyz/envctl-daemon/pkg/bus"
	"liyu1981.xyz/envctl-daemon/pkg/common"
	"liyu1981.xyz/envctl-daemon/pkg/metrics"
)

// GraceFilter rejects liveness signals that arrive right after the bus
// (re)connects, when the broker replays retained topics.
type GraceFilter struct {
	window  time.Duration
	since   time.Time
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewGraceFilter(start time.Time, window time.Duration, m *metrics.Metrics) *GraceFilter {
	if m == nil {
		m = metrics.NewNop()
	}
	return &GraceFilter{
		window:  window,
		since:   start,
		metrics: m,
		logger:  common.GetCoreLogger(common.LoggerCategoryGrace),
	}
}

// Restart opens a new grace window at now.
func (g *GraceFilter) Restart(now time.Time) {
	g.since = now
}

// Active reports whether now falls in [since, since+window). Signals stamped
// before the window opened belong to the previous connection.
func (g *GraceFilter) Active(now time.Time) bool {
	if g.window <= 0 || now.Before(g.since) {
		return false
	}
	return now.Sub(g.since) < g.window
}

// Accept reports whether msg may change liveness state. Rejected messages are logged only.
func (g *GraceFilter) Accept(now time.Time, msg bus.Message) bool {
	if !g.Active(now) {
		return true
	}
	g.metrics.GraceIgnored.Inc()
	g.logger.Info("Ignored liveness signal during startup grace",
		zap.String("topic", msg.Topic),
		zap.String("payload", msg.Payload),
		zap.Bool("retained", msg.Retained),
		zap.Duration("since_connect", now.Sub(g.since)))
	return false
}
