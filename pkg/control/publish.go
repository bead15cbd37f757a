package control

import (
	"go.uber.org/zap"
	"liyu1981.xyz/envctl-daemon/pkg/bus"
	"liyu1981.xyz/envctl-daemon/pkg/metrics"
)

// commander publishes actuator directives on the reliable tier. A rejected
// publish is logged and reported so the caller keeps its previous state and
// retries on the next heartbeat.
type commander struct {
	namespace string
	publisher bus.Publisher
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

func (c *commander) command(controllerID, deviceID string, d bus.Directive) error {
	topic := bus.CommandTopic(c.namespace, controllerID, deviceID)
	if err := c.publisher.Publish(topic, bus.QoSReliable, string(d)); err != nil {
		c.metrics.PublishFailures.Inc()
		c.logger.Error("Failed to publish command",
			zap.String("topic", topic), zap.String("directive", string(d)), zap.Error(err))
		return err
	}
	c.metrics.CommandsPublished.WithLabelValues(string(d)).Inc()
	c.logger.Info("Published command", zap.String("topic", topic), zap.String("directive", string(d)))
	return nil
}
