// Package bus is the message bus client: the topic grammar shared with the field
// controllers and an MQTT transport.
package bus

import (
	"strings"
	"time"
)

type Kind string

const (
	KindTelemetry Kind = "telemetry"
	KindStatus    Kind = "status"
	KindPong      Kind = "pong"
	KindState     Kind = "state"
	KindCommand   Kind = "command"
	KindPing      Kind = "ping"

	// synthesized by the client on connection changes, never parsed from a topic
	KindConnected    Kind = "connected"
	KindDisconnected Kind = "disconnected"
)

type QoS byte

const (
	QoSTelemetry QoS = 0
	QoSReliable  QoS = 1
)

// Directive is an idempotent actuator command payload.
type Directive string

const (
	DirectiveOn    Directive = "ON"
	DirectiveOff   Directive = "OFF"
	DirectiveOpen  Directive = "OPEN"
	DirectiveClose Directive = "CLOSE"
)

const PingPayload = "ping"

// Message is one decoded inbound bus message.
type Message struct {
	Kind         Kind
	Topic        string
	ControllerID string
	DeviceID     string
	SensorType   string
	Metric       string
	Payload      string
	Retained     bool
	ReceivedAt   time.Time
}

// ConnectionEvent is the in-band marker for a connection change at at, so
// consumers see it ordered with the messages around it.
func ConnectionEvent(connected bool, at time.Time) Message {
	kind := KindDisconnected
	if connected {
		kind = KindConnected
	}
	return Message{Kind: kind, ReceivedAt: at}
}

// ParseTopic routes a topic under namespace ns. Topics outside the grammar return false.
//
//	<ns>/<controller>/status
//	<ns>/<controller>/pong
//	<ns>/<controller>/ping
//	<ns>/<controller>/<device>/state
//	<ns>/<controller>/<device>/cmd
//	<ns>/<controller>/<sensorType>/<metric>
func ParseTopic(ns, topic string) (Message, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) < 3 || parts[0] != ns {
		return Message{}, false
	}
	for _, p := range parts[1:] {
		if p == "" {
			return Message{}, false
		}
	}

	msg := Message{Topic: topic, ControllerID: parts[1]}
	switch len(parts) {
	case 3:
		switch parts[2] {
		case "status":
			msg.Kind = KindStatus
		case "pong":
			msg.Kind = KindPong
		case "ping":
			msg.Kind = KindPing
		default:
			return Message{}, false
		}
	case 4:
		switch parts[3] {
		case "state":
			msg.Kind = KindState
			msg.DeviceID = parts[2]
		case "cmd":
			msg.Kind = KindCommand
			msg.DeviceID = parts[2]
		default:
			msg.Kind = KindTelemetry
			msg.SensorType = parts[2]
			msg.Metric = parts[3]
		}
	default:
		return Message{}, false
	}
	return msg, true
}

func PingTopic(ns, controllerID string) string {
	return ns + "/" + controllerID + "/ping"
}

func CommandTopic(ns, controllerID, deviceID string) string {
	return ns + "/" + controllerID + "/" + deviceID + "/cmd"
}

func TelemetryTopic(ns, controllerID, sensorType, metric string) string {
	return ns + "/" + controllerID + "/" + sensorType + "/" + metric
}

// SubscriptionFilters covers every inbound topic of the grammar.
func SubscriptionFilters(ns string) []string {
	return []string{
		ns + "/+/status",
		ns + "/+/pong",
		ns + "/+/+/+",
	}
}

// Publisher is what the controllers need from the bus.
type Publisher interface {
	Publish(topic string, qos QoS, payload string) error
}
