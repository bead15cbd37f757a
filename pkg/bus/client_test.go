package bus

import (
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liyu1981.xyz/envctl-daemon/pkg/common"
	_ "liyu1981.xyz/envctl-daemon/pkg/testing"
)

type doneToken struct {
	mqtt.Token
}

func (doneToken) Wait() bool                     { return true }
func (doneToken) WaitTimeout(time.Duration) bool { return true }
func (doneToken) Error() error                   { return nil }
func (doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type retainedMessage struct {
	mqtt.Message
	topic   string
	payload string
}

func (m retainedMessage) Topic() string   { return m.topic }
func (m retainedMessage) Payload() []byte { return []byte(m.payload) }
func (m retainedMessage) Retained() bool  { return true }

// brokerStub replays its retained messages synchronously on subscribe.
type brokerStub struct {
	mqtt.Client
	retained []retainedMessage
	filters  []string
}

func (b *brokerStub) IsConnected() bool { return false }

func (b *brokerStub) SubscribeMultiple(filters map[string]byte, callback mqtt.MessageHandler) mqtt.Token {
	for f := range filters {
		b.filters = append(b.filters, f)
	}
	for _, m := range b.retained {
		callback(b, m)
	}
	return doneToken{}
}

func newStubbedClient(t *testing.T, stub *brokerStub, order *[]Message) *Client {
	t.Helper()
	c := NewClient(Options{
		Broker:    "tcp://127.0.0.1:1",
		Namespace: "gh",
		OnConnectionChange: func(connected bool, at time.Time) {
			*order = append(*order, ConnectionEvent(connected, at))
		},
	})
	c.client = stub
	require.NoError(t, c.Subscribe(func(msg Message) {
		*order = append(*order, msg)
	}))
	return c
}

func TestOnConnectSignalsBeforeRetainedReplay(t *testing.T) {
	common.SetTestLoggerNop()

	stub := &brokerStub{retained: []retainedMessage{
		{topic: "gh/esp32_a/status", payload: "offline"},
	}}
	var order []Message
	c := newStubbedClient(t, stub, &order)
	assert.Empty(t, stub.filters, "subscribing while disconnected waits for onConnect")

	c.onConnect(stub)

	require.Len(t, order, 2)
	assert.Equal(t, KindConnected, order[0].Kind)
	assert.Equal(t, KindStatus, order[1].Kind)
	assert.Equal(t, "esp32_a", order[1].ControllerID)
	assert.True(t, order[1].Retained)
	assert.False(t, order[1].ReceivedAt.Before(order[0].ReceivedAt),
		"replayed messages are stamped at or after the connect event")
	assert.ElementsMatch(t, SubscriptionFilters("gh"), stub.filters)
}

func TestOnConnectionLostSignalsDisconnect(t *testing.T) {
	common.SetTestLoggerNop()

	stub := &brokerStub{}
	var order []Message
	c := newStubbedClient(t, stub, &order)

	c.onConnectionLost(stub, errors.New("EOF"))
	c.onConnect(stub)

	require.Len(t, order, 2)
	assert.Equal(t, KindDisconnected, order[0].Kind)
	assert.Equal(t, KindConnected, order[1].Kind)
	assert.False(t, order[0].ReceivedAt.IsZero())
}

func TestConnectionEventsNeverParse(t *testing.T) {
	for _, kind := range []Kind{KindConnected, KindDisconnected} {
		_, ok := ParseTopic("gh", "gh/esp32_a/"+string(kind))
		assert.False(t, ok, string(kind))
	}
}
