package mqtt

import (
	"context"
	"encoding/json"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/eclipse/paho.mqtt.golang/packets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"greenhouse-dashboard/internal/config"
	"greenhouse-dashboard/internal/modules/irrigation/types"
)

func TestTopics(t *testing.T) {
	assert.Equal(t, "greenhouse/zones/inv2_zona1_zone/state", ZoneTopic("greenhouse", "inv2_zona1_zone"))
	assert.Equal(t, "fresas/zones/summary", SummaryTopic("fresas"))
}

func TestZoneMessage_JSON(t *testing.T) {
	ts := time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC)
	msg := zoneMessage(types.ZoneState{
		ID: "inv2_zona2_zone", Name: "Greenhouse 2 - Zone 2", Runtime: 12, Status: types.ZoneActive, LastUpdate: ts,
	})

	b, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"zone_id": "inv2_zona2_zone",
		"name": "Greenhouse 2 - Zone 2",
		"runtime_s": 12,
		"active": true,
		"updated_at": "2025-06-03T09:00:00Z"
	}`, string(b))
}

func testConfig() config.Config {
	return config.Config{MQTTBroker: "127.0.0.1", MQTTPort: 1, MQTTClientID: "test", MQTTTopicPrefix: "greenhouse"}
}

func TestPublishZones_NotConnected(t *testing.T) {
	p := NewPublisher(testConfig(), nil)

	err := p.PublishZones(types.ZoneSnapshot{})

	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestConnect_AfterDisconnect(t *testing.T) {
	p := NewPublisher(testConfig(), nil)
	p.Disconnect()
	p.Disconnect()

	err := p.Connect(context.Background())

	assert.ErrorIs(t, err, ErrStopped)
	assert.False(t, p.IsConnected())
}

func TestConnect_RespectsContext(t *testing.T) {
	p := NewPublisher(testConfig(), nil)
	defer p.Disconnect()

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	err := p.Connect(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// fakeBroker accepts one client and acknowledges CONNECT, QoS 1 PUBLISH and PINGREQ.
type fakeBroker struct {
	ln net.Listener

	mu     sync.Mutex
	topics []string
}

func startFakeBroker(t *testing.T) *fakeBroker {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	b := &fakeBroker{ln: ln}
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go b.serve(conn)
		}
	}()
	return b
}

func (b *fakeBroker) port() int {
	return b.ln.Addr().(*net.TCPAddr).Port
}

func (b *fakeBroker) serve(conn net.Conn) {
	defer func() { _ = conn.Close() }()
	for {
		cp, err := packets.ReadPacket(conn)
		if err != nil {
			return
		}
		switch pkt := cp.(type) {
		case *packets.ConnectPacket:
			ack := packets.NewControlPacket(packets.Connack).(*packets.ConnackPacket)
			ack.ReturnCode = packets.Accepted
			if err := ack.Write(conn); err != nil {
				return
			}
		case *packets.PublishPacket:
			b.mu.Lock()
			b.topics = append(b.topics, pkt.TopicName)
			b.mu.Unlock()
			if pkt.Qos == 1 {
				ack := packets.NewControlPacket(packets.Puback).(*packets.PubackPacket)
				ack.MessageID = pkt.MessageID
				if err := ack.Write(conn); err != nil {
					return
				}
			}
		case *packets.PingreqPacket:
			if err := packets.NewControlPacket(packets.Pingresp).Write(conn); err != nil {
				return
			}
		case *packets.DisconnectPacket:
			return
		}
	}
}

func (b *fakeBroker) published() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.topics...)
}

func TestPublishZones_ImmediatelyAfterConnect(t *testing.T) {
	broker := startFakeBroker(t)
	cfg := testConfig()
	cfg.MQTTPort = broker.port()
	p := NewPublisher(cfg, nil)
	defer p.Disconnect()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, p.Connect(ctx))

	err := p.PublishZones(types.ZoneSnapshot{
		Zones: []types.ZoneState{
			{ID: "inv2_zona1_zone", Name: "Greenhouse 2 - Zone 1", Status: types.ZoneInactive},
			{ID: "inv2_zona2_zone", Name: "Greenhouse 2 - Zone 2", Runtime: 7, Status: types.ZoneActive},
		},
		TotalZones:  2,
		ActiveZones: 1,
	})

	require.NoError(t, err)
	assert.Equal(t, []string{
		"greenhouse/zones/inv2_zona1_zone/state",
		"greenhouse/zones/inv2_zona2_zone/state",
		"greenhouse/zones/summary",
	}, broker.published())
}

func TestDisconnect_ClearsConnectedForLateConnectCallback(t *testing.T) {
	broker := startFakeBroker(t)
	cfg := testConfig()
	cfg.MQTTPort = broker.port()
	p := NewPublisher(cfg, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, p.Connect(ctx))
	require.True(t, p.IsConnected())

	p.Disconnect()

	assert.False(t, p.setConnected(true))
	assert.False(t, p.IsConnected())
	assert.ErrorIs(t, p.PublishZones(types.ZoneSnapshot{}), ErrNotConnected)
}
