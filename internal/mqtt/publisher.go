// Package mqtt publishes simulated zone state to an MQTT broker.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"greenhouse-dashboard/internal/config"
	"greenhouse-dashboard/internal/modules/irrigation/types"
)

const publishTimeout = 5 * time.Second

var (
	ErrNotConnected = errors.New("mqtt publisher not connected")
	ErrStopped      = errors.New("mqtt publisher stopped")
)

type Publisher struct {
	client paho.Client
	prefix string
	logger *slog.Logger

	mu        sync.RWMutex
	connected bool
	stopped   bool

	stopCh   chan struct{}
	stopOnce sync.Once
}

// ZoneMessage is the retained payload on {prefix}/zones/{id}/state.
type ZoneMessage struct {
	ZoneID     string    `json:"zone_id"`
	Name       string    `json:"name"`
	RuntimeSec int       `json:"runtime_s"`
	Active     bool      `json:"active"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SummaryMessage is the retained payload on {prefix}/zones/summary.
type SummaryMessage struct {
	TotalZones  int       `json:"total_zones"`
	ActiveZones int       `json:"active_zones"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func NewPublisher(cfg config.Config, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Publisher{
		prefix: cfg.MQTTTopicPrefix,
		logger: logger,
		stopCh: make(chan struct{}),
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTTBroker, cfg.MQTTPort))
	opts.SetClientID(cfg.MQTTClientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(time.Minute)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(_ paho.Client) {
		if p.setConnected(true) {
			logger.Info("mqtt connected", "broker", cfg.MQTTBroker, "port", cfg.MQTTPort)
		}
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		p.setConnected(false)
		logger.Warn("mqtt connection lost", "error", err)
	})

	p.client = paho.NewClient(opts)
	return p
}

// Connect blocks until the first connection succeeds, ctx is done or Disconnect is called.
func (p *Publisher) Connect(ctx context.Context) error {
	select {
	case <-p.stopCh:
		return ErrStopped
	default:
	}
	if p.IsConnected() {
		return nil
	}

	token := p.client.Connect()
	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			if !p.setConnected(true) {
				return ErrStopped
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.stopCh:
			return ErrStopped
		default:
		}
	}
}

// PublishZones sends one retained message per zone plus a summary.
func (p *Publisher) PublishZones(snap types.ZoneSnapshot) error {
	if !p.IsConnected() {
		return ErrNotConnected
	}

	var errs []error
	for _, z := range snap.Zones {
		errs = append(errs, p.publishJSON(ZoneTopic(p.prefix, z.ID), zoneMessage(z)))
	}
	errs = append(errs, p.publishJSON(SummaryTopic(p.prefix), SummaryMessage{
		TotalZones:  snap.TotalZones,
		ActiveZones: snap.ActiveZones,
		UpdatedAt:   snap.LastUpdate,
	}))
	return errors.Join(errs...)
}

func (p *Publisher) publishJSON(topic string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", topic, err)
	}

	token := p.client.Publish(topic, 1, true, data)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish timeout for topic %s", topic)
	}
	if err := token.Error(); err != nil {
		p.logger.Error("mqtt publish failed", "topic", topic, "error", err)
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	p.logger.Debug("mqtt published", "topic", topic, "bytes", len(data))
	return nil
}

func (p *Publisher) IsConnected() bool {
	p.mu.RLock()
	connected := p.connected
	p.mu.RUnlock()
	return connected && p.client.IsConnected()
}

// Disconnect is idempotent. Connect returns ErrStopped afterwards.
func (p *Publisher) Disconnect() {
	p.stopOnce.Do(func() { close(p.stopCh) })
	p.mu.Lock()
	p.stopped = true
	p.connected = false
	p.mu.Unlock()
	if p.client != nil {
		p.client.Disconnect(250)
	}
	p.logger.Info("mqtt disconnected")
}

// setConnected reports false and leaves the flag cleared once Disconnect has run.
func (p *Publisher) setConnected(v bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		p.connected = false
		return false
	}
	p.connected = v
	return true
}

func ZoneTopic(prefix, zoneID string) string {
	return fmt.Sprintf("%s/zones/%s/state", prefix, zoneID)
}

func SummaryTopic(prefix string) string {
	return prefix + "/zones/summary"
}

func zoneMessage(z types.ZoneState) ZoneMessage {
	return ZoneMessage{
		ZoneID:     z.ID,
		Name:       z.Name,
		RuntimeSec: z.Runtime,
		Active:     z.Status == types.ZoneActive,
		UpdatedAt:  z.LastUpdate,
	}
}
