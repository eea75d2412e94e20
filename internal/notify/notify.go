// Package notify 导出完成事件通知
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pointlist/internal/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// ExportEvent 导出完成事件
type ExportEvent struct {
	SessionID string    `json:"session_id,omitempty"`
	FileName  string    `json:"file_name"`
	Sheets    []string  `json:"sheets"`
	Records   int       `json:"records"`
	Groups    int       `json:"groups"`
	Devices   int       `json:"devices"`
	Bytes     int       `json:"bytes"`
	At        time.Time `json:"at"`
}

// Publisher 事件发布
type Publisher interface {
	PublishExport(ctx context.Context, ev ExportEvent) error
	Close()
}

// Nop 不发布任何事件（MQTT 未启用时使用）
type Nop struct{}

func (Nop) PublishExport(ctx context.Context, ev ExportEvent) error { return nil }
func (Nop) Close() {}

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// MQTTPublisher 通过 MQTT 发布事件
type MQTTPublisher struct {
	client mqtt.Client
	topic  string
	qos    byte
	logger *zap.Logger
}

// NewMQTTPublisher 连接 Broker 并创建发布者
func NewMQTTPublisher(cfg *config.MQTTConfig, logger *zap.Logger) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", zap.Error(err))
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("timeout connecting to MQTT broker %s", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}
	return newMQTTPublisher(client, cfg.Topic, cfg.QoS, logger), nil
}

func newMQTTPublisher(client mqtt.Client, topic string, qos byte, logger *zap.Logger) *MQTTPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MQTTPublisher{client: client, topic: topic, qos: qos, logger: logger}
}

// PublishExport 发布导出完成事件
func (p *MQTTPublisher) PublishExport(ctx context.Context, ev ExportEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal export event: %w", err)
	}

	token := p.client.Publish(p.topic, p.qos, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(publishTimeout):
		return fmt.Errorf("timeout publishing to topic %s", p.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", p.topic, err)
	}

	p.logger.Debug("export event published",
		zap.String("topic", p.topic),
		zap.String("session_id", ev.SessionID),
		zap.Int("records", ev.Records),
	)
	return nil
}

// Close 断开连接
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250) // 250ms 等待时间
}
