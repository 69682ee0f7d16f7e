// 包 messaging 提供告警事件的 Kafka 发布实现。
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/wyfcoding/pkg/logging"

	"github.com/wyfcoding/optionsrisk/internal/optionsrisk/domain"
)

// KafkaConfig Kafka 发布端配置。
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	MaxRetries   int
	RetryBackoff time.Duration
}

// KafkaAlertPublisher 把组合告警事件写入 Kafka，实现 domain.AlertEventPublisher。
type KafkaAlertPublisher struct {
	writer *kafka.Writer
	topic  string
}

// NewKafkaAlertPublisher 创建发布端。等待全部副本确认，gzip 压缩，带退避重试。
func NewKafkaAlertPublisher(cfg KafkaConfig) *KafkaAlertPublisher {
	maxAttempts := cfg.MaxRetries
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = 100 * time.Millisecond
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		AllowAutoTopicCreation: true,
		Compression:            kafka.Gzip,
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            maxAttempts,
		WriteBackoffMin:        backoff,
		WriteBackoffMax:        backoff * 10,
	}
	return &KafkaAlertPublisher{writer: writer, topic: cfg.Topic}
}

// PublishRiskAlerts 发布单条告警事件，以账户 ID 作为分区键保证账户内有序。
func (p *KafkaAlertPublisher) PublishRiskAlerts(ctx context.Context, event *domain.RiskAlertEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal alert event: %w", err)
	}

	msg := kafka.Message{
		Topic: p.topic,
		Key:   []byte(event.AccountID),
		Value: data,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		logging.Error(ctx, "failed to publish alert event",
			"topic", p.topic,
			"account_id", event.AccountID,
			"error", err,
		)
		return err
	}

	logging.Debug(ctx, "alert event published",
		"topic", p.topic,
		"account_id", event.AccountID,
		"alerts", len(event.Alerts),
	)
	return nil
}

// Close 关闭底层 writer。
func (p *KafkaAlertPublisher) Close() error {
	return p.writer.Close()
}
