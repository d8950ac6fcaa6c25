package infrastructure

import (
	"context"

	"github.com/wyfcoding/riskmonitor/pkg/mq"
)

// KafkaEventPublisher 将领域事件投递到 Kafka
type KafkaEventPublisher struct {
	producer *mq.KafkaProducer
}

func NewKafkaEventPublisher(producer *mq.KafkaProducer) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer}
}

func (p *KafkaEventPublisher) Publish(ctx context.Context, topic string, key string, event any) error {
	return p.producer.SendMessage(ctx, topic, key, event)
}
