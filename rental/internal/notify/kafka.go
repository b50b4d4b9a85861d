package notify

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Kafka publishes notices to the overdue-notices topic; the mailer consumer
// on the other side performs the actual delivery. Publishing never blocks on
// the mail server.
type Kafka struct {
	producer sarama.SyncProducer
	topic    string
	log      *zap.Logger
}

func NewKafka(producer sarama.SyncProducer, topic string, log *zap.Logger) *Kafka {
	return &Kafka{
		producer: producer,
		topic:    topic,
		log:      log.Named("notify-producer"),
	}
}

func (k *Kafka) Send(_ context.Context, to, subject, body string) error {
	value, err := json.Marshal(Notice{To: to, Subject: subject, Body: body})
	if err != nil {
		return errors.Wrap(err, "marshal notice")
	}

	partition, offset, err := k.producer.SendMessage(&sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(to),
		Value: sarama.ByteEncoder(value),
	})
	if err != nil {
		return errors.Wrap(err, "produce notice")
	}

	k.log.Debug("notice published",
		zap.String("to", to),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset))
	return nil
}
