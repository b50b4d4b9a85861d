package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/Astemirdum/rental-service/pkg/breaker"
)

// Consumer drains the notices topic and delivers each notice through the
// given Notifier. Delivery failures are logged and the message is marked
// anyway: one dead recipient must not wedge the whole topic. A circuit
// breaker keeps a down mail server from being hammered.
type Consumer struct {
	deliver Notifier
	cb      breaker.CircuitBreaker
	log     *zap.Logger
	ready   chan bool
}

func NewConsumer(deliver Notifier, log *zap.Logger) *Consumer {
	return &Consumer{
		deliver: deliver,
		cb:      breaker.New(20, 30*time.Second, 0.5, 5),
		log:     log.Named("consumer"),
		ready:   make(chan bool),
	}
}

func (consumer *Consumer) Setup(sarama.ConsumerGroupSession) error {
	// Mark the consumer as ready
	close(consumer.ready)
	return nil
}

// Cleanup is run at the end of a session, once all ConsumeClaim goroutines have exited.
func (consumer *Consumer) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (consumer *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				consumer.log.Warn("message channel was closed")
				return nil
			}
			var notice Notice
			if err := json.Unmarshal(message.Value, &notice); err != nil {
				consumer.log.Error("", zap.Error(err))
				session.MarkMessage(message, "")
				continue
			}

			err := consumer.cb.Call(func() error {
				return consumer.deliver.Send(context.Background(), notice.To, notice.Subject, notice.Body)
			})
			if err != nil {
				consumer.log.Error("deliver notice", zap.String("to", notice.To), zap.Error(err))
			}

			session.MarkMessage(message, "")
		case <-session.Context().Done():
			return nil
		}
	}
}
