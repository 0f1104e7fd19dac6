package queue

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RetryQueueName returns the name of the delay queue paired with a main
// queue.
func RetryQueueName(name string) string { return name + ".retry" }

// DeclareTopology declares the durable main queue and its retry queue.
// The retry queue has no consumers: messages published to it carry a
// per-message expiration and, once expired, are dead-lettered through the
// default exchange back onto the main queue.  Declaring is idempotent.
func DeclareTopology(ch *amqp.Channel, name string) error {
	if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare %s: %w", name, err)
	}
	args := amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": name,
	}
	if _, err := ch.QueueDeclare(RetryQueueName(name), true, false, false, false, args); err != nil {
		return fmt.Errorf("declare %s: %w", RetryQueueName(name), err)
	}
	return nil
}
