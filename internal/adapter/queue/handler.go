package queue

import (
	"context"
	"errors"

	amqp "github.com/rabbitmq/amqp091-go"

	domain "github.com/Sharath05hk/Minimart/internal/entity"
)

// Handler processes a single delivery. It should be idempotent.
// Return nil => ACK; return error => NACK, requeued unless the error is permanent.
type Handler interface {
	Handle(ctx context.Context, d amqp.Delivery) error
}

// ErrMalformed marks a delivery whose body can never be processed.
var ErrMalformed = errors.New("malformed message")

// permanent reports whether redelivering the message cannot change the outcome.
func permanent(err error) bool {
	return errors.Is(err, ErrMalformed) ||
		errors.Is(err, domain.ErrValidation) ||
		errors.Is(err, domain.ErrNotFound)
}
