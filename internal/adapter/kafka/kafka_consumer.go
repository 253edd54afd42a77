package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	"github.com/Sharath05hk/Minimart/internal/adapter/observ"
	domain "github.com/Sharath05hk/Minimart/internal/entity"
	"github.com/Sharath05hk/Minimart/internal/logging"
	"github.com/Sharath05hk/Minimart/internal/usecase"
)

// HandlerFunc processes a decoded event.
type HandlerFunc func(ctx context.Context, ev usecase.StockReplenishedMsg) error

// Consumer consumes the restock topic with a single handler.
type Consumer struct {
	Group  sarama.ConsumerGroup
	Topics []string
	Handle HandlerFunc
	Logger *slog.Logger
	// RetryBackoff is the pause before a claim restarts after a transient failure.
	RetryBackoff time.Duration
}

func NewConsumer(group sarama.ConsumerGroup, topics []string, h HandlerFunc) *Consumer {
	return &Consumer{
		Group:        group,
		Topics:       topics,
		Handle:       h,
		Logger:       logging.New("kafka"),
		RetryBackoff: 2 * time.Second,
	}
}

// Start blocks until ctx is cancelled or the group fails.
func (c *Consumer) Start(ctx context.Context) error {
	go func() {
		for err := range c.Group.Errors() {
			c.Logger.Error("consumer group error", "err", err)
		}
	}()

	handler := &cgHandler{handle: c.Handle, logger: c.Logger, backoff: c.RetryBackoff}
	for {
		if err := c.Group.Consume(ctx, c.Topics, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return err
		}
		// Consume returns on rebalance or cancellation.
		if ctx.Err() != nil {
			return nil
		}
	}
}

type cgHandler struct {
	handle  HandlerFunc
	logger  *slog.Logger
	backoff time.Duration
}

func (h *cgHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *cgHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *cgHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		log := h.logger.With("topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)

		var ev usecase.StockReplenishedMsg
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			observ.MessageHandled("kafka", err)
			log.Error("decode error", "err", err)
			// mark to avoid reprocessing poison
			sess.MarkMessage(msg, "decode-error")
			continue
		}

		err := h.handle(logging.WithCtx(sess.Context(), log.With("event_id", ev.EventID)), ev)
		observ.MessageHandled("kafka", err)
		switch {
		case err == nil:
			sess.MarkMessage(msg, "")
		case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrNotFound):
			log.Warn("dropping unprocessable event", "event_id", ev.EventID, "err", err)
			sess.MarkMessage(msg, "rejected")
		default:
			// Offsets commit cumulatively, so nothing after msg may be marked.
			// Leaving the claim ends the session and Start rejoins at msg.
			log.Error("handler error, restarting claim", "event_id", ev.EventID, "key", string(msg.Key), "err", err)
			h.pause(sess.Context())
			return nil
		}
	}
	return nil
}

func (h *cgHandler) pause(ctx context.Context) {
	if h.backoff <= 0 {
		return
	}
	t := time.NewTimer(h.backoff)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
