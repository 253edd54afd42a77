package observ

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Sharath05hk/Minimart/internal/usecase"
)

var (
	ordersPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "minimart",
		Name:      "orders_placed_total",
		Help:      "Orders committed as PAID.",
	})

	orderLines = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "minimart",
		Name:      "order_lines_total",
		Help:      "Order lines across committed orders.",
	})

	placementFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "minimart",
		Name:      "order_placement_failures_total",
		Help:      "Rejected or rolled back order placements by reason.",
	}, []string{"reason"})

	consumedMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "minimart",
		Name:      "consumed_messages_total",
		Help:      "Broker messages handled by consumers.",
	}, []string{"source", "outcome"})
)

// Placement reports order placement outcomes to Prometheus.
type Placement struct{}

func (Placement) OrderPlaced(lines int) {
	ordersPlaced.Inc()
	orderLines.Add(float64(lines))
}

func (Placement) PlacementFailed(reason string) {
	placementFailures.WithLabelValues(reason).Inc()
}

// MessageHandled counts one consumed message; source is "rabbitmq" or "kafka".
func MessageHandled(source string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	consumedMessages.WithLabelValues(source, outcome).Inc()
}

var _ usecase.PlacementMetrics = Placement{}
