package usecase

// Published on RabbitMQ after an order commits.
type OrderPlacedMsg struct {
	OrderID     int64  `json:"orderId"`
	OrderNumber string `json:"orderNumber"`
	CustomerID  int64  `json:"customerId"`
	TotalAmount string `json:"totalAmount"`
	Lines       int    `json:"lines"`
}

// Consumed from Kafka, produced by the supplier/warehouse side.
type StockReplenishedMsg struct {
	EventID   string `json:"eventId"`
	ProductID int64  `json:"productId"`
	Quantity  int    `json:"quantity"`
}
