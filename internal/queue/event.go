// Package queue carries order events over RabbitMQ.  The database stays the
// source of truth; events only feed side channels such as the order log.
package queue

// OrderPaidQueue is the durable queue paid-order events are routed to.
const OrderPaidQueue = "order.paid"

// OrderPaidEvent is published once an order has been committed as PAID.
// It carries enough information for downstream consumers to log or notify
// without querying the primary database.
type OrderPaidEvent struct {
	OrderNumber  string `json:"order_number"`
	UserID       uint64 `json:"user_id"`
	AttractionID uint64 `json:"attraction_id"`
	Date         string `json:"date"`
	Time         string `json:"time"`
	Price        int    `json:"price"`
	ContactName  string `json:"contact_name"`
	ContactEmail string `json:"contact_email"`
	RecTradeID   string `json:"rec_trade_id"`
	PaidAt       string `json:"paid_at"`
}
