package model

import "time"

// Order statuses.  An order only ever moves from OrderUnpaid to OrderPaid.
const (
	OrderUnpaid = "UNPAID"
	OrderPaid   = "PAID"
)

// Order records one checkout attempt in the `orders` table.  It is created
// UNPAID before the gateway is called and flipped to PAID only after the
// gateway reports success.  Number is the external identifier; ID never
// leaves the server.
type Order struct {
	ID           uint64
	Number       string
	UserID       uint64
	AttractionID uint64
	Date         string
	TimeSlot     string
	Price        int
	ContactName  string
	ContactEmail string
	ContactPhone string
	Status       string
	CreatedAt    time.Time
}

// Payment is the gateway outcome stored in the `payments` table.
type Payment struct {
	OrderID    uint64
	StatusCode int
	Message    string
	RecTradeID string
}

// Contact is the person the tour operator reaches for an order.
type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Trip describes what was booked.
type Trip struct {
	Attraction AttractionSummary `json:"attraction"`
	Date       string            `json:"date"`
	Time       string            `json:"time"`
}

// OrderView is returned by GET /api/order/:orderNumber.  Status is 1 when
// paid and 0 otherwise.
type OrderView struct {
	Number  string  `json:"number"`
	Price   int     `json:"price"`
	Trip    Trip    `json:"trip"`
	Contact Contact `json:"contact"`
	Status  int     `json:"status"`
}

// PaidFlag collapses an order status into the 0/1 value clients see.
func PaidFlag(status string) int {
	if status == OrderPaid {
		return 1
	}
	return 0
}
