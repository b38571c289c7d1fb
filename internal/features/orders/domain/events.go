package domain

import "time"

// Event types published after a successful commit.
const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
)

// OrderCreated is emitted once an order and its reservations are committed.
type OrderCreated struct {
	OrderID      string    `json:"order_id"`
	OrderNumber  string    `json:"order_number"`
	CustomerName string    `json:"customer_name"`
	Total        int64     `json:"total"`
	IsGuest      bool      `json:"is_guest"`
	Timestamp    time.Time `json:"timestamp"`
}

// OrderStatusChanged is emitted after every committed transition.
type OrderStatusChanged struct {
	OrderID        string      `json:"order_id"`
	OrderNumber    string      `json:"order_number"`
	PreviousStatus OrderStatus `json:"previous_status"`
	NewStatus      OrderStatus `json:"new_status"`
	ActorID        string      `json:"actor_id"`
	Timestamp      time.Time   `json:"timestamp"`
}

// EventKey partitions the event by order.
func (e OrderCreated) EventKey() string { return e.OrderID }

// EventKey partitions the event by order.
func (e OrderStatusChanged) EventKey() string { return e.OrderID }
