package events

import (
	"context"
	"time"

	"plumbstore/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Routing keys published on the events exchange.
const (
	OrderCreatedRoutingKey                = "order.created.v1"
	OrderStatusChangedRoutingKey          = "order.status_changed.v1"
	PlumberRequestCreatedRoutingKey       = "plumber_request.created.v1"
	PlumberRequestStatusChangedRoutingKey = "plumber_request.status_changed.v1"
)

// Publisher emits domain events after the owning transaction commits.
// Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
	Close() error
}

// Envelope wraps every payload with an id and timestamp.
type Envelope struct {
	EventID    string    `json:"eventId"`
	EventName  string    `json:"eventName"`
	OccurredAt time.Time `json:"occurredAt"`
	Payload    any       `json:"payload"`
}

// OrderCreated is published once per committed order.
type OrderCreated struct {
	OrderID uuid.UUID       `json:"orderId"`
	UserID  int64           `json:"userId"`
	Total   decimal.Decimal `json:"total"`
	Items   []OrderLine     `json:"items"`
}

// OrderLine is an item of OrderCreated.
type OrderLine struct {
	ProductID int64           `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// StatusChanged is published for both orders and plumber requests.
type StatusChanged struct {
	ID     uuid.UUID    `json:"id"`
	UserID int64        `json:"userId"`
	From   model.Status `json:"from"`
	To     model.Status `json:"to"`
}

// PlumberRequestCreated is published when a service request is submitted.
type PlumberRequestCreated struct {
	RequestID uuid.UUID `json:"requestId"`
	UserID    int64     `json:"userId"`
	Address   string    `json:"address"`
}

// NewOrderCreated builds the event for a committed order.
func NewOrderCreated(order *model.Order) OrderCreated {
	ev := OrderCreated{
		OrderID: order.ID,
		UserID:  order.UserID,
		Total:   order.Total,
		Items:   make([]OrderLine, 0, len(order.Items)),
	}
	for _, item := range order.Items {
		ev.Items = append(ev.Items, OrderLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return ev
}

// NopPublisher drops every event. Used when RabbitMQ is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, routingKey string, event any) error { return nil }

func (NopPublisher) Close() error { return nil }
