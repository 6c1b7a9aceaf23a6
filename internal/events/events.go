// README: Order lifecycle messages and the publishers that carry them.
package events

import (
	"context"
	"errors"
	"time"
)

// Channel is the Redis pub/sub channel order messages are published on.
const Channel = "pos:orders"

type Kind string

const (
	KindCreated       Kind = "order.created"
	KindStatusChanged Kind = "order.status_changed"
	KindItemsAdded    Kind = "order.items_added"
)

// Message is the payload emitted after an order change commits.
type Message struct {
	Kind       Kind      `json:"kind"`
	OrderID    string    `json:"order_id"`
	ReadableID string    `json:"readable_id"`
	Type       string    `json:"type"`
	Channel    string    `json:"channel"`
	From       string    `json:"from_status,omitempty"`
	To         string    `json:"status"`
	TableID    string    `json:"table_id,omitempty"`
	Total      string    `json:"total"`
	At         time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, m Message) error
}

// Fanout publishes to every non-nil publisher and joins their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, m Message) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, m); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
