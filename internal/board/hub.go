// README: In-process fan-out of order messages to live board clients, filtered by bucket.
package board

import (
	"log/slog"
	"sync"

	"yoake/internal/events"
)

// Bucket is a board audience.
type Bucket string

const (
	BucketKitchen  Bucket = "kitchen"
	BucketDelivery Bucket = "delivery"
	BucketMonitor  Bucket = "monitor"
)

func ParseBucket(s string) (Bucket, bool) {
	switch b := Bucket(s); b {
	case BucketKitchen, BucketDelivery, BucketMonitor:
		return b, true
	}
	return "", false
}

var (
	kitchenStatuses  = []string{"Pendente", "Preparando", "Pronto"}
	deliveryStatuses = []string{"Pronto", "Despachado"}
)

// Matches reports whether a board should see m. A message matches when the
// order enters or leaves one of the board's columns.
func (b Bucket) Matches(m events.Message) bool {
	switch b {
	case BucketKitchen:
		return touches(m, kitchenStatuses)
	case BucketMonitor:
		return m.Kind != events.KindItemsAdded && touches(m, kitchenStatuses)
	case BucketDelivery:
		return m.Type == "delivery" && touches(m, deliveryStatuses)
	}
	return false
}

func touches(m events.Message, statuses []string) bool {
	for _, s := range statuses {
		if m.To == s || m.From == s {
			return true
		}
	}
	return false
}

type Client struct {
	ID     string
	Bucket Bucket
	Send   chan events.Message
}

func NewClient(id string, bucket Bucket, buffer int) *Client {
	return &Client{ID: id, Bucket: bucket, Send: make(chan events.Message, buffer)}
}

type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	log     *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{clients: make(map[string]*Client), log: log}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.ID] = c
}

// Unregister removes the client and closes its channel. Calling it twice is safe.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.ID]; !ok {
		return
	}
	delete(h.clients, c.ID)
	close(c.Send)
}

// Close disconnects every client. Streams end once their channel drains.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		delete(h.clients, id)
		close(c.Send)
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast never blocks; slow clients lose the message and catch up by polling.
func (h *Hub) Broadcast(m events.Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		if !c.Bucket.Matches(m) {
			continue
		}
		select {
		case c.Send <- m:
		default:
			h.log.Warn("board message dropped",
				slog.String("client_id", c.ID),
				slog.String("order_id", m.OrderID),
			)
		}
	}
}
