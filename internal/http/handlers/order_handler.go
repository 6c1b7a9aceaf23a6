// README: Order handlers for create, listing, status transitions, payment and item appends.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"yoake/internal/modules/order"
	"yoake/internal/modules/register"
	"yoake/internal/types"
)

type OrderService interface {
	Create(ctx context.Context, cmd order.CreateCommand) (*order.Order, error)
	Get(ctx context.Context, id types.ID) (*order.Order, error)
	List(ctx context.Context, view string) ([]order.Order, error)
	Events(ctx context.Context, id types.ID) ([]order.Event, error)
	UpdateStatus(ctx context.Context, cmd order.StatusCommand) (*order.Order, error)
	Advance(ctx context.Context, cmd order.AdvanceCommand) (*order.Order, error)
	Dispatch(ctx context.Context, cmd order.AdvanceCommand) (*order.Order, error)
	Deliver(ctx context.Context, cmd order.AdvanceCommand) (*order.Order, error)
	Cancel(ctx context.Context, cmd order.CancelCommand) (*order.Order, error)
	Pay(ctx context.Context, cmd order.PayCommand) (*order.Order, error)
	AddItems(ctx context.Context, cmd order.AddItemsCommand) (*order.Order, error)
}

type OrderHandler struct {
	order OrderService
}

func NewOrderHandler(svc OrderService) *OrderHandler {
	return &OrderHandler{order: svc}
}

type lineReq struct {
	ProductID string           `json:"product_id"`
	Quantity  int              `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
}

func toLines(reqs []lineReq) []order.LineInput {
	out := make([]order.LineInput, 0, len(reqs))
	for _, l := range reqs {
		out = append(out, order.LineInput{ProductID: types.ID(l.ProductID), Quantity: l.Quantity, UnitPrice: l.UnitPrice})
	}
	return out
}

type createOrderReq struct {
	Type                 string          `json:"type"`
	Channel              string          `json:"channel"`
	Items                []lineReq       `json:"items"`
	TableID              *string         `json:"table_id"`
	CustomerID           *string         `json:"customer_id"`
	DeliveryAddress      string          `json:"delivery_address"`
	DeliveryLocationLink string          `json:"delivery_location_link"`
	DeliveryFee          decimal.Decimal `json:"delivery_fee"`
	DistanceKm           float64         `json:"distance_km"`
}

func optionalID(v *string) *types.ID {
	if v == nil || *v == "" {
		return nil
	}
	id := types.ID(*v)
	return &id
}

func (h *OrderHandler) Create(c *gin.Context) {
	var req createOrderReq
	if !bindJSON(c, &req) {
		return
	}
	o, err := h.order.Create(c.Request.Context(), order.CreateCommand{
		Type:                 order.Type(req.Type),
		Channel:              order.Channel(req.Channel),
		Items:                toLines(req.Items),
		TableID:              optionalID(req.TableID),
		CustomerID:           optionalID(req.CustomerID),
		DeliveryAddress:      req.DeliveryAddress,
		DeliveryLocationLink: req.DeliveryLocationLink,
		DeliveryFee:          req.DeliveryFee,
		DistanceKm:           req.DistanceKm,
		ActorID:              actor(c),
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, o)
}

// List handles GET /api/orders?status=active|kds|ready|delivering|history|<status>.
func (h *OrderHandler) List(c *gin.Context) {
	orders, err := h.order.List(c.Request.Context(), c.Query("status"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if orders == nil {
		orders = []order.Order{}
	}
	writeJSON(c, http.StatusOK, orders)
}

func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	o, err := h.order.Get(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, o)
}

func (h *OrderHandler) Events(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	evts, err := h.order.Events(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if evts == nil {
		evts = []order.Event{}
	}
	writeJSON(c, http.StatusOK, evts)
}

type statusReq struct {
	Status string `json:"status"`
}

func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req statusReq
	if !bindJSON(c, &req) {
		return
	}
	to, valid := order.ParseStatus(req.Status)
	if !valid {
		writeError(c, http.StatusBadRequest, "unknown status")
		return
	}
	o, err := h.order.UpdateStatus(c.Request.Context(), order.StatusCommand{OrderID: id, To: to, ActorID: actor(c)})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, o)
}

func (h *OrderHandler) Advance(c *gin.Context) {
	h.step(c, h.order.Advance)
}

func (h *OrderHandler) Dispatch(c *gin.Context) {
	h.step(c, h.order.Dispatch)
}

func (h *OrderHandler) Deliver(c *gin.Context) {
	h.step(c, h.order.Deliver)
}

func (h *OrderHandler) step(c *gin.Context, fn func(context.Context, order.AdvanceCommand) (*order.Order, error)) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	o, err := fn(c.Request.Context(), order.AdvanceCommand{OrderID: id, ActorID: actor(c)})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, o)
}

type cancelReq struct {
	Reason string `json:"reason"`
}

func (h *OrderHandler) Cancel(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req cancelReq
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	o, err := h.order.Cancel(c.Request.Context(), order.CancelCommand{OrderID: id, Reason: req.Reason, ActorID: actor(c)})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, o)
}

type payReq struct {
	PaymentMethod  string `json:"payment_method"`
	PaymentAccount string `json:"payment_account"`
}

func (h *OrderHandler) Pay(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req payReq
	if !bindJSON(c, &req) {
		return
	}
	o, err := h.order.Pay(c.Request.Context(), order.PayCommand{
		OrderID: id,
		Method:  req.PaymentMethod,
		Account: register.Account(req.PaymentAccount),
		ActorID: actor(c),
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, o)
}

type addItemsReq struct {
	Items []lineReq `json:"items"`
}

func (h *OrderHandler) AddItems(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req addItemsReq
	if !bindJSON(c, &req) {
		return
	}
	o, err := h.order.AddItems(c.Request.Context(), order.AddItemsCommand{OrderID: id, Items: toLines(req.Items), ActorID: actor(c)})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, o)
}
