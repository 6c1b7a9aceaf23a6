// README: Cart handlers; one cart per POS terminal, submitted into an order.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"yoake/internal/modules/cart"
	"yoake/internal/types"
)

type CartService interface {
	View(ctx context.Context, terminal string) (cart.View, error)
	Add(ctx context.Context, terminal string, productID types.ID) (cart.View, error)
	SetQuantity(ctx context.Context, terminal string, productID types.ID, delta int) (cart.View, error)
	Clear(ctx context.Context, terminal string) error
	Submit(ctx context.Context, terminal string, d cart.Draft) (*cart.SubmitResult, error)
}

type CartHandler struct {
	cart CartService
}

func NewCartHandler(svc CartService) *CartHandler {
	return &CartHandler{cart: svc}
}

func (h *CartHandler) Get(c *gin.Context) {
	v, err := h.cart.View(c.Request.Context(), c.Param("terminal"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, v)
}

type addLineReq struct {
	ProductID string `json:"product_id"`
}

func (h *CartHandler) Add(c *gin.Context) {
	var req addLineReq
	if !bindJSON(c, &req) {
		return
	}
	v, err := h.cart.Add(c.Request.Context(), c.Param("terminal"), types.ID(req.ProductID))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, v)
}

type quantityReq struct {
	Delta int `json:"delta"`
}

func (h *CartHandler) SetQuantity(c *gin.Context) {
	var req quantityReq
	if !bindJSON(c, &req) {
		return
	}
	v, err := h.cart.SetQuantity(c.Request.Context(), c.Param("terminal"), types.ID(c.Param("product")), req.Delta)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, v)
}

func (h *CartHandler) Clear(c *gin.Context) {
	if err := h.cart.Clear(c.Request.Context(), c.Param("terminal")); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CartHandler) Submit(c *gin.Context) {
	var d cart.Draft
	if !bindJSON(c, &d) {
		return
	}
	d.ActorID = actor(c)
	res, err := h.cart.Submit(c.Request.Context(), c.Param("terminal"), d)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	status := http.StatusCreated
	if res.Appended {
		status = http.StatusOK
	}
	writeJSON(c, status, res)
}
