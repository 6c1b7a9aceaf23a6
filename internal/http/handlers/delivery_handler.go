// README: Delivery helpers: coordinate extraction from pasted links and fee quotes.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"yoake/internal/modules/location"
	"yoake/internal/modules/pricing"
)

type Quoter interface {
	QuoteDestination(ctx context.Context, d location.Destination) (pricing.Quote, error)
}

type DeliveryHandler struct {
	pricing Quoter
}

func NewDeliveryHandler(q Quoter) *DeliveryHandler {
	return &DeliveryHandler{pricing: q}
}

type extractReq struct {
	Text string `json:"text"`
}

type extractResp struct {
	Found bool   `json:"found"`
	Lat   string `json:"lat,omitempty"`
	Lng   string `json:"lng,omitempty"`
}

// Extract never fails on unrecognized text; it answers found=false.
func (h *DeliveryHandler) Extract(c *gin.Context) {
	var req extractReq
	if !bindJSON(c, &req) {
		return
	}
	lat, lng, ok := location.ExtractCoordinates(req.Text)
	writeJSON(c, http.StatusOK, extractResp{Found: ok, Lat: lat, Lng: lng})
}

type quoteReq struct {
	Lat          string `json:"lat"`
	Lng          string `json:"lng"`
	LocationLink string `json:"location_link"`
	Address      string `json:"address"`
}

func (h *DeliveryHandler) Quote(c *gin.Context) {
	var req quoteReq
	if !bindJSON(c, &req) {
		return
	}
	q, err := h.pricing.QuoteDestination(c.Request.Context(), location.Destination{
		Lat:          req.Lat,
		Lng:          req.Lng,
		LocationLink: req.LocationLink,
		Address:      req.Address,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, q)
}
