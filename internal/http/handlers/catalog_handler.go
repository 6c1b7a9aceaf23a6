// README: Read-only catalog handlers (products, customers).
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"yoake/internal/modules/catalog"
	"yoake/internal/types"
)

type CatalogService interface {
	ListProducts(ctx context.Context, category string) ([]catalog.Product, error)
	Customer(ctx context.Context, id types.ID) (*catalog.Customer, error)
}

type CatalogHandler struct {
	catalog CatalogService
}

func NewCatalogHandler(svc CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: svc}
}

func (h *CatalogHandler) Products(c *gin.Context) {
	list, err := h.catalog.ListProducts(c.Request.Context(), c.Query("category"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if list == nil {
		list = []catalog.Product{}
	}
	writeJSON(c, http.StatusOK, list)
}

func (h *CatalogHandler) Customer(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	cust, err := h.catalog.Customer(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, cust)
}
