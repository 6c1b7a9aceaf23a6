// README: Table handlers for the floor plan and occupancy actions.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"yoake/internal/modules/table"
	"yoake/internal/types"
)

type TableService interface {
	List(ctx context.Context) ([]table.Table, error)
	Get(ctx context.Context, id types.ID) (*table.Table, error)
	Create(ctx context.Context, cmd table.CreateCommand) (*table.Table, error)
	Open(ctx context.Context, cmd table.OpenCommand) (*table.Table, error)
	Close(ctx context.Context, id types.ID) (*table.Table, error)
	Reserve(ctx context.Context, id types.ID) (*table.Table, error)
	RequestBill(ctx context.Context, id types.ID) (*table.Table, error)
}

type TableHandler struct {
	tables TableService
}

func NewTableHandler(svc TableService) *TableHandler {
	return &TableHandler{tables: svc}
}

func (h *TableHandler) List(c *gin.Context) {
	tables, err := h.tables.List(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if tables == nil {
		tables = []table.Table{}
	}
	writeJSON(c, http.StatusOK, tables)
}

func (h *TableHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	t, err := h.tables.Get(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, t)
}

type createTableReq struct {
	Number string `json:"number"`
	Seats  int    `json:"seats"`
}

func (h *TableHandler) Create(c *gin.Context) {
	var req createTableReq
	if !bindJSON(c, &req) {
		return
	}
	t, err := h.tables.Create(c.Request.Context(), table.CreateCommand{Number: req.Number, Seats: req.Seats})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, t)
}

type openTableReq struct {
	PartySize int `json:"party_size"`
}

func (h *TableHandler) Open(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req openTableReq
	if !bindJSON(c, &req) {
		return
	}
	t, err := h.tables.Open(c.Request.Context(), table.OpenCommand{TableID: id, PartySize: req.PartySize})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, t)
}

func (h *TableHandler) Close(c *gin.Context) {
	h.action(c, h.tables.Close)
}

func (h *TableHandler) Reserve(c *gin.Context) {
	h.action(c, h.tables.Reserve)
}

func (h *TableHandler) RequestBill(c *gin.Context) {
	h.action(c, h.tables.RequestBill)
}

func (h *TableHandler) action(c *gin.Context, fn func(context.Context, types.ID) (*table.Table, error)) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	t, err := fn(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, t)
}
