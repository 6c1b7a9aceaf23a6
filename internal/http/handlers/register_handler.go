// README: Cash register handlers (open, status, close, history).
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"yoake/internal/modules/register"
)

type RegisterService interface {
	Open(ctx context.Context, cmd register.OpenCommand) (*register.Register, error)
	Status(ctx context.Context) (register.View, error)
	Close(ctx context.Context) (*register.Register, error)
	History(ctx context.Context) ([]register.Register, error)
}

type RegisterHandler struct {
	registers RegisterService
}

func NewRegisterHandler(svc RegisterService) *RegisterHandler {
	return &RegisterHandler{registers: svc}
}

type openRegisterReq struct {
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

func (h *RegisterHandler) Open(c *gin.Context) {
	var req openRegisterReq
	if !bindJSON(c, &req) {
		return
	}
	r, err := h.registers.Open(c.Request.Context(), register.OpenCommand{OpeningBalance: req.OpeningBalance, UserID: actor(c)})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, r)
}

func (h *RegisterHandler) Status(c *gin.Context) {
	v, err := h.registers.Status(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, v)
}

func (h *RegisterHandler) Close(c *gin.Context) {
	r, err := h.registers.Close(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, r)
}

func (h *RegisterHandler) History(c *gin.Context) {
	list, err := h.registers.History(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if list == nil {
		list = []register.Register{}
	}
	writeJSON(c, http.StatusOK, list)
}
