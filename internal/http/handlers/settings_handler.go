// README: Settings handlers; updates are admin only (enforced by the router).
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"yoake/internal/modules/settings"
)

type SettingsService interface {
	Get(ctx context.Context) (settings.Values, error)
	Update(ctx context.Context, values settings.Values) (settings.Values, error)
}

type SettingsHandler struct {
	settings SettingsService
}

func NewSettingsHandler(svc SettingsService) *SettingsHandler {
	return &SettingsHandler{settings: svc}
}

func (h *SettingsHandler) Get(c *gin.Context) {
	v, err := h.settings.Get(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, v)
}

func (h *SettingsHandler) Update(c *gin.Context) {
	var req settings.Values
	if !bindJSON(c, &req) {
		return
	}
	v, err := h.settings.Update(c.Request.Context(), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, v)
}
