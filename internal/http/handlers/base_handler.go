// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"yoake/internal/http/middleware"
	"yoake/internal/modules/cart"
	"yoake/internal/modules/catalog"
	"yoake/internal/modules/location"
	"yoake/internal/modules/order"
	"yoake/internal/modules/pricing"
	"yoake/internal/modules/register"
	"yoake/internal/modules/settings"
	"yoake/internal/modules/table"
	"yoake/internal/types"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// pathID reads a uuid path parameter. Malformed ids answer 404 like unknown ones.
func pathID(c *gin.Context, name string) (types.ID, bool) {
	id := c.Param(name)
	if !types.ValidID(id) {
		writeError(c, http.StatusNotFound, "not found")
		return "", false
	}
	return types.ID(id), true
}

func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return false
	}
	return true
}

func actor(c *gin.Context) string {
	return middleware.CallerUID(c)
}

var (
	badRequest = []error{
		order.ErrBadRequest, table.ErrBadRequest, register.ErrBadRequest,
		settings.ErrUnknownKey, settings.ErrInvalidValue,
		location.ErrInvalidCoordinates, pricing.ErrNegativeFee, cart.ErrBadTerminal,
	}
	unprocessable = []error{
		cart.ErrEmptyCart, cart.ErrTableRequired, cart.ErrAddressRequired,
		pricing.ErrNoCoordinates, location.ErrNoCoordinates,
	}
	notFound = []error{
		order.ErrNotFound, table.ErrNotFound, catalog.ErrNotFound, cart.ErrLineNotFound,
	}
	conflict = []error{
		order.ErrInvalidState, order.ErrConflict,
		table.ErrNotFree, table.ErrBusy, table.ErrInvalidState, table.ErrDuplicateNumber,
		register.ErrAlreadyOpen, register.ErrRegisterClosed, register.ErrNoOpenRegister,
	}
)

// statusFor maps module errors onto HTTP statuses; anything unknown is a 500.
func statusFor(err error) int {
	for _, group := range []struct {
		status int
		errs   []error
	}{
		{http.StatusUnprocessableEntity, unprocessable},
		{http.StatusBadRequest, badRequest},
		{http.StatusNotFound, notFound},
		{http.StatusConflict, conflict},
	} {
		for _, target := range group.errs {
			if errors.Is(err, target) {
				return group.status
			}
		}
	}
	return http.StatusInternalServerError
}

func writeServiceError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		writeError(c, status, "internal error")
		return
	}
	writeError(c, status, err.Error())
}
