// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"fleetrent/internal/types"
)

type errorResponse struct {
	Error string `json:"error"`
}

// isValidID accepts the uuid ids we issue and the short slugs used for seeded records.
func isValidID(v string) bool {
	if v == "" || len(v) > 64 {
		return false
	}
	for _, c := range v {
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '-' || c == '_' {
			continue
		}
		return false
	}
	return true
}

func pathID(c *gin.Context, name string) (types.ID, bool) {
	v := c.Param(name)
	if !isValidID(v) {
		writeError(c, http.StatusBadRequest, "invalid "+name)
		return "", false
	}
	return types.ID(v), true
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// writeServiceError is the single mapping from the domain error taxonomy to
// HTTP. Unknown errors are logged and reported as "internal error" only.
func writeServiceError(c *gin.Context, err error) {
	var verr *types.ValidationError
	var terr *types.InvalidTransitionError
	switch {
	case errors.As(err, &verr):
		writeError(c, http.StatusBadRequest, verr.Error())
	case errors.As(err, &terr):
		writeError(c, http.StatusConflict, terr.Error())
	case errors.Is(err, types.ErrNotFound):
		writeError(c, http.StatusNotFound, "not found")
	case errors.Is(err, types.ErrForbidden):
		writeError(c, http.StatusForbidden, "forbidden")
	case errors.Is(err, types.ErrPaymentVerification):
		writeError(c, http.StatusPaymentRequired, types.ErrPaymentVerification.Error())
	case errors.Is(err, types.ErrVehicleUnavailable):
		writeError(c, http.StatusConflict, types.ErrVehicleUnavailable.Error())
	case errors.Is(err, types.ErrAlreadyHandedOver):
		writeError(c, http.StatusConflict, types.ErrAlreadyHandedOver.Error())
	case errors.Is(err, types.ErrAlreadyPaid):
		writeError(c, http.StatusConflict, types.ErrAlreadyPaid.Error())
	case errors.Is(err, types.ErrConflict):
		writeError(c, http.StatusConflict, types.ErrConflict.Error())
	default:
		_ = c.Error(err)
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return false
	}
	return true
}
