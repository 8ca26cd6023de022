package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"fleetrent/internal/types"
)

func TestWriteServiceError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err  error
		code int
		body string
	}{
		{types.Invalid("return_at", "must not be before pickup_at"), http.StatusBadRequest, `{"error":"invalid return_at: must not be before pickup_at"}`},
		{&types.InvalidTransitionError{From: "active", To: "cancelled"}, http.StatusConflict, `{"error":"invalid transition from active to cancelled"}`},
		{fmt.Errorf("booking b1: %w", types.ErrNotFound), http.StatusNotFound, `{"error":"not found"}`},
		{types.ErrForbidden, http.StatusForbidden, `{"error":"forbidden"}`},
		{types.ErrPaymentVerification, http.StatusPaymentRequired, `{"error":"payment verification failed"}`},
		{types.ErrVehicleUnavailable, http.StatusConflict, `{"error":"vehicle unavailable"}`},
		{types.ErrAlreadyHandedOver, http.StatusConflict, `{"error":"booking already handed over"}`},
		{types.ErrAlreadyPaid, http.StatusConflict, `{"error":"invoice already paid"}`},
		{types.ErrConflict, http.StatusConflict, `{"error":"concurrent update conflict"}`},
		{errors.New("pq: connection refused to 10.0.0.3"), http.StatusInternalServerError, `{"error":"internal error"}`},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		writeServiceError(c, tc.err)
		assert.Equal(t, tc.code, w.Code, tc.err.Error())
		assert.JSONEq(t, tc.body, w.Body.String())
	}
}

func TestIsValidID(t *testing.T) {
	assert.True(t, isValidID("3f2b9c1e-8a7d-4c55-9e0f-1b2c3d4e5f60"))
	assert.True(t, isValidID("hub_central"))
	assert.False(t, isValidID(""))
	assert.False(t, isValidID("a b"))
	assert.False(t, isValidID("../etc"))
}
