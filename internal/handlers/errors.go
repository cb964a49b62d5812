package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"counseling-app-server/internal/appointment"
	"counseling-app-server/internal/utils"
)

// respondDomainError maps ledger/gateway errors onto the HTTP contract:
// validation 400, not found 404, illegal transition 409, closed gate 403
// with a countdown, anything else 500.
func respondDomainError(c *gin.Context, err error) {
	var validation *appointment.ValidationError
	var notFound *appointment.NotFoundError
	var invalid *appointment.InvalidTransitionError
	var gate *appointment.GateClosedError
	switch {
	case errors.As(err, &validation):
		utils.BadRequest(c, validation.Error())
	case errors.As(err, &notFound):
		utils.NotFound(c, notFound.Error())
	case errors.As(err, &invalid):
		utils.Conflict(c, invalid.Error())
	case errors.As(err, &gate):
		// soft condition: the client renders a countdown, not a failure
		// dialog. A zero OpensAt means the conversation ended (completed or
		// rejected), so there is no countdown to render.
		payload := gin.H{
			"status":        http.StatusForbidden,
			"error":         "gate_closed",
			"appointmentId": gate.AppointmentID,
		}
		if gate.OpensAt.IsZero() {
			payload["message"] = "Conversation is closed"
			payload["closed"] = true
		} else {
			payload["message"] = "Conversation is not yet available"
			payload["opensInSeconds"] = appointment.SecondsUntilOpen(gate.OpensAt, time.Now())
		}
		c.JSON(http.StatusForbidden, payload)
	default:
		utils.InternalServerError(c, err.Error())
	}
}
