package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/weiawesome/trip-chat/activity-chat-service/internal/domain"
	"github.com/weiawesome/trip-chat/activity-chat-service/internal/gateway"
	"github.com/weiawesome/trip-chat/pkg/log"
	"github.com/weiawesome/trip-chat/pkg/response"
)

// writeError maps gateway errors onto the HTTP envelope. Anything
// unrecognised is logged and reported as a 500 with the given fallback text.
func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, gateway.ErrValidation):
		response.BadRequest(c, err.Error())
	case errors.Is(err, gateway.ErrUnauthorized):
		response.Unauthorized(c, "unauthorized")
	case errors.Is(err, gateway.ErrForbidden):
		response.Forbidden(c, "not a member of this activity")
	case errors.Is(err, gateway.ErrNotFound):
		response.NotFound(c, "activity not found")
	default:
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Msg(fallback)
		response.Error(c, http.StatusInternalServerError, response.CodeInternal, fallback)
	}
}

// frameError builds the websocket error frame for err.
func frameError(err error) *domain.ErrorMessage {
	switch {
	case errors.Is(err, gateway.ErrValidation):
		return domain.NewErrorMessage(domain.ErrCodeBadRequest, err.Error())
	case errors.Is(err, gateway.ErrUnauthorized):
		return domain.NewErrorMessage(domain.ErrCodeUnauthorized, "unauthorized")
	case errors.Is(err, gateway.ErrForbidden):
		return domain.NewErrorMessage(domain.ErrCodeForbidden, "not a member of this activity")
	case errors.Is(err, gateway.ErrNotFound):
		return domain.NewErrorMessage(domain.ErrCodeNotFound, "activity not found")
	case errors.Is(err, gateway.ErrNotInRoom):
		return domain.NewErrorMessage(domain.ErrCodeNotInRoom, "join the activity room first")
	default:
		return domain.NewErrorMessage(domain.ErrCodeInternal, "request failed")
	}
}
