package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/huangang/basewatch/internal/services"
	"github.com/huangang/basewatch/internal/services/reporting"
	"github.com/huangang/basewatch/pkg/logger"
	"github.com/huangang/basewatch/pkg/response"
)

// toAppError maps service and core errors onto HTTP statuses.
func toAppError(err error) *response.AppError {
	var appErr *response.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var vErr *reporting.ValidationError
	switch {
	case errors.As(err, &vErr):
		return response.NewValidation(err, vErr.Field, vErr.Reason)
	case errors.Is(err, reporting.ErrInvalidDate),
		errors.Is(err, reporting.ErrUnknownRole),
		errors.Is(err, services.ErrQuestionRequired):
		return response.NewBadRequest(err.Error())
	case errors.Is(err, services.ErrUnitNotFound),
		errors.Is(err, services.ErrAssistantLogNotFound),
		errors.Is(err, services.ErrLLMConfigNotFound),
		errors.Is(err, services.ErrDigestNotFound),
		errors.Is(err, services.ErrNotificationBotNotFound):
		return response.NewNotFound(err.Error())
	case errors.Is(err, services.ErrAssistantNotFailed):
		return response.NewConflict(err.Error())
	case errors.Is(err, services.ErrAssistantUnavailable):
		return response.NewUnavailable(err.Error(), err)
	}

	wrapped := response.NewServerError(err.Error())
	wrapped.Err = err
	return wrapped
}

func respondError(c *gin.Context, err error) {
	appErr := toAppError(err)
	if appErr.HTTPStatus >= 500 {
		logger.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	response.Error(c, appErr)
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid id")
		return 0, false
	}
	return uint(id), true
}
