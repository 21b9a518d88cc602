package controllers

import (
	"errors"
	"net/http"

	"revisitly-backend/logger"
	"revisitly-backend/services"
	"revisitly-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const genericFailure = "Something went wrong, please try again"

// respondServiceError maps a service error to a status and error body.
// Internal failures never leak their message to the caller.
func respondServiceError(c *gin.Context, err error) {
	var (
		validation *services.ValidationError
		notFound   *services.NotFoundError
		authz      *services.AuthorizationError
		conflict   *services.ConflictError
		notLogged  *services.SentNotRecordedError
		up         *services.UpstreamError
	)
	switch {
	case errors.As(err, &validation):
		utils.RespondWithError(c, http.StatusBadRequest, validation.Error(), utils.CodeInvalidInput)
		return
	case errors.As(err, &notFound):
		utils.RespondWithError(c, http.StatusNotFound, notFound.Error(), utils.CodeNotFound)
		return
	case errors.As(err, &authz):
		utils.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", utils.CodeUnauthorized)
		return
	case errors.As(err, &conflict):
		utils.RespondWithError(c, http.StatusConflict, conflict.Error(), utils.CodeConflict)
		return
	}

	l := logger.For("http")
	l.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	switch {
	case errors.As(err, &notLogged):
		utils.RespondWithError(c, http.StatusInternalServerError, genericFailure, utils.CodeSentNotRecorded)
	case errors.As(err, &up):
		utils.RespondWithError(c, http.StatusInternalServerError, genericFailure, utils.CodeUpstream)
	default:
		utils.RespondWithError(c, http.StatusInternalServerError, genericFailure, utils.CodeInternalError)
	}
}

func contextID(c *gin.Context, key string) (uuid.UUID, bool) {
	raw := c.GetString(key)
	id, err := uuid.Parse(raw)
	if err != nil {
		utils.RespondWithError(c, http.StatusUnauthorized, "Invalid token claims", utils.CodeInvalidToken)
		return uuid.Nil, false
	}
	return id, true
}
