package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stemsi/roster-backend/internal/service"
)

// Problem is the HTTP rendering of a domain error.
type Problem struct {
	Status int
	Code   ErrCode
	Fields map[string]string
}

// FromError maps a service error onto a status code and error code.
// Unrecognized errors become 500 INTERNAL_ERROR.
func FromError(err error) Problem {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		return Problem{http.StatusBadRequest, ErrValidation, map[string]string{ve.Field: ve.Message}}
	case errors.Is(err, service.ErrValidation):
		return Problem{Status: http.StatusBadRequest, Code: ErrValidation}
	case errors.Is(err, service.ErrUnauthenticated):
		return Problem{Status: http.StatusUnauthorized, Code: ErrTokenRequired}
	case errors.Is(err, service.ErrForbidden):
		return Problem{Status: http.StatusForbidden, Code: ErrForbidden}
	case errors.Is(err, service.ErrNotFound):
		return Problem{Status: http.StatusNotFound, Code: ErrNotFound}
	case errors.Is(err, service.ErrDuplicateName):
		return Problem{Status: http.StatusConflict, Code: ErrDuplicateName}
	case errors.Is(err, service.ErrDuplicateID):
		return Problem{Status: http.StatusConflict, Code: ErrDuplicateID}
	case errors.Is(err, service.ErrDuplicateUsername):
		return Problem{Status: http.StatusConflict, Code: ErrUsernameTaken}
	case errors.Is(err, service.ErrUnknownMajor):
		return Problem{Status: http.StatusUnprocessableEntity, Code: ErrUnknownMajor}
	case errors.Is(err, service.ErrInUse):
		return Problem{Status: http.StatusConflict, Code: ErrDependencyExists}
	case errors.Is(err, service.ErrInvalidCredentials):
		return Problem{Status: http.StatusUnauthorized, Code: ErrInvalidCredentials}
	case errors.Is(err, service.ErrCaptchaInvalid):
		return Problem{Status: http.StatusBadRequest, Code: ErrCaptchaInvalid}
	}
	return Problem{Status: http.StatusInternalServerError, Code: ErrInternal}
}

// Error writes the envelope for err. Internal failures are logged, never echoed.
func Error(c *gin.Context, log zerolog.Logger, err error) {
	p := FromError(err)
	if p.Status >= http.StatusInternalServerError {
		reqID, _ := c.Get(ContextKeyRequestID)
		log.Error().Err(err).Interface("request_id", reqID).Str("path", c.FullPath()).Msg("Request failed")
	}
	if len(p.Fields) > 0 {
		FailWithFields(c, p.Status, p.Code, p.Fields)
		return
	}
	Fail(c, p.Status, p.Code)
}
