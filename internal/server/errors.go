package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/campus/internal/authorization"
	billingdomain "github.com/smallbiznis/campus/internal/billing/domain"
	"github.com/smallbiznis/campus/internal/tenantctx"
	"github.com/smallbiznis/campus/pkg/db/pagination"
	"github.com/smallbiznis/campus/pkg/repository"
	"github.com/smallbiznis/campus/pkg/validation"
)

// errTooManyRequests marks a rate-limited request.
var errTooManyRequests = errors.New("too_many_requests")

type errorResponse struct {
	Error     string                  `json:"error"`
	Message   string                  `json:"message"`
	RequestID string                  `json:"request_id,omitempty"`
	Details   []validation.FieldError `json:"details,omitempty"`
	Debug     string                  `json:"debug,omitempty"`
}

// ErrorHandlingMiddleware renders the last recorded error once the handler
// chain finishes. Handlers record errors via AbortWithError and never write
// error bodies themselves.
func (s *Server) ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}
		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := s.mapError(lastErr.Err)
		payload.RequestID = c.GetString("request_id")
		c.AbortWithStatusJSON(status, payload)
	}
}

// AbortWithError records err for the error middleware and stops the chain.
func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func (s *Server) mapError(err error) (int, errorResponse) {
	var verrs *validation.Errors
	if errors.As(err, &verrs) {
		return http.StatusBadRequest, errorResponse{
			Error:   "validation_error",
			Message: "one or more fields are invalid",
			Details: verrs.Fields,
		}
	}

	switch {
	case errors.Is(err, pagination.ErrInvalidCursor):
		return http.StatusBadRequest, errorResponse{
			Error:   "invalid_cursor",
			Message: "the page token could not be decoded",
		}
	case errors.Is(err, billingdomain.ErrMalformedEvent):
		return http.StatusBadRequest, errorResponse{
			Error:   "malformed_event",
			Message: "the webhook payload could not be decoded",
		}
	case errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, errorResponse{
			Error:   "forbidden",
			Message: "your role does not permit this operation",
		}
	case errors.Is(err, billingdomain.ErrInvalidSignature):
		return http.StatusForbidden, errorResponse{
			Error:   "invalid_signature",
			Message: "the payload signature did not match",
		}
	// A conditional mutation that matched nothing answers exactly like a
	// missing entity, so callers cannot probe for existence.
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, repository.ErrNotFoundOrForbidden),
		errors.Is(err, billingdomain.ErrUnknownProvider):
		return http.StatusNotFound, errorResponse{
			Error:   "not_found",
			Message: "the requested resource does not exist",
		}
	case errors.Is(err, repository.ErrAlreadyExists):
		return http.StatusConflict, errorResponse{
			Error:   "already_exists",
			Message: "a resource with this id already exists",
		}
	case errors.Is(err, errTooManyRequests):
		return http.StatusTooManyRequests, errorResponse{
			Error:   "too_many_requests",
			Message: "slow down and retry later",
		}
	case errors.Is(err, repository.ErrUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, errorResponse{
			Error:   "unavailable",
			Message: "the backing store is unavailable, retry with backoff",
		}
	}

	payload := errorResponse{
		Error:   "internal",
		Message: "an unexpected error occurred",
	}
	if s.cfg.Debug {
		payload.Debug = err.Error()
	}
	return http.StatusInternalServerError, payload
}

// classifyErrorForLog labels errors for the request log.
func classifyErrorForLog(err error) (string, string) {
	var verrs *validation.Errors
	switch {
	case errors.As(err, &verrs):
		return "validation", "validation_error"
	case errors.Is(err, pagination.ErrInvalidCursor):
		return "validation", "invalid_cursor"
	case errors.Is(err, authorization.ErrForbidden):
		return "authorization", "forbidden"
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, repository.ErrNotFoundOrForbidden):
		return "not_found", "not_found"
	case errors.Is(err, repository.ErrAlreadyExists):
		return "conflict", "already_exists"
	case errors.Is(err, repository.ErrUnavailable):
		return "unavailable", "store_unavailable"
	case errors.Is(err, tenantctx.ErrMissingIdentity):
		return "internal", "missing_identity"
	default:
		return "internal", "internal"
	}
}
