package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"github.com/tendant/simple-registry/pkg/registry"
)

type errorMapping struct {
	target error
	status int
	code   string
}

// Checked in order; the first match wins.
var errorMappings = []errorMapping{
	{registry.ErrInvalidArgument, http.StatusBadRequest, "invalid_argument"},
	{registry.ErrUnauthorized, http.StatusForbidden, "unauthorized"},
	{registry.ErrContentNotFound, http.StatusNotFound, "content_not_found"},
	{registry.ErrProposalNotFound, http.StatusNotFound, "proposal_not_found"},
	{registry.ErrPaused, http.StatusServiceUnavailable, "paused"},
	{registry.ErrReentrancyDetected, http.StatusConflict, "reentrancy_detected"},
	{registry.ErrAlreadyRated, http.StatusConflict, "already_rated"},
	{registry.ErrAlreadyVoted, http.StatusConflict, "already_voted"},
	{registry.ErrAlreadyExecuted, http.StatusConflict, "already_executed"},
	{registry.ErrInsufficientPayment, http.StatusPaymentRequired, "insufficient_payment"},
	{registry.ErrTransferFailed, http.StatusBadGateway, "transfer_failed"},
}

// statusFor maps a service error to an HTTP status and error code.
func statusFor(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "internal_error"
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	render.Status(r, status)
	render.JSON(w, r, map[string]interface{}{
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
	})
}

// writeServiceError renders err and logs it. Internal errors are not echoed
// to the client.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, msg string, err error, args ...any) {
	status, code := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), msg, append(args, "error", err)...)
		message = "internal server error"
	} else {
		h.logger.DebugContext(r.Context(), msg, append(args, "error", err)...)
	}
	writeError(w, r, status, code, message)
}
