package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"marketplace-orders/internal/domain"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type errorResponse struct {
	Error errorBody     `json:"error"`
	Order *orderPayload `json:"order,omitempty"`
}

// classify maps domain errors onto an HTTP status and an error code.
func classify(err error) (int, errorBody) {
	var (
		validation *domain.ValidationError
		notFound   *domain.NotFoundError
		invalid    *domain.InvalidTransitionError
		forbidden  *domain.ForbiddenError
		payment    *domain.PaymentError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, errorBody{Code: "validation_failed", Message: err.Error(), Field: validation.Field}
	case errors.As(err, &notFound), errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, errorBody{Code: "not_found", Message: err.Error()}
	case errors.As(err, &invalid):
		return http.StatusConflict, errorBody{Code: "invalid_transition", Message: err.Error()}
	case errors.As(err, &forbidden):
		return http.StatusForbidden, errorBody{Code: "forbidden", Message: err.Error()}
	case errors.As(err, &payment) && payment.RefundRequired:
		return http.StatusPaymentRequired, errorBody{Code: "payment_refund_required", Message: err.Error()}
	case errors.As(err, &payment):
		return http.StatusPaymentRequired, errorBody{Code: "payment_" + string(payment.Outcome), Message: err.Error()}
	case errors.Is(err, domain.ErrCheckoutInProgress):
		return http.StatusConflict, errorBody{Code: "checkout_in_progress", Message: err.Error()}
	case errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict, errorBody{Code: "already_exists", Message: err.Error()}
	}
	return http.StatusInternalServerError, errorBody{Code: "internal_error", Message: "internal server error"}
}

// writeError renders err and logs it when it is not a client error. The
// order is attached when the failure left one behind, as a declined checkout
// does.
func writeError(c *gin.Context, logger *zap.Logger, err error, order *orderPayload) {
	status, body := classify(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("request_id", c.GetString(ginRequestIDKey)),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	_ = c.Error(err)
	c.JSON(status, errorResponse{Error: body, Order: order})
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, errorResponse{Error: errorBody{Code: code, Message: message}})
}

func badRequest(c *gin.Context, message string) {
	abortWithError(c, http.StatusBadRequest, "bad_request", message)
}
