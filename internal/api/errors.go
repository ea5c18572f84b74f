package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/safar/go-sql-marketplace/internal/authz"
	"github.com/safar/go-sql-marketplace/internal/database"
	"github.com/safar/go-sql-marketplace/internal/earnings"
	"github.com/safar/go-sql-marketplace/internal/inventory"
	"github.com/safar/go-sql-marketplace/internal/lock"
	"github.com/safar/go-sql-marketplace/internal/orders"
	"github.com/safar/go-sql-marketplace/internal/payouts"
	"github.com/safar/go-sql-marketplace/internal/store"
	"github.com/sirupsen/logrus"
)

type ErrorCode string

const (
	ErrCodeInvalidInput   ErrorCode = "INVALID_INPUT"
	ErrCodeUnauthorized   ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden      ErrorCode = "FORBIDDEN"
	ErrCodeNotFound       ErrorCode = "NOT_FOUND"
	ErrCodeConflict       ErrorCode = "CONFLICT"
	ErrCodeBusinessRule   ErrorCode = "BUSINESS_RULE_VIOLATION"
	ErrCodeInternalServer ErrorCode = "INTERNAL_SERVER_ERROR"
)

type APIError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
}

func (e APIError) Error() string {
	return string(e.Code) + ": " + e.Message
}

// classify maps a core error to its HTTP status and wire error.
func classify(err error) (int, APIError) {
	var (
		verrs           validation.Errors
		insufficient    *inventory.InsufficientStockError
		productNotFound *inventory.ProductNotFoundError
		invalidOrder    *orders.InvalidTransitionError
		notCancellable  *orders.OrderNotCancellableError
		emptyCart       *orders.EmptyCartError
		mixedSellers    *orders.MixedSellerOrderError
		windowExpired   *orders.ReturnWindowExpiredError
		invalidPayout   *payouts.InvalidPayoutTransitionError
		noEligible      *payouts.NoEligibleOrdersError
		concurrent      *database.ConcurrentModificationError
	)

	switch {
	case errors.As(err, &verrs):
		return http.StatusBadRequest, APIError{Code: ErrCodeInvalidInput, Message: "invalid request", Details: verrs}
	case errors.Is(err, orders.ErrInvalidPaymentMethod),
		errors.Is(err, inventory.ErrInvalidQuantity),
		errors.Is(err, store.ErrInvalidCursor):
		return http.StatusBadRequest, APIError{Code: ErrCodeInvalidInput, Message: err.Error()}
	case errors.Is(err, authz.ErrForbidden):
		return http.StatusForbidden, APIError{Code: ErrCodeForbidden, Message: err.Error()}
	case errors.As(err, &productNotFound),
		errors.Is(err, database.ErrOrderNotFound),
		errors.Is(err, database.ErrPayoutNotFound),
		errors.Is(err, database.ErrSellerNotFound),
		errors.Is(err, database.ErrProductNotFound):
		return http.StatusNotFound, APIError{Code: ErrCodeNotFound, Message: err.Error()}
	case errors.As(err, &invalidOrder),
		errors.As(err, &notCancellable),
		errors.As(err, &invalidPayout),
		errors.As(err, &concurrent),
		errors.Is(err, lock.ErrNotAcquired):
		return http.StatusConflict, APIError{Code: ErrCodeConflict, Message: err.Error()}
	case errors.As(err, &insufficient),
		errors.As(err, &emptyCart),
		errors.As(err, &mixedSellers),
		errors.As(err, &windowExpired),
		errors.As(err, &noEligible),
		errors.Is(err, payouts.ErrNoDestination),
		errors.Is(err, earnings.ErrUnknownCategory):
		return http.StatusUnprocessableEntity, APIError{Code: ErrCodeBusinessRule, Message: err.Error()}
	}
	return http.StatusInternalServerError, APIError{Code: ErrCodeInternalServer, Message: "internal server error"}
}

func (a *API) respondError(c *gin.Context, err error) {
	status, apiErr := classify(err)
	entry := a.log.WithError(err).WithFields(logrus.Fields{
		"request_id": c.GetString(requestIDKey),
		"status":     status,
	})
	if status >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Debug("request rejected")
	}
	c.AbortWithStatusJSON(status, apiErr)
}
