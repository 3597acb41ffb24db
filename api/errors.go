package api

import (
	"errors"
	"net/http"

	"rifei/application"
	"rifei/domain"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

var errUnauthenticated = errors.New("missing or invalid user identity")

type errorBody struct {
	Code    string  `json:"code"`
	Message string  `json:"message"`
	Numbers []int64 `json:"numbers,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorMapping struct {
	target error
	status int
	code   string
}

// Order matters: the first match wins
var errorMappings = []errorMapping{
	{domain.ErrNumbersUnavailable, http.StatusConflict, "numbers_unavailable"},

	{errUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
	{domain.ErrInvalidSignature, http.StatusUnauthorized, "invalid_signature"},
	{application.ErrForbidden, http.StatusForbidden, "forbidden"},
	{domain.ErrReservationNotOwned, http.StatusForbidden, "reservation_not_owned"},

	{domain.ErrRaffleNotFound, http.StatusNotFound, "raffle_not_found"},
	{domain.ErrReservationNotFound, http.StatusNotFound, "reservation_not_found"},
	{domain.ErrPaymentNotFound, http.StatusNotFound, "payment_not_found"},
	{domain.ErrUnknownReference, http.StatusNotFound, "unknown_reference"},

	{domain.ErrTooManyNumbers, http.StatusBadRequest, "too_many_numbers"},
	{domain.ErrNumberOutOfRange, http.StatusBadRequest, "number_out_of_range"},
	{domain.ErrDuplicateNumbers, http.StatusBadRequest, "duplicate_numbers"},
	{domain.ErrNoNumbers, http.StatusBadRequest, "no_numbers"},
	{domain.ErrInvalidRaffle, http.StatusBadRequest, "invalid_raffle"},
	{domain.ErrEndDateInPast, http.StatusBadRequest, "end_date_in_past"},
	{domain.ErrTooFewNumbers, http.StatusBadRequest, "too_few_numbers"},
	{domain.ErrInvalidFilter, http.StatusBadRequest, "invalid_filter"},

	{domain.ErrRaffleNotActive, http.StatusConflict, "raffle_not_active"},
	{domain.ErrAlreadyExpired, http.StatusConflict, "reservation_expired"},
	{domain.ErrAlreadyConfirmed, http.StatusConflict, "reservation_confirmed"},
	{domain.ErrReservationCancelled, http.StatusConflict, "reservation_cancelled"},
	{domain.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{domain.ErrNoTicketsSold, http.StatusConflict, "no_tickets_sold"},
	{domain.ErrDrawNotDue, http.StatusConflict, "draw_not_due"},
	{domain.ErrCancelNotAllowed, http.StatusConflict, "cancel_not_allowed"},
	{domain.ErrDeleteNotAllowed, http.StatusConflict, "delete_not_allowed"},
	{domain.ErrRaffleNotEditable, http.StatusConflict, "raffle_not_editable"},
	{domain.ErrNotDrawn, http.StatusConflict, "not_drawn"},
	{domain.ErrNotApproved, http.StatusConflict, "payment_not_approved"},

	{domain.ErrStorageConflict, http.StatusServiceUnavailable, "storage_conflict"},
	{application.ErrLockHeld, http.StatusServiceUnavailable, "busy"},
}

// statusForError maps an application error to an HTTP status and code
func statusForError(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "internal_error"
}

// respondError writes the JSON error body for err and aborts the chain
func respondError(c *gin.Context, err error) {
	status, code := statusForError(err)

	body := errorBody{Code: code, Message: err.Error()}
	if status == http.StatusInternalServerError {
		log.WithFields(log.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
			"error":  err,
		}).Error("Request failed")
		body.Message = "internal server error"
	}
	body.Numbers = domain.UnavailableNumbers(err)

	c.AbortWithStatusJSON(status, errorResponse{Error: body})
}

// respondBadRequest reports malformed input
func respondBadRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: errorBody{
		Code:    "bad_request",
		Message: message,
	}})
}
