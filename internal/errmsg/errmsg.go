package errmsg

import (
	"errors"
	"net/http"
)

type HTTPError struct {
	Code    int
	Message error
}

func NewHTTPError(code int, message error) HTTPError {
	return HTTPError{Code: code, Message: message}
}

func (e *HTTPError) Error() string {
	return e.Message.Error()
}

var (
	ErrRequestPayloadEmpty = NewHTTPError(
		http.StatusBadRequest,
		errors.New("request payload is empty"),
	)

	ErrRequestPayloadInvalid = NewHTTPError(
		http.StatusBadRequest,
		errors.New("request payload is invalid"),
	)
)

var (
	ErrAccountAlreadyExists = NewHTTPError(
		http.StatusConflict,
		errors.New("account already exists"),
	)

	ErrAccountNotFound = NewHTTPError(
		http.StatusNotFound,
		errors.New("account not found"),
	)

	ErrAccountCredentialsInvalid = NewHTTPError(
		http.StatusUnauthorized,
		errors.New("account credentials invalid"),
	)

	ErrAdminOnly = NewHTTPError(
		http.StatusForbidden,
		errors.New("admin access required"),
	)
)

var (
	ErrCodeRequired = NewHTTPError(
		http.StatusBadRequest,
		errors.New("two-factor code required"),
	)

	ErrInvalidCode = NewHTTPError(
		http.StatusBadRequest,
		errors.New("two-factor code invalid"),
	)

	ErrNoPendingSetup = NewHTTPError(
		http.StatusBadRequest,
		errors.New("no pending two-factor setup"),
	)
)

var (
	ErrInvalidAmount = NewHTTPError(
		http.StatusBadRequest,
		errors.New("amount must be a positive whole number"),
	)

	ErrInvalidBankAccount = NewHTTPError(
		http.StatusBadRequest,
		errors.New("bank account invalid or not owned by caller"),
	)

	ErrWithdrawalNotFound = NewHTTPError(
		http.StatusNotFound,
		errors.New("withdrawal request not found"),
	)

	ErrWithdrawalAlreadyReviewed = NewHTTPError(
		http.StatusConflict,
		errors.New("withdrawal request already reviewed"),
	)

	ErrInvalidStatus = NewHTTPError(
		http.StatusBadRequest,
		errors.New("status must be approved or rejected"),
	)
)
