// Package apperrors defines the application error taxonomy. Every error a
// use case returns to a handler is one of these codes, so transport layers
// can map expected user-facing failures (bad input, insufficient stock) apart
// from server-side ones (storage down).
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeInvalidRequest      = "InvalidRequest"
	CodeNotFound            = "NotFound"
	CodeInsufficientStock   = "InsufficientStock"
	CodeConcurrencyConflict = "ConcurrencyConflict"
	CodePersistenceFailure  = "PersistenceFailure"
)

type Error struct {
	Code    string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	cause   error
}

func (e *Error) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// HTTPStatus maps the error code to a response status.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case CodeInvalidRequest, CodeInsufficientStock:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConcurrencyConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func New(code, message, details string) *Error {
	return &Error{Code: code, Message: message, Details: details}
}

func NewInvalidRequest(message, details string) *Error {
	return New(CodeInvalidRequest, message, details)
}

func NewNotFound(entity, id string) *Error {
	return New(CodeNotFound, entity+" not found", fmt.Sprintf("ID: %s", id))
}

func NewConcurrencyConflict(details string) *Error {
	return New(CodeConcurrencyConflict, "write conflict detected", details)
}

func NewPersistenceFailure(err error) *Error {
	e := New(CodePersistenceFailure, "storage operation failed", err.Error())
	e.cause = err
	return e
}

// NewInsufficientStock reports that available batches cannot cover the
// requested quantity. The product identity and shortfall are part of the
// message because this error is shown to end users as-is.
func NewInsufficientStock(productID, productName string, requested, available int64) *InsufficientStockError {
	return &InsufficientStockError{
		ProductID:   productID,
		ProductName: productName,
		Requested:   requested,
		Available:   available,
	}
}

type InsufficientStockError struct {
	ProductID   string
	ProductName string
	Requested   int64
	Available   int64
}

func (e *InsufficientStockError) Shortfall() int64 {
	return e.Requested - e.Available
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: requested %d, available %d (short %d)",
		e.ProductName, e.Requested, e.Available, e.Shortfall())
}

// Code returns the taxonomy code so the error participates in the same
// transport mapping as *Error.
func (e *InsufficientStockError) Code() string {
	return CodeInsufficientStock
}

func (e *InsufficientStockError) HTTPStatus() int {
	return http.StatusBadRequest
}

// CodeOf extracts the taxonomy code of any application error, or
// PersistenceFailure for unrecognized errors.
func CodeOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	var stockErr *InsufficientStockError
	if errors.As(err, &stockErr) {
		return stockErr.Code()
	}
	return CodePersistenceFailure
}

// HTTPStatusOf maps any application error to a response status.
func HTTPStatusOf(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus()
	}
	var stockErr *InsufficientStockError
	if errors.As(err, &stockErr) {
		return stockErr.HTTPStatus()
	}
	return http.StatusInternalServerError
}
