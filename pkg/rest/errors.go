package rest

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrVerbNotSupported    = errors.New("verb not supported")
	ErrResourceNotFound    = errors.New("resource not found")
	ErrMissingParameter    = errors.New("missing parameter")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrConstraintViolation = errors.New("constraint violation")
	ErrDatabase            = errors.New("database error")
)

// Error is a request failure carried by a Result. Kind is one of the
// sentinel errors of this package; Err is the underlying cause, if any.
type Error struct {
	Kind       error
	Message    string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.Error()
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func newError(kind error, status int, format string, args ...any) *Error {
	return &Error{Kind: kind, StatusCode: status, Message: fmt.Sprintf(format, args...)}
}

func verbNotSupported(method string) *Error {
	return newError(ErrVerbNotSupported, http.StatusMethodNotAllowed,
		"This resource does not support the HTTP verb %s.", strings.ToUpper(method))
}

func resourceNotFound(uri string) *Error {
	return newError(ErrResourceNotFound, http.StatusNotFound, "No resource exists at %s.", uri)
}

func ambiguousResource(uri string) *Error {
	return newError(ErrResourceNotFound, http.StatusNotFound,
		"More than one resource exists at %s where only one should exist.", uri)
}

func missingParameter(name string) *Error {
	return newError(ErrMissingParameter, http.StatusBadRequest, "The URI parameter '%s' is required.", name)
}

func invalidRequest(err error) *Error {
	return &Error{Kind: ErrInvalidRequest, StatusCode: http.StatusBadRequest, Message: err.Error(), Err: err}
}

// StatusCode returns the HTTP status of err: the status of a *Error, 500
// for any other error and 200 for nil.
func StatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var e *Error
	if errors.As(err, &e) && e.StatusCode != 0 {
		return e.StatusCode
	}
	return http.StatusInternalServerError
}

// constraint maps a named database constraint to a client facing error.
type constraint struct {
	message    string
	statusCode int
}

// mapError converts a store error into a *Error. Violations of registered
// constraints become ErrConstraintViolation, invalid input and unknown
// columns become ErrInvalidRequest and everything else ErrDatabase.
func mapError(err error, constraints map[string]constraint) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if c, ok := constraints[pgErr.ConstraintName]; ok && pgErr.ConstraintName != "" {
			return &Error{Kind: ErrConstraintViolation, StatusCode: c.statusCode, Message: c.message, Err: err}
		}
		// 22xxx data exception, 42703 undefined column
		if strings.HasPrefix(pgErr.Code, "22") || pgErr.Code == "42703" {
			return &Error{Kind: ErrInvalidRequest, StatusCode: http.StatusBadRequest, Message: pgErr.Message, Err: err}
		}
	}
	return &Error{Kind: ErrDatabase, StatusCode: http.StatusInternalServerError, Message: "An unexpected database error occurred.", Err: err}
}
