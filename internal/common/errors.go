package common

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound           = errors.New("requested resource not found")
	ErrUnauthorized       = errors.New("unauthorized access")
	ErrBadRequest         = errors.New("bad request")
	ErrConflict           = errors.New("resource conflict") // e.g. handle already linked
	ErrInternalServer     = errors.New("internal server error")
	ErrValidation         = errors.New("validation failed")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrUpstream           = errors.New("upstream platform error")
	ErrSyncLockFailed     = errors.New("failed to acquire sync lock")
)

const pgUniqueViolation = "23505"

// statusTable is checked in order; the first sentinel found in the chain wins.
var statusTable = []struct {
	err    error
	status int
}{
	{ErrNotFound, http.StatusNotFound},
	{ErrUnauthorized, http.StatusUnauthorized},
	{ErrBadRequest, http.StatusBadRequest},
	{ErrValidation, http.StatusBadRequest},
	{ErrConflict, http.StatusConflict},
	{ErrSyncLockFailed, http.StatusConflict},
	{ErrServiceUnavailable, http.StatusServiceUnavailable},
	{ErrUpstream, http.StatusBadGateway},
}

// UpstreamError describes a failed call to LeetCode or Codeforces.
type UpstreamError struct {
	Platform   string
	Operation  string
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: upstream status %d: %s", e.Platform, e.Operation, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: %s", e.Platform, e.Operation, e.Message)
}

func (e *UpstreamError) Unwrap() error { return ErrUpstream }

// HTTPStatusFromError maps domain errors to HTTP status codes.
func HTTPStatusFromError(err error) int {
	if err == nil {
		return http.StatusOK
	}
	for _, entry := range statusTable {
		if errors.Is(err, entry.err) {
			return entry.status
		}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// Errorf is fmt.Errorf.
func Errorf(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}
