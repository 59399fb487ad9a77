package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatusFromError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"not found wrapped", fmt.Errorf("profile: %w", ErrNotFound), http.StatusNotFound},
		{"validation", ErrValidation, http.StatusBadRequest},
		{"lock", ErrSyncLockFailed, http.StatusConflict},
		{"upstream", &UpstreamError{Platform: "codeforces", Operation: "user.info", Message: "handle not found"}, http.StatusBadGateway},
		{"unique violation", &pgconn.PgError{Code: "23505"}, http.StatusConflict},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HTTPStatusFromError(tc.err))
		})
	}
}

func TestUpstreamErrorMessage(t *testing.T) {
	err := &UpstreamError{Platform: "leetcode", Operation: "graphql", StatusCode: 429, Message: "slow down"}
	assert.Equal(t, "leetcode graphql: upstream status 429: slow down", err.Error())
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestRespondWithErrHidesInternalDetails(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondWithErr(rr, errors.New("pq: connection refused"))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, ErrInternalServer.Error(), body.Error)
}

func TestRespondWithErrKeepsClientMessage(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondWithErr(rr, fmt.Errorf("unsupported platform %q: %w", "atcoder", ErrBadRequest))

	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "unsupported platform")
}

func TestNewPage(t *testing.T) {
	p := NewPage[string](nil, 45, 2, 20)
	assert.NotNil(t, p.Items)
	assert.True(t, p.HasMore)

	last := NewPage([]string{"a"}, 41, 3, 20)
	assert.False(t, last.HasMore)
}
