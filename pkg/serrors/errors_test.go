package serrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{NewValidation("ORG_INVALID_BODY", "bad body", nil), http.StatusBadRequest},
		{NewNotFound("ORG_NOT_FOUND", "missing"), http.StatusNotFound},
		{NewCycleDetected("ORG_CYCLE", "cycle"), http.StatusConflict},
		{NewInvalidReparent("ORG_INVALID_REPARENT", "bad move"), http.StatusUnprocessableEntity},
		{NewReferentialIntegrity("ORG_IN_USE", "referenced"), http.StatusConflict},
		{NewConflict("ORG_VERSION_CONFLICT", "stale"), http.StatusConflict},
		{NewInternal(errors.New("boom")), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, HTTPStatus(tc.err), "err=%v", tc.err)
	}
}

func TestHTTPStatus_SeesThroughWrapping(t *testing.T) {
	err := fmt.Errorf("outer: %w", NewNotFound("ORG_NOT_FOUND", "missing"))
	require.Equal(t, http.StatusNotFound, HTTPStatus(err))
	require.True(t, IsKind(err, KindNotFound))
	require.False(t, IsKind(err, KindValidation))
}

func TestError_UnwrapAndMessage(t *testing.T) {
	cause := errors.New("pg down")
	err := NewInternal(cause)
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "pg down")

	bare := NewValidation("ORG_INVALID_BODY", "percentage out of range", map[string]string{
		"percentage": "must be in (0, 1]",
	})
	require.Equal(t, "percentage out of range", bare.Error())
	require.Equal(t, "must be in (0, 1]", bare.Fields["percentage"])
}
