package goerror

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func asError(t *testing.T, err error) *Error {
	t.Helper()
	var gerr *Error
	require.ErrorAs(t, err, &gerr)
	return gerr
}

func TestNewBusinessWrap(t *testing.T) {
	cause := errors.New("cooldown")
	gerr := asError(t, NewBusinessWrap(cause, "Please wait", CodeTooManyRequest, "seconds_remaining", "42", "dangling"))

	assert.ErrorIs(t, gerr, cause)
	assert.Equal(t, "cooldown", gerr.Error())
	assert.Equal(t, "Please wait", gerr.Msg())
	assert.Equal(t, TypeBusiness, gerr.Type())
	assert.Equal(t, http.StatusTooManyRequests, gerr.StatusCode())
	assert.Equal(t, map[string]string{"seconds_remaining": "42"}, gerr.Fields())
}

func TestNewInvalidInput(t *testing.T) {
	gerr := asError(t, NewInvalidInput(nil, "code", "must be 6 digits"))
	assert.Equal(t, http.StatusUnprocessableEntity, gerr.StatusCode())
	assert.Equal(t, map[string]string{"code": "must be 6 digits"}, gerr.Fields())

	gerr = asError(t, NewInvalidInput(nil, "code"))
	assert.Equal(t, CodeInvalidFormat, gerr.Code())

	cause := errors.New("bad email")
	gerr = asError(t, NewInvalidInput(cause, "ignored", "x"))
	assert.ErrorIs(t, gerr, cause)
	assert.Nil(t, gerr.Fields())
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeInternal, http.StatusInternalServerError},
		{CodeInvalidFormat, http.StatusBadRequest},
		{CodeNotFound, http.StatusNotFound},
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeForbidden, http.StatusForbidden},
		{CodeGone, http.StatusGone},
		{CodeUnavailable, http.StatusServiceUnavailable},
		{CodeBadGateway, http.StatusBadGateway},
		{Code(99), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, asError(t, NewBusiness("x", tt.code)).StatusCode())
		})
	}
}

func TestError_Message(t *testing.T) {
	assert.Equal(t, "Invalid request body", NewInvalidFormat().Error())
	assert.Equal(t, "Request body is required", NewInvalidFormat("Request body is required").Error())
	assert.Equal(t, "ERROR_TYPE_SERVER", (&Error{}).Error())
	assert.Equal(t, "ERROR_TYPE_UNKNOWN", Type(7).String())

	gerr := asError(t, NewServer(errors.New("db down")))
	assert.Equal(t, "db down", gerr.Error())
	assert.Equal(t, "Internal server error", gerr.Msg())
	assert.Contains(t, gerr.String(), "ERROR_CODE_INTERNAL")
}
