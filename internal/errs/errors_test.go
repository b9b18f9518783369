package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeNotFound, CodeOf(NotFound("nope")))
	assert.Equal(t, CodeAlreadyExists, CodeOf(AlreadyExists("dup")))
	assert.Equal(t, CodeUnknown, CodeOf(errors.New("plain")))
	assert.Equal(t, CodeUnknown, CodeOf(nil))
}

func TestCodeSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("handler: %w", Forbidden("not yours"))
	assert.Equal(t, CodePermissionDenied, CodeOf(err))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(CodeInternal, "query user", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "query user")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{InvalidArg("bad"), http.StatusBadRequest},
		{NotFound("gone"), http.StatusNotFound},
		{AlreadyExists("dup"), http.StatusConflict},
		{Forbidden("no"), http.StatusForbidden},
		{Unauthorized("who"), http.StatusUnauthorized},
		{Internal("boom"), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HTTPStatus(tc.err), "%v", tc.err)
	}
}
