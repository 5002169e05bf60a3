package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	require.Equal(t, http.StatusBadRequest, StatusFor(CodeInvalidJSON))
	require.Equal(t, http.StatusBadRequest, StatusFor(CodeInvalidPayload))
	require.Equal(t, http.StatusBadRequest, StatusFor(CodeInvalidField))
	require.Equal(t, http.StatusBadRequest, StatusFor(CodeInvalidQuery))
	require.Equal(t, http.StatusRequestEntityTooLarge, StatusFor(CodeBodyTooLarge))
	require.Equal(t, http.StatusNotFound, StatusFor(CodeNotFound))
	require.Equal(t, http.StatusInternalServerError, StatusFor(CodeInternal))
	require.Equal(t, http.StatusInternalServerError, StatusFor("E_SOMETHING_NEW"))
}

func TestAs(t *testing.T) {
	require.Nil(t, As(nil))

	orig := Newf(CodeInvalidField, "remId %s", "must be a safe id")
	wrapped := fmt.Errorf("validate: %w", orig)
	require.Same(t, orig, As(wrapped))
	require.Equal(t, "remId must be a safe id", orig.Error())

	plain := errors.New("disk on fire")
	ae := As(plain)
	require.Equal(t, CodeInternal, ae.Code)
	require.Equal(t, http.StatusInternalServerError, ae.Status)
	require.ErrorIs(t, ae, plain)
}
