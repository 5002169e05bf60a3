package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/navrelay/internal/platform/apierr"
)

func respond(t *testing.T, err error) (*httptest.ResponseRecorder, ErrorEnvelope) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	RespondError(c, err)

	var env ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func TestRespondErrorClientError(t *testing.T) {
	rec, env := respond(t, apierr.Newf(apierr.CodeInvalidField, "strength must be strong or weak"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.False(t, env.OK)
	require.Equal(t, apierr.CodeInvalidField, env.Code)
	require.Equal(t, "strength must be strong or weak", env.Error)
}

func TestRespondErrorHidesInternalDetail(t *testing.T) {
	rec, env := respond(t, errors.New("connection reset by peer at 10.0.0.3"))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, apierr.CodeInternal, env.Code)
	require.Equal(t, internalMessage, env.Error)
}

func TestRespondErrorBodyTooLarge(t *testing.T) {
	rec, env := respond(t, apierr.Newf(apierr.CodeBodyTooLarge, "body exceeds %d bytes", 10))
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	require.Equal(t, apierr.CodeBodyTooLarge, env.Code)
}
