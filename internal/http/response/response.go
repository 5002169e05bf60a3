package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/navrelay/internal/platform/apierr"
)

const internalMessage = "internal error"

type ErrorEnvelope struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
	Code  string `json:"code"`
}

// RespondError writes {ok:false, error, code}. Internal errors never leak
// their detail.
func RespondError(c *gin.Context, err error) {
	ae := apierr.As(err)
	if ae == nil {
		ae = apierr.New(http.StatusInternalServerError, apierr.CodeInternal, nil)
	}
	status := ae.Status
	if status == 0 {
		status = apierr.StatusFor(ae.Code)
	}
	code := ae.Code
	if code == "" {
		code = apierr.CodeInternal
	}
	msg := ae.Error()
	if status >= http.StatusInternalServerError || code == apierr.CodeInternal {
		if ae.Err != nil {
			_ = c.Error(ae.Err)
		}
		msg = internalMessage
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{OK: false, Error: msg, Code: code})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
