package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/navrelay/internal/http/response"
	"github.com/yungbote/navrelay/internal/jobs/sweeper"
	"github.com/yungbote/navrelay/internal/normalization"
	"github.com/yungbote/navrelay/internal/observability"
	"github.com/yungbote/navrelay/internal/platform/apierr"
	"github.com/yungbote/navrelay/internal/platform/logger"
	"github.com/yungbote/navrelay/internal/services"
)

const DefaultMaxBodyBytes int64 = 1_000_000

type RelayHandler struct {
	log          *logger.Logger
	relay        *services.RelayService
	sweeper      *sweeper.Sweeper
	metrics      *observability.Metrics
	maxBodyBytes int64
}

func NewRelayHandler(log *logger.Logger, relay *services.RelayService, sw *sweeper.Sweeper, metrics *observability.Metrics, maxBodyBytes int64) *RelayHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &RelayHandler{
		log:          log.With("component", "RelayHandler"),
		relay:        relay,
		sweeper:      sw,
		metrics:      metrics,
		maxBodyBytes: maxBodyBytes,
	}
}

// resolveTenant validates the raw userId query parameter; surrounding
// whitespace makes it invalid. In single-tenant mode it is optional and
// ignored once validated.
func (h *RelayHandler) resolveTenant(userID string) (string, *apierr.Error) {
	if userID == "" {
		if h.relay.MultiTenant() {
			return "", apierr.Newf(apierr.CodeInvalidQuery, "userId query parameter is required")
		}
		return h.relay.Tenant(""), nil
	}
	if !normalization.IsSafeID(userID) {
		return "", apierr.Newf(apierr.CodeInvalidQuery, "userId must match [A-Za-z0-9_-]{1,%d}", normalization.MaxIDLength)
	}
	return h.relay.Tenant(userID), nil
}

// GET /state?userId=
func (h *RelayHandler) GetState(c *gin.Context) {
	if h.sweeper != nil {
		h.sweeper.Sweep("state_read")
	}
	tenant, aerr := h.resolveTenant(c.Query("userId"))
	if aerr != nil {
		response.RespondError(c, aerr)
		return
	}
	response.RespondOK(c, h.relay.State(tenant))
}

// POST /update
func (h *RelayHandler) PostUpdate(c *gin.Context) {
	raw, aerr := h.readBody(c)
	if aerr != nil {
		h.reject(c, aerr)
		return
	}
	u, aerr := normalization.ValidateUpdate(raw, normalization.UpdateOptions{RequireUserID: h.relay.MultiTenant()})
	if aerr != nil {
		h.reject(c, aerr)
		return
	}
	st := h.relay.Publish(c.Request.Context(), u)
	response.RespondOK(c, gin.H{"ok": true, "state": st})
}

func (h *RelayHandler) readBody(c *gin.Context) ([]byte, *apierr.Error) {
	if c.Request.ContentLength > h.maxBodyBytes {
		return nil, apierr.Newf(apierr.CodeBodyTooLarge, "request body exceeds %d bytes", h.maxBodyBytes)
	}
	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apierr.Newf(apierr.CodeBodyTooLarge, "request body exceeds %d bytes", h.maxBodyBytes)
		}
		return nil, apierr.New(http.StatusInternalServerError, apierr.CodeInternal, err)
	}
	return raw, nil
}

func (h *RelayHandler) reject(c *gin.Context, aerr *apierr.Error) {
	h.metrics.UpdatesRejected.Inc()
	h.log.Debug("update rejected", "code", aerr.Code, "error", aerr.Error())
	response.RespondError(c, aerr)
}
