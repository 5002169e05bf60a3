package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/websocket"

	"github.com/yungbote/navrelay/internal/domain/navigation"
	"github.com/yungbote/navrelay/internal/observability"
	"github.com/yungbote/navrelay/internal/platform/logger"
)

const (
	MessageTypeWelcome    = "welcome"
	MessageTypePageUpdate = "page_update"

	defaultHeartbeatInterval = 30 * time.Second
	defaultSendBuffer        = 64
	writeWait                = 10 * time.Second
	maxInboundBytes          = 64 << 10
)

type HubConfig struct {
	HeartbeatInterval time.Duration
	// SendBuffer is the per-connection outbound queue depth.
	SendBuffer int
	// AllowedOrigins gates the upgrade handshake. Empty or "*" allows any origin.
	AllowedOrigins []string
}

type pageUpdate struct {
	Type           string `json:"type"`
	RemID          string `json:"remId"`
	Strength       string `json:"strength"`
	UpdatedAt      string `json:"updatedAt"`
	SourceClientID string `json:"sourceClientId"`
	UserID         string `json:"userId"`
}

type welcome struct {
	Type string `json:"type"`
	Now  string `json:"now"`
}

// Hub tracks live WebSocket connections by tenant and fans page updates out
// to them.
type Hub struct {
	log     *logger.Logger
	clk     clock.Clock
	metrics *observability.Metrics

	heartbeat  time.Duration
	sendBuffer int
	upgrader   websocket.Upgrader

	mu      sync.RWMutex
	tenants map[string]map[*Client]struct{}
	count   int
	closed  bool
}

func NewHub(log *logger.Logger, clk clock.Clock, metrics *observability.Metrics, cfg HubConfig) *Hub {
	if clk == nil {
		clk = clock.New()
	}
	if metrics == nil {
		metrics = observability.New(clk)
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = defaultHeartbeatInterval
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = defaultSendBuffer
	}
	h := &Hub{
		log:        log.With("component", "WSHub"),
		clk:        clk,
		metrics:    metrics,
		heartbeat:  cfg.HeartbeatInterval,
		sendBuffer: cfg.SendBuffer,
		tenants:    make(map[string]map[*Client]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(cfg.AllowedOrigins),
	}
	metrics.WSConnectionsNow.Bind(func() int64 { return int64(h.Count()) })
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		o = strings.TrimSpace(o)
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		if o != "" {
			set[o] = struct{}{}
		}
	}
	if len(set) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			// non-browser client
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// Upgrade completes the WebSocket handshake. On failure the upgrader has
// already written an HTTP error response.
func (h *Hub) Upgrade(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	return h.upgrader.Upgrade(w, r, nil)
}

// Reject closes a freshly upgraded socket with a policy-violation close frame.
func (h *Hub) Reject(conn *websocket.Conn, reason string) {
	h.metrics.WSConnectionsRejected.Inc()
	h.log.Info("websocket rejected", "reason", reason)
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	_ = conn.Close()
}

// Register adds c to its tenant's set. It reports false once the hub has been
// shut down.
func (h *Hub) Register(c *Client) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	set, ok := h.tenants[c.Tenant]
	if !ok {
		set = make(map[*Client]struct{})
		h.tenants[c.Tenant] = set
	}
	if _, dup := set[c]; !dup {
		set[c] = struct{}{}
		h.count++
	}
	h.mu.Unlock()

	h.metrics.WSConnectionsOpened.Inc()
	c.log.Debug("websocket registered")
	return true
}

// Unregister is idempotent.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	set, ok := h.tenants[c.Tenant]
	removed := false
	if ok {
		if _, present := set[c]; present {
			delete(set, c)
			h.count--
			removed = true
		}
		if len(set) == 0 {
			delete(h.tenants, c.Tenant)
		}
	}
	h.mu.Unlock()

	if removed {
		h.metrics.WSConnectionsClosed.Inc()
		c.log.Debug("websocket unregistered")
	}
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

func (h *Hub) CountTenant(tenant string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.tenants[tenant])
}

func (h *Hub) snapshot(tenant string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if tenant != "" {
		set := h.tenants[tenant]
		out := make([]*Client, 0, len(set))
		for c := range set {
			out = append(out, c)
		}
		return out
	}
	out := make([]*Client, 0, h.count)
	for _, set := range h.tenants {
		for c := range set {
			out = append(out, c)
		}
	}
	return out
}

// Broadcast queues a page_update for every socket of tenant and returns the
// number of sockets it was queued for. Incomplete states are never sent.
func (h *Hub) Broadcast(tenant string, state navigation.TenantState) int {
	if !state.Populated() {
		h.metrics.BroadcastSkipped.Inc()
		h.log.Warn("broadcast skipped: incomplete state", "user_id", tenant)
		return 0
	}
	msg, err := json.Marshal(pageUpdate{
		Type:           MessageTypePageUpdate,
		RemID:          *state.RemID,
		Strength:       string(*state.Strength),
		UpdatedAt:      navigation.FormatTime(*state.UpdatedAt),
		SourceClientID: *state.SourceClientID,
		UserID:         tenant,
	})
	if err != nil {
		h.log.Error("page_update encode failed", "user_id", tenant, "error", err)
		return 0
	}

	reached := 0
	for _, c := range h.snapshot(tenant) {
		if c.enqueue(msg) {
			reached++
			continue
		}
		h.metrics.BroadcastDropped.Inc()
		c.log.Warn("dropping page_update: outbound queue full or closed")
	}
	h.metrics.BroadcastMessages.Inc()
	h.metrics.BroadcastRecipients.Add(int64(reached))
	return reached
}

// RunHeartbeat pings every socket each interval and terminates the ones that
// did not answer the previous ping.
func (h *Hub) RunHeartbeat(ctx context.Context) error {
	ticker := h.clk.Ticker(h.heartbeat)
	defer ticker.Stop()
	h.log.Info("heartbeat started", "interval", h.heartbeat)
	for {
		select {
		case <-ctx.Done():
			h.log.Info("heartbeat stopped")
			return nil
		case <-ticker.C:
			h.sweepHeartbeat()
		}
	}
}

func (h *Hub) sweepHeartbeat() (terminated int) {
	for _, c := range h.snapshot("") {
		if !c.isAlive.CompareAndSwap(true, false) {
			c.log.Info("terminating unresponsive websocket")
			c.terminate()
			h.Unregister(c)
			h.metrics.WSStaleTerminated.Inc()
			terminated++
			continue
		}
		if err := c.ping(); err != nil {
			c.log.Debug("ping failed", "error", err)
		}
	}
	return terminated
}

// Shutdown closes every socket with 1001 and refuses new registrations.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()

	clients := h.snapshot("")
	for _, c := range clients {
		c.closeWith(websocket.CloseGoingAway, "server shutting down")
		h.Unregister(c)
	}
	h.log.Info("hub shut down", "closed", len(clients))
}
