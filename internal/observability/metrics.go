package observability

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/benbjohnson/clock"
)

const promPrefix = "navrelay_"

// Metrics holds every counter and gauge the relay exposes. Components receive
// the same *Metrics and increment the fields they own.
type Metrics struct {
	clk   clock.Clock
	start time.Time

	UpdatesAccepted *Counter
	UpdatesRejected *Counter
	StateReads      *Counter

	BroadcastMessages   *Counter
	BroadcastRecipients *Counter
	BroadcastSkipped    *Counter
	BroadcastDropped    *Counter

	WSConnectionsOpened   *Counter
	WSConnectionsClosed   *Counter
	WSConnectionsRejected *Counter
	WSStaleTerminated     *Counter
	WSInboundIgnored      *Counter

	TenantsCleared *Counter
	ClientsExpired *Counter
	GCSweeps       *Counter

	BusPublished *Counter
	BusReceived  *Counter
	BusErrors    *Counter

	HTTPRequests     *Counter
	httpRequestsVec  *CounterVec
	HTTPInflight     *Gauge
	WSConnectionsNow *GaugeFunc
	TenantsTracked   *GaugeFunc
	ClientsTracked   *GaugeFunc

	counters []*Counter
}

// New builds an empty metrics set. uptime is measured against clk.
func New(clk clock.Clock) *Metrics {
	if clk == nil {
		clk = clock.New()
	}
	m := &Metrics{
		clk:   clk,
		start: clk.Now(),

		UpdatesAccepted: NewCounter("updates_accepted", "Accepted /update requests."),
		UpdatesRejected: NewCounter("updates_rejected", "Rejected /update requests."),
		StateReads:      NewCounter("state_reads", "Served /state reads."),

		BroadcastMessages:   NewCounter("broadcast_messages", "page_update broadcasts issued."),
		BroadcastRecipients: NewCounter("broadcast_recipients", "Sockets a page_update was queued for."),
		BroadcastSkipped:    NewCounter("broadcast_skipped", "Broadcasts skipped because the state was incomplete."),
		BroadcastDropped:    NewCounter("broadcast_dropped", "page_update messages dropped on a full socket queue."),

		WSConnectionsOpened:   NewCounter("ws_connections_opened", "WebSocket connections registered."),
		WSConnectionsClosed:   NewCounter("ws_connections_closed", "WebSocket connections unregistered."),
		WSConnectionsRejected: NewCounter("ws_connections_rejected", "WebSocket upgrades closed for a bad userId."),
		WSStaleTerminated:     NewCounter("ws_stale_terminated", "Connections terminated by the heartbeat sweep."),
		WSInboundIgnored:      NewCounter("ws_inbound_ignored", "Inbound WebSocket data frames discarded."),

		TenantsCleared: NewCounter("tenants_cleared", "Tenant states cleared."),
		ClientsExpired: NewCounter("clients_expired", "Client activity records expired."),
		GCSweeps:       NewCounter("gc_sweeps", "Garbage collector sweeps."),

		BusPublished: NewCounter("bus_published", "Updates published to peer relays."),
		BusReceived:  NewCounter("bus_received", "Updates applied from peer relays."),
		BusErrors:    NewCounter("bus_errors", "Peer bus publish or decode failures."),

		HTTPRequests:     NewCounter("http_requests", "HTTP requests served."),
		httpRequestsVec:  NewCounterVec("http_requests_by_route", "HTTP requests by method/route/status.", []string{"method", "route", "status"}),
		HTTPInflight:     NewGauge("http_inflight_requests", "In-flight HTTP requests."),
		WSConnectionsNow: NewGaugeFunc("ws_connections_open", "Open WebSocket connections."),
		TenantsTracked:   NewGaugeFunc("tenants_tracked", "Tenants with a populated state."),
		ClientsTracked:   NewGaugeFunc("clients_tracked", "Devices with an activity record."),
	}
	m.counters = []*Counter{
		m.UpdatesAccepted, m.UpdatesRejected, m.StateReads,
		m.BroadcastMessages, m.BroadcastRecipients, m.BroadcastSkipped, m.BroadcastDropped,
		m.WSConnectionsOpened, m.WSConnectionsClosed, m.WSConnectionsRejected, m.WSStaleTerminated, m.WSInboundIgnored,
		m.TenantsCleared, m.ClientsExpired, m.GCSweeps,
		m.BusPublished, m.BusReceived, m.BusErrors,
		m.HTTPRequests,
	}
	return m
}

func (m *Metrics) ObserveHTTP(method, route string, status int) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.HTTPRequests.Inc()
	m.httpRequestsVec.Inc(method, route, strconv.Itoa(status))
}

// Snapshot is the JSON body of GET /metrics (minus ok/now).
type Snapshot struct {
	UptimeMs int64            `json:"uptimeMs"`
	Counters map[string]int64 `json:"counters"`
	Gauges   map[string]int64 `json:"gauges"`
}

func (m *Metrics) Snapshot() Snapshot {
	snap := Snapshot{
		Counters: map[string]int64{},
		Gauges:   map[string]int64{},
	}
	if m == nil {
		return snap
	}
	snap.UptimeMs = m.clk.Since(m.start).Milliseconds()
	for _, c := range m.counters {
		snap.Counters[c.name] = c.Value()
	}
	snap.Gauges[m.HTTPInflight.name] = m.HTTPInflight.Value()
	for _, g := range m.gaugeFuncs() {
		snap.Gauges[g.name] = g.Value()
	}
	return snap
}

func (m *Metrics) gaugeFuncs() []*GaugeFunc {
	return []*GaugeFunc{m.WSConnectionsNow, m.TenantsTracked, m.ClientsTracked}
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, c := range m.counters {
		if err := c.WritePrometheus(w, promPrefix); err != nil {
			return err
		}
	}
	if err := m.httpRequestsVec.WritePrometheus(w, promPrefix); err != nil {
		return err
	}
	if err := writeGauge(w, m.HTTPInflight.name, m.HTTPInflight.help, m.HTTPInflight.Value()); err != nil {
		return err
	}
	for _, g := range m.gaugeFuncs() {
		if err := writeGauge(w, g.name, g.help, g.Value()); err != nil {
			return err
		}
	}
	return writeGauge(w, "uptime_seconds", "Seconds since the relay started.", int64(m.clk.Since(m.start).Seconds()))
}

func writeGauge(w io.Writer, name, help string, v int64) error {
	full := promPrefix + name
	if err := writeHeader(w, full, help, "gauge"); err != nil {
		return err
	}
	_, err := io.WriteString(w, full+" "+strconv.FormatInt(v, 10)+"\n")
	return err
}
