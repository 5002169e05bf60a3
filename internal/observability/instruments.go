package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// Counter is a monotonically increasing integer. A nil *Counter ignores writes.
type Counter struct {
	name string
	help string
	val  atomic.Int64
}

func NewCounter(name, help string) *Counter {
	return &Counter{name: name, help: help}
}

func (c *Counter) Inc() {
	if c == nil {
		return
	}
	c.val.Add(1)
}

func (c *Counter) Add(v int64) {
	if c == nil || v <= 0 {
		return
	}
	c.val.Add(v)
}

func (c *Counter) Value() int64 {
	if c == nil {
		return 0
	}
	return c.val.Load()
}

func (c *Counter) WritePrometheus(w io.Writer, prefix string) error {
	if c == nil {
		return nil
	}
	name := prefix + c.name + "_total"
	if err := writeHeader(w, name, c.help, "counter"); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%s %d\n", name, c.Value())
	return err
}

// Gauge is a value that can go up and down.
type Gauge struct {
	name string
	help string
	val  atomic.Int64
}

func NewGauge(name, help string) *Gauge {
	return &Gauge{name: name, help: help}
}

func (g *Gauge) Set(v int64) {
	if g == nil {
		return
	}
	g.val.Store(v)
}

func (g *Gauge) Inc() {
	if g == nil {
		return
	}
	g.val.Add(1)
}

func (g *Gauge) Dec() {
	if g == nil {
		return
	}
	g.val.Add(-1)
}

func (g *Gauge) Value() int64 {
	if g == nil {
		return 0
	}
	return g.val.Load()
}

// GaugeFunc samples its value on read. Components that own a collection
// register their Len method here instead of pushing updates.
type GaugeFunc struct {
	name string
	help string
	mu   sync.RWMutex
	fn   func() int64
}

func NewGaugeFunc(name, help string) *GaugeFunc {
	return &GaugeFunc{name: name, help: help}
}

func (g *GaugeFunc) Bind(fn func() int64) {
	if g == nil {
		return
	}
	g.mu.Lock()
	g.fn = fn
	g.mu.Unlock()
}

func (g *GaugeFunc) Value() int64 {
	if g == nil {
		return 0
	}
	g.mu.RLock()
	fn := g.fn
	g.mu.RUnlock()
	if fn == nil {
		return 0
	}
	return fn()
}

// CounterVec is a counter partitioned by label values.
type CounterVec struct {
	name       string
	help       string
	labelNames []string
	mu         sync.RWMutex
	values     map[string]int64
}

func NewCounterVec(name, help string, labels []string) *CounterVec {
	return &CounterVec{name: name, help: help, labelNames: labels, values: map[string]int64{}}
}

func (c *CounterVec) Inc(values ...string) {
	if c == nil {
		return
	}
	lbl := labelString(c.labelNames, values)
	c.mu.Lock()
	c.values[lbl]++
	c.mu.Unlock()
}

func (c *CounterVec) WritePrometheus(w io.Writer, prefix string) error {
	if c == nil {
		return nil
	}
	name := prefix + c.name + "_total"
	if err := writeHeader(w, name, c.help, "counter"); err != nil {
		return err
	}
	c.mu.RLock()
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%s%s %d\n", name, k, c.values[k]))
	}
	c.mu.RUnlock()
	for _, line := range lines {
		if _, err := io.WriteString(w, line); err != nil {
			return err
		}
	}
	return nil
}

func writeHeader(w io.Writer, name, help, kind string) error {
	if _, err := fmt.Fprintf(w, "# HELP %s %s\n", name, help); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
	return err
}

func labelString(names []string, values []string) string {
	if len(names) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("{")
	for i, name := range names {
		if i > 0 {
			b.WriteString(",")
		}
		val := "unknown"
		if i < len(values) && values[i] != "" {
			val = values[i]
		}
		b.WriteString(name)
		b.WriteString("=\"")
		b.WriteString(escapeLabel(val))
		b.WriteString("\"")
	}
	b.WriteString("}")
	return b.String()
}

func escapeLabel(v string) string {
	v = strings.ReplaceAll(v, "\\", "\\\\")
	v = strings.ReplaceAll(v, "\"", "\\\"")
	v = strings.ReplaceAll(v, "\n", "\\n")
	return v
}
