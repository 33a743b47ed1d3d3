// Package telemetry records HTTP server metrics for the care-plan API and
// serves them in Prometheus text exposition format.
package telemetry

import (
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
)

// durationBuckets are request duration bucket boundaries in seconds. Uploads
// run PDF extraction and chat waits on the model, so the upper buckets matter.
var durationBuckets = []float64{
	0.010, 0.025, 0.050, 0.100, 0.250, 0.500, 1.0, 2.5, 5.0, 10.0, 30.0,
}

type histogram struct {
	boundaries []float64
	counts     []int64
	count      int64
	sumBits    uint64
}

func newHistogram(boundaries []float64) *histogram {
	return &histogram{
		boundaries: boundaries,
		counts:     make([]int64, len(boundaries)),
	}
}

func (h *histogram) Observe(v float64) {
	for i, b := range h.boundaries {
		if v <= b {
			atomic.AddInt64(&h.counts[i], 1)
			break
		}
	}
	atomic.AddInt64(&h.count, 1)
	for {
		old := atomic.LoadUint64(&h.sumBits)
		next := math.Float64bits(math.Float64frombits(old) + v)
		if atomic.CompareAndSwapUint64(&h.sumBits, old, next) {
			return
		}
	}
}

// Count returns the number of observations.
func (h *histogram) Count() int64 { return atomic.LoadInt64(&h.count) }

// Sum returns the sum of all observations.
func (h *histogram) Sum() float64 { return math.Float64frombits(atomic.LoadUint64(&h.sumBits)) }

func (h *histogram) cumulative() []int64 {
	out := make([]int64, len(h.counts))
	var running int64
	for i := range h.counts {
		running += atomic.LoadInt64(&h.counts[i])
		out[i] = running
	}
	return out
}

// Provider holds the metric state. The zero value is not usable; call New.
type Provider struct {
	mu        sync.RWMutex
	durations map[string]*histogram
	requests  map[string]*int64
	active    int64
}

func New() *Provider {
	return &Provider{
		durations: make(map[string]*histogram),
		requests:  make(map[string]*int64),
	}
}

// LabelsKey builds the key for a (method, route, status) series.
func LabelsKey(method, route, status string) string {
	return method + "|" + route + "|" + status
}

func (p *Provider) series(key string) (*histogram, *int64) {
	p.mu.RLock()
	h, ok := p.durations[key]
	n := p.requests[key]
	p.mu.RUnlock()
	if ok {
		return h, n
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if h, ok = p.durations[key]; !ok {
		h = newHistogram(durationBuckets)
		n = new(int64)
		p.durations[key] = h
		p.requests[key] = n
	}
	return h, p.requests[key]
}

// RequestCount returns how many requests were recorded for a series.
func (p *Provider) RequestCount(method, route, status string) int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if n, ok := p.requests[LabelsKey(method, route, status)]; ok {
		return atomic.LoadInt64(n)
	}
	return 0
}

// ActiveRequests returns the number of requests currently in flight.
func (p *Provider) ActiveRequests() int64 { return atomic.LoadInt64(&p.active) }

// Middleware records request counts and durations keyed by route pattern, so
// /appointments/a1/confirm and /appointments/a2/confirm share a series.
func (p *Provider) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			atomic.AddInt64(&p.active, 1)
			start := time.Now()

			err := next(c)

			atomic.AddInt64(&p.active, -1)
			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			route := c.Path()
			if route == "" {
				route = c.Request().URL.Path
			}

			h, n := p.series(LabelsKey(c.Request().Method, route, strconv.Itoa(status)))
			h.Observe(time.Since(start).Seconds())
			atomic.AddInt64(n, 1)
			return err
		}
	}
}

// Handler serves the metrics in Prometheus text format.
func (p *Provider) Handler() echo.HandlerFunc {
	return func(c echo.Context) error {
		var b strings.Builder

		p.mu.RLock()
		keys := make([]string, 0, len(p.durations))
		for k := range p.durations {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteString("# HELP http_requests_total Total HTTP requests by method, route and status.\n")
		b.WriteString("# TYPE http_requests_total counter\n")
		for _, k := range keys {
			fmt.Fprintf(&b, "http_requests_total{%s} %d\n", labels(k), atomic.LoadInt64(p.requests[k]))
		}
		b.WriteByte('\n')

		b.WriteString("# HELP http_request_duration_seconds Duration of HTTP requests in seconds.\n")
		b.WriteString("# TYPE http_request_duration_seconds histogram\n")
		for _, k := range keys {
			writeHistogram(&b, "http_request_duration_seconds", labels(k), p.durations[k])
		}
		p.mu.RUnlock()
		b.WriteByte('\n')

		b.WriteString("# HELP http_active_requests Number of in-flight HTTP requests.\n")
		b.WriteString("# TYPE http_active_requests gauge\n")
		fmt.Fprintf(&b, "http_active_requests %d\n", p.ActiveRequests())

		return c.String(http.StatusOK, b.String())
	}
}

func labels(key string) string {
	parts := strings.SplitN(key, "|", 3)
	if len(parts) != 3 {
		return ""
	}
	return fmt.Sprintf("method=%q,route=%q,status_code=%q", parts[0], parts[1], parts[2])
}

func writeHistogram(b *strings.Builder, name, lbls string, h *histogram) {
	cum := h.cumulative()
	for i, boundary := range h.boundaries {
		fmt.Fprintf(b, "%s_bucket{%s,le=\"%g\"} %d\n", name, lbls, boundary, cum[i])
	}
	fmt.Fprintf(b, "%s_bucket{%s,le=\"+Inf\"} %d\n", name, lbls, h.Count())
	fmt.Fprintf(b, "%s_sum{%s} %g\n", name, lbls, h.Sum())
	fmt.Fprintf(b, "%s_count{%s} %d\n", name, lbls, h.Count())
}
