// Package metrics keeps codec counters and latency histograms and renders
// them in the Prometheus text exposition format.
package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/RowanDark/postparam"
)

// Rejection reasons used as label values.
const (
	ReasonInvalidEncoding = "invalid_encoding"
	ReasonMalformedUTF8   = "malformed_utf8"
	ReasonTooLarge        = "too_large"
	ReasonOther           = "other"
)

var defaultBuckets = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1}

type collector interface {
	write(sb *strings.Builder)
}

type counterVec struct {
	name   string
	help   string
	labels []string

	mu     sync.RWMutex
	values map[string]float64
}

type histogramVec struct {
	name    string
	help    string
	labels  []string
	buckets []float64

	mu     sync.RWMutex
	values map[string]*histogramValue
}

type histogramValue struct {
	counts []uint64
	sum    float64
	total  uint64
}

// Registry holds the codec metrics of one process.
type Registry struct {
	requests   *counterVec
	rejections *counterVec
	inputBytes *counterVec
	latency    *histogramVec
	collectors []collector
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	r := &Registry{
		requests:   newCounterVec("postparam_codec_requests_total", "Codec calls handled, by transport and operation.", []string{"transport", "op"}),
		rejections: newCounterVec("postparam_codec_rejections_total", "Codec calls rejected, by transport, operation and reason.", []string{"transport", "op", "reason"}),
		inputBytes: newCounterVec("postparam_codec_input_bytes_total", "Bytes of input accepted by the codec.", []string{"transport", "op"}),
		latency:    newHistogramVec("postparam_codec_duration_seconds", "Time spent in codec calls.", []string{"transport", "op"}, defaultBuckets),
	}
	r.collectors = []collector{r.requests, r.rejections, r.inputBytes, r.latency}
	return r
}

var defaultRegistry = NewRegistry()

// Default returns the process wide registry.
func Default() *Registry {
	return defaultRegistry
}

// Observe records one codec call. A nil err counts as accepted.
func (r *Registry) Observe(transport, op string, n int, dur time.Duration, err error) {
	r.requests.add(1, transport, op)
	r.latency.observe(dur.Seconds(), transport, op)
	if err != nil {
		r.rejections.add(1, transport, op, Reason(err))
		return
	}
	r.inputBytes.add(float64(n), transport, op)
}

// Reject records a call turned away before reaching the codec.
func (r *Registry) Reject(transport, op, reason string) {
	r.requests.add(1, transport, op)
	r.rejections.add(1, transport, op, reason)
}

// Requests returns the request count for a transport and operation.
func (r *Registry) Requests(transport, op string) float64 {
	return r.requests.get(transport, op)
}

// Rejections returns the rejection count for a transport, operation and reason.
func (r *Registry) Rejections(transport, op, reason string) float64 {
	return r.rejections.get(transport, op, reason)
}

// Reason maps a codec error to a rejection label.
func Reason(err error) string {
	switch {
	case errors.Is(err, postparam.ErrInvalidEncoding):
		return ReasonInvalidEncoding
	case errors.Is(err, postparam.ErrMalformedUTF8):
		return ReasonMalformedUTF8
	default:
		return ReasonOther
	}
}

// Handler exposes the registry as an http.Handler compatible with Prometheus.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		var sb strings.Builder
		for _, c := range r.collectors {
			c.write(&sb)
		}
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		_, _ = w.Write([]byte(sb.String()))
	})
}

func newCounterVec(name, help string, labels []string) *counterVec {
	return &counterVec{name: name, help: help, labels: labels, values: make(map[string]float64)}
}

func newHistogramVec(name, help string, labels []string, buckets []float64) *histogramVec {
	return &histogramVec{name: name, help: help, labels: labels, buckets: buckets, values: make(map[string]*histogramValue)}
}

func labelKey(labels []string, values []string) string {
	if len(values) != len(labels) {
		panic(fmt.Sprintf("expected %d labels, got %d", len(labels), len(values)))
	}
	return strings.Join(values, "\x00")
}

func (cv *counterVec) add(delta float64, values ...string) {
	key := labelKey(cv.labels, values)
	cv.mu.Lock()
	cv.values[key] += delta
	cv.mu.Unlock()
}

func (cv *counterVec) get(values ...string) float64 {
	key := labelKey(cv.labels, values)
	cv.mu.RLock()
	defer cv.mu.RUnlock()
	return cv.values[key]
}

func (cv *counterVec) write(sb *strings.Builder) {
	writeHeader(sb, cv.name, cv.help, "counter")
	cv.mu.RLock()
	defer cv.mu.RUnlock()
	for _, key := range sortedKeys(cv.values) {
		sb.WriteString(cv.name)
		writeLabels(sb, cv.labels, strings.Split(key, "\x00"), "")
		fmt.Fprintf(sb, " %g\n", cv.values[key])
	}
}

func (hv *histogramVec) observe(sample float64, values ...string) {
	key := labelKey(hv.labels, values)
	hv.mu.Lock()
	defer hv.mu.Unlock()
	entry, ok := hv.values[key]
	if !ok {
		entry = &histogramValue{counts: make([]uint64, len(hv.buckets)+1)}
		hv.values[key] = entry
	}
	entry.sum += sample
	entry.total++
	i := sort.SearchFloat64s(hv.buckets, sample)
	entry.counts[i]++
}

func (hv *histogramVec) write(sb *strings.Builder) {
	writeHeader(sb, hv.name, hv.help, "histogram")
	hv.mu.RLock()
	defer hv.mu.RUnlock()
	for _, key := range sortedKeys(hv.values) {
		entry := hv.values[key]
		parts := strings.Split(key, "\x00")
		cumulative := uint64(0)
		for i, upper := range hv.buckets {
			cumulative += entry.counts[i]
			sb.WriteString(hv.name + "_bucket")
			writeLabels(sb, hv.labels, parts, fmt.Sprintf("le=\"%g\"", upper))
			fmt.Fprintf(sb, " %d\n", cumulative)
		}
		cumulative += entry.counts[len(hv.buckets)]
		sb.WriteString(hv.name + "_bucket")
		writeLabels(sb, hv.labels, parts, `le="+Inf"`)
		fmt.Fprintf(sb, " %d\n", cumulative)

		sb.WriteString(hv.name + "_sum")
		writeLabels(sb, hv.labels, parts, "")
		fmt.Fprintf(sb, " %g\n", entry.sum)
		sb.WriteString(hv.name + "_count")
		writeLabels(sb, hv.labels, parts, "")
		fmt.Fprintf(sb, " %d\n", entry.total)
	}
}

func writeLabels(sb *strings.Builder, labels, values []string, extra string) {
	if len(labels) == 0 && extra == "" {
		return
	}
	sb.WriteString("{")
	for i, label := range labels {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(label)
		sb.WriteString("=\"")
		sb.WriteString(escapeLabel(values[i]))
		sb.WriteString("\"")
	}
	if extra != "" {
		if len(labels) > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(extra)
	}
	sb.WriteString("}")
}

func writeHeader(sb *strings.Builder, name, help, metricType string) {
	fmt.Fprintf(sb, "# HELP %s %s\n# TYPE %s %s\n", name, help, name, metricType)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func escapeLabel(value string) string {
	value = strings.ReplaceAll(value, "\\", "\\\\")
	value = strings.ReplaceAll(value, "\n", "\\n")
	value = strings.ReplaceAll(value, "\"", "\\\"")
	return value
}
