package promobs

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/leofalp/deepresearch/providers/observability"
)

// countBuckets suits histograms of small counts, such as retrieved items.
var countBuckets = []float64{0, 1, 2, 4, 8, 16, 32, 64}

// Observer decorates a Provider with Prometheus metrics.
type Observer struct {
	observability.Tracer
	observability.Logger

	inner      observability.Provider
	registerer prometheus.Registerer
	buckets    map[string][]float64

	mu         sync.Mutex
	counters   map[string]*counter
	histograms map[string]*histogram
}

var _ observability.Provider = (*Observer)(nil)

// Option configures an Observer.
type Option func(*Observer)

// WithHistogramBuckets sets the buckets of the named histogram. Histograms
// whose name ends in ".duration" default to prometheus.DefBuckets (seconds);
// all others default to count buckets.
func WithHistogramBuckets(name string, buckets []float64) Option {
	return func(observer *Observer) {
		observer.buckets[name] = slices.Clone(buckets)
	}
}

// New wraps inner. Collectors are registered with registerer, or with
// prometheus.DefaultRegisterer when it is nil.
func New(inner observability.Provider, registerer prometheus.Registerer, opts ...Option) (*Observer, error) {
	if inner == nil {
		return nil, errors.New("promobs: inner provider is required")
	}
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	observer := &Observer{
		Tracer:     inner,
		Logger:     inner,
		inner:      inner,
		registerer: registerer,
		buckets:    make(map[string][]float64),
		counters:   make(map[string]*counter),
		histograms: make(map[string]*histogram),
	}
	for _, opt := range opts {
		opt(observer)
	}
	return observer, nil
}

// Counter returns a counter recording into the wrapped provider and into a
// Prometheus CounterVec.
func (o *Observer) Counter(name string) observability.Counter {
	o.mu.Lock()
	defer o.mu.Unlock()

	if existing, ok := o.counters[name]; ok {
		return existing
	}
	created := &counter{observer: o, name: name, inner: o.inner.Counter(name)}
	o.counters[name] = created
	return created
}

// Histogram returns a histogram recording into the wrapped provider and
// into a Prometheus HistogramVec.
func (o *Observer) Histogram(name string) observability.Histogram {
	o.mu.Lock()
	defer o.mu.Unlock()

	if existing, ok := o.histograms[name]; ok {
		return existing
	}
	created := &histogram{observer: o, name: name, inner: o.inner.Histogram(name)}
	o.histograms[name] = created
	return created
}

func (o *Observer) bucketsFor(name string) []float64 {
	if buckets, ok := o.buckets[name]; ok {
		return buckets
	}
	if strings.HasSuffix(name, ".duration") {
		return prometheus.DefBuckets
	}
	return countBuckets
}

// register registers collector, reusing an identical collector that is
// already registered. A collector that cannot be registered still records
// but is not exported.
func register[C prometheus.Collector](o *Observer, name string, collector C) C {
	err := o.registerer.Register(collector)
	if err == nil {
		return collector
	}

	var alreadyRegistered prometheus.AlreadyRegisteredError
	if errors.As(err, &alreadyRegistered) {
		if existing, ok := alreadyRegistered.ExistingCollector.(C); ok {
			return existing
		}
	}

	o.inner.Warn(context.Background(), "metric not exported",
		observability.String("metric", name),
		observability.Error(err),
	)
	return collector
}

type counter struct {
	observer *Observer
	name     string
	inner    observability.Counter

	once   sync.Once
	labels []string
	vec    *prometheus.CounterVec
}

func (c *counter) Add(ctx context.Context, value int64, attrs ...observability.Attribute) {
	c.inner.Add(ctx, value, attrs...)
	if value < 0 {
		return
	}

	c.once.Do(func() {
		c.labels = labelKeys(attrs)
		c.vec = register(c.observer, c.name, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricName(c.name) + "_total",
			Help: "Counter " + c.name + ".",
		}, c.labels))
	})

	c.vec.With(labelValues(c.labels, attrs)).Add(float64(value))
}

type histogram struct {
	observer *Observer
	name     string
	inner    observability.Histogram

	once   sync.Once
	labels []string
	vec    *prometheus.HistogramVec
}

func (h *histogram) Record(ctx context.Context, value float64, attrs ...observability.Attribute) {
	h.inner.Record(ctx, value, attrs...)

	h.once.Do(func() {
		h.labels = labelKeys(attrs)
		h.vec = register(h.observer, h.name, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricName(h.name),
			Help:    "Histogram " + h.name + ".",
			Buckets: h.observer.bucketsFor(h.name),
		}, h.labels))
	})

	h.vec.With(labelValues(h.labels, attrs)).Observe(value)
}

// MetricName converts a dotted metric or attribute name into a valid
// Prometheus name.
func MetricName(name string) string {
	var builder strings.Builder
	for index, char := range name {
		switch {
		case char >= 'a' && char <= 'z', char >= 'A' && char <= 'Z', char == '_':
			builder.WriteRune(char)
		case char >= '0' && char <= '9':
			if index == 0 {
				builder.WriteRune('_')
			}
			builder.WriteRune(char)
		default:
			builder.WriteRune('_')
		}
	}
	return builder.String()
}

// labelKeys returns the sanitized, sorted, de-duplicated attribute keys.
func labelKeys(attrs []observability.Attribute) []string {
	keys := make([]string, 0, len(attrs))
	for _, attr := range attrs {
		keys = append(keys, MetricName(attr.Key))
	}
	slices.Sort(keys)
	return slices.Compact(keys)
}

// labelValues maps attrs onto labels. Labels without an attribute get ""
// and attributes outside the label set are dropped.
func labelValues(labels []string, attrs []observability.Attribute) prometheus.Labels {
	values := make(prometheus.Labels, len(labels))
	for _, label := range labels {
		values[label] = ""
	}
	for _, attr := range attrs {
		key := MetricName(attr.Key)
		if _, ok := values[key]; ok {
			values[key] = fmt.Sprint(attr.Value)
		}
	}
	return values
}
