package metrics

import (
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink maps events onto counters and histograms registered lazily
// under the given namespace. Label keys for a given event name must not
// change between emissions.
type PrometheusSink struct {
	namespace  string
	registerer prometheus.Registerer

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
}

func NewPrometheusSink(namespace string, registerer prometheus.Registerer) *PrometheusSink {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	return &PrometheusSink{
		namespace:  namespace,
		registerer: registerer,
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

func (p *PrometheusSink) Emit(e Event) {
	keys := labelKeys(e.Labels)

	if strings.HasSuffix(e.Name, "_seconds") {
		if h := p.histogram(e.Name, keys); h != nil {
			h.With(e.Labels).Observe(e.Value)
		}
		return
	}

	if e.Value < 0 {
		return
	}
	if c := p.counter(e.Name, keys); c != nil {
		c.With(e.Labels).Add(e.Value)
	}
}

func (p *PrometheusSink) counter(name string, keys []string) *prometheus.CounterVec {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.counters[name]; ok {
		return c
	}
	c := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: p.namespace,
		Name:      name + "_total",
		Help:      "Replenishment engine event " + name,
	}, keys)
	if err := p.registerer.Register(c); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil
		}
		c = are.ExistingCollector.(*prometheus.CounterVec)
	}
	p.counters[name] = c
	return c
}

func (p *PrometheusSink) histogram(name string, keys []string) *prometheus.HistogramVec {
	p.mu.Lock()
	defer p.mu.Unlock()

	if h, ok := p.histograms[name]; ok {
		return h
	}
	h := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: p.namespace,
		Name:      name,
		Help:      "Replenishment engine duration " + name,
		Buckets:   prometheus.DefBuckets,
	}, keys)
	if err := p.registerer.Register(h); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil
		}
		h = are.ExistingCollector.(*prometheus.HistogramVec)
	}
	p.histograms[name] = h
	return h
}

func labelKeys(labels map[string]string) []string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
